package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSource()
	c.normalizeAnalysis()
	c.normalizeWorkflow()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		c.Paths.DatabasePath = filepath.Join(c.Paths.DataDir, defaultDatabaseFile)
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.DataDir, "newswatchd.sock")
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeSource() {
	c.Source.BaseURL = strings.TrimRight(strings.TrimSpace(c.Source.BaseURL), "/")
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = defaultSourceBaseURL
	}
	c.Source.AppKey = strings.TrimSpace(c.Source.AppKey)
	if c.Source.AppKey == "" {
		if value, ok := os.LookupEnv("EIKON_APP_KEY"); ok {
			c.Source.AppKey = strings.TrimSpace(value)
		}
	}
	excluded := make([]string, 0, len(c.Source.ExcludedSources))
	seen := make(map[string]struct{}, len(c.Source.ExcludedSources))
	for _, source := range c.Source.ExcludedSources {
		normalized := strings.ToLower(strings.TrimSpace(source))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		excluded = append(excluded, normalized)
	}
	c.Source.ExcludedSources = excluded
	if c.Source.MaxPerQuery <= 0 {
		c.Source.MaxPerQuery = defaultMaxPerQuery
	}
	if c.Source.BackgroundLookbackHours <= 0 {
		c.Source.BackgroundLookbackHours = defaultBackgroundLookback
	}
	if c.Source.ManualLookbackHours <= 0 {
		c.Source.ManualLookbackHours = defaultManualLookback
	}
	if c.Source.DedupWindowDays <= 0 {
		c.Source.DedupWindowDays = defaultDedupWindowDays
	}
	if c.Source.CheckIntervalSeconds <= 0 {
		c.Source.CheckIntervalSeconds = defaultSourceCheckSeconds
	}
	if c.Source.RequestTimeoutSeconds <= 0 {
		c.Source.RequestTimeoutSeconds = defaultSourceTimeoutSeconds
	}
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.APIKey = strings.TrimSpace(c.Analysis.APIKey)
	if c.Analysis.APIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Analysis.APIKey = strings.TrimSpace(value)
		}
	}
	c.Analysis.BaseURL = strings.TrimRight(strings.TrimSpace(c.Analysis.BaseURL), "/")
	if c.Analysis.BaseURL == "" {
		c.Analysis.BaseURL = defaultAnalysisBaseURL
	}
	c.Analysis.Model = strings.TrimSpace(c.Analysis.Model)
	if c.Analysis.Model == "" {
		c.Analysis.Model = defaultAnalysisModel
	}
	c.Analysis.FallbackModel = strings.TrimSpace(c.Analysis.FallbackModel)
	if c.Analysis.FallbackModel == "" {
		c.Analysis.FallbackModel = defaultAnalysisFallbackModel
	}
	if c.Analysis.PerMinuteLimit <= 0 {
		c.Analysis.PerMinuteLimit = defaultPerMinuteLimit
	}
	if c.Analysis.PerDayLimit <= 0 {
		c.Analysis.PerDayLimit = defaultPerDayLimit
	}
	if c.Analysis.DailyCostCapUSD <= 0 {
		c.Analysis.DailyCostCapUSD = defaultDailyCostCapUSD
	}
	if c.Analysis.MaxTextLength <= 0 {
		c.Analysis.MaxTextLength = defaultMaxTextLength
	}
	if c.Analysis.BatchSize <= 0 {
		c.Analysis.BatchSize = defaultBatchSize
	}
	if c.Analysis.BatchPauseSeconds < 0 {
		c.Analysis.BatchPauseSeconds = defaultBatchPauseSeconds
	}
	if c.Analysis.ImportanceThreshold <= 0 {
		c.Analysis.ImportanceThreshold = defaultImportanceThreshold
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		c.Analysis.TimeoutSeconds = defaultAnalysisTimeoutSeconds
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollIntervalMinutes <= 0 {
		c.Workflow.PollIntervalMinutes = defaultPollIntervalMinutes
	}
	if c.Workflow.PassiveCheckIntervalMinutes <= 0 {
		c.Workflow.PassiveCheckIntervalMinutes = defaultPassiveCheckMinutes
	}
	if c.Workflow.ErrorRetrySeconds <= 0 {
		c.Workflow.ErrorRetrySeconds = defaultErrorRetrySeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
