package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSource() error {
	if strings.TrimSpace(c.Source.BaseURL) == "" {
		return errors.New("source.base_url must be set")
	}
	if len(c.Source.Queries) == 0 {
		return errors.New("source.queries must define at least one category")
	}
	if err := ensurePositiveMap(map[string]int{
		"source.max_per_query":             c.Source.MaxPerQuery,
		"source.background_lookback_hours": c.Source.BackgroundLookbackHours,
		"source.manual_lookback_hours":     c.Source.ManualLookbackHours,
		"source.dedup_window_days":         c.Source.DedupWindowDays,
		"source.check_interval_seconds":    c.Source.CheckIntervalSeconds,
		"source.request_timeout_seconds":   c.Source.RequestTimeoutSeconds,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if !c.Analysis.Enabled {
		return nil
	}
	if c.Analysis.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/newswatch/config.toml"
		}
		return fmt.Errorf("analysis.api_key is required when analysis.enabled is true. Set GEMINI_API_KEY env var or edit %s (create with 'newswatch config init')", defaultPath)
	}
	if err := ensurePositiveMap(map[string]int{
		"analysis.per_minute_limit": c.Analysis.PerMinuteLimit,
		"analysis.per_day_limit":    c.Analysis.PerDayLimit,
		"analysis.max_text_length":  c.Analysis.MaxTextLength,
		"analysis.batch_size":       c.Analysis.BatchSize,
		"analysis.timeout_seconds":  c.Analysis.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Analysis.DailyCostCapUSD <= 0 {
		return errors.New("analysis.daily_cost_cap_usd must be positive")
	}
	if c.Analysis.ImportanceThreshold < 1 || c.Analysis.ImportanceThreshold > 10 {
		return errors.New("analysis.importance_threshold must be between 1 and 10")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.poll_interval_minutes":          c.Workflow.PollIntervalMinutes,
		"workflow.passive_check_interval_minutes": c.Workflow.PassiveCheckIntervalMinutes,
		"workflow.error_retry_seconds":            c.Workflow.ErrorRetrySeconds,
	})
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
