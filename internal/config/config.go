package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	LogDir       string `toml:"log_dir"`
	DatabasePath string `toml:"database_path"`
	SocketPath   string `toml:"socket_path"`
}

// Source contains configuration for the news headline provider.
type Source struct {
	BaseURL                 string              `toml:"base_url"`
	AppKey                  string              `toml:"app_key"`
	Queries                 map[string][]string `toml:"queries"`
	PriorityQueries         []string            `toml:"priority_queries"`
	QuerySubstitutions      map[string]string   `toml:"query_substitutions"`
	ExcludedSources         []string            `toml:"excluded_sources"`
	MaxPerQuery             int                 `toml:"max_per_query"`
	FetchBodies             bool                `toml:"fetch_bodies"`
	BackgroundLookbackHours int                 `toml:"background_lookback_hours"`
	ManualLookbackHours     int                 `toml:"manual_lookback_hours"`
	DedupWindowDays         int                 `toml:"dedup_window_days"`
	CheckIntervalSeconds    int                 `toml:"check_interval_seconds"`
	RequestTimeoutSeconds   int                 `toml:"request_timeout_seconds"`
}

// Analysis contains configuration for AI enrichment of collected articles.
type Analysis struct {
	Enabled             bool    `toml:"enabled"`
	APIKey              string  `toml:"api_key"`
	BaseURL             string  `toml:"base_url"`
	Model               string  `toml:"model"`
	FallbackModel       string  `toml:"fallback_model"`
	PerMinuteLimit      int     `toml:"per_minute_limit"`
	PerDayLimit         int     `toml:"per_day_limit"`
	DailyCostCapUSD     float64 `toml:"daily_cost_cap_usd"`
	MaxTextLength       int     `toml:"max_text_length"`
	BatchSize           int     `toml:"batch_size"`
	BatchPauseSeconds   int     `toml:"batch_pause_seconds"`
	ImportantOnly       bool    `toml:"important_only"`
	ImportanceThreshold int     `toml:"importance_threshold"`
	Summary             bool    `toml:"summary"`
	Sentiment           bool    `toml:"sentiment"`
	Keywords            bool    `toml:"keywords"`
	Importance          bool    `toml:"importance"`
	Translation         bool    `toml:"translation"`
	TimeoutSeconds      int     `toml:"timeout_seconds"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	PollIntervalMinutes         int `toml:"poll_interval_minutes"`
	PassiveCheckIntervalMinutes int `toml:"passive_check_interval_minutes"`
	ErrorRetrySeconds           int `toml:"error_retry_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic       string `toml:"ntfy_topic"`
	RequestTimeout  int    `toml:"request_timeout"`
	DatabaseUpdates bool   `toml:"database_updates"`
	HighImportance  bool   `toml:"high_importance"`
	ModeChanges     bool   `toml:"mode_changes"`
	Errors          bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for newswatch.
//
// Configuration sections by subsystem:
//   - Paths: data, log, database, and control socket locations
//   - Source: headline provider connection, queries, and filters
//   - Analysis: AI models, rate limits, and spend budgets
//   - Workflow: scheduler polling intervals and retry timing
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Source        Source        `toml:"source"`
	Analysis      Analysis      `toml:"analysis"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/newswatch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/newswatch/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("newswatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.DatabasePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database directory %q: %w", dir, err)
		}
	}
	return nil
}

// BackgroundQueries returns all configured query strings across categories,
// ordered by category name for deterministic execution.
func (c *Config) BackgroundQueries() []string {
	categories := make([]string, 0, len(c.Source.Queries))
	for category := range c.Source.Queries {
		categories = append(categories, category)
	}
	slices.Sort(categories)

	var queries []string
	seen := make(map[string]struct{})
	for _, category := range categories {
		for _, q := range c.Source.Queries[category] {
			trimmed := strings.TrimSpace(q)
			if trimmed == "" {
				continue
			}
			if _, ok := seen[trimmed]; ok {
				continue
			}
			seen[trimmed] = struct{}{}
			queries = append(queries, trimmed)
		}
	}
	return queries
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
