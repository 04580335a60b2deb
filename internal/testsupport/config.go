package testsupport

import (
	"path/filepath"
	"testing"

	"newswatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.DatabasePath = filepath.Join(base, "data", "newswatch.db")
	cfg.Paths.SocketPath = filepath.Join(base, "data", "newswatchd.sock")
	cfg.Analysis.APIKey = "test"
	cfg.Source.AppKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithAnalysisDisabled turns off AI enrichment on the test config.
func WithAnalysisDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Analysis.Enabled = false
	}
}

// WithQueries replaces the query categories on the test config.
func WithQueries(queries map[string][]string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Source.Queries = queries
	}
}
