package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"newswatch/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("EIKON_APP_KEY", "app-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "newswatch")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.DatabasePath != filepath.Join(wantData, "newswatch.db") {
		t.Fatalf("unexpected database path: %q", cfg.Paths.DatabasePath)
	}
	if cfg.Paths.SocketPath != filepath.Join(wantData, "newswatchd.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.Paths.SocketPath)
	}
	if cfg.Analysis.APIKey != "test-key" {
		t.Fatalf("expected analysis key from env, got %q", cfg.Analysis.APIKey)
	}
	if cfg.Source.AppKey != "app-key" {
		t.Fatalf("expected source app key from env, got %q", cfg.Source.AppKey)
	}
	if cfg.Analysis.Model != "gemini-1.5-flash" {
		t.Fatalf("unexpected default model: %q", cfg.Analysis.Model)
	}
	if cfg.Analysis.PerMinuteLimit != 15 || cfg.Analysis.PerDayLimit != 1500 {
		t.Fatalf("unexpected default rate limits: %d/%d", cfg.Analysis.PerMinuteLimit, cfg.Analysis.PerDayLimit)
	}
	if cfg.Analysis.DailyCostCapUSD != 5.0 {
		t.Fatalf("unexpected default cost cap: %v", cfg.Analysis.DailyCostCapUSD)
	}
	if cfg.Workflow.PollIntervalMinutes != 15 {
		t.Fatalf("unexpected default poll interval: %d", cfg.Workflow.PollIntervalMinutes)
	}
}

func TestLoadParsesFileAndNormalizesExclusions(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		`[source]`,
		`excluded_sources = ["  Reuters ", "reuters", "", "PR Wire"]`,
		`[logging]`,
		`format = "JSON"`,
		`level = "DEBUG"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	want := []string{"reuters", "pr wire"}
	if len(cfg.Source.ExcludedSources) != len(want) {
		t.Fatalf("unexpected exclusions: %v", cfg.Source.ExcludedSources)
	}
	for i, source := range want {
		if cfg.Source.ExcludedSources[i] != source {
			t.Fatalf("exclusion %d = %q, want %q", i, cfg.Source.ExcludedSources[i], source)
		}
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsMissingAnalysisKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	os.Unsetenv("GEMINI_API_KEY")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[analysis]\nenabled = true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for missing analysis api key")
	}
}

func TestValidateAllowsDisabledAnalysisWithoutKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	os.Unsetenv("GEMINI_API_KEY")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[analysis]\nenabled = false\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Analysis.Enabled {
		t.Fatal("expected analysis disabled")
	}
}

func TestValidateRejectsImportanceThresholdOutOfRange(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[analysis]\nimportance_threshold = 11\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for importance threshold out of range")
	}
}

func TestBackgroundQueriesDeterministicAndDeduped(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Queries = map[string][]string{
		"zinc":   {"zinc price", "zinc price"},
		"copper": {"copper price"},
	}
	queries := cfg.BackgroundQueries()
	want := []string{"copper price", "zinc price"}
	if len(queries) != len(want) {
		t.Fatalf("unexpected queries: %v", queries)
	}
	for i := range want {
		if queries[i] != want[i] {
			t.Fatalf("query %d = %q, want %q", i, queries[i], want[i])
		}
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(content), "[analysis]") {
		t.Fatalf("sample missing analysis section: %q", content)
	}
}
