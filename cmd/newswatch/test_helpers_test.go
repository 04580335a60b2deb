package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"newswatch/internal/config"
	"newswatch/internal/daemon"
	"newswatch/internal/ipc"
	"newswatch/internal/logging"
	"newswatch/internal/source"
	"newswatch/internal/testsupport"
)

type stubSource struct {
	headlines []source.Headline
}

func (s *stubSource) Headlines(context.Context, string, int, time.Time, time.Time) ([]source.Headline, error) {
	return s.headlines, nil
}

func (s *stubSource) StoryBody(context.Context, string) (string, error) { return "", nil }

func (s *stubSource) Ping(context.Context) error { return nil }

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T, src source.Client) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithAnalysisDisabled())
	cfg.Source.FetchBodies = false
	cfg.Source.PriorityQueries = []string{"copper price"}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(cfg.Paths.DataDir, "config.toml")
	writeTestConfig(t, configPath, cfg)

	if src == nil {
		src = &stubSource{}
	}

	d, err := daemon.New(cfg, logging.NewNop(), daemon.WithSourceClient(src))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	socketPath := filepath.Join(cfg.Paths.DataDir, "cli.sock")
	srv, err := ipc.NewServer(context.Background(), socketPath, d, logging.NewNop())
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		srv.Close()
		d.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		socketPath: socketPath,
		configPath: configPath,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", env.socketPath, "--config", env.configPath}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}
