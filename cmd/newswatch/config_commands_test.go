package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInit(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err == nil {
		t.Fatal("expected error without --overwrite")
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	out, _, err := runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "Source app key")
	if len(env.cfg.Source.AppKey) > 0 {
		requireContains(t, out, "*")
	}
}

func TestHelpers(t *testing.T) {
	if got := truncate("copper market outlook", 10); got != "copper ..." {
		t.Fatalf("truncate: %q", got)
	}
	if got := truncate("tin", 10); got != "tin" {
		t.Fatalf("truncate short: %q", got)
	}
	if got := maskSecret(""); got != "(unset)" {
		t.Fatalf("maskSecret empty: %q", got)
	}
	if got := maskSecret("abcdef123"); got != "abcd*****" {
		t.Fatalf("maskSecret: %q", got)
	}
}
