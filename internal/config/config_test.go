package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Scoring.Decisions != 3 {
		t.Errorf("expected 3 decisions, got %d", cfg.Scoring.Decisions)
	}
	if time.Duration(cfg.Sessions.MaxAge) != 720*time.Hour {
		t.Errorf("expected max_age 720h, got %v", time.Duration(cfg.Sessions.MaxAge))
	}
	if cfg.Server.RateLimit.RPS != 10 || cfg.Server.RateLimit.Burst != 20 {
		t.Errorf("expected rate limit 10/20, got %+v", cfg.Server.RateLimit)
	}
	if cfg.Sessions.PruneSchedule != "@hourly" {
		t.Errorf("expected prune_schedule @hourly, got %q", cfg.Sessions.PruneSchedule)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
server:
  port: 9000
scoring:
  decisions: 5
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Scoring.Decisions != 5 {
		t.Errorf("expected 5 decisions, got %d", cfg.Scoring.Decisions)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected default host, got %q", cfg.Server.Host)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected default level INFO, got %q", cfg.Logging.Level)
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	if _, err := parse([]byte("scoring:\n  decisions: 1\n")); err == nil {
		t.Error("expected error for a single decision level")
	}
	if _, err := parse([]byte("sessions:\n  max_age: forever\n")); err == nil {
		t.Error("expected error for an invalid duration")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8123\n"), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	t.Setenv("VOTEMATCH_PORT", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Port != 8123 {
		t.Errorf("expected port 8123, got %d", cfg.Server.Port)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if cfg.Scoring.Decisions != 3 {
		t.Errorf("expected default decisions, got %d", cfg.Scoring.Decisions)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg, _ := parse(nil)
	env := map[string]string{
		"VOTEMATCH_DATA_DIR":  "/srv/votematch",
		"VOTEMATCH_PORT":      "9100",
		"VOTEMATCH_LOG_LEVEL": "debug",
	}
	if err := cfg.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GetDataDir() != "/srv/votematch" {
		t.Errorf("expected data dir override, got %q", cfg.GetDataDir())
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port 9100, got %d", cfg.Server.Port)
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.LogLevel())
	}

	env["VOTEMATCH_PORT"] = "eighty"
	if err := cfg.applyEnv(func(k string) string { return env[k] }); err == nil {
		t.Error("expected error for non-numeric port")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
	if cfg.DatabasePath() != filepath.Join("/custom/path", "votematch.db") {
		t.Errorf("unexpected database path %q", cfg.DatabasePath())
	}
}
