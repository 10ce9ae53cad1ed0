package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Timer.TickInterval != time.Second {
		t.Errorf("expected 1s tick, got %v", cfg.Timer.TickInterval)
	}
	if cfg.Normalizer.DurationMinutes != 30 {
		t.Errorf("expected default duration 30, got %d", cfg.Normalizer.DurationMinutes)
	}
	if cfg.Database.DSN != "" {
		t.Errorf("journal should be disabled by default, got DSN %q", cfg.Database.DSN)
	}
	if cfg.Redis.Address != "" {
		t.Errorf("snapshots should be disabled by default, got address %q", cfg.Redis.Address)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
  allowed_origins: ["https://app.example.com"]
backend:
  url: https://api.example.com
  timeout: 5s
redis:
  snapshot_ttl: 2h
timer:
  tick_interval: 500ms
normalizer:
  duration_minutes: 60
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("REDIS_ADDRESS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("env should win over file, got port %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host absent from file should keep default, got %q", cfg.Server.Host)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Backend.URL != "https://api.example.com" || cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("unexpected backend: %+v", cfg.Backend)
	}
	if cfg.Redis.SnapshotTTL != 2*time.Hour {
		t.Errorf("expected 2h TTL, got %v", cfg.Redis.SnapshotTTL)
	}
	if cfg.Redis.Address != "" {
		t.Errorf("expected redis disabled, got %q", cfg.Redis.Address)
	}
	if cfg.Timer.TickInterval != 500*time.Millisecond {
		t.Errorf("expected 500ms tick, got %v", cfg.Timer.TickInterval)
	}
	if cfg.Normalizer.DurationMinutes != 60 {
		t.Errorf("expected duration 60, got %d", cfg.Normalizer.DurationMinutes)
	}
	if cfg.Normalizer.ContentIndent != "  " {
		t.Errorf("indent absent from file should keep default, got %q", cfg.Normalizer.ContentIndent)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_InvalidEnvKeepsValue(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TIMER_TICK_INTERVAL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Timer.TickInterval != time.Second {
		t.Errorf("expected default tick, got %v", cfg.Timer.TickInterval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"no backend", func(c *Config) { c.Backend.URL = "" }},
		{"relative backend", func(c *Config) { c.Backend.URL = "/api" }},
		{"zero timeout", func(c *Config) { c.Backend.Timeout = 0 }},
		{"zero tick", func(c *Config) { c.Timer.TickInterval = 0 }},
		{"zero default duration", func(c *Config) { c.Normalizer.DurationMinutes = 0 }},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
