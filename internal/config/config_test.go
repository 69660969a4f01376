package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadConfig_Defaults(t *testing.T) {
	p := writeConfig(t, "database:\n  url: postgres://localhost/jobs\n")

	cfg, err := LoadConfig(p, false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log defaults = %q/%q", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Provider.SubmitTimeout != 30*time.Second {
		t.Errorf("submit timeout = %s, want 30s", cfg.Provider.SubmitTimeout)
	}
	if cfg.Sweep.BatchSize != 10 {
		t.Errorf("sweep batch = %d, want 10", cfg.Sweep.BatchSize)
	}
	if cfg.Sweep.Interval != time.Minute {
		t.Errorf("sweep interval = %s, want 1m", cfg.Sweep.Interval)
	}
	if cfg.Storage.SignTTL != time.Hour {
		t.Errorf("sign ttl = %s, want 1h", cfg.Storage.SignTTL)
	}
}

func TestLoadConfig_RequiresDatabaseURL(t *testing.T) {
	p := writeConfig(t, "server:\n  port: 9090\n")

	if _, err := LoadConfig(p, false); err == nil {
		t.Fatal("expected error for missing database.url")
	}
}

func TestLoadConfig_MissingProviderKeyIsNotFatal(t *testing.T) {
	// A missing provider key must surface per-trigger, never at boot.
	p := writeConfig(t, "database:\n  url: postgres://localhost/jobs\n")

	cfg, err := LoadConfig(p, false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Provider.APIKey != "" && os.Getenv("PROVIDER_API_KEY") == "" {
		t.Errorf("unexpected provider key %q", cfg.Provider.APIKey)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	p := writeConfig(t, "database:\n  url: postgres://file/jobs\n")
	t.Setenv("DATABASE_URL", "postgres://env/jobs")

	cfg, err := LoadConfig(p, false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Database.URL != "postgres://env/jobs" {
		t.Errorf("database url = %q, want env override", cfg.Database.URL)
	}
}

func TestLoadConfig_RedisEnabledNeedsURL(t *testing.T) {
	p := writeConfig(t, "database:\n  url: postgres://localhost/jobs\nredis:\n  enabled: true\n")

	if _, err := LoadConfig(p, false); err == nil {
		t.Fatal("expected error for redis.enabled without url")
	}
}
