package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnv, "")
	for _, f := range fields {
		t.Setenv(f.env, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smartspace.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)
		const secret = "super-secret"
		t.Setenv("SMARTSPACE_SESSION_SECRET", secret)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if !strings.Contains(cfg.SQLiteDSN, "foreign_keys(1)") {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.SessionSecret != secret {
			t.Fatalf("expected session secret to be %q, got %q", secret, cfg.SessionSecret)
		}
		if cfg.PixelsPerHour != 80 || cfg.MinCardHeight != 64 || cfg.ColumnInset != 4 {
			t.Fatalf("unexpected calendar defaults: %+v", cfg)
		}
		if cfg.DashboardPollInterval != time.Minute {
			t.Fatalf("expected 60s poll interval, got %s", cfg.DashboardPollInterval)
		}
		if cfg.Location != time.Local {
			t.Fatalf("expected local zone by default, got %v", cfg.Location)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnv(t)

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "missing required configuration: SMARTSPACE_SESSION_SECRET"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("collects every invalid value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SMARTSPACE_SESSION_SECRET", "secret")
		t.Setenv("SMARTSPACE_HTTP_PORT", "not-a-number")
		t.Setenv("SMARTSPACE_SESSION_TTL", "-5m")
		t.Setenv("SMARTSPACE_TIMEZONE", "Mars/Olympus")

		_, err := Load()
		if err == nil {
			t.Fatal("expected error for invalid values")
		}
		expected := "invalid configuration values: SMARTSPACE_HTTP_PORT, SMARTSPACE_SESSION_TTL, SMARTSPACE_TIMEZONE"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SMARTSPACE_SESSION_SECRET", "secret")
		t.Setenv("SMARTSPACE_HTTP_PORT", "9090")
		t.Setenv("SMARTSPACE_SESSION_TTL", "2h")
		t.Setenv("SMARTSPACE_TIMEZONE", "UTC")
		t.Setenv("SMARTSPACE_SPLIT_OVERLAPS", "true")
		t.Setenv("SMARTSPACE_BACKEND_URL", "https://booking.example.com/")
		t.Setenv("SMARTSPACE_LOG_LEVEL", "DEBUG")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 9090 || cfg.SessionTTL != 2*time.Hour {
			t.Fatalf("unexpected overrides: %+v", cfg)
		}
		if cfg.Location != time.UTC || !cfg.SplitOverlaps {
			t.Fatalf("unexpected calendar overrides: %+v", cfg)
		}
		if cfg.BackendBaseURL != "https://booking.example.com" {
			t.Fatalf("expected trailing slash to be trimmed, got %q", cfg.BackendBaseURL)
		}
		if cfg.LogLevel != "debug" {
			t.Fatalf("expected normalized log level, got %q", cfg.LogLevel)
		}
	})
}

func TestLoadFrom_File(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SMARTSPACE_SESSION_SECRET", "secret")

		cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.toml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected defaults, got %+v", cfg)
		}
	})

	t.Run("file values apply and environment wins", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, `
[http]
port = 7070

[auth]
session_secret = "from-file"
session_ttl = "30m"

[calendar]
timezone = "UTC"
pixels_per_hour = 120
min_card_height = 48.5

[dashboard]
poll_interval = "15s"
`)
		t.Setenv("SMARTSPACE_HTTP_PORT", "6060")

		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("LoadFrom returned error: %v", err)
		}
		if cfg.HTTPPort != 6060 {
			t.Fatalf("expected environment to override file port, got %d", cfg.HTTPPort)
		}
		if cfg.SessionSecret != "from-file" || cfg.SessionTTL != 30*time.Minute {
			t.Fatalf("expected auth values from file, got %+v", cfg)
		}
		if cfg.PixelsPerHour != 120 || cfg.MinCardHeight != 48.5 {
			t.Fatalf("expected calendar values from file, got %+v", cfg)
		}
		if cfg.DashboardPollInterval != 15*time.Second {
			t.Fatalf("expected poll interval from file, got %s", cfg.DashboardPollInterval)
		}
	})

	t.Run("config path comes from the environment", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, "[auth]\nsession_secret = \"via-env-path\"\n")
		t.Setenv(ConfigPathEnv, path)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.SessionSecret != "via-env-path" {
			t.Fatalf("expected secret from file, got %q", cfg.SessionSecret)
		}
	})

	t.Run("malformed files are rejected", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, "[http\nport = ")

		if _, err := LoadFrom(path); err == nil || !strings.Contains(err.Error(), "parsing config file") {
			t.Fatalf("expected parse error, got %v", err)
		}
	})
}
