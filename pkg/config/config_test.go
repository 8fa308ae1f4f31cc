package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewAppliesDefaults(t *testing.T) {
	cfg := New()
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Auth.RateLimitAuthPerMin != 10 {
		t.Fatalf("expected default auth rate limit 10, got %d", cfg.Auth.RateLimitAuthPerMin)
	}
	if cfg.EventBus.QueueSize != 1024 {
		t.Fatalf("expected default event queue size 1024, got %d", cfg.EventBus.QueueSize)
	}
	if cfg.Capacity.HistoryLimit != 50 {
		t.Fatalf("expected default capacity history limit 50, got %d", cfg.Capacity.HistoryLimit)
	}
	if cfg.Reporting.TickIntervalSeconds != 60 {
		t.Fatalf("expected default reporting tick interval 60, got %d", cfg.Reporting.TickIntervalSeconds)
	}
	if len(cfg.Reporting.Jobs) != 0 {
		t.Fatalf("expected no default reporting jobs, got %d", len(cfg.Reporting.Jobs))
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := "server:\n  port: 9090\ndatabase:\n  dsn: postgres://example\nforecast:\n  forecast_default_days: 21\n" +
		"reporting:\n  tick_interval_seconds: 30\n  jobs:\n    - client_id: CL1\n      schedule: \"0 6 * * *\"\n      kind: daily\n      window_hours: 24\n      actor_user_id: scheduler\n"
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected overridden port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Forecast.DefaultDays != 21 {
		t.Fatalf("expected overridden forecast days 21, got %d", cfg.Forecast.DefaultDays)
	}
	if cfg.EventStore.DSN != "postgres://example" {
		t.Fatalf("expected event store DSN to default from database DSN, got %q", cfg.EventStore.DSN)
	}
	if cfg.Reporting.TickIntervalSeconds != 30 {
		t.Fatalf("expected overridden reporting tick interval 30, got %d", cfg.Reporting.TickIntervalSeconds)
	}
	if len(cfg.Reporting.Jobs) != 1 || cfg.Reporting.Jobs[0].ClientID != "CL1" {
		t.Fatalf("expected one reporting job for CL1, got %+v", cfg.Reporting.Jobs)
	}
}

func TestLoadFileMissingIsNotError(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("expected default host preserved, got %q", cfg.Server.Host)
	}
}
