package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fleetops/dispatchd/core/model"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `sla:
  budget_minutes:
    BARQ: 60
    BULLET: 240
assign:
  max_attempts: 3
  filter:
    max_hours_worked: 10
    min_on_time_rate: 0.9
monitor:
  interval_seconds: 45
  workers: 8
notify:
  broker: "tcp://localhost:1883"
  client_id: "dispatchd"
  topic_prefix: "dispatch/notify"
metrics:
  prometheus_enabled: true
  prometheus_port: 9464
audit:
  backend: "sqlite"
  path: "audit.db"
redis:
  enabled: false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"sla.barq", cfg.SLA.BudgetMinutes[model.ServiceBarq], 60},
		{"sla.bullet", cfg.SLA.BudgetMinutes[model.ServiceBullet], 240},
		{"assign.max_attempts", cfg.Assign.MaxAttempts, 3},
		{"assign.filter.max_hours", cfg.Assign.Filter.MaxHoursWorked, 10.0},
		{"monitor.interval", cfg.Monitor.IntervalSeconds, 45},
		{"monitor.workers", cfg.Monitor.Workers, 8},
		{"notify.broker", cfg.Notify.Broker, "tcp://localhost:1883"},
		{"notify.prefix", cfg.Notify.TopicPrefix, "dispatch/notify"},
		{"metrics.prom", cfg.Metrics.PrometheusEnabled, true},
		{"metrics.port", cfg.Metrics.PrometheusPort, 9464},
		{"audit.backend", cfg.Audit.Backend, "sqlite"},
		{"audit.path", cfg.Audit.Path, "audit.db"},
		{"redis.enabled", cfg.Redis.Enabled, false},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
	// Defaults fill the sections the file omits.
	if cfg.Batch.Rule(model.ServiceBarq).MaxSize != 3 {
		t.Errorf("batch defaults not applied")
	}
	if cfg.Penalty.Rule(model.ServiceBarq).RatePerMinute != 10 {
		t.Errorf("penalty defaults not applied")
	}
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("a = 1"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("monitor:\n  workers: 8\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.Setenv("DISPATCHD_MONITOR__WORKERS", "16"); err != nil {
		t.Fatalf("setenv: %v", err)
	}
	defer func() { _ = os.Unsetenv("DISPATCHD_MONITOR__WORKERS") }()

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Monitor.Workers != 16 {
		t.Errorf("env override not applied: %d", cfg.Monitor.Workers)
	}
}

func TestValidate_RejectsBadAuditBackend(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	cfg.Audit.Backend = "csv"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}
