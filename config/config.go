package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/fleetops/dispatchd/core/assign"
	"github.com/fleetops/dispatchd/core/batch"
	"github.com/fleetops/dispatchd/core/metrics"
	"github.com/fleetops/dispatchd/core/monitor"
	"github.com/fleetops/dispatchd/core/penalty"
	"github.com/fleetops/dispatchd/core/sla"
	"github.com/fleetops/dispatchd/infra/notify"
	"github.com/fleetops/dispatchd/infra/store"
)

// Config aggregates all dispatcher settings.
type Config struct {
	SLA     sla.Config     `json:"sla"`
	Assign  assign.Config  `json:"assign"`
	Penalty penalty.Config `json:"penalty"`
	Batch   batch.Config   `json:"batch"`
	Monitor monitor.Config `json:"monitor"`
	Notify  notify.Config  `json:"notify"`
	Metrics metrics.Config `json:"metrics"`
	Redis   store.Config   `json:"redis"`
	Audit   AuditConfig    `json:"audit"`
}

// Load reads the configuration file at path, applies DISPATCHD_* environment
// overrides, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides: DISPATCHD_MONITOR__WORKERS=16.
	if err := k.Load(env.Provider("DISPATCHD_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "dispatchd_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section's defaults.
func (c *Config) SetDefaults() {
	c.SLA.SetDefaults()
	c.Assign.SetDefaults()
	c.Penalty.SetDefaults()
	c.Batch.SetDefaults()
	c.Monitor.SetDefaults()
	c.Notify.SetDefaults()
	c.Metrics.SetDefaults()
	c.Redis.SetDefaults()
	c.Audit.SetDefaults()
}

// Validate checks section constraints.
func (c Config) Validate() error {
	if err := c.Batch.Validate(); err != nil {
		return err
	}
	if err := c.Audit.Validate(); err != nil {
		return err
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis enabled but url is empty")
	}
	if c.Metrics.InfluxEnabled && c.Metrics.InfluxURL == "" {
		return fmt.Errorf("influx enabled but url is empty")
	}
	return nil
}
