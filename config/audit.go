package config

import "fmt"

// AuditConfig defines settings for the decision audit log.
type AuditConfig struct {
	// Backend selects the store type: "sqlite" or "none".
	Backend string `json:"backend"`
	// Path is the database file location.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *AuditConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.Path == "" {
		c.Path = "dispatch_audit.db"
	}
}

// Validate checks mandatory fields.
func (c AuditConfig) Validate() error {
	if c.Backend != "sqlite" && c.Backend != "none" {
		return fmt.Errorf("unknown audit backend %s", c.Backend)
	}
	if c.Backend == "sqlite" && c.Path == "" {
		return fmt.Errorf("audit path is required")
	}
	return nil
}
