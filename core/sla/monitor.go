package sla

import (
	"time"

	"github.com/fleetops/dispatchd/core/model"
)

// Category classifies how close an order is to breaching its SLA budget.
type Category string

const (
	OnTrack  Category = "on_track"
	Warning  Category = "warning"
	Critical Category = "critical"
	Breached Category = "breached"
)

// Risk qualifies the severity attached to a category.
type Risk string

const (
	RiskLow      Risk = "low"
	RiskHigh     Risk = "high"
	RiskCritical Risk = "critical"
	RiskBreached Risk = "breached"
)

// Thresholds of elapsed/budget ratio at which the category changes.
const (
	warningRatio  = 0.75
	criticalRatio = 0.90
)

// Status is the derived, ephemeral SLA evaluation of one order. It is
// recomputed each cycle and never persisted as authoritative state.
type Status struct {
	Category         Category `json:"category"`
	Risk             Risk     `json:"risk"`
	ElapsedMinutes   float64  `json:"elapsed_minutes"`
	RemainingMinutes float64  `json:"remaining_minutes"`
	BudgetMinutes    float64  `json:"budget_minutes"`
	AlertRequired    bool     `json:"alert_required"`
	ActionRequired   bool     `json:"action_required"`
	CanMeetSLA       bool     `json:"can_meet_sla"`
}

// Config holds the SLA budget in minutes per service type.
type Config struct {
	BudgetMinutes  map[model.ServiceType]int `json:"budget_minutes"`
	DefaultMinutes int                       `json:"default_minutes"`
}

// SetDefaults applies the standard budget table.
func (c *Config) SetDefaults() {
	if c.BudgetMinutes == nil {
		c.BudgetMinutes = map[model.ServiceType]int{
			model.ServiceBarq:   60,
			model.ServiceBullet: 240,
		}
	}
	if c.DefaultMinutes <= 0 {
		c.DefaultMinutes = 240
	}
}

// Budget returns the SLA budget for the given service type.
func (c Config) Budget(s model.ServiceType) time.Duration {
	if m, ok := c.BudgetMinutes[s]; ok && m > 0 {
		return time.Duration(m) * time.Minute
	}
	return time.Duration(c.DefaultMinutes) * time.Minute
}

// Monitor computes breach-risk categories for orders. It holds no mutable
// state; Check is a pure function of its inputs.
type Monitor struct {
	cfg Config
}

// NewMonitor creates a Monitor with the provided budget table.
func NewMonitor(cfg Config) Monitor {
	cfg.SetDefaults()
	return Monitor{cfg: cfg}
}

// Budget exposes the effective SLA budget for a service type.
func (m Monitor) Budget(s model.ServiceType) time.Duration { return m.cfg.Budget(s) }

// Check evaluates the order against its SLA budget at the given instant.
// predicted, when non-nil, is a caller-supplied delivery estimate: an
// estimate beyond the budget flips CanMeetSLA even before the ratio
// thresholds trip. A nil estimate is not an error.
func (m Monitor) Check(o model.Order, now time.Time, predicted *time.Time) Status {
	budget := m.cfg.Budget(o.Service)
	elapsed := now.Sub(o.CreatedAt)
	ratio := elapsed.Minutes() / budget.Minutes()

	st := Status{
		Category:         OnTrack,
		Risk:             RiskLow,
		ElapsedMinutes:   elapsed.Minutes(),
		RemainingMinutes: budget.Minutes() - elapsed.Minutes(),
		BudgetMinutes:    budget.Minutes(),
		CanMeetSLA:       true,
	}

	switch {
	case ratio >= 1.0:
		st.Category = Breached
		st.Risk = RiskBreached
		st.ActionRequired = true
		st.CanMeetSLA = false
	case ratio >= criticalRatio:
		st.Category = Critical
		st.Risk = RiskCritical
		st.ActionRequired = true
	case ratio >= warningRatio:
		st.Category = Warning
		st.Risk = RiskHigh
		st.AlertRequired = true
		st.ActionRequired = true
	}

	if predicted != nil && predicted.After(o.CreatedAt.Add(budget)) {
		st.CanMeetSLA = false
	}
	return st
}
