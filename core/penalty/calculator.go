package penalty

import (
	"time"

	"github.com/fleetops/dispatchd/core/model"
	"github.com/fleetops/dispatchd/core/sla"
)

// Rule holds the financial parameters for one service type.
type Rule struct {
	RatePerMinute float64 `json:"rate_per_minute"`
	Floor         float64 `json:"floor"`
	Cap           float64 `json:"cap"`
}

// Config maps service types to penalty rules.
type Config struct {
	Rules   map[model.ServiceType]Rule `json:"rules"`
	Default Rule                       `json:"default"`
}

// SetDefaults applies the standard rate table.
func (c *Config) SetDefaults() {
	if c.Rules == nil {
		c.Rules = map[model.ServiceType]Rule{
			model.ServiceBarq:   {RatePerMinute: 10, Floor: 20, Cap: 200},
			model.ServiceBullet: {RatePerMinute: 5, Floor: 20, Cap: 200},
		}
	}
	if c.Default == (Rule{}) {
		c.Default = Rule{RatePerMinute: 5, Floor: 20, Cap: 200}
	}
}

// Rule returns the penalty rule for the given service type.
func (c Config) Rule(s model.ServiceType) Rule {
	if r, ok := c.Rules[s]; ok {
		return r
	}
	return c.Default
}

// Record is the immutable penalty outcome for one delivered order.
// Recomputing with the same inputs yields the same record.
type Record struct {
	OrderID       string            `json:"order_id"`
	Service       model.ServiceType `json:"service_type"`
	Breached      bool              `json:"breached"`
	BreachMinutes float64           `json:"breach_minutes"`
	RawAmount     float64           `json:"raw_amount"`
	Amount        float64           `json:"amount"`
	// Preventable marks breaches where the system never attempted a
	// reassignment before the budget ran out.
	Preventable bool      `json:"preventable"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// Calculator computes SLA breach penalties.
type Calculator struct {
	budgets sla.Config
	rules   Config
}

// NewCalculator creates a Calculator with the provided budget and rate
// tables.
func NewCalculator(budgets sla.Config, rules Config) Calculator {
	budgets.SetDefaults()
	rules.SetDefaults()
	return Calculator{budgets: budgets, rules: rules}
}

// Calculate derives the penalty for a delivered order. Orders delivered
// within budget produce a non-breached record with zero amount.
func (c Calculator) Calculate(o model.Order, deliveredAt time.Time) Record {
	budget := c.budgets.Budget(o.Service)
	breach := deliveredAt.Sub(o.CreatedAt) - budget

	rec := Record{
		OrderID:     o.ID,
		Service:     o.Service,
		DeliveredAt: deliveredAt,
	}
	if breach <= 0 {
		return rec
	}

	rule := c.rules.Rule(o.Service)
	rec.Breached = true
	rec.BreachMinutes = breach.Minutes()
	rec.RawAmount = rec.BreachMinutes * rule.RatePerMinute
	rec.Amount = clamp(rec.RawAmount, rule.Floor, rule.Cap)
	rec.Preventable = o.ReassignmentCount == 0

	penaltiesTotal.WithLabelValues(o.Service.String()).Inc()
	penaltyAmount.WithLabelValues(o.Service.String()).Observe(rec.Amount)
	return rec
}

func clamp(v, floor, cap float64) float64 {
	if v < floor {
		return floor
	}
	if v > cap {
		return cap
	}
	return v
}
