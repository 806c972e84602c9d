package orchestrator

import (
	"time"

	"github.com/fleetops/dispatchd/core/model"
)

// EventType identifies the dispatch events the orchestrator reacts to and
// publishes.
type EventType string

const (
	// EventOrderCreated fires when a new order enters the system.
	EventOrderCreated EventType = "order_created"
	// EventDriverCancelled fires when a driver drops an assigned order.
	EventDriverCancelled EventType = "driver_cancelled"
	// EventOrderDelivered fires when an order reaches its customer.
	EventOrderDelivered EventType = "order_delivered"
	// EventSLABreached is published when a monitored order crosses its
	// budget.
	EventSLABreached EventType = "sla_breached"
	// EventReassigned is published after a successful driver swap.
	EventReassigned EventType = "reassigned"
	// EventEscalated is published when a new escalation opens.
	EventEscalated EventType = "escalated"
)

// Event is one dispatch occurrence on the bus.
type Event struct {
	Type     EventType   `json:"type"`
	Order    model.Order `json:"order"`
	DriverID string      `json:"driver_id,omitempty"`
	Detail   string      `json:"detail,omitempty"`
	Time     time.Time   `json:"time"`
}
