package notify

import (
	"context"
	"sync"
	"time"
)

// Kind identifies the notification channel semantics.
type Kind string

const (
	DriverRemoved   Kind = "driver_removed"
	DriverAssigned  Kind = "driver_assigned"
	CustomerUpdate  Kind = "customer_update"
	EscalationAlert Kind = "escalation_alert"
)

// Notification is a fire-and-forget message to the notification
// collaborator. Receivers tolerate at-least-once delivery.
type Notification struct {
	Kind     Kind      `json:"kind"`
	OrderID  string    `json:"order_id"`
	DriverID string    `json:"driver_id,omitempty"`
	Level    string    `json:"level,omitempty"`
	Message  string    `json:"message,omitempty"`
	Time     time.Time `json:"time"`
}

// Notifier delivers notifications. Implementations must respect the context
// deadline; the core never depends on delivery succeeding for correctness.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NopNotifier drops all notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) error { return nil }

// MockNotifier records notifications for tests.
type MockNotifier struct {
	mu   sync.Mutex
	Sent []Notification
	Err  error
}

// Notify appends the notification or returns the configured error.
func (m *MockNotifier) Notify(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, n)
	return nil
}

// ByKind returns the recorded notifications of the given kind.
func (m *MockNotifier) ByKind(k Kind) []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.Sent {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}
