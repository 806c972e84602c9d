// Package audit provides an append-only log of dispatch decisions for
// after-the-fact review.
package audit

import (
	"context"
	"time"
)

// Record captures one dispatch decision: a reassignment, an escalation, a
// penalty assessment or a batch build.
type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	OrderID   string         `json:"order_id"`
	DriverID  string         `json:"driver_id,omitempty"`
	Service   string         `json:"service"`
	Outcome   string         `json:"outcome"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// Actions recorded in the audit log.
const (
	ActionReassignment = "reassignment"
	ActionEscalation   = "escalation"
	ActionPenalty      = "penalty"
	ActionBatch        = "batch"
)

// Query defines filters for retrieving records.
type Query struct {
	Start   time.Time
	End     time.Time
	OrderID string
	Action  string
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards all records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
