package metrics

import (
	"time"

	"github.com/fleetops/dispatchd/core/model"
)

// AssignmentRecord represents an assignment or reassignment decision to be
// recorded.
type AssignmentRecord struct {
	OrderID      string
	DriverID     string
	PrevDriverID string
	Service      model.ServiceType
	Score        float64
	Attempt      int
	Reason       string
	Time         time.Time
}

// DecisionSink records dispatch decisions for observability purposes.
type DecisionSink interface {
	RecordAssignment(recs []AssignmentRecord) error
}

// EscalationRecord captures a triggered or resolved escalation.
type EscalationRecord struct {
	OrderID  string
	Reason   string
	Level    string
	Service  model.ServiceType
	Resolved bool
	Time     time.Time
}

// EscalationRecorder records escalation events.
type EscalationRecorder interface {
	RecordEscalation(rec EscalationRecord) error
}

// PenaltyRecord captures a computed SLA penalty.
type PenaltyRecord struct {
	OrderID       string
	Service       model.ServiceType
	BreachMinutes float64
	Amount        float64
	Preventable   bool
	Time          time.Time
}

// PenaltyRecorder records penalty assessments.
type PenaltyRecorder interface {
	RecordPenalty(rec PenaltyRecord) error
}

// BatchRecord captures a built batch.
type BatchRecord struct {
	BatchID    string
	Service    model.ServiceType
	Strategy   string
	Size       int
	RadiusKm   float64
	Quality    float64
	Efficiency float64
	Time       time.Time
}

// BatchRecorder records batch optimization outcomes.
type BatchRecorder interface {
	RecordBatch(rec BatchRecord) error
}

// CycleRecord summarizes one monitoring cycle.
type CycleRecord struct {
	Checked   int
	Warnings  int
	Critical  int
	Breached  int
	Escalated int
	Duration  time.Duration
	Time      time.Time
}

// CycleRecorder records monitoring cycle summaries.
type CycleRecorder interface {
	RecordCycle(rec CycleRecord) error
}

// SLARecord is a per-order SLA status snapshot.
type SLARecord struct {
	OrderID          string
	Service          model.ServiceType
	Category         string
	RemainingMinutes float64
	Time             time.Time
}

// SLARecorder records SLA status snapshots.
type SLARecorder interface {
	RecordSLAStatus(recs []SLARecord) error
}

// NopSink implements DecisionSink and every optional recorder with no-op
// methods.
type NopSink struct{}

func (NopSink) RecordAssignment([]AssignmentRecord) error { return nil }
func (NopSink) RecordEscalation(EscalationRecord) error   { return nil }
func (NopSink) RecordPenalty(PenaltyRecord) error         { return nil }
func (NopSink) RecordBatch(BatchRecord) error             { return nil }
func (NopSink) RecordCycle(CycleRecord) error             { return nil }
func (NopSink) RecordSLAStatus([]SLARecord) error         { return nil }
