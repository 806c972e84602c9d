package metrics

import coremetrics "github.com/fleetops/dispatchd/core/metrics"

// MultiSink fans dispatch decisions out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.DecisionSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.DecisionSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAssignment forwards the records to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordAssignment(recs []coremetrics.AssignmentRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordAssignment(recs); err != nil {
			return err
		}
	}
	return nil
}

// RecordEscalation forwards escalation events.
func (m *MultiSink) RecordEscalation(rec coremetrics.EscalationRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(coremetrics.EscalationRecorder); ok {
			if err := r.RecordEscalation(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordPenalty forwards penalty assessments.
func (m *MultiSink) RecordPenalty(rec coremetrics.PenaltyRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(coremetrics.PenaltyRecorder); ok {
			if err := r.RecordPenalty(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordBatch forwards batch summaries.
func (m *MultiSink) RecordBatch(rec coremetrics.BatchRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(coremetrics.BatchRecorder); ok {
			if err := r.RecordBatch(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordCycle forwards cycle summaries.
func (m *MultiSink) RecordCycle(rec coremetrics.CycleRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(coremetrics.CycleRecorder); ok {
			if err := r.RecordCycle(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSLAStatus forwards SLA snapshots.
func (m *MultiSink) RecordSLAStatus(recs []coremetrics.SLARecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(coremetrics.SLARecorder); ok {
			if err := r.RecordSLAStatus(recs); err != nil {
				return err
			}
		}
	}
	return nil
}
