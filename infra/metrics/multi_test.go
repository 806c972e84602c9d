package metrics

import (
	"testing"

	coremetrics "github.com/fleetops/dispatchd/core/metrics"
)

// TestMultiSink ensures decisions are forwarded to all sinks.

type recordSink struct {
	count int
}

func (r *recordSink) RecordAssignment([]coremetrics.AssignmentRecord) error {
	r.count++
	return nil
}

func (r *recordSink) RecordPenalty(coremetrics.PenaltyRecord) error {
	r.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordAssignment(nil); err != nil {
		t.Fatalf("record assignment: %v", err)
	}
	if err := m.RecordPenalty(coremetrics.PenaltyRecord{}); err != nil {
		t.Fatalf("record penalty: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("decisions not forwarded")
	}
}

func TestMultiSink_SkipsUnsupportedRecorders(t *testing.T) {
	s := &recordSink{}
	m := NewMultiSink(s)
	// recordSink does not implement BatchRecorder; the fan-out skips it.
	if err := m.RecordBatch(coremetrics.BatchRecord{}); err != nil {
		t.Fatalf("record batch: %v", err)
	}
	if s.count != 0 {
		t.Fatalf("unsupported recorder must be skipped")
	}
}
