package audit

import (
	"context"
	"testing"
	"time"
)

func TestSQLiteStore_PersistQuery(t *testing.T) {
	store, err := NewSQLiteStore("file:audit_test.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	rec := Record{
		Timestamp: time.Now(),
		Action:    ActionReassignment,
		OrderID:   "o1",
		DriverID:  "d2",
		Service:   "BARQ",
		Outcome:   "assigned",
		Detail:    map[string]any{"attempt": 1},
	}
	if err := store.Append(context.Background(), rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	out, err := store.Query(context.Background(), Query{OrderID: "o1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	if out[0].Action != ActionReassignment || out[0].DriverID != "d2" {
		t.Fatalf("record round-trip mismatch: %+v", out[0])
	}
}

func TestSQLiteStore_FiltersByActionAndWindow(t *testing.T) {
	store, err := NewSQLiteStore("file:audit_filter.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()

	base := time.Now().Add(-time.Hour)
	recs := []Record{
		{Timestamp: base, Action: ActionReassignment, OrderID: "o1"},
		{Timestamp: base.Add(10 * time.Minute), Action: ActionEscalation, OrderID: "o1"},
		{Timestamp: base.Add(20 * time.Minute), Action: ActionPenalty, OrderID: "o2"},
	}
	for _, r := range recs {
		if err := store.Append(context.Background(), r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	out, err := store.Query(context.Background(), Query{Action: ActionEscalation})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 || out[0].OrderID != "o1" {
		t.Fatalf("expected the escalation record, got %+v", out)
	}

	out, err = store.Query(context.Background(), Query{Start: base.Add(15 * time.Minute)})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 || out[0].Action != ActionPenalty {
		t.Fatalf("expected the penalty record, got %+v", out)
	}
}
