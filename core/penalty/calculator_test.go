package penalty

import (
	"testing"
	"time"

	"github.com/fleetops/dispatchd/core/model"
	"github.com/fleetops/dispatchd/core/sla"
)

func deliveredBarq(created time.Time, attempts int) model.Order {
	return model.Order{
		ID:                "o1",
		Service:           model.ServiceBarq,
		CreatedAt:         created,
		Status:            model.StatusDelivered,
		ReassignmentCount: attempts,
	}
}

func TestCalculate_TenMinuteBreach(t *testing.T) {
	c := NewCalculator(sla.Config{}, Config{})
	created := time.Now().Add(-70 * time.Minute)
	rec := c.Calculate(deliveredBarq(created, 0), created.Add(70*time.Minute))
	if !rec.Breached {
		t.Fatalf("70 minutes against a 60 minute budget must breach")
	}
	if rec.BreachMinutes < 9.99 || rec.BreachMinutes > 10.01 {
		t.Fatalf("expected 10 breach minutes got %f", rec.BreachMinutes)
	}
	if rec.RawAmount != rec.BreachMinutes*10 {
		t.Fatalf("expected raw amount %f got %f", rec.BreachMinutes*10, rec.RawAmount)
	}
	if rec.Amount != rec.RawAmount {
		t.Fatalf("100 is inside floor/cap, expected no clamping")
	}
}

func TestCalculate_FloorApplied(t *testing.T) {
	c := NewCalculator(sla.Config{}, Config{})
	created := time.Now().Add(-61 * time.Minute)
	rec := c.Calculate(deliveredBarq(created, 0), created.Add(61*time.Minute))
	if rec.Amount != 20 {
		t.Fatalf("1 minute breach must be floored at 20, got %f", rec.Amount)
	}
	if rec.RawAmount >= 20 {
		t.Fatalf("raw amount should be below the floor, got %f", rec.RawAmount)
	}
}

func TestCalculate_CapApplied(t *testing.T) {
	c := NewCalculator(sla.Config{}, Config{})
	created := time.Now().Add(-100 * time.Minute)
	rec := c.Calculate(deliveredBarq(created, 1), created.Add(100*time.Minute))
	if rec.RawAmount < 399.9 || rec.RawAmount > 400.1 {
		t.Fatalf("expected raw 400 got %f", rec.RawAmount)
	}
	if rec.Amount != 200 {
		t.Fatalf("40 minute breach must be capped at 200, got %f", rec.Amount)
	}
}

func TestCalculate_NoBreach(t *testing.T) {
	c := NewCalculator(sla.Config{}, Config{})
	created := time.Now().Add(-30 * time.Minute)
	rec := c.Calculate(deliveredBarq(created, 0), created.Add(30*time.Minute))
	if rec.Breached || rec.Amount != 0 || rec.BreachMinutes != 0 {
		t.Fatalf("on-time delivery must not produce a penalty: %+v", rec)
	}
}

func TestCalculate_PreventableFlag(t *testing.T) {
	c := NewCalculator(sla.Config{}, Config{})
	created := time.Now().Add(-80 * time.Minute)
	delivered := created.Add(80 * time.Minute)

	if rec := c.Calculate(deliveredBarq(created, 0), delivered); !rec.Preventable {
		t.Fatalf("breach with zero attempts is preventable")
	}
	if rec := c.Calculate(deliveredBarq(created, 2), delivered); rec.Preventable {
		t.Fatalf("breach after reassignment attempts is not preventable")
	}
}

func TestCalculate_Idempotent(t *testing.T) {
	c := NewCalculator(sla.Config{}, Config{})
	created := time.Unix(1_700_000_000, 0)
	delivered := created.Add(75 * time.Minute)
	o := deliveredBarq(created, 1)
	a := c.Calculate(o, delivered)
	b := c.Calculate(o, delivered)
	if a != b {
		t.Fatalf("same inputs must yield the same record: %+v vs %+v", a, b)
	}
}

func TestCalculate_StandardRate(t *testing.T) {
	c := NewCalculator(sla.Config{}, Config{})
	created := time.Now().Add(-250 * time.Minute)
	o := model.Order{ID: "o2", Service: model.ServiceBullet, CreatedAt: created, ReassignmentCount: 0}
	rec := c.Calculate(o, created.Add(250*time.Minute))
	if rec.RawAmount < 49.9 || rec.RawAmount > 50.1 {
		t.Fatalf("10 minutes at 5/minute should be 50, got %f", rec.RawAmount)
	}
}
