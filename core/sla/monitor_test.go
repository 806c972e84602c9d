package sla

import (
	"testing"
	"time"

	"github.com/fleetops/dispatchd/core/model"
)

func barqOrder(age time.Duration, now time.Time) model.Order {
	return model.Order{
		ID:        "o1",
		Service:   model.ServiceBarq,
		CreatedAt: now.Add(-age),
		Status:    model.StatusAssigned,
	}
}

func TestMonitor_Categories(t *testing.T) {
	m := NewMonitor(Config{})
	now := time.Now()

	cases := []struct {
		name string
		age  time.Duration
		want Category
		risk Risk
	}{
		{"on_track", 30 * time.Minute, OnTrack, RiskLow},
		{"warning", 45 * time.Minute, Warning, RiskHigh},
		{"critical", 55 * time.Minute, Critical, RiskCritical},
		{"breached", 65 * time.Minute, Breached, RiskBreached},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := m.Check(barqOrder(tc.age, now), now, nil)
			if st.Category != tc.want {
				t.Fatalf("expected %s got %s", tc.want, st.Category)
			}
			if st.Risk != tc.risk {
				t.Fatalf("expected risk %s got %s", tc.risk, st.Risk)
			}
		})
	}
}

func TestMonitor_WarningFlags(t *testing.T) {
	m := NewMonitor(Config{})
	now := time.Now()
	st := m.Check(barqOrder(45*time.Minute, now), now, nil)
	if !st.AlertRequired || !st.ActionRequired {
		t.Fatalf("warning must set alert and action flags: %+v", st)
	}
	if !st.CanMeetSLA {
		t.Fatalf("warning without estimate should still be achievable")
	}
}

func TestMonitor_BreachedCannotMeet(t *testing.T) {
	m := NewMonitor(Config{})
	now := time.Now()
	st := m.Check(barqOrder(65*time.Minute, now), now, nil)
	if st.CanMeetSLA {
		t.Fatalf("breached order cannot meet SLA")
	}
	if st.RemainingMinutes >= 0 {
		t.Fatalf("remaining minutes should be negative, got %f", st.RemainingMinutes)
	}
}

func TestMonitor_PredictedEstimateFlipsEarly(t *testing.T) {
	m := NewMonitor(Config{})
	now := time.Now()
	o := barqOrder(20*time.Minute, now)

	late := now.Add(50 * time.Minute) // past the 60 minute budget
	st := m.Check(o, now, &late)
	if st.Category != OnTrack {
		t.Fatalf("ratio is below warning threshold, got %s", st.Category)
	}
	if st.CanMeetSLA {
		t.Fatalf("late estimate must flip CanMeetSLA proactively")
	}

	onTime := now.Add(30 * time.Minute)
	if st := m.Check(o, now, &onTime); !st.CanMeetSLA {
		t.Fatalf("on-time estimate should keep SLA achievable")
	}
}

func TestMonitor_Pure(t *testing.T) {
	m := NewMonitor(Config{})
	now := time.Unix(1_700_000_000, 0)
	o := barqOrder(48*time.Minute, now)
	a := m.Check(o, now, nil)
	b := m.Check(o, now, nil)
	if a != b {
		t.Fatalf("identical inputs must yield identical status: %+v vs %+v", a, b)
	}
}

func TestMonitor_StandardBudget(t *testing.T) {
	m := NewMonitor(Config{})
	now := time.Now()
	o := model.Order{ID: "o2", Service: model.ServiceBullet, CreatedAt: now.Add(-100 * time.Minute)}
	st := m.Check(o, now, nil)
	if st.Category != OnTrack {
		t.Fatalf("100/240 minutes should be on track, got %s", st.Category)
	}
	if st.BudgetMinutes != 240 {
		t.Fatalf("expected 240 minute budget got %f", st.BudgetMinutes)
	}
}

func TestMonitor_UnknownServiceUsesDefault(t *testing.T) {
	m := NewMonitor(Config{})
	if m.Budget("FREIGHT") != 240*time.Minute {
		t.Fatalf("unknown service should fall back to default budget")
	}
}
