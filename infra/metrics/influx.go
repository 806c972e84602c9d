package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/fleetops/dispatchd/core/metrics"
	"github.com/fleetops/dispatchd/infra/logger"
)

// InfluxSink writes dispatch decisions to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB
// endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns
// a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.DecisionSink {
	sink := NewInfluxSink(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordAssignment writes assignment decisions as line protocol events.
func (s *InfluxSink) RecordAssignment(recs []coremetrics.AssignmentRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range recs {
		p := write.NewPointWithMeasurement("assignment_decision").
			AddTag("order_id", r.OrderID).
			AddTag("driver_id", r.DriverID).
			AddTag("service_type", r.Service.String()).
			AddTag("component", "reassignment").
			AddField("score", round3(r.Score)).
			AddField("attempt", r.Attempt).
			AddField("prev_driver", r.PrevDriverID).
			AddField("reason", r.Reason).
			SetTime(r.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordEscalation persists an escalation event.
func (s *InfluxSink) RecordEscalation(rec coremetrics.EscalationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("escalation_event").
		AddTag("order_id", rec.OrderID).
		AddTag("reason", rec.Reason).
		AddTag("level", rec.Level).
		AddTag("service_type", rec.Service.String()).
		AddTag("component", "escalation").
		AddField("resolved", rec.Resolved).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPenalty persists a penalty assessment.
func (s *InfluxSink) RecordPenalty(rec coremetrics.PenaltyRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("penalty_assessed").
		AddTag("order_id", rec.OrderID).
		AddTag("service_type", rec.Service.String()).
		AddTag("preventable", strconv.FormatBool(rec.Preventable)).
		AddTag("component", "penalty").
		AddField("breach_minutes", round3(rec.BreachMinutes)).
		AddField("amount", round3(rec.Amount)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordBatch persists a built batch summary.
func (s *InfluxSink) RecordBatch(rec coremetrics.BatchRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("batch_built").
		AddTag("batch_id", rec.BatchID).
		AddTag("service_type", rec.Service.String()).
		AddTag("strategy", rec.Strategy).
		AddTag("component", "batch").
		AddField("size", rec.Size).
		AddField("radius_km", round3(rec.RadiusKm)).
		AddField("quality", round3(rec.Quality)).
		AddField("efficiency", round3(rec.Efficiency)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCycle persists a monitoring cycle summary.
func (s *InfluxSink) RecordCycle(rec coremetrics.CycleRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("monitor_cycle").
		AddTag("component", "monitor").
		AddField("checked", rec.Checked).
		AddField("warnings", rec.Warnings).
		AddField("critical", rec.Critical).
		AddField("breached", rec.Breached).
		AddField("escalated", rec.Escalated).
		AddField("duration_ms", round3(rec.Duration.Seconds()*1000)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSLAStatus persists per-order SLA snapshots.
func (s *InfluxSink) RecordSLAStatus(recs []coremetrics.SLARecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range recs {
		p := write.NewPointWithMeasurement("sla_status").
			AddTag("order_id", r.OrderID).
			AddTag("service_type", r.Service.String()).
			AddTag("category", r.Category).
			AddTag("component", "sla_monitor").
			AddField("remaining_minutes", round3(r.RemainingMinutes)).
			SetTime(r.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
