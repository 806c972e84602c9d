package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fleetops/dispatchd/config"
	"github.com/fleetops/dispatchd/core/advisory"
	"github.com/fleetops/dispatchd/core/assign"
	"github.com/fleetops/dispatchd/core/audit"
	"github.com/fleetops/dispatchd/core/batch"
	"github.com/fleetops/dispatchd/core/escalation"
	"github.com/fleetops/dispatchd/core/fleet"
	coremetrics "github.com/fleetops/dispatchd/core/metrics"
	"github.com/fleetops/dispatchd/core/monitor"
	corenotify "github.com/fleetops/dispatchd/core/notify"
	"github.com/fleetops/dispatchd/core/orchestrator"
	"github.com/fleetops/dispatchd/core/orders"
	"github.com/fleetops/dispatchd/core/penalty"
	"github.com/fleetops/dispatchd/core/sla"
	"github.com/fleetops/dispatchd/infra/logger"
	"github.com/fleetops/dispatchd/infra/metrics"
	"github.com/fleetops/dispatchd/infra/notify"
	"github.com/fleetops/dispatchd/infra/store"
	"github.com/fleetops/dispatchd/internal/eventbus"
)

// Service wires the dispatch pipeline: the SLA monitoring loop, the batch
// planner and the stores they read.
type Service struct {
	Orchestrator *orchestrator.Orchestrator
	Runner       *monitor.Runner
	Batcher      *batch.Engine
	Orders       orders.Store
	Fleet        fleet.Store

	cfg      *config.Config
	bus      *eventbus.Bus[orchestrator.Event]
	sink     coremetrics.DecisionSink
	auditLog audit.Store
	notifier corenotify.Notifier
	rdb      *redis.Client
	log      logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var sinks []coremetrics.DecisionSink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.DecisionSink
	switch len(sinks) {
	case 0:
		sink = coremetrics.NopSink{}
	case 1:
		sink = sinks[0]
	default:
		sink = metrics.NewMultiSink(sinks...)
	}

	auditLog, err := newAuditStore(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}

	var notifier corenotify.Notifier = corenotify.NopNotifier{}
	if cfg.Notify.Broker != "" {
		n, err := notify.NewMQTTNotifier(cfg.Notify)
		if err != nil {
			return nil, fmt.Errorf("mqtt notifier: %w", err)
		}
		notifier = n
	}

	var (
		rdb        *redis.Client
		counters   assign.CounterStore
		batchStore batch.Store
	)
	if cfg.Redis.Enabled {
		rdb, err = store.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis client: %w", err)
		}
		counters, err = store.NewRedisCounterStore(rdb, cfg.Redis.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("redis counters: %w", err)
		}
		batchStore, err = store.NewRedisBatchStore(rdb, cfg.Redis.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("redis batch store: %w", err)
		}
	} else {
		counters = assign.NewMemoryCounters()
		batchStore = batch.NewMemoryStore()
	}

	orderStore := orders.NewMemoryStore()
	fleetStore := fleet.NewMemoryStore()
	slaMonitor := sla.NewMonitor(cfg.SLA)

	// The orchestrator writes the reassignment audit trail; a second
	// attempt log here would duplicate every record.
	reassigner, err := assign.NewReassigner(cfg.Assign, counters, orderStore, notifier, nil, logger.New("assign"))
	if err != nil {
		return nil, fmt.Errorf("reassigner: %w", err)
	}
	escalator, err := escalation.NewEngine(escalation.NewMemoryStore(), notifier, logger.New("escalation"))
	if err != nil {
		return nil, fmt.Errorf("escalation engine: %w", err)
	}
	batcher, err := batch.NewEngine(cfg.Batch, cfg.SLA, batchStore, logger.New("batch"))
	if err != nil {
		return nil, fmt.Errorf("batch engine: %w", err)
	}

	bus := eventbus.New[orchestrator.Event]()
	orch, err := orchestrator.New(
		slaMonitor,
		reassigner,
		escalator,
		penalty.NewCalculator(cfg.SLA, cfg.Penalty),
		fleetStore,
		orderStore,
		advisory.NewRuleBased(),
		sink,
		auditLog,
		bus,
		logg,
	)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	runner, err := monitor.NewRunner(cfg.Monitor, orderStore, orch, sink, logger.New("monitor"))
	if err != nil {
		return nil, fmt.Errorf("monitor runner: %w", err)
	}

	return &Service{
		Orchestrator: orch,
		Runner:       runner,
		Batcher:      batcher,
		Orders:       orderStore,
		Fleet:        fleetStore,
		cfg:          cfg,
		bus:          bus,
		sink:         sink,
		auditLog:     auditLog,
		notifier:     notifier,
		rdb:          rdb,
		log:          logg,
	}, nil
}

// Run starts the monitoring and batch planning loops and blocks until the
// context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.Runner.Start(ctx)
	go s.planLoop(ctx)
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			addr := fmt.Sprintf(":%d", s.cfg.Metrics.PrometheusPort)
			if err := metrics.StartPromServer(ctx, addr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	<-ctx.Done()
	return nil
}

// planLoop periodically rebuilds batches from pending orders.
func (s *Service) planLoop(ctx context.Context) {
	interval := time.Duration(s.cfg.Batch.PlanIntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.PlanBatches(ctx); err != nil {
				s.log.Errorf("batch planning: %v", err)
			}
		}
	}
}

// PlanBatches runs one batch planning pass over the pending orders and
// records the built batches.
func (s *Service) PlanBatches(ctx context.Context) error {
	pending, err := s.Orders.PendingOrders(ctx)
	if err != nil {
		return fmt.Errorf("list pending orders: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}
	res, err := s.Batcher.Plan(ctx, pending)
	if err != nil {
		return err
	}
	rec, ok := s.sink.(coremetrics.BatchRecorder)
	for _, b := range res.Batches {
		if ok {
			method, _ := batch.ParseMethod(s.cfg.Batch.Rule(b.Service).Method)
			_ = rec.RecordBatch(coremetrics.BatchRecord{
				BatchID:    b.ID,
				Service:    b.Service,
				Strategy:   method.String(),
				Size:       b.Size(),
				RadiusKm:   b.RadiusKm,
				Quality:    b.Quality,
				Efficiency: b.Efficiency,
				Time:       b.CreatedAt,
			})
		}
		if err := s.auditLog.Append(ctx, audit.Record{
			Timestamp: b.CreatedAt,
			Action:    audit.ActionBatch,
			Service:   string(b.Service),
			Outcome:   "planned",
			Detail: map[string]any{
				"batch_id":   b.ID,
				"size":       b.Size(),
				"efficiency": b.Efficiency,
			},
		}); err != nil {
			s.log.Errorf("audit batch %s: %v", b.ID, err)
		}
	}
	s.log.Infof("batch plan: %d batches, %d unbatchable", len(res.Batches), len(res.Unbatchable))
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if c, ok := s.notifier.(interface{ Close() }); ok {
		c.Close()
	}
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			return err
		}
	}
	return s.auditLog.Close()
}

// newAuditStore builds the configured audit backend.
func newAuditStore(cfg config.AuditConfig) (audit.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return audit.NewSQLiteStore(cfg.Path)
	default:
		return audit.NopStore{}, nil
	}
}
