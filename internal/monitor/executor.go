package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/tekuonline/uptivalab/internal/metrics"
	"github.com/tekuonline/uptivalab/internal/models"
)

// DefaultConcurrency is the number of checks run at once when unset
const DefaultConcurrency = 2

// MonitorSource loads monitors and continuity records
type MonitorSource interface {
	Get(ctx context.Context, id int) (*models.Monitor, error)
	GetContinuity(ctx context.Context, monitorID int) (*models.Continuity, error)
}

// ResultSink receives every check result, real or synthesized
type ResultSink interface {
	Process(ctx context.Context, result *models.CheckResult, identity *models.MonitorIdentity) error
}

// RuntimeGate makes sure the browser runtime exists before synthetic checks
type RuntimeGate interface {
	Ensure(ctx context.Context) error
}

// ExecutionError means a check could not be executed at all
type ExecutionError struct {
	MonitorID int
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("monitor %d: %v", e.MonitorID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ExecutorOptions configures an Executor
type ExecutorOptions struct {
	Monitors    MonitorSource
	Enricher    *Enricher
	Checker     Checker
	Gate        RuntimeGate
	Results     ResultSink
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	Concurrency int
}

// Executor runs fired check jobs with at most Concurrency checks in flight
type Executor struct {
	monitors MonitorSource
	enricher *Enricher
	checker  Checker
	gate     RuntimeGate
	results  ResultSink
	metrics  *metrics.Metrics
	logger   *zap.Logger
	sem      *semaphore.Weighted
	limit    int
}

// NewExecutor creates a new check executor
func NewExecutor(opts ExecutorOptions) *Executor {
	limit := opts.Concurrency
	if limit < 1 {
		limit = DefaultConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	enricher := opts.Enricher
	if enricher == nil {
		enricher = NewEnricher(nil, logger)
	}

	return &Executor{
		monitors: opts.Monitors,
		enricher: enricher,
		checker:  opts.Checker,
		gate:     opts.Gate,
		results:  opts.Results,
		metrics:  opts.Metrics,
		logger:   logger,
		sem:      semaphore.NewWeighted(int64(limit)),
		limit:    limit,
	}
}

// Concurrency returns the configured cap
func (e *Executor) Concurrency() int {
	return e.limit
}

// Execute runs one fired job. A monitor deleted since scheduling is
// skipped with a nil error. Any other failure to produce a result is
// returned as *ExecutionError.
func (e *Executor) Execute(ctx context.Context, job models.CheckJob) error {
	result, identity, err := e.check(ctx, job)
	if err != nil {
		return &ExecutionError{MonitorID: job.MonitorID, Err: err}
	}
	if result == nil {
		return nil
	}

	e.logger.Info("check completed",
		zap.Int("monitor_id", identity.ID),
		zap.String("monitor", identity.Name),
		zap.String("status", string(result.Status)),
		zap.String("message", result.Message))

	if err := e.results.Process(ctx, result, identity); err != nil {
		e.logger.Debug("result dropped by pipeline", zap.Int("monitor_id", identity.ID), zap.Error(err))
	}
	return nil
}

// check holds an execution slot only while the probe runs
func (e *Executor) check(ctx context.Context, job models.CheckJob) (*models.CheckResult, *models.MonitorIdentity, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, fmt.Errorf("acquire execution slot: %w", err)
	}
	defer e.sem.Release(1)

	e.metrics.InFlight(1)
	defer e.metrics.InFlight(-1)

	m, err := e.monitors.Get(ctx, job.MonitorID)
	if err != nil {
		return nil, nil, fmt.Errorf("load monitor: %w", err)
	}
	if m == nil {
		e.logger.Debug("monitor no longer exists, skipping", zap.Int("monitor_id", job.MonitorID))
		return nil, nil, nil
	}

	var continuity *models.Continuity
	if m.Kind == models.KindPush {
		continuity, err = e.monitors.GetContinuity(ctx, m.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("load continuity: %w", err)
		}
	}

	cfg, err := e.enricher.Enrich(ctx, m, continuity)
	if err != nil {
		return nil, nil, fmt.Errorf("build config: %w", err)
	}

	if m.Kind == models.KindSynthetic && e.gate != nil {
		if err := e.gate.Ensure(ctx); err != nil {
			return nil, nil, fmt.Errorf("browser runtime: %w", err)
		}
	}

	req := &CheckRequest{
		ID:       m.ID,
		Name:     m.Name,
		Kind:     m.Kind,
		Interval: m.IntervalDuration(),
		Timeout:  m.TimeoutDuration(),
		Config:   cfg,
	}

	start := time.Now()
	result, err := e.checker.Check(ctx, req)
	e.metrics.ObserveDuration(string(m.Kind), time.Since(start).Seconds())
	if err != nil {
		return nil, nil, err
	}
	if result == nil {
		return nil, nil, errors.New("check returned no result")
	}

	result.MonitorID = m.ID
	if result.CheckedAt.IsZero() {
		result.CheckedAt = time.Now().UTC()
	}
	e.metrics.ObserveResult(string(m.Kind), string(result.Status))

	identity := m.Identity()
	return result, &identity, nil
}
