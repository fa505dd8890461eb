package monitor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/tekuonline/uptivalab/internal/metrics"
	"github.com/tekuonline/uptivalab/internal/models"
)

// JobExecutor runs a single fired job
type JobExecutor interface {
	Execute(ctx context.Context, job models.CheckJob) error
}

// IdentitySource loads a monitor for attribution
type IdentitySource interface {
	Get(ctx context.Context, id int) (*models.Monitor, error)
}

// FailureSynthesizer wraps an executor so that a failed execution still
// produces a down result in history, incidents and notifications.
type FailureSynthesizer struct {
	executor JobExecutor
	monitors IdentitySource
	results  ResultSink
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewFailureSynthesizer creates a new failure synthesizer
func NewFailureSynthesizer(executor JobExecutor, monitors IdentitySource, results ResultSink, m *metrics.Metrics, logger *zap.Logger) *FailureSynthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FailureSynthesizer{
		executor: executor,
		monitors: monitors,
		results:  results,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle executes job and synthesizes a down result if execution fails.
// It never panics and never returns an error; it is the worker boundary.
func (s *FailureSynthesizer) Handle(ctx context.Context, job models.CheckJob) {
	err := s.execute(ctx, job)
	if err == nil {
		return
	}

	s.logger.Warn("check execution failed",
		zap.Int("monitor_id", job.MonitorID),
		zap.String("job_key", job.Key),
		zap.Error(err))

	// Attribution needs a live context even if the trigger was cancelled
	attrCtx := context.WithoutCancel(ctx)
	m, lookupErr := s.monitors.Get(attrCtx, job.MonitorID)
	if lookupErr != nil || m == nil {
		s.logger.Error("cannot attribute failed execution, no result recorded",
			zap.Int("monitor_id", job.MonitorID),
			zap.Error(lookupErr))
		return
	}

	result := &models.CheckResult{
		MonitorID: m.ID,
		Status:    models.StatusDown,
		Message:   failureMessage(err),
		CheckedAt: s.now().UTC(),
	}
	result.SetMeta(models.MetaSynthesized, true)
	s.metrics.Synthesized()

	identity := m.Identity()
	if err := s.results.Process(attrCtx, result, &identity); err != nil {
		s.logger.Debug("synthesized result dropped by pipeline", zap.Int("monitor_id", m.ID), zap.Error(err))
	}
}

func (s *FailureSynthesizer) execute(ctx context.Context, job models.CheckJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic during check execution",
				zap.Int("monitor_id", job.MonitorID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			err = &ExecutionError{MonitorID: job.MonitorID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return s.executor.Execute(ctx, job)
}

// failureMessage returns the underlying error text without the monitor prefix
func failureMessage(err error) string {
	var execErr *ExecutionError
	if errors.As(err, &execErr) && execErr.Err != nil {
		return execErr.Err.Error()
	}
	return err.Error()
}
