// Package jobs owns the recurring check triggers and the housekeeping jobs.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tekuonline/uptivalab/internal/metrics"
	"github.com/tekuonline/uptivalab/internal/models"
)

// keyNamespace scopes job keys so they never collide with other UUIDv5 users
var keyNamespace = uuid.MustParse("6f1d3c2a-94b7-5e0f-8a31-2c7d9b4e0f55")

const defaultBootstrapConcurrency = 8

// Dispatcher hands a fired job to an executor
type Dispatcher interface {
	Dispatch(ctx context.Context, job models.CheckJob) error
}

// DispatchFunc adapts a function to Dispatcher
type DispatchFunc func(ctx context.Context, job models.CheckJob) error

// Dispatch calls f(ctx, job)
func (f DispatchFunc) Dispatch(ctx context.Context, job models.CheckJob) error {
	return f(ctx, job)
}

// MonitorLister loads the monitors that should be scheduled
type MonitorLister interface {
	ListActive(ctx context.Context) ([]*models.Monitor, error)
}

// ScheduleStore persists trigger records
type ScheduleStore interface {
	Upsert(ctx context.Context, job *models.ScheduledJob) error
	Delete(ctx context.Context, key string) error
	DeleteExcept(ctx context.Context, keep []string) (int64, error)
}

// ResultJanitor removes expired results
type ResultJanitor interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Vacuum(ctx context.Context) error
}

// SchedulingError reports a failed attempt to schedule one monitor
type SchedulingError struct {
	MonitorID int
	Err       error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("schedule monitor %d: %v", e.MonitorID, e.Err)
}

func (e *SchedulingError) Unwrap() error {
	return e.Err
}

// BootstrapReport aggregates the outcome of a bootstrap pass
type BootstrapReport struct {
	Total     int `json:"total"`
	Scheduled int `json:"scheduled"`
	Failed    int `json:"failed"`
}

// Job describes an active trigger
type Job struct {
	Key        string    `json:"key"`
	MonitorID  int       `json:"monitor_id"`
	IntervalMs int64     `json:"interval_ms"`
	Next       time.Time `json:"next"`
}

// Options configures a Scheduler
type Options struct {
	Monitors   MonitorLister
	Schedules  ScheduleStore
	Results    ResultJanitor
	Dispatcher Dispatcher
	Metrics    *metrics.Metrics
	Logger     *zap.Logger

	RetentionDays        int
	BootstrapConcurrency int
}

type entry struct {
	key      string
	id       cron.EntryID
	interval time.Duration
}

// Scheduler manages the per-monitor triggers and background jobs
type Scheduler struct {
	cron       *cron.Cron
	schedules  ScheduleStore
	monitors   MonitorLister
	results    ResultJanitor
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	retention  int
	fanout     int
	now        func() time.Time

	mu      sync.Mutex
	entries map[int]entry
	locks   map[int]*sync.Mutex
}

// NewScheduler creates a new job scheduler
func NewScheduler(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fanout := opts.BootstrapConcurrency
	if fanout < 1 {
		fanout = defaultBootstrapConcurrency
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLogger(cronLogger{logger.Sugar()}), cron.WithChain(cron.Recover(cronLogger{logger.Sugar()}))),
		schedules:  opts.Schedules,
		monitors:   opts.Monitors,
		results:    opts.Results,
		dispatcher: opts.Dispatcher,
		metrics:    opts.Metrics,
		logger:     logger,
		retention:  opts.RetentionDays,
		fanout:     fanout,
		now:        time.Now,
		entries:    make(map[int]entry),
		locks:      make(map[int]*sync.Mutex),
	}
}

// lockMonitor serializes the store write and trigger update of one monitor
func (s *Scheduler) lockMonitor(monitorID int) func() {
	s.mu.Lock()
	l, ok := s.locks[monitorID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[monitorID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// JobKey returns the deterministic trigger key of a monitor
func JobKey(monitorID int) string {
	return uuid.NewSHA1(keyNamespace, []byte("monitor:"+strconv.Itoa(monitorID))).String()
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	if s.results != nil && s.retention > 0 {
		// Cleanup old results daily at 3:14 AM
		s.cron.AddFunc("14 3 * * *", func() {
			s.cleanupOldResults(context.Background())
		})

		// Vacuum weekly at 2:30 AM on Sunday
		s.cron.AddFunc("30 2 * * 0", func() {
			s.vacuumResults(context.Background())
		})
	}

	s.cron.Start()
	s.logger.Info("job scheduler started")
}

// Stop stops the scheduler and waits for running dispatches until ctx
// expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("job scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

// ScheduleMonitor creates or replaces the trigger of a monitor
func (s *Scheduler) ScheduleMonitor(ctx context.Context, monitorID int, intervalMs int64) error {
	if intervalMs <= 0 {
		s.metrics.SchedulingFailure()
		return &SchedulingError{MonitorID: monitorID, Err: fmt.Errorf("invalid interval %dms", intervalMs)}
	}

	unlock := s.lockMonitor(monitorID)
	defer unlock()

	key := JobKey(monitorID)
	record := &models.ScheduledJob{Key: key, MonitorID: monitorID, IntervalMs: intervalMs}
	if err := s.schedules.Upsert(ctx, record); err != nil {
		s.metrics.SchedulingFailure()
		return &SchedulingError{MonitorID: monitorID, Err: err}
	}

	interval := time.Duration(intervalMs) * time.Millisecond
	fire := s.fireFunc(key, monitorID)

	s.mu.Lock()
	if old, ok := s.entries[monitorID]; ok {
		s.cron.Remove(old.id)
	}
	id := s.cron.Schedule(every{interval: interval}, cron.FuncJob(fire))
	s.entries[monitorID] = entry{key: key, id: id, interval: interval}
	count := len(s.entries)
	s.mu.Unlock()

	s.metrics.ScheduledMonitors(count)
	s.logger.Debug("monitor scheduled",
		zap.Int("monitor_id", monitorID), zap.Duration("interval", interval))
	return nil
}

// CancelMonitor removes the trigger of a monitor. Unknown monitors are a
// no-op. In-flight executions are not interrupted.
func (s *Scheduler) CancelMonitor(ctx context.Context, monitorID int) error {
	unlock := s.lockMonitor(monitorID)
	defer unlock()

	s.mu.Lock()
	if old, ok := s.entries[monitorID]; ok {
		s.cron.Remove(old.id)
		delete(s.entries, monitorID)
	}
	count := len(s.entries)
	s.mu.Unlock()

	s.metrics.ScheduledMonitors(count)

	if err := s.schedules.Delete(ctx, JobKey(monitorID)); err != nil {
		return &SchedulingError{MonitorID: monitorID, Err: err}
	}
	return nil
}

// Bootstrap schedules every non-paused monitor. Failures are isolated per
// monitor; the returned error is only set when monitors cannot be listed.
func (s *Scheduler) Bootstrap(ctx context.Context) (BootstrapReport, error) {
	monitors, err := s.monitors.ListActive(ctx)
	if err != nil {
		return BootstrapReport{}, fmt.Errorf("list active monitors: %w", err)
	}

	var (
		mu     sync.Mutex
		report = BootstrapReport{Total: len(monitors)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for _, m := range monitors {
		m := m // per-iteration copy; go.mod targets go1.21 loop semantics
		g.Go(func() error {
			err := s.ScheduleMonitor(gctx, m.ID, m.IntervalDuration().Milliseconds())

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				s.logger.Error("failed to schedule monitor",
					zap.Int("monitor_id", m.ID), zap.String("name", m.Name), zap.Error(err))
				return nil
			}
			report.Scheduled++
			return nil
		})
	}
	_ = g.Wait()

	s.pruneUnscheduled(ctx, monitors)

	// a monitor that failed to reschedule keeps its row while its earlier
	// trigger is still live
	s.mu.Lock()
	keep := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		keep = append(keep, e.key)
	}
	s.mu.Unlock()

	if pruned, err := s.schedules.DeleteExcept(ctx, keep); err != nil {
		s.logger.Warn("failed to prune stale schedules", zap.Error(err))
	} else if pruned > 0 {
		s.logger.Info("pruned stale schedules", zap.Int64("count", pruned))
	}

	s.logger.Info("scheduler bootstrap complete",
		zap.Int("total", report.Total),
		zap.Int("scheduled", report.Scheduled),
		zap.Int("failed", report.Failed))
	return report, nil
}

// pruneUnscheduled drops in-memory triggers of monitors that are no
// longer active.
func (s *Scheduler) pruneUnscheduled(ctx context.Context, active []*models.Monitor) {
	wanted := make(map[int]struct{}, len(active))
	for _, m := range active {
		wanted[m.ID] = struct{}{}
	}

	s.mu.Lock()
	var stale []int
	for id := range s.entries {
		if _, ok := wanted[id]; !ok {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stale {
		if err := s.CancelMonitor(ctx, id); err != nil {
			s.logger.Warn("failed to cancel stale trigger", zap.Int("monitor_id", id), zap.Error(err))
		}
	}
}

// Jobs lists the active triggers ordered by monitor id
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]Job, 0, len(s.entries))
	for monitorID, e := range s.entries {
		jobs = append(jobs, Job{
			Key:        e.key,
			MonitorID:  monitorID,
			IntervalMs: e.interval.Milliseconds(),
			Next:       s.cron.Entry(e.id).Next,
		})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].MonitorID < jobs[j].MonitorID })
	return jobs
}

// RunNow dispatches a single out-of-schedule job for a monitor
func (s *Scheduler) RunNow(ctx context.Context, monitorID int) error {
	return s.dispatcher.Dispatch(ctx, models.CheckJob{
		Key:       JobKey(monitorID),
		MonitorID: monitorID,
		FiredAt:   s.now().UTC(),
	})
}

func (s *Scheduler) fireFunc(key string, monitorID int) func() {
	return func() {
		job := models.CheckJob{Key: key, MonitorID: monitorID, FiredAt: s.now().UTC()}
		if err := s.dispatcher.Dispatch(context.Background(), job); err != nil {
			s.logger.Error("failed to dispatch check",
				zap.Int("monitor_id", monitorID), zap.Error(err))
		}
	}
}

// cleanupOldResults removes results older than the retention period
func (s *Scheduler) cleanupOldResults(ctx context.Context) {
	cutoff := s.now().AddDate(0, 0, -s.retention)
	deleted, err := s.results.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to cleanup old results", zap.Error(err))
		return
	}
	s.logger.Info("cleaned up old results", zap.Int64("count", deleted), zap.Time("cutoff", cutoff))
}

func (s *Scheduler) vacuumResults(ctx context.Context) {
	if err := s.results.Vacuum(ctx); err != nil {
		s.logger.Error("failed to vacuum results", zap.Error(err))
		return
	}
	s.logger.Info("result tables vacuumed")
}

// every fires at a fixed millisecond interval. cron.Every rounds to whole
// seconds.
type every struct {
	interval time.Duration
}

func (e every) Next(t time.Time) time.Time {
	return t.Add(e.interval)
}

// cronLogger routes cron's internal logging through zap
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}

// IsSchedulingError reports whether err carries a SchedulingError
func IsSchedulingError(err error) bool {
	var se *SchedulingError
	return errors.As(err, &se)
}
