package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tekuonline/uptivalab/internal/models"
)

type fakeMonitors struct {
	monitors []*models.Monitor
	err      error
}

func (f *fakeMonitors) ListActive(ctx context.Context) ([]*models.Monitor, error) {
	return f.monitors, f.err
}

type fakeSchedules struct {
	mu        sync.Mutex
	rows      map[string]*models.ScheduledJob
	upserts   int
	upsertErr error
	failFor   map[int]bool
	kept      []string
}

func newFakeSchedules() *fakeSchedules {
	return &fakeSchedules{rows: make(map[string]*models.ScheduledJob)}
}

func (f *fakeSchedules) Upsert(ctx context.Context, job *models.ScheduledJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if f.failFor[job.MonitorID] {
		return errors.New("write conflict")
	}
	f.upserts++
	copied := *job
	f.rows[job.Key] = &copied
	return nil
}

func (f *fakeSchedules) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, key)
	return nil
}

func (f *fakeSchedules) DeleteExcept(ctx context.Context, keep []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kept = append([]string(nil), keep...)
	wanted := make(map[string]bool, len(keep))
	for _, k := range keep {
		wanted[k] = true
	}
	var n int64
	for k := range f.rows {
		if !wanted[k] {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}

type fakeJanitor struct {
	cutoff   time.Time
	vacuumed bool
}

func (f *fakeJanitor) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, nil
}

func (f *fakeJanitor) Vacuum(ctx context.Context) error {
	f.vacuumed = true
	return nil
}

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []models.CheckJob
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, job models.CheckJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

func newTestScheduler(monitors MonitorLister, schedules ScheduleStore, d Dispatcher) *Scheduler {
	return NewScheduler(Options{
		Monitors:   monitors,
		Schedules:  schedules,
		Dispatcher: d,
		Logger:     zap.NewNop(),
	})
}

func TestJobKey(t *testing.T) {
	assert.Equal(t, JobKey(7), JobKey(7))
	assert.NotEqual(t, JobKey(7), JobKey(70))
	assert.Len(t, JobKey(1), 36)
}

func TestBootstrap_SchedulesEveryActiveMonitorOnce(t *testing.T) {
	monitors := &fakeMonitors{monitors: []*models.Monitor{
		{ID: 1, Name: "a", Interval: 60},
		{ID: 2, Name: "b", Interval: 30},
		{ID: 3, Name: "broken", Interval: 0},
	}}
	schedules := newFakeSchedules()
	schedules.rows["stale"] = &models.ScheduledJob{Key: "stale", MonitorID: 99}
	s := newTestScheduler(monitors, schedules, &recordingDispatcher{})

	report, err := s.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BootstrapReport{Total: 3, Scheduled: 2, Failed: 1}, report)

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, 1, jobs[0].MonitorID)
	assert.Equal(t, JobKey(1), jobs[0].Key)
	assert.Equal(t, int64(60000), jobs[0].IntervalMs)
	assert.Equal(t, 2, jobs[1].MonitorID)

	assert.ElementsMatch(t, []string{JobKey(1), JobKey(2)}, schedules.kept)
	assert.NotContains(t, schedules.rows, "stale")
}

func TestBootstrap_ListFailure(t *testing.T) {
	s := newTestScheduler(&fakeMonitors{err: errors.New("db down")}, newFakeSchedules(), &recordingDispatcher{})
	_, err := s.Bootstrap(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestBootstrap_DropsTriggersOfInactiveMonitors(t *testing.T) {
	monitors := &fakeMonitors{monitors: []*models.Monitor{{ID: 1, Interval: 60}}}
	s := newTestScheduler(monitors, newFakeSchedules(), &recordingDispatcher{})
	require.NoError(t, s.ScheduleMonitor(context.Background(), 42, 1000))

	_, err := s.Bootstrap(context.Background())
	require.NoError(t, err)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, 1, jobs[0].MonitorID)
}

func TestBootstrap_KeepsRowOfLiveTriggerThatFailedToReschedule(t *testing.T) {
	monitors := &fakeMonitors{monitors: []*models.Monitor{
		{ID: 1, Name: "a", Interval: 60},
		{ID: 2, Name: "b", Interval: 30},
	}}
	schedules := newFakeSchedules()
	s := newTestScheduler(monitors, schedules, &recordingDispatcher{})
	ctx := context.Background()

	_, err := s.Bootstrap(ctx)
	require.NoError(t, err)

	schedules.mu.Lock()
	schedules.failFor = map[int]bool{2: true}
	schedules.mu.Unlock()

	report, err := s.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, BootstrapReport{Total: 2, Scheduled: 1, Failed: 1}, report)

	require.Len(t, s.Jobs(), 2)
	assert.ElementsMatch(t, []string{JobKey(1), JobKey(2)}, schedules.kept)
	assert.Contains(t, schedules.rows, JobKey(2))
}

func TestScheduler_ConcurrentScheduleAndCancelStayConsistent(t *testing.T) {
	schedules := newFakeSchedules()
	s := newTestScheduler(&fakeMonitors{}, schedules, &recordingDispatcher{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.ScheduleMonitor(ctx, 8, 1000))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.CancelMonitor(ctx, 8))
		}()
	}
	wg.Wait()

	_, stored := schedules.rows[JobKey(8)]
	assert.Equal(t, stored, len(s.Jobs()) == 1)
	assert.Len(t, s.cron.Entries(), len(s.Jobs()))
}

func TestScheduleMonitor_ReplacesExistingTrigger(t *testing.T) {
	schedules := newFakeSchedules()
	s := newTestScheduler(&fakeMonitors{}, schedules, &recordingDispatcher{})
	ctx := context.Background()

	require.NoError(t, s.ScheduleMonitor(ctx, 5, 1000))
	require.NoError(t, s.ScheduleMonitor(ctx, 5, 5000))

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, int64(5000), jobs[0].IntervalMs)
	assert.Len(t, s.cron.Entries(), 1)

	require.Len(t, schedules.rows, 1)
	assert.Equal(t, int64(5000), schedules.rows[JobKey(5)].IntervalMs)
	assert.Equal(t, 2, schedules.upserts)
}

func TestScheduleMonitor_Errors(t *testing.T) {
	schedules := newFakeSchedules()
	s := newTestScheduler(&fakeMonitors{}, schedules, &recordingDispatcher{})
	ctx := context.Background()

	err := s.ScheduleMonitor(ctx, 1, 0)
	var se *SchedulingError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.MonitorID)

	schedules.upsertErr = errors.New("constraint")
	err = s.ScheduleMonitor(ctx, 2, 1000)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.MonitorID)
	assert.True(t, IsSchedulingError(err))
	assert.Empty(t, s.Jobs())
}

func TestCancelMonitor(t *testing.T) {
	schedules := newFakeSchedules()
	s := newTestScheduler(&fakeMonitors{}, schedules, &recordingDispatcher{})
	ctx := context.Background()

	assert.NoError(t, s.CancelMonitor(ctx, 404))

	require.NoError(t, s.ScheduleMonitor(ctx, 3, 1000))
	require.NoError(t, s.CancelMonitor(ctx, 3))
	assert.Empty(t, s.Jobs())
	assert.Empty(t, s.cron.Entries())
	assert.Empty(t, schedules.rows)
}

func TestScheduler_FiresAtMillisecondInterval(t *testing.T) {
	d := &recordingDispatcher{}
	s := newTestScheduler(&fakeMonitors{}, newFakeSchedules(), d)
	require.NoError(t, s.ScheduleMonitor(context.Background(), 8, 20))

	s.Start()
	require.Eventually(t, func() bool { return d.count() >= 2 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Equal(t, JobKey(8), d.jobs[0].Key)
	assert.Equal(t, 8, d.jobs[0].MonitorID)
	assert.False(t, d.jobs[0].FiredAt.IsZero())
}

func TestRunNow(t *testing.T) {
	d := &recordingDispatcher{}
	s := newTestScheduler(&fakeMonitors{}, newFakeSchedules(), d)
	require.NoError(t, s.RunNow(context.Background(), 4))
	require.Equal(t, 1, d.count())
	assert.Equal(t, JobKey(4), d.jobs[0].Key)
}

func TestCleanupOldResults(t *testing.T) {
	janitor := &fakeJanitor{}
	s := NewScheduler(Options{Results: janitor, RetentionDays: 90, Logger: zap.NewNop()})
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.cleanupOldResults(context.Background())
	assert.Equal(t, now.AddDate(0, 0, -90), janitor.cutoff)

	s.vacuumResults(context.Background())
	assert.True(t, janitor.vacuumed)
}

func TestEvery(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, start.Add(1500*time.Millisecond), every{interval: 1500 * time.Millisecond}.Next(start))
}
