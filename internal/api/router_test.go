package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tekuonline/uptivalab/internal/auth"
	"github.com/tekuonline/uptivalab/internal/jobs"
	"github.com/tekuonline/uptivalab/internal/metrics"
	"github.com/tekuonline/uptivalab/internal/models"
	"github.com/tekuonline/uptivalab/internal/provision"
)

const secret = "api-secret-0123456789"

type fakeScheduler struct {
	scheduled   map[int]int64
	cancelled   []int
	ran         []int
	scheduleErr error
}

func (f *fakeScheduler) Jobs() []jobs.Job {
	var out []jobs.Job
	for id, ms := range f.scheduled {
		out = append(out, jobs.Job{Key: jobs.JobKey(id), MonitorID: id, IntervalMs: ms})
	}
	return out
}

func (f *fakeScheduler) ScheduleMonitor(ctx context.Context, monitorID int, intervalMs int64) error {
	if f.scheduleErr != nil {
		return &jobs.SchedulingError{MonitorID: monitorID, Err: f.scheduleErr}
	}
	f.scheduled[monitorID] = intervalMs
	return nil
}

func (f *fakeScheduler) CancelMonitor(ctx context.Context, monitorID int) error {
	f.cancelled = append(f.cancelled, monitorID)
	delete(f.scheduled, monitorID)
	return nil
}

func (f *fakeScheduler) RunNow(ctx context.Context, monitorID int) error {
	f.ran = append(f.ran, monitorID)
	return nil
}

type fakeMonitors map[int]*models.Monitor

func (f fakeMonitors) Get(ctx context.Context, id int) (*models.Monitor, error) {
	return f[id], nil
}

type fakeProvisioner struct {
	state provision.State
	err   error
}

func (f *fakeProvisioner) State() provision.State { return f.state }

func (f *fakeProvisioner) ExecutablePath() string {
	if f.state == provision.Done {
		return "/opt/chrome"
	}
	return ""
}

func (f *fakeProvisioner) Ensure(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.state = provision.Done
	return nil
}

type fixture struct {
	handler     http.Handler
	scheduler   *fakeScheduler
	provisioner *fakeProvisioner
	token       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	verifier := auth.NewVerifier(secret)
	token, err := verifier.Issue("ops", time.Hour)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics.New(reg).ScheduledMonitors(2)

	f := &fixture{
		scheduler:   &fakeScheduler{scheduled: map[int]int64{}},
		provisioner: &fakeProvisioner{},
		token:       token,
	}
	f.handler = NewRouter(Dependencies{
		CORSOrigins: []string{"http://localhost:3000"},
		Verifier:    verifier,
		Scheduler:   f.scheduler,
		Monitors: fakeMonitors{
			1: {ID: 1, Name: "api", Interval: 30},
			2: {ID: 2, Name: "paused", Interval: 60, Paused: true},
		},
		Provisioner: f.provisioner,
		Gatherer:    reg,
		Strict:      NewRateLimiter(rate.Inf, 1),
		Logger:      zap.NewNop(),
	})
	return f
}

func (f *fixture) do(method, path string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do("GET", "/health", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = f.do("GET", "/metrics", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "uptivalab_scheduled_monitors 2")
}

func TestRouter_RequiresToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do("GET", "/api/schedules", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScheduleMonitor(t *testing.T) {
	f := newFixture(t)

	rec := f.do("PUT", "/api/monitors/1/schedule", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ScheduleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Scheduled)
	assert.Equal(t, int64(30000), resp.IntervalMs)
	assert.Equal(t, jobs.JobKey(1), resp.Key)
	assert.Equal(t, int64(30000), f.scheduler.scheduled[1])

	rec = f.do("GET", "/api/schedules", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []jobs.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].MonitorID)
}

func TestScheduleMonitor_PausedIsCancelled(t *testing.T) {
	f := newFixture(t)
	rec := f.do("PUT", "/api/monitors/2/schedule", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{2}, f.scheduler.cancelled)
	assert.Empty(t, f.scheduler.scheduled)
}

func TestScheduleMonitor_Errors(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.do("PUT", "/api/monitors/9/schedule", true).Code)
	assert.Equal(t, http.StatusBadRequest, f.do("PUT", "/api/monitors/abc/schedule", true).Code)

	f.scheduler.scheduleErr = errors.New("db unavailable")
	rec := f.do("PUT", "/api/monitors/1/schedule", true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "db unavailable")
}

func TestUnscheduleMonitor_UnknownIsNoContent(t *testing.T) {
	f := newFixture(t)
	rec := f.do("DELETE", "/api/monitors/404/schedule", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRunCheck(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusAccepted, f.do("POST", "/api/monitors/1/check", true).Code)
	assert.Equal(t, []int{1}, f.scheduler.ran)
	assert.Equal(t, http.StatusNotFound, f.do("POST", "/api/monitors/7/check", true).Code)
}

func TestProvisioning(t *testing.T) {
	f := newFixture(t)

	rec := f.do("GET", "/api/provisioning", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"not_started"`)

	rec = f.do("POST", "/api/provisioning/ensure", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ProvisioningResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "done", resp.State)
	assert.Equal(t, "/opt/chrome", resp.ExecutablePath)
}

func TestProvisioning_Failure(t *testing.T) {
	f := newFixture(t)
	f.provisioner.err = &provision.ProvisioningError{Stage: provision.StageArtifact, Err: errors.New("exit status 1")}

	rec := f.do("POST", "/api/provisioning/ensure", true)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	var resp ProvisioningResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, provision.StageArtifact, resp.Stage)
	assert.Contains(t, resp.Error, "exit status 1")
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.GetLimiter("a")
	now = now.Add(time.Hour)
	rl.GetLimiter("b")

	assert.Equal(t, 1, rl.Cleanup(30*time.Minute))
	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "b")
}
