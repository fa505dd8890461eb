package monitor

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tekuonline/uptivalab/internal/models"
)

type fakeSettings map[string]string

func (f fakeSettings) Lookup(_ context.Context, key string) (json.RawMessage, bool, error) {
	v, ok := f[key]
	if !ok {
		return nil, false, nil
	}
	return json.RawMessage(v), true, nil
}

type fakeMonitors struct {
	mu         sync.Mutex
	monitors   map[int]*models.Monitor
	continuity map[int]*models.Continuity
	err        error
}

func newFakeMonitors(ms ...*models.Monitor) *fakeMonitors {
	f := &fakeMonitors{
		monitors:   make(map[int]*models.Monitor),
		continuity: make(map[int]*models.Continuity),
	}
	for _, m := range ms {
		f.monitors[m.ID] = m
	}
	return f
}

func (f *fakeMonitors) Get(_ context.Context, id int) (*models.Monitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.monitors[id], nil
}

func (f *fakeMonitors) GetContinuity(_ context.Context, id int) (*models.Continuity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.continuity[id], nil
}

type recordingSink struct {
	mu         sync.Mutex
	results    []*models.CheckResult
	identities []*models.MonitorIdentity
}

func (r *recordingSink) Process(_ context.Context, result *models.CheckResult, identity *models.MonitorIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	r.identities = append(r.identities, identity)
	return nil
}

func (r *recordingSink) all() []*models.CheckResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.CheckResult(nil), r.results...)
}

type checkerFunc func(ctx context.Context, req *CheckRequest) (*models.CheckResult, error)

func (f checkerFunc) Check(ctx context.Context, req *CheckRequest) (*models.CheckResult, error) {
	return f(ctx, req)
}

type gateFunc func(ctx context.Context) error

func (f gateFunc) Ensure(ctx context.Context) error {
	return f(ctx)
}
