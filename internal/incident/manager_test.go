package incident

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tekuonline/uptivalab/internal/models"
)

type memStore struct {
	incidents []*models.Incident
	nextID    int
	err       error
}

func (s *memStore) FindOpen(_ context.Context, monitorID int) (*models.Incident, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, inc := range s.incidents {
		if inc.MonitorID == monitorID && inc.Status == models.IncidentOpen {
			return inc, nil
		}
	}
	return nil, nil
}

func (s *memStore) Create(_ context.Context, inc *models.Incident) error {
	s.nextID++
	inc.ID = s.nextID
	s.incidents = append(s.incidents, inc)
	return nil
}

func (s *memStore) Save(context.Context, *models.Incident) error {
	return nil
}

var ident = &models.MonitorIdentity{ID: 1, Name: "api", Kind: models.KindHTTP}

func result(status models.Status) *models.CheckResult {
	return &models.CheckResult{MonitorID: 1, Status: status, Message: string(status), CheckedAt: time.Now()}
}

func TestManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	m := NewManager(store, zap.NewNop())

	require.NoError(t, m.Process(ctx, result(models.StatusDown), ident, models.HandoffOptions{}))
	require.Len(t, store.incidents, 1)
	inc := store.incidents[0]
	assert.Equal(t, models.IncidentOpen, inc.Status)
	assert.Equal(t, "api is down", inc.Title)
	assert.Equal(t, 1, inc.FailureCount)

	require.NoError(t, m.Process(ctx, result(models.StatusDown), ident, models.HandoffOptions{}))
	require.NoError(t, m.Process(ctx, result(models.StatusDown), ident, models.HandoffOptions{Suppressed: true}))
	assert.Len(t, store.incidents, 1)
	assert.Equal(t, 2, inc.FailureCount)
	assert.Equal(t, 1, inc.SuppressedFailures)

	require.NoError(t, m.Process(ctx, result(models.StatusUp), ident, models.HandoffOptions{}))
	assert.Equal(t, models.IncidentResolved, inc.Status)
	assert.NotNil(t, inc.ResolvedAt)
}

func TestManager_SuppressedFailureDoesNotOpen(t *testing.T) {
	store := &memStore{}
	m := NewManager(store, zap.NewNop())

	require.NoError(t, m.Process(context.Background(), result(models.StatusDown), ident, models.HandoffOptions{Suppressed: true}))
	assert.Empty(t, store.incidents)
}

func TestManager_UpAndPendingWithoutIncident(t *testing.T) {
	store := &memStore{}
	m := NewManager(store, zap.NewNop())

	require.NoError(t, m.Process(context.Background(), result(models.StatusUp), ident, models.HandoffOptions{}))
	require.NoError(t, m.Process(context.Background(), result(models.StatusPending), ident, models.HandoffOptions{}))
	assert.Empty(t, store.incidents)
}

func TestManager_StoreError(t *testing.T) {
	m := NewManager(&memStore{err: errors.New("db gone")}, zap.NewNop())
	assert.Error(t, m.Process(context.Background(), result(models.StatusDown), nil, models.HandoffOptions{}))
}

func TestTitle_WithoutIdentity(t *testing.T) {
	assert.Equal(t, "Monitor 9 is down", title(9, nil))
}
