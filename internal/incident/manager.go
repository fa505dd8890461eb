// Package incident derives open and resolved incidents from check results.
package incident

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tekuonline/uptivalab/internal/models"
)

// Store persists incidents
type Store interface {
	FindOpen(ctx context.Context, monitorID int) (*models.Incident, error)
	Create(ctx context.Context, incident *models.Incident) error
	Save(ctx context.Context, incident *models.Incident) error
}

// Manager opens an incident on the first unsuppressed failure, records
// further failures against it and resolves it on recovery.
type Manager struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewManager creates a new incident manager
func NewManager(store Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, logger: logger, now: time.Now}
}

// Process applies result to the monitor's incident state. A suppressed
// failure never opens an incident; it is only counted against one that is
// already open.
func (m *Manager) Process(ctx context.Context, result *models.CheckResult, identity *models.MonitorIdentity, opts models.HandoffOptions) error {
	if result.Status == models.StatusPending {
		return nil
	}

	open, err := m.store.FindOpen(ctx, result.MonitorID)
	if err != nil {
		return err
	}

	now := m.now().UTC()

	switch result.Status {
	case models.StatusDown:
		if open == nil {
			if opts.Suppressed {
				return nil
			}
			incident := &models.Incident{
				MonitorID:    result.MonitorID,
				Status:       models.IncidentOpen,
				Title:        title(result.MonitorID, identity),
				LastMessage:  result.Message,
				FailureCount: 1,
				StartedAt:    result.CheckedAt,
				UpdatedAt:    now,
			}
			if incident.StartedAt.IsZero() {
				incident.StartedAt = now
			}
			if err := m.store.Create(ctx, incident); err != nil {
				return err
			}
			m.logger.Info("incident opened",
				zap.Int("monitor_id", result.MonitorID),
				zap.Int("incident_id", incident.ID))
			return nil
		}

		if opts.Suppressed {
			open.SuppressedFailures++
		} else {
			open.FailureCount++
		}
		open.LastMessage = result.Message
		open.UpdatedAt = now
		return m.store.Save(ctx, open)

	case models.StatusUp:
		if open == nil {
			return nil
		}
		open.Status = models.IncidentResolved
		open.ResolvedAt = &now
		open.LastMessage = result.Message
		open.UpdatedAt = now
		if err := m.store.Save(ctx, open); err != nil {
			return err
		}
		m.logger.Info("incident resolved",
			zap.Int("monitor_id", result.MonitorID),
			zap.Int("incident_id", open.ID),
			zap.Duration("duration", now.Sub(open.StartedAt)))
	}

	return nil
}

func title(monitorID int, identity *models.MonitorIdentity) string {
	if identity != nil && identity.Name != "" {
		return fmt.Sprintf("%s is down", identity.Name)
	}
	return fmt.Sprintf("Monitor %d is down", monitorID)
}
