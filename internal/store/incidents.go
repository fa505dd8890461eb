package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tekuonline/uptivalab/internal/models"
)

// IncidentStore persists incidents
type IncidentStore struct {
	db *gorm.DB
}

// NewIncidentStore creates a new incident store
func NewIncidentStore(db *gorm.DB) *IncidentStore {
	return &IncidentStore{db: db}
}

// FindOpen returns the open incident of a monitor. Returns nil, nil if none.
func (s *IncidentStore) FindOpen(ctx context.Context, monitorID int) (*models.Incident, error) {
	var incident models.Incident
	err := s.db.WithContext(ctx).
		Where("monitor_id = ? AND status = ?", monitorID, models.IncidentOpen).
		Order("started_at DESC").
		First(&incident).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open incident for monitor %d: %w", monitorID, err)
	}
	return &incident, nil
}

// Create inserts a new incident
func (s *IncidentStore) Create(ctx context.Context, incident *models.Incident) error {
	if err := s.db.WithContext(ctx).Create(incident).Error; err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// Save updates an existing incident
func (s *IncidentStore) Save(ctx context.Context, incident *models.Incident) error {
	if err := s.db.WithContext(ctx).Save(incident).Error; err != nil {
		return fmt.Errorf("save incident %d: %w", incident.ID, err)
	}
	return nil
}
