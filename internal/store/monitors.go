// Package store implements the orchestrator's persistence on top of GORM.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tekuonline/uptivalab/internal/models"
)

// MonitorStore reads monitors and their continuity records
type MonitorStore struct {
	db *gorm.DB
}

// NewMonitorStore creates a new monitor store
func NewMonitorStore(db *gorm.DB) *MonitorStore {
	return &MonitorStore{db: db}
}

// Get returns a monitor by ID. Returns nil, nil if it does not exist.
func (s *MonitorStore) Get(ctx context.Context, id int) (*models.Monitor, error) {
	var monitor models.Monitor
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&monitor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get monitor %d: %w", id, err)
	}
	return &monitor, nil
}

// ListActive returns all monitors that are not paused
func (s *MonitorStore) ListActive(ctx context.Context) ([]*models.Monitor, error) {
	var monitors []*models.Monitor
	if err := s.db.WithContext(ctx).Where("paused = ?", false).Order("id").Find(&monitors).Error; err != nil {
		return nil, fmt.Errorf("list active monitors: %w", err)
	}
	return monitors, nil
}

// GetContinuity returns the continuity record of a push monitor.
// Returns nil, nil if none was ever written.
func (s *MonitorStore) GetContinuity(ctx context.Context, monitorID int) (*models.Continuity, error) {
	var continuity models.Continuity
	err := s.db.WithContext(ctx).Where("monitor_id = ?", monitorID).First(&continuity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get continuity %d: %w", monitorID, err)
	}
	return &continuity, nil
}
