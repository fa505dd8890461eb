package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tekuonline/uptivalab/internal/models"
)

// MaintenanceStore answers whether a monitor is inside a maintenance window
type MaintenanceStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewMaintenanceStore creates a new maintenance window store
func NewMaintenanceStore(db *gorm.DB) *MaintenanceStore {
	return &MaintenanceStore{db: db, now: time.Now}
}

// IsSuppressed reports whether monitorID is currently covered by an
// enabled maintenance window.
func (s *MaintenanceStore) IsSuppressed(ctx context.Context, monitorID int) (bool, error) {
	var windows []models.MaintenanceWindow
	err := s.db.WithContext(ctx).
		Where("enabled = ? AND monitor_ids @> ?::jsonb", true, fmt.Sprintf("[%d]", monitorID)).
		Find(&windows).Error
	if err != nil {
		return false, fmt.Errorf("list maintenance windows: %w", err)
	}

	return anyActive(windows, monitorID, s.now().UTC()), nil
}

func anyActive(windows []models.MaintenanceWindow, monitorID int, now time.Time) bool {
	for i := range windows {
		if !windows[i].Enabled || !windows[i].Covers(monitorID) {
			continue
		}
		if windows[i].ActiveAt(now) {
			return true
		}
	}
	return false
}
