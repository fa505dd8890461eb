package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tekuonline/uptivalab/internal/models"
)

// ResultStore persists check results and their screenshot artifacts
type ResultStore struct {
	db *gorm.DB
}

// NewResultStore creates a new result store
func NewResultStore(db *gorm.DB) *ResultStore {
	return &ResultStore{db: db}
}

// CreateResult inserts a result and assigns its ID
func (s *ResultStore) CreateResult(ctx context.Context, result *models.CheckResult) error {
	if err := s.db.WithContext(ctx).Create(result).Error; err != nil {
		return fmt.Errorf("insert check result: %w", err)
	}
	return nil
}

// CreateScreenshots inserts artifacts. An empty slice is a no-op.
func (s *ResultStore) CreateScreenshots(ctx context.Context, shots []models.Screenshot) error {
	if len(shots) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&shots).Error; err != nil {
		return fmt.Errorf("insert screenshots: %w", err)
	}
	return nil
}

// DeleteOlderThan removes results checked before cutoff. Screenshots
// are removed by the foreign key cascade.
func (s *ResultStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("checked_at < ?", cutoff).Delete(&models.CheckResult{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old check results: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// PreviousStatus returns the status of the latest unsuppressed result of
// monitorID stored before beforeID.
func (s *ResultStore) PreviousStatus(ctx context.Context, monitorID int, beforeID int64) (models.Status, bool, error) {
	var rows []models.CheckResult
	err := s.db.WithContext(ctx).
		Select("status").
		Where("monitor_id = ? AND id < ?", monitorID, beforeID).
		Where("COALESCE((meta->>'suppressed')::boolean, false) = false").
		Order("id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return "", false, fmt.Errorf("previous status for monitor %d: %w", monitorID, err)
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].Status, true, nil
}

// Vacuum reclaims space left by retention deletes
func (s *ResultStore) Vacuum(ctx context.Context) error {
	for _, table := range []string{"check_results", "screenshots"} {
		if err := s.db.WithContext(ctx).Exec("VACUUM ANALYZE " + table).Error; err != nil {
			return fmt.Errorf("vacuum %s: %w", table, err)
		}
	}
	return nil
}
