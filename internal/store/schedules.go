package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tekuonline/uptivalab/internal/models"
)

// ScheduleStore is the durable registry of recurring triggers
type ScheduleStore struct {
	db *gorm.DB
}

// NewScheduleStore creates a new schedule store
func NewScheduleStore(db *gorm.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

// Upsert writes job, replacing any row with the same key
func (s *ScheduleStore) Upsert(ctx context.Context, job *models.ScheduledJob) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"monitor_id", "interval_ms", "updated_at"}),
	}).Create(job).Error
	if err != nil {
		return fmt.Errorf("upsert scheduled job %s: %w", job.Key, err)
	}
	return nil
}

// Delete removes the row for key. Missing rows are not an error.
func (s *ScheduleStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&models.ScheduledJob{}).Error; err != nil {
		return fmt.Errorf("delete scheduled job %s: %w", key, err)
	}
	return nil
}

// DeleteExcept removes every row whose key is not in keep
func (s *ScheduleStore) DeleteExcept(ctx context.Context, keep []string) (int64, error) {
	q := s.db.WithContext(ctx)
	if len(keep) > 0 {
		q = q.Where("key NOT IN ?", keep)
	} else {
		q = q.Where("1 = 1")
	}
	result := q.Delete(&models.ScheduledJob{})
	if result.Error != nil {
		return 0, fmt.Errorf("prune scheduled jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
