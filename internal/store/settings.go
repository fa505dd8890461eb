package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tekuonline/uptivalab/internal/models"
)

// SettingsStore reads and writes dynamic global defaults
type SettingsStore struct {
	db *gorm.DB
}

// NewSettingsStore creates a new settings store
func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Lookup returns the raw JSON value of key and whether it is set
func (s *SettingsStore) Lookup(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var setting models.Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lookup setting %q: %w", key, err)
	}
	return json.RawMessage(setting.Value), true, nil
}

// Set stores value under key, replacing any previous value
func (s *SettingsStore) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal setting %q: %w", key, err)
	}
	setting := models.Setting{Key: key, Value: string(raw)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("store setting %q: %w", key, err)
	}
	return nil
}
