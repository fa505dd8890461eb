package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tekuonline/uptivalab/internal/models"
)

// NotificationStore loads the channels a monitor notifies
type NotificationStore struct {
	db *gorm.DB
}

// NewNotificationStore creates a new notification channel store
func NewNotificationStore(db *gorm.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// ChannelsForMonitor returns the active channels linked to a monitor,
// falling back to the default channels when none are linked.
func (s *NotificationStore) ChannelsForMonitor(ctx context.Context, monitorID int) ([]models.NotificationChannel, error) {
	var channels []models.NotificationChannel
	err := s.db.WithContext(ctx).
		Joins("INNER JOIN monitor_notifications mn ON notifications.id = mn.notification_id").
		Where("mn.monitor_id = ? AND notifications.active = ?", monitorID, true).
		Find(&channels).Error
	if err != nil {
		return nil, fmt.Errorf("get monitor notifications: %w", err)
	}
	if len(channels) > 0 {
		return channels, nil
	}

	err = s.db.WithContext(ctx).
		Where("is_default = ? AND active = ?", true, true).
		Find(&channels).Error
	if err != nil {
		return nil, fmt.Errorf("get default notifications: %w", err)
	}
	return channels, nil
}
