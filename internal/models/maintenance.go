package models

import "time"

// Recurrence values for maintenance windows
const (
	RecurrenceOnce    = "once"
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

// MaintenanceWindow is a scheduled period during which down results for
// the listed monitors are recorded but not notified.
type MaintenanceWindow struct {
	ID         int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Name       string    `json:"name" gorm:"not null"`
	StartsAt   time.Time `json:"starts_at" gorm:"not null"`
	EndsAt     time.Time `json:"ends_at" gorm:"not null"`
	Recurrence string    `json:"recurrence" gorm:"default:'once'"`
	MonitorIDs []int     `json:"monitor_ids" gorm:"type:jsonb;serializer:json"`
	Enabled    bool      `json:"enabled" gorm:"default:true;index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for MaintenanceWindow
func (MaintenanceWindow) TableName() string {
	return "maintenance_windows"
}

// Covers reports whether the window lists the given monitor
func (w *MaintenanceWindow) Covers(monitorID int) bool {
	for _, id := range w.MonitorIDs {
		if id == monitorID {
			return true
		}
	}
	return false
}

// ActiveAt reports whether t falls inside the window, accounting for
// recurrence.
func (w *MaintenanceWindow) ActiveAt(t time.Time) bool {
	switch w.Recurrence {
	case RecurrenceOnce, "":
		return !t.Before(w.StartsAt) && !t.After(w.EndsAt)
	case RecurrenceDaily:
		return timeOfDayInRange(t, w.StartsAt, w.EndsAt)
	case RecurrenceWeekly:
		if t.Weekday() != w.StartsAt.Weekday() {
			return false
		}
		return timeOfDayInRange(t, w.StartsAt, w.EndsAt)
	case RecurrenceMonthly:
		if t.Day() != w.StartsAt.Day() {
			return false
		}
		return timeOfDayInRange(t, w.StartsAt, w.EndsAt)
	default:
		return false
	}
}

// timeOfDayInRange supports ranges crossing midnight (e.g. 22:00-02:00)
func timeOfDayInRange(t, start, end time.Time) bool {
	tSec := secondsSinceMidnight(t)
	startSec := secondsSinceMidnight(start)
	endSec := secondsSinceMidnight(end)

	if startSec <= endSec {
		return tSec >= startSec && tSec <= endSec
	}
	return tSec >= startSec || tSec <= endSec
}

func secondsSinceMidnight(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
