package models

import "time"

// Incident states
const (
	IncidentOpen     = "open"
	IncidentResolved = "resolved"
)

// Incident is an ongoing or resolved outage derived from check results
type Incident struct {
	ID                 int        `json:"id" gorm:"primaryKey;autoIncrement"`
	MonitorID          int        `json:"monitor_id" gorm:"not null;index"`
	Status             string     `json:"status" gorm:"not null;index"`
	Title              string     `json:"title" gorm:"not null"`
	LastMessage        string     `json:"last_message" gorm:"type:text"`
	FailureCount       int        `json:"failure_count"`
	SuppressedFailures int        `json:"suppressed_failures"`
	StartedAt          time.Time  `json:"started_at" gorm:"not null"`
	ResolvedAt         *time.Time `json:"resolved_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Incident
func (Incident) TableName() string {
	return "incidents"
}

// Setting is a dynamic global default stored as JSON
type Setting struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Value     string    `json:"value" gorm:"type:text;not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Setting
func (Setting) TableName() string {
	return "settings"
}
