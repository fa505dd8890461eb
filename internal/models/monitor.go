package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Kind identifies the probe a monitor runs
type Kind string

const (
	KindHTTP        Kind = "http"
	KindTCP         Kind = "tcp"
	KindPing        Kind = "ping"
	KindDNS         Kind = "dns"
	KindDocker      Kind = "docker"
	KindCertificate Kind = "certificate"
	KindDatabase    Kind = "database"
	KindSynthetic   Kind = "synthetic"
	KindGRPC        Kind = "grpc"
	KindPush        Kind = "push"
)

// Valid reports whether k is one of the known monitor kinds
func (k Kind) Valid() bool {
	switch k {
	case KindHTTP, KindTCP, KindPing, KindDNS, KindDocker, KindCertificate,
		KindDatabase, KindSynthetic, KindGRPC, KindPush:
		return true
	}
	return false
}

// Monitor represents a monitor configuration. Monitors are owned by the
// CRUD layer; the orchestrator only reads them.
type Monitor struct {
	ID        int                    `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string                 `json:"name" gorm:"not null"`
	Kind      Kind                   `json:"kind" gorm:"column:kind;not null;index"`
	Interval  int                    `json:"interval" gorm:"default:60"` // seconds
	Timeout   int                    `json:"timeout" gorm:"default:30"`  // seconds
	Paused    bool                   `json:"paused" gorm:"default:false;index"`
	Config    map[string]interface{} `json:"config" gorm:"-"`
	ConfigRaw string                 `json:"-" gorm:"column:config;type:text"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// TableName specifies the table name for Monitor
func (Monitor) TableName() string {
	return "monitors"
}

// BeforeSave marshals the Config map to JSON before saving (GORM hook)
func (m *Monitor) BeforeSave(tx *gorm.DB) error {
	if m.Config != nil {
		configJSON, err := json.Marshal(m.Config)
		if err != nil {
			return err
		}
		m.ConfigRaw = string(configJSON)
	}
	return nil
}

// AfterFind unmarshals the Config JSON after loading (GORM hook)
func (m *Monitor) AfterFind(tx *gorm.DB) error {
	if m.ConfigRaw != "" {
		return json.Unmarshal([]byte(m.ConfigRaw), &m.Config)
	}
	return nil
}

// IntervalDuration returns the check interval as a duration
func (m *Monitor) IntervalDuration() time.Duration {
	return time.Duration(m.Interval) * time.Second
}

// TimeoutDuration returns the probe timeout as a duration
func (m *Monitor) TimeoutDuration() time.Duration {
	return time.Duration(m.Timeout) * time.Second
}

// Identity returns the attribution projection of the monitor
func (m *Monitor) Identity() MonitorIdentity {
	return MonitorIdentity{ID: m.ID, Name: m.Name, Kind: m.Kind}
}

// MonitorIdentity is the minimal monitor description carried alongside a
// result through notifications and incident handoff.
type MonitorIdentity struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Continuity tracks cadence and last contact for push monitors. It is
// written by the push ingestion endpoint, never by the orchestrator.
type Continuity struct {
	MonitorID      int        `json:"monitor_id" gorm:"primaryKey"`
	HeartbeatEvery int        `json:"heartbeat_every"` // seconds
	LastHeartbeat  *time.Time `json:"last_heartbeat"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Continuity
func (Continuity) TableName() string {
	return "monitor_continuity"
}
