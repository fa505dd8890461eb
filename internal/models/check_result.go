package models

import "time"

// Status is the outcome of a single check
type Status string

const (
	StatusUp      Status = "up"
	StatusDown    Status = "down"
	StatusPending Status = "pending"
)

// Step statuses reported by synthetic journeys
const (
	StepPassed  = "passed"
	StepFailed  = "failed"
	StepSkipped = "skipped"
)

// Meta keys written by the orchestrator
const (
	MetaSuppressed        = "suppressed"
	MetaSuppressionReason = "suppressionReason"
	MetaSynthesized       = "synthesized"
	MetaScreenshotCount   = "screenshotCount"
)

// CheckResult represents the outcome of one check execution
type CheckResult struct {
	ID           int64                  `json:"id" gorm:"primaryKey;autoIncrement"`
	MonitorID    int                    `json:"monitor_id" gorm:"not null;index:idx_result_monitor_time"`
	Status       Status                 `json:"status" gorm:"not null"`
	Message      string                 `json:"message" gorm:"type:text"`
	LatencyMs    *int64                 `json:"latency_ms"`
	Meta         map[string]interface{} `json:"meta" gorm:"type:jsonb;serializer:json"`
	JourneySteps []JourneyStep          `json:"journey_steps,omitempty" gorm:"type:jsonb;serializer:json"`
	CheckedAt    time.Time              `json:"checked_at" gorm:"not null;index:idx_result_monitor_time,sort:desc"`
}

// TableName specifies the table name for CheckResult
func (CheckResult) TableName() string {
	return "check_results"
}

// SetMeta sets a meta key, allocating the map on first use
func (r *CheckResult) SetMeta(key string, value interface{}) {
	if r.Meta == nil {
		r.Meta = make(map[string]interface{})
	}
	r.Meta[key] = value
}

// Suppressed reports whether the result was flagged as suppressed
func (r *CheckResult) Suppressed() bool {
	v, ok := r.Meta[MetaSuppressed].(bool)
	return ok && v
}

// JourneyStep is one step of a synthetic browser journey
type JourneyStep struct {
	Index      int    `json:"index"`
	Label      string `json:"label"`
	Action     string `json:"action"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Screenshot []byte `json:"screenshot,omitempty"`
}

// Screenshot is a binary artifact captured for a failed journey step
type Screenshot struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	CheckResultID int64     `json:"check_result_id" gorm:"not null;index"`
	StepIndex     int       `json:"step_index"`
	Label         string    `json:"label"`
	Data          []byte    `json:"-" gorm:"type:bytea"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName specifies the table name for Screenshot
func (Screenshot) TableName() string {
	return "screenshots"
}

// CheckJob is the payload of a single trigger firing
type CheckJob struct {
	Key       string    `json:"key"`
	MonitorID int       `json:"monitor_id"`
	FiredAt   time.Time `json:"fired_at"`
}

// ScheduledJob is the durable record of a monitor's recurring trigger
type ScheduledJob struct {
	Key        string    `json:"key" gorm:"primaryKey"`
	MonitorID  int       `json:"monitor_id" gorm:"not null;uniqueIndex"`
	IntervalMs int64     `json:"interval_ms" gorm:"not null"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for ScheduledJob
func (ScheduledJob) TableName() string {
	return "scheduled_jobs"
}

// HandoffOptions carries pipeline context into incident processing
type HandoffOptions struct {
	Suppressed bool
}
