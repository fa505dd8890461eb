package pipeline

import (
	"context"

	"github.com/tekuonline/uptivalab/internal/models"
)

//go:generate mockgen -destination=mock_pipeline.go -package=pipeline github.com/tekuonline/uptivalab/internal/pipeline SuppressionOracle,ResultStore,Broadcaster,NotificationRouter,IncidentManager

// SuppressionOracle reports whether a monitor is inside a maintenance window
type SuppressionOracle interface {
	IsSuppressed(ctx context.Context, monitorID int) (bool, error)
}

// ResultStore persists results and their screenshot artifacts
type ResultStore interface {
	CreateResult(ctx context.Context, result *models.CheckResult) error
	CreateScreenshots(ctx context.Context, shots []models.Screenshot) error
}

// Broadcaster publishes results to live subscribers without acknowledgement
type Broadcaster interface {
	EmitResult(result *models.CheckResult)
}

// NotificationRouter delivers a result to the monitor's channels
type NotificationRouter interface {
	Route(ctx context.Context, result *models.CheckResult, identity *models.MonitorIdentity) error
}

// IncidentManager owns incident open/resolve transitions
type IncidentManager interface {
	Process(ctx context.Context, result *models.CheckResult, identity *models.MonitorIdentity, opts models.HandoffOptions) error
}
