// Package pipeline fans every check result out to suppression, artifact
// extraction, persistence, broadcast, notification and incident handoff.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/tekuonline/uptivalab/internal/metrics"
	"github.com/tekuonline/uptivalab/internal/models"
)

// Pipeline stages, in order
const (
	StageSuppression = "suppression"
	StageArtifacts   = "artifacts"
	StagePersist     = "persist"
	StageBroadcast   = "broadcast"
	StageNotify      = "notify"
	StageIncident    = "incident"
)

// SuppressionSuffix is appended to the message of suppressed down results
const SuppressionSuffix = " [suppressed: maintenance window]"

// SuppressionReasonMaintenance is the only suppression reason recorded
const SuppressionReasonMaintenance = "maintenance"

// PipelineError reports the stage at which a result was abandoned
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Options wires the pipeline collaborators
type Options struct {
	Suppression SuppressionOracle
	Store       ResultStore
	Broadcaster Broadcaster
	Router      NotificationRouter
	Incidents   IncidentManager
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// Pipeline processes results one at a time; it holds no per-result state
// and is safe for concurrent use.
type Pipeline struct {
	suppression SuppressionOracle
	store       ResultStore
	broadcaster Broadcaster
	router      NotificationRouter
	incidents   IncidentManager
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// New creates a result pipeline
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		suppression: opts.Suppression,
		store:       opts.Store,
		broadcaster: opts.Broadcaster,
		router:      opts.Router,
		incidents:   opts.Incidents,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// Process runs result through every stage. A failure in suppression,
// artifact extraction, persistence or broadcast abandons the result and is
// returned as *PipelineError. Notification and incident failures are
// logged and do not affect each other.
func (p *Pipeline) Process(ctx context.Context, result *models.CheckResult, identity *models.MonitorIdentity) error {
	var suppressed bool
	var shots []models.Screenshot

	steps := []struct {
		stage string
		run   func() error
	}{
		{StageSuppression, func() (err error) {
			suppressed, err = p.applySuppression(ctx, result)
			return err
		}},
		{StageArtifacts, func() error {
			shots = ExtractArtifacts(result)
			return nil
		}},
		{StagePersist, func() error {
			return p.persist(ctx, result, shots)
		}},
		{StageBroadcast, func() error {
			if p.broadcaster != nil {
				p.broadcaster.EmitResult(result)
			}
			return nil
		}},
	}

	for _, step := range steps {
		if err := p.guard(step.stage, step.run); err != nil {
			p.metrics.PipelineFailure(step.stage)
			p.logger.Error("result abandoned",
				zap.Int("monitor_id", result.MonitorID),
				zap.String("stage", step.stage),
				zap.Error(err))
			return err
		}
	}

	if suppressed {
		p.metrics.Suppressed()
		p.logger.Info("notification suppressed by maintenance window",
			zap.Int("monitor_id", result.MonitorID))
	} else if p.router != nil {
		p.isolated(StageNotify, result, func() error {
			return p.router.Route(ctx, result, identity)
		})
	}

	if p.incidents != nil {
		p.isolated(StageIncident, result, func() error {
			return p.incidents.Process(ctx, result, identity, models.HandoffOptions{Suppressed: suppressed})
		})
	}

	return nil
}

func (p *Pipeline) applySuppression(ctx context.Context, result *models.CheckResult) (bool, error) {
	if result.Status != models.StatusDown || p.suppression == nil {
		return false, nil
	}

	suppressed, err := p.suppression.IsSuppressed(ctx, result.MonitorID)
	if err != nil {
		return false, err
	}
	if !suppressed {
		return false, nil
	}

	result.Message += SuppressionSuffix
	result.SetMeta(models.MetaSuppressed, true)
	result.SetMeta(models.MetaSuppressionReason, SuppressionReasonMaintenance)
	return true, nil
}

func (p *Pipeline) persist(ctx context.Context, result *models.CheckResult, shots []models.Screenshot) error {
	if err := p.store.CreateResult(ctx, result); err != nil {
		return err
	}
	if len(shots) == 0 {
		return nil
	}
	for i := range shots {
		shots[i].CheckResultID = result.ID
	}
	return p.store.CreateScreenshots(ctx, shots)
}

// guard runs fn, converting a panic into a *PipelineError
func (p *Pipeline) guard(stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic in result pipeline",
				zap.String("stage", stage),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			err = &PipelineError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := fn(); err != nil {
		return &PipelineError{Stage: stage, Err: err}
	}
	return nil
}

func (p *Pipeline) isolated(stage string, result *models.CheckResult, fn func() error) {
	if err := p.guard(stage, fn); err != nil {
		p.metrics.PipelineFailure(stage)
		p.logger.Warn("result stage failed",
			zap.Int("monitor_id", result.MonitorID),
			zap.String("stage", stage),
			zap.Error(err))
	}
}

// ExtractArtifacts moves screenshots of failed journey steps into
// separate artifacts and strips screenshot data from every step.
func ExtractArtifacts(result *models.CheckResult) []models.Screenshot {
	var shots []models.Screenshot
	for i := range result.JourneySteps {
		step := &result.JourneySteps[i]
		if step.Status == models.StepFailed && len(step.Screenshot) > 0 {
			shots = append(shots, models.Screenshot{
				StepIndex: step.Index,
				Label:     step.Label,
				Data:      step.Screenshot,
			})
		}
		step.Screenshot = nil
	}
	if len(shots) > 0 {
		result.SetMeta(models.MetaScreenshotCount, len(shots))
	}
	return shots
}
