// Package provision gates the one-time installation of the headless
// browser runtime used by synthetic checks.
package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tekuonline/uptivalab/internal/config"
	"github.com/tekuonline/uptivalab/internal/metrics"
)

// State is the process-wide provisioning state
type State int

const (
	NotStarted State = iota
	InProgress
	Done
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Failure stages
const (
	StageDependencies = "dependencies"
	StageArtifact     = "artifact"
	StageTimeout      = "timeout"
)

// ErrSystemDependencies is wrapped by every dependency-stage failure
var ErrSystemDependencies = errors.New("system dependencies unavailable")

// ProvisioningError describes a failed provisioning attempt
type ProvisioningError struct {
	Stage string
	Err   error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("browser provisioning failed (%s): %v", e.Stage, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// Installer performs the individual provisioning stages
type Installer interface {
	// FindArtifact returns the executable path if the runtime is installed
	FindArtifact(cfg config.ProvisionConfig) (string, bool)
	// MissingDependencies lists required system dependencies not present
	MissingDependencies(cfg config.ProvisionConfig) []string
	InstallDependencies(ctx context.Context, cfg config.ProvisionConfig) error
	InstallArtifact(ctx context.Context, cfg config.ProvisionConfig) error
}

// GateOptions configures a Gate
type GateOptions struct {
	Installer Installer
	// LoadConfig is called at the start of every attempt
	LoadConfig   func() config.ProvisionConfig
	PollInterval time.Duration
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

// attempt is one provisioning run shared by every caller that joined it
type attempt struct {
	done bool
	err  error
}

// Gate guarantees that at most one provisioning attempt runs at a time and
// that every concurrent caller observes that attempt's outcome.
type Gate struct {
	installer    Installer
	loadConfig   func() config.ProvisionConfig
	pollInterval time.Duration
	metrics      *metrics.Metrics
	logger       *zap.Logger

	mu       sync.Mutex
	state    State
	current  *attempt
	execPath string
}

// NewGate creates a new provisioning gate in state NotStarted
func NewGate(opts GateOptions) *Gate {
	g := &Gate{
		installer:    opts.Installer,
		loadConfig:   opts.LoadConfig,
		pollInterval: opts.PollInterval,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
	}
	if g.installer == nil {
		g.installer = NewCommandInstaller(nil)
	}
	if g.loadConfig == nil {
		g.loadConfig = config.LoadProvisioning
	}
	if g.pollInterval <= 0 {
		g.pollInterval = time.Second
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

// State returns the current provisioning state
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// ExecutablePath returns the browser executable, or "" until Done
func (g *Gate) ExecutablePath() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.execPath
}

// Ensure returns nil once the runtime is installed. The first caller that
// finds the gate NotStarted starts an attempt; every caller then waits for
// the attempt it joined and returns that attempt's error. The attempt
// itself is not cancelled by any caller's ctx.
func (g *Gate) Ensure(ctx context.Context) error {
	g.mu.Lock()
	switch g.state {
	case Done:
		g.mu.Unlock()
		return nil
	case InProgress:
		a := g.current
		g.mu.Unlock()
		return g.wait(ctx, a)
	}

	a := &attempt{}
	g.current = a
	g.state = InProgress
	g.mu.Unlock()

	g.metrics.ProvisioningAttempt("started")
	go g.run(context.WithoutCancel(ctx), a)
	return g.wait(ctx, a)
}

func (g *Gate) wait(ctx context.Context, a *attempt) error {
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		g.mu.Lock()
		done, err := a.done, a.err
		g.mu.Unlock()
		if done {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (g *Gate) run(parent context.Context, a *attempt) {
	cfg := g.loadConfig()

	var path string
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &ProvisioningError{Stage: StageArtifact, Err: fmt.Errorf("panic: %v", r)}
			}
		}()
		path, err = g.provision(parent, cfg)
	}()

	g.mu.Lock()
	if err == nil {
		g.state = Done
		g.execPath = path
	} else {
		g.state = NotStarted
	}
	a.done, a.err = true, err
	g.current = nil
	g.mu.Unlock()

	if err != nil {
		g.metrics.ProvisioningAttempt("failed")
		g.logger.Error("browser provisioning failed", zap.Error(err))
		return
	}
	g.metrics.ProvisioningAttempt("succeeded")
	g.logger.Info("browser runtime ready", zap.String("executable", path))
}

func (g *Gate) provision(parent context.Context, cfg config.ProvisionConfig) (string, error) {
	if path, ok := g.installer.FindArtifact(cfg); ok {
		g.logger.Info("browser runtime already installed", zap.String("executable", path))
		return path, nil
	}

	ctx, cancel := context.WithTimeout(parent, cfg.InstallTimeout)
	defer cancel()

	if missing := g.installer.MissingDependencies(cfg); len(missing) > 0 {
		g.logger.Warn("installing missing system dependencies", zap.Strings("missing", missing))
		if err := g.installer.InstallDependencies(ctx, cfg); err != nil {
			return "", &ProvisioningError{Stage: StageDependencies, Err: fmt.Errorf("%w: %w", ErrSystemDependencies, err)}
		}
		if still := g.installer.MissingDependencies(cfg); len(still) > 0 {
			return "", &ProvisioningError{
				Stage: StageDependencies,
				Err:   fmt.Errorf("%w: still missing %s", ErrSystemDependencies, strings.Join(still, ", ")),
			}
		}
	}

	g.logger.Info("installing browser runtime",
		zap.String("path", cfg.InstallPath),
		zap.Duration("timeout", cfg.InstallTimeout))

	if err := g.installer.InstallArtifact(ctx, cfg); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &ProvisioningError{
				Stage: StageTimeout,
				Err:   fmt.Errorf("install exceeded %s: %w", cfg.InstallTimeout, err),
			}
		}
		return "", &ProvisioningError{Stage: StageArtifact, Err: err}
	}

	path, ok := g.installer.FindArtifact(cfg)
	if !ok {
		return "", &ProvisioningError{
			Stage: StageArtifact,
			Err:   fmt.Errorf("install finished but no executable matches %q", cfg.ExecutableGlob),
		}
	}
	return path, nil
}
