// Package monitor runs checks: config enrichment, the bounded executor,
// failure synthesis and the probe registry.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/tekuonline/uptivalab/internal/models"
)

// CheckRequest is everything a probe needs to run one check
type CheckRequest struct {
	ID       int
	Name     string
	Kind     models.Kind
	Interval time.Duration
	Timeout  time.Duration
	Config   KindConfig
}

// Checker executes a single check. An error means the check could not be
// executed at all; a probe-observed failure is a result with StatusDown.
type Checker interface {
	Check(ctx context.Context, req *CheckRequest) (*models.CheckResult, error)
}

// Probe is a Checker for one monitor kind
type Probe interface {
	Kind() models.Kind
	Check(ctx context.Context, req *CheckRequest) (*models.CheckResult, error)
}

// builtinProbes holds the stateless probes registered by init functions
var builtinProbes = make(map[models.Kind]Probe)

func registerBuiltin(p Probe) {
	builtinProbes[p.Kind()] = p
}

// Registry dispatches check requests to the probe for their kind
type Registry struct {
	probes map[models.Kind]Probe
}

// NewRegistry creates a registry holding the built-in probes plus extra.
// Extra probes replace built-ins of the same kind.
func NewRegistry(extra ...Probe) *Registry {
	r := &Registry{probes: make(map[models.Kind]Probe, len(builtinProbes)+len(extra))}
	for kind, p := range builtinProbes {
		r.probes[kind] = p
	}
	for _, p := range extra {
		r.probes[p.Kind()] = p
	}
	return r
}

// Probe returns the probe registered for kind
func (r *Registry) Probe(kind models.Kind) (Probe, bool) {
	p, ok := r.probes[kind]
	return p, ok
}

// Check runs req through the probe registered for its kind
func (r *Registry) Check(ctx context.Context, req *CheckRequest) (*models.CheckResult, error) {
	p, ok := r.probes[req.Kind]
	if !ok {
		return nil, fmt.Errorf("no probe registered for monitor kind %q", req.Kind)
	}
	if req.Config == nil || req.Config.Kind() != req.Kind {
		return nil, fmt.Errorf("config does not match monitor kind %q", req.Kind)
	}
	return p.Check(ctx, req)
}

// newResult starts a down result for req, stamped now
func newResult(req *CheckRequest) *models.CheckResult {
	return &models.CheckResult{
		MonitorID: req.ID,
		Status:    models.StatusDown,
		CheckedAt: time.Now().UTC(),
	}
}

func setLatency(r *models.CheckResult, d time.Duration) int64 {
	ms := d.Milliseconds()
	r.LatencyMs = &ms
	return ms
}

// timeoutOr returns the request timeout, or def when unset
func timeoutOr(req *CheckRequest, def time.Duration) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return def
}

// networkFor narrows a base network to the requested IP version
func networkFor(baseNetwork, ipVersion string) string {
	switch ipVersion {
	case "ipv4":
		switch baseNetwork {
		case "tcp", "udp", "ip":
			return baseNetwork + "4"
		}
	case "ipv6":
		switch baseNetwork {
		case "tcp", "udp", "ip":
			return baseNetwork + "6"
		}
	}
	return baseNetwork
}
