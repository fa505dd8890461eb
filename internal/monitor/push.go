package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/tekuonline/uptivalab/internal/models"
)

// PushProbe evaluates heartbeat staleness for passive monitors. It never
// reaches out; the enriched config carries the last contact time.
type PushProbe struct {
	now func() time.Time
}

func init() {
	registerBuiltin(&PushProbe{})
}

func (p *PushProbe) Kind() models.Kind {
	return models.KindPush
}

func (p *PushProbe) Check(ctx context.Context, req *CheckRequest) (*models.CheckResult, error) {
	cfg, ok := req.Config.(*PushConfig)
	if !ok {
		return nil, fmt.Errorf("push probe: unexpected config %T", req.Config)
	}
	result := newResult(req)

	if cfg.LastHeartbeatAt == nil {
		result.Status = models.StatusPending
		result.Message = "No heartbeat received yet"
		return result, nil
	}

	last, err := parseHeartbeatTime(*cfg.LastHeartbeatAt)
	if err != nil {
		return nil, fmt.Errorf("push probe: invalid lastHeartbeatAt %q: %w", *cfg.LastHeartbeatAt, err)
	}

	every := req.Interval
	if cfg.HeartbeatSeconds != nil && *cfg.HeartbeatSeconds > 0 {
		every = time.Duration(*cfg.HeartbeatSeconds) * time.Second
	}
	deadline := last.Add(every + time.Duration(cfg.GraceSeconds)*time.Second)

	now := time.Now()
	if p.now != nil {
		now = p.now()
	}

	age := now.Sub(last)
	result.SetMeta("lastHeartbeatAt", *cfg.LastHeartbeatAt)
	result.SetMeta("secondsSinceHeartbeat", int64(age.Seconds()))

	if now.After(deadline) {
		result.Message = fmt.Sprintf("No heartbeat for %s (expected every %s)",
			age.Truncate(time.Second), every)
		return result, nil
	}

	result.Status = models.StatusUp
	result.Message = fmt.Sprintf("Last heartbeat %s ago", age.Truncate(time.Second))
	return result, nil
}
