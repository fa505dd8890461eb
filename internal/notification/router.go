package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tekuonline/uptivalab/internal/models"
)

// ChannelSource loads the channels a monitor notifies
type ChannelSource interface {
	ChannelsForMonitor(ctx context.Context, monitorID int) ([]models.NotificationChannel, error)
}

// StatusHistory returns the status of the last unsuppressed result stored
// before the given result.
type StatusHistory interface {
	PreviousStatus(ctx context.Context, monitorID int, beforeID int64) (models.Status, bool, error)
}

// Router sends notifications when a monitor changes between up and down
type Router struct {
	channels ChannelSource
	history  StatusHistory
	logger   *zap.Logger

	perMinute int
	mu        sync.Mutex
	limiters  map[int]*rate.Limiter
}

// NewRouter creates a router allowing perMinute messages per channel.
// perMinute <= 0 disables throttling.
func NewRouter(channels ChannelSource, history StatusHistory, perMinute int, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		channels:  channels,
		history:   history,
		logger:    logger,
		perMinute: perMinute,
		limiters:  make(map[int]*rate.Limiter),
	}
}

// Route notifies every channel of the monitor if result is a transition
func (r *Router) Route(ctx context.Context, result *models.CheckResult, identity *models.MonitorIdentity) error {
	notify, err := r.isTransition(ctx, result)
	if err != nil {
		return err
	}
	if !notify {
		return nil
	}

	channels, err := r.channels.ChannelsForMonitor(ctx, result.MonitorID)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return nil
	}

	msg := buildMessage(result, identity)

	// Send to all channels concurrently
	errCh := make(chan error, len(channels))
	for i := range channels {
		go func(ch *models.NotificationChannel) {
			errCh <- r.send(ctx, ch, msg)
		}(&channels[i])
	}

	var errs []error
	for range channels {
		if err := <-errCh; err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to send %d/%d notifications: %w", len(errs), len(channels), errors.Join(errs...))
	}
	return nil
}

func (r *Router) isTransition(ctx context.Context, result *models.CheckResult) (bool, error) {
	if result.Status != models.StatusDown && result.Status != models.StatusUp {
		return false, nil
	}

	prev, ok, err := r.history.PreviousStatus(ctx, result.MonitorID, result.ID)
	if err != nil {
		return false, fmt.Errorf("load previous status: %w", err)
	}

	if result.Status == models.StatusDown {
		return !ok || prev != models.StatusDown, nil
	}
	return ok && prev == models.StatusDown, nil
}

func (r *Router) send(ctx context.Context, ch *models.NotificationChannel, msg *Message) error {
	if !ch.Active {
		return nil
	}

	provider, ok := GetProvider(ch.Type)
	if !ok {
		return fmt.Errorf("unknown notification provider: %s", ch.Type)
	}

	if !r.allow(ch.ID) {
		r.logger.Warn("notification rate limited",
			zap.Int("channel_id", ch.ID),
			zap.String("channel", ch.Name))
		return nil
	}

	if err := provider.Send(ctx, ch, msg); err != nil {
		r.logger.Warn("failed to send notification",
			zap.String("type", ch.Type),
			zap.String("channel", ch.Name),
			zap.Error(err))
		return err
	}
	return nil
}

func (r *Router) allow(channelID int) bool {
	if r.perMinute <= 0 {
		return true
	}

	r.mu.Lock()
	limiter, ok := r.limiters[channelID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.perMinute)), r.perMinute)
		r.limiters[channelID] = limiter
	}
	r.mu.Unlock()

	return limiter.Allow()
}

func buildMessage(result *models.CheckResult, identity *models.MonitorIdentity) *Message {
	msg := &Message{
		Body:      result.Message,
		MonitorID: result.MonitorID,
		Status:    string(result.Status),
		Time:      result.CheckedAt.UTC().Format(time.RFC3339),
		Important: result.Status == models.StatusDown,
	}
	if result.LatencyMs != nil {
		msg.LatencyMs = *result.LatencyMs
	}

	msg.MonitorName = fmt.Sprintf("Monitor %d", result.MonitorID)
	if identity != nil {
		msg.MonitorName = identity.Name
		msg.MonitorKind = string(identity.Kind)
	}

	if result.Status == models.StatusDown {
		msg.Title = fmt.Sprintf("%s is DOWN", msg.MonitorName)
	} else {
		msg.Title = fmt.Sprintf("%s is UP", msg.MonitorName)
	}
	return msg
}
