package monitor

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/tekuonline/uptivalab/internal/models"
)

// Settings keys and fallbacks used during enrichment
const (
	SettingCertificateWarningDays = "certificate_warning_days"
	DefaultCertificateWarningDays = 30
)

// isoMillis matches the ISO-8601 form produced by browsers and push clients
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Settings provides dynamic global defaults stored as JSON
type Settings interface {
	Lookup(ctx context.Context, key string) (json.RawMessage, bool, error)
}

// SettingOr returns the setting stored under key decoded as T, or def when
// the key is unset, unreadable or of the wrong shape.
func SettingOr[T any](ctx context.Context, s Settings, key string, def T) T {
	if s == nil {
		return def
	}
	raw, ok, err := s.Lookup(ctx, key)
	if err != nil || !ok {
		return def
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def
	}
	return v
}

// Enricher builds the effective per-check config of a monitor from its
// stored config, its continuity record and global settings.
type Enricher struct {
	settings Settings
	logger   *zap.Logger
}

// NewEnricher creates a new config enricher
func NewEnricher(settings Settings, logger *zap.Logger) *Enricher {
	return &Enricher{settings: settings, logger: logger}
}

// Enrich returns the typed effective config. Explicit per-monitor values
// are never overwritten. continuity may be nil.
func (e *Enricher) Enrich(ctx context.Context, m *models.Monitor, continuity *models.Continuity) (KindConfig, error) {
	cfg, err := DecodeConfig(m.Kind, m.Config)
	if err != nil {
		return nil, err
	}

	switch c := cfg.(type) {
	case *CertificateConfig:
		if c.WarningDays == nil {
			days := SettingOr(ctx, e.settings, SettingCertificateWarningDays, DefaultCertificateWarningDays)
			c.WarningDays = &days
		}
	case *PushConfig:
		enrichPush(c, continuity)
	}

	if e.logger != nil {
		e.logger.Debug("enriched monitor config",
			zap.Int("monitor_id", m.ID),
			zap.String("kind", string(m.Kind)))
	}
	return cfg, nil
}

func enrichPush(c *PushConfig, continuity *models.Continuity) {
	if continuity == nil {
		c.LastHeartbeatAt = nil
		return
	}
	if c.HeartbeatSeconds == nil && continuity.HeartbeatEvery > 0 {
		every := continuity.HeartbeatEvery
		c.HeartbeatSeconds = &every
	}
	if continuity.LastHeartbeat == nil {
		c.LastHeartbeatAt = nil
		return
	}
	stamp := continuity.LastHeartbeat.UTC().Format(isoMillis)
	c.LastHeartbeatAt = &stamp
}

// parseHeartbeatTime parses a stamped lastHeartbeatAt value
func parseHeartbeatTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
