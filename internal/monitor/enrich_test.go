package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tekuonline/uptivalab/internal/models"
)

func TestEnrich_CertificateWarningDays(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		config   map[string]interface{}
		settings fakeSettings
		want     int
	}{
		{
			name:   "fallback constant",
			config: map[string]interface{}{"host": "example.com"},
			want:   30,
		},
		{
			name:     "global default",
			config:   map[string]interface{}{"host": "example.com"},
			settings: fakeSettings{SettingCertificateWarningDays: "14"},
			want:     14,
		},
		{
			name:     "explicit value wins",
			config:   map[string]interface{}{"host": "example.com", "warningDays": 10},
			settings: fakeSettings{SettingCertificateWarningDays: "14"},
			want:     10,
		},
		{
			name:     "malformed setting falls back",
			config:   map[string]interface{}{"host": "example.com"},
			settings: fakeSettings{SettingCertificateWarningDays: `"soon"`},
			want:     30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEnricher(tt.settings, zap.NewNop())
			m := &models.Monitor{ID: 1, Kind: models.KindCertificate, Config: tt.config}

			cfg, err := e.Enrich(ctx, m, nil)
			require.NoError(t, err)

			cert, ok := cfg.(*CertificateConfig)
			require.True(t, ok)
			require.NotNil(t, cert.WarningDays)
			assert.Equal(t, tt.want, *cert.WarningDays)
		})
	}
}

func TestEnrich_Push(t *testing.T) {
	ctx := context.Background()
	e := NewEnricher(nil, zap.NewNop())
	last := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("CET", 3600))

	m := &models.Monitor{ID: 7, Kind: models.KindPush}
	cont := &models.Continuity{MonitorID: 7, HeartbeatEvery: 120, LastHeartbeat: &last}

	cfg, err := e.Enrich(ctx, m, cont)
	require.NoError(t, err)
	push := cfg.(*PushConfig)
	require.NotNil(t, push.HeartbeatSeconds)
	assert.Equal(t, 120, *push.HeartbeatSeconds)
	require.NotNil(t, push.LastHeartbeatAt)
	assert.Equal(t, "2026-03-04T04:06:07.000Z", *push.LastHeartbeatAt)

	parsed, err := parseHeartbeatTime(*push.LastHeartbeatAt)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(last))
}

func TestEnrich_PushExplicitIntervalAndNoHeartbeat(t *testing.T) {
	e := NewEnricher(nil, zap.NewNop())
	m := &models.Monitor{ID: 7, Kind: models.KindPush, Config: map[string]interface{}{"heartbeatSeconds": 60}}
	cont := &models.Continuity{MonitorID: 7, HeartbeatEvery: 120}

	cfg, err := e.Enrich(context.Background(), m, cont)
	require.NoError(t, err)
	push := cfg.(*PushConfig)
	assert.Equal(t, 60, *push.HeartbeatSeconds)
	assert.Nil(t, push.LastHeartbeatAt)

	encoded, err := EncodeConfig(push)
	require.NoError(t, err)
	assert.NotContains(t, encoded, "lastHeartbeatAt")
}

func TestEnrich_IsIdempotent(t *testing.T) {
	e := NewEnricher(fakeSettings{SettingCertificateWarningDays: "21"}, zap.NewNop())
	m := &models.Monitor{ID: 3, Kind: models.KindCertificate, Config: map[string]interface{}{"host": "a.example"}}

	first, err := e.Enrich(context.Background(), m, nil)
	require.NoError(t, err)
	second, err := e.Enrich(context.Background(), m, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotContains(t, m.Config, "warningDays", "stored config must not be mutated")
}

func TestDecodeConfig_UnknownKind(t *testing.T) {
	_, err := DecodeConfig(models.Kind("smtp"), nil)
	assert.Error(t, err)
}

func TestDecodeConfig_Typed(t *testing.T) {
	cfg, err := DecodeConfig(models.KindHTTP, map[string]interface{}{
		"url":                 "https://example.com",
		"acceptedStatusCodes": []interface{}{200.0, 204.0},
		"followRedirects":     false,
	})
	require.NoError(t, err)

	httpCfg := cfg.(*HTTPConfig)
	assert.Equal(t, "https://example.com", httpCfg.URL)
	assert.Equal(t, []int{200, 204}, httpCfg.AcceptedStatusCodes)
	require.NotNil(t, httpCfg.FollowRedirects)
	assert.False(t, *httpCfg.FollowRedirects)
}
