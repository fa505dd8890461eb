package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tekuonline/uptivalab/internal/models"
)

type staticChannels []models.NotificationChannel

func (s staticChannels) ChannelsForMonitor(context.Context, int) ([]models.NotificationChannel, error) {
	return append([]models.NotificationChannel(nil), s...), nil
}

type fixedHistory struct {
	status models.Status
	ok     bool
}

func (h fixedHistory) PreviousStatus(context.Context, int, int64) (models.Status, bool, error) {
	return h.status, h.ok, nil
}

type webhookSink struct {
	mu       sync.Mutex
	payloads []map[string]interface{}
}

func (s *webhookSink) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		s.mu.Lock()
		s.payloads = append(s.payloads, body)
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (s *webhookSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func webhookChannel(id int, url string) models.NotificationChannel {
	return models.NotificationChannel{ID: id, Name: "ops", Type: "webhook", Active: true,
		Config: map[string]interface{}{"webhook_url": url}}
}

func TestRouter_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		status  models.Status
		history fixedHistory
		want    int
	}{
		{name: "first down", status: models.StatusDown, want: 1},
		{name: "up to down", status: models.StatusDown, history: fixedHistory{models.StatusUp, true}, want: 1},
		{name: "still down", status: models.StatusDown, history: fixedHistory{models.StatusDown, true}, want: 0},
		{name: "recovered", status: models.StatusUp, history: fixedHistory{models.StatusDown, true}, want: 1},
		{name: "still up", status: models.StatusUp, history: fixedHistory{models.StatusUp, true}, want: 0},
		{name: "first up", status: models.StatusUp, want: 0},
		{name: "pending", status: models.StatusPending, history: fixedHistory{models.StatusDown, true}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &webhookSink{}
			srv := sink.server(t)
			r := NewRouter(staticChannels{webhookChannel(1, srv.URL)}, tt.history, 0, zap.NewNop())

			result := &models.CheckResult{ID: 10, MonitorID: 1, Status: tt.status, Message: "x", CheckedAt: time.Now()}
			require.NoError(t, r.Route(context.Background(), result, &models.MonitorIdentity{ID: 1, Name: "api"}))
			assert.Equal(t, tt.want, sink.count())
		})
	}
}

func TestRouter_WebhookPayload(t *testing.T) {
	sink := &webhookSink{}
	srv := sink.server(t)
	r := NewRouter(staticChannels{webhookChannel(1, srv.URL)}, fixedHistory{}, 0, zap.NewNop())

	latency := int64(42)
	result := &models.CheckResult{ID: 1, MonitorID: 3, Status: models.StatusDown, Message: "connection refused",
		LatencyMs: &latency, CheckedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, r.Route(context.Background(), result, &models.MonitorIdentity{ID: 3, Name: "db", Kind: models.KindDatabase}))

	require.Equal(t, 1, sink.count())
	p := sink.payloads[0]
	assert.Equal(t, "db is DOWN", p["title"])
	assert.Equal(t, "connection refused", p["body"])
	assert.Equal(t, "database", p["monitor_kind"])
	assert.EqualValues(t, 42, p["latency_ms"])
	assert.Equal(t, true, p["important"])
	assert.Equal(t, "2026-01-01T00:00:00Z", p["time"])
}

func TestRouter_FailingChannelDoesNotBlockOthers(t *testing.T) {
	sink := &webhookSink{}
	srv := sink.server(t)
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	r := NewRouter(staticChannels{webhookChannel(1, broken.URL), webhookChannel(2, srv.URL)}, fixedHistory{}, 0, zap.NewNop())
	err := r.Route(context.Background(), &models.CheckResult{ID: 1, MonitorID: 1, Status: models.StatusDown}, nil)

	assert.ErrorContains(t, err, "1/2")
	assert.Equal(t, 1, sink.count())
}

func TestRouter_RateLimit(t *testing.T) {
	sink := &webhookSink{}
	srv := sink.server(t)
	r := NewRouter(staticChannels{webhookChannel(1, srv.URL)}, fixedHistory{}, 2, zap.NewNop())

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Route(context.Background(), &models.CheckResult{ID: int64(i), MonitorID: 1, Status: models.StatusDown}, nil))
	}
	assert.Equal(t, 2, sink.count())
}

func TestRouter_SkipsInactiveAndUnknown(t *testing.T) {
	inactive := webhookChannel(1, "http://127.0.0.1:1")
	inactive.Active = false
	unknown := models.NotificationChannel{ID: 2, Type: "carrier-pigeon", Active: true}

	r := NewRouter(staticChannels{inactive, unknown}, fixedHistory{}, 0, zap.NewNop())
	err := r.Route(context.Background(), &models.CheckResult{MonitorID: 1, Status: models.StatusDown}, nil)
	assert.ErrorContains(t, err, "carrier-pigeon")
}

func TestSlackProvider(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	ch := &models.NotificationChannel{Type: "slack", Config: map[string]interface{}{"webhook_url": srv.URL, "channel": "#ops"}}
	require.NoError(t, (&SlackProvider{}).Send(context.Background(), ch, &Message{Title: "api is UP", Status: "up"}))

	assert.Equal(t, "#ops", got["channel"])
	assert.Equal(t, ":white_check_mark:", got["icon_emoji"])

	assert.Error(t, (&SlackProvider{}).Send(context.Background(), &models.NotificationChannel{}, &Message{}))
}
