package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMaintenanceWindow_ActiveAt(t *testing.T) {
	at := func(s string) time.Time {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			t.Fatal(err)
		}
		return ts
	}

	tests := []struct {
		name   string
		window MaintenanceWindow
		t      string
		want   bool
	}{
		{
			name:   "once inside",
			window: MaintenanceWindow{StartsAt: at("2026-03-01T10:00:00Z"), EndsAt: at("2026-03-01T12:00:00Z")},
			t:      "2026-03-01T11:00:00Z",
			want:   true,
		},
		{
			name:   "once after",
			window: MaintenanceWindow{StartsAt: at("2026-03-01T10:00:00Z"), EndsAt: at("2026-03-01T12:00:00Z")},
			t:      "2026-03-02T11:00:00Z",
		},
		{
			name:   "daily any day",
			window: MaintenanceWindow{Recurrence: RecurrenceDaily, StartsAt: at("2026-03-01T02:00:00Z"), EndsAt: at("2026-03-01T03:00:00Z")},
			t:      "2026-07-19T02:30:00Z",
			want:   true,
		},
		{
			name:   "daily across midnight",
			window: MaintenanceWindow{Recurrence: RecurrenceDaily, StartsAt: at("2026-03-01T22:00:00Z"), EndsAt: at("2026-03-02T02:00:00Z")},
			t:      "2026-05-05T01:00:00Z",
			want:   true,
		},
		{
			name:   "daily outside",
			window: MaintenanceWindow{Recurrence: RecurrenceDaily, StartsAt: at("2026-03-01T22:00:00Z"), EndsAt: at("2026-03-02T02:00:00Z")},
			t:      "2026-05-05T12:00:00Z",
		},
		{
			name:   "weekly wrong weekday",
			window: MaintenanceWindow{Recurrence: RecurrenceWeekly, StartsAt: at("2026-03-01T02:00:00Z"), EndsAt: at("2026-03-01T03:00:00Z")},
			t:      "2026-03-02T02:30:00Z",
		},
		{
			name:   "weekly same weekday",
			window: MaintenanceWindow{Recurrence: RecurrenceWeekly, StartsAt: at("2026-03-01T02:00:00Z"), EndsAt: at("2026-03-01T03:00:00Z")},
			t:      "2026-03-08T02:30:00Z",
			want:   true,
		},
		{
			name:   "monthly same day",
			window: MaintenanceWindow{Recurrence: RecurrenceMonthly, StartsAt: at("2026-03-15T02:00:00Z"), EndsAt: at("2026-03-15T03:00:00Z")},
			t:      "2026-06-15T02:00:00Z",
			want:   true,
		},
		{
			name:   "unknown recurrence",
			window: MaintenanceWindow{Recurrence: "hourly", StartsAt: at("2026-03-01T00:00:00Z"), EndsAt: at("2026-03-31T00:00:00Z")},
			t:      "2026-03-10T00:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.window.ActiveAt(at(tt.t)))
		})
	}
}

func TestCheckResult_Meta(t *testing.T) {
	var r CheckResult
	assert.False(t, r.Suppressed())

	r.SetMeta(MetaSuppressed, true)
	assert.True(t, r.Suppressed())

	r.SetMeta(MetaSuppressed, "yes")
	assert.False(t, r.Suppressed())
}
