package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tekuonline/uptivalab/internal/jobs"
	"github.com/tekuonline/uptivalab/internal/models"
	"github.com/tekuonline/uptivalab/internal/provision"
)

// Scheduler is the trigger registry exposed over HTTP
type Scheduler interface {
	Jobs() []jobs.Job
	ScheduleMonitor(ctx context.Context, monitorID int, intervalMs int64) error
	CancelMonitor(ctx context.Context, monitorID int) error
	RunNow(ctx context.Context, monitorID int) error
}

// MonitorGetter loads a single monitor; nil, nil when it does not exist
type MonitorGetter interface {
	Get(ctx context.Context, id int) (*models.Monitor, error)
}

// Provisioner exposes the browser runtime gate
type Provisioner interface {
	State() provision.State
	ExecutablePath() string
	Ensure(ctx context.Context) error
}

// ScheduleResponse reports the trigger state of one monitor
type ScheduleResponse struct {
	MonitorID  int    `json:"monitor_id"`
	Key        string `json:"key"`
	Scheduled  bool   `json:"scheduled"`
	IntervalMs int64  `json:"interval_ms,omitempty"`
}

// ProvisioningResponse reports the browser runtime state
type ProvisioningResponse struct {
	State          string `json:"state"`
	ExecutablePath string `json:"executable_path,omitempty"`
	Error          string `json:"error,omitempty"`
	Stage          string `json:"stage,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func monitorIDParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// HandleGetSchedules lists the active triggers
func HandleGetSchedules(s Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Jobs())
	}
}

// HandleScheduleMonitor creates or replaces the trigger of a monitor from
// its stored interval. Paused monitors are unscheduled instead.
func HandleScheduleMonitor(s Scheduler, monitors MonitorGetter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := monitorIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid monitor id")
			return
		}

		mon, err := monitors.Get(r.Context(), id)
		if err != nil {
			logger.Error("failed to load monitor", zap.Int("monitor_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load monitor")
			return
		}
		if mon == nil {
			writeError(w, http.StatusNotFound, "monitor not found")
			return
		}

		resp := ScheduleResponse{MonitorID: id, Key: jobs.JobKey(id)}
		if mon.Paused {
			if err := s.CancelMonitor(r.Context(), id); err != nil {
				logger.Error("failed to unschedule paused monitor", zap.Int("monitor_id", id), zap.Error(err))
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, resp)
			return
		}

		intervalMs := mon.IntervalDuration().Milliseconds()
		if err := s.ScheduleMonitor(r.Context(), id, intervalMs); err != nil {
			var se *jobs.SchedulingError
			if errors.As(err, &se) {
				writeError(w, http.StatusInternalServerError, se.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to schedule monitor")
			return
		}

		resp.Scheduled = true
		resp.IntervalMs = intervalMs
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleUnscheduleMonitor removes the trigger of a monitor
func HandleUnscheduleMonitor(s Scheduler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := monitorIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid monitor id")
			return
		}

		if err := s.CancelMonitor(r.Context(), id); err != nil {
			logger.Error("failed to unschedule monitor", zap.Int("monitor_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRunCheck dispatches one immediate check of a monitor
func HandleRunCheck(s Scheduler, monitors MonitorGetter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := monitorIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid monitor id")
			return
		}

		mon, err := monitors.Get(r.Context(), id)
		if err != nil {
			logger.Error("failed to load monitor", zap.Int("monitor_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load monitor")
			return
		}
		if mon == nil {
			writeError(w, http.StatusNotFound, "monitor not found")
			return
		}

		if err := s.RunNow(r.Context(), id); err != nil {
			logger.Error("failed to dispatch check", zap.Int("monitor_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to dispatch check")
			return
		}
		writeJSON(w, http.StatusAccepted, ScheduleResponse{MonitorID: id, Key: jobs.JobKey(id)})
	}
}

// HandleGetProvisioning reports the browser runtime state
func HandleGetProvisioning(p Provisioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ProvisioningResponse{
			State:          p.State().String(),
			ExecutablePath: p.ExecutablePath(),
		})
	}
}

// HandleEnsureProvisioning blocks until the browser runtime is ready or
// the attempt fails.
func HandleEnsureProvisioning(p Provisioner, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.Ensure(r.Context()); err != nil {
			resp := ProvisioningResponse{State: p.State().String(), Error: err.Error()}
			var pe *provision.ProvisioningError
			if errors.As(err, &pe) {
				resp.Stage = pe.Stage
			}
			logger.Warn("browser runtime provisioning failed", zap.Error(err))
			writeJSON(w, http.StatusBadGateway, resp)
			return
		}

		writeJSON(w, http.StatusOK, ProvisioningResponse{
			State:          p.State().String(),
			ExecutablePath: p.ExecutablePath(),
		})
	}
}
