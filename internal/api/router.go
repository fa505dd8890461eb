package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tekuonline/uptivalab/internal/auth"
)

// Dependencies are the collaborators served by the router. Scheduler and
// Provisioner are optional; their routes are only mounted when set.
type Dependencies struct {
	Production  bool
	CORSOrigins []string
	Verifier    *auth.Verifier
	WebSocket   http.HandlerFunc
	Scheduler   Scheduler
	Monitors    MonitorGetter
	Provisioner Provisioner
	Gatherer    prometheus.Gatherer
	Limiter     *RateLimiter
	Strict      *RateLimiter
	Logger      *zap.Logger
}

// NewRouter creates a new HTTP router
func NewRouter(d Dependencies) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := d.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(rate.Limit(20), 40)
	}
	strict := d.Strict
	if strict == nil {
		strict = NewRateLimiter(rate.Limit(0.2), 3)
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeadersMiddleware(d.Production))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimitMiddleware(limiter))
		r.Use(AuthMiddleware(d.Verifier, logger))

		if d.Scheduler != nil {
			r.Get("/schedules", HandleGetSchedules(d.Scheduler))
			r.Put("/monitors/{id}/schedule", HandleScheduleMonitor(d.Scheduler, d.Monitors, logger))
			r.Delete("/monitors/{id}/schedule", HandleUnscheduleMonitor(d.Scheduler, logger))
			r.With(RateLimitMiddleware(strict)).
				Post("/monitors/{id}/check", HandleRunCheck(d.Scheduler, d.Monitors, logger))
		}

		if d.Provisioner != nil {
			r.Get("/provisioning", HandleGetProvisioning(d.Provisioner))
			r.With(RateLimitMiddleware(strict)).
				Post("/provisioning/ensure", HandleEnsureProvisioning(d.Provisioner, logger))
		}
	})

	// Prometheus metrics endpoint (no auth required)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// WebSocket endpoint
	if d.WebSocket != nil {
		r.Get("/ws", d.WebSocket)
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
