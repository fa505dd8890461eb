package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/tekuonline/uptivalab/internal/api"
	"github.com/tekuonline/uptivalab/internal/auth"
	"github.com/tekuonline/uptivalab/internal/config"
	"github.com/tekuonline/uptivalab/internal/database"
	"github.com/tekuonline/uptivalab/internal/incident"
	"github.com/tekuonline/uptivalab/internal/jobs"
	"github.com/tekuonline/uptivalab/internal/metrics"
	"github.com/tekuonline/uptivalab/internal/models"
	"github.com/tekuonline/uptivalab/internal/monitor"
	"github.com/tekuonline/uptivalab/internal/notification"
	"github.com/tekuonline/uptivalab/internal/pipeline"
	"github.com/tekuonline/uptivalab/internal/provision"
	"github.com/tekuonline/uptivalab/internal/queue"
	"github.com/tekuonline/uptivalab/internal/store"
	"github.com/tekuonline/uptivalab/internal/websocket"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Connect(cfg.Database, logger.Named("database"))
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	defer sqlDB.Close()

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	monitors := store.NewMonitorStore(db)
	results := store.NewResultStore(db)
	verifier := auth.NewVerifier(cfg.JWTSecret)

	var natsConn *nats.Conn
	if cfg.NATS.Enabled() {
		natsConn, err = queue.Connect(cfg.NATS.URL, logger)
		if err != nil {
			return err
		}
		defer natsConn.Close()
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := websocket.NewHub(verifier, cfg.CORSOrigins, m, logger.Named("websocket"))
	go hub.Run(hubCtx)

	deps := api.Dependencies{
		Production:  cfg.Environment == "production",
		CORSOrigins: cfg.CORSOrigins,
		Verifier:    verifier,
		WebSocket:   hub.HandleWebSocket,
		Monitors:    monitors,
		Gatherer:    registry,
		Logger:      logger.Named("api"),
	}

	var (
		synth    *monitor.FailureSynthesizer
		consumer *queue.Consumer
		inflight sync.WaitGroup
	)

	if cfg.Executor.Enabled {
		gate := provision.NewGate(provision.GateOptions{
			Installer:    provision.NewCommandInstaller(logger.Named("provision")),
			LoadConfig:   config.LoadProvisioning,
			PollInterval: cfg.Provision.PollInterval,
			Metrics:      m,
			Logger:       logger.Named("provision"),
		})
		deps.Provisioner = gate

		if cfg.Provision.OnStart {
			go func() {
				if err := gate.Ensure(ctx); err != nil {
					logger.Warn("browser runtime not provisioned at startup", zap.Error(err))
				}
			}()
		}

		router := notification.NewRouter(store.NewNotificationStore(db), results, cfg.Notify.RatePerMinute, logger.Named("notification"))
		incidents := incident.NewManager(store.NewIncidentStore(db), logger.Named("incident"))

		p := pipeline.New(pipeline.Options{
			Suppression: store.NewMaintenanceStore(db),
			Store:       results,
			Broadcaster: hub,
			Router:      router,
			Incidents:   incidents,
			Metrics:     m,
			Logger:      logger.Named("pipeline"),
		})

		executor := monitor.NewExecutor(monitor.ExecutorOptions{
			Monitors:    monitors,
			Enricher:    monitor.NewEnricher(store.NewSettingsStore(db), logger.Named("enrich")),
			Checker: monitor.NewRegistry(
				monitor.NewSyntheticProbe(gate),
				monitor.NewHTTPProbe(monitor.NewAddressGuard(cfg.Executor.BlockPrivateTargets)),
			),
			Gate:        gate,
			Results:     p,
			Metrics:     m,
			Logger:      logger.Named("executor"),
			Concurrency: cfg.Executor.Concurrency,
		})
		synth = monitor.NewFailureSynthesizer(executor, monitors, p, m, logger.Named("executor"))

		if natsConn != nil {
			consumer = queue.NewConsumer(synth, logger.Named("queue"))
			if err := consumer.Start(natsConn, cfg.NATS.Subject, cfg.NATS.Queue); err != nil {
				return err
			}
		}
	}

	var scheduler *jobs.Scheduler
	if cfg.Scheduler.Enabled {
		var dispatcher jobs.Dispatcher
		if natsConn != nil {
			dispatcher = queue.NewPublisher(natsConn, cfg.NATS.Subject)
		} else {
			dispatcher = jobs.DispatchFunc(func(ctx context.Context, job models.CheckJob) error {
				inflight.Add(1)
				go func() {
					defer inflight.Done()
					synth.Handle(context.WithoutCancel(ctx), job)
				}()
				return nil
			})
		}

		scheduler = jobs.NewScheduler(jobs.Options{
			Monitors:      monitors,
			Schedules:     store.NewScheduleStore(db),
			Results:       results,
			Dispatcher:    dispatcher,
			Metrics:       m,
			Logger:        logger.Named("scheduler"),
			RetentionDays: cfg.Scheduler.RetentionDays,
		})

		report, err := scheduler.Bootstrap(ctx)
		if err != nil {
			logger.Error("scheduler bootstrap failed", zap.Error(err))
		} else if report.Failed > 0 {
			logger.Warn("some monitors could not be scheduled",
				zap.Int("failed", report.Failed), zap.Int("total", report.Total))
		}
		scheduler.Start()
		deps.Scheduler = scheduler
	}

	limiter := api.NewRateLimiter(20, 40)
	go limiter.RunCleanup(ctx)
	deps.Limiter = limiter

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Warn("scheduler stop timed out", zap.Error(err))
		}
	}
	if consumer != nil {
		if err := consumer.Stop(shutdownCtx); err != nil {
			logger.Warn("job consumer stop timed out", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("in-flight checks did not finish before shutdown")
	}

	stopHub()
	logger.Info("server exited")
	return nil
}
