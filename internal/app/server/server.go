package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/go-chi/chi/v5"

	"staffeval/internal/domain/audit"
	"staffeval/internal/domain/auth"
	"staffeval/internal/domain/dashboard"
	"staffeval/internal/domain/evaluation"
	"staffeval/internal/domain/feedback"
	"staffeval/internal/domain/goals"
	"staffeval/internal/domain/notifications"
	"staffeval/internal/domain/staff"
	"staffeval/internal/domain/tenant"
	"staffeval/internal/platform/config"
	"staffeval/internal/platform/crypto"
	"staffeval/internal/platform/db"
	"staffeval/internal/platform/email"
	"staffeval/internal/platform/jobs"
	"staffeval/internal/platform/metrics"
	"staffeval/internal/platform/otel"
	audithandler "staffeval/internal/transport/http/handlers/audit"
	authhandler "staffeval/internal/transport/http/handlers/auth"
	dashboardhandler "staffeval/internal/transport/http/handlers/dashboard"
	evaluationhandler "staffeval/internal/transport/http/handlers/evaluation"
	feedbackhandler "staffeval/internal/transport/http/handlers/feedback"
	goalshandler "staffeval/internal/transport/http/handlers/goals"
	jobshandler "staffeval/internal/transport/http/handlers/jobs"
	notificationshandler "staffeval/internal/transport/http/handlers/notifications"
	staffhandler "staffeval/internal/transport/http/handlers/staff"
	tenanthandler "staffeval/internal/transport/http/handlers/tenant"
	"staffeval/internal/transport/http/middleware"
)

const (
	tracerName      = "staffeval/http"
	shutdownTimeout = 15 * time.Second
)

type App struct {
	Config  config.Config
	DB      *db.Pool
	Router  http.Handler
	Jobs    *jobs.Service
	Metrics *metrics.Collector

	stopJobs      context.CancelFunc
	stopTelemetry func(context.Context) error
}

// New connects to the database, applies migrations and seed data, builds
// every service and starts the background worker. Close releases all of it.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stopTelemetry, err := otel.Setup(ctx, cfg.OTelEndpoint, cfg.OTelServiceName, cfg.Environment)
	if err != nil {
		slog.Warn("tracing disabled", "err", err)
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	box, err := crypto.NewBox(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, err
	}

	collector := metrics.New()
	mailer := email.New(cfg)

	authService := auth.NewService(auth.NewStore(pool), cfg.JWTSecret, box)
	tenantService := tenant.NewService(tenant.NewStore(pool))
	staffService := staff.NewService(staff.NewStore(pool))
	evaluationService := evaluation.NewService(evaluation.NewStore(pool))
	goalsService := goals.NewService(goals.NewStore(pool))
	feedbackService := feedback.NewService(feedback.NewStore(pool))
	dashboardService := dashboard.NewService(dashboard.NewStore(pool), goalsService)
	notificationService := notifications.New(notifications.NewStore(pool), mailer)
	auditService := audit.New(pool)

	if cfg.RunSeed {
		if err := db.Seed(ctx, tenantService, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	jobService := jobs.New(jobs.Deps{
		Store:            jobs.NewStore(pool),
		Tenants:          tenantService,
		Evaluations:      evaluationService,
		Notify:           notificationService,
		Metrics:          collector,
		ReminderInterval: cfg.ReminderInterval,
	})
	jobCtx, stopJobs := context.WithCancel(context.Background())
	jobService.Start(jobCtx)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recover)
	router.Use(middleware.Tracing(tracerName))
	router.Use(middleware.Logger)
	router.Use(middleware.Metrics(collector))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, authService))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if cfg.MetricsEnabled {
		router.Handle("/metrics", collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		authhandler.NewHandler(authService, auditService, mailer, cfg.BaseURL, cfg.EmailFrom).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			tenanthandler.NewHandler(tenantService, authService, auditService).RegisterRoutes(r)
			staffhandler.NewHandler(staffService, authService, auditService).RegisterRoutes(r)

			evaluationHandler := evaluationhandler.NewHandler(evaluationService, staffService, authService, notificationService, auditService)
			evaluationHandler.Reminders = jobService
			evaluationHandler.Metrics = collector
			evaluationHandler.Idempotency = middleware.NewIdempotencyStore(pool)
			evaluationHandler.RegisterRoutes(r)

			goalshandler.NewHandler(goalsService, staffService, authService, authService, notificationService, auditService).RegisterRoutes(r)
			feedbackhandler.NewHandler(feedbackService, staffService, authService, notificationService, auditService).RegisterRoutes(r)
			dashboardhandler.NewHandler(dashboardService, authService).RegisterRoutes(r)
			notificationshandler.NewHandler(notificationService).RegisterRoutes(r)
			audithandler.NewHandler(auditService, authService).RegisterRoutes(r)
			jobshandler.NewHandler(jobService, authService).RegisterRoutes(r)
		})
	})

	router.Mount("/", spaHandler{staticPath: cfg.FrontendDir, indexPath: "index.html"})

	return &App{
		Config:        cfg,
		DB:            pool,
		Router:        router,
		Jobs:          jobService,
		Metrics:       collector,
		stopJobs:      stopJobs,
		stopTelemetry: stopTelemetry,
	}, nil
}

func (a *App) Close() {
	if a.stopJobs != nil {
		a.stopJobs()
	}
	if a.stopTelemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.stopTelemetry(ctx); err != nil {
			slog.Warn("tracing shutdown failed", "err", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests.
func Run() error {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("staffeval server listening", "addr", cfg.Addr, "env", cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()
	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		slog.Warn("systemd notify failed", "err", err)
	} else if sent {
		slog.Debug("systemd notified ready")
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.staticPath, filepath.Clean("/"+r.URL.Path))
	_, err := os.Stat(path)
	if err == nil {
		http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
		return
	}

	if os.IsNotExist(err) {
		http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
		return
	}

	http.NotFound(w, r)
}
