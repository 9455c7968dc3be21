// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/endrycofr/nginx-load-balancer/internal/attendance"
	attendancepostgres "github.com/endrycofr/nginx-load-balancer/internal/attendance/postgres"
	"github.com/endrycofr/nginx-load-balancer/internal/config"
	"github.com/endrycofr/nginx-load-balancer/internal/pkg/ctxlog"
	"github.com/endrycofr/nginx-load-balancer/internal/pkg/httputil"
	"github.com/endrycofr/nginx-load-balancer/internal/pkg/metrics"
	"github.com/endrycofr/nginx-load-balancer/internal/pkg/postgres"
	"github.com/endrycofr/nginx-load-balancer/internal/pkg/sysmon"
	"github.com/endrycofr/nginx-load-balancer/internal/version"
)

const serviceName = "attendance"

// App represents the application instance.
type App struct {
	config      *config.Config
	logger      *slog.Logger
	db          *pgxpool.Pool
	registry    *metrics.Registry
	connMonitor *metrics.ConnMonitor
	sampler     *sysmon.Sampler
	server      *http.Server
	instanceID  string

	poolMetricsCancel context.CancelFunc
}

// New creates a new application instance. Failure to establish the store
// connection within the configured attempt budget is returned as an error;
// the caller must treat it as fatal and not begin serving.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	registry := metrics.NewRegistry(logger)

	connMonitor, err := metrics.NewConnMonitor(registry, logger)
	if err != nil {
		return nil, fmt.Errorf("create connection monitor: %w", err)
	}

	connectCtx, connectCancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URI,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
		ConnectDelay:    cfg.Database.ConnectDelay,
	}, connMonitor)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := postgres.Migrate(cfg.Database.URI); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	sampler, err := sysmon.New(registry, sysmon.Config{
		Interval:      cfg.Sampler.Interval,
		RetryInterval: cfg.Sampler.RetryInterval,
		DiskPath:      cfg.Sampler.DiskPath,
	}, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create system sampler: %w", err)
	}

	app := &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		registry:    registry,
		connMonitor: connMonitor,
		sampler:     sampler,
		instanceID:  uuid.NewString(),
	}

	if err := app.registerAppInfo(); err != nil {
		db.Close()
		return nil, fmt.Errorf("register app info: %w", err)
	}

	router, err := app.setupRouter()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	return app, nil
}

// Run starts the background collectors and the HTTP server, blocking until
// the server stops.
func (a *App) Run() error {
	a.sampler.Start(context.Background())

	poolCtx, poolCancel := context.WithCancel(context.Background())
	a.poolMetricsCancel = poolCancel
	go a.collectPoolMetrics(poolCtx)

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"app_number", a.config.AppNumber,
		"instance_id", a.instanceID,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, the sampler, and the store.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	err := a.server.Shutdown(ctx)

	if a.poolMetricsCancel != nil {
		a.poolMetricsCancel()
	}
	a.sampler.Stop()
	a.db.Close()

	if err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter() (*chi.Mux, error) {
	r := chi.NewRouter()

	// Instrumentation must be first to measure full request time; it
	// resolves endpoints against the mux it is mounted on.
	instrumentor, err := httputil.NewInstrumentor(a.registry, r, serviceName, a.logger)
	if err != nil {
		return nil, err
	}

	r.Use(instrumentor.Middleware)
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	if a.config.Server.RateLimitRPS > 0 {
		r.Use(httputil.RateLimitMiddleware(a.config.Server.RateLimitRPS, a.config.Server.RateLimitBurst))
	}

	r.Get("/health", a.healthHandler)
	r.Method(http.MethodGet, "/metrics", a.registry.Handler())
	r.Get("/metrics/custom", a.customMetricsHandler)

	timer, err := metrics.NewOperationTimer(a.registry, serviceName, a.logger)
	if err != nil {
		return nil, err
	}

	repo := attendancepostgres.NewRepository(a.db)
	service := attendance.NewService(repo, timer)
	attendance.NewHandler(service).RegisterRoutes(r)

	return r, nil
}

// healthHandler re-verifies liveness with its own timed round-trip query;
// it does not trust the startup probe's historical result.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	var one int
	if err := a.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		ctxlog.FromContext(r.Context()).Error("health check failed", "error", err)
		httputil.JSON(w, http.StatusInternalServerError, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{
		"status":           "healthy",
		"database_latency": fmt.Sprintf("%.3fs", time.Since(start).Seconds()),
		"app_number":       a.config.AppNumber,
	})
}

// customMetricsHandler returns a JSON utilization summary. Read failures
// degrade to zero values rather than an error response.
func (a *App) customMetricsHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := a.sampler.Snapshot(r.Context())
	if err != nil {
		ctxlog.FromContext(r.Context()).Warn("utilization snapshot failed", "error", err)
	}

	httputil.JSON(w, http.StatusOK, struct {
		CPUUsage            float64 `json:"cpu_usage"`
		MemoryUsage         float64 `json:"memory_usage"`
		DiskUsage           float64 `json:"disk_usage"`
		ActiveDBConnections int64   `json:"active_db_connections"`
	}{
		CPUUsage:            snap.CPUPercent,
		MemoryUsage:         snap.MemoryPercent,
		DiskUsage:           snap.DiskPercent,
		ActiveDBConnections: a.connMonitor.Active(),
	})
}

func (a *App) registerAppInfo() error {
	if err := a.registry.Register(metrics.AppInfo); err != nil {
		return err
	}
	return a.registry.Set(metrics.AppInfo.Name, 1, version.Version, runtime.Version(), serviceName)
}

func (a *App) collectPoolMetrics(ctx context.Context) {
	if err := a.registry.Register(metrics.DBPoolConnections); err != nil {
		a.logger.Warn("pool metrics disabled", "error", err)
		return
	}

	record := func() {
		stats := a.db.Stat()
		a.setPoolGauge("in_use", float64(stats.AcquiredConns()))
		a.setPoolGauge("idle", float64(stats.IdleConns()))
		a.setPoolGauge("max", float64(stats.MaxConns()))
	}

	record()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			record()
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) setPoolGauge(state string, value float64) {
	if err := a.registry.Set(metrics.DBPoolConnections.Name, value, state); err != nil {
		a.logger.Warn("dropping pool gauge update", "state", state, "error", err)
	}
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
