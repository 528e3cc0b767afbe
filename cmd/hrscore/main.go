package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/hrscore/internal/cache"
	"github.com/mtlprog/hrscore/internal/config"
	"github.com/mtlprog/hrscore/internal/database"
	"github.com/mtlprog/hrscore/internal/dispatch"
	"github.com/mtlprog/hrscore/internal/handler"
	"github.com/mtlprog/hrscore/internal/logger"
	"github.com/mtlprog/hrscore/internal/middleware"
	"github.com/mtlprog/hrscore/internal/observability"
	"github.com/mtlprog/hrscore/internal/repository"
	"github.com/mtlprog/hrscore/internal/service"
)

const serviceName = "hrscore"

func main() {
	app := &cli.App{
		Name:  serviceName,
		Usage: "Employee scoring, ranking and skill-gap service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Aliases: []string{"d"},
				Value:   config.DefaultDatabaseURL,
				Usage:   "PostgreSQL database URL",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger.Setup(logger.ParseLevel(cfg.LogLevel))
			c.App.Metadata = map[string]any{"config": cfg}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the web server and the rescore dispatcher",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   config.DefaultPort,
						Usage:   "HTTP server port",
						EnvVars: []string{"PORT"},
					},
				},
				Action: runServe,
			},
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations",
				Action: runMigrate,
				Subcommands: []*cli.Command{
					{
						Name:   "down",
						Usage:  "Roll back the most recent migration",
						Action: runMigrateDown,
					},
				},
			},
			{
				Name:        "rescore",
				Usage:       "Recompute and persist one employee's score",
				Description: "Cached views of a running server are dropped only with cache_backend=redis; otherwise they expire with their TTL.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "org", Usage: "Organization UUID", Required: true},
					&cli.StringFlag{Name: "employee", Usage: "Employee UUID", Required: true},
				},
				Action: runRescore,
			},
		},
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// loadConfig layers explicitly set CLI flags over config.Load.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.Context)
	if err != nil {
		return nil, err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("database-url") {
		cfg.DatabaseURL = c.String("database-url")
	}
	return cfg, nil
}

func configFrom(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata["config"].(*config.Config); ok {
		return cfg
	}
	return config.New()
}

func connect(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database url is required (--database-url, DATABASE_URL or HRSCORE_DATABASE_URL)")
	}

	db, err := database.New(ctx, cfg.DatabaseURL, database.PoolConfig{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// openCache builds the configured cache backend and its close function.
func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, func() error, error) {
	noClose := func() error { return nil }

	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		r, err := cache.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	case config.CacheBackendNone:
		return cache.NewNoop(), noClose, nil
	default:
		m := cache.NewMemory(cache.WithCapacity(cfg.MemoryCacheCapacity))
		return m, m.Close, nil
	}
}

// rescoreCache returns the cache an out-of-process recompute invalidates.
// Only Redis is shared with a running server; any other backend is replaced
// by a no-op cache.
func rescoreCache(ctx context.Context, cfg *config.Config) (cache.Cache, func() error, error) {
	if cfg.CacheBackend == config.CacheBackendRedis {
		return openCache(ctx, cfg)
	}
	slog.Warn("cache is not shared with the server; cached views expire with their TTL",
		"cache_backend", cfg.CacheBackend)
	return cache.NewNoop(), func() error { return nil }, nil
}

// wiring holds the repositories and services shared by the commands.
type wiring struct {
	tasks      *repository.TaskRepository
	taskEvents *repository.TaskEventRepository
	employees  *repository.EmployeeRepository
	scoreLogs  *repository.ScoreLogRepository
	opts       []service.Option

	scores          *service.ScoreService
	recommendations *service.RecommendationService
	dashboards      *service.DashboardService
}

func wire(db *database.DB, cfg *config.Config, c cache.Cache) *wiring {
	w := &wiring{
		tasks:      repository.NewTaskRepository(db.Pool()),
		taskEvents: repository.NewTaskEventRepository(db.Pool()),
		employees:  repository.NewEmployeeRepository(db.Pool()),
		scoreLogs:  repository.NewScoreLogRepository(db.Pool()),
		opts: []service.Option{
			service.WithCache(c, cache.NewKeys(cfg.CachePrefix)),
			service.WithDependencyTimeout(cfg.DependencyTimeout()),
			service.WithTrendPolicy(cfg.TrendPolicy()),
		},
	}
	w.scores = service.NewScoreService(w.tasks, w.employees, w.scoreLogs, w.opts...)
	w.recommendations = service.NewRecommendationService(w.tasks, w.employees, w.scoreLogs, w.opts...)
	w.dashboards = service.NewDashboardService(w.tasks, w.employees, w.scoreLogs, w.opts...)
	return w
}

func runServe(c *cli.Context) error {
	ctx := c.Context
	cfg := configFrom(c)

	if c.IsSet("port") {
		cfg.Port = c.String("port")
	}

	db, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	shutdownTracer, err := observability.InitTracer(ctx, serviceName, cfg.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}

	viewCache, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer func() {
		if err := closeCache(); err != nil {
			slog.Warn("cache close failed", "error", err)
		}
	}()

	w := wire(db, cfg, viewCache)

	dispatcher := dispatch.New(w.scores,
		dispatch.WithQueueSize(cfg.RescoreQueueSize),
		dispatch.WithWorkers(cfg.RescoreWorkers),
		dispatch.WithRetry(cfg.RescoreMaxRetries, cfg.RescoreRetryBase()),
	)
	dispatcher.Start(ctx)

	tasks := service.NewTaskService(w.tasks, w.taskEvents, w.employees, dispatcher, w.opts...)

	h := handler.New(db, w.scores, w.recommendations, w.dashboards, tasks,
		handler.WithRateLimiter(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)),
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Routes(),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server",
			"server_addr", "http://localhost:"+cfg.Port,
			"cache_backend", cfg.CacheBackend,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case err := <-serverErr:
		runErr = fmt.Errorf("server error: %w", err)
	case <-done:
		slog.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("server shutdown failed: %w", err))
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("dispatcher shutdown failed: %w", err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		slog.Warn("tracer shutdown failed", "error", err)
	}

	if runErr != nil {
		return runErr
	}
	slog.Info("server stopped")
	return nil
}

func runMigrate(c *cli.Context) error {
	ctx := c.Context

	db, err := connect(ctx, configFrom(c))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func runMigrateDown(c *cli.Context) error {
	ctx := c.Context

	db, err := connect(ctx, configFrom(c))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RollbackMigration(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return nil
}

func runRescore(c *cli.Context) error {
	ctx := c.Context
	cfg := configFrom(c)

	orgID, employeeID := c.String("org"), c.String("employee")
	for name, v := range map[string]string{"org": orgID, "employee": employeeID} {
		if _, err := uuid.Parse(v); err != nil {
			return fmt.Errorf("--%s must be a valid UUID: %w", name, err)
		}
	}

	db, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	viewCache, closeCache, err := rescoreCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer func() { _ = closeCache() }()

	entry, err := wire(db, cfg, viewCache).scores.RecomputeAndPersist(logger.WithOrgID(ctx, orgID), orgID, "", employeeID)
	if err != nil {
		return fmt.Errorf("rescore failed: %w", err)
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"id":          entry.ID,
		"employee_id": entry.EmployeeID,
		"score":       entry.Score,
		"breakdown":   entry.Breakdown,
		"computed_at": entry.ComputedAt,
	})
}
