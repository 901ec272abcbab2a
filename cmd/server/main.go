package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/cashfolio/cashfolio/internal/config"
	"github.com/cashfolio/cashfolio/internal/importer"
	"github.com/cashfolio/cashfolio/internal/jobs"
	"github.com/cashfolio/cashfolio/internal/jobs/inmemory"
	"github.com/cashfolio/cashfolio/internal/logging"
	"github.com/cashfolio/cashfolio/internal/store"
	"github.com/cashfolio/cashfolio/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"workers", cfg.Worker.Count,
	)

	if err := store.Migrate(cfg.Database.URL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	st := store.NewPostgres(pool)

	queue := inmemory.New(inmemory.Options{
		BufferSize: cfg.Worker.QueueSize,
		Workers:    cfg.Worker.Count,
		MaxRetries: cfg.Worker.MaxRetries,
		JobTimeout: cfg.Worker.JobTimeout,
	})

	service := importer.NewService(st, queue)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	err = queue.Start(jobCtx, func(ctx context.Context, job jobs.ImportJob) error {
		return service.Publish(ctx, job.ImportID)
	})
	if err != nil {
		slog.Error("failed to start workers", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(service, st, cfg)

	// Graceful shutdown: stop accepting requests, then drain the workers.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		if err := queue.Stop(shutdownCtx); err != nil {
			slog.Warn("workers did not drain in time", "error", err)
		}
		cancelJobs()
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		slog.Info("server stopped", "error", err)
	}
}
