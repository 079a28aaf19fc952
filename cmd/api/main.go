package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"uploadstore/docs"
	"uploadstore/internal/config"
	"uploadstore/internal/database"
	"uploadstore/internal/database/migration"
	handlers "uploadstore/internal/http/handler"
	"uploadstore/internal/http/middleware"
	"uploadstore/internal/lock"
	"uploadstore/internal/otel"
	"uploadstore/internal/repository"
	"uploadstore/internal/repository/memory"
	"uploadstore/internal/repository/objectstore"
	"uploadstore/internal/repository/postgres"
	"uploadstore/internal/service"
	"uploadstore/internal/storage"
	"uploadstore/internal/sweeper"
)

const shutdownTimeout = 30 * time.Second

// @title Upload Store API
// @version 1.0
// @description Temporary file storage scoped to a client session.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	repo, pingers, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	files := service.NewFileStorage(repo,
		service.WithMaxPayloadSize(cfg.Storage.MaxPayloadBytes),
		service.WithLogger(logger),
	)

	sweepOpts := []sweeper.Option{sweeper.WithLogger(logger)}
	if cfg.Redis.Addr != "" {
		rdb, err := lock.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		pingers = append(pingers, redisPinger{rdb})
		sweepOpts = append(sweepOpts, sweeper.WithLocker(lock.NewRedisLocker(rdb,
			cfg.Redis.LockKey, time.Duration(cfg.Redis.LockTTLSec)*time.Second, logger)))
	}

	sw, err := sweeper.New(files, time.Duration(cfg.Storage.SweepIntervalSec)*time.Second, sweepOpts...)
	if err != nil {
		return err
	}
	if err := sw.Start(ctx); err != nil {
		return err
	}
	defer sw.Stop()

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    bodyLimit(cfg.Storage.MaxPayloadBytes),
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())

	promMW, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}
	app.Use(promMW.Handler())

	handlers.RegisterRoutes(app, handlers.Dependencies{
		Storage: files,
		Session: middleware.SessionConfig{
			CookieName: cfg.Session.CookieName,
			Header:     cfg.Session.Header,
			TTLSeconds: int64(cfg.Session.TTLSec),
			Secure:     cfg.Session.Secure,
			Logger:     logger,
		},
		DefaultTTL: int64(cfg.Storage.DefaultTTLSec),
		Health:     pingers,
		Gatherer:   prometheus.DefaultGatherer,
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", ":"+cfg.Port, "backend", cfg.Storage.Backend)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(sctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

// openBackend builds the file repository selected by STORAGE_BACKEND.
func openBackend(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (repository.FileRepository, []handlers.Pinger, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if cfg.Storage.InitSchema {
			if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
				_ = db.Close()
				return nil, nil, nil, err
			}
		}
		if err := database.RegisterStats(prometheus.DefaultRegisterer, db, cfg.Database.Name); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		return postgres.NewFilePostgres(db), []handlers.Pinger{db}, closeDB(db), nil

	case config.BackendMinIO:
		objStore, err := storage.NewMinIO(cfg.MinIO)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to initialize object storage: %w", err)
		}
		return objectstore.NewFileObjectStore(objStore), []handlers.Pinger{objStore}, func() {}, nil

	case config.BackendMemory:
		logger.Warn("using in-memory storage; files do not survive a restart")
		return memory.NewFileMemory(), nil, func() {}, nil

	default:
		return nil, nil, nil, errors.New("unsupported storage backend " + cfg.Storage.Backend)
	}
}

func closeDB(db *sql.DB) func() {
	return func() { _ = db.Close() }
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// bodyLimit leaves room for multipart framing around the largest accepted payload.
func bodyLimit(maxPayload int64) int {
	const framing = 1 << 20
	if maxPayload > int64(1<<31-1)-framing {
		return 1<<31 - 1
	}
	return int(maxPayload) + framing
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})).
		With("service", "uploadstore")
}
