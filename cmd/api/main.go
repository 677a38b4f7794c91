package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solar_crm_backend/internal/auth"
	"solar_crm_backend/internal/catalog"
	"solar_crm_backend/internal/email"
	"solar_crm_backend/internal/events"
	"solar_crm_backend/internal/exports"
	apphttp "solar_crm_backend/internal/http"
	"solar_crm_backend/internal/http/router"
	"solar_crm_backend/internal/importer"
	"solar_crm_backend/internal/leads"
	"solar_crm_backend/internal/notification"
	"solar_crm_backend/internal/storage"
	"solar_crm_backend/internal/users"
	"solar_crm_backend/migrations"
	"solar_crm_backend/platform/cache"
	"solar_crm_backend/platform/config"
	"solar_crm_backend/platform/db"
	"solar_crm_backend/platform/logger"
	"solar_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	codes, err := cache.New(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer codes.Close()

	eventBus := events.NewInMemoryBus(log)

	sender := email.NewSender(cfg, log)
	val := validator.New()

	var objects storage.Store
	if cfg.IsMinIOEnabled() {
		minioSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure documents bucket", 5, 2*time.Second, func() error {
			return minioSvc.EnsureBucketExists(ctx)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		log.Info("storage service initialized", "bucket", cfg.GetMinioBucketLeadDocuments())
		objects = minioSvc
	} else {
		log.Warn("MINIO_ENDPOINT not configured; document uploads disabled")
		objects = storage.NewDisabled(log)
	}

	importQueue, err := importer.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize import queue", "error", err)
		panic("failed to initialize import queue: " + err.Error())
	}
	defer importQueue.Close()

	// Run the import worker in-process so completion events reach the SSE
	// registry of this process. A standalone cmd/worker can be added for
	// scale; asynq delivers each task to exactly one consumer.
	importWorker, err := importer.NewWorker(cfg, pool, eventBus, log)
	if err != nil {
		log.Error("failed to initialize import worker", "error", err)
		panic("failed to initialize import worker: " + err.Error())
	}
	if err := importWorker.Start(); err != nil {
		log.Error("failed to start import worker", "error", err)
		panic("failed to start import worker: " + err.Error())
	}
	defer importWorker.Shutdown()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	notificationModule := notification.New(sender, log)
	notificationModule.RegisterHandlers(eventBus)

	authModule := auth.NewModule(pool, cfg, eventBus, val, log)
	usersModule := users.NewModule(pool, codes, objects, val, log)
	leadsModule := leads.NewModule(pool, eventBus, codes, objects, val, log)
	importerModule := importer.NewModule(pool, importQueue, log)
	exportsModule := exports.NewModule(leadsModule.Service())

	catalogModule, err := catalog.NewModule(pool)
	if err != nil {
		log.Error("failed to initialize catalog module", "error", err)
		panic("failed to initialize catalog module: " + err.Error())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   []apphttp.HealthChecker{pool, codes},
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			usersModule,
			leadsModule,
			importerModule,
			exportsModule,
			catalogModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		notificationModule.Close()
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
