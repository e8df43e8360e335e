package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buyback_backend/internal/audit"
	"buyback_backend/internal/email"
	"buyback_backend/internal/events"
	apphttp "buyback_backend/internal/http"
	"buyback_backend/internal/http/router"
	"buyback_backend/internal/leads"
	"buyback_backend/internal/pricing"
	"buyback_backend/internal/scheduling"
	"buyback_backend/platform/config"
	"buyback_backend/platform/db"
	"buyback_backend/platform/logger"
	"buyback_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
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

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Pricing catalog drives every quote computation
	catalog, err := pricing.LoadCatalog(cfg.GetCatalogPath())
	if err != nil {
		log.Error("failed to load pricing catalog", "error", err, "path", cfg.GetCatalogPath())
		panic("failed to load pricing catalog: " + err.Error())
	}
	engine := pricing.NewEngine(catalog, cfg.GetQuoteTolerance())
	log.Info("pricing catalog loaded", "devices", len(catalog.Devices), "path", cfg.GetCatalogPath())

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Email subscriber reacts to domain events (not HTTP-facing)
	email.NewSubscriber(cfg, log).Register(eventBus)

	leadsModule := leads.NewModule(pool, engine, eventBus, val, cfg, log)
	schedulingModule, err := scheduling.NewModule(pool, eventBus, val, cfg, log)
	if err != nil {
		log.Error("failed to initialize scheduling module", "error", err)
		panic("failed to initialize scheduling module: " + err.Error())
	}
	auditModule := audit.NewModule(pool)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			schedulingModule,
			auditModule,
		},
	}

	engineHTTP := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engineHTTP.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		eventBus.Drain()
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
