package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buyback_backend/internal/email"
	"buyback_backend/internal/events"
	leadrepo "buyback_backend/internal/leads/repository"
	leadservice "buyback_backend/internal/leads/service"
	"buyback_backend/internal/pricing"
	"buyback_backend/internal/scheduler"
	"buyback_backend/platform/config"
	"buyback_backend/platform/db"
	"buyback_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	// Near-expiry reminders go out from the sweep, so the worker needs the
	// same email subscriptions as the API process.
	email.NewSubscriber(cfg, log).Register(eventBus)

	catalog, err := pricing.LoadCatalog(cfg.GetCatalogPath())
	if err != nil {
		log.Error("failed to load pricing catalog", "error", err, "path", cfg.GetCatalogPath())
		panic("failed to load pricing catalog: " + err.Error())
	}
	engine := pricing.NewEngine(catalog, cfg.GetQuoteTolerance())

	// Worker-side lifecycle wiring (no HTTP handlers required). The sweep
	// never resolves addresses, so no routing client is attached.
	sweeper := leadservice.New(leadrepo.New(pool), engine, nil, eventBus, cfg, log)

	worker, err := scheduler.NewWorker(cfg, sweeper, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go periodic.Run(ctx)

	worker.Run(ctx)
	eventBus.Drain()
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
