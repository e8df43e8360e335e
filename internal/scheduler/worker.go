package scheduler

import (
	"context"
	"fmt"

	"buyback_backend/internal/leads/service"
	"buyback_backend/platform/config"
	"buyback_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// QuoteSweeper expires overdue quotes. Implemented by the leads service.
type QuoteSweeper interface {
	SweepExpiredQuotes(ctx context.Context) (service.SweepStats, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	sweeper QuoteSweeper
	lock    *SweepLock
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sweeper QuoteSweeper, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	redisOpt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	w := &Worker{
		server:  server,
		mux:     asynq.NewServeMux(),
		sweeper: sweeper,
		lock:    NewSweepLock(redis.NewClient(redisOpt), cfg.GetSweepLockTTL()),
		log:     log,
	}

	w.mux.HandleFunc(TaskQuoteExpirationSweep, w.handleQuoteExpirationSweep)

	return w, nil
}

// handleQuoteExpirationSweep runs one sweep behind the distributed lock so
// overlapping schedules and multiple worker replicas cannot sweep
// concurrently. The sweep itself is idempotent, the lock just avoids
// duplicate event emission.
func (w *Worker) handleQuoteExpirationSweep(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseQuoteExpirationSweepPayload(task); err != nil {
		return err
	}

	acquired, err := w.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		w.log.Info("sweep already running elsewhere, skipping")
		return nil
	}
	defer func() {
		if err := w.lock.Release(context.WithoutCancel(ctx)); err != nil {
			w.log.Error("failed to release sweep lock", "error", err)
		}
	}()

	stats, err := w.sweeper.SweepExpiredQuotes(ctx)
	if err != nil {
		return err
	}

	w.log.Info("quote expiration sweep completed",
		"expired", stats.Expired, "nearExpiry", stats.NearExpiry, "total", stats.Total)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
