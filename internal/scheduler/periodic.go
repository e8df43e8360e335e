package scheduler

import (
	"context"

	"buyback_backend/platform/config"
	"buyback_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues the recurring quote expiration sweep on the schedule
// configured via SWEEP_SCHEDULE.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	sched := asynq.NewScheduler(opt, nil)

	task, err := NewQuoteExpirationSweepTask()
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	entryID, err := sched.Register(cfg.GetSweepSchedule(), task, asynq.Queue(queue))
	if err != nil {
		return nil, err
	}
	log.Info("registered quote expiration sweep", "entryId", entryID, "schedule", cfg.GetSweepSchedule())

	return &Periodic{scheduler: sched, log: log}, nil
}

func (p *Periodic) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		p.scheduler.Shutdown()
	}()

	if err := p.scheduler.Run(); err != nil {
		p.log.Error("periodic scheduler stopped", "error", err)
	}
}
