package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/casebook/internal/config"
	"github.com/jimdaga/casebook/internal/logging"
)

// StartScheduler creates and starts an asynq Scheduler for the periodic
// journal run. An empty schedule disables it and returns a no-op stop.
func StartScheduler(log *slog.Logger, redisURL string, cfg config.JournalConfig) (stop func(), err error) {
	if cfg.Schedule == "" {
		log.Info("Journal schedule not configured, scheduler disabled")
		return func() {}, nil
	}

	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warn("Invalid timezone, using UTC", "timezone", cfg.Timezone, "error", err)
		location = time.UTC
	}

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: location,
			LogLevel: asynq.InfoLevel,
			Logger:   &logging.AsynqAdapter{Logger: log.With("component", "scheduler")},
		},
	)

	task, err := NewGenerateJournalTask(TriggerScheduled)
	if err != nil {
		return nil, err
	}

	// Unique keeps a double-fired tick from producing two runs
	entryID, err := scheduler.Register(cfg.Schedule, task, asynq.Unique(time.Minute))
	if err != nil {
		return nil, fmt.Errorf("failed to register journal schedule: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info(
		"Scheduler started",
		"schedule", cfg.Schedule,
		"timezone", location.String(),
		"entry_id", entryID,
	)

	return func() { scheduler.Shutdown() }, nil
}
