package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jimdaga/casebook/internal/advisor"
	"github.com/jimdaga/casebook/internal/ai"
	"github.com/jimdaga/casebook/internal/auth"
	"github.com/jimdaga/casebook/internal/cases"
	"github.com/jimdaga/casebook/internal/config"
	"github.com/jimdaga/casebook/internal/database"
	"github.com/jimdaga/casebook/internal/feed"
	"github.com/jimdaga/casebook/internal/journal"
	"github.com/jimdaga/casebook/internal/lock"
	"github.com/jimdaga/casebook/internal/logging"
	"github.com/jimdaga/casebook/internal/models"
	"github.com/jimdaga/casebook/internal/prompts"
	"github.com/jimdaga/casebook/internal/server"
	"github.com/jimdaga/casebook/internal/streams"
	"github.com/jimdaga/casebook/internal/worker"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("Starting casebook", "mode", cfg.Mode, "env", cfg.Env)

	if cfg.Encryption.Key != "" {
		if err := models.InitEncryption(cfg.Encryption.Key); err != nil {
			return fmt.Errorf("failed to init encryption: %w", err)
		}
	} else {
		log.Warn("ENCRYPTION_KEY not set, sensitive columns are stored in plaintext")
	}

	// Database
	db, err := database.Init(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		return err
	}
	if cfg.Database.SeedDev && !cfg.IsProduction() {
		if err := database.SeedDevData(db); err != nil {
			return fmt.Errorf("failed to seed dev data: %w", err)
		}
	}

	// Redis
	redisOpt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	rdb := redis.NewClient(redisOpt)
	defer rdb.Close()

	// AI
	registry, err := prompts.Load(cfg.AI.PromptDir)
	if err != nil {
		return err
	}
	model, err := ai.New(log, cfg.AI, registry)
	if err != nil {
		return err
	}

	tasks, err := worker.NewClient(cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer tasks.Close()

	// Services
	publisher := streams.NewPublisher(rdb)
	caseRepo := cases.NewRepository(db)
	caseSvc := cases.NewService(log, caseRepo, tasks, publisher)

	location, err := time.LoadLocation(cfg.Journal.Timezone)
	if err != nil {
		log.Warn("Invalid journal timezone, using UTC", "timezone", cfg.Journal.Timezone, "error", err)
		location = time.UTC
	}
	entries := feed.NewStore(db)
	gen := journal.NewGenerator(log, caseRepo, entries, model,
		journal.Config{
			MaxCases:            cfg.Journal.MaxCases,
			RecentWindow:        cfg.Journal.RecentWindow,
			CandidatePoolSize:   cfg.Journal.CandidatePoolSize,
			SimilarityThreshold: cfg.Journal.SimilarityThreshold,
			LockTTL:             cfg.Journal.LockTTL,
		},
		journal.WithLocker(lock.NewRedisLocker(rdb)),
		journal.WithClock(func() time.Time { return time.Now().In(location) }),
	)
	feedSvc := feed.NewService(log, gen, entries, publisher)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Worker side
	if cfg.RunsWorker() {
		stopWorker, err := worker.Start(log, cfg.Redis.URL, worker.Deps{
			Journal:  feedSvc,
			Redactor: model,
			Cases:    caseSvc,
		})
		if err != nil {
			return err
		}
		defer stopWorker()

		stopScheduler, err := worker.StartScheduler(log, cfg.Redis.URL, cfg.Journal)
		if err != nil {
			return err
		}
		defer stopScheduler()

		stopConsumer, err := streams.StartActivityConsumer(cfg.Redis.URL, db)
		if err != nil {
			return err
		}
		defer stopConsumer()
	}

	if !cfg.RunsServer() {
		<-ctx.Done()
		log.Info("Shutdown signal received")
		return nil
	}

	// Server side
	auth.InitProviders(cfg)
	router := server.NewRouter(server.RouterConfig{
		Config:  cfg,
		DB:      db,
		Cases:   cases.NewHandlers(caseSvc),
		Feed:    feed.NewHandlers(feedSvc, tasks),
		Advisor: advisor.NewHandlers(advisor.NewService(log, db, model)),
	})
	srv := server.New(log, cfg.Server, router)
	errCh := srv.Start()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
