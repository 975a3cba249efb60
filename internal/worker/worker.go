package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/casebook/internal/cases"
	"github.com/jimdaga/casebook/internal/journal"
	"github.com/jimdaga/casebook/internal/logging"
)

// JournalGenerator runs one journal generation attempt
type JournalGenerator interface {
	Generate(ctx context.Context, trigger string) (*journal.Result, error)
}

// Redactor strips personal data from free text
type Redactor interface {
	Redact(ctx context.Context, text string) (string, error)
}

// CaseRedactions reads raw descriptions and stores their redacted form
type CaseRedactions interface {
	Description(ctx context.Context, id string) (string, error)
	ApplyRedaction(ctx context.Context, id, redacted string) error
}

// Deps are the services task handlers call into
type Deps struct {
	Journal  JournalGenerator
	Redactor Redactor
	Cases    CaseRedactions
}

const concurrency = 5

// Run starts the asynq worker server and blocks until shutdown signal.
func Run(log *slog.Logger, redisURL string, deps Deps) error {
	srv, mux, err := newServer(log, redisURL, deps)
	if err != nil {
		return err
	}
	return srv.Run(mux)
}

// Start starts the asynq worker in non-blocking mode and returns a stop function.
func Start(log *slog.Logger, redisURL string, deps Deps) (stop func(), err error) {
	srv, mux, err := newServer(log, redisURL, deps)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(log *slog.Logger, redisURL string, deps Deps) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	log = log.With("component", "worker")
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     concurrency,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(log)),
			Logger:          &logging.AsynqAdapter{Logger: log},
		},
	)

	log.Info("Worker starting", "concurrency", concurrency)
	return srv, NewMux(log, deps), nil
}

// NewMux registers the task handlers
func NewMux(log *slog.Logger, deps Deps) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskGenerateJournal, handleGenerateJournal(log, deps.Journal))
	mux.HandleFunc(TaskRedactCase, handleRedactCase(log, deps.Redactor, deps.Cases))
	return mux
}

// handleGenerateJournal runs the generator once. Nothing here is retried:
// domain outcomes are logged at warn and every error is returned with
// SkipRetry. Collaborator failures are logged by the error handler.
func handleGenerateJournal(log *slog.Logger, gen JournalGenerator) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload journalPayload
		if len(task.Payload()) > 0 {
			if err := json.Unmarshal(task.Payload(), &payload); err != nil {
				return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
			}
		}
		if payload.Trigger == "" {
			payload.Trigger = TriggerScheduled
		}

		log.Info("Processing journal:generate task", "trigger", payload.Trigger)

		res, err := gen.Generate(ctx, payload.Trigger)
		if err != nil {
			if kind := journal.KindOf(err); kind.Expected() {
				log.Warn("Journal not generated", "trigger", payload.Trigger, "outcome", kind.Code())
			}
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}

		log.Info(
			"Journal generation completed",
			"journal_id", res.Entry.ID,
			"cases", len(res.Entry.RelatedCaseIDs),
		)
		return nil
	}
}

// handleRedactCase redacts one case description. Model failures are
// retried; a missing case is not.
func handleRedactCase(log *slog.Logger, redactor Redactor, store CaseRedactions) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload redactPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.CaseID == "" {
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		description, err := store.Description(ctx, payload.CaseID)
		if err != nil {
			if errors.Is(err, cases.ErrNotFound) {
				log.Error("Case not found", "case_id", payload.CaseID)
				return fmt.Errorf("case not found: %w", asynq.SkipRetry)
			}
			return fmt.Errorf("failed to load case: %w", err)
		}

		redacted, err := redactor.Redact(ctx, description)
		if err != nil {
			return fmt.Errorf("failed to redact case: %w", err)
		}
		redacted = strings.TrimSpace(redacted)
		if redacted == "" {
			return fmt.Errorf("empty redaction for case %s", payload.CaseID)
		}

		if err := store.ApplyRedaction(ctx, payload.CaseID, redacted); err != nil {
			return fmt.Errorf("failed to store redaction: %w", err)
		}

		log.Info("Case redacted", "case_id", payload.CaseID)
		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(log *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		if task.Type() == TaskGenerateJournal && journal.KindOf(err).Expected() {
			return
		}

		log.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)

		if retried >= maxRetry {
			log.Error(
				"Task archived (all retries exhausted)",
				"task_type", task.Type(),
				"payload", string(task.Payload()),
			)
		}
	}
}
