package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskGenerateJournal = "journal:generate"
	TaskRedactCase      = "case:redact"
)

// Triggers recorded on journal:generate payloads
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

type journalPayload struct {
	Trigger string `json:"trigger"`
}

type redactPayload struct {
	CaseID string `json:"case_id"`
}

// NewGenerateJournalTask builds a journal:generate task. The generator has no
// retry of its own and neither does the task.
func NewGenerateJournalTask(trigger string) (*asynq.Task, error) {
	payload, err := json.Marshal(journalPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskGenerateJournal,
		payload,
		asynq.MaxRetry(0),
		asynq.Timeout(5*time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}

// NewRedactCaseTask builds a case:redact task for one case
func NewRedactCaseTask(caseID string) (*asynq.Task, error) {
	payload, err := json.Marshal(redactPayload{CaseID: caseID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskRedactCase,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}

// Client enqueues background tasks. It satisfies feed.Enqueuer and
// cases.RedactionEnqueuer.
type Client struct {
	client *asynq.Client
}

// NewClient connects an asynq client to redisURL
func NewClient(redisURL string) (*Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Client{client: asynq.NewClient(opt)}, nil
}

// Close closes the asynq client connection
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueJournal enqueues a manual journal:generate run and returns its task ID
func (c *Client) EnqueueJournal(ctx context.Context) (string, error) {
	task, err := NewGenerateJournalTask(TriggerManual)
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s: %w", TaskGenerateJournal, err)
	}
	return info.ID, nil
}

// EnqueueRedaction enqueues a case:redact task. Only one pending task per
// case is kept.
func (c *Client) EnqueueRedaction(ctx context.Context, caseID string) error {
	task, err := NewRedactCaseTask(caseID)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.TaskID(TaskRedactCase+":"+caseID))
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", TaskRedactCase, err)
	}
	return nil
}
