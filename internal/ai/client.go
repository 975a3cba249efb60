package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jimdaga/casebook/internal/config"
	"github.com/jimdaga/casebook/internal/journal"
	"github.com/jimdaga/casebook/internal/prompts"
)

const (
	taskSummarize = prompts.NameSummarize
	taskRedact    = prompts.NameRedact
	taskAdvise    = prompts.NameAdvise
	taskPrefill   = prompts.NamePrefill
)

var allowedCategories = []string{"Academics", "Bullying", "Facilities", "Policy", "Other"}

const defaultPrefillTitle = "Issue report"

// Backend completes a rendered prompt
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Client renders prompts and post-processes backend output
type Client struct {
	backend  Backend
	prompts  *prompts.Registry
	prefillV *prompts.Validator
	log      *slog.Logger
}

// New builds a client for the configured provider
func New(log *slog.Logger, cfg config.AIConfig, registry *prompts.Registry) (*Client, error) {
	var backend Backend
	switch cfg.Provider {
	case config.ProviderStub:
		backend = &stubBackend{latency: cfg.StubLatency}
	case config.ProviderWebhook:
		backend = newWebhookBackend(strings.TrimRight(cfg.WebhookURL, "/"), cfg.WebhookSecret, cfg.Timeout)
	case config.ProviderAnthropic:
		backend = newAnthropicBackend(cfg.AnthropicKey, cfg.Model, cfg.MaxTokens, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}

	c, err := NewWithBackend(log, backend, registry)
	if err != nil {
		return nil, err
	}
	c.log.Info("AI client ready", "provider", cfg.Provider)
	return c, nil
}

// NewWithBackend builds a client around an explicit backend
func NewWithBackend(log *slog.Logger, backend Backend, registry *prompts.Registry) (*Client, error) {
	for _, name := range []string{taskSummarize, taskRedact, taskAdvise, taskPrefill} {
		if _, err := registry.MustGet(name); err != nil {
			return nil, err
		}
	}
	v, err := registry.ValidatorFor(taskPrefill)
	if err != nil {
		return nil, err
	}
	return &Client{
		backend:  backend,
		prompts:  registry,
		prefillV: v,
		log:      log.With("component", "ai"),
	}, nil
}

// Summarize writes the journal text for the given anonymized cases. Only the
// stub fields cross this boundary.
func (c *Client) Summarize(ctx context.Context, cases []journal.CaseStub) (string, error) {
	casesJSON, err := json.MarshalIndent(cases, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode cases: %w", err)
	}
	text, err := c.complete(ctx, taskSummarize, map[string]any{"CasesJSON": string(casesJSON)}, nil, cases)
	if err != nil {
		return "", err
	}
	return text, nil
}

// Redact returns text with personal data replaced by placeholders
func (c *Client) Redact(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, taskRedact, map[string]any{"Text": text}, nil, text)
}

// Advise answers the latest message in a conversation
func (c *Client) Advise(ctx context.Context, history []Message, message string) (string, error) {
	return c.complete(ctx, taskAdvise, map[string]any{"Message": message}, history, message)
}

// Prefill extracts a structured report draft from a student's message
func (c *Client) Prefill(ctx context.Context, text string) (*ReportPrefill, error) {
	raw, err := c.complete(ctx, taskPrefill, map[string]any{"Text": text}, nil, text)
	if err != nil {
		return nil, err
	}

	block, err := extractJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(block), &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}

	normalizePrefill(fields, text)
	if err := c.prefillV.Validate(fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}

	// Re-decode the normalized map into the typed result
	normalized, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	var out ReportPrefill
	if err := json.Unmarshal(normalized, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	return &out, nil
}

func (c *Client) complete(ctx context.Context, task string, data map[string]any, history []Message, input any) (string, error) {
	p, err := c.prompts.MustGet(task)
	if err != nil {
		return "", err
	}
	rendered, err := p.Render(data)
	if err != nil {
		return "", err
	}

	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, Message{Role: RoleUser, Text: rendered})

	text, err := c.backend.Complete(ctx, Request{
		Task:      task,
		System:    p.System,
		Messages:  messages,
		MaxTokens: p.MaxTokens,
		Input:     input,
	})
	if err != nil {
		c.log.Warn("AI call failed", "task", task, "error", err)
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// normalizePrefill coerces model output onto the report shape: unknown
// categories become Other and missing fields get defaults
func normalizePrefill(fields map[string]interface{}, input string) {
	category, _ := fields["category"].(string)
	fields["category"] = "Other"
	for _, allowed := range allowedCategories {
		if strings.EqualFold(strings.TrimSpace(category), allowed) {
			fields["category"] = allowed
		}
	}

	if _, ok := fields["keyFacts"].([]interface{}); !ok {
		fields["keyFacts"] = []interface{}{}
	}
	if t, ok := fields["title"].(string); !ok || strings.TrimSpace(t) == "" {
		fields["title"] = defaultPrefillTitle
	}
	if d, ok := fields["description"].(string); !ok || strings.TrimSpace(d) == "" {
		fields["description"] = input
	}
}

// extractJSON returns the span from the first "{" to the last "}"
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return s[start : end+1], nil
}
