package config

import (
	"errors"
	"fmt"
	"time"
)

// Run modes
const (
	ModeServer = "server"
	ModeWorker = "worker"
	ModeAll    = "all"
)

// AI providers
const (
	ProviderStub      = "stub"
	ProviderWebhook   = "webhook"
	ProviderAnthropic = "anthropic"
)

// Validate checks cross-field constraints cleanenv tags cannot express
func (c *Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeServer, ModeWorker, ModeAll:
	default:
		errs = append(errs, fmt.Errorf("mode must be one of server, worker, all (got %q)", c.Mode))
	}

	switch c.AI.Provider {
	case ProviderStub:
	case ProviderWebhook:
		if c.AI.WebhookURL == "" {
			errs = append(errs, errors.New("AI_WEBHOOK_URL is required for the webhook provider"))
		}
	case ProviderAnthropic:
		if c.AI.AnthropicKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AI provider %q", c.AI.Provider))
	}

	j := c.Journal
	if j.MaxCases < 1 {
		errs = append(errs, errors.New("journal max_cases must be at least 1"))
	}
	if j.RecentWindow < 0 {
		errs = append(errs, errors.New("journal recent_window must not be negative"))
	}
	if j.CandidatePoolSize < j.MaxCases {
		errs = append(errs, errors.New("journal candidate_pool_size must be at least max_cases"))
	}
	if j.SimilarityThreshold <= 0 || j.SimilarityThreshold > 1 {
		errs = append(errs, errors.New("journal similarity_threshold must be in (0, 1]"))
	}
	if _, err := time.LoadLocation(j.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("journal timezone: %w", err))
	}

	if c.IsProduction() {
		if c.Encryption.Key == "" {
			errs = append(errs, errors.New("ENCRYPTION_KEY is required in production"))
		}
		if c.Database.SeedDev {
			errs = append(errs, errors.New("dev seed data must not be enabled in production"))
		}
	}

	return errors.Join(errs...)
}
