package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ambientEnv lists variables a developer shell commonly exports
var ambientEnv = []string{
	"MODE", "ENV", "AI_PROVIDER", "AI_WEBHOOK_URL", "ANTHROPIC_API_KEY",
	"ENCRYPTION_KEY", "SESSION_SECRET", "JOURNAL_MAX_CASES",
	"JOURNAL_RECENT_WINDOW", "JOURNAL_CANDIDATE_POOL_SIZE",
	"JOURNAL_SIMILARITY_THRESHOLD", "JOURNAL_TIMEZONE",
}

// unsetEnv removes keys for the duration of the test
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	unsetEnv(t, ambientEnv...)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeAll, cfg.Mode)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, ProviderStub, cfg.AI.Provider)
	assert.Equal(t, 2, cfg.Journal.MaxCases)
	assert.Equal(t, 2, cfg.Journal.RecentWindow)
	assert.Equal(t, 50, cfg.Journal.CandidatePoolSize)
	assert.InDelta(t, 0.98, cfg.Journal.SimilarityThreshold, 1e-9)
	assert.NotEmpty(t, cfg.Auth.SessionSecret, "dev fallback secret")
	assert.True(t, cfg.RunsServer())
	assert.True(t, cfg.RunsWorker())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	unsetEnv(t, ambientEnv...)
	t.Setenv("MODE", "worker")
	t.Setenv("JOURNAL_MAX_CASES", "3")
	t.Setenv("JOURNAL_SCHEDULE", "0 7 * * 1")
	t.Setenv("AUTH_ADMIN_EMAILS", " Head@School.test, deputy@school.test ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.RunsServer())
	assert.True(t, cfg.RunsWorker())
	assert.Equal(t, 3, cfg.Journal.MaxCases)
	assert.Equal(t, "0 7 * * 1", cfg.Journal.Schedule)
	assert.Equal(t, []string{"head@school.test", "deputy@school.test"}, cfg.Auth.AdminEmails())
	assert.True(t, cfg.Auth.IsAdminEmail("HEAD@school.test "))
	assert.False(t, cfg.Auth.IsAdminEmail("student@school.test"))
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode: server
journal:
  max_cases: 4
  candidate_pool_size: 20
ai:
  provider: webhook
  webhook_url: http://n8n.local/webhook
`), 0o600))
	t.Setenv("CONFIG_PATH", path)
	unsetEnv(t, ambientEnv...)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ModeServer, cfg.Mode)
	assert.Equal(t, 4, cfg.Journal.MaxCases)
	assert.Equal(t, 20, cfg.Journal.CandidatePoolSize)
	assert.Equal(t, ProviderWebhook, cfg.AI.Provider)
}

func TestValidate(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	unsetEnv(t, ambientEnv...)

	base, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "bad mode", mutate: func(c *Config) { c.Mode = "cron" }, wantErr: "mode must be one of"},
		{name: "webhook without url", mutate: func(c *Config) { c.AI.Provider = ProviderWebhook }, wantErr: "AI_WEBHOOK_URL"},
		{name: "anthropic without key", mutate: func(c *Config) { c.AI.Provider = ProviderAnthropic }, wantErr: "ANTHROPIC_API_KEY"},
		{name: "unknown provider", mutate: func(c *Config) { c.AI.Provider = "gemini" }, wantErr: "unknown AI provider"},
		{name: "zero max cases", mutate: func(c *Config) { c.Journal.MaxCases = 0 }, wantErr: "max_cases"},
		{name: "pool below max", mutate: func(c *Config) { c.Journal.CandidatePoolSize = 1 }, wantErr: "candidate_pool_size"},
		{name: "threshold above one", mutate: func(c *Config) { c.Journal.SimilarityThreshold = 1.5 }, wantErr: "similarity_threshold"},
		{name: "bad timezone", mutate: func(c *Config) { c.Journal.Timezone = "Mars/Olympus" }, wantErr: "timezone"},
		{name: "production without key", mutate: func(c *Config) { c.Env = "production" }, wantErr: "ENCRYPTION_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, base.Validate())
}
