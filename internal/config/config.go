package config

import (
	"slices"
	"strings"
	"time"
)

// Config holds application configuration loaded from a YAML file and
// environment variables
type Config struct {
	Mode       string           `yaml:"mode" env:"MODE" env-default:"all"`
	Env        string           `yaml:"env"  env:"ENV"  env-default:"development"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	AI         AIConfig         `yaml:"ai"`
	Journal    JournalConfig    `yaml:"journal"`
	Log        LogConfig        `yaml:"log"`
	CORS       CORSConfig       `yaml:"cors"`
	Encryption EncryptionConfig `yaml:"encryption"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `yaml:"port"             env:"PORT"                    env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

// DatabaseConfig holds Postgres settings
type DatabaseConfig struct {
	URL     string `yaml:"url"      env:"DATABASE_URL"`
	SeedDev bool   `yaml:"seed_dev" env:"DATABASE_SEED_DEV" env-default:"false"`
}

// RedisConfig holds the Redis URL shared by asynq, the generation lock and
// the activity stream
type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
}

// AuthConfig holds OAuth and session settings
type AuthConfig struct {
	GoogleClientID     string `yaml:"google_client_id"     env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `yaml:"google_client_secret" env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `yaml:"google_callback_url"  env:"GOOGLE_CALLBACK_URL" env-default:"http://localhost:8080/auth/google/callback"`
	SessionSecret      string `yaml:"session_secret"       env:"SESSION_SECRET"`
	AdminEmailsRaw     string `yaml:"admin_emails"         env:"AUTH_ADMIN_EMAILS"`
}

// AIConfig selects and configures the generative backend
type AIConfig struct {
	Provider      string        `yaml:"provider"        env:"AI_PROVIDER"        env-default:"stub"`
	WebhookURL    string        `yaml:"webhook_url"     env:"AI_WEBHOOK_URL"`
	WebhookSecret string        `yaml:"webhook_secret"  env:"AI_WEBHOOK_SECRET"`
	AnthropicKey  string        `yaml:"anthropic_key"   env:"ANTHROPIC_API_KEY"`
	Model         string        `yaml:"model"           env:"AI_MODEL"           env-default:"claude-sonnet-4-20250514"`
	MaxTokens     int64         `yaml:"max_tokens"      env:"AI_MAX_TOKENS"      env-default:"1024"`
	Timeout       time.Duration `yaml:"timeout"         env:"AI_TIMEOUT"         env-default:"30s"`
	PromptDir     string        `yaml:"prompt_dir"      env:"AI_PROMPT_DIR"`
	StubLatency   time.Duration `yaml:"stub_latency"    env:"AI_STUB_LATENCY"    env-default:"0s"`
}

// JournalConfig holds the journal generation tunables
type JournalConfig struct {
	MaxCases            int           `yaml:"max_cases"            env:"JOURNAL_MAX_CASES"            env-default:"2"`
	RecentWindow        int           `yaml:"recent_window"        env:"JOURNAL_RECENT_WINDOW"        env-default:"2"`
	CandidatePoolSize   int           `yaml:"candidate_pool_size"  env:"JOURNAL_CANDIDATE_POOL_SIZE"  env-default:"50"`
	SimilarityThreshold float64       `yaml:"similarity_threshold" env:"JOURNAL_SIMILARITY_THRESHOLD" env-default:"0.98"`
	LockTTL             time.Duration `yaml:"lock_ttl"             env:"JOURNAL_LOCK_TTL"             env-default:"2m"`
	Schedule            string        `yaml:"schedule"             env:"JOURNAL_SCHEDULE"`
	Timezone            string        `yaml:"timezone"             env:"JOURNAL_TIMEZONE"             env-default:"UTC"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOriginsRaw string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000"`
}

// EncryptionConfig holds the base64 AES-256 key used for data at rest
type EncryptionConfig struct {
	Key string `yaml:"key" env:"ENCRYPTION_KEY"`
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// RunsServer reports whether the HTTP server should start in this mode
func (c *Config) RunsServer() bool {
	return c.Mode == ModeServer || c.Mode == ModeAll
}

// RunsWorker reports whether the asynq worker should start in this mode
func (c *Config) RunsWorker() bool {
	return c.Mode == ModeWorker || c.Mode == ModeAll
}

// AdminEmails returns the normalized admin allow-list
func (c AuthConfig) AdminEmails() []string {
	return splitList(c.AdminEmailsRaw, strings.ToLower)
}

// IsAdminEmail reports whether email is on the admin allow-list
func (c AuthConfig) IsAdminEmail(email string) bool {
	return slices.Contains(c.AdminEmails(), strings.ToLower(strings.TrimSpace(email)))
}

// AllowedOrigins returns the configured CORS origins
func (c CORSConfig) AllowedOrigins() []string {
	return splitList(c.AllowedOriginsRaw, nil)
}

func splitList(raw string, normalize func(string) string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if normalize != nil {
			part = normalize(part)
		}
		out = append(out, part)
	}
	return out
}
