package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"studysync/internal/validation"
)

// ErrMissingConfig is returned by Validate when required settings are absent.
var ErrMissingConfig = errors.New("missing required configuration")

// Sync policies applied when the live store query finds an existing page.
const (
	PolicyUpdate = "update"
	PolicySkip   = "skip"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env      string // "development", "production", etc.
	LogLevel string

	// Server
	ServerAddr       string
	TriggerRateLimit int // POST /sync requests per minute per IP

	// Run ledger (optional)
	DatabaseURL string

	// Redis for shared limiter state (optional)
	RedisURL string

	// Notion (store)
	NotionAPIKey     string
	NotionDatabaseID string
	NotionBaseURL    string
	NotionVersion    string

	// Flexge (source)
	FlexgeAPIKey   string
	FlexgeAPIBase  string
	FlexgeRPS      float64
	SourceMaxPages int

	// Jobs
	SyncInterval    time.Duration
	SyncConcurrency int
	SyncPolicy      string // PolicyUpdate or PolicySkip
	ResetSchedule   string // cron expression, evaluated in UTC

	// OIDC bearer check for the manual trigger (optional)
	OIDCIssuer   string
	OIDCClientID string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Env:              getEnv("ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		ServerAddr:       getEnv("SERVER_ADDR", ":3000"),
		TriggerRateLimit: getInt("TRIGGER_RATE_LIMIT", 10),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),

		NotionAPIKey:     getEnv("NOTION_API_KEY", ""),
		NotionDatabaseID: getEnv("NOTION_DATABASE_ID", ""),
		NotionBaseURL:    getEnv("NOTION_BASE_URL", "https://api.notion.com"),
		NotionVersion:    getEnv("NOTION_VERSION", "2022-06-28"),

		FlexgeAPIKey:   getEnv("FLEXGE_API_KEY", ""),
		FlexgeAPIBase:  getEnv("FLEXGE_API_BASE", "https://partner-api.flexge.com/external/students"),
		FlexgeRPS:      getFloat("FLEXGE_RPS", 5),
		SourceMaxPages: getInt("SOURCE_MAX_PAGES", 200),

		SyncInterval:    getDuration("SYNC_INTERVAL", 10*time.Minute),
		SyncConcurrency: getInt("SYNC_CONCURRENCY", 8),
		SyncPolicy:      strings.ToLower(getEnv("SYNC_POLICY", PolicyUpdate)),
		ResetSchedule:   getEnv("RESET_SCHEDULE", "0 0 * * 1"),

		OIDCIssuer:   getEnv("OIDC_ISSUER", ""),
		OIDCClientID: getEnv("OIDC_CLIENT_ID", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// Validate checks required credentials and well-formed values. Missing
// credentials wrap ErrMissingConfig.
func (c *Config) Validate() error {
	var missing []string
	if c.NotionAPIKey == "" {
		missing = append(missing, "NOTION_API_KEY")
	}
	if c.NotionDatabaseID == "" {
		missing = append(missing, "NOTION_DATABASE_ID")
	}
	if c.FlexgeAPIKey == "" {
		missing = append(missing, "FLEXGE_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	if !validation.ValidateDatabaseID(c.NotionDatabaseID) {
		return fmt.Errorf("NOTION_DATABASE_ID %q is not a Notion database id", c.NotionDatabaseID)
	}
	if ok, msg := validation.ValidateURL(c.NotionBaseURL); !ok {
		return fmt.Errorf("NOTION_BASE_URL: %s", msg)
	}
	if ok, msg := validation.ValidateURL(c.FlexgeAPIBase); !ok {
		return fmt.Errorf("FLEXGE_API_BASE: %s", msg)
	}
	if c.SyncPolicy != PolicyUpdate && c.SyncPolicy != PolicySkip {
		return fmt.Errorf("SYNC_POLICY must be %q or %q, got %q", PolicyUpdate, PolicySkip, c.SyncPolicy)
	}
	if c.SyncConcurrency < 1 {
		return fmt.Errorf("SYNC_CONCURRENCY must be positive, got %d", c.SyncConcurrency)
	}
	if c.FlexgeRPS <= 0 {
		return fmt.Errorf("FLEXGE_RPS must be positive, got %v", c.FlexgeRPS)
	}
	return nil
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// IsLedgerEnabled returns true if a Postgres run ledger is configured.
func (c *Config) IsLedgerEnabled() bool {
	return c.DatabaseURL != ""
}

// IsOIDCEnabled returns true if the manual trigger requires a bearer token.
func (c *Config) IsOIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}
