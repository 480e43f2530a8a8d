package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Supported LLM_PROVIDER values.
const (
	ProviderAnthropic    = "anthropic"
	ProviderAnthropicSDK = "anthropic-sdk"
	ProviderBedrock      = "bedrock"
)

// Supported DB_DRIVER values.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":3001"`

	// Database
	DBDriver          string `envconfig:"DB_DRIVER" default:"sqlite"`
	DatabaseURL       string `envconfig:"DATABASE_URL" default:"workspace.db"`
	DBConnectAttempts int    `envconfig:"DB_CONNECT_ATTEMPTS" default:"5"`
	DefaultProject    string `envconfig:"DEFAULT_PROJECT" default:"Office Tasks"`
	SeedFile          string `envconfig:"SEED_FILE"`

	// Session auth (tokens are issued by the main application)
	JWTSecret     string        `envconfig:"JWT_SECRET"`
	SessionCookie string        `envconfig:"SESSION_COOKIE" default:"token"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"168h"`

	// HTTP
	CORSOrigins    string `envconfig:"CORS_ORIGINS"`
	RateLimitRPS   int    `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int    `envconfig:"RATE_LIMIT_BURST" default:"20"`

	// AI assistant. The assistant is disabled (503) when no provider can be built.
	LLMProvider     string        `envconfig:"LLM_PROVIDER" default:"anthropic"`
	AnthropicAPIKey string        `envconfig:"ANTHROPIC_API_KEY"`
	LLMModel        string        `envconfig:"LLM_MODEL"`
	LLMMaxTokens    int           `envconfig:"LLM_MAX_TOKENS" default:"1024"`
	LLMTimeout      time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	AIMaxRounds     int           `envconfig:"AI_MAX_ROUNDS" default:"8"`
	AWSRegion       string        `envconfig:"AWS_REGION"`
	AWSProfile      string        `envconfig:"AWS_PROFILE"`
}

// AIEnabled returns true if enough is configured to build an LLM provider.
// Bedrock resolves credentials from the AWS chain, so only a region is needed.
func (c *Config) AIEnabled() bool {
	switch strings.ToLower(c.LLMProvider) {
	case ProviderBedrock:
		return c.AWSRegion != ""
	case ProviderAnthropic, ProviderAnthropicSDK:
		return c.AnthropicAPIKey != ""
	default:
		return false
	}
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want %s or %s)", c.DBDriver, DriverSQLite, DriverPostgres)
	}
	switch strings.ToLower(c.LLMProvider) {
	case ProviderAnthropic, ProviderAnthropicSDK, ProviderBedrock:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.AIMaxRounds < 1 {
		return fmt.Errorf("AI_MAX_ROUNDS must be at least 1, got %d", c.AIMaxRounds)
	}
	if !c.IsDevelopment() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required outside development")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return LoadWithPrefix("")
}

// LoadWithPrefix reads configuration with a prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
