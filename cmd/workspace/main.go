package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/phoneme/workspace/internal/assistant"
	"github.com/phoneme/workspace/internal/config"
	werrors "github.com/phoneme/workspace/internal/errors"
	"github.com/phoneme/workspace/internal/llm"
	"github.com/phoneme/workspace/internal/metrics"
	"github.com/phoneme/workspace/internal/retry"
	"github.com/phoneme/workspace/internal/store"
	"github.com/phoneme/workspace/internal/tasktools"
	"github.com/phoneme/workspace/internal/tool"
)

// devJWTSecret signs sessions in development when JWT_SECRET is unset, so
// tokens minted by `workspace token` work against `workspace serve`.
const devJWTSecret = "phoneme-workspace-dev-secret"

var rootCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Phoneme Workspace AI assistant service",
	Long: `Serves the Phoneme Workspace AI chat assistant: an LLM tool-calling loop
over the workspace's tasks, users and projects.

Configuration is read from environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds the process logger.
func setup() (*config.Config, zerolog.Logger, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "" || os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		return nil, logger, err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if cfg.JWTSecret == "" && cfg.IsDevelopment() {
		logger.Warn().Msg("JWT_SECRET not set; using the development secret")
		cfg.JWTSecret = devJWTSecret
	}
	return cfg, logger, nil
}

// openStore connects to the database, retrying while it comes up.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store.Store, error) {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.DBConnectAttempts
	rc.Retryable = func(err error) bool {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	rc.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("database not ready, retrying")
	}

	var s *store.Store
	err := retry.Do(ctx, rc, func(ctx context.Context) error {
		var openErr error
		s, openErr = store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL, logger)
		return openErr
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}
	return s, nil
}

// buildAssistant wires the task tools and, when configured, the model provider.
func buildAssistant(ctx context.Context, cfg *config.Config, s *store.Store, m *metrics.Metrics, logger zerolog.Logger) (*assistant.Orchestrator, error) {
	registry := tool.NewRegistry()
	tasktools.Register(registry, s, cfg.DefaultProject, logger)

	provider, err := llm.NewProvider(ctx, llm.ProviderOptions{
		Backend:    cfg.LLMProvider,
		APIKey:     cfg.AnthropicAPIKey,
		Model:      cfg.LLMModel,
		MaxTokens:  cfg.LLMMaxTokens,
		AWSRegion:  cfg.AWSRegion,
		AWSProfile: cfg.AWSProfile,
	}, logger)
	switch {
	case errors.Is(err, werrors.ErrNotConfigured):
		logger.Warn().Err(err).Msg("AI assistant disabled")
		provider = nil
	case err != nil:
		return nil, err
	default:
		logger.Info().Str("provider", provider.Name()).Str("model", provider.ModelID()).Msg("LLM provider ready")
	}

	return assistant.New(provider, registry, assistant.Config{
		MaxRounds:      cfg.AIMaxRounds,
		CallTimeout:    cfg.LLMTimeout,
		MaxTokens:      cfg.LLMMaxTokens,
		DefaultProject: cfg.DefaultProject,
	}, m, logger), nil
}
