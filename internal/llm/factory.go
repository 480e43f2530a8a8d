package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	werrors "github.com/phoneme/workspace/internal/errors"
)

// ProviderOptions selects and configures a backend.
type ProviderOptions struct {
	Backend    string // anthropic | anthropic-sdk | bedrock
	APIKey     string
	Model      string
	MaxTokens  int
	AWSRegion  string
	AWSProfile string
}

// NewProvider builds the configured backend. It returns ErrNotConfigured when
// the credentials the backend needs are missing.
func NewProvider(ctx context.Context, opts ProviderOptions, logger zerolog.Logger) (Provider, error) {
	logger = logger.With().Str("component", "llm").Logger()

	switch strings.ToLower(opts.Backend) {
	case "", "anthropic":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("anthropic: missing API key: %w", werrors.ErrNotConfigured)
		}
		return NewAnthropicProvider(opts.APIKey,
			WithModel(opts.Model),
			WithMaxTokens(opts.MaxTokens),
			WithLogger(logger),
		), nil
	case "anthropic-sdk":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("anthropic-sdk: missing API key: %w", werrors.ErrNotConfigured)
		}
		return NewSDKProvider(opts.APIKey, SDKOptions{
			Model: opts.Model, MaxTokens: opts.MaxTokens, Logger: logger,
		}), nil
	case "bedrock":
		if opts.AWSRegion == "" {
			return nil, fmt.Errorf("bedrock: missing AWS region: %w", werrors.ErrNotConfigured)
		}
		return NewBedrockProvider(ctx, opts.AWSRegion, opts.AWSProfile, SDKOptions{
			Model: opts.Model, MaxTokens: opts.MaxTokens, Logger: logger,
		})
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", opts.Backend)
	}
}
