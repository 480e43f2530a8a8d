// Package assistant runs the tool-calling conversation loop behind the AI chat endpoint.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	werrors "github.com/phoneme/workspace/internal/errors"
	"github.com/phoneme/workspace/internal/llm"
	"github.com/phoneme/workspace/internal/metrics"
	"github.com/phoneme/workspace/internal/requestid"
	"github.com/phoneme/workspace/internal/tool"
)

// Defaults applied by New when Config leaves a field zero.
const (
	DefaultMaxRounds   = 8
	DefaultCallTimeout = 60 * time.Second
)

// Config tunes the conversation loop.
type Config struct {
	MaxRounds      int           // model calls per request
	CallTimeout    time.Duration // per model call
	MaxTokens      int           // 0 = provider default
	DefaultProject string        // named in the system prompt
	Now            func() time.Time
}

// Turn is one prior message supplied by the client.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single chat exchange.
type Request struct {
	Message string
	History []Turn
	Caller  tool.Caller
}

// Response is the final answer plus accounting for the whole exchange.
type Response struct {
	Response  string    `json:"response"`
	Usage     llm.Usage `json:"usage"`
	Rounds    int       `json:"-"`
	ToolCalls int       `json:"-"`
}

// Orchestrator drives the model through tool calls until it answers in prose.
type Orchestrator struct {
	provider llm.Provider
	registry *tool.Registry
	metrics  *metrics.Metrics
	cfg      Config
	logger   zerolog.Logger
}

// New creates an Orchestrator. provider may be nil, in which case Chat
// reports ErrNotConfigured. m may be nil.
func New(provider llm.Provider, registry *tool.Registry, cfg Config, m *metrics.Metrics, logger zerolog.Logger) *Orchestrator {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		provider: provider,
		registry: registry,
		metrics:  m,
		cfg:      cfg,
		logger:   logger.With().Str("component", "assistant").Logger(),
	}
}

// Configured reports whether a model provider is available.
func (o *Orchestrator) Configured() bool {
	return o.provider != nil
}

// Provider returns the model provider, or nil when unconfigured.
func (o *Orchestrator) Provider() llm.Provider {
	return o.provider
}

// ToolNames lists the tools advertised to the model.
func (o *Orchestrator) ToolNames() []string {
	return o.registry.Names()
}

// Chat answers one user message. Tool calls requested by the model are run
// sequentially in the order returned, and their results are fed back until
// the model replies without tool calls or MaxRounds is exhausted.
func (o *Orchestrator) Chat(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := o.chat(ctx, req)

	if o.metrics != nil {
		rounds := 0
		if resp != nil {
			rounds = resp.Rounds
			o.metrics.AddTokens(resp.Usage.InputTokens, resp.Usage.OutputTokens)
		}
		o.metrics.RecordChat(outcome(err), time.Since(start).Seconds(), rounds)
		if err != nil {
			o.metrics.RecordError("assistant", outcome(err))
		}
	}
	return resp, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, werrors.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, werrors.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, werrors.ErrMaxRounds):
		return "max_rounds"
	case errors.Is(err, werrors.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}

func (o *Orchestrator) chat(ctx context.Context, req Request) (*Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, werrors.Invalid("message is required")
	}
	if o.provider == nil {
		return nil, werrors.ErrNotConfigured
	}

	logger := requestid.Logger(ctx, o.logger).With().Str("user_id", req.Caller.ID).Logger()

	schemas := o.registry.Schemas()
	system := systemPrompt(req.Caller, o.cfg.Now(), o.cfg.DefaultProject, schemas)
	transcript := buildTranscript(req.History, message)

	out := &Response{}
	for round := 1; round <= o.cfg.MaxRounds; round++ {
		out.Rounds = round

		completion, err := o.complete(ctx, llm.CompletionRequest{
			Messages:     transcript,
			SystemPrompt: system,
			Tools:        schemas,
			ToolChoice:   llm.ToolChoiceAuto,
			MaxTokens:    o.cfg.MaxTokens,
		})
		if err != nil {
			return out, fmt.Errorf("model call (round %d): %w", round, err)
		}
		out.Usage.Add(completion.Usage)

		logger.Debug().
			Int("round", round).
			Str("stop_reason", completion.StopReason).
			Int("tool_calls", len(completion.ToolCalls)).
			Msg("model response")

		if !completion.HasToolCalls() {
			out.Response = completion.Text
			logger.Info().
				Int("rounds", out.Rounds).
				Int("tool_calls", out.ToolCalls).
				Int("input_tokens", out.Usage.InputTokens).
				Int("output_tokens", out.Usage.OutputTokens).
				Msg("chat completed")
			return out, nil
		}

		transcript = append(transcript, llm.AssistantMessage(completion.Text, completion.ToolCalls))
		for _, call := range completion.ToolCalls {
			result, err := o.runTool(ctx, logger, req.Caller, call)
			if err != nil {
				return out, err
			}
			out.ToolCalls++
			transcript = append(transcript, llm.ToolResultMessage(call.ID, result.JSON(), result.IsError()))
		}
	}

	logger.Warn().Int("max_rounds", o.cfg.MaxRounds).Int("tool_calls", out.ToolCalls).Msg("chat exceeded round limit")
	return out, fmt.Errorf("%w: model still calling tools after %d rounds", werrors.ErrMaxRounds, o.cfg.MaxRounds)
}

// buildTranscript keeps prior user and assistant turns with content and
// appends the new message.
func buildTranscript(history []Turn, message string) []llm.Message {
	transcript := make([]llm.Message, 0, len(history)+1)
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		switch turn.Role {
		case llm.RoleUser:
			transcript = append(transcript, llm.UserMessage(content))
		case llm.RoleAssistant:
			transcript = append(transcript, llm.AssistantMessage(content, nil))
		}
	}
	return append(transcript, llm.UserMessage(message))
}

// complete performs one bounded model call.
func (o *Orchestrator) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()

	resp, err := o.provider.Complete(callCtx, req)
	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.RecordModelCall(o.provider.Name(), status)
	}
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, werrors.ErrTimeout) {
			return nil, fmt.Errorf("%w after %s: %w", werrors.ErrTimeout, o.cfg.CallTimeout, err)
		}
		return nil, err
	}
	return resp, nil
}

func (o *Orchestrator) runTool(ctx context.Context, logger zerolog.Logger, caller tool.Caller, call llm.ToolCall) (tool.Result, error) {
	start := time.Now()
	result, err := o.registry.Execute(ctx, call.Name, tool.Call{Caller: caller, Input: call.Input})

	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case result.IsError():
		status = "soft_error"
	}
	if o.metrics != nil {
		label := call.Name
		if _, ok := o.registry.Get(call.Name); !ok {
			label = "unknown"
		}
		o.metrics.RecordToolCall(label, status)
	}

	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
	}
	event.
		Str("tool", call.Name).
		Str("tool_call_id", call.ID).
		Str("outcome", status).
		Dur("duration", time.Since(start)).
		Msg("tool executed")

	if err != nil {
		return tool.Result{}, fmt.Errorf("tool %s: %w", call.Name, err)
	}
	return result, nil
}
