package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/rs/zerolog"
)

const defaultBedrockModel = "us.anthropic.claude-sonnet-4-5-20250929-v1:0"

// SDKProvider implements Provider with the official Anthropic Go SDK.
// It serves both the direct API and AWS Bedrock.
type SDKProvider struct {
	client    anthropic.Client
	name      string
	model     anthropic.Model
	maxTokens int64
	logger    zerolog.Logger
}

// SDKOptions configures an SDKProvider.
type SDKOptions struct {
	Model     string
	MaxTokens int
	Logger    zerolog.Logger
}

// NewSDKProvider builds a provider that talks to the Anthropic API via the SDK.
func NewSDKProvider(apiKey string, opts SDKOptions) *SDKProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return newSDKProvider("anthropic-sdk", client, anthropic.ModelClaudeSonnet4_5_20250929, opts)
}

// NewBedrockProvider builds a provider backed by AWS Bedrock. Credentials come
// from the default AWS chain; profile is optional.
func NewBedrockProvider(ctx context.Context, region, profile string, opts SDKOptions) (*SDKProvider, error) {
	if region == "" {
		return nil, fmt.Errorf("bedrock: AWS region is required")
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(profile))
	}
	client := anthropic.NewClient(bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	return newSDKProvider("bedrock", client, anthropic.Model(defaultBedrockModel), opts), nil
}

func newSDKProvider(name string, client anthropic.Client, fallback anthropic.Model, opts SDKOptions) *SDKProvider {
	model := fallback
	if opts.Model != "" {
		model = anthropic.Model(opts.Model)
	}
	maxTokens := int64(defaultMaxTokens)
	if opts.MaxTokens > 0 {
		maxTokens = int64(opts.MaxTokens)
	}
	return &SDKProvider{
		client:    client,
		name:      name,
		model:     model,
		maxTokens: maxTokens,
		logger:    opts.Logger,
	}
}

func (p *SDKProvider) Name() string    { return p.name }
func (p *SDKProvider) ModelID() string { return string(p.model) }

// Complete sends a blocking completion request through the SDK.
func (p *SDKProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := p.model
	if req.Model != "" {
		model = anthropic.Model(req.Model)
	}
	maxTokens := p.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	messages, extraSystem := sdkMessages(req.Messages)
	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	system := req.SystemPrompt
	if extraSystem != "" {
		if system != "" {
			system += "\n\n"
		}
		system += extraSystem
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	tools, err := sdkTools(req.Tools)
	if err != nil {
		return nil, err
	}
	// ToolChoiceNone is expressed by not advertising tools at all.
	if len(tools) > 0 && req.ToolChoice != ToolChoiceNone {
		params.Tools = tools
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s: messages.new: %w", p.name, err)
	}

	out := &CompletionResponse{
		StopReason: string(resp.StopReason),
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Text += variant.Text
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:    variant.ID,
				Name:  variant.Name,
				Input: inputOrEmpty(variant.Input),
			})
		}
	}

	p.logger.Debug().
		Str("provider", p.name).
		Str("model", string(model)).
		Str("stop_reason", out.StopReason).
		Int("tool_calls", len(out.ToolCalls)).
		Msg("sdk complete")
	return out, nil
}

// sdkMessages mirrors buildMessages for the SDK parameter types.
func sdkMessages(msgs []Message) ([]anthropic.MessageParam, string) {
	type turn struct {
		role   string
		blocks []anthropic.ContentBlockParamUnion
	}
	var turns []turn
	push := func(role string, blocks ...anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(turns); n > 0 && turns[n-1].role == role {
			turns[n-1].blocks = append(turns[n-1].blocks, blocks...)
			return
		}
		turns = append(turns, turn{role: role, blocks: blocks})
	}

	var system string
	for _, m := range msgs {
		switch {
		case m.Role == RoleSystem:
			if system != "" && m.Content != "" {
				system += "\n\n"
			}
			system += m.Content
		case m.ToolResult != nil:
			push(RoleUser, anthropic.NewToolResultBlock(m.ToolResult.ToolCallID, m.ToolResult.Content, m.ToolResult.IsError))
		case m.Role == RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, inputOrEmpty(tc.Input), tc.Name))
			}
			push(RoleAssistant, blocks...)
		default:
			if m.Content != "" {
				push(RoleUser, anthropic.NewTextBlock(m.Content))
			}
		}
	}

	out := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		if t.role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(t.blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(t.blocks...))
		}
	}
	return out, system
}

func sdkTools(schemas []ToolSchema) ([]anthropic.ToolUnionParam, error) {
	tools := make([]anthropic.ToolUnionParam, 0, len(schemas))
	for _, s := range schemas {
		var parsed struct {
			Properties map[string]any `json:"properties"`
			Required   []string       `json:"required"`
		}
		if len(s.InputSchema) > 0 {
			if err := json.Unmarshal(s.InputSchema, &parsed); err != nil {
				return nil, fmt.Errorf("tool %s: parse input schema: %w", s.Name, err)
			}
		}
		if parsed.Properties == nil {
			parsed.Properties = map[string]any{}
		}
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        s.Name,
				Description: anthropic.String(s.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: parsed.Properties,
					Required:   parsed.Required,
				},
			},
		})
	}
	return tools, nil
}
