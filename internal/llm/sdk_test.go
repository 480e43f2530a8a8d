package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	werrors "github.com/phoneme/workspace/internal/errors"
)

func TestSDKMessages_Alternation(t *testing.T) {
	msgs := []Message{
		UserMessage("create a task"),
		AssistantMessage("", []ToolCall{{ID: "c1", Name: "create_task", Input: json.RawMessage(`{"title":"x"}`)}}),
		ToolResultMessage("c1", `{"success":true}`, false),
		UserMessage("thanks"),
	}

	out, system := sdkMessages(msgs)
	assert.Empty(t, system)
	require.Len(t, out, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, out[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, out[1].Role)
	assert.Equal(t, anthropic.MessageParamRoleUser, out[2].Role)
	assert.Len(t, out[2].Content, 2) // tool result + follow-up text
}

func TestSDKTools_ParsesSchema(t *testing.T) {
	tools, err := sdkTools([]ToolSchema{{
		Name:        "search_tasks",
		Description: "Search",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`),
	}})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "search_tasks", tools[0].OfTool.Name)
	assert.Equal(t, []string{"query"}, tools[0].OfTool.InputSchema.Required)
}

func TestSDKTools_BadSchema(t *testing.T) {
	_, err := sdkTools([]ToolSchema{{Name: "broken", InputSchema: json.RawMessage(`[`)}})
	assert.Error(t, err)
}

func TestNewProvider_NotConfigured(t *testing.T) {
	for _, backend := range []string{"anthropic", "anthropic-sdk", "bedrock"} {
		_, err := NewProvider(context.Background(), ProviderOptions{Backend: backend}, zerolog.Nop())
		assert.ErrorIs(t, err, werrors.ErrNotConfigured, backend)
	}
}

func TestNewProvider_Backends(t *testing.T) {
	p, err := NewProvider(context.Background(), ProviderOptions{Backend: "anthropic", APIKey: "k", Model: "m1"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, "m1", p.ModelID())

	p, err = NewProvider(context.Background(), ProviderOptions{Backend: "anthropic-sdk", APIKey: "k"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "anthropic-sdk", p.Name())

	_, err = NewProvider(context.Background(), ProviderOptions{Backend: "openai", APIKey: "k"}, zerolog.Nop())
	assert.Error(t, err)
}
