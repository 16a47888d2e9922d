package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling-assistant/internal/llm"
)

type fakeMessages struct {
	got  anthropic.MessageNewParams
	resp *anthropic.Message
	err  error
}

func (f *fakeMessages) New(_ context.Context, body anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.got = body
	return f.resp, f.err
}

func TestBuildMessagesGroupsToolResults(t *testing.T) {
	msgs := buildMessages([]llm.Message{
		llm.UserMessage("cancel both"),
		llm.ToolCallMessage("checking",
			llm.ToolCall{ID: "t1", Name: "cancel_appointment", Arguments: json.RawMessage(`{"time":"10:00"}`)},
			llm.ToolCall{ID: "t2", Name: "cancel_appointment", Arguments: json.RawMessage(`{"time":"15:00"}`)},
		),
		llm.ToolResultMessage(llm.ToolResult{CallID: "t1", Content: `{"ok":true}`}),
		llm.ToolResultMessage(llm.ToolResult{CallID: "t2", Content: `{"ok":false}`, IsError: true}),
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
	assert.Len(t, msgs[1].Content, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[2].Role)
	require.Len(t, msgs[2].Content, 2)
	require.NotNil(t, msgs[2].Content[1].OfToolResult)
	assert.Equal(t, "t2", msgs[2].Content[1].OfToolResult.ToolUseID)
}

func TestBuildToolsCopiesSchema(t *testing.T) {
	tools := buildTools([]llm.ToolDefinition{{
		Name:        "book_appointment",
		Description: "book a slot",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"date": map[string]any{"type": "string"}},
			"required":   []string{"date"},
		},
	}})

	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "book_appointment", tools[0].OfTool.Name)
	assert.Equal(t, []string{"date"}, tools[0].OfTool.InputSchema.Required)
}

func TestCompleteError(t *testing.T) {
	c := newClientWithAPI(&fakeMessages{err: errors.New("overloaded")}, Options{Model: "claude", MaxTokens: 10})
	_, err := c.Complete(context.Background(), llm.Request{Messages: []llm.Message{llm.UserMessage("hi")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}
