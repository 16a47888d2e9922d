// Package anthropic adapts the Anthropic Messages API to llm.Client.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hackgods/clinic-scheduling-assistant/internal/llm"
)

type messagesAPI interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type Options struct {
	Model     anthropic.Model
	MaxTokens int64
	APIKey    string
}

type Client struct {
	api  messagesAPI
	opts Options
}

func NewClient(optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)
	return &Client{api: &client.Messages, opts: opts}
}

func newClientWithAPI(api messagesAPI, opts Options) *Client {
	return &Client{api: api, opts: opts}
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	params := anthropic.MessageNewParams{
		Model:     c.opts.Model,
		Messages:  buildMessages(req.Messages),
		MaxTokens: c.opts.MaxTokens,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := c.api.New(ctx, params)
	if err != nil {
		return llm.Response{}, fmt.Errorf("anthropic api error: %w", err)
	}

	out := llm.Response{
		StopReason: string(resp.StopReason),
		Usage: llm.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Text += block.AsText().Text
		case "tool_use":
			toolBlock := block.AsToolUse()
			args := json.RawMessage(`{}`)
			if toolBlock.Input != nil {
				if b, err := json.Marshal(toolBlock.Input); err == nil {
					args = b
				}
			}
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:        toolBlock.ID,
				Name:      toolBlock.Name,
				Arguments: args,
			})
		}
	}
	return out, nil
}

// buildMessages folds consecutive tool results into a single user message,
// which is where the Messages API expects tool_result blocks.
func buildMessages(history []llm.Message) []anthropic.MessageParam {
	var (
		messages []anthropic.MessageParam
		results  []anthropic.ContentBlockParamUnion
	)
	flush := func() {
		if len(results) > 0 {
			messages = append(messages, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, m := range history {
		switch m.Role {
		case llm.RoleTool:
			if m.ToolResult != nil {
				results = append(results, anthropic.NewToolResultBlock(m.ToolResult.CallID, m.ToolResult.Content, m.ToolResult.IsError))
			}
		case llm.RoleUser:
			flush()
			if m.Text != "" {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))
			}
		case llm.RoleAssistant:
			flush()
			var content []anthropic.ContentBlockParamUnion
			if m.Text != "" {
				content = append(content, anthropic.NewTextBlock(m.Text))
			}
			for _, tc := range m.ToolCalls {
				// tool_use input must be an object; malformed arguments were
				// already answered with a validation error.
				input := map[string]any{}
				if err := json.Unmarshal(tc.ArgumentsOrEmpty(), &input); err != nil || input == nil {
					input = map[string]any{}
				}
				content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			if len(content) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(content...))
			}
		}
	}
	flush()
	return messages
}

func buildTools(tools []llm.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if properties, ok := tool.Parameters["properties"]; ok {
			inputSchema.Properties = properties
		}
		switch required := tool.Parameters["required"].(type) {
		case []string:
			inputSchema.Required = required
		case []any:
			for _, r := range required {
				if s, ok := r.(string); ok {
					inputSchema.Required = append(inputSchema.Required, s)
				}
			}
		}

		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Name)
		if tool.Description != "" && out[i].OfTool != nil {
			out[i].OfTool.Description = anthropic.String(tool.Description)
		}
	}
	return out
}
