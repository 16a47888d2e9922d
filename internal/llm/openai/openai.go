// Package openai adapts the OpenAI Chat Completions API to llm.Client.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hackgods/clinic-scheduling-assistant/internal/llm"
)

type chatAPI interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type Options struct {
	Model               string
	MaxCompletionTokens int64
	APIKey              string
}

type Client struct {
	api  chatAPI
	opts Options
}

func NewClient(optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)
	return &Client{api: &client.Chat.Completions, opts: opts}
}

func newClientWithAPI(api chatAPI, opts Options) *Client {
	return &Client{api: api, opts: opts}
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	resp, err := c.api.New(ctx, c.buildParams(req))
	if err != nil {
		return llm.Response{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llm.Response{}, errors.New("openai: no choices returned")
	}

	ch0 := resp.Choices[0]
	out := llm.Response{
		Text:       ch0.Message.Content,
		StopReason: ch0.FinishReason,
		Usage: llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	for _, tc := range ch0.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: llm.NormalizeArguments(json.RawMessage(tc.Function.Arguments)),
		})
	}
	return out, nil
}

func (c *Client) buildParams(req llm.Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages: buildMessages(req),
		Model:    c.opts.Model,
	}
	if c.opts.MaxCompletionTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.opts.MaxCompletionTokens)
	}
	if len(req.Tools) == 0 {
		return params
	}

	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Name,
				Description: openai.String(tdef.Description),
				Parameters:  tdef.Parameters,
			},
		}
	}
	params.Tools = tools
	return params
}

// buildMessages maps the conversation onto chat messages. Tool results
// become tool role messages keyed by the call id they answer.
func buildMessages(req llm.Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}

	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleUser:
			messages = append(messages, openai.UserMessage(m.Text))
		case llm.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(m.Text))
				continue
			}
			assistant := &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: make([]openai.ChatCompletionMessageToolCallParam, len(m.ToolCalls)),
			}
			if m.Text != "" {
				assistant.Content.OfString = openai.String(m.Text)
			}
			for i, tc := range m.ToolCalls {
				assistant.ToolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(tc.ArgumentsOrEmpty()),
					},
				}
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		case llm.RoleTool:
			if m.ToolResult != nil {
				messages = append(messages, openai.ToolMessage(m.ToolResult.Content, m.ToolResult.CallID))
			}
		}
	}
	return messages
}
