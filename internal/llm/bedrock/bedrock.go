// Package bedrock adapts the Amazon Bedrock Converse API to llm.Client.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/hackgods/clinic-scheduling-assistant/internal/llm"
)

type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type Client struct {
	api       converseAPI
	modelID   string
	maxTokens int32
}

func NewClient(api converseAPI, modelID string, maxTokens int32) *Client {
	if api == nil {
		panic("bedrock: converse client cannot be nil")
	}
	return &Client{api: api, modelID: modelID, maxTokens: maxTokens}
}

// LoadAWSConfig builds the SDK config, preferring static keys when both are set.
func LoadAWSConfig(ctx context.Context, region, accessKeyID, secretKey string) (aws.Config, error) {
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if strings.TrimSpace(accessKeyID) != "" && strings.TrimSpace(secretKey) != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, loaders...)
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if strings.TrimSpace(c.modelID) == "" {
		return llm.Response{}, errors.New("bedrock: model id is required")
	}

	messages, err := buildMessages(req.Messages)
	if err != nil {
		return llm.Response{}, err
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(c.modelID),
		Messages: messages,
	}
	if strings.TrimSpace(req.System) != "" {
		input.System = []brtypes.SystemContentBlock{&brtypes.SystemContentBlockMemberText{Value: req.System}}
	}
	if c.maxTokens > 0 {
		input.InferenceConfig = &brtypes.InferenceConfiguration{MaxTokens: aws.Int32(c.maxTokens)}
	}
	if len(req.Tools) > 0 {
		input.ToolConfig = buildToolConfig(req.Tools)
	}

	out, err := c.api.Converse(ctx, input)
	if err != nil {
		return llm.Response{}, fmt.Errorf("bedrock converse: %w", err)
	}
	return parseOutput(out)
}

func buildMessages(history []llm.Message) ([]brtypes.Message, error) {
	var (
		messages []brtypes.Message
		results  []brtypes.ContentBlock
	)
	flush := func() {
		if len(results) > 0 {
			messages = append(messages, brtypes.Message{Role: brtypes.ConversationRoleUser, Content: results})
			results = nil
		}
	}

	for _, m := range history {
		switch m.Role {
		case llm.RoleTool:
			if m.ToolResult == nil {
				continue
			}
			block := brtypes.ToolResultBlock{
				ToolUseId: aws.String(m.ToolResult.CallID),
				Content: []brtypes.ToolResultContentBlock{
					&brtypes.ToolResultContentBlockMemberText{Value: m.ToolResult.Content},
				},
			}
			if m.ToolResult.IsError {
				block.Status = brtypes.ToolResultStatusError
			}
			results = append(results, &brtypes.ContentBlockMemberToolResult{Value: block})
		case llm.RoleUser:
			flush()
			if strings.TrimSpace(m.Text) == "" {
				continue
			}
			messages = append(messages, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Text}},
			})
		case llm.RoleAssistant:
			flush()
			var content []brtypes.ContentBlock
			if strings.TrimSpace(m.Text) != "" {
				content = append(content, &brtypes.ContentBlockMemberText{Value: m.Text})
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				if err := json.Unmarshal(tc.ArgumentsOrEmpty(), &args); err != nil || args == nil {
					args = map[string]any{}
				}
				content = append(content, &brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
					ToolUseId: aws.String(tc.ID),
					Name:      aws.String(tc.Name),
					Input:     document.NewLazyDocument(args),
				}})
			}
			if len(content) > 0 {
				messages = append(messages, brtypes.Message{Role: brtypes.ConversationRoleAssistant, Content: content})
			}
		default:
			return nil, fmt.Errorf("bedrock: unsupported role %q", m.Role)
		}
	}
	flush()
	return messages, nil
}

func buildToolConfig(tools []llm.ToolDefinition) *brtypes.ToolConfiguration {
	cfg := &brtypes.ToolConfiguration{Tools: make([]brtypes.Tool, 0, len(tools))}
	for _, t := range tools {
		cfg.Tools = append(cfg.Tools, &brtypes.ToolMemberToolSpec{Value: brtypes.ToolSpecification{
			Name:        aws.String(t.Name),
			Description: aws.String(t.Description),
			InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(t.Parameters)},
		}})
	}
	return cfg
}

func parseOutput(out *bedrockruntime.ConverseOutput) (llm.Response, error) {
	if out == nil {
		return llm.Response{}, errors.New("bedrock: response is nil")
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return llm.Response{}, errors.New("bedrock: response did not include a message output")
	}

	resp := llm.Response{StopReason: string(out.StopReason)}
	var text strings.Builder
	for _, block := range msgOut.Value.Content {
		switch b := block.(type) {
		case *brtypes.ContentBlockMemberText:
			text.WriteString(b.Value)
		case *brtypes.ContentBlockMemberToolUse:
			args := json.RawMessage(`{}`)
			if b.Value.Input != nil {
				raw, err := b.Value.Input.MarshalSmithyDocument()
				if err != nil {
					return llm.Response{}, fmt.Errorf("bedrock: decode tool input: %w", err)
				}
				args = raw
			}
			resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
				ID:        aws.ToString(b.Value.ToolUseId),
				Name:      aws.ToString(b.Value.Name),
				Arguments: args,
			})
		}
	}
	resp.Text = strings.TrimSpace(text.String())

	if out.Usage != nil {
		resp.Usage = llm.Usage{
			InputTokens:  int64(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int64(aws.ToInt32(out.Usage.OutputTokens)),
		}
	}
	return resp, nil
}
