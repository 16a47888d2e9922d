// Package llm is the provider neutral view of a chat model with tool calling.
//
// A conversation is an ordered list of Messages. An assistant message either
// carries text or a batch of ToolCalls; each call is answered by one tool
// message carrying a ToolResult with the same call id.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

type Message struct {
	Role       Role        `json:"role"`
	Text       string      `json:"text,omitempty"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

func UserMessage(text string) Message      { return Message{Role: RoleUser, Text: text} }
func AssistantMessage(text string) Message { return Message{Role: RoleAssistant, Text: text} }

func ToolCallMessage(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Text: text, ToolCalls: calls}
}

func ToolResultMessage(r ToolResult) Message {
	return Message{Role: RoleTool, ToolResult: &r}
}

// ToolDefinition advertises one tool. Parameters is a JSON schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type Request struct {
	System   string
	Messages []Message
	Tools    []ToolDefinition
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

type Response struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
	Usage      Usage
}

// Client is a single, non streaming model round trip.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (Response, error)

func (f ClientFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// ArgumentsOrEmpty returns the call arguments, substituting {} when the model sent none.
func (c ToolCall) ArgumentsOrEmpty() json.RawMessage {
	return NormalizeArguments(c.Arguments)
}

// NormalizeArguments makes raw safe to embed in a JSON document. Blank input
// becomes {}; text that is not valid JSON, such as a truncated object, is
// kept as a JSON string so the tool rejects it as a validation failure.
func NormalizeArguments(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage(`{}`)
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, err := json.Marshal(string(raw))
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return quoted
}
