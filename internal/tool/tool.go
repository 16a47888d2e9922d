// Package tool exposes scheduling operations to the model as a fixed set of
// named tools with typed, validated arguments.
package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hackgods/clinic-scheduling-assistant/internal/apperr"
	"github.com/hackgods/clinic-scheduling-assistant/internal/llm"
	"github.com/hackgods/clinic-scheduling-assistant/internal/validate"
)

// Tool is one registry entry. Build it with New so the schema and the
// argument decoding always agree.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any

	call func(ctx context.Context, v *validate.Validator, raw json.RawMessage) (any, error)
}

// New binds fn to a tool whose arguments decode into A.
func New[A any](name, description string, fn func(ctx context.Context, args A) (any, error)) Tool {
	var zero A
	return Tool{
		Name:        name,
		Description: description,
		Parameters:  SchemaFor(zero),
		call: func(ctx context.Context, v *validate.Validator, raw json.RawMessage) (any, error) {
			var args A
			if err := decodeArgs(raw, &args); err != nil {
				return nil, apperr.E(apperr.ErrValidation, name, err)
			}
			if err := v.Struct(name, args); err != nil {
				return nil, err
			}
			return fn(ctx, args)
		},
	}
}

func (t Tool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
}

func decodeArgs(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte(`{}`)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("invalid arguments: trailing data")
	}
	return nil
}

// ErrorPayload is the structured failure the model sees.
type ErrorPayload struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	Candidates []string          `json:"candidates,omitempty"`
}

// Result is the payload of one tool call, folded back into the conversation.
type Result struct {
	OK    bool          `json:"ok"`
	Data  any           `json:"data,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
}

func (r Result) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return `{"ok":false,"error":{"code":"internal","message":"unencodable tool result"}}`
	}
	return string(b)
}
