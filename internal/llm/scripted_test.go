package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedClientReplaysInOrder(t *testing.T) {
	boom := errors.New("boom")
	c := NewScriptedClient(
		Step{Response: Response{Text: "first"}},
		Step{Err: boom},
	)
	ctx := context.Background()

	resp, err := c.Complete(ctx, Request{Messages: []Message{UserMessage("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Text)

	_, err = c.Complete(ctx, Request{})
	assert.ErrorIs(t, err, boom)

	_, err = c.Complete(ctx, Request{})
	assert.ErrorIs(t, err, ErrScriptExhausted)

	reqs := c.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "hi", reqs[0].Messages[0].Text)
}

func TestScriptedClientBlockHonoursContext(t *testing.T) {
	c := NewScriptedClient(Step{Block: true})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Complete(ctx, Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestToolCallArgumentsOrEmpty(t *testing.T) {
	assert.JSONEq(t, `{}`, string(ToolCall{}.ArgumentsOrEmpty()))
	assert.JSONEq(t, `{"a":1}`, string(ToolCall{Arguments: []byte(`{"a":1}`)}.ArgumentsOrEmpty()))
}

func TestNormalizeArguments(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `{}`},
		{"blank", "  \n", `{}`},
		{"object", `{"date":"2025-03-10"}`, `{"date":"2025-03-10"}`},
		{"padded object", ` {"a":1} `, `{"a":1}`},
		{"truncated", `{"truncated":`, `"{\"truncated\":"`},
		{"plain text", `doctor rao`, `"doctor rao"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeArguments(json.RawMessage(tc.in))
			require.True(t, json.Valid(got), "not valid json: %q", got)
			assert.JSONEq(t, tc.want, string(got))
		})
	}
}

func TestMalformedArgumentsKeepMessageEncodable(t *testing.T) {
	call := ToolCall{ID: "c1", Name: "list_specialties", Arguments: json.RawMessage(`{"truncated":`)}
	_, err := json.Marshal(ToolCallMessage("", call))
	require.Error(t, err)

	call.Arguments = NormalizeArguments(call.Arguments)
	_, err = json.Marshal(ToolCallMessage("", call))
	require.NoError(t, err)
}
