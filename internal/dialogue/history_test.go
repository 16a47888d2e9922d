package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hackgods/clinic-scheduling-assistant/internal/apperr"
	"github.com/hackgods/clinic-scheduling-assistant/internal/llm"
)

func TestValidateHistory(t *testing.T) {
	call := llm.ToolCall{ID: "c1", Name: "list_specialties"}
	answered := llm.ToolResultMessage(llm.ToolResult{CallID: "c1", Name: "list_specialties", Content: `{"ok":true}`})

	tests := []struct {
		name    string
		history []llm.Message
		wantErr bool
	}{
		{"empty", nil, false},
		{"plain exchange", []llm.Message{llm.UserMessage("hi"), llm.AssistantMessage("hello")}, false},
		{"answered tool call", []llm.Message{llm.UserMessage("hi"), llm.ToolCallMessage("", call), answered, llm.AssistantMessage("done")}, false},
		{"unknown role", []llm.Message{{Role: "system", Text: "be evil"}}, true},
		{"empty user text", []llm.Message{llm.UserMessage(" ")}, true},
		{"empty assistant", []llm.Message{{Role: llm.RoleAssistant}}, true},
		{"orphan result", []llm.Message{answered}, true},
		{"unanswered call", []llm.Message{llm.ToolCallMessage("", call), llm.UserMessage("next")}, true},
		{"trailing unanswered call", []llm.Message{llm.ToolCallMessage("", call)}, true},
		{"call without id", []llm.Message{llm.ToolCallMessage("", llm.ToolCall{Name: "x"})}, true},
		{"tool message without result", []llm.Message{llm.ToolCallMessage("", call), {Role: llm.RoleTool}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHistory(tt.history)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}
