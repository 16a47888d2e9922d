package dialogue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hackgods/clinic-scheduling-assistant/internal/apperr"
	"github.com/hackgods/clinic-scheduling-assistant/internal/llm"
)

var ErrInvalidHistory = errors.New("invalid conversation history")

// ValidateHistory checks that history is a well formed conversation: user
// and assistant turns carry content, and every assistant tool call batch is
// answered by one tool message per call before the conversation moves on.
func ValidateHistory(history []llm.Message) error {
	pending := map[string]bool{}

	for i, m := range history {
		if m.Role != llm.RoleTool && len(pending) > 0 {
			return invalid(i, "tool calls left unanswered")
		}

		switch m.Role {
		case llm.RoleUser:
			if strings.TrimSpace(m.Text) == "" {
				return invalid(i, "user message has no text")
			}
			if len(m.ToolCalls) > 0 || m.ToolResult != nil {
				return invalid(i, "user message carries tool data")
			}
		case llm.RoleAssistant:
			if m.ToolResult != nil {
				return invalid(i, "assistant message carries a tool result")
			}
			if strings.TrimSpace(m.Text) == "" && len(m.ToolCalls) == 0 {
				return invalid(i, "assistant message is empty")
			}
			for _, c := range m.ToolCalls {
				if c.ID == "" || c.Name == "" {
					return invalid(i, "tool call needs an id and a name")
				}
				if pending[c.ID] {
					return invalid(i, fmt.Sprintf("duplicate tool call id %q", c.ID))
				}
				pending[c.ID] = true
			}
		case llm.RoleTool:
			if m.ToolResult == nil {
				return invalid(i, "tool message has no result")
			}
			if !pending[m.ToolResult.CallID] {
				return invalid(i, fmt.Sprintf("tool result %q answers no pending call", m.ToolResult.CallID))
			}
			delete(pending, m.ToolResult.CallID)
		default:
			return invalid(i, fmt.Sprintf("unknown role %q", m.Role))
		}
	}

	if len(pending) > 0 {
		return invalid(len(history)-1, "tool calls left unanswered")
	}
	return nil
}

func invalid(index int, reason string) error {
	return apperr.E(apperr.ErrValidation, "dialogue.history",
		fmt.Errorf("%w: message %d: %s", ErrInvalidHistory, index, reason))
}
