package entity

import (
	"errors"
	"fmt"
)

var errConversationSeeded = errors.New("conversation already has a user query")

// Conversation is the append-only message log of one orchestration run. It rejects
// appends that would break the call/result pairing of the last assistant turn.
type Conversation struct {
	messages []Message
	turn     int
	pending  map[string]bool
}

// NewConversation seeds the log with an optional system instruction and the user query.
func NewConversation(systemPrompt, query string) *Conversation {
	c := &Conversation{}
	if systemPrompt != "" {
		c.messages = append(c.messages, SystemMessage(systemPrompt))
	}
	c.messages = append(c.messages, UserMessage(query))
	return c
}

func (c *Conversation) Append(msg Message) error {
	switch msg.Role {
	case RoleAssistant:
		if len(c.pending) > 0 {
			return fmt.Errorf("assistant message appended with %d unanswered tool calls", len(c.pending))
		}
		if len(msg.ToolCalls) > 0 {
			c.pending = make(map[string]bool, len(msg.ToolCalls))
			for _, call := range msg.ToolCalls {
				c.pending[call.ID] = true
			}
		}
	case RoleToolResult:
		if !c.pending[msg.ToolCallID] {
			return fmt.Errorf("tool result %q does not answer a pending tool call", msg.ToolCallID)
		}
		delete(c.pending, msg.ToolCallID)
	case RoleUser, RoleSystem:
		return errConversationSeeded
	default:
		return fmt.Errorf("unknown message role %q", msg.Role)
	}
	c.messages = append(c.messages, msg)
	return nil
}

// Messages returns a copy; callers can not reach the underlying log.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int { return len(c.messages) }

func (c *Conversation) Turn() int { return c.turn }

func (c *Conversation) NextTurn() int {
	c.turn++
	return c.turn
}

func (c *Conversation) PendingCalls() int { return len(c.pending) }
