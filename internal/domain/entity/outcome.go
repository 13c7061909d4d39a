package entity

import (
	"errors"
	"fmt"
)

type OutcomeKind int

const (
	OutcomeFinalText OutcomeKind = iota + 1
	OutcomeToolCalls
	OutcomeTextWithToolCalls
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFinalText:
		return "final_text"
	case OutcomeToolCalls:
		return "tool_calls"
	case OutcomeTextWithToolCalls:
		return "text_with_tool_calls"
	default:
		return "invalid"
	}
}

// CompletionOutcome is the validated decision of one completion turn. Build it with
// FinalText, ToolCallsRequested, TextWithToolCalls or NewOutcome.
type CompletionOutcome struct {
	kind      OutcomeKind
	text      string
	calls     []ToolCall
	truncated bool
}

func FinalText(text string) CompletionOutcome {
	return CompletionOutcome{kind: OutcomeFinalText, text: text}
}

func ToolCallsRequested(calls []ToolCall) CompletionOutcome {
	return CompletionOutcome{kind: OutcomeToolCalls, calls: cloneCalls(calls)}
}

func TextWithToolCalls(text string, calls []ToolCall) CompletionOutcome {
	return CompletionOutcome{kind: OutcomeTextWithToolCalls, text: text, calls: cloneCalls(calls)}
}

// NewOutcome picks the variant matching what the model returned.
func NewOutcome(text string, calls []ToolCall) CompletionOutcome {
	switch {
	case len(calls) == 0:
		return FinalText(text)
	case text == "":
		return ToolCallsRequested(calls)
	default:
		return TextWithToolCalls(text, calls)
	}
}

// MarkTruncated flags that the provider stopped on its output token limit.
func (o CompletionOutcome) MarkTruncated() CompletionOutcome {
	o.truncated = true
	return o
}

func (o CompletionOutcome) Kind() OutcomeKind { return o.kind }
func (o CompletionOutcome) Text() string      { return o.text }
func (o CompletionOutcome) Truncated() bool   { return o.truncated }

func (o CompletionOutcome) HasToolCalls() bool {
	return o.kind == OutcomeToolCalls || o.kind == OutcomeTextWithToolCalls
}

func (o CompletionOutcome) ToolCalls() []ToolCall {
	return cloneCalls(o.calls)
}

func (o CompletionOutcome) Validate() error {
	switch o.kind {
	case OutcomeFinalText:
		if o.text == "" {
			return errors.New("response has neither text nor tool calls")
		}
		return nil
	case OutcomeToolCalls, OutcomeTextWithToolCalls:
		if len(o.calls) == 0 {
			return errors.New("tool call outcome without tool calls")
		}
		if o.kind == OutcomeTextWithToolCalls && o.text == "" {
			return errors.New("text outcome without text")
		}
		seen := make(map[string]struct{}, len(o.calls))
		for i, c := range o.calls {
			if c.ID == "" {
				return fmt.Errorf("tool call %d has no id", i)
			}
			if c.Name == "" {
				return fmt.Errorf("tool call %q has no name", c.ID)
			}
			if _, dup := seen[c.ID]; dup {
				return fmt.Errorf("duplicate tool call id %q", c.ID)
			}
			seen[c.ID] = struct{}{}
		}
		return nil
	default:
		return errors.New("empty completion outcome")
	}
}

func cloneCalls(calls []ToolCall) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]ToolCall, len(calls))
	copy(out, calls)
	return out
}
