package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOutcome_PicksVariant(t *testing.T) {
	calls := []ToolCall{{ID: "c1", Name: "echo"}}

	assert.Equal(t, OutcomeFinalText, NewOutcome("hi", nil).Kind())
	assert.Equal(t, OutcomeToolCalls, NewOutcome("", calls).Kind())

	both := NewOutcome("let me check", calls)
	assert.Equal(t, OutcomeTextWithToolCalls, both.Kind())
	assert.Equal(t, "let me check", both.Text())
	assert.True(t, both.HasToolCalls())
	assert.Equal(t, calls, both.ToolCalls())
}

func TestCompletionOutcome_Validate(t *testing.T) {
	tests := []struct {
		name    string
		outcome CompletionOutcome
		wantErr string
	}{
		{name: "zero", outcome: CompletionOutcome{}, wantErr: "empty completion outcome"},
		{name: "empty text", outcome: FinalText(""), wantErr: "neither text nor tool calls"},
		{name: "no calls", outcome: ToolCallsRequested(nil), wantErr: "without tool calls"},
		{name: "missing id", outcome: ToolCallsRequested([]ToolCall{{Name: "echo"}}), wantErr: "has no id"},
		{name: "missing name", outcome: ToolCallsRequested([]ToolCall{{ID: "c1"}}), wantErr: "has no name"},
		{
			name:    "duplicate ids",
			outcome: ToolCallsRequested([]ToolCall{{ID: "c1", Name: "a"}, {ID: "c1", Name: "b"}}),
			wantErr: "duplicate tool call id",
		},
		{name: "final text", outcome: FinalText("done")},
		{name: "calls", outcome: TextWithToolCalls("checking", []ToolCall{{ID: "c1", Name: "a"}, {ID: "c2", Name: "a"}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.outcome.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompletionOutcome_CallsAreCopied(t *testing.T) {
	calls := []ToolCall{{ID: "c1", Name: "echo"}}
	outcome := ToolCallsRequested(calls)

	calls[0].Name = "mutated"
	got := outcome.ToolCalls()
	got[0].ID = "also mutated"

	assert.Equal(t, "echo", outcome.ToolCalls()[0].Name)
	assert.Equal(t, "c1", outcome.ToolCalls()[0].ID)
}

func TestCompletionOutcome_MarkTruncated(t *testing.T) {
	outcome := FinalText("partial answer")
	assert.False(t, outcome.Truncated())
	assert.True(t, outcome.MarkTruncated().Truncated())
	assert.False(t, outcome.Truncated())
}

func TestConversation_PairingInvariants(t *testing.T) {
	conv := NewConversation("", "fetch data")
	call1 := ToolCall{ID: "c1", Name: "echo"}
	call2 := ToolCall{ID: "c2", Name: "echo"}

	require.NoError(t, conv.Append(AssistantMessage("", []ToolCall{call1, call2})))
	assert.Equal(t, 2, conv.PendingCalls())

	err := conv.Append(AssistantMessage("too early", nil))
	assert.Error(t, err, "assistant must not speak before every call is answered")

	err = conv.Append(ToolResultMessage(ToolCall{ID: "c9", Name: "echo"}, SucceededResult("c9", "x")))
	assert.Error(t, err, "result for a call that was never issued")

	require.NoError(t, conv.Append(ToolResultMessage(call1, SucceededResult("c1", "one"))))
	err = conv.Append(ToolResultMessage(call1, SucceededResult("c1", "again")))
	assert.Error(t, err, "a call is answered exactly once")

	require.NoError(t, conv.Append(ToolResultMessage(call2, FailedResult("c2", errors.New("boom")))))
	require.NoError(t, conv.Append(AssistantMessage("done", nil)))

	msgs := conv.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "Error: boom", msgs[3].Content)
	assert.True(t, msgs[3].IsError)
}

func TestConversation_MessagesReturnsCopy(t *testing.T) {
	conv := NewConversation("be brief", "hello")

	msgs := conv.Messages()
	msgs[1].Content = "tampered"

	assert.Equal(t, "hello", conv.Messages()[1].Content)
	assert.Equal(t, RoleSystem, conv.Messages()[0].Role)
	assert.Error(t, conv.Append(UserMessage("second query")))
}

func TestToolSnapshot(t *testing.T) {
	snap, err := NewToolSnapshot([]ToolDefinition{{Name: "echo"}, {Name: "get_alerts"}})
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())
	_, ok := snap.Lookup("get_alerts")
	assert.True(t, ok)
	_, ok = snap.Lookup("nope")
	assert.False(t, ok)

	_, err = NewToolSnapshot([]ToolDefinition{{Name: "b"}, {Name: "a"}, {Name: "b"}, {Name: "a"}})
	var ce *CatalogError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"a", "b"}, ce.Duplicates)

	_, err = NewToolSnapshot([]ToolDefinition{{Name: ""}})
	assert.True(t, errors.As(err, &ce))

	var empty ToolSnapshot
	assert.Equal(t, 0, empty.Len())
	assert.Empty(t, empty.Definitions())
}

func TestToolCall_ArgumentsJSON(t *testing.T) {
	assert.Equal(t, "{}", ToolCall{}.ArgumentsJSON())
	assert.Equal(t, `{"x":1}`, ToolCall{Arguments: map[string]any{"x": 1}}.ArgumentsJSON())
	assert.Equal(t, `{ "x": 1 }`, ToolCall{RawArguments: `{ "x": 1 }`, Arguments: map[string]any{"x": 1}}.ArgumentsJSON())
}

func TestErrors_Unwrap(t *testing.T) {
	base := errors.New("eof")
	err := &OrchestrationError{Kind: FailureCompletion, RunID: "r", Turn: 2,
		Err: &CompletionError{Kind: CompletionRateLimited, StatusCode: 429, Err: base}}

	var ce *CompletionError
	require.True(t, errors.As(err, &ce))
	assert.True(t, ce.Retryable())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "run r failed at turn 2 (completion): completion rate_limited (status 429): eof", err.Error())
}
