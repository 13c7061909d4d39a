package entity

type RunState int

const (
	StateAwaitingQuery RunState = iota
	StateRequestingCompletion
	StateInvokingTools
	StateTerminated
)

func (s RunState) String() string {
	switch s {
	case StateAwaitingQuery:
		return "awaiting_query"
	case StateRequestingCompletion:
		return "requesting_completion"
	case StateInvokingTools:
		return "invoking_tools"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// TurnRecord is the audit entry of one completion turn.
type TurnRecord struct {
	Turn      int
	Text      string
	ToolCalls []ToolCall
	Results   []ToolResult
	Truncated bool
}
