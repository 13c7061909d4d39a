package input

import (
	"context"

	"mcpchat/internal/domain/entity"
)

type QueryResult struct {
	RunID string
	// FinalText is the assistant text of every turn, in order.
	FinalText string
	// Transcript is FinalText interleaved with one marker per tool invocation.
	Transcript string
	Turns      int
	ToolCalls  int
	Truncated  bool
	Messages   []entity.Message
	History    []entity.TurnRecord
}

type QueryRunner interface {
	RunQuery(ctx context.Context, text string) (*QueryResult, error)
}
