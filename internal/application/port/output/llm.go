package output

import (
	"context"

	"mcpchat/internal/domain/entity"
)

// CompletionPort turns a conversation and the tools on offer into the model's next decision.
// Failures are *entity.CompletionError values.
type CompletionPort interface {
	Complete(ctx context.Context, req CompletionRequest) (entity.CompletionOutcome, error)
}

type CompletionRequest struct {
	Messages    []entity.Message
	Tools       []entity.ToolDefinition
	MaxTokens   int
	Temperature float32
}
