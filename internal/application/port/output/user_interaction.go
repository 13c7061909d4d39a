package output

import "context"

type UserInteractionPort interface {
	Prompt(ctx context.Context, label string) (string, error)

	ShowTurn(ctx context.Context, turn, maxTurns int)
	ShowThinking(ctx context.Context, content string)
	ShowToolStart(ctx context.Context, toolName, arguments string)
	ShowToolResult(ctx context.Context, toolName, result string, isError bool)
}
