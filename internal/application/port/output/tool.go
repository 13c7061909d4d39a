package output

import (
	"context"

	"mcpchat/internal/domain/entity"
)

type ToolCatalog interface {
	Refresh(ctx context.Context, lister ToolLister) ([]entity.ToolDefinition, error)
	Replace(snapshot entity.ToolSnapshot)
	Snapshot() entity.ToolSnapshot
}

type ToolInvoker interface {
	Call(ctx context.Context, tools entity.ToolSnapshot, call entity.ToolCall) entity.ToolResult
}
