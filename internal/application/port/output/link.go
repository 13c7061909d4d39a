package output

import (
	"context"

	"mcpchat/internal/domain/entity"
)

type ToolLister interface {
	ListTools(ctx context.Context) ([]entity.ToolDefinition, error)
}

type ToolCaller interface {
	Invoke(ctx context.Context, name string, args map[string]any) (entity.ToolResult, error)
}

// ToolLinkPort is a connection to a tool-hosting process. Implementations allow at most
// one request in flight at a time.
type ToolLinkPort interface {
	ToolLister
	ToolCaller
	Close() error
}
