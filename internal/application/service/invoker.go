package service

import (
	"context"
	"time"

	"mcpchat/internal/application/port/output"
	"mcpchat/internal/domain/entity"
)

var _ output.ToolInvoker = (*ToolInvokerImpl)(nil)

const DefaultMaxResultLen = 20000

// ToolInvokerImpl executes one tool call. It never retries and never returns an error:
// every failure becomes a ToolResult with Success=false.
type ToolInvokerImpl struct {
	link         output.ToolCaller
	logger       output.LoggerPort
	maxResultLen int
}

func NewToolInvoker(link output.ToolCaller, logger output.LoggerPort, maxResultLen int) *ToolInvokerImpl {
	if maxResultLen <= 0 {
		maxResultLen = DefaultMaxResultLen
	}
	return &ToolInvokerImpl{
		link:         link,
		logger:       logger,
		maxResultLen: maxResultLen,
	}
}

func (i *ToolInvokerImpl) Call(ctx context.Context, tools entity.ToolSnapshot, call entity.ToolCall) entity.ToolResult {
	if _, ok := tools.Lookup(call.Name); !ok {
		i.logger.Warn("Unknown tool called", "name", call.Name, "callId", call.ID)
		return entity.FailedResult(call.ID, &entity.UnknownToolError{Name: call.Name})
	}

	i.logger.Info("Executing tool", "name", call.Name, "callId", call.ID, "args", call.ArgumentsJSON())
	start := time.Now()

	result, err := i.link.Invoke(ctx, call.Name, call.Arguments)
	if err != nil {
		i.logger.Error("Tool execution failed", "name", call.Name, "callId", call.ID, "error", err)
		return entity.FailedResult(call.ID, err)
	}
	result.CallID = call.ID

	if len(result.Content) > i.maxResultLen {
		result.Content = result.Content[:i.maxResultLen] + "\n... (truncated)"
	}

	i.logger.Debug("Tool completed",
		"name", call.Name,
		"callId", call.ID,
		"success", result.Success,
		"resultLen", len(result.Content),
		"durationMs", time.Since(start).Milliseconds())
	return result
}
