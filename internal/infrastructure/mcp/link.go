package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mcpchat/internal/application/port/output"
	"mcpchat/internal/domain/entity"
	"mcpchat/internal/infrastructure/logger"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/semaphore"
)

var _ output.ToolLinkPort = (*Link)(nil)

const (
	clientName            = "mcpchat"
	clientVersion         = "0.1.0"
	defaultRequestTimeout = 60 * time.Second

	opListTools = "tools/list"
	opCallTool  = "tools/call"
)

type Config struct {
	Endpoint string
	// RequestTimeout bounds every single request. Zero disables the bound.
	RequestTimeout time.Duration
	Logger         output.LoggerPort
}

func DefaultConfig(endpoint string) Config {
	return Config{
		Endpoint:       endpoint,
		RequestTimeout: defaultRequestTimeout,
	}
}

// Link owns one MCP client session. Requests are serialized: a single channel never
// carries two requests at once.
type Link struct {
	session  *mcpsdk.ClientSession
	sem      *semaphore.Weighted
	endpoint string
	timeout  time.Duration
	logger   output.LoggerPort

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func Connect(ctx context.Context, cfg Config) (*Link, error) {
	transport, err := transportBuilder(cfg.Endpoint)
	if err != nil {
		return nil, &entity.ConnectionError{Endpoint: cfg.Endpoint, Err: err}
	}
	return ConnectTransport(ctx, transport, cfg)
}

// ConnectTransport performs the initialize handshake over a caller-built transport.
func ConnectTransport(ctx context.Context, transport mcpsdk.Transport, cfg Config) (*Link, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	log = log.Named("link").WithField("endpoint", cfg.Endpoint)

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: clientName, Version: clientVersion}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		log.Error("Connection failed", "error", err)
		return nil, &entity.ConnectionError{Endpoint: cfg.Endpoint, Err: err}
	}

	log.Info("Connected to tool server")
	return &Link{
		session:  session,
		sem:      semaphore.NewWeighted(1),
		endpoint: cfg.Endpoint,
		timeout:  cfg.RequestTimeout,
		logger:   log,
	}, nil
}

func (l *Link) Endpoint() string {
	return l.endpoint
}

func (l *Link) ListTools(ctx context.Context) ([]entity.ToolDefinition, error) {
	var defs []entity.ToolDefinition
	err := l.do(ctx, opListTools, "", func(ctx context.Context) error {
		defs = nil
		for tool, err := range l.session.Tools(ctx, nil) {
			if err != nil {
				return err
			}
			def, err := toToolDefinition(tool)
			if err != nil {
				return err
			}
			defs = append(defs, def)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.logger.Debug("Listed tools", "count", len(defs))
	return defs, nil
}

// Invoke calls a tool. A tool that reports an error is a completed exchange: the result has
// Success=false and err is nil. err is non-nil only when the exchange itself failed.
func (l *Link) Invoke(ctx context.Context, name string, args map[string]any) (entity.ToolResult, error) {
	if args == nil {
		args = map[string]any{}
	}

	var result entity.ToolResult
	err := l.do(ctx, opCallTool, name, func(ctx context.Context) error {
		res, err := l.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
		if err != nil {
			return err
		}
		result = toToolResult(res)
		return nil
	})
	if err != nil {
		return entity.ToolResult{}, err
	}
	return result, nil
}

func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		l.closeErr = l.session.Close()
		l.logger.Info("Link closed")
	})
	return l.closeErr
}

func (l *Link) do(ctx context.Context, op, tool string, fn func(context.Context) error) error {
	if l.closed.Load() {
		return &entity.TransportError{Op: op, Tool: tool, Err: entity.ErrLinkClosed}
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return &entity.TransportError{Op: op, Tool: tool, Err: err}
	}
	defer l.sem.Release(1)

	reqCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := fn(reqCtx); err != nil {
		l.logger.Warn("Request failed", "op", op, "tool", tool, "error", err, "durationMs", time.Since(start).Milliseconds())
		return &entity.TransportError{Op: op, Tool: tool, Err: err}
	}
	l.logger.Debug("Request completed", "op", op, "tool", tool, "durationMs", time.Since(start).Milliseconds())
	return nil
}

func toToolDefinition(tool *mcpsdk.Tool) (entity.ToolDefinition, error) {
	if tool == nil {
		return entity.ToolDefinition{}, errors.New("server returned a nil tool")
	}
	schema, err := normalizeSchema(tool.InputSchema)
	if err != nil {
		return entity.ToolDefinition{}, fmt.Errorf("tool %q input schema: %w", tool.Name, err)
	}
	return entity.ToolDefinition{
		Name:        tool.Name,
		Description: tool.Description,
		InputSchema: schema,
	}, nil
}

// normalizeSchema round-trips the schema through JSON so the rest of the program only sees
// plain maps, whatever representation the SDK uses.
func normalizeSchema(raw any) (map[string]any, error) {
	schema := map[string]any{}
	if raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &schema); err != nil {
			return nil, err
		}
	}
	if schema == nil {
		schema = map[string]any{}
	}
	if _, ok := schema["type"]; !ok {
		schema["type"] = "object"
	}
	if _, ok := schema["properties"]; !ok {
		schema["properties"] = map[string]any{}
	}
	return schema, nil
}

func toToolResult(res *mcpsdk.CallToolResult) entity.ToolResult {
	if res == nil {
		return entity.ToolResult{Success: false, Error: "tool returned no result"}
	}

	text := contentText(res.Content)
	if text == "" && res.StructuredContent != nil {
		if data, err := json.Marshal(res.StructuredContent); err == nil {
			text = string(data)
		}
	}

	if res.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return entity.ToolResult{Success: false, Error: text}
	}
	return entity.ToolResult{Success: true, Content: text}
}

func contentText(content []mcpsdk.Content) string {
	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case *mcpsdk.TextContent:
			parts = append(parts, v.Text)
		default:
			data, err := json.Marshal(c)
			if err != nil {
				continue
			}
			parts = append(parts, string(data))
		}
	}
	return strings.Join(parts, "\n")
}
