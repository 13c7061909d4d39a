package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mcpchat/internal/domain/entity"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoInput struct {
	Text string `json:"text"`
}

type slowInput struct {
	Delay int `json:"delay_ms"`
}

type testServer struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (s *testServer) register(server *mcpsdk.Server) {
	mcpsdk.AddTool(server, &mcpsdk.Tool{Name: "echo", Description: "Echo the given text"},
		func(ctx context.Context, req *mcpsdk.CallToolRequest, in echoInput) (*mcpsdk.CallToolResult, any, error) {
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "echo: " + in.Text}},
			}, nil, nil
		})

	mcpsdk.AddTool(server, &mcpsdk.Tool{Name: "fail", Description: "Always reports a tool error"},
		func(ctx context.Context, req *mcpsdk.CallToolRequest, in echoInput) (*mcpsdk.CallToolResult, any, error) {
			return &mcpsdk.CallToolResult{
				IsError: true,
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "boom"}},
			}, nil, nil
		})

	mcpsdk.AddTool(server, &mcpsdk.Tool{Name: "slow", Description: "Sleeps before answering"},
		func(ctx context.Context, req *mcpsdk.CallToolRequest, in slowInput) (*mcpsdk.CallToolResult, any, error) {
			n := s.inFlight.Add(1)
			defer s.inFlight.Add(-1)
			for {
				cur := s.maxInFlight.Load()
				if n <= cur || s.maxInFlight.CompareAndSwap(cur, n) {
					break
				}
			}
			select {
			case <-time.After(time.Duration(in.Delay) * time.Millisecond):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "done"}},
			}, nil, nil
		})
}

func newTestLink(t *testing.T, cfg Config) (*Link, *testServer) {
	t.Helper()
	ctx := context.Background()

	ts := &testServer{}
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "test-server", Version: "v0.0.1"}, nil)
	ts.register(server)

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	if cfg.Endpoint == "" {
		cfg.Endpoint = "memory://test"
	}
	link, err := ConnectTransport(ctx, clientTransport, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = link.Close() })
	return link, ts
}

func TestLink_ListTools(t *testing.T) {
	link, _ := newTestLink(t, DefaultConfig(""))

	defs, err := link.ListTools(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
		assert.Equal(t, "object", d.InputSchema["type"], d.Name)
	}
	assert.ElementsMatch(t, []string{"echo", "fail", "slow"}, names)

	for _, d := range defs {
		if d.Name == "echo" {
			assert.Equal(t, "Echo the given text", d.Description)
			props, ok := d.InputSchema["properties"].(map[string]any)
			require.True(t, ok)
			assert.Contains(t, props, "text")
		}
	}
}

func TestLink_InvokeSuccess(t *testing.T) {
	link, _ := newTestLink(t, DefaultConfig(""))

	result, err := link.Invoke(context.Background(), "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "echo: hi", result.Content)
}

func TestLink_InvokeToolReportedError(t *testing.T) {
	link, _ := newTestLink(t, DefaultConfig(""))

	result, err := link.Invoke(context.Background(), "fail", map[string]any{"text": "x"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "boom", result.Error)
}

func TestLink_InvokeUnknownToolIsTransportError(t *testing.T) {
	link, _ := newTestLink(t, DefaultConfig(""))

	_, err := link.Invoke(context.Background(), "missing", nil)
	require.Error(t, err)

	var te *entity.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, opCallTool, te.Op)
	assert.Equal(t, "missing", te.Tool)

	result, err := link.Invoke(context.Background(), "echo", map[string]any{"text": "still usable"})
	require.NoError(t, err)
	assert.Equal(t, "echo: still usable", result.Content)
}

func TestLink_CancelledContext(t *testing.T) {
	link, _ := newTestLink(t, DefaultConfig(""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := link.Invoke(ctx, "echo", map[string]any{"text": "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	result, err := link.Invoke(context.Background(), "echo", map[string]any{"text": "after"})
	require.NoError(t, err)
	assert.Equal(t, "echo: after", result.Content)
}

func TestLink_RequestTimeoutLeavesLinkUsable(t *testing.T) {
	cfg := DefaultConfig("")
	cfg.RequestTimeout = 50 * time.Millisecond
	link, _ := newTestLink(t, cfg)

	_, err := link.Invoke(context.Background(), "slow", map[string]any{"delay_ms": 2000})
	require.Error(t, err)
	var te *entity.TransportError
	assert.True(t, errors.As(err, &te))

	result, err := link.Invoke(context.Background(), "echo", map[string]any{"text": "ok"})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestLink_SerializesConcurrentRequests(t *testing.T) {
	link, ts := newTestLink(t, DefaultConfig(""))

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := link.Invoke(context.Background(), "slow", map[string]any{"delay_ms": 20})
			if err != nil {
				errs <- err
				return
			}
			if !res.Success {
				errs <- fmt.Errorf("call %d failed: %s", i, res.Error)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, int32(1), ts.maxInFlight.Load())
}

func TestLink_CloseIsIdempotent(t *testing.T) {
	link, _ := newTestLink(t, DefaultConfig(""))

	require.NoError(t, link.Close())
	_ = link.Close()

	_, err := link.ListTools(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrLinkClosed))
}

func TestConnect_InvalidSpec(t *testing.T) {
	_, err := Connect(context.Background(), DefaultConfig("stdio://"))
	require.Error(t, err)

	var ce *entity.ConnectionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "stdio://", ce.Endpoint)
	assert.Contains(t, err.Error(), "stdio command is empty")
}

func TestToToolResult(t *testing.T) {
	tests := []struct {
		name string
		in   *mcpsdk.CallToolResult
		want entity.ToolResult
	}{
		{
			name: "nil",
			in:   nil,
			want: entity.ToolResult{Success: false, Error: "tool returned no result"},
		},
		{
			name: "multiple text parts",
			in: &mcpsdk.CallToolResult{Content: []mcpsdk.Content{
				&mcpsdk.TextContent{Text: "line 1"},
				&mcpsdk.TextContent{Text: "line 2"},
			}},
			want: entity.ToolResult{Success: true, Content: "line 1\nline 2"},
		},
		{
			name: "structured only",
			in:   &mcpsdk.CallToolResult{StructuredContent: map[string]any{"rows": 2}},
			want: entity.ToolResult{Success: true, Content: `{"rows":2}`},
		},
		{
			name: "error without text",
			in:   &mcpsdk.CallToolResult{IsError: true},
			want: entity.ToolResult{Success: false, Error: "tool reported an error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toToolResult(tt.in))
		})
	}
}

func TestNormalizeSchema(t *testing.T) {
	schema, err := normalizeSchema(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "object", "properties": map[string]any{}}, schema)

	schema, err = normalizeSchema(map[string]any{
		"type":     "object",
		"required": []string{"city"},
		"properties": map[string]any{
			"city": map[string]any{"type": "string"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"city"}, schema["required"])
}
