package mcp

import (
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTransportStdioVariants(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []string
	}{
		{name: "ExplicitPrefix", spec: "stdio://echo hello", want: []string{"echo", "hello"}},
		{name: "UppercasePrefix", spec: "STDIO://python main.py", want: []string{"python", "main.py"}},
		{name: "PythonScript", spec: "weather/mcp_server.py", want: []string{"python", "weather/mcp_server.py"}},
		{name: "NodeScript", spec: "./build/index.js --verbose", want: []string{"node", "./build/index.js", "--verbose"}},
		{name: "Binary", spec: "./server --flag value", want: []string{"./server", "--flag", "value"}},
		{name: "URLArgument", spec: "./server --upstream=http://localhost:9000", want: []string{"./server", "--upstream=http://localhost:9000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := buildTransport(tt.spec)
			require.NoError(t, err)

			cmdTr, ok := tr.(*mcpsdk.CommandTransport)
			require.True(t, ok, "transport is %T", tr)
			assert.Equal(t, tt.want, cmdTr.Command.Args)
		})
	}
}

func TestBuildTransportHTTPFamily(t *testing.T) {
	tests := []struct {
		name       string
		spec       string
		want       string
		streamable bool
	}{
		{name: "HTTPDefault", spec: "http://mcp.example/api", want: "http://mcp.example/api"},
		{name: "HTTPSUppercase", spec: "HTTPS://Example.com/api?trace=1", want: "https://Example.com/api?trace=1"},
		{name: "SSEShorthand", spec: "sse://mcp.example/tools", want: "https://mcp.example/tools"},
		{name: "SSEHint", spec: "http+sse://mcp.example/tools", want: "http://mcp.example/tools"},
		{name: "StreamHint", spec: "http+stream://api.example/mcp", want: "http://api.example/mcp", streamable: true},
		{name: "SecureStreamHint", spec: "HTTPS+STREAM://api.example/mcp", want: "https://api.example/mcp", streamable: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := buildTransport(tt.spec)
			require.NoError(t, err)

			if tt.streamable {
				httpTr, ok := tr.(*mcpsdk.StreamableClientTransport)
				require.True(t, ok, "transport is %T", tr)
				assert.Equal(t, tt.want, httpTr.Endpoint)
				return
			}
			sseTr, ok := tr.(*mcpsdk.SSEClientTransport)
			require.True(t, ok, "transport is %T", tr)
			assert.Equal(t, tt.want, sseTr.Endpoint)
		})
	}
}

func TestBuildTransportInvalidSpecs(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr string
	}{
		{name: "Empty", spec: "   ", wantErr: "transport spec is empty"},
		{name: "EmptyStdio", spec: "stdio://", wantErr: "stdio command is empty"},
		{name: "HTTPMissingHost", spec: "http://", wantErr: "missing host"},
		{name: "SSEMissingHost", spec: "sse://", wantErr: "missing host"},
		{name: "HintMissingHost", spec: "http+stream://", wantErr: "missing host"},
		{name: "HintUnsupported", spec: "http+foo://api.example/mcp", wantErr: `unsupported scheme "http+foo"`},
		{name: "UnknownScheme", spec: "ftp://example.com", wantErr: `unsupported scheme "ftp"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildTransport(tt.spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
