package mcp

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// transportBuilder is swapped in tests.
var transportBuilder = buildTransport

type remoteKind int

const (
	remoteSSE remoteKind = iota
	remoteStreamable
)

type remoteScheme struct {
	kind remoteKind
	wire string
}

// remoteSchemes maps a spec scheme to the transport it selects and the URL scheme
// actually dialed. sse:// has no wire scheme of its own and assumes https.
var remoteSchemes = map[string]remoteScheme{
	"http":         {remoteSSE, "http"},
	"https":        {remoteSSE, "https"},
	"sse":          {remoteSSE, "https"},
	"http+sse":     {remoteSSE, "http"},
	"https+sse":    {remoteSSE, "https"},
	"http+stream":  {remoteStreamable, "http"},
	"https+stream": {remoteStreamable, "https"},
}

// buildTransport turns a server spec into an MCP transport:
//
//	stdio://python server.py   explicit subprocess
//	server.py | server.js      script path, interpreter picked by extension
//	sse://host/path            SSE over https
//	http+sse://host/path       SSE
//	http+stream://host/path    streamable HTTP
//	https://host/path          SSE
func buildTransport(spec string) (mcpsdk.Transport, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("transport spec is empty")
	}

	scheme, rest, found := strings.Cut(spec, "://")
	if !found || !isSchemeName(scheme) {
		return buildStdioTransport(spec)
	}
	scheme = strings.ToLower(scheme)
	if scheme == "stdio" {
		return buildStdioTransport(rest)
	}

	remote, ok := remoteSchemes[scheme]
	if !ok {
		return nil, fmt.Errorf("unsupported scheme %q", scheme)
	}
	endpoint, err := url.Parse(remote.wire + "://" + rest)
	if err != nil {
		return nil, fmt.Errorf("invalid %s endpoint: %w", scheme, err)
	}
	if endpoint.Host == "" {
		return nil, fmt.Errorf("invalid %s endpoint: missing host", scheme)
	}

	if remote.kind == remoteStreamable {
		return &mcpsdk.StreamableClientTransport{Endpoint: endpoint.String()}, nil
	}
	return &mcpsdk.SSEClientTransport{Endpoint: endpoint.String()}, nil
}

func isSchemeName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '+') {
			return false
		}
	}
	return true
}

// buildStdioTransport starts the server as a subprocess. The command is not bound to a
// context: it lives until the link is closed.
func buildStdioTransport(cmdSpec string) (mcpsdk.Transport, error) {
	parts := strings.Fields(cmdSpec)
	if len(parts) == 0 {
		return nil, errors.New("stdio command is empty")
	}
	if interpreter := interpreterFor(parts[0]); interpreter != "" {
		parts = append([]string{interpreter}, parts...)
	}
	// #nosec G204 -- the server command comes from operator configuration
	command := exec.Command(parts[0], parts[1:]...)
	return &mcpsdk.CommandTransport{Command: command}, nil
}

func interpreterFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return "python"
	case ".js", ".mjs", ".cjs":
		return "node"
	default:
		return ""
	}
}
