package openapi2mcp

import (
	"net"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ubermorgenland/openapi-mcp-gen/pkg/logging"
)

// DefaultEndpointPath is where the streamable HTTP transport is mounted
// unless told otherwise.
const DefaultEndpointPath = "/mcp"

// NewServer creates an MCP server with one tool per operation in doc.
// Tool calls are sent through client.
//
//	srv := openapi2mcp.NewServer("petstore", doc.Info.Version, doc, client, nil)
func NewServer(name, version string, doc *openapi3.T, client *http.Client, opts *ToolGenOptions) *mcpserver.MCPServer {
	return NewServerWithOps(name, version, doc, ExtractOpenAPIOperations(doc), client, opts)
}

// NewServerWithOps is NewServer for a caller-selected set of operations.
func NewServerWithOps(name, version string, doc *openapi3.T, ops []OpenAPIOperation, client *http.Client, opts *ToolGenOptions) *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer(name, version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)
	logging.For("openapi2mcp").Info("registering operations", "server", name, "operations", len(ops))
	RegisterOpenAPITools(srv, ops, doc, client, opts)
	return srv
}

// ServeStdio serves srv over stdin and stdout until stdin closes.
func ServeStdio(srv *mcpserver.MCPServer) error {
	return mcpserver.ServeStdio(srv)
}

// HandlerForStreamableHTTP returns an http.Handler serving srv with the
// streamable HTTP transport at basePath.
//
//	mux.Handle("/petstore", openapi2mcp.HandlerForStreamableHTTP(srv, "/petstore"))
func HandlerForStreamableHTTP(srv *mcpserver.MCPServer, basePath string) http.Handler {
	if basePath == "" {
		basePath = DefaultEndpointPath
	}
	return mcpserver.NewStreamableHTTPServer(srv, mcpserver.WithEndpointPath(basePath))
}

// GetStreamableHTTPURL returns the URL clients use to reach the streamable
// HTTP endpoint.
//
//	openapi2mcp.GetStreamableHTTPURL("0.0.0.0:3000", "/mcp") // "http://localhost:3000/mcp"
func GetStreamableHTTPURL(addr, basePath string) string {
	if basePath == "" {
		basePath = DefaultEndpointPath
	}
	return "http://" + normalizeAddrToHost(addr) + basePath
}

// normalizeAddrToHost turns a listen address into a host:port usable in a
// URL. Wildcard and empty hosts become localhost.
func normalizeAddrToHost(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "localhost"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
