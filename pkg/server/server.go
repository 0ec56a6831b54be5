// Package server wires a spec, an authentication policy and the generated
// MCP tools into a running server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/ubermorgenland/openapi-mcp-gen/pkg/auth"
	apperrors "github.com/ubermorgenland/openapi-mcp-gen/pkg/errors"
	"github.com/ubermorgenland/openapi-mcp-gen/pkg/loader"
	"github.com/ubermorgenland/openapi-mcp-gen/pkg/logging"
	"github.com/ubermorgenland/openapi-mcp-gen/pkg/openapi2mcp"
)

const (
	// UpstreamTimeout bounds a single tool call against the API.
	UpstreamTimeout = 60 * time.Second

	// ShutdownTimeout gives in-flight requests time to finish. It leaves
	// 5 seconds of a 30 second termination grace period for final cleanup.
	ShutdownTimeout = 25 * time.Second
)

// App is a fully wired MCP server that has not started serving yet.
type App struct {
	Config  *Config
	Doc     *openapi3.T
	Policy  auth.Policy
	BaseURL string
	MCP     *mcpserver.MCPServer
	Tools   int
}

// Build loads the spec, resolves authentication and registers the tools.
func Build(ctx context.Context, cfg *Config) (*App, error) {
	logger := logging.For("server")

	parsed, err := loader.LoadFromPathOrURL(ctx, cfg.Path)
	if err != nil {
		return nil, err
	}
	doc, err := openapi2mcp.NewDocument(parsed)
	if err != nil {
		return nil, err
	}

	if scheme, ok := auth.DetectScheme(doc); ok {
		logger.Info("spec declares security scheme", "scheme", scheme.Name, "strategy", string(scheme.Strategy), "location", scheme.String())
		if cfg.Strategy() == auth.StrategyNone {
			logger.Warn("spec declares authentication but none is configured", "expected", string(scheme.Strategy))
		}
	} else {
		logger.Info("no supported security scheme found in spec")
	}

	policy, err := auth.Resolve(cfg.Strategy(), cfg.Credentials()...)
	if err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openapi2mcp.DefaultBaseURL(doc)
	}
	if baseURL == "" {
		return nil, apperrors.New(apperrors.TypeValidation, "no base URL", "pass --base-url or declare servers in the spec")
	}
	baseURL, err = resolveBaseURL(baseURL, cfg.Path)
	if err != nil {
		return nil, err
	}

	title, version := "", ""
	if doc.Info != nil {
		title, version = doc.Info.Title, doc.Info.Version
	}
	name := serverName(cfg, doc)

	ops := openapi2mcp.FilterByTags(openapi2mcp.ExtractOpenAPIOperations(doc), cfg.TagFilter)
	client := auth.NewHTTPClient(policy, UpstreamTimeout)
	srv := openapi2mcp.NewServerWithOps(name, version, doc, ops, client, &openapi2mcp.ToolGenOptions{
		BaseURL:                 baseURL,
		ConfirmDangerousActions: cfg.ConfirmDangerousActions,
	})

	logger.Info("MCP server ready", "api", title, "tools", len(ops), "base_url", baseURL, "auth", string(policy.Strategy()))

	return &App{
		Config:  cfg,
		Doc:     doc,
		Policy:  policy,
		BaseURL: baseURL,
		MCP:     srv,
		Tools:   len(ops),
	}, nil
}

// Handler mounts the streamable HTTP transport and the health check.
func (a *App) Handler() http.Handler {
	endpoint := a.Config.EndpointPath
	if endpoint == "" {
		endpoint = openapi2mcp.DefaultEndpointPath
	}

	mcpHandler := openapi2mcp.HandlerForStreamableHTTP(a.MCP, endpoint)
	mux := http.NewServeMux()
	mux.Handle(endpoint, mcpHandler)
	mux.Handle(endpoint+"/", mcpHandler)
	mux.Handle("/health", HandleHealth(serverName(a.Config, a.Doc), a.Tools))
	return mux
}

// resolveBaseURL makes baseURL absolute. A relative URL, such as a servers
// entry of "/api/v3", is resolved against the spec URL when the spec was
// downloaded; otherwise it is rejected.
func resolveBaseURL(baseURL, specPath string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.TypeValidation, "invalid base URL "+baseURL)
	}
	if u.IsAbs() && u.Host != "" {
		return baseURL, nil
	}
	if loader.IsURL(specPath) {
		spec, err := url.Parse(specPath)
		if err == nil {
			return strings.TrimSuffix(spec.ResolveReference(u).String(), "/"), nil
		}
	}
	return "", apperrors.New(apperrors.TypeValidation, fmt.Sprintf("base URL %q is not absolute", baseURL),
		"pass an absolute --base-url")
}

// serverName is the name reported to MCP clients: the configured name, else
// the API title.
func serverName(cfg *Config, doc *openapi3.T) string {
	if cfg.ServerName != "" {
		return cfg.ServerName
	}
	if doc != nil && doc.Info != nil && doc.Info.Title != "" {
		return doc.Info.Title
	}
	return DefaultServerName
}

// Serve runs the configured transport until ctx is cancelled or the
// transport fails.
func (a *App) Serve(ctx context.Context) error {
	if a.Config.Transport == TransportStdio {
		logging.For("server").Info("serving MCP over stdio")
		return openapi2mcp.ServeStdio(a.MCP)
	}

	srv := &http.Server{
		Addr:              a.Config.Addr(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       240 * time.Second,
		WriteTimeout:      240 * time.Second,
	}
	logging.For("server").Info("serving MCP over streamable HTTP",
		"addr", srv.Addr, "url", openapi2mcp.GetStreamableHTTPURL(srv.Addr, a.Config.EndpointPath))
	return serveHTTP(ctx, srv)
}

// Run builds the server described by cfg and serves it.
func Run(ctx context.Context, cfg *Config) error {
	app, err := Build(ctx, cfg)
	if err != nil {
		return err
	}
	return app.Serve(ctx)
}

// serveHTTP runs srv until ctx is done, then shuts it down gracefully.
func serveHTTP(ctx context.Context, srv *http.Server) error {
	logger := logging.For("server")
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server", "timeout", ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		logger.Info("server shut down gracefully")
		return nil
	})

	return g.Wait()
}
