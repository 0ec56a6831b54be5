package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ubermorgenland/openapi-mcp-gen/pkg/logging"
	"github.com/ubermorgenland/openapi-mcp-gen/pkg/openapi2mcp"
	"github.com/ubermorgenland/openapi-mcp-gen/pkg/server"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Serve an OpenAPI specification as an MCP server",
		Example: `  openapi-mcp-gen generate --path ./petstore.yaml --auth-type bearer --bearer-token $TOKEN
  openapi-mcp-gen generate --path https://api.example.com/openapi.json --transport stdio`,
		Args: cobra.NoArgs,
	}

	f := cmd.Flags()
	f.String("path", "", "Path or URL of the OpenAPI specification (required)")
	f.String("base-url", "", "Base URL of the API, overriding the spec's servers")
	f.String("host", server.DefaultHost, "Host to listen on")
	f.Int("port", server.DefaultPort, "Port to listen on")
	f.String("server-name", server.DefaultServerName, "Name reported to MCP clients")
	f.String("transport", server.TransportHTTP, "MCP transport: http or stdio")
	f.String("endpoint-path", openapi2mcp.DefaultEndpointPath, "Path of the streamable HTTP endpoint")

	f.String("auth-type", "", "Authentication type: basic, bearer, api_key or oauth2")
	f.String("basic-username", "", "Username for basic authentication")
	f.String("basic-password", "", "Password for basic authentication")
	f.String("bearer-token", "", "Token for bearer authentication")
	f.String("api-key-location", "", "Where the API key goes: header or query")
	f.String("api-key-name", "", "Header or query parameter name of the API key")
	f.String("api-key-value", "", "API key value")
	f.String("oauth-token-url", "", "OAuth2 token endpoint")
	f.String("oauth-client-id", "", "OAuth2 client ID")
	f.String("oauth-client-secret", "", "OAuth2 client secret")
	f.String("oauth-scope", "", "OAuth2 scope")

	f.StringSlice("tag", nil, "Only expose operations with this tag (repeatable)")
	f.Bool("confirm-dangerous-actions", false, "Require confirmation before PUT, POST and DELETE calls")
	f.String("log-level", "info", "Log level: debug, info, warn or error")
	f.String("log-format", "text", "Log format: text or json")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		v, err := newViper(cmd)
		if err != nil {
			return err
		}
		return runGenerate(cmd, configFromViper(v))
	}
	return cmd
}

// configFromViper collects flag and environment values into a server config.
func configFromViper(v *viper.Viper) *server.Config {
	return &server.Config{
		Path:         v.GetString("path"),
		BaseURL:      v.GetString("base-url"),
		Host:         v.GetString("host"),
		Port:         v.GetInt("port"),
		ServerName:   v.GetString("server-name"),
		Transport:    v.GetString("transport"),
		EndpointPath: v.GetString("endpoint-path"),

		AuthType:          v.GetString("auth-type"),
		BasicUsername:     v.GetString("basic-username"),
		BasicPassword:     v.GetString("basic-password"),
		BearerToken:       v.GetString("bearer-token"),
		APIKeyLocation:    v.GetString("api-key-location"),
		APIKeyName:        v.GetString("api-key-name"),
		APIKeyValue:       v.GetString("api-key-value"),
		OAuthTokenURL:     v.GetString("oauth-token-url"),
		OAuthClientID:     v.GetString("oauth-client-id"),
		OAuthClientSecret: v.GetString("oauth-client-secret"),
		OAuthScope:        v.GetString("oauth-scope"),

		TagFilter:               stringList(v, "tag"),
		ConfirmDangerousActions: v.GetBool("confirm-dangerous-actions"),

		LogLevel:  v.GetString("log-level"),
		LogFormat: v.GetString("log-format"),
	}
}

func runGenerate(cmd *cobra.Command, cfg *server.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.Init(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	// stdout carries the protocol on the stdio transport
	echo := cmd.OutOrStdout()
	if cfg.Transport == server.TransportStdio {
		echo = cmd.ErrOrStderr()
	}
	cfg.EchoStartup(echo)
	cfg.LogConfiguration(logger.With("subsystem", "cli"))

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx, cfg)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
