package server

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/ubermorgenland/openapi-mcp-gen/pkg/auth"
	apperrors "github.com/ubermorgenland/openapi-mcp-gen/pkg/errors"
	"github.com/ubermorgenland/openapi-mcp-gen/pkg/logging"
)

const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"

	DefaultHost       = "0.0.0.0"
	DefaultPort       = 3000
	DefaultServerName = "MCP Server"
)

// Messages reported when a credential flag group is incomplete.
const (
	MsgBasicIncomplete  = "Basic authentication requires both username and password"
	MsgBearerIncomplete = "Bearer authentication requires a token"
	MsgAPIKeyIncomplete = "API key authentication requires location, name, and value"
	MsgOAuth2Incomplete = "OAuth2 authentication requires token URL, client ID, client secret, and scope"
)

// Config holds everything needed to start a generated MCP server.
type Config struct {
	Path         string
	BaseURL      string
	Host         string
	Port         int
	ServerName   string
	Transport    string
	EndpointPath string

	AuthType          string
	BasicUsername     string
	BasicPassword     string
	BearerToken       string
	APIKeyLocation    string
	APIKeyName        string
	APIKeyValue       string
	OAuthTokenURL     string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthScope        string

	TagFilter               []string
	ConfirmDangerousActions bool

	LogLevel  string
	LogFormat string
}

// Addr is the listen address for the HTTP transport.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Strategy returns the configured authentication strategy.
func (c *Config) Strategy() auth.Strategy {
	return auth.ParseStrategy(c.AuthType)
}

// Credentials returns the positional credential tuple for the configured
// strategy, in the order auth.Resolve expects.
func (c *Config) Credentials() []string {
	switch c.Strategy() {
	case auth.StrategyBasic:
		return []string{c.BasicUsername, c.BasicPassword}
	case auth.StrategyBearer:
		return []string{c.BearerToken}
	case auth.StrategyAPIKey:
		return []string{c.APIKeyLocation, c.APIKeyName, c.APIKeyValue}
	case auth.StrategyOAuth2:
		return []string{c.OAuthTokenURL, c.OAuthClientID, c.OAuthClientSecret, c.OAuthScope}
	default:
		return nil
	}
}

// Validate checks the configuration before anything is loaded. Every field
// of the selected credential group must be non-empty.
func (c *Config) Validate() error {
	if c.Path == "" {
		return apperrors.New(apperrors.TypeValidation, "--path is required", "")
	}
	if c.Port < 1 || c.Port > 65535 {
		return apperrors.New(apperrors.TypeValidation, fmt.Sprintf("invalid port %d", c.Port), "")
	}
	switch c.Transport {
	case "", TransportHTTP, TransportStdio:
	default:
		return apperrors.New(apperrors.TypeValidation, fmt.Sprintf("unsupported transport %q", c.Transport), "expected http or stdio")
	}

	if c.Transport != TransportStdio && c.EndpointPath != "" {
		if !strings.HasPrefix(c.EndpointPath, "/") || c.EndpointPath == "/" || c.EndpointPath == "/health" {
			return apperrors.New(apperrors.TypeValidation, fmt.Sprintf("invalid endpoint path %q", c.EndpointPath), "")
		}
	}

	strategy := c.Strategy()
	if !strategy.Known() {
		return apperrors.New(apperrors.TypeValidation, fmt.Sprintf("unsupported authentication type %q", c.AuthType),
			"expected basic, bearer, api_key or oauth2")
	}

	switch strategy {
	case auth.StrategyBasic:
		if c.BasicUsername == "" || c.BasicPassword == "" {
			return apperrors.InvalidCredentials(MsgBasicIncomplete)
		}
	case auth.StrategyBearer:
		if c.BearerToken == "" {
			return apperrors.InvalidCredentials(MsgBearerIncomplete)
		}
	case auth.StrategyAPIKey:
		if c.APIKeyLocation == "" || c.APIKeyName == "" || c.APIKeyValue == "" {
			return apperrors.InvalidCredentials(MsgAPIKeyIncomplete)
		}
		if !auth.APIKeyLocation(c.APIKeyLocation).Valid() {
			return apperrors.New(apperrors.TypeValidation, fmt.Sprintf("unsupported API key location %q", c.APIKeyLocation),
				"expected header or query")
		}
	case auth.StrategyOAuth2:
		if c.OAuthTokenURL == "" || c.OAuthClientID == "" || c.OAuthClientSecret == "" || c.OAuthScope == "" {
			return apperrors.InvalidCredentials(MsgOAuth2Incomplete)
		}
	}
	return nil
}

// EchoStartup writes the human-facing startup banner.
func (c *Config) EchoStartup(w io.Writer) {
	fmt.Fprintf(w, "Starting MCP server from: %s\n", c.Path)
	fmt.Fprintf(w, "Server will run on: %s:%d\n", c.Host, c.Port)
	if c.BaseURL != "" {
		fmt.Fprintf(w, "Using base URL: %s\n", c.BaseURL)
	}
	if c.AuthType != "" {
		fmt.Fprintf(w, "Using authentication type: %s\n", c.AuthType)
	}
}

// LogConfiguration logs the configuration with secrets masked.
func (c *Config) LogConfiguration(logger *slog.Logger) {
	attrs := []any{
		"path", c.Path,
		"transport", c.Transport,
		"server_name", c.ServerName,
		"auth", string(c.Strategy()),
	}
	if c.Transport != TransportStdio {
		attrs = append(attrs, "addr", c.Addr(), "endpoint", c.EndpointPath)
	}
	if c.BaseURL != "" {
		attrs = append(attrs, "base_url", c.BaseURL)
	}

	switch c.Strategy() {
	case auth.StrategyBasic:
		attrs = append(attrs, "username", c.BasicUsername, "password", logging.Mask(c.BasicPassword))
	case auth.StrategyBearer:
		attrs = append(attrs, "token", logging.Mask(c.BearerToken))
	case auth.StrategyAPIKey:
		attrs = append(attrs, "api_key", c.APIKeyLocation+":"+c.APIKeyName, "value", logging.Mask(c.APIKeyValue))
	case auth.StrategyOAuth2:
		attrs = append(attrs, "token_url", c.OAuthTokenURL, "client_id", c.OAuthClientID,
			"client_secret", logging.Mask(c.OAuthClientSecret), "scope", c.OAuthScope)
	}
	if len(c.TagFilter) > 0 {
		attrs = append(attrs, "tags", c.TagFilter)
	}

	logger.Info("configuration", attrs...)
}
