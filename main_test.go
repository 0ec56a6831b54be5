package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ubermorgenland/openapi-mcp-gen/pkg/errors"
)

const catalogSpec = `openapi: 3.0.0
info:
  title: Catalog API
  version: 1.0.0
servers:
  - url: https://catalog.example.com
paths:
  /products:
    get:
      operationId: listProducts
      tags: [products]
      responses:
        "200":
          description: OK
    post:
      operationId: createProduct
      tags: [products, admin]
      responses:
        "201":
          description: Created
  /health-check:
    get:
      tags: [ops]
      responses:
        "200":
          description: OK
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestGenerate_CredentialValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{
			name:    "basic without password",
			args:    []string{"--auth-type", "basic", "--basic-username", "admin"},
			wantMsg: "Basic authentication requires both username and password",
		},
		{
			name:    "bearer without token",
			args:    []string{"--auth-type", "bearer"},
			wantMsg: "Bearer authentication requires a token",
		},
		{
			name:    "api key without name",
			args:    []string{"--auth-type", "api_key", "--api-key-location", "header", "--api-key-value", "v"},
			wantMsg: "API key authentication requires location, name, and value",
		},
		{
			name: "oauth2 without scope",
			args: []string{
				"--auth-type", "oauth2", "--oauth-token-url", "https://auth.example.com/token",
				"--oauth-client-id", "id", "--oauth-client-secret", "secret",
			},
			wantMsg: "OAuth2 authentication requires token URL, client ID, client secret, and scope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"generate", "--path", "https://unreachable.invalid/spec.yaml"}, tt.args...)
			stdout, _, err := execute(t, args...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.True(t, apperrors.IsType(err, apperrors.TypeInvalidCredentials))
			assert.Empty(t, stdout)
		})
	}
}

func TestGenerate_RejectsUnknownValues(t *testing.T) {
	_, _, err := execute(t, "generate", "--path", "spec.yaml", "--auth-type", "digest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported authentication type "digest"`)

	_, _, err = execute(t, "generate", "--path", "spec.yaml", "--auth-type", "api_key",
		"--api-key-location", "body", "--api-key-name", "k", "--api-key-value", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported API key location "body"`)

	_, _, err = execute(t, "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--path is required")
}

func TestGenerate_ReadsEnvironment(t *testing.T) {
	t.Setenv("OPENAPI_MCP_AUTH_TYPE", "bearer")

	_, _, err := execute(t, "generate", "--path", "spec.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bearer authentication requires a token")

	// With the token supplied, validation passes and loading the missing spec fails.
	t.Setenv("OPENAPI_MCP_BEARER_TOKEN", "from-env")
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	stdout, _, err := execute(t, "generate", "--path", missing, "--log-level", "error")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))
	assert.Contains(t, stdout, "Starting MCP server from: "+missing)
	assert.Contains(t, stdout, "Using authentication type: bearer")
}

func TestGenerate_StdioEchoesToStderr(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	stdout, stderr, err := execute(t, "generate", "--path", missing, "--transport", "stdio", "--log-level", "error")

	require.Error(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Starting MCP server from: "+missing)
}

func TestTools_PrintsSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogSpec), 0o600))

	stdout, _, err := execute(t, "tools", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Total tools: 3\n")
	assert.Contains(t, stdout, "  admin: 1\n")
	assert.Contains(t, stdout, "  products: 2\n")
	assert.Contains(t, stdout, "listProducts")
	assert.Contains(t, stdout, "get_health_check")

	stdout, _, err = execute(t, "tools", "--path", path, "--tag", "admin")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Total tools: 1\n")
	assert.Contains(t, stdout, "createProduct")
	assert.NotContains(t, stdout, "listProducts")
}

func TestTools_RequiresPath(t *testing.T) {
	_, _, err := execute(t, "tools")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--path is required")
}

func TestConfigFromViper_TagLists(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		args     []string
		expected []string
	}{
		{name: "repeated flags", args: []string{"--tag", "pets", "--tag", "store"}, expected: []string{"pets", "store"}},
		{name: "comma flag", args: []string{"--tag", "pets,store"}, expected: []string{"pets", "store"}},
		{name: "comma env", env: "pets,store", expected: []string{"pets", "store"}},
		{name: "space env", env: "pets store", expected: []string{"pets", "store"}},
		{name: "unset", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv("OPENAPI_MCP_TAG", tt.env)
			}
			cmd := newGenerateCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))

			v, err := newViper(cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, configFromViper(v).TagFilter)
		})
	}
}
