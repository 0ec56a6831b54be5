// Command openapi-mcp-gen turns an OpenAPI specification into an MCP server
// whose tools call the API with the configured credentials.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix namespaces the environment variables that mirror the flags.
const envPrefix = "OPENAPI_MCP"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "openapi-mcp-gen",
		Short: "Generate an MCP server from an OpenAPI specification",
		Long: `openapi-mcp-gen reads an OpenAPI 3 specification from a file or URL and serves
every operation as an MCP tool. Tool calls are forwarded to the API through an
HTTP client that signs each request with basic, bearer, API key or OAuth2
client-credentials authentication.

Every flag can also be set with an OPENAPI_MCP_<FLAG> environment variable,
for example OPENAPI_MCP_BEARER_TOKEN.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newToolsCmd())
	return rootCmd
}

// newViper returns a viper instance bound to cmd's flags and to the
// matching environment variables.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	return v, nil
}

// stringList reads a list setting. Repeated flags arrive as separate
// elements; environment values are split on commas and whitespace.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
