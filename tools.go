package main

import (
	"github.com/spf13/cobra"

	apperrors "github.com/ubermorgenland/openapi-mcp-gen/pkg/errors"
	"github.com/ubermorgenland/openapi-mcp-gen/pkg/loader"
	"github.com/ubermorgenland/openapi-mcp-gen/pkg/logging"
	"github.com/ubermorgenland/openapi-mcp-gen/pkg/openapi2mcp"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the MCP tools generated from a specification",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().String("path", "", "Path or URL of the OpenAPI specification (required)")
	cmd.Flags().StringSlice("tag", nil, "Only list operations with this tag (repeatable)")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		v, err := newViper(cmd)
		if err != nil {
			return err
		}

		path := v.GetString("path")
		if path == "" {
			return apperrors.New(apperrors.TypeValidation, "--path is required", "")
		}
		if _, err := logging.Init("warn", "text", cmd.ErrOrStderr()); err != nil {
			return err
		}

		parsed, err := loader.LoadFromPathOrURL(cmdContext(cmd), path)
		if err != nil {
			return err
		}
		doc, err := openapi2mcp.NewDocument(parsed)
		if err != nil {
			return err
		}

		ops := openapi2mcp.FilterByTags(openapi2mcp.ExtractOpenAPIOperations(doc), stringList(v, "tag"))
		out := cmd.OutOrStdout()
		openapi2mcp.PrintToolSummary(out, ops)
		openapi2mcp.PrintToolList(out, ops)
		return nil
	}
	return cmd
}
