// Package openapi2mcp turns an OpenAPI 3.x document into MCP tools.
//
// Every operation in the document becomes one tool. Calling the tool issues
// the corresponding HTTP request against the API's base URL through the
// caller-supplied client, which is expected to carry the authentication
// transport from package auth.
//
//	doc, _ := openapi2mcp.NewDocument(parsed)
//	srv := openapi2mcp.NewServer("petstore", doc.Info.Version, doc, client, &openapi2mcp.ToolGenOptions{
//		BaseURL: "https://petstore.example.com/v1",
//	})
//	http.Handle("/mcp", openapi2mcp.HandlerForStreamableHTTP(srv, "/mcp"))
package openapi2mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	apperrors "github.com/ubermorgenland/openapi-mcp-gen/pkg/errors"
	"github.com/ubermorgenland/openapi-mcp-gen/pkg/logging"
)

// OpenAPIOperation describes a single OpenAPI operation to be mapped to an MCP tool.
type OpenAPIOperation struct {
	OperationID string
	Summary     string
	Description string
	Path        string
	Method      string
	Parameters  openapi3.Parameters
	RequestBody *openapi3.RequestBodyRef
	Tags        []string
	Deprecated  bool
}

// ToolGenOptions controls tool generation.
//
// TagFilter: only include operations with at least one of these tags (if non-empty)
// NameFormat: optional function applied to every tool name
// ConfirmDangerousActions: require an explicit confirmation argument for PUT/POST/DELETE tools
// BaseURL: prefix for every request path; defaults to the first server in the document
type ToolGenOptions struct {
	TagFilter               []string
	NameFormat              func(string) string
	ConfirmDangerousActions bool
	BaseURL                 string
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// NewDocument converts a parsed spec mapping into a kin-openapi document.
// Validation problems are logged and do not fail the load, since many
// published specs carry minor violations that do not affect tool generation.
func NewDocument(parsed any) (*openapi3.T, error) {
	if _, ok := parsed.(map[string]any); !ok {
		return nil, apperrors.New(apperrors.TypeParse, "spec is not a mapping", "")
	}

	data, err := json.Marshal(parsed)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.TypeParse, "failed to encode spec")
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.TypeParse, "failed to load OpenAPI document")
	}

	if err := doc.Validate(context.Background()); err != nil {
		logging.For("openapi2mcp").Warn("OpenAPI document failed validation, continuing", "error", err)
	}
	return doc, nil
}

// DefaultBaseURL returns the first server URL declared by doc, without a
// trailing slash, or "" if there is none.
func DefaultBaseURL(doc *openapi3.T) string {
	if doc == nil || len(doc.Servers) == 0 || doc.Servers[0] == nil {
		return ""
	}
	return strings.TrimRight(doc.Servers[0].URL, "/")
}

// ExtractOpenAPIOperations lists every operation in doc, ordered by path and
// then by HTTP method. Path-level parameters are merged into each operation;
// an operation parameter with the same location and name wins.
func ExtractOpenAPIOperations(doc *openapi3.T) []OpenAPIOperation {
	if doc == nil || doc.Paths == nil {
		return nil
	}

	var ops []OpenAPIOperation
	for _, path := range doc.Paths.InMatchingOrder() {
		item := doc.Paths.Value(path)
		if item == nil {
			continue
		}
		methods := item.Operations()
		names := make([]string, 0, len(methods))
		for method := range methods {
			names = append(names, method)
		}
		sort.Strings(names)

		for _, method := range names {
			op := methods[method]
			ops = append(ops, OpenAPIOperation{
				OperationID: operationName(op.OperationID, method, path),
				Summary:     op.Summary,
				Description: op.Description,
				Path:        path,
				Method:      strings.ToUpper(method),
				Parameters:  mergeParameters(item.Parameters, op.Parameters),
				RequestBody: op.RequestBody,
				Tags:        op.Tags,
				Deprecated:  op.Deprecated,
			})
		}
	}

	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Path != ops[j].Path {
			return ops[i].Path < ops[j].Path
		}
		return ops[i].Method < ops[j].Method
	})
	return ops
}

func operationName(operationID, method, path string) string {
	if operationID != "" {
		return operationID
	}
	suffix := strings.Trim(nonAlnum.ReplaceAllString(path, "_"), "_")
	if suffix == "" {
		return strings.ToLower(method)
	}
	return strings.ToLower(method) + "_" + suffix
}

func mergeParameters(pathLevel, opLevel openapi3.Parameters) openapi3.Parameters {
	if len(pathLevel) == 0 {
		return opLevel
	}

	key := func(p *openapi3.ParameterRef) string {
		if p == nil || p.Value == nil {
			return ""
		}
		return p.Value.In + ":" + p.Value.Name
	}

	overridden := make(map[string]bool, len(opLevel))
	for _, p := range opLevel {
		overridden[key(p)] = true
	}

	merged := make(openapi3.Parameters, 0, len(pathLevel)+len(opLevel))
	for _, p := range pathLevel {
		if k := key(p); k != "" && !overridden[k] {
			merged = append(merged, p)
		}
	}
	return append(merged, opLevel...)
}

func hasTag(opTags, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, t := range opTags {
		for _, f := range filter {
			if strings.EqualFold(t, f) {
				return true
			}
		}
	}
	return false
}

func isDangerous(method string) bool {
	switch method {
	case http.MethodPut, http.MethodPost, http.MethodDelete:
		return true
	}
	return false
}
