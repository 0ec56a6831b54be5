package openapi2mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"
	"github.com/xeipuuv/gojsonschema"
	"github.com/yosida95/uritemplate/v3"

	apperrors "github.com/ubermorgenland/openapi-mcp-gen/pkg/errors"
	"github.com/ubermorgenland/openapi-mcp-gen/pkg/logging"
	"github.com/ubermorgenland/openapi-mcp-gen/pkg/memory"
)

// maxResponseBytes caps how much of an upstream response is returned to the
// model.
const maxResponseBytes = 1 << 20

var responseBuffers = memory.NewBufferPool(64 << 10)

// toolBinding is everything a tool handler needs to turn arguments into an
// upstream request.
type toolBinding struct {
	op        OpenAPIOperation
	name      string
	baseURL   string
	client    *http.Client
	validator *gojsonschema.Schema
	confirm   bool
}

// RegisterOpenAPITools registers one tool per operation on srv and returns
// the registered tool names in order. Requests are sent with client; a nil
// client falls back to http.DefaultClient.
func RegisterOpenAPITools(srv *mcpserver.MCPServer, ops []OpenAPIOperation, doc *openapi3.T, client *http.Client, opts *ToolGenOptions) []string {
	if opts == nil {
		opts = &ToolGenOptions{}
	}
	if client == nil {
		client = http.DefaultClient
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL(doc)
	}

	logger := logging.For("openapi2mcp")
	var names []string
	for _, op := range ops {
		if !hasTag(op.Tags, opts.TagFilter) {
			continue
		}

		name := op.OperationID
		if opts.NameFormat != nil {
			name = opts.NameFormat(name)
		}

		tool, binding, err := buildTool(name, op, doc, baseURL, client, opts.ConfirmDangerousActions)
		if err != nil {
			logger.Warn("skipping operation", "tool", name, "path", op.Path, "method", op.Method, "error", err)
			continue
		}

		srv.AddTool(tool, binding.handle)
		names = append(names, name)
	}

	logger.Info("registered tools", "count", len(names), "base_url", baseURL)
	return names
}

func buildTool(name string, op OpenAPIOperation, doc *openapi3.T, baseURL string, client *http.Client, confirmDangerous bool) (mcp.Tool, *toolBinding, error) {
	inputSchema := BuildInputSchema(op.Parameters, op.RequestBody, doc)
	confirm := confirmDangerous && isDangerous(op.Method)
	if confirm {
		inputSchema["properties"].(map[string]any)[confirmProperty] = map[string]any{
			"type":        "boolean",
			"description": "Set to true to confirm this " + op.Method + " request.",
		}
	}

	raw, err := json.Marshal(inputSchema)
	if err != nil {
		return mcp.Tool{}, nil, fmt.Errorf("failed to encode input schema: %w", err)
	}

	binding := &toolBinding{
		op:      op,
		name:    name,
		baseURL: baseURL,
		client:  client,
		confirm: confirm,
	}
	if validator, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw)); err != nil {
		logging.For("openapi2mcp").Warn("input schema does not compile, arguments will not be validated", "tool", name, "error", err)
	} else {
		binding.validator = validator
	}

	tool := mcp.Tool{
		Name:           name,
		Description:    toolDescription(op),
		RawInputSchema: raw,
		Annotations:    toolAnnotations(op),
	}
	return tool, binding, nil
}

func toolDescription(op OpenAPIOperation) string {
	desc := op.Summary
	if op.Description != "" {
		if desc != "" {
			desc += "\n\n"
		}
		desc += op.Description
	}
	if desc == "" {
		desc = op.Method + " " + op.Path
	}
	if op.Deprecated {
		desc = "[DEPRECATED] " + desc
	}
	return desc
}

func toolAnnotations(op OpenAPIOperation) mcp.ToolAnnotation {
	title := op.Summary
	if title == "" {
		title = op.OperationID
	}
	ann := mcp.ToolAnnotation{
		Title:         title,
		OpenWorldHint: mcp.ToBoolPtr(true),
	}
	switch op.Method {
	case http.MethodGet, http.MethodHead:
		ann.ReadOnlyHint = mcp.ToBoolPtr(true)
	case http.MethodDelete:
		ann.DestructiveHint = mcp.ToBoolPtr(true)
	case http.MethodPut:
		ann.IdempotentHint = mcp.ToBoolPtr(true)
	}
	return ann
}

func (b *toolBinding) handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID := uuid.NewString()
	ctx = context.WithValue(ctx, apperrors.RequestIDKey, requestID)
	logger := logging.For("openapi2mcp").With("tool", b.name, "request_id", requestID)

	args := req.GetArguments()
	if args == nil {
		args = map[string]any{}
	}

	if b.validator != nil {
		result, err := b.validator.Validate(gojsonschema.NewGoLoader(args))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to validate arguments: %v", err)), nil
		}
		if !result.Valid() {
			msgs := make([]string, 0, len(result.Errors()))
			for _, e := range result.Errors() {
				msgs = append(msgs, e.String())
			}
			return mcp.NewToolResultError("invalid arguments: " + strings.Join(msgs, "; ")), nil
		}
	}

	if b.confirm && !cast.ToBool(args[confirmProperty]) {
		return mcp.NewToolResultText(fmt.Sprintf(
			"%s %s modifies data on the remote API. Call %s again with %q set to true to proceed.",
			b.op.Method, b.op.Path, b.name, confirmProperty)), nil
	}

	httpReq, err := b.buildRequest(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	start := time.Now()
	resp, err := b.client.Do(httpReq)
	if err != nil {
		logger.Warn("upstream request failed", "method", httpReq.Method, "url", httpReq.URL.Redacted(), "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("request failed: %v", err)), nil
	}
	defer resp.Body.Close()

	buf := responseBuffers.Get()
	defer responseBuffers.Put(buf)
	truncated, err := memory.ReadLimited(buf, resp.Body, maxResponseBytes)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
	}
	logger.Debug("upstream request complete", "method", httpReq.Method, "status", resp.StatusCode, "duration", time.Since(start))

	text := formatResponse(resp, buf.Bytes())
	if truncated {
		text += fmt.Sprintf("\n\n[response truncated at %d bytes]", maxResponseBytes)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mcp.NewToolResultError(text), nil
	}
	return mcp.NewToolResultText(text), nil
}

// buildRequest composes the upstream request from validated arguments.
func (b *toolBinding) buildRequest(ctx context.Context, args map[string]any) (*http.Request, error) {
	path := b.op.Path
	pathValues := map[string]string{}
	query := url.Values{}
	headers := http.Header{}
	var cookies []*http.Cookie

	for _, ref := range b.op.Parameters {
		if ref == nil || ref.Value == nil {
			continue
		}
		p := ref.Value
		val, ok := args[escapeParameterName(p.Name)]
		if !ok || val == nil {
			if p.In == openapi3.ParameterInPath {
				return nil, apperrors.NewWithContext(ctx, apperrors.TypeValidation, "missing path parameter "+p.Name, b.name)
			}
			continue
		}

		switch p.In {
		case openapi3.ParameterInPath:
			pathValues[p.Name] = cast.ToString(val)
		case openapi3.ParameterInQuery:
			if items, isList := val.([]any); isList {
				for _, item := range items {
					query.Add(p.Name, cast.ToString(item))
				}
			} else {
				query.Set(p.Name, cast.ToString(val))
			}
		case openapi3.ParameterInHeader:
			headers.Set(p.Name, cast.ToString(val))
		case openapi3.ParameterInCookie:
			cookies = append(cookies, &http.Cookie{Name: p.Name, Value: cast.ToString(val)})
		}
	}

	target := b.baseURL + expandPath(path, pathValues)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload, ok := args[requestBodyProperty]; ok && payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, apperrors.WrapWithContext(ctx, err, apperrors.TypeValidation, "failed to encode request body")
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, b.op.Method, target, body)
	if err != nil {
		return nil, apperrors.WrapWithContext(ctx, err, apperrors.TypeInvalidURL, "failed to build request")
	}
	for k, v := range headers {
		httpReq.Header[k] = v
	}
	for _, c := range cookies {
		httpReq.AddCookie(c)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	return httpReq, nil
}

// expandPath substitutes {name} placeholders. OpenAPI path templates are a
// subset of RFC 6570 level 1, so uritemplate handles them; names it rejects,
// such as ones containing dashes, fall back to plain escaped replacement.
func expandPath(path string, values map[string]string) string {
	if len(values) == 0 {
		return path
	}
	if tmpl, err := uritemplate.New(path); err == nil {
		vals := uritemplate.Values{}
		for k, v := range values {
			vals.Set(k, uritemplate.String(v))
		}
		if expanded, err := tmpl.Expand(vals); err == nil {
			return expanded
		}
	}

	for k, v := range values {
		path = strings.ReplaceAll(path, "{"+k+"}", url.PathEscape(v))
	}
	return path
}

func formatResponse(resp *http.Response, body []byte) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "HTTP %d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		fmt.Fprintf(&sb, "Content-Type: %s\n", ct)
	}
	sb.WriteString("\n")

	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		pretty := responseBuffers.Get()
		defer responseBuffers.Put(pretty)
		if err := json.Indent(pretty, body, "", "  "); err == nil {
			sb.Write(pretty.Bytes())
			return sb.String()
		}
	}
	sb.Write(body)
	return sb.String()
}
