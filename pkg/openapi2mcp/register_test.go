package openapi2mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubermorgenland/openapi-mcp-gen/pkg/auth"
)

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", res.Content[0])
	return ""
}

func newBinding(t *testing.T, name, baseURL string, client *http.Client, confirm bool) *toolBinding {
	t.Helper()
	doc := loadPetstore(t)
	op := findOp(t, ExtractOpenAPIOperations(doc), name)
	_, binding, err := buildTool(name, op, doc, baseURL, client, confirm)
	require.NoError(t, err)
	require.NotNil(t, binding.validator)
	return binding
}

func TestToolCall_ComposesRequestThroughSigningTransport(t *testing.T) {
	var got *http.Request
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"pets":[{"name":"Rex"}]}`))
	}))
	defer upstream.Close()

	client := auth.NewHTTPClient(auth.NewBearerPolicy("secret"), 5*time.Second)
	binding := newBinding(t, "listPets", upstream.URL, client, false)

	res, err := binding.handle(context.Background(), callRequest(map[string]any{
		"limit":          5,
		"tags":           []any{"a", "b"},
		"filter_status_": "sold",
		"X-Trace":        "trace-1",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/pets", got.URL.Path)
	assert.Equal(t, "5", got.URL.Query().Get("limit"))
	assert.Equal(t, []string{"a", "b"}, got.URL.Query()["tags"])
	assert.Equal(t, "sold", got.URL.Query().Get("filter[status]"))
	assert.Equal(t, "trace-1", got.Header.Get("X-Trace"))
	assert.Equal(t, "Bearer secret", got.Header.Get("Authorization"))

	text := resultText(t, res)
	assert.True(t, strings.HasPrefix(text, "HTTP 200 OK\n"))
	assert.Contains(t, text, `"name": "Rex"`)
}

func TestToolCall_PathParameterAndBody(t *testing.T) {
	var gotPath, gotBody, gotContentType string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer upstream.Close()

	create := newBinding(t, "createPet", upstream.URL, upstream.Client(), false)
	res, err := create.handle(context.Background(), callRequest(map[string]any{
		"requestBody": map[string]any{"name": "Rex", "tag": "dog"},
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "/pets", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"name":"Rex","tag":"dog"}`, gotBody)
	assert.Contains(t, resultText(t, res), "HTTP 201 Created")

	get := newBinding(t, "get_pets_petId", upstream.URL, upstream.Client(), false)
	_, err = get.handle(context.Background(), callRequest(map[string]any{"petId": "42", "verbose": true}))
	require.NoError(t, err)
	assert.Equal(t, "/pets/42", gotPath)
}

func TestToolCall_InvalidArguments(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer upstream.Close()

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"missing body", "createPet", map[string]any{}, "requestBody"},
		{"body missing required field", "createPet", map[string]any{"requestBody": map[string]any{"tag": "x"}}, "name"},
		{"enum violation", "listPets", map[string]any{"filter_status_": "lost"}, "filter_status_"},
		{"wrong type", "listPets", map[string]any{"limit": "many"}, "limit"},
		{"missing path parameter", "get_pets_petId", nil, "petId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binding := newBinding(t, tt.tool, upstream.URL, upstream.Client(), false)
			res, err := binding.handle(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			text := resultText(t, res)
			assert.Contains(t, text, "invalid arguments")
			assert.Contains(t, text, tt.want)
		})
	}
	assert.Zero(t, calls.Load())
}

func TestToolCall_UpstreamErrorStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such pet", http.StatusNotFound)
	}))
	defer upstream.Close()

	binding := newBinding(t, "get_pets_petId", upstream.URL, upstream.Client(), false)
	res, err := binding.handle(context.Background(), callRequest(map[string]any{"petId": "7"}))

	require.NoError(t, err)
	assert.True(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "HTTP 404 Not Found")
	assert.Contains(t, text, "no such pet")
}

func TestToolCall_SigningFailureIsToolError(t *testing.T) {
	tokenEndpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer tokenEndpoint.Close()

	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer upstream.Close()

	client := auth.NewHTTPClient(auth.NewOAuth2Policy(tokenEndpoint.URL, "id", "bad", "read"), 5*time.Second)
	binding := newBinding(t, "getInventory", upstream.URL, client, false)

	res, err := binding.handle(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "token_exchange")
	assert.Zero(t, calls.Load())
}

func TestToolCall_ConfirmDangerousActions(t *testing.T) {
	var method string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	binding := newBinding(t, "deletePet", upstream.URL, upstream.Client(), true)

	res, err := binding.handle(context.Background(), callRequest(map[string]any{"petId": "1"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), confirmProperty)
	assert.Empty(t, method)

	res, err = binding.handle(context.Background(), callRequest(map[string]any{"petId": "1", confirmProperty: true}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, http.MethodDelete, method)
}

func TestExpandPath(t *testing.T) {
	assert.Equal(t, "/pets/42", expandPath("/pets/{petId}", map[string]string{"petId": "42"}))
	assert.Equal(t, "/pets/a%20b", expandPath("/pets/{petId}", map[string]string{"petId": "a b"}))
	assert.Equal(t, "/items/x%2Fy", expandPath("/items/{item-id}", map[string]string{"item-id": "x/y"}))
	assert.Equal(t, "/static", expandPath("/static", nil))
}

func TestToolAnnotations(t *testing.T) {
	get := toolAnnotations(OpenAPIOperation{OperationID: "listPets", Summary: "List pets", Method: http.MethodGet})
	assert.Equal(t, "List pets", get.Title)
	require.NotNil(t, get.ReadOnlyHint)
	assert.True(t, *get.ReadOnlyHint)
	assert.Nil(t, get.DestructiveHint)

	del := toolAnnotations(OpenAPIOperation{OperationID: "deletePet", Method: http.MethodDelete})
	assert.Equal(t, "deletePet", del.Title)
	require.NotNil(t, del.DestructiveHint)
	assert.True(t, *del.DestructiveHint)

	put := toolAnnotations(OpenAPIOperation{Method: http.MethodPut})
	require.NotNil(t, put.IdempotentHint)
	assert.True(t, *put.IdempotentHint)
}

func TestToolDescription(t *testing.T) {
	assert.Equal(t, "List pets\n\nReturns all pets", toolDescription(OpenAPIOperation{Summary: "List pets", Description: "Returns all pets"}))
	assert.Equal(t, "GET /pets", toolDescription(OpenAPIOperation{Method: "GET", Path: "/pets"}))
	assert.Equal(t, "[DEPRECATED] Old", toolDescription(OpenAPIOperation{Summary: "Old", Deprecated: true}))
}

func TestRegisterOpenAPITools_Options(t *testing.T) {
	doc := loadPetstore(t)
	ops := ExtractOpenAPIOperations(doc)

	all := RegisterOpenAPITools(mcpserver.NewMCPServer("t", "1"), ops, doc, nil, nil)
	assert.Len(t, all, 5)

	filtered := RegisterOpenAPITools(mcpserver.NewMCPServer("t", "1"), ops, doc, nil, &ToolGenOptions{
		TagFilter:  []string{"store"},
		NameFormat: strings.ToUpper,
	})
	assert.Equal(t, []string{"GETINVENTORY"}, filtered)
}

func TestNewServer_ListsTools(t *testing.T) {
	srv := NewServer("petstore", "1.0.0", loadPetstore(t), nil, nil)

	resp := srv.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded struct {
		Result struct {
			Tools []struct {
				Name        string         `json:"name"`
				Description string         `json:"description"`
				InputSchema map[string]any `json:"inputSchema"`
				Annotations struct {
					ReadOnlyHint    *bool `json:"readOnlyHint"`
					DestructiveHint *bool `json:"destructiveHint"`
				} `json:"annotations"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	byName := map[string]int{}
	for i, tool := range decoded.Result.Tools {
		byName[tool.Name] = i
	}
	require.Len(t, byName, 5)

	list := decoded.Result.Tools[byName["listPets"]]
	assert.Equal(t, "List pets", list.Description)
	assert.Contains(t, list.InputSchema["properties"], "filter_status_")
	require.NotNil(t, list.Annotations.ReadOnlyHint)
	assert.True(t, *list.Annotations.ReadOnlyHint)

	del := decoded.Result.Tools[byName["deletePet"]]
	require.NotNil(t, del.Annotations.DestructiveHint)
	assert.True(t, *del.Annotations.DestructiveHint)
}

func TestToolCall_TruncatesLargeResponses(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(strings.Repeat("z", maxResponseBytes+100)))
	}))
	defer upstream.Close()

	binding := newBinding(t, "listPets", upstream.URL, upstream.Client(), false)
	res, err := binding.handle(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	text := resultText(t, res)
	assert.True(t, strings.HasSuffix(text, "[response truncated at 1048576 bytes]"))
	assert.Equal(t, maxResponseBytes, strings.Count(text, "z"))
}
