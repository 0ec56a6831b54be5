package openapi2mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/ubermorgenland/openapi-mcp-gen/pkg/logging"
)

// requestBodyProperty is the input schema property that carries the JSON body.
const requestBodyProperty = "requestBody"

// confirmProperty must be true before a dangerous tool sends its request
// when ToolGenOptions.ConfirmDangerousActions is set.
const confirmProperty = "__confirmed"

// escapeParameterName converts parameter names with brackets to MCP-compatible names.
// "filter[created_at]" becomes "filter_created_at_". The trailing underscore
// marks the name as escaped.
func escapeParameterName(name string) string {
	if !strings.ContainsAny(name, "[]") {
		return name
	}
	escaped := strings.NewReplacer("[", "_", "]", "_").Replace(name)
	if !strings.HasSuffix(escaped, "_") {
		escaped += "_"
	}
	return escaped
}

// resolveSchemaRef follows a #/components/schemas reference when the loader
// left it unresolved.
func resolveSchemaRef(ref *openapi3.SchemaRef, doc *openapi3.T) *openapi3.Schema {
	if ref == nil {
		return nil
	}
	if ref.Value == nil && ref.Ref != "" && doc != nil && doc.Components != nil {
		name := strings.TrimPrefix(ref.Ref, "#/components/schemas/")
		if resolved, ok := doc.Components.Schemas[name]; ok && resolved != nil {
			return resolved.Value
		}
	}
	return ref.Value
}

// isMessageArrayPattern detects the chat API shape where oneOf lists
// system/user/assistant message variants distinguished by a role property.
func isMessageArrayPattern(oneOf openapi3.SchemaRefs) bool {
	if len(oneOf) < 2 {
		return false
	}

	var system, user bool
	withRole := 0
	for _, ref := range oneOf {
		if ref == nil {
			continue
		}
		if strings.Contains(ref.Ref, "SystemMessage") {
			system = true
		}
		if strings.Contains(ref.Ref, "UserMessage") {
			user = true
		}
		if ref.Value == nil {
			continue
		}
		role, ok := ref.Value.Properties["role"]
		if !ok {
			continue
		}
		withRole++
		if role.Value == nil {
			continue
		}
		for _, v := range role.Value.Enum {
			switch v {
			case "system":
				system = true
			case "user":
				user = true
			}
		}
	}
	return (system && user) || (len(oneOf) == 2 && withRole == 2)
}

func messageUnionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"role":    map[string]any{"type": "string", "enum": []any{"system", "user", "assistant"}},
			"content": map[string]any{"type": "string"},
		},
		"required": []any{"role", "content"},
	}
}

// mergeOneOfSchemas flattens oneOf variants into a single object schema.
// A property is required only when every variant requires it.
func mergeOneOfSchemas(oneOf openapi3.SchemaRefs, doc *openapi3.T) map[string]any {
	properties := map[string]any{}
	requiredCount := map[string]int{}
	variants := 0

	for _, ref := range oneOf {
		schema := resolveSchemaRef(ref, doc)
		if schema == nil {
			continue
		}
		variants++
		for name, sub := range schema.Properties {
			if prop := extractProperty(sub, doc); prop != nil {
				properties[name] = prop
			}
		}
		for _, name := range schema.Required {
			requiredCount[name]++
		}
	}

	merged := map[string]any{
		"type":        "object",
		"description": fmt.Sprintf("Accepts any of %d possible schema variants (oneOf)", variants),
	}
	if len(properties) > 0 {
		merged["properties"] = properties
	}

	var names []string
	for name, n := range requiredCount {
		if n == variants {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		sort.Strings(names)
		required := make([]any, len(names))
		for i, name := range names {
			required[i] = name
		}
		merged["required"] = required
	}
	return merged
}

// extractProperty converts an OpenAPI schema into a JSON Schema fragment.
// allOf is merged, oneOf is flattened, anyOf is passed through with basic support.
func extractProperty(ref *openapi3.SchemaRef, doc *openapi3.T) map[string]any {
	val := resolveSchemaRef(ref, doc)
	if val == nil {
		return nil
	}

	if len(val.OneOf) > 0 {
		if isMessageArrayPattern(val.OneOf) {
			return messageUnionSchema()
		}
		return mergeOneOfSchemas(val.OneOf, doc)
	}

	prop := map[string]any{}
	for _, sub := range val.AllOf {
		mergeAllOfMember(prop, extractProperty(sub, doc))
	}
	if len(val.AnyOf) > 0 {
		logging.For("openapi2mcp").Debug("anyOf has only basic support", "variants", len(val.AnyOf))
		anyOf := make([]any, 0, len(val.AnyOf))
		for _, sub := range val.AnyOf {
			anyOf = append(anyOf, extractProperty(sub, doc))
		}
		prop["anyOf"] = anyOf
	}

	if val.Type != nil && len(*val.Type) > 0 {
		prop["type"] = (*val.Type)[0]
	}
	if val.Format != "" {
		prop["format"] = val.Format
	}
	if val.Description != "" {
		prop["description"] = val.Description
	}
	if len(val.Enum) > 0 {
		prop["enum"] = val.Enum
	}
	if val.Default != nil {
		prop["default"] = val.Default
	}
	if val.Example != nil {
		prop["example"] = val.Example
	}

	if val.Type.Is("object") && len(val.Properties) > 0 {
		objProps := map[string]any{}
		for name, sub := range val.Properties {
			objProps[name] = extractProperty(sub, doc)
		}
		// allOf members contribute properties too
		if existing, ok := prop["properties"].(map[string]any); ok {
			for k, v := range existing {
				if _, set := objProps[k]; !set {
					objProps[k] = v
				}
			}
		}
		prop["properties"] = objProps
		if len(val.Required) > 0 {
			required := make([]any, len(val.Required))
			for i, r := range val.Required {
				required[i] = r
			}
			prop["required"] = unionRequired(prop["required"], required)
		}
	}
	if val.Type.Is("array") && val.Items != nil {
		prop["items"] = extractProperty(val.Items, doc)
	}
	return prop
}

// mergeAllOfMember folds one allOf member into dst. Properties and required
// lists accumulate across members; other keywords take the later value.
func mergeAllOfMember(dst, member map[string]any) {
	for k, v := range member {
		switch k {
		case "properties":
			props, ok := dst["properties"].(map[string]any)
			if !ok {
				props = map[string]any{}
			}
			if add, ok := v.(map[string]any); ok {
				for name, schema := range add {
					props[name] = schema
				}
			}
			dst["properties"] = props
		case "required":
			dst["required"] = unionRequired(dst["required"], v)
		default:
			dst[k] = v
		}
	}
}

// unionRequired combines two required lists, keeping first-seen order and
// dropping duplicates.
func unionRequired(a, b any) []any {
	var out []any
	seen := map[string]bool{}
	for _, list := range []any{a, b} {
		items, _ := list.([]any)
		for _, item := range items {
			name, ok := item.(string)
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// getContentByType finds the media type whose base type, ignoring
// parameters such as charset, equals want.
func getContentByType(content openapi3.Content, want string) *openapi3.MediaType {
	if mt, ok := content[want]; ok {
		return mt
	}
	for name, mt := range content {
		base := name
		if i := strings.IndexByte(name, ';'); i > 0 {
			base = strings.TrimSpace(name[:i])
		}
		if strings.EqualFold(base, want) {
			return mt
		}
	}
	return nil
}

// jsonRequestBody returns the JSON media type of a request body, preferring
// application/json over application/vnd.api+json.
func jsonRequestBody(body *openapi3.RequestBodyRef) *openapi3.MediaType {
	if body == nil || body.Value == nil {
		return nil
	}
	if mt := getContentByType(body.Value.Content, "application/json"); mt != nil {
		return mt
	}
	return getContentByType(body.Value.Content, "application/vnd.api+json")
}

// BuildInputSchema converts OpenAPI parameters and a request body into a
// single JSON Schema object describing the tool's arguments.
//
// Parameters become top-level properties keyed by their escaped names. A
// JSON request body becomes the requestBody property.
func BuildInputSchema(params openapi3.Parameters, requestBody *openapi3.RequestBodyRef, doc *openapi3.T) map[string]any {
	logger := logging.For("openapi2mcp")
	properties := map[string]any{}
	var required []any

	for _, ref := range params {
		if ref == nil || ref.Value == nil {
			continue
		}
		p := ref.Value
		switch p.In {
		case openapi3.ParameterInPath, openapi3.ParameterInQuery, openapi3.ParameterInHeader, openapi3.ParameterInCookie:
		default:
			logger.Warn("parameter uses unsupported location", "parameter", p.Name, "in", p.In)
		}

		var prop map[string]any
		if p.Schema != nil {
			prop = extractProperty(p.Schema, doc)
		}
		if prop == nil {
			prop = map[string]any{"type": "string"}
		}
		if p.Schema != nil && p.Schema.Value != nil && p.Schema.Value.Type.Is("string") && p.Schema.Value.Format == "binary" {
			logger.Warn("binary string parameters are not fully supported", "parameter", p.Name)
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}

		name := escapeParameterName(p.Name)
		properties[name] = prop
		if p.Required || p.In == openapi3.ParameterInPath {
			required = append(required, name)
		}
	}

	if requestBody != nil && requestBody.Value != nil {
		if mt := jsonRequestBody(requestBody); mt != nil && mt.Schema != nil {
			bodyProp := extractProperty(mt.Schema, doc)
			if bodyProp != nil {
				bodyProp["description"] = "The JSON request body."
				properties[requestBodyProperty] = bodyProp
				if requestBody.Value.Required {
					required = append(required, requestBodyProperty)
				}
			}
		} else {
			for name := range requestBody.Value.Content {
				logger.Warn("request body media type is not supported", "media_type", name)
			}
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
