package auth

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// SchemeInfo describes a security scheme declared by an OpenAPI document.
type SchemeInfo struct {
	Name     string
	Strategy Strategy
	// Location and ParamName are only set for apiKey schemes.
	Location  APIKeyLocation
	ParamName string
	// TokenURL is only set for oauth2 schemes with a clientCredentials flow.
	TokenURL string
}

// String renders the scheme as "<location>:<name>" in the style of the
// startup log line.
func (s SchemeInfo) String() string {
	switch s.Strategy {
	case StrategyAPIKey:
		return string(s.Location) + ":" + s.ParamName
	case StrategyOAuth2:
		return "header:Authorization (token " + s.TokenURL + ")"
	default:
		return "header:Authorization"
	}
}

// DetectScheme returns the first security scheme, by name, that maps onto a
// supported strategy. Cookie API keys and other flows are skipped.
func DetectScheme(doc *openapi3.T) (SchemeInfo, bool) {
	if doc == nil || doc.Components == nil || doc.Components.SecuritySchemes == nil {
		return SchemeInfo{}, false
	}

	names := make([]string, 0, len(doc.Components.SecuritySchemes))
	for name := range doc.Components.SecuritySchemes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ref := doc.Components.SecuritySchemes[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		scheme := ref.Value

		switch scheme.Type {
		case "apiKey":
			location := APIKeyLocation(scheme.In)
			if !location.Valid() {
				continue
			}
			return SchemeInfo{Name: name, Strategy: StrategyAPIKey, Location: location, ParamName: scheme.Name}, true
		case "http":
			switch strings.ToLower(scheme.Scheme) {
			case "bearer":
				return SchemeInfo{Name: name, Strategy: StrategyBearer}, true
			case "basic":
				return SchemeInfo{Name: name, Strategy: StrategyBasic}, true
			}
		case "oauth2":
			if scheme.Flows != nil && scheme.Flows.ClientCredentials != nil {
				return SchemeInfo{Name: name, Strategy: StrategyOAuth2, TokenURL: scheme.Flows.ClientCredentials.TokenURL}, true
			}
		}
	}
	return SchemeInfo{}, false
}
