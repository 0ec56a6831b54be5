// Package auth resolves CLI credentials into request signing policies and
// provides the HTTP transport that applies them to outgoing API calls.
//
// A Policy is resolved once per process from a Strategy and a positional
// credential tuple:
//
//	basic   -> username, password
//	bearer  -> token
//	api_key -> location, name, value
//	oauth2  -> token URL, client ID, client secret, scope
//
// Resolve only checks the shape of the tuple. Whether the credentials are
// accepted by the API is discovered on first use.
package auth

import "strings"

// Strategy tags an authentication scheme.
type Strategy string

const (
	StrategyNone   Strategy = "none"
	StrategyBasic  Strategy = "basic"
	StrategyBearer Strategy = "bearer"
	StrategyAPIKey Strategy = "api_key"
	StrategyOAuth2 Strategy = "oauth2_client_credentials"
)

// ParseStrategy normalises a CLI tag. The empty tag means none and "oauth2"
// is accepted as an alias for the client credentials flow. Unknown tags are
// returned unchanged.
func ParseStrategy(tag string) Strategy {
	switch normalized := strings.ToLower(strings.TrimSpace(tag)); normalized {
	case "", string(StrategyNone):
		return StrategyNone
	case "oauth2", string(StrategyOAuth2):
		return StrategyOAuth2
	case string(StrategyBasic), string(StrategyBearer), string(StrategyAPIKey):
		return Strategy(normalized)
	default:
		return Strategy(tag)
	}
}

// Known reports whether s is one of the supported strategies.
func (s Strategy) Known() bool {
	switch s {
	case StrategyNone, StrategyBasic, StrategyBearer, StrategyAPIKey, StrategyOAuth2:
		return true
	}
	return false
}

// APIKeyLocation is where an API key is carried on the request.
type APIKeyLocation string

const (
	APIKeyInHeader APIKeyLocation = "header"
	APIKeyInQuery  APIKeyLocation = "query"
)

// Valid reports whether l is header or query.
func (l APIKeyLocation) Valid() bool {
	return l == APIKeyInHeader || l == APIKeyInQuery
}
