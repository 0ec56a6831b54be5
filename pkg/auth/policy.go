package auth

import (
	"net/http"
)

// Policy injects credentials into an outgoing request.
//
// Apply mutates req in place. Callers that must not touch the original
// request, such as an http.RoundTripper, clone it first (see Transport).
type Policy interface {
	Apply(req *http.Request) error
	Strategy() Strategy
}

type noopPolicy struct{}

// NoOp returns the policy used when no authentication is configured.
func NoOp() Policy {
	return noopPolicy{}
}

func (noopPolicy) Apply(*http.Request) error { return nil }

func (noopPolicy) Strategy() Strategy { return StrategyNone }

// BasicPolicy sets an HTTP basic Authorization header.
type BasicPolicy struct {
	username string
	password string
}

// NewBasicPolicy creates a BasicPolicy.
func NewBasicPolicy(username, password string) *BasicPolicy {
	return &BasicPolicy{username: username, password: password}
}

func (p *BasicPolicy) Apply(req *http.Request) error {
	req.SetBasicAuth(p.username, p.password)
	return nil
}

func (p *BasicPolicy) Strategy() Strategy { return StrategyBasic }

// BearerPolicy sets a fixed bearer token.
type BearerPolicy struct {
	token string
}

// NewBearerPolicy creates a BearerPolicy.
func NewBearerPolicy(token string) *BearerPolicy {
	return &BearerPolicy{token: token}
}

func (p *BearerPolicy) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+p.token)
	return nil
}

func (p *BearerPolicy) Strategy() Strategy { return StrategyBearer }

// APIKeyPolicy carries a named key in a header or a query parameter.
type APIKeyPolicy struct {
	location APIKeyLocation
	name     string
	value    string
}

// NewAPIKeyPolicy creates an APIKeyPolicy. A location other than header or
// query leaves requests untouched.
func NewAPIKeyPolicy(location APIKeyLocation, name, value string) *APIKeyPolicy {
	return &APIKeyPolicy{location: location, name: name, value: value}
}

func (p *APIKeyPolicy) Apply(req *http.Request) error {
	switch p.location {
	case APIKeyInHeader:
		req.Header.Set(p.name, p.value)
	case APIKeyInQuery:
		// Set replaces any existing value so repeated applies stay idempotent.
		q := req.URL.Query()
		q.Set(p.name, p.value)
		req.URL.RawQuery = q.Encode()
	}
	return nil
}

func (p *APIKeyPolicy) Strategy() Strategy { return StrategyAPIKey }

// Location returns where the key is placed.
func (p *APIKeyPolicy) Location() APIKeyLocation { return p.location }
