package auth

import (
	apperrors "github.com/ubermorgenland/openapi-mcp-gen/pkg/errors"
	"github.com/ubermorgenland/openapi-mcp-gen/pkg/logging"
)

const (
	msgBasicCredentials  = "Basic authentication requires username and password"
	msgBearerCredentials = "Bearer authentication requires a token"
	msgAPIKeyCredentials = "API key authentication requires location, name, and value"
	msgOAuth2Credentials = "OAuth2 authentication requires token URL, client ID, client secret, and scope"
)

// Resolve turns a strategy and its positional credentials into a Policy.
//
// Only the arity of credentials is checked; empty strings are accepted for
// every field except the bearer token. An unrecognised strategy resolves to
// the no-op policy.
func Resolve(strategy Strategy, credentials ...string) (Policy, error) {
	switch s := ParseStrategy(string(strategy)); s {
	case StrategyNone:
		return NoOp(), nil

	case StrategyBasic:
		if len(credentials) != 2 {
			return nil, apperrors.InvalidCredentials(msgBasicCredentials)
		}
		return NewBasicPolicy(credentials[0], credentials[1]), nil

	case StrategyBearer:
		if len(credentials) != 1 || credentials[0] == "" {
			return nil, apperrors.InvalidCredentials(msgBearerCredentials)
		}
		return NewBearerPolicy(credentials[0]), nil

	case StrategyAPIKey:
		if len(credentials) != 3 {
			return nil, apperrors.InvalidCredentials(msgAPIKeyCredentials)
		}
		return NewAPIKeyPolicy(APIKeyLocation(credentials[0]), credentials[1], credentials[2]), nil

	case StrategyOAuth2:
		if len(credentials) != 4 {
			return nil, apperrors.InvalidCredentials(msgOAuth2Credentials)
		}
		return NewOAuth2Policy(credentials[0], credentials[1], credentials[2], credentials[3]), nil

	default:
		logging.For("auth").Warn("unrecognised authentication strategy, requests will not be signed", "strategy", string(s))
		return NoOp(), nil
	}
}
