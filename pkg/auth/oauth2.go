package auth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	apperrors "github.com/ubermorgenland/openapi-mcp-gen/pkg/errors"
	"github.com/ubermorgenland/openapi-mcp-gen/pkg/logging"
)

// tokenExchangeTimeout bounds a single client credentials round trip.
const tokenExchangeTimeout = 30 * time.Second

// OAuth2Policy signs requests with a bearer token obtained through the
// OAuth2 client credentials grant.
//
// The token is fetched lazily on the first Apply and cached. The mutex is
// held across the exchange, so concurrent first uses wait for a single
// round trip instead of each starting their own. A cached token is only
// replaced when the provider reported an expiry and it has passed; tokens
// without expires_in are reused for the life of the policy.
type OAuth2Policy struct {
	config      clientcredentials.Config
	tokenClient *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

// NewOAuth2Policy creates an OAuth2Policy. The client id and secret are sent
// in the form body together with grant_type=client_credentials and scope.
func NewOAuth2Policy(tokenURL, clientID, clientSecret, scope string) *OAuth2Policy {
	var scopes []string
	if scope != "" {
		scopes = []string{scope}
	}
	return &OAuth2Policy{
		config: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			Scopes:       scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		tokenClient: &http.Client{Timeout: tokenExchangeTimeout},
	}
}

func (p *OAuth2Policy) Apply(req *http.Request) error {
	token, err := p.accessToken(req.Context())
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (p *OAuth2Policy) Strategy() Strategy { return StrategyOAuth2 }

// accessToken returns the cached token, exchanging client credentials first
// when the cache is empty or expired.
func (p *OAuth2Policy) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token.Valid() {
		return p.token.AccessToken, nil
	}

	logger := logging.For("auth")
	logger.Debug("exchanging client credentials", "token_url", p.config.TokenURL, "client_id", p.config.ClientID)

	token, err := p.config.Token(context.WithValue(ctx, oauth2.HTTPClient, p.tokenClient))
	if err != nil {
		return "", apperrors.WrapWithContext(ctx, err, apperrors.TypeTokenExchange, "OAuth2 token exchange failed")
	}

	p.token = token
	if token.Expiry.IsZero() {
		logger.Debug("cached OAuth2 access token without expiry")
	} else {
		logger.Debug("cached OAuth2 access token", "expires_at", token.Expiry)
	}
	return token.AccessToken, nil
}
