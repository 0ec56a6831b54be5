package auth

import (
	"net/http"
	"time"
)

// Transport signs every request with Policy before handing it to Base.
type Transport struct {
	Base   http.RoundTripper
	Policy Policy
}

// RoundTrip executes a single HTTP transaction with credentials applied.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Policy == nil {
		return t.base().RoundTrip(req)
	}

	// Clone the request to avoid modifying the original
	clonedReq := req.Clone(req.Context())
	if err := t.Policy.Apply(clonedReq); err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}

	return t.base().RoundTrip(clonedReq)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// NewHTTPClient returns a client whose requests are signed by policy.
// A zero timeout means no client-level timeout.
func NewHTTPClient(policy Policy, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &Transport{
			Base:   http.DefaultTransport,
			Policy: policy,
		},
		Timeout: timeout,
	}
}
