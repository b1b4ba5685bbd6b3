package httpx

import (
	"net/http"
)

// UserAgentTransport sets a User-Agent header on each outbound request.
type UserAgentTransport struct {
	Base      http.RoundTripper
	UserAgent string
}

func (t *UserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if t.UserAgent == "" || req.Header.Get("User-Agent") != "" {
		return base.RoundTrip(req)
	}

	out := req.Clone(req.Context())
	out.Header.Set("User-Agent", t.UserAgent)
	return base.RoundTrip(out)
}
