package clipsdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"golang.org/x/time/rate"
)

// Client is the low-level HTTP client for the ClipForge backend. It attaches
// anti-forgery headers to mutating calls, classifies transport failures, and
// keeps the backend's cookies in a jar. Higher-level behavior lives in
// CredentialStore, Orchestrator and TokenCache, which all drive a Client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// Limiter paces outbound requests client-side so bursts of media-token
	// fetches cannot trip the backend's rate limits. Nil disables pacing.
	Limiter *rate.Limiter

	antiForgery *AntiForgery
}

// NewClient creates a backend client for the given base URL (including any
// API prefix, e.g. "https://clips.example.com/api/v1").
//
// The returned client carries no overall HTTP timeout because media fetches
// stream bodies of arbitrary size; use context deadlines to bound calls.
func NewClient(baseURL string) *Client {
	base := strings.TrimSuffix(baseURL, "/")

	jar, _ := cookiejar.New(nil)
	httpClient := &http.Client{Jar: jar}

	return &Client{
		BaseURL:     base,
		HTTPClient:  httpClient,
		Limiter:     rate.NewLimiter(rate.Limit(10), 20),
		antiForgery: NewAntiForgery(jar, base),
	}
}

// AntiForgery exposes the client's anti-forgery synchronizer, mainly so
// callers can inspect it in tests.
func (c *Client) AntiForgery() *AntiForgery { return c.antiForgery }

// do performs an HTTP request against the backend. It paces the call through
// the limiter, attaches the anti-forgery header when the method and path
// require one, and mirrors rotated anti-forgery values from the response.
//
// A nil error means the backend answered; status classification is the
// caller's job. A non-nil error always wraps ErrNetwork or the context error.
func (c *Client) do(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set custom headers
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	// The anti-forgery value is read fresh from the cookie jar per call.
	for key, value := range c.antiForgery.HeadersFor(method, path) {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Join(ErrNetwork, err)
	}

	c.antiForgery.UpdateFromResponse(resp)
	return resp, nil
}
