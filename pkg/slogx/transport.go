package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/clipforge/clipforge-go/pkg/idx"
)

// Transport logs outbound requests and tags each with a ULID request ID.
// It implements http.RoundTripper and is meant to sit near the bottom of a
// client's transport chain.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

// NewTransport wraps base with request logging. A nil base falls back to
// http.DefaultTransport, a nil logger to slog.Default().
func NewTransport(base http.RoundTripper, logger *slog.Logger) *Transport {
	return &Transport{Base: base, Logger: logger}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reqID := req.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = idx.New().String()
	}

	// RoundTrippers must not mutate the caller's request.
	out := req.Clone(req.Context())
	out.Header.Set("X-Request-ID", reqID)

	logger = logger.With(
		"req_id", reqID,
		"method", out.Method,
		"host", out.URL.Host,
		"path", out.URL.Path,
	)

	start := time.Now()
	resp, err := base.RoundTrip(out)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		logger.Warn("http_request_failed",
			"duration_ms", duration,
			"error", err,
		)
		return nil, err
	}

	logger.Debug("http_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
	)

	return resp, nil
}
