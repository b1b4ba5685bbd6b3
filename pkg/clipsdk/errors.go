package clipsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// Sentinel Errors
// ============================================================================

var (
	// ErrHandshakeTimeout is returned when the PIN poll budget is exhausted
	// before the identity provider confirms the login.
	ErrHandshakeTimeout = errors.New("handshake timed out")

	// ErrHandshakeCancelled is returned when the user abandons the flow,
	// either by closing the authorization surface or cancelling the context.
	ErrHandshakeCancelled = errors.New("handshake cancelled")

	// ErrHandshakePending is returned by redirect-style surfaces after the
	// handshake has been persisted; the caller should direct the user to the
	// authorization URL and resume later.
	ErrHandshakePending = errors.New("handshake pending")

	// ErrNoPendingHandshake is returned by Resume when no persisted
	// handshake exists.
	ErrNoPendingHandshake = errors.New("no pending handshake")

	// ErrProvider is returned when PIN creation or another identity-provider
	// interaction fails.
	ErrProvider = errors.New("identity provider error")

	// ErrAuth is returned for 401/403 responses that survive the token
	// cache's single retry, and when an operation requires a session but
	// none is available.
	ErrAuth = errors.New("authentication required")

	// ErrNotReady is returned when a recently created resource fails to
	// load, most likely because the backend has not finished producing it.
	ErrNotReady = errors.New("resource not ready")

	// ErrNetwork is returned when a request never reached the backend.
	ErrNetwork = errors.New("network error")

	// ErrServer is returned for non-2xx responses that are neither 401 nor 403.
	ErrServer = errors.New("server error")
)

// ============================================================================
// APIError - typed backend error
// ============================================================================

// APIError represents a non-2xx backend response. It unwraps to ErrAuth or
// ErrServer so callers can classify with errors.Is while still reaching the
// backend-provided message.
type APIError struct {
	// StatusCode is the HTTP status code of the response
	StatusCode int

	// Code is the short machine-readable error code, when the backend sent one
	Code string

	// Message is the human-readable message parsed from the response body
	Message string

	kind error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap reports the error class (ErrAuth or ErrServer).
func (e *APIError) Unwrap() error { return e.kind }

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// classifyStatus maps an HTTP status code to its sentinel class.
func classifyStatus(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuth
	default:
		return ErrServer
	}
}

// parseErrorResponse attempts to parse an HTTP error response into a typed
// APIError. The backend emits two body shapes: `{"detail": "..."}` from its
// request handlers, and `{"error": "...", "message": "..."}` from middleware.
// Returns nil if the response indicates success (2xx status code).
func parseErrorResponse(resp *http.Response, body []byte) error {
	// Success responses
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	kind := classifyStatus(resp.StatusCode)

	// Try parsing as a handler error
	var detailResp struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detailResp); err == nil && detailResp.Detail != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    detailResp.Detail,
			kind:       kind,
		}
	}

	// Try parsing as a middleware error
	var middlewareResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &middlewareResp); err == nil && middlewareResp.Message != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       middlewareResp.Error,
			Message:    middlewareResp.Message,
			kind:       kind,
		}
	}

	// Fallback: create generic error from status code
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		kind:       kind,
	}
}
