package clipsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// doJSON performs a request with an optional JSON payload and decodes the
// JSON response into target. An empty bearer leaves the call unauthenticated.
func (c *Client) doJSON(
	ctx context.Context,
	method, path, bearer string,
	payload, target any,
	expectedStatus int,
) error {
	var body io.Reader
	headers := make(map[string]string)

	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
		headers["Content-Type"] = "application/json"
	}
	if bearer != "" {
		headers["Authorization"] = "Bearer " + bearer
	}

	resp, err := c.do(ctx, method, path, body, headers)
	if err != nil {
		return err
	}

	return decodeJSON(resp, target, expectedStatus)
}

// doForm performs a form-encoded request and decodes the JSON response into
// target. The media-token endpoint takes form fields rather than JSON.
func (c *Client) doForm(
	ctx context.Context,
	method, path, bearer string,
	data url.Values,
	target any,
	expectedStatus int,
) error {
	headers := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}
	if bearer != "" {
		headers["Authorization"] = "Bearer " + bearer
	}

	resp, err := c.do(ctx, method, path, strings.NewReader(data.Encode()), headers)
	if err != nil {
		return err
	}

	return decodeJSON(resp, target, expectedStatus)
}

// decodeJSON decodes a JSON response into the target.
// Returns a typed APIError if the response status is unexpected.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	// Read body once for both error parsing and success decoding
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Check for error responses (non-2xx status codes)
	if resp.StatusCode != expectedStatus {
		if err := parseErrorResponse(resp, bodyBytes); err != nil {
			return err
		}
		// A successful status other than the expected one (the backend
		// answers PIN creation with 200 or 201 depending on version)
		// still carries the payload; fall through and decode it.
	}

	if target == nil {
		return nil
	}

	// Decode successful response
	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
