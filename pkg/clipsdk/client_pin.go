package clipsdk

import (
	"context"
	"net/http"
	"net/url"
)

// CreatePin asks the backend to mint a new handshake PIN with the identity
// provider. The endpoint is exempt from anti-forgery protection since no
// session exists yet.
func (c *Client) CreatePin(ctx context.Context) (*PinResponse, error) {
	var out PinResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/pin", "", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPin reports whether the identity provider has confirmed the PIN.
// AuthToken is populated once the user approves the login; until then the
// response only carries Authenticated: false.
func (c *Client) GetPin(ctx context.Context, id string) (*PinStatusResponse, error) {
	var out PinStatusResponse
	path := "/auth/pin/" + url.PathEscape(id)
	if err := c.doJSON(ctx, http.MethodGet, path, "", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
