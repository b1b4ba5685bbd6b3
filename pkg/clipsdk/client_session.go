package clipsdk

import (
	"context"
	"net/http"
)

// SignIn exchanges a provider token for a backend session. It is used both
// for the initial exchange after a resolved handshake and for transparent
// refresh, since the provider token stays valid across access-token expiry.
func (c *Client) SignIn(ctx context.Context, providerToken string, remember bool) (*SignInResponse, error) {
	req := SignInRequest{
		Token:      providerToken,
		RememberMe: remember,
	}

	var out SignInResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/signin", "", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignOut revokes the session on the backend. The backend acknowledges
// logout even when revocation partially fails, so a 200 is all we check.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	var out StatusResponse
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", accessToken, nil, &out, http.StatusOK)
}

// Me returns the account behind an access token.
func (c *Client) Me(ctx context.Context, accessToken string) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", accessToken, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.User, nil
}
