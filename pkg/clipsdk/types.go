package clipsdk

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// Resource Types
// ============================================================================

// ResourceType identifies the kind of media resource a scoped token grants
// access to.
type ResourceType string

const (
	ResourceVideo     ResourceType = "video"
	ResourceSnapshot  ResourceType = "snapshot"
	ResourceEdit      ResourceType = "edit"
	ResourceThumbnail ResourceType = "thumbnail"
)

// ============================================================================
// Wire Types
// ============================================================================

// PinID is the identifier of a PIN handshake record. The backend encodes it
// as a JSON number, but older deployments returned strings, so both are
// accepted.
type PinID string

func (p PinID) String() string { return string(p) }

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (p *PinID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PinID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("pin id must be a number or string: %w", err)
	}
	*p = PinID(n.String())
	return nil
}

// PinResponse is returned from POST /auth/pin when a new handshake PIN is
// minted with the identity provider.
type PinResponse struct {
	// ID identifies the PIN record for subsequent status polls
	ID PinID `json:"id"`

	// Code is the short code the user approves at the identity provider
	Code string `json:"code"`
}

// PinStatusResponse is returned from GET /auth/pin/{id}. AuthToken is empty
// until the user approves the PIN at the identity provider.
type PinStatusResponse struct {
	// Authenticated reports whether the provider has confirmed the login
	Authenticated bool `json:"authenticated"`

	// AuthToken is the provider token, present only once authenticated
	AuthToken string `json:"auth_token,omitempty"`
}

// User describes the authenticated account as reported by the backend.
type User struct {
	// ID is the provider-assigned user identifier
	ID string `json:"user_id"`

	// Username is the account's display name
	Username string `json:"username"`

	// Email is the account's email address
	Email string `json:"email"`

	// Thumb is an optional avatar URL
	Thumb string `json:"thumb,omitempty"`
}

// SignInRequest exchanges a provider token for a backend session.
type SignInRequest struct {
	// Token is the provider token obtained from a resolved PIN handshake
	Token string `json:"token"`

	// RememberMe requests a long-lived session
	RememberMe bool `json:"remember_me,omitempty"`
}

// SignInResponse is returned from POST /auth/signin.
type SignInResponse struct {
	// AccessToken is the bearer credential for subsequent API calls
	AccessToken string `json:"access_token"`

	// User is the authenticated account
	User User `json:"user"`
}

// MediaTokenResponse is returned from POST /auth/media-token. The request
// side is form-encoded, so it has no struct here.
type MediaTokenResponse struct {
	Status string `json:"status,omitempty"`

	// Token is the scoped media access token
	Token string `json:"token"`

	// ExpiresIn is the token lifetime in seconds
	ExpiresIn int `json:"expires_in,omitempty"`

	// ResourceID and ResourceType echo the request
	ResourceID   string       `json:"resource_id,omitempty"`
	ResourceType ResourceType `json:"resource_type,omitempty"`
}

// StatusResponse is the generic `{status, message}` acknowledgement some
// endpoints return.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ============================================================================
// Session Types
// ============================================================================

// AuthSession is the credential bundle for an authenticated backend session.
// The provider token is the long-lived credential; the access token is
// derived from it and re-minted on refresh. A session never carries an
// access token without the provider token that produced it.
type AuthSession struct {
	// AccessToken is the bearer credential sent with API calls
	AccessToken string

	// ProviderToken is the identity provider's long-lived token, used to
	// mint a new access token when the current one expires
	ProviderToken string

	// ExpiresAt is when the access token stops being usable
	ExpiresAt time.Time

	// User is the account this session belongs to
	User User

	// Remember records whether the session was requested as long-lived,
	// so refreshes preserve that choice
	Remember bool
}

// PendingHandshake is a PIN exchange awaiting user approval. Redirect-style
// flows persist it so polling can resume in a later invocation.
type PendingHandshake struct {
	// ID uniquely identifies this handshake attempt
	ID string

	// PinID is the backend's PIN record identifier to poll
	PinID string

	// Code is the short code the user approves at the provider
	Code string

	// AuthURL is the provider authorization URL the user must visit
	AuthURL string

	// ExpiresAt bounds how long the handshake may be resumed
	ExpiresAt time.Time
}
