package jwtx

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// This package inspects tokens the backend issues to the client. The client
// never verifies signatures (the backend does); parsing here is unverified
// and only used to read expiry and identity hints.

// SessionClaims mirrors the backend's session token payload.
type SessionClaims struct {
	jwt.RegisteredClaims

	// UserID is the backend identifier for the authenticated user.
	UserID string `json:"user_id,omitempty"`

	// Username for the authenticated user.
	Username string `json:"username,omitempty"`

	// Email for the authenticated user.
	Email string `json:"email,omitempty"`

	// RememberMe marks long-lived sessions.
	RememberMe bool `json:"remember_me,omitempty"`
}

// MediaClaims mirrors the backend's resource-scoped media token payload.
type MediaClaims struct {
	jwt.RegisteredClaims

	UserID       string `json:"user_id,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`

	// TokenType is "media_access" for tokens minted by the media-token endpoint.
	TokenType string `json:"token_type,omitempty"`
}

// ParseSessionClaims decodes a session token without verifying its signature.
func ParseSessionClaims(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}
	return claims, nil
}

// ParseMediaClaims decodes a media token without verifying its signature.
func ParseMediaClaims(token string) (*MediaClaims, error) {
	claims := &MediaClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse media token: %w", err)
	}
	return claims, nil
}

// Expiry returns the exp claim of any JWT, without verifying it.
// Returns an error when the token does not parse or carries no expiry.
func Expiry(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("token has no expiry claim")
	}
	return claims.ExpiresAt.Time, nil
}
