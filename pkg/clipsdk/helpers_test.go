package clipsdk

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// newTestClient spins up a fake backend and a client pointed at it.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(server.URL)
}

// testJWT mints a signed token with the given expiry. The client never
// verifies signatures, so the key is irrelevant; it just has to parse.
func testJWT(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

// testUser is the account the fake backend reports.
func testUser() User {
	return User{
		ID:       "plex-user-1",
		Username: "clipper",
		Email:    "clipper@example.com",
	}
}

// validTestSession builds a session that will not need a refresh.
func validTestSession(t *testing.T) AuthSession {
	t.Helper()

	expiresAt := time.Now().Add(time.Hour)
	return AuthSession{
		AccessToken:   testJWT(t, expiresAt),
		ProviderToken: "ptk_stored",
		ExpiresAt:     expiresAt,
		User:          testUser(),
	}
}
