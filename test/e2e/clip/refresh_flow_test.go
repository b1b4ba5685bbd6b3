package clip_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge-go/internal/cli/app"
)

// TestSessionRefreshAcrossRestart tests transparent refresh:
// 1. Log in and receive a session that is about to expire
// 2. Restart the application over the same state directory
// 3. Fetch the session, which silently re-signs-in with the provider token
// 4. Restart again and verify the refreshed session was persisted
func TestSessionRefreshAcrossRestart(t *testing.T) {
	backend := newBackend(t)
	// The first access token expires inside the refresh buffer, so the
	// next credential fetch refreshes without any sleeping.
	backend.setSessionTTL(15 * time.Second)
	cfg := testConfig(backend.start(t), t.TempDir())

	first, err := app.New(cfg)
	require.NoError(t, err)

	original := performLogin(t, first)
	require.Equal(t, 1, backend.signinCount())
	require.NoError(t, first.Close())

	// Tokens minted from here on are long-lived, so the refreshed session
	// sticks instead of refreshing on every fetch.
	backend.setSessionTTL(time.Hour)

	second, err := app.New(cfg)
	require.NoError(t, err)

	refreshed, err := second.Creds.Get(t.Context())
	require.NoError(t, err)
	assertSessionUser(t, refreshed)
	require.Equal(t, 2, backend.signinCount(), "Fetching a near-expiry session should re-sign-in")
	require.NotEqual(t, original.AccessToken, refreshed.AccessToken, "Refresh should rotate the access token")

	t.Logf("Session refreshed, new expiry %s", refreshed.ExpiresAt)

	// The refreshed session serves from memory; no further sign-ins.
	again, err := second.Creds.Get(t.Context())
	require.NoError(t, err)
	require.Equal(t, refreshed.AccessToken, again.AccessToken)
	require.Equal(t, 2, backend.signinCount())
	require.NoError(t, second.Close())

	// A third start finds the refreshed session already valid on disk.
	third, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, third.Close()) })

	persisted, err := third.Creds.Get(t.Context())
	require.NoError(t, err)
	require.Equal(t, refreshed.AccessToken, persisted.AccessToken, "The refreshed session should be durable")
	require.Equal(t, 2, backend.signinCount())
}

// TestRefreshFailureClearsSession tests revocation handling:
// 1. Log in and receive a session that is about to expire
// 2. Revoke the provider token backend-side
// 3. Fetch the session: the refresh fails and the session is discarded
func TestRefreshFailureClearsSession(t *testing.T) {
	backend := newBackend(t)
	backend.setSessionTTL(15 * time.Second)
	cfg := testConfig(backend.start(t), t.TempDir())

	first, err := app.New(cfg)
	require.NoError(t, err)

	performLogin(t, first)
	require.NoError(t, first.Close())

	backend.revokeProviderToken()

	second, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, second.Close()) })

	session, err := second.Creds.Get(t.Context())
	require.NoError(t, err, "A failed refresh is reported as no session, not an error")
	require.Nil(t, session)

	// The dead session must be gone from durable state too, so the next
	// invocation goes straight to login.
	stored, err := second.StateStore().LoadSession(t.Context())
	require.NoError(t, err)
	require.Nil(t, stored, "A session that cannot refresh should be cleared")
}
