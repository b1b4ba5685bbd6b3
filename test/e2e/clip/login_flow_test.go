package clip_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge-go/internal/cli/app"
	"github.com/clipforge/clipforge-go/pkg/clipsdk"
)

// TestLoginHandshakeFlow tests the complete interactive login:
// 1. Mint a PIN with the backend
// 2. Poll until the provider approves it
// 3. Exchange the provider token for a session
// 4. Use the session against an authenticated endpoint
func TestLoginHandshakeFlow(t *testing.T) {
	backend := newBackend(t)
	application := newTestApp(t, backend.start(t))

	session := performLogin(t, application)
	assertSessionUser(t, session)

	t.Logf("Handshake resolved after %d polls", backend.pollCount())
	require.Equal(t, backend.approveAfter, backend.pollCount(), "Polling should stop at approval")
	require.Equal(t, 1, backend.signinCount(), "Exactly one sign-in should follow the handshake")

	// The session must be live in the credential store and the handshake
	// record consumed.
	cached, err := application.Creds.Get(t.Context())
	require.NoError(t, err)
	require.NotNil(t, cached)
	require.Equal(t, session.AccessToken, cached.AccessToken)

	pending, err := application.StateStore().LoadHandshake(t.Context())
	require.NoError(t, err)
	require.Nil(t, pending, "A redeemed handshake should not linger")

	// The access token works against the backend.
	user, err := application.Client.Me(t.Context(), session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, e2eUserID, user.ID)
	require.Equal(t, e2eUsername, user.Username)

	t.Logf("Signed in as %s <%s>", user.Username, user.Email)
}

// TestLoginRedirectResume tests the two-invocation login:
// 1. Start a handshake with a redirect surface, which parks it in state
// 2. Restart the application over the same state directory
// 3. Resume the handshake and complete the sign-in
func TestLoginRedirectResume(t *testing.T) {
	backend := newBackend(t)
	cfg := testConfig(backend.start(t), t.TempDir())

	first, err := app.New(cfg)
	require.NoError(t, err)

	var announced string
	surface := clipsdk.NewRedirectSurface(first.StateStore())
	surface.Announce = func(url string) { announced = url }

	session, err := first.Orch.StartHandshake(t.Context(), surface)
	require.ErrorIs(t, err, clipsdk.ErrHandshakePending, "Redirect surfaces park instead of polling")
	require.Nil(t, session)
	require.NotEmpty(t, announced, "The authorization URL should be announced before parking")
	require.Zero(t, backend.signinCount(), "No sign-in should happen while parked")

	pending, err := first.StateStore().LoadHandshake(t.Context())
	require.NoError(t, err)
	require.NotNil(t, pending, "The handshake should be parked durably")
	require.NoError(t, first.Close())

	t.Logf("Handshake %s parked, authorization URL: %s", pending.ID, announced)

	// Second invocation: the user has approved the PIN in the meantime.
	second, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, second.Close()) })

	session, err = second.Orch.Resume(t.Context())
	require.NoError(t, err, "Resume should complete the parked handshake")
	assertSessionUser(t, session)
	require.Equal(t, 1, backend.signinCount())

	pending, err = second.StateStore().LoadHandshake(t.Context())
	require.NoError(t, err)
	require.Nil(t, pending, "A resumed handshake should be cleared")

	t.Logf("Resumed sign-in as %s", session.User.Username)
}

// TestLogoutFlow tests session teardown:
// 1. Log in
// 2. Revoke the session on the backend
// 3. Clear the local credential store
func TestLogoutFlow(t *testing.T) {
	backend := newBackend(t)
	application := newTestApp(t, backend.start(t))

	session := performLogin(t, application)

	require.NoError(t, application.Client.SignOut(t.Context(), session.AccessToken))
	require.NoError(t, application.Creds.Clear(t.Context()))

	cached, err := application.Creds.Get(t.Context())
	require.NoError(t, err)
	require.Nil(t, cached, "No session should survive a logout")
	require.Zero(t, backend.csrfFailureCount(), "Logout must pass the anti-forgery check")
}
