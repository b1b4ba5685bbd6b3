package clip_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge-go/internal/cli/app"
	"github.com/clipforge/clipforge-go/pkg/clipsdk"
)

/*
 * Common constants and helper functions for client end-to-end tests.
 * This includes the scripted ClipForge backend, application setup, and
 * assertions.
 *
 * The backend fake enforces the same rules a real deployment does: bearer
 * tokens on authenticated endpoints, the double-submit anti-forgery check on
 * mutating non-exempt endpoints, and scoped media tokens on storage paths.
 * Every flow test therefore exercises the full client stack end to end,
 * including the sqlite state database and the sealed session payload.
 */

const (
	e2eProviderToken = "ptk_e2e_0001"
	e2eUserID        = "plex-user-e2e"
	e2eUsername      = "clipper"
	e2eEmail         = "clipper@example.com"

	e2ePayload = "e2e-clip-payload-bytes"
)

// mediaGrant records what a minted media token is scoped to.
type mediaGrant struct {
	resourceType string
	resourceID   string
}

// clipforgeBackend is a scripted stand-in for the ClipForge server. It
// tracks interaction counts so tests can assert not just outcomes but how
// the client got there (poll counts, transparent re-signins, token remints).
type clipforgeBackend struct {
	t *testing.T

	mu sync.Mutex

	// Handshake behavior
	approveAfter int // polls before the PIN resolves
	pinCounter   int
	polls        map[string]int

	// Session behavior
	sessionTTL      time.Duration // access token lifetime as encoded in the JWT
	signins         int
	logouts         int
	issuedTokens    map[string]bool // access tokens this backend has minted
	providerRevoked bool            // reject sign-ins, simulating provider-side revocation

	// Media behavior
	tokenCounter int
	grants       map[string]mediaGrant // media token -> scope
	revoked      map[string]bool
	fetches      int

	// Anti-forgery behavior
	csrfValue    string
	rotateOnMint bool // rotate the anti-forgery value on each media-token mint
	csrfFailures int
}

// newBackend creates a backend fake with production-shaped defaults: PINs
// approve on the third poll, sessions outlive the test, anti-forgery is
// enforced.
func newBackend(t *testing.T) *clipforgeBackend {
	t.Helper()
	return &clipforgeBackend{
		t:            t,
		approveAfter: 3,
		polls:        make(map[string]int),
		sessionTTL:   time.Hour,
		issuedTokens: make(map[string]bool),
		grants:       make(map[string]mediaGrant),
		revoked:      make(map[string]bool),
		csrfValue:    "csrf_v1",
	}
}

// start serves the backend over httptest and returns its base URL.
func (b *clipforgeBackend) start(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(b)
	t.Cleanup(server.Close)
	return server.URL
}

func (b *clipforgeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The backend refreshes the anti-forgery cookie on every response,
	// like session middleware would.
	b.mu.Lock()
	http.SetCookie(w, &http.Cookie{Name: "csrf_token", Value: b.csrfValue, Path: "/"})
	b.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/pin":
		b.handleCreatePin(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/auth/pin/"):
		b.handlePollPin(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/auth/signin":
		b.handleSignIn(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/auth/me":
		b.handleMe(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/auth/logout":
		b.handleLogout(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/auth/media-token":
		b.handleMediaToken(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/storage/"):
		b.handleStorage(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
	}
}

func (b *clipforgeBackend) handleCreatePin(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.pinCounter++
	id := 1000 + b.pinCounter
	b.mu.Unlock()

	// The id is deliberately a JSON number, matching the provider's wire
	// format.
	fmt.Fprintf(w, `{"id": %d, "code": "HJKL"}`, id)
}

func (b *clipforgeBackend) handlePollPin(w http.ResponseWriter, r *http.Request) {
	pinID := strings.TrimPrefix(r.URL.Path, "/auth/pin/")

	b.mu.Lock()
	b.polls[pinID]++
	resolved := b.polls[pinID] >= b.approveAfter
	b.mu.Unlock()

	if !resolved {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"auth_token":    e2eProviderToken,
	})
}

func (b *clipforgeBackend) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token      string `json:"token"`
		RememberMe bool   `json:"remember_me"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	b.mu.Lock()
	revoked := b.providerRevoked
	b.mu.Unlock()

	if req.Token != e2eProviderToken || revoked {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid Plex token"})
		return
	}

	b.mu.Lock()
	b.signins++
	token := b.mintAccessTokenLocked()
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"user": map[string]string{
			"user_id":  e2eUserID,
			"username": e2eUsername,
			"email":    e2eEmail,
		},
	})
}

func (b *clipforgeBackend) handleMe(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]string{
			"user_id":  e2eUserID,
			"username": e2eUsername,
			"email":    e2eEmail,
		},
	})
}

func (b *clipforgeBackend) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(w, r) || !b.antiForgeryValid(w, r) {
		return
	}

	b.mu.Lock()
	b.logouts++
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (b *clipforgeBackend) handleMediaToken(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(w, r) || !b.antiForgeryValid(w, r) {
		return
	}
	require.NoError(b.t, r.ParseForm())
	resourceID := r.PostForm.Get("resource_id")
	resourceType := r.PostForm.Get("resource_type")
	require.NotEmpty(b.t, resourceID, "media-token request should carry resource_id")
	require.NotEmpty(b.t, resourceType, "media-token request should carry resource_type")

	b.mu.Lock()
	b.tokenCounter++
	token := fmt.Sprintf("mtok_%d", b.tokenCounter)
	b.grants[token] = mediaGrant{resourceType: resourceType, resourceID: resourceID}
	if b.rotateOnMint {
		b.csrfValue = fmt.Sprintf("csrf_v%d", b.tokenCounter+1)
		w.Header().Set("X-CSRF-Token", b.csrfValue)
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"token":         token,
		"expires_in":    3600,
		"resource_id":   resourceID,
		"resource_type": resourceType,
	})
}

func (b *clipforgeBackend) handleStorage(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/storage/"), "/")
	if len(parts) != 2 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
		return
	}
	token := r.URL.Query().Get("token")

	b.mu.Lock()
	b.fetches++
	grant, known := b.grants[token]
	revoked := b.revoked[token]
	b.mu.Unlock()

	if !known || revoked {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid media token"})
		return
	}
	if grant.resourceType != parts[0] || grant.resourceID != parts[1] {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Token not valid for this resource"})
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write([]byte(e2ePayload))
}

// mintAccessTokenLocked creates a signed JWT carrying the session expiry the
// client reads back out. Caller must hold the mutex.
func (b *clipforgeBackend) mintAccessTokenLocked() string {
	claims := jwt.MapClaims{
		"sub": e2eUserID,
		"exp": time.Now().Add(b.sessionTTL).Unix(),
		"iat": time.Now().Unix(),
		"jti": strconv.Itoa(b.signins),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("e2e-key"))
	require.NoError(b.t, err)

	b.issuedTokens[token] = true
	return token
}

// authorized enforces the bearer check and answers 401 on failure.
func (b *clipforgeBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	b.mu.Lock()
	ok := b.issuedTokens[token]
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid or expired session"})
		return false
	}
	return true
}

// antiForgeryValid enforces the double-submit check: the request must echo
// the anti-forgery cookie into the header. Answers 403 on failure.
func (b *clipforgeBackend) antiForgeryValid(w http.ResponseWriter, r *http.Request) bool {
	cookie, err := r.Cookie("csrf_token")
	header := r.Header.Get("X-CSRF-Token")

	b.mu.Lock()
	valid := err == nil && header != "" && header == cookie.Value && header == b.csrfValue
	if !valid {
		b.csrfFailures++
	}
	b.mu.Unlock()

	if !valid {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":   "csrf_validation_failed",
			"message": "CSRF token missing or invalid",
		})
		return false
	}
	return true
}

func (b *clipforgeBackend) pollCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.polls {
		total += n
	}
	return total
}

func (b *clipforgeBackend) signinCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.signins
}

func (b *clipforgeBackend) mintCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokenCounter
}

func (b *clipforgeBackend) fetchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches
}

func (b *clipforgeBackend) csrfFailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.csrfFailures
}

// revokeAllMediaTokens invalidates every minted media token, forcing the
// client through its remint path on the next fetch.
func (b *clipforgeBackend) revokeAllMediaTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for token := range b.grants {
		b.revoked[token] = true
	}
}

// setSessionTTL changes the lifetime encoded into access tokens minted from
// now on. Already-issued tokens keep their original expiry.
func (b *clipforgeBackend) setSessionTTL(ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionTTL = ttl
}

// revokeProviderToken makes every subsequent sign-in fail, as if the user
// removed the device at the identity provider.
func (b *clipforgeBackend) revokeProviderToken() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providerRevoked = true
}

// testConfig builds an application config pointing at the backend fake with
// a throwaway state directory. Poll pacing is compressed and the client-side
// rate limits are raised so flow tests run in milliseconds; production
// defaults would otherwise dominate the test runtime.
func testConfig(backendURL, stateDir string) app.Config {
	return app.Config{
		ServerURL:      backendURL,
		AuthURL:        backendURL + "/provider/authorize",
		Product:        "ClipForge E2E",
		StateDir:       stateDir,
		DatabaseFile:   "clipctl-e2e.db",
		Env:            "test",
		LogLevel:       "error",
		LogFormat:      "text",
		PollInterval:   5 * time.Millisecond,
		PollAttempts:   400,
		RequestTimeout: 10 * time.Second,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}
}

// newTestApp builds a full application over the backend fake. Close runs via
// t.Cleanup; tests that simulate a restart build their instances with
// app.New directly so they control the lifecycle.
func newTestApp(t *testing.T, backendURL string) *app.Application {
	t.Helper()

	application, err := app.New(testConfig(backendURL, t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, application.Close())
	})
	return application
}

// quietSurface returns an interactive surface that never launches a real
// browser and logs the authorization URL instead.
func quietSurface(t *testing.T) *clipsdk.InteractiveSurface {
	t.Helper()

	surface := clipsdk.NewInteractiveSurface()
	surface.OpenBrowser = func(string) error { return errors.New("no browser in tests") }
	surface.Announce = func(url string) { t.Logf("authorize at: %s", url) }
	return surface
}

// performLogin drives the interactive handshake to completion and returns
// the established session.
func performLogin(t *testing.T, application *app.Application) *clipsdk.AuthSession {
	t.Helper()

	session, err := application.Orch.StartHandshake(t.Context(), quietSurface(t))
	require.NoError(t, err, "handshake should resolve")
	require.NotNil(t, session)
	return session
}

// assertSessionUser verifies a session belongs to the backend's test user.
func assertSessionUser(t *testing.T, session *clipsdk.AuthSession) {
	t.Helper()
	require.NotNil(t, session)
	require.NotEmpty(t, session.AccessToken, "Access token should not be empty")
	require.Equal(t, e2eProviderToken, session.ProviderToken, "Provider token should be preserved")
	require.Equal(t, e2eUserID, session.User.ID)
	require.Equal(t, e2eUsername, session.User.Username)
	require.Equal(t, e2eEmail, session.User.Email)
}

// newBareHTTPGet issues a GET with a fresh client carrying no cookies and no
// headers, mimicking a player or download tool handed nothing but a URL.
func newBareHTTPGet(t *testing.T, rawURL string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	return (&http.Client{}).Do(req)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
