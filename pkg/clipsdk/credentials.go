package clipsdk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clipforge/clipforge-go/pkg/cryptox"
	"github.com/clipforge/clipforge-go/pkg/jwtx"
	"github.com/clipforge/clipforge-go/pkg/slogx"
)

const (
	// refreshBuffer refreshes the access token slightly before its actual
	// expiry so in-flight requests do not race the deadline.
	refreshBuffer = 30 * time.Second

	// defaultSessionLifetime is assumed when the access token carries no
	// readable expiry claim.
	defaultSessionLifetime = time.Hour
)

// StateStore persists sessions and pending handshakes across process
// restarts. Load methods return nil (with a nil error) when nothing is
// stored; Clear methods are no-ops when nothing is stored.
type StateStore interface {
	LoadSession(ctx context.Context) (*AuthSession, error)
	SaveSession(ctx context.Context, s AuthSession) error
	ClearSession(ctx context.Context) error

	LoadHandshake(ctx context.Context) (*PendingHandshake, error)
	SaveHandshake(ctx context.Context, h PendingHandshake) error
	ClearHandshake(ctx context.Context) error
}

// CredentialStore owns the AuthSession lifecycle. Get transparently refreshes
// an expired session using the stored provider token, so callers only ever
// see a valid session or none at all.
//
// Concurrent Gets during an expired window serialize on the write lock: the
// first caller refreshes, the rest find the refreshed session on the double
// check and return it.
type CredentialStore struct {
	client *Client
	state  StateStore

	mu      sync.RWMutex
	session *AuthSession
	loaded  bool
}

// NewCredentialStore creates a credential store backed by the given state.
func NewCredentialStore(client *Client, state StateStore) *CredentialStore {
	return &CredentialStore{client: client, state: state}
}

// Get returns the current session, refreshing it first if the access token
// has expired and a provider token is available. It returns (nil, nil) when
// no session exists or the refresh failed; a non-nil error only signals a
// state-store fault.
func (cs *CredentialStore) Get(ctx context.Context) (*AuthSession, error) {
	cs.mu.RLock()
	if cs.loaded && sessionValid(cs.session) {
		s := *cs.session
		cs.mu.RUnlock()
		return &s, nil
	}
	cs.mu.RUnlock()

	cs.mu.Lock()
	defer cs.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have
	// loaded or refreshed)
	if cs.loaded && sessionValid(cs.session) {
		s := *cs.session
		return &s, nil
	}

	if !cs.loaded {
		sess, err := cs.state.LoadSession(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		cs.session = sess
		cs.loaded = true

		if sessionValid(cs.session) {
			s := *cs.session
			return &s, nil
		}
	}

	if cs.session == nil {
		return nil, nil
	}

	// The access token has expired. The provider token is the only path to
	// a new one without repeating the handshake.
	if cs.session.ProviderToken == "" {
		if err := cs.clearLocked(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}

	refreshed, err := cs.refreshLocked(ctx)
	if err != nil {
		slogx.FromContext(ctx).Warn("session_refresh_failed", "error", err)
		if clearErr := cs.clearLocked(ctx); clearErr != nil {
			return nil, clearErr
		}
		return nil, nil
	}

	s := *refreshed
	return &s, nil
}

// refreshLocked exchanges the provider token for a fresh access token and
// persists the result. Caller must hold the write lock.
func (cs *CredentialStore) refreshLocked(ctx context.Context) (*AuthSession, error) {
	resp, err := cs.client.SignIn(ctx, cs.session.ProviderToken, cs.session.Remember)
	if err != nil {
		return nil, err
	}

	sess := sessionFromSignIn(resp, cs.session.ProviderToken, cs.session.Remember)
	if err := cs.state.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed session: %w", err)
	}

	slogx.FromContext(ctx).Debug("session_refreshed",
		"token_fp", cryptox.ShortFingerprint(sess.AccessToken),
		"expires_at", sess.ExpiresAt)

	cs.session = &sess
	return &sess, nil
}

// Save replaces the current session. A session whose access token lacks the
// provider token it was derived from is rejected, since it could never be
// refreshed.
func (cs *CredentialStore) Save(ctx context.Context, sess AuthSession) error {
	if sess.AccessToken != "" && sess.ProviderToken == "" {
		return fmt.Errorf("session has an access token but no provider token")
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if err := cs.state.SaveSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	cs.session = &sess
	cs.loaded = true
	return nil
}

// Clear removes the session from memory and persistent state.
func (cs *CredentialStore) Clear(ctx context.Context) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.clearLocked(ctx)
}

func (cs *CredentialStore) clearLocked(ctx context.Context) error {
	if err := cs.state.ClearSession(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	cs.session = nil
	cs.loaded = true
	return nil
}

// IsValid reports whether a usable session exists, refreshing if needed.
func (cs *CredentialStore) IsValid(ctx context.Context) bool {
	sess, err := cs.Get(ctx)
	return err == nil && sess != nil
}

// sessionValid reports whether the session's access token is still usable,
// applying the refresh buffer.
func sessionValid(s *AuthSession) bool {
	return s != nil && time.Now().Add(refreshBuffer).Before(s.ExpiresAt)
}

// sessionFromSignIn builds an AuthSession from a sign-in response. The
// expiry comes from the access token's own claim when readable.
func sessionFromSignIn(resp *SignInResponse, providerToken string, remember bool) AuthSession {
	expiresAt, err := jwtx.Expiry(resp.AccessToken)
	if err != nil {
		expiresAt = time.Now().Add(defaultSessionLifetime)
	}

	return AuthSession{
		AccessToken:   resp.AccessToken,
		ProviderToken: providerToken,
		ExpiresAt:     expiresAt,
		User:          resp.User,
		Remember:      remember,
	}
}

// ============================================================================
// In-Memory StateStore
// ============================================================================

// memoryState is a process-local StateStore. It backs ephemeral sessions and
// tests; durable deployments use the sqlite-backed store instead.
type memoryState struct {
	mu        sync.Mutex
	session   *AuthSession
	handshake *PendingHandshake
}

// NewMemoryState returns a StateStore that keeps everything in memory.
func NewMemoryState() StateStore {
	return &memoryState{}
}

func (m *memoryState) LoadSession(ctx context.Context) (*AuthSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	s := *m.session
	return &s, nil
}

func (m *memoryState) SaveSession(ctx context.Context, s AuthSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &s
	return nil
}

func (m *memoryState) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func (m *memoryState) LoadHandshake(ctx context.Context) (*PendingHandshake, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handshake == nil {
		return nil, nil
	}
	h := *m.handshake
	return &h, nil
}

func (m *memoryState) SaveHandshake(ctx context.Context, h PendingHandshake) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handshake = &h
	return nil
}

func (m *memoryState) ClearHandshake(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handshake = nil
	return nil
}
