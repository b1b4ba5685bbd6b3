package clipsdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/clipforge/clipforge-go/pkg/cryptox"
	"github.com/clipforge/clipforge-go/pkg/jwtx"
	"github.com/clipforge/clipforge-go/pkg/slogx"
)

const (
	// defaultTokenLifetime is assumed when the backend reports no expiry
	// and the token carries no readable exp claim.
	defaultTokenLifetime = time.Hour

	// Cached tokens are kept for 5/6 of their issued lifetime, so a token
	// issued for an hour is served from cache for fifty minutes. The margin
	// keeps URLs built from a cached token usable for a while after they
	// leave our hands.
	cacheLifetimeNum = 5
	cacheLifetimeDen = 6

	// markerWindow is how long a resource counts as recently created.
	markerWindow = 2 * time.Minute

	cleanupInterval = 5 * time.Minute
)

type tokenKey struct {
	resourceType ResourceType
	resourceID   string
}

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// TokenCache caches scoped media access tokens per (resourceType, resourceID)
// and owns the single-retry policy for 401s on media fetches. Entries never
// outlive the process.
//
// A cache miss for a recently created resource can fail because the backend
// has not finished producing the media; such failures surface as ErrNotReady
// rather than an auth error. The marker is a time-window heuristic, not a
// backend-provided status, so it is an approximation.
type TokenCache struct {
	client *Client
	creds  *CredentialStore

	mu     sync.RWMutex
	tokens map[tokenKey]cachedToken
	recent map[string]time.Time

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewTokenCache creates a token cache and starts its background cleanup
// goroutine. Call Close when done to stop it.
func NewTokenCache(client *Client, creds *CredentialStore) *TokenCache {
	tc := &TokenCache{
		client:      client,
		creds:       creds,
		tokens:      make(map[tokenKey]cachedToken),
		recent:      make(map[string]time.Time),
		stopCleanup: make(chan struct{}),
	}

	go tc.cleanupLoop()

	return tc
}

// Close stops the background cleanup goroutine. Safe to call multiple times.
func (tc *TokenCache) Close() {
	tc.stopOnce.Do(func() { close(tc.stopCleanup) })
}

// Acquire returns a scoped token for the resource, serving from cache when
// the cached entry is still fresh. On a miss it mints a new token through
// the backend; if no session is available the call short-circuits with
// ErrAuth before any network traffic.
func (tc *TokenCache) Acquire(ctx context.Context, resourceType ResourceType, resourceID string) (string, error) {
	key := tokenKey{resourceType: resourceType, resourceID: resourceID}

	tc.mu.RLock()
	entry, ok := tc.tokens[key]
	tc.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.token, nil
	}

	sess, err := tc.creds.Get(ctx)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", fmt.Errorf("%w: no active session", ErrAuth)
	}

	resp, err := tc.client.MediaToken(ctx, sess.AccessToken, resourceType, resourceID)
	if err != nil {
		return "", tc.classify(resourceID, err)
	}

	slogx.FromContext(ctx).Debug("media_token_minted",
		"resource_type", resourceType,
		"resource_id", resourceID,
		"token_fp", cryptox.ShortFingerprint(resp.Token))

	tc.mu.Lock()
	tc.tokens[key] = cachedToken{
		token:     resp.Token,
		expiresAt: time.Now().Add(cacheTTL(resp)),
	}
	tc.mu.Unlock()

	return resp.Token, nil
}

// Evict drops the cached token for one resource.
func (tc *TokenCache) Evict(resourceType ResourceType, resourceID string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	delete(tc.tokens, tokenKey{resourceType: resourceType, resourceID: resourceID})
}

// MarkRecentlyCreated records that a resource was just created and may not
// be fully produced yet. Failures for it within the marker window surface as
// ErrNotReady instead of an auth or server error.
func (tc *TokenCache) MarkRecentlyCreated(resourceID string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.recent[resourceID] = time.Now().Add(markerWindow)
}

// MediaURL builds an authenticated URL for the resource using a cached or
// freshly minted scoped token.
func (tc *TokenCache) MediaURL(ctx context.Context, resourceType ResourceType, resourceID string, download bool) (string, error) {
	token, err := tc.Acquire(ctx, resourceType, resourceID)
	if err != nil {
		return "", err
	}
	return tc.client.MediaURL(resourceType, resourceID, token, download), nil
}

// Fetch retrieves a resource with a scoped token. A 401 on the fetch evicts
// the cached token and retries exactly once with a fresh one; a second
// failure surfaces as ErrAuth. The caller owns the response body.
func (tc *TokenCache) Fetch(ctx context.Context, resourceType ResourceType, resourceID string, download bool) (*http.Response, error) {
	token, err := tc.Acquire(ctx, resourceType, resourceID)
	if err != nil {
		return nil, err
	}

	resp, err := tc.client.FetchResource(ctx, resourceType, resourceID, token, download)
	if err != nil {
		return nil, tc.classify(resourceID, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drainAndClose(resp.Body)
		tc.Evict(resourceType, resourceID)

		token, err = tc.Acquire(ctx, resourceType, resourceID)
		if err != nil {
			return nil, tc.classify(resourceID, err)
		}
		resp, err = tc.client.FetchResource(ctx, resourceType, resourceID, token, download)
		if err != nil {
			return nil, tc.classify(resourceID, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, tc.classify(resourceID, parseErrorResponse(resp, body))
	}

	return resp, nil
}

// classify reinterprets a failure for a recently created resource as
// ErrNotReady. The marker wins over the underlying classification: a media
// stream 404s the same way whether transcoding is unfinished or access is
// denied, and for a fresh resource the former is the likely cause.
func (tc *TokenCache) classify(resourceID string, err error) error {
	if tc.recentlyCreated(resourceID) {
		return errors.Join(ErrNotReady, err)
	}
	return err
}

func (tc *TokenCache) recentlyCreated(resourceID string) bool {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	until, ok := tc.recent[resourceID]
	return ok && time.Now().Before(until)
}

// cacheTTL computes how long to serve a minted token from cache. Preference
// order: the backend's expires_in, the token's own exp claim, then the
// default lifetime; whichever wins is scaled down by the safety margin.
func cacheTTL(resp *MediaTokenResponse) time.Duration {
	lifetime := defaultTokenLifetime

	if resp.ExpiresIn > 0 {
		lifetime = time.Duration(resp.ExpiresIn) * time.Second
	} else if expiresAt, err := jwtx.Expiry(resp.Token); err == nil {
		if until := time.Until(expiresAt); until > 0 {
			lifetime = until
		}
	}

	return lifetime * cacheLifetimeNum / cacheLifetimeDen
}

// cleanupLoop periodically drops expired tokens and lapsed markers.
func (tc *TokenCache) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tc.cleanup()
		case <-tc.stopCleanup:
			return
		}
	}
}

func (tc *TokenCache) cleanup() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	now := time.Now()
	for key, entry := range tc.tokens {
		if !now.Before(entry.expiresAt) {
			delete(tc.tokens, key)
		}
	}
	for id, until := range tc.recent {
		if !now.Before(until) {
			delete(tc.recent, id)
		}
	}
}

// drainAndClose discards a response body so the connection can be reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
