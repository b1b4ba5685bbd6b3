/*
Package clipsdk provides a client SDK for the ClipForge backend.

# Overview

The clipsdk package implements the client side of ClipForge's Plex-backed
authentication: the PIN handshake that obtains a provider token, the session
exchange that turns it into a backend access token, scoped media token
acquisition, and authenticated media fetches. It keeps the session fresh
transparently and mirrors the backend's anti-forgery cookie on every
mutating request.

# Client vs the Higher-Level Types

The package is organized around one low-level type and three stateful ones:

  - Client: One method per backend endpoint. Stateless apart from its
    cookie jar; callers pass tokens explicitly.
  - CredentialStore: Owns the active session and refreshes it transparently.
  - Orchestrator: Drives a PIN handshake from creation to redeemed session.
  - TokenCache: Caches scoped media tokens and owns the 401 retry policy.

Create a Client to talk to a backend, then layer the stateful types on top:

	client := clipsdk.NewClient("https://clips.example.com/api/v1")
	creds := clipsdk.NewCredentialStore(client, state)
	orch := clipsdk.NewOrchestrator(client, creds, state, clipsdk.ProviderIdentity{
		ClientID: deviceID,
		Product:  "ClipForge",
	})
	tokens := clipsdk.NewTokenCache(client, creds)
	defer tokens.Close()

The state argument persists sessions and pending handshakes between
processes. NewMemoryState provides an in-memory implementation for tests
and throwaway tooling. The ProviderIdentity names this installation on the
authorization URLs shown to the user.

# The Handshake Flow

Signing in is a three-step dance with the media provider: create a PIN,
send the user to the provider's auth page to approve it, and poll the PIN
until approval produces a provider token. StartHandshake runs all three and
exchanges the provider token for a backend session:

	surface := clipsdk.NewInteractiveSurface()
	surface.Announce = func(url string) {
		fmt.Println("Authorize at:", url)
	}
	session, err := orch.StartHandshake(ctx, surface)

The Surface decides what happens between PIN creation and approval. An
InteractiveSurface opens the user's browser and polls inline; a
RedirectSurface persists the pending handshake and returns
ErrHandshakePending so a later invocation can pick it up:

	_, err := orch.StartHandshake(ctx, clipsdk.NewRedirectSurface(state))
	if errors.Is(err, clipsdk.ErrHandshakePending) {
		// Tell the user to authorize, then later:
		session, err := orch.Resume(ctx)
	}

Polling runs every 2 seconds for up to 60 attempts. An unapproved PIN after
the window closes surfaces as ErrHandshakeTimeout; a cancelled surface or
context surfaces as ErrHandshakeCancelled.

# Automatic Session Refresh

CredentialStore.Get returns the active session, refreshing it first when it
is within 30 seconds of expiry. Refresh re-exchanges the stored provider
token for a new access token, so callers never handle expiry themselves:

	session, err := creds.Get(ctx)
	if session == nil {
		// Signed out, or the refresh failed and cleared the session.
	}

A failed refresh clears the stored session rather than returning an error:
the provider token was revoked or the backend rejected it, and the only
remedy is a fresh handshake.

# Media Tokens

Media endpoints take short-lived scoped tokens rather than the session
token. TokenCache mints them on demand and serves repeats from cache for
5/6 of the token lifetime:

	resp, err := tokens.Fetch(ctx, clipsdk.ResourceVideo, clipID, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

A 401 on the fetch evicts the cached token and retries exactly once with a
fresh one. Fetches for a resource marked with MarkRecentlyCreated surface
failures as ErrNotReady for two minutes, since a clip that just finished
recording may still be producing its media.

# Anti-Forgery

The backend issues a csrf_token cookie and expects it echoed in the
X-CSRF-Token header on mutating requests. The Client handles this
invisibly: the cookie jar is read fresh before every request, and rotated
header values announced by the backend are pushed back into the jar. The
PIN and signin endpoints are exempt, matching the backend.

# Error Handling

Failures map onto sentinel errors that survive wrapping:

  - ErrAuth: No session, or the backend rejected our credentials.
  - ErrProvider: The media provider's PIN service failed.
  - ErrHandshakeTimeout, ErrHandshakeCancelled, ErrHandshakePending,
    ErrNoPendingHandshake: Handshake lifecycle outcomes.
  - ErrNotReady: A recently created resource is not fully produced yet.
  - ErrNetwork: The request never produced an HTTP response.
  - ErrServer: The backend answered with an unexpected status.

Backend error bodies decode into *APIError, which wraps the matching
sentinel:

	_, err := tokens.Fetch(ctx, clipsdk.ResourceVideo, clipID, false)
	var apiErr *clipsdk.APIError
	if errors.As(err, &apiErr) {
		fmt.Println(apiErr.StatusCode, apiErr.Message)
	}
	if errors.Is(err, clipsdk.ErrAuth) {
		// Prompt for a new sign-in.
	}

# Thread Safety

CredentialStore and TokenCache are safe for concurrent use; both guard
their state with read/write locks. Concurrent session fetches share a
single refresh. Concurrent mints for the same uncached resource may each
mint a token; the duplicates are independently valid and the cache keeps
the last one. Client is safe for concurrent use as long as the underlying
http.Client is.

# Examples

Sign in interactively and fetch a clip:

	client := clipsdk.NewClient("https://clips.example.com/api/v1")
	state := clipsdk.NewMemoryState()
	creds := clipsdk.NewCredentialStore(client, state)
	orch := clipsdk.NewOrchestrator(client, creds, state, clipsdk.ProviderIdentity{
		ClientID: deviceID,
		Product:  "ClipForge",
	})

	surface := clipsdk.NewInteractiveSurface()
	surface.Announce = func(url string) {
		fmt.Println("Authorize at:", url)
	}
	session, err := orch.StartHandshake(context.Background(), surface)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Signed in as %s\n", session.User.Username)

	tokens := clipsdk.NewTokenCache(client, creds)
	defer tokens.Close()

	resp, err := tokens.Fetch(context.Background(), clipsdk.ResourceVideo, clipID, false)
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()
	io.Copy(file, resp.Body)
*/
package clipsdk
