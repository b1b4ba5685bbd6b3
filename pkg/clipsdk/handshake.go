package clipsdk

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/clipforge/clipforge-go/pkg/idx"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultPollAttempts = 60
)

// DefaultAuthURL is the identity provider's authorization page.
const DefaultAuthURL = "https://app.plex.tv/auth"

// ProviderIdentity describes how this installation identifies itself to the
// identity provider when building authorization URLs.
type ProviderIdentity struct {
	// AuthURL overrides the provider authorization page. Empty means
	// DefaultAuthURL.
	AuthURL string

	// ClientID is the per-device identifier registered with the provider.
	ClientID string

	// Product is the product name shown on the provider's consent screen.
	Product string
}

// AuthorizationURL builds the provider URL the user visits to approve a PIN
// code. The provider reads the parameters from the fragment, not the query.
func (p ProviderIdentity) AuthorizationURL(code string) string {
	base := p.AuthURL
	if base == "" {
		base = DefaultAuthURL
	}

	v := url.Values{}
	v.Set("clientID", p.ClientID)
	v.Set("code", code)
	v.Set("context[device][product]", p.Product)

	return base + "#?" + v.Encode()
}

// Orchestrator drives the PIN handshake state machine: mint a PIN, direct
// the user to the provider, poll until the provider confirms, then exchange
// the provider token for a session and deposit it in the credential store.
type Orchestrator struct {
	client *Client
	creds  *CredentialStore
	state  StateStore

	// Provider identifies this installation on authorization URLs.
	Provider ProviderIdentity

	// PollInterval and PollAttempts bound the handshake poll loop.
	// The defaults (2s, 60 attempts) give a 120 second window.
	PollInterval time.Duration
	PollAttempts int

	// Remember requests a long-lived session at sign-in.
	Remember bool
}

// NewOrchestrator creates a handshake orchestrator with the default poll
// budget.
func NewOrchestrator(client *Client, creds *CredentialStore, state StateStore, provider ProviderIdentity) *Orchestrator {
	return &Orchestrator{
		client:       client,
		creds:        creds,
		state:        state,
		Provider:     provider,
		PollInterval: defaultPollInterval,
		PollAttempts: defaultPollAttempts,
	}
}

// StartHandshake runs one complete login attempt through the given surface.
// It fails with ErrProvider if PIN creation fails, ErrHandshakeTimeout when
// the poll budget is exhausted, ErrHandshakeCancelled when the user abandons
// the flow, and ErrHandshakePending when a redirect surface parked the
// handshake for a later Resume.
//
// Starting a new handshake implicitly abandons any prior pending one.
func (o *Orchestrator) StartHandshake(ctx context.Context, surface Surface) (*AuthSession, error) {
	if err := o.state.ClearHandshake(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear pending handshake: %w", err)
	}

	pin, err := o.client.CreatePin(ctx)
	if err != nil {
		return nil, errors.Join(ErrProvider, err)
	}

	hs := PendingHandshake{
		ID:        idx.New().String(),
		PinID:     pin.ID.String(),
		Code:      pin.Code,
		AuthURL:   o.Provider.AuthorizationURL(pin.Code),
		ExpiresAt: time.Now().Add(o.pollWindow()),
	}

	token, err := surface.Resolve(ctx, hs, o.pollFunc(hs.PinID, o.pollAttempts()))
	if err != nil {
		return nil, err
	}

	return o.redeem(ctx, token)
}

// Resume continues a handshake persisted by a redirect surface. It polls for
// whatever remains of the handshake window, then redeems the provider token
// exactly like StartHandshake.
func (o *Orchestrator) Resume(ctx context.Context) (*AuthSession, error) {
	hs, err := o.state.LoadHandshake(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending handshake: %w", err)
	}
	if hs == nil {
		return nil, ErrNoPendingHandshake
	}

	remaining := time.Until(hs.ExpiresAt)
	if remaining <= 0 {
		_ = o.state.ClearHandshake(ctx)
		return nil, ErrHandshakeTimeout
	}

	attempts := int(remaining / o.pollInterval())
	if attempts < 1 {
		attempts = 1
	}

	token, err := o.poll(ctx, hs.PinID, attempts)
	if err != nil {
		if errors.Is(err, ErrHandshakeTimeout) {
			_ = o.state.ClearHandshake(ctx)
		}
		return nil, err
	}

	return o.redeem(ctx, token)
}

// redeem exchanges a resolved provider token for a session, saves it, and
// clears the handshake. The credential store replaces any prior session.
func (o *Orchestrator) redeem(ctx context.Context, providerToken string) (*AuthSession, error) {
	resp, err := o.client.SignIn(ctx, providerToken, o.Remember)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange provider token: %w", err)
	}

	sess := sessionFromSignIn(resp, providerToken, o.Remember)
	if err := o.creds.Save(ctx, sess); err != nil {
		return nil, err
	}
	if err := o.state.ClearHandshake(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear redeemed handshake: %w", err)
	}

	return &sess, nil
}

// pollFunc packages the poll loop for a surface to drive.
func (o *Orchestrator) pollFunc(pinID string, attempts int) PollFunc {
	return func(ctx context.Context) (string, error) {
		return o.poll(ctx, pinID, attempts)
	}
}

// poll checks the PIN status on a fixed interval until the provider confirms
// the login, the attempt budget runs out, or ctx is cancelled. Poll errors
// are tolerated; the attempt budget bounds how long we keep trying.
func (o *Orchestrator) poll(ctx context.Context, pinID string, attempts int) (string, error) {
	ticker := time.NewTicker(o.pollInterval())
	defer ticker.Stop()

	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return "", ErrHandshakeCancelled
		case <-ticker.C:
		}

		status, err := o.client.GetPin(ctx, pinID)
		if err != nil {
			continue
		}
		if status.Authenticated && status.AuthToken != "" {
			return status.AuthToken, nil
		}
	}

	return "", ErrHandshakeTimeout
}

func (o *Orchestrator) pollInterval() time.Duration {
	if o.PollInterval <= 0 {
		return defaultPollInterval
	}
	return o.PollInterval
}

func (o *Orchestrator) pollAttempts() int {
	if o.PollAttempts <= 0 {
		return defaultPollAttempts
	}
	return o.PollAttempts
}

func (o *Orchestrator) pollWindow() time.Duration {
	return o.pollInterval() * time.Duration(o.pollAttempts())
}
