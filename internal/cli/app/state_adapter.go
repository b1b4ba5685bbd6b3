package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/clipforge/clipforge-go/internal/state"
	"github.com/clipforge/clipforge-go/pkg/clipsdk"
	"github.com/clipforge/clipforge-go/pkg/idx"
)

// stateAdapter exposes the local state database as the SDK's StateStore.
// The SDK works with single current-session/current-handshake semantics,
// which maps directly onto the store's single-slot repositories.
type stateAdapter struct {
	store state.Store
}

func newStateAdapter(store state.Store) *stateAdapter {
	return &stateAdapter{store: store}
}

func (a *stateAdapter) LoadSession(ctx context.Context) (*clipsdk.AuthSession, error) {
	s, err := a.store.Sessions().Get(ctx)
	if errors.Is(err, state.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	return &clipsdk.AuthSession{
		AccessToken:   s.AccessToken,
		ProviderToken: s.ProviderToken,
		ExpiresAt:     s.ExpiresAt,
		User: clipsdk.User{
			ID:       s.UserID,
			Username: s.Username,
			Email:    s.Email,
		},
		Remember: s.Remember,
	}, nil
}

// SaveSession persists a session and retires any pending handshake in the
// same transaction: a login that produced a session has, by definition, no
// handshake left to resume.
func (a *stateAdapter) SaveSession(ctx context.Context, sess clipsdk.AuthSession) error {
	return a.store.WithTx(ctx, func(tx state.Tx) error {
		record := state.Session{
			ID:            idx.New().String(),
			ProviderToken: sess.ProviderToken,
			AccessToken:   sess.AccessToken,
			UserID:        sess.User.ID,
			Username:      sess.User.Username,
			Email:         sess.User.Email,
			Remember:      sess.Remember,
			ExpiresAt:     sess.ExpiresAt,
		}
		if err := tx.Sessions().Put(ctx, record); err != nil {
			return err
		}
		return tx.Handshakes().Delete(ctx)
	})
}

func (a *stateAdapter) ClearSession(ctx context.Context) error {
	return a.store.Sessions().Delete(ctx)
}

func (a *stateAdapter) LoadHandshake(ctx context.Context) (*clipsdk.PendingHandshake, error) {
	h, err := a.store.Handshakes().Get(ctx)
	if errors.Is(err, state.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load handshake: %w", err)
	}

	return &clipsdk.PendingHandshake{
		ID:        h.ID,
		PinID:     h.PinID,
		Code:      h.Code,
		AuthURL:   h.AuthURL,
		ExpiresAt: h.ExpiresAt,
	}, nil
}

func (a *stateAdapter) SaveHandshake(ctx context.Context, hs clipsdk.PendingHandshake) error {
	return a.store.Handshakes().Put(ctx, state.Handshake{
		ID:        hs.ID,
		PinID:     hs.PinID,
		Code:      hs.Code,
		AuthURL:   hs.AuthURL,
		ExpiresAt: hs.ExpiresAt,
	})
}

func (a *stateAdapter) ClearHandshake(ctx context.Context) error {
	return a.store.Handshakes().Delete(ctx)
}
