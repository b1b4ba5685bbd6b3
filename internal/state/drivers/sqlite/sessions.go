package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clipforge/clipforge-go/internal/state"
	"github.com/clipforge/clipforge-go/pkg/cryptox"
)

// sessionPayload is the sealed portion of a session row. Token material never
// touches the database in the clear.
type sessionPayload struct {
	ProviderToken string `json:"provider_token"`
	AccessToken   string `json:"access_token"`
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Remember      bool   `json:"remember"`
}

type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) Get(ctx context.Context) (state.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, payload, expires_at, created_at, updated_at
		FROM sessions
		WHERE slot = 1`)

	var (
		s      state.Session
		sealed []byte
	)
	if err := row.Scan(&s.ID, &sealed, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return state.Session{}, mapNotFound(err)
	}

	plain, err := cryptox.Open(sealed)
	if err != nil {
		// A payload sealed under a lost or rotated key cannot be read
		// back. Report it as absent so the caller falls through to a
		// fresh login instead of erroring on every invocation.
		return state.Session{}, state.ErrNotFound
	}

	var p sessionPayload
	if err := json.Unmarshal(plain, &p); err != nil {
		return state.Session{}, fmt.Errorf("failed to decode session payload: %w", err)
	}

	s.ProviderToken = p.ProviderToken
	s.AccessToken = p.AccessToken
	s.UserID = p.UserID
	s.Username = p.Username
	s.Email = p.Email
	s.Remember = p.Remember
	return s, nil
}

func (r *sessionsRepo) Put(ctx context.Context, s state.Session) error {
	plain, err := json.Marshal(sessionPayload{
		ProviderToken: s.ProviderToken,
		AccessToken:   s.AccessToken,
		UserID:        s.UserID,
		Username:      s.Username,
		Email:         s.Email,
		Remember:      s.Remember,
	})
	if err != nil {
		return fmt.Errorf("failed to encode session payload: %w", err)
	}

	sealed, err := cryptox.Seal(plain)
	if err != nil {
		return fmt.Errorf("failed to seal session: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (slot, id, payload, expires_at, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET
			id = excluded.id,
			payload = excluded.payload,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		s.ID, sealed, s.ExpiresAt.UTC(), now, now)
	return err
}

func (r *sessionsRepo) Delete(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE slot = 1`)
	return err
}
