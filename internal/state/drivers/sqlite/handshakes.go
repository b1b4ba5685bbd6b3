package sqlite

import (
	"context"
	"time"

	"github.com/clipforge/clipforge-go/internal/state"
)

type handshakesRepo struct {
	db dbtx
}

func (r *handshakesRepo) Get(ctx context.Context) (state.Handshake, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, pin_id, code, auth_url, expires_at, created_at
		FROM handshakes
		WHERE slot = 1`)

	var h state.Handshake
	if err := row.Scan(&h.ID, &h.PinID, &h.Code, &h.AuthURL, &h.ExpiresAt, &h.CreatedAt); err != nil {
		return state.Handshake{}, mapNotFound(err)
	}
	return h, nil
}

func (r *handshakesRepo) Put(ctx context.Context, h state.Handshake) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO handshakes (slot, id, pin_id, code, auth_url, expires_at, created_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET
			id = excluded.id,
			pin_id = excluded.pin_id,
			code = excluded.code,
			auth_url = excluded.auth_url,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		h.ID, h.PinID, h.Code, h.AuthURL, h.ExpiresAt.UTC(), time.Now().UTC())
	return err
}

func (r *handshakesRepo) Delete(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM handshakes WHERE slot = 1`)
	return err
}

func (r *handshakesRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM handshakes WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
