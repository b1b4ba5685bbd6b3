package sqlite

import (
	"context"
	"time"

	"github.com/clipforge/clipforge-go/internal/state"
)

type settingsRepo struct {
	db dbtx
}

func (r *settingsRepo) Get(ctx context.Context, key string) (state.Setting, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT key, value, updated_at
		FROM settings
		WHERE key = ?`, key)

	var s state.Setting
	if err := row.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
		return state.Setting{}, mapNotFound(err)
	}
	return s, nil
}

func (r *settingsRepo) Put(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	return err
}

func (r *settingsRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}
