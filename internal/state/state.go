package state

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("state: not found")

// Session is the persisted login state for this device. The CLI holds at most
// one session at a time, so a save replaces whatever was there before.
type Session struct {
	ID            string
	ProviderToken string
	AccessToken   string
	UserID        string
	Username      string
	Email         string
	Remember      bool
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Handshake is a PIN exchange that was started but not yet redeemed. It is
// persisted so a redirect-style login can be resumed after the process exits.
type Handshake struct {
	ID        string
	PinID     string
	Code      string
	AuthURL   string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Setting is a device-local key/value record (e.g. the generated device id).
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Store is the root data access interface for local client state. Concrete
// drivers (sqlite) implement this. It exposes sub-repositories to keep
// concerns tidy and testable, and to actively stop callers from accidently
// nesting transactions.
type Store interface {
	Sessions() Sessions
	Handshakes() Handshakes
	Settings() Settings

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., saving a
	// session and clearing its handshake together).
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Sessions interface {
	// Get returns the current session, or ErrNotFound when logged out.
	Get(ctx context.Context) (Session, error)

	// Put replaces the current session. CreatedAt is preserved when a
	// session already exists; UpdatedAt is bumped on every write.
	Put(ctx context.Context, s Session) error

	// Delete removes the current session. Deleting an absent session is
	// not an error.
	Delete(ctx context.Context) error
}

type Handshakes interface {
	// Get returns the pending handshake, or ErrNotFound when none is pending.
	Get(ctx context.Context) (Handshake, error)

	// Put replaces the pending handshake.
	Put(ctx context.Context, h Handshake) error

	// Delete removes the pending handshake. Deleting when none is pending
	// is not an error.
	Delete(ctx context.Context) error

	// DeleteExpired is housekeeping for handshakes whose PIN already lapsed.
	DeleteExpired(ctx context.Context) error
}

type Settings interface {
	// Get returns a setting by key.
	Get(ctx context.Context, key string) (Setting, error)

	// Put inserts or updates a setting.
	Put(ctx context.Context, key, value string) error

	// Delete removes a setting by key.
	Delete(ctx context.Context, key string) error
}
