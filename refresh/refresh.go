// Package refresh implements the durable store of outstanding refresh tokens.
//
// # Rotation protocol
//
// Each successful refresh consumes the presented token and mints exactly one
// replacement. Rotate is a single store-native operation (a Redis Lua script,
// or one SQL statement on Postgres), so two rotations racing on the same old
// token resolve to one winner; the loser observes the old row as already gone.
// This is the primary replay-detection mechanism.
//
// # Architecture boundaries
//
// This package owns persistence and atomicity for refresh-token records. It
// does NOT sign tokens, decide rotation policy, or resolve accounts — those
// responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Return an expired row as valid (active or lazy deletion both qualify).
//   - Overwrite an existing token value silently; collision is a hard error.
//   - Import authcore or any sibling package.
package refresh

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned for tokens that never existed, were consumed by
	// rotation or revocation, or are past expiry. Callers must not be able to
	// tell these apart.
	ErrNotFound = errors.New("refresh token not found")
	// ErrDuplicateToken is returned by Create when the token value is already
	// present.
	ErrDuplicateToken = errors.New("refresh token value already exists")
	// ErrStoreUnavailable wraps backend transport failures.
	ErrStoreUnavailable = errors.New("refresh store unavailable")
)

// Record is one outstanding refresh token. A user may own many concurrent
// records, one per active session. Records are never mutated: rotation
// replaces a row rather than editing it.
type Record struct {
	Token     string
	UserID    string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store is the durable refresh-token contract. Implementations must make
// Rotate atomic at the backing store, not merely under an in-process lock,
// because multiple service instances may share one store.
type Store interface {
	// Create inserts a new record. The token value must be unique;
	// ErrDuplicateToken on collision.
	Create(ctx context.Context, rec Record) error

	// FindValid returns the record for a live token, or ErrNotFound for
	// unknown and expired tokens alike.
	FindValid(ctx context.Context, tokenValue string) (*Record, error)

	// Rotate atomically deletes the old record and inserts next, returning
	// the consumed record. ErrNotFound when the old token is absent, already
	// consumed, or expired — the replay signal.
	Rotate(ctx context.Context, oldTokenValue string, next Record) (*Record, error)

	// RevokeOne deletes a single record, returning the number removed (0 or
	// 1). Idempotent.
	RevokeOne(ctx context.Context, tokenValue string) (int, error)

	// RevokeAllForUser deletes every record owned by the user, returning the
	// number removed. Idempotent.
	RevokeAllForUser(ctx context.Context, userID string) (int, error)

	// PurgeExpired removes rows past expiry. Driven by a periodic sweep
	// decoupled from request traffic; must be idempotent under overlapping
	// runs.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
