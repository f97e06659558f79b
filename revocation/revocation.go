// Package revocation implements the token revocation list: a deny-list that
// invalidates still-unexpired access tokens ahead of their natural expiry.
//
// Entries are keyed by a fingerprint of the token string, never the token
// itself, so a leaked revocation store does not leak usable credentials.
// Every entry carries the token's own expiry; once that instant passes the
// entry is dead weight and the sweep (or the backend's native TTL) reclaims
// it, which keeps the list bounded by the access-token lifetime.
//
// # Architecture boundaries
//
// This package answers exactly one question: "was this token explicitly
// revoked?". Signature and expiry checks happen in the token codec before the
// list is ever consulted.
//
// # What this package must NOT do
//
//   - Parse or validate tokens.
//   - Store raw token strings.
//   - Import authcore or any sibling package.
package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrBackendUnavailable wraps backend transport failures.
var ErrBackendUnavailable = errors.New("revocation backend unavailable")

// Backend is the storage contract behind [List]. Keys are opaque
// fingerprints; expiresAt bounds how long the entry must be retained.
type Backend interface {
	// Put records the key until expiresAt. Re-adding an existing key is a
	// no-op and must not shorten its retention.
	Put(ctx context.Context, key string, expiresAt time.Time) error

	// Has reports whether the key is present and not yet past expiresAt.
	Has(ctx context.Context, key string) (bool, error)

	// Sweep drops entries past expiry, returning the number removed.
	// Backends with native TTL may implement this as a no-op.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// List is the revocation front: it fingerprints token strings and delegates
// storage to a [Backend]. Safe for concurrent use when the backend is.
type List struct {
	backend Backend
}

// NewList creates a [List] on the given backend.
func NewList(backend Backend) *List {
	return &List{backend: backend}
}

// Fingerprint derives the storage key for a token string.
func Fingerprint(tokenValue string) string {
	sum := sha256.Sum256([]byte(tokenValue))
	return hex.EncodeToString(sum[:])
}

// Add revokes the token until its expiry. Tokens already past expiry are
// skipped: they reject on the expiry check alone, and storing them would only
// grow the list.
func (l *List) Add(ctx context.Context, tokenValue string, expiresAt time.Time) error {
	if !expiresAt.After(time.Now()) {
		return nil
	}
	return l.backend.Put(ctx, Fingerprint(tokenValue), expiresAt)
}

// IsRevoked reports whether the token was explicitly revoked.
func (l *List) IsRevoked(ctx context.Context, tokenValue string) (bool, error) {
	return l.backend.Has(ctx, Fingerprint(tokenValue))
}

// Sweep reclaims entries whose tokens have expired on their own.
func (l *List) Sweep(ctx context.Context, now time.Time) (int, error) {
	return l.backend.Sweep(ctx, now)
}
