// Package lockout implements the failed-attempt tracker that throttles
// credential guessing per account identifier.
//
// The counter accumulates consecutive failures; reaching the configured
// threshold locks the identifier for a fixed duration. Locks release lazily:
// the next Check after the deadline observes the expired lock, clears the
// state, and lets the attempt through. A successful authentication clears
// the counter entirely, so occasional typos never accumulate toward a lock.
//
// Tracking keys on the presented identifier whether or not an account exists,
// so a probe against unknown emails is throttled exactly like one against
// real accounts.
//
// # Architecture boundaries
//
// This package decides "may this identifier attempt to authenticate right
// now?". It never verifies credentials and never learns whether the account
// exists.
//
// # What this package must NOT do
//
//   - Distinguish unknown identifiers from known ones in behavior or errors.
//   - Import authcore or any sibling package.
package lockout

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLocked is returned by Check while the identifier's lock is active.
	ErrLocked = errors.New("account locked")
	// ErrUnavailable wraps backend transport failures.
	ErrUnavailable = errors.New("lockout tracker unavailable")
)

// State is a point-in-time view of an identifier's tracking record, for
// operator inspection and tests.
type State struct {
	Attempts    int
	Locked      bool
	LockedUntil time.Time
	LastFailure time.Time
}

// Policy configures the tracker. Threshold is the failure count that locks;
// LockDuration is how long a lock holds; Window bounds how long a partial
// failure count survives without further failures.
type Policy struct {
	Threshold    int
	LockDuration time.Duration
	Window       time.Duration
}

// Tracker is the failed-attempt contract. Implementations must make the
// increment-and-maybe-lock transition atomic at the backing store, so
// concurrent failures at the threshold produce exactly one lock.
type Tracker interface {
	// Check returns ErrLocked while the identifier is locked, clearing
	// expired locks lazily on the way.
	Check(ctx context.Context, identifier string) error

	// OnFailure records a failed attempt and reports whether this failure
	// transitioned the identifier into the locked state.
	OnFailure(ctx context.Context, identifier string) (locked bool, err error)

	// OnSuccess clears the identifier's failure count. Idempotent.
	OnSuccess(ctx context.Context, identifier string) error

	// State returns the identifier's current tracking record.
	State(ctx context.Context, identifier string) (State, error)
}
