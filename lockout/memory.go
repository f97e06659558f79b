package lockout

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryEntry struct {
	attempts    int
	lastFailure time.Time
	lockedUntil time.Time
}

// MemoryTracker is an in-process [Tracker] for single-instance deployments
// and tests. Locks release lazily on the next Check past the deadline,
// matching the Redis implementation.
type MemoryTracker struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	policy  Policy
	now     func() time.Time
}

// NewMemoryTracker creates a [MemoryTracker] with the given policy. A zero
// Window falls back to LockDuration.
func NewMemoryTracker(policy Policy) (*MemoryTracker, error) {
	if policy.Threshold <= 0 {
		return nil, errors.New("lockout threshold must be positive")
	}
	if policy.LockDuration <= 0 {
		return nil, errors.New("lockout duration must be positive")
	}
	if policy.Window <= 0 {
		policy.Window = policy.LockDuration
	}
	return &MemoryTracker{
		entries: make(map[string]*memoryEntry),
		policy:  policy,
		now:     time.Now,
	}, nil
}

// Check returns ErrLocked while the identifier is locked, clearing expired
// locks and stale windows lazily.
func (t *MemoryTracker) Check(_ context.Context, identifier string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[identifier]
	if !ok {
		return nil
	}

	now := t.now()
	if !entry.lockedUntil.IsZero() {
		if entry.lockedUntil.After(now) {
			return ErrLocked
		}
		delete(t.entries, identifier)
		return nil
	}
	if now.Sub(entry.lastFailure) > t.policy.Window {
		delete(t.entries, identifier)
	}
	return nil
}

// OnFailure records a failed attempt; the returned bool reports whether this
// failure locked the identifier.
func (t *MemoryTracker) OnFailure(_ context.Context, identifier string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	entry, ok := t.entries[identifier]
	if ok {
		if !entry.lockedUntil.IsZero() {
			if entry.lockedUntil.After(now) {
				return false, nil
			}
			entry = nil
		} else if now.Sub(entry.lastFailure) > t.policy.Window {
			entry = nil
		}
	} else {
		entry = nil
	}
	if entry == nil {
		entry = &memoryEntry{}
		t.entries[identifier] = entry
	}

	entry.attempts++
	entry.lastFailure = now
	if entry.attempts >= t.policy.Threshold {
		entry.lockedUntil = now.Add(t.policy.LockDuration)
		return true, nil
	}
	return false, nil
}

// OnSuccess clears the identifier's record. Idempotent.
func (t *MemoryTracker) OnSuccess(_ context.Context, identifier string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, identifier)
	return nil
}

// State returns the identifier's current tracking record.
func (t *MemoryTracker) State(_ context.Context, identifier string) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[identifier]
	if !ok {
		return State{}, nil
	}
	state := State{
		Attempts:    entry.attempts,
		LastFailure: entry.lastFailure,
	}
	if entry.lockedUntil.After(t.now()) {
		state.Locked = true
		state.LockedUntil = entry.lockedUntil
	}
	return state, nil
}
