package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is an in-process [Backend] for single-instance deployments
// and tests. Entries past expiry stop answering Has immediately; the sweep
// reclaims their memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewMemoryBackend creates an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]time.Time)}
}

// Put records the key until expiresAt. Re-adding keeps the later expiry.
func (b *MemoryBackend) Put(_ context.Context, key string, expiresAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.entries[key]; ok && existing.After(expiresAt) {
		return nil
	}
	b.entries[key] = expiresAt
	return nil
}

// Has reports whether the key is present and still within its retention.
func (b *MemoryBackend) Has(_ context.Context, key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	expiresAt, ok := b.entries[key]
	return ok && expiresAt.After(time.Now()), nil
}

// Sweep deletes entries past expiry, returning the number removed.
func (b *MemoryBackend) Sweep(_ context.Context, now time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for key, expiresAt := range b.entries {
		if !expiresAt.After(now) {
			delete(b.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the current entry count, expired entries included.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
