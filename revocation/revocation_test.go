package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryAddAndIsRevoked(t *testing.T) {
	list := NewList(NewMemoryBackend())
	ctx := context.Background()

	if err := list.Add(ctx, "token-a", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("add: %v", err)
	}

	revoked, err := list.IsRevoked(ctx, "token-a")
	if err != nil || !revoked {
		t.Fatalf("expected revoked, got revoked=%v err=%v", revoked, err)
	}

	revoked, err = list.IsRevoked(ctx, "token-b")
	if err != nil || revoked {
		t.Fatalf("expected not revoked, got revoked=%v err=%v", revoked, err)
	}
}

func TestMemoryAddSkipsExpiredToken(t *testing.T) {
	backend := NewMemoryBackend()
	list := NewList(backend)
	ctx := context.Background()

	if err := list.Add(ctx, "stale", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if backend.Len() != 0 {
		t.Fatalf("expired token must not be stored, got %d entries", backend.Len())
	}
}

func TestMemoryEntryStopsAnsweringAfterExpiry(t *testing.T) {
	backend := NewMemoryBackend()
	list := NewList(backend)
	ctx := context.Background()

	if err := list.Add(ctx, "short", time.Now().Add(10*time.Millisecond)); err != nil {
		t.Fatalf("add: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	revoked, err := list.IsRevoked(ctx, "short")
	if err != nil || revoked {
		t.Fatalf("entry past token expiry must not revoke, got revoked=%v err=%v", revoked, err)
	}
}

func TestMemorySweepReclaims(t *testing.T) {
	backend := NewMemoryBackend()
	list := NewList(backend)
	ctx := context.Background()
	now := time.Now()

	if err := backend.Put(ctx, "dead-1", now.Add(-time.Minute)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := backend.Put(ctx, "dead-2", now.Add(-time.Second)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := backend.Put(ctx, "live", now.Add(time.Hour)); err != nil {
		t.Fatalf("put: %v", err)
	}

	removed, err := list.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 swept, got %d", removed)
	}
	if backend.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", backend.Len())
	}
}

func TestMemoryReAddKeepsLaterExpiry(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()
	later := time.Now().Add(time.Hour)

	if err := backend.Put(ctx, "k", later); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := backend.Put(ctx, "k", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("re-put: %v", err)
	}

	if removed, err := backend.Sweep(ctx, time.Now().Add(30*time.Minute)); err != nil || removed != 0 {
		t.Fatalf("retention must not shrink on re-add: removed=%d err=%v", removed, err)
	}
}

func newRedisBackendTest(t *testing.T) (*RedisBackend, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisBackend(rdb, "rvk"), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestRedisBackendRoundtrip(t *testing.T) {
	backend, mr, done := newRedisBackendTest(t)
	defer done()
	ctx := context.Background()
	list := NewList(backend)

	if err := list.Add(ctx, "token-a", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("add: %v", err)
	}
	revoked, err := list.IsRevoked(ctx, "token-a")
	if err != nil || !revoked {
		t.Fatalf("expected revoked, got revoked=%v err=%v", revoked, err)
	}

	mr.FastForward(2 * time.Minute)

	revoked, err = list.IsRevoked(ctx, "token-a")
	if err != nil || revoked {
		t.Fatalf("entry must expire with the token, got revoked=%v err=%v", revoked, err)
	}
}

func TestFingerprintStableAndDistinct(t *testing.T) {
	if Fingerprint("a") != Fingerprint("a") {
		t.Fatal("fingerprint must be deterministic")
	}
	if Fingerprint("a") == Fingerprint("b") {
		t.Fatal("distinct tokens must fingerprint differently")
	}
	if len(Fingerprint("a")) != 64 {
		t.Fatalf("unexpected fingerprint length %d", len(Fingerprint("a")))
	}
}
