package lockout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testPolicy() Policy {
	return Policy{
		Threshold:    3,
		LockDuration: 15 * time.Minute,
		Window:       15 * time.Minute,
	}
}

func newRedisTrackerTest(t *testing.T, policy Policy) (*RedisTracker, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tracker, err := NewRedisTracker(rdb, "lck", policy)
	if err != nil {
		t.Fatalf("NewRedisTracker: %v", err)
	}
	return tracker, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

// trackers runs the same assertions against both implementations.
func trackers(t *testing.T, policy Policy, fn func(t *testing.T, tracker Tracker, mr *miniredis.Miniredis)) {
	t.Helper()

	t.Run("redis", func(t *testing.T) {
		tracker, mr, done := newRedisTrackerTest(t, policy)
		defer done()
		fn(t, tracker, mr)
	})

	t.Run("memory", func(t *testing.T) {
		tracker, err := NewMemoryTracker(policy)
		if err != nil {
			t.Fatalf("NewMemoryTracker: %v", err)
		}
		fn(t, tracker, nil)
	})
}

func TestThresholdLocks(t *testing.T) {
	trackers(t, testPolicy(), func(t *testing.T, tracker Tracker, _ *miniredis.Miniredis) {
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			locked, err := tracker.OnFailure(ctx, "u@x.com")
			if err != nil {
				t.Fatalf("failure %d: %v", i, err)
			}
			if locked {
				t.Fatalf("failure %d must not lock yet", i)
			}
			if err := tracker.Check(ctx, "u@x.com"); err != nil {
				t.Fatalf("check after failure %d: %v", i, err)
			}
		}

		locked, err := tracker.OnFailure(ctx, "u@x.com")
		if err != nil {
			t.Fatalf("third failure: %v", err)
		}
		if !locked {
			t.Fatal("third failure must lock")
		}
		if err := tracker.Check(ctx, "u@x.com"); !errors.Is(err, ErrLocked) {
			t.Fatalf("expected ErrLocked, got %v", err)
		}
	})
}

func TestSuccessClearsCounter(t *testing.T) {
	trackers(t, testPolicy(), func(t *testing.T, tracker Tracker, _ *miniredis.Miniredis) {
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			if _, err := tracker.OnFailure(ctx, "u@x.com"); err != nil {
				t.Fatalf("failure: %v", err)
			}
		}
		if err := tracker.OnSuccess(ctx, "u@x.com"); err != nil {
			t.Fatalf("success: %v", err)
		}

		// Counter restarted: two more failures still below threshold.
		for i := 0; i < 2; i++ {
			locked, err := tracker.OnFailure(ctx, "u@x.com")
			if err != nil || locked {
				t.Fatalf("post-reset failure %d: locked=%v err=%v", i, locked, err)
			}
		}
	})
}

func TestIdentifiersTrackedIndependently(t *testing.T) {
	trackers(t, testPolicy(), func(t *testing.T, tracker Tracker, _ *miniredis.Miniredis) {
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			if _, err := tracker.OnFailure(ctx, "locked@x.com"); err != nil {
				t.Fatalf("failure: %v", err)
			}
		}
		if err := tracker.Check(ctx, "locked@x.com"); !errors.Is(err, ErrLocked) {
			t.Fatalf("expected ErrLocked, got %v", err)
		}
		if err := tracker.Check(ctx, "other@x.com"); err != nil {
			t.Fatalf("unrelated identifier must not be locked: %v", err)
		}
	})
}

func TestLockReleasesLazily(t *testing.T) {
	policy := Policy{Threshold: 2, LockDuration: time.Minute, Window: time.Minute}

	t.Run("redis", func(t *testing.T) {
		tracker, mr, done := newRedisTrackerTest(t, policy)
		defer done()
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			if _, err := tracker.OnFailure(ctx, "u@x.com"); err != nil {
				t.Fatalf("failure: %v", err)
			}
		}
		if err := tracker.Check(ctx, "u@x.com"); !errors.Is(err, ErrLocked) {
			t.Fatalf("expected ErrLocked, got %v", err)
		}

		mr.FastForward(2 * time.Minute)

		if err := tracker.Check(ctx, "u@x.com"); err != nil {
			t.Fatalf("expired lock must release on check: %v", err)
		}
		state, err := tracker.State(ctx, "u@x.com")
		if err != nil {
			t.Fatalf("state: %v", err)
		}
		if state.Attempts != 0 || state.Locked {
			t.Fatalf("lazy release must clear the record, got %+v", state)
		}
	})

	t.Run("memory", func(t *testing.T) {
		tracker, err := NewMemoryTracker(policy)
		if err != nil {
			t.Fatalf("NewMemoryTracker: %v", err)
		}
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			if _, err := tracker.OnFailure(ctx, "u@x.com"); err != nil {
				t.Fatalf("failure: %v", err)
			}
		}
		if err := tracker.Check(ctx, "u@x.com"); !errors.Is(err, ErrLocked) {
			t.Fatalf("expected ErrLocked, got %v", err)
		}

		tracker.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

		if err := tracker.Check(ctx, "u@x.com"); err != nil {
			t.Fatalf("expired lock must release on check: %v", err)
		}
		state, err := tracker.State(ctx, "u@x.com")
		if err != nil || state.Attempts != 0 || state.Locked {
			t.Fatalf("lazy release must clear the record, got %+v err=%v", state, err)
		}
	})
}

func TestFailuresWhileLockedDoNotExtend(t *testing.T) {
	trackers(t, testPolicy(), func(t *testing.T, tracker Tracker, _ *miniredis.Miniredis) {
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			if _, err := tracker.OnFailure(ctx, "u@x.com"); err != nil {
				t.Fatalf("failure: %v", err)
			}
		}
		stateBefore, err := tracker.State(ctx, "u@x.com")
		if err != nil || !stateBefore.Locked {
			t.Fatalf("expected locked state, got %+v err=%v", stateBefore, err)
		}

		locked, err := tracker.OnFailure(ctx, "u@x.com")
		if err != nil {
			t.Fatalf("failure while locked: %v", err)
		}
		if locked {
			t.Fatal("failure while locked must not report a new lock")
		}

		stateAfter, err := tracker.State(ctx, "u@x.com")
		if err != nil {
			t.Fatalf("state: %v", err)
		}
		if stateAfter.LockedUntil.After(stateBefore.LockedUntil) {
			t.Fatalf("lock deadline must not extend: %v -> %v", stateBefore.LockedUntil, stateAfter.LockedUntil)
		}
	})
}

func TestStateReportsAttempts(t *testing.T) {
	trackers(t, testPolicy(), func(t *testing.T, tracker Tracker, _ *miniredis.Miniredis) {
		ctx := context.Background()

		state, err := tracker.State(ctx, "fresh@x.com")
		if err != nil {
			t.Fatalf("state: %v", err)
		}
		if state.Attempts != 0 || state.Locked {
			t.Fatalf("fresh identifier must be zero-valued, got %+v", state)
		}

		if _, err := tracker.OnFailure(ctx, "u@x.com"); err != nil {
			t.Fatalf("failure: %v", err)
		}
		state, err = tracker.State(ctx, "u@x.com")
		if err != nil {
			t.Fatalf("state: %v", err)
		}
		if state.Attempts != 1 || state.Locked {
			t.Fatalf("expected 1 attempt unlocked, got %+v", state)
		}
		if state.LastFailure.IsZero() {
			t.Fatal("expected last-failure timestamp")
		}
	})
}

func TestPolicyValidation(t *testing.T) {
	if _, err := NewMemoryTracker(Policy{Threshold: 0, LockDuration: time.Minute}); err == nil {
		t.Fatal("expected error for zero threshold")
	}
	if _, err := NewMemoryTracker(Policy{Threshold: 3, LockDuration: 0}); err == nil {
		t.Fatal("expected error for zero lock duration")
	}
}
