package lockout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "lck"

const (
	failureStatusCounted     int64 = 0
	failureStatusAlreadyLock int64 = 1
	failureStatusNewLock     int64 = 2
)

// checkScript inspects the lock field and lazily clears an expired lock so
// the caller proceeds without waiting for a sweep.
const checkScript = `
local until_ms = tonumber(redis.call("HGET", KEYS[1], "until_ms") or "0")
local now_ms = tonumber(ARGV[1])
if until_ms > 0 then
  if until_ms > now_ms then
    return {1, until_ms}
  end
  redis.call("DEL", KEYS[1])
end
return {0, 0}
`

var checkLua = redis.NewScript(checkScript)

// failureScript increments the counter and flips to locked in one script, so
// concurrent failures at the threshold produce exactly one lock transition.
const failureScript = `
local now_ms = tonumber(ARGV[1])
local threshold = tonumber(ARGV[2])
local lock_ms = tonumber(ARGV[3])
local window_ms = tonumber(ARGV[4])

local until_ms = tonumber(redis.call("HGET", KEYS[1], "until_ms") or "0")
if until_ms > now_ms then
  return {1, until_ms}
end
if until_ms > 0 then
  redis.call("DEL", KEYS[1])
end

local attempts = redis.call("HINCRBY", KEYS[1], "attempts", 1)
redis.call("HSET", KEYS[1], "last_ms", now_ms)
if attempts == 1 then
  redis.call("PEXPIRE", KEYS[1], window_ms)
end
if attempts >= threshold then
  local deadline = now_ms + lock_ms
  redis.call("HSET", KEYS[1], "until_ms", deadline)
  redis.call("PEXPIRE", KEYS[1], lock_ms)
  return {2, deadline}
end
return {0, attempts}
`

var failureLua = redis.NewScript(failureScript)

// RedisTracker is a Redis-backed [Tracker] shared across service instances.
// Each identifier maps to one hash under prefix:<identifier> carrying the
// attempt counter and lock deadline; the key's own PX expiry bounds how long
// stale records linger.
type RedisTracker struct {
	redis  redis.UniversalClient
	prefix string
	policy Policy
}

// NewRedisTracker creates a [RedisTracker]. prefix sets the key namespace;
// empty means "lck". A zero Window falls back to LockDuration.
func NewRedisTracker(client redis.UniversalClient, prefix string, policy Policy) (*RedisTracker, error) {
	if policy.Threshold <= 0 {
		return nil, errors.New("lockout threshold must be positive")
	}
	if policy.LockDuration <= 0 {
		return nil, errors.New("lockout duration must be positive")
	}
	if policy.Window <= 0 {
		policy.Window = policy.LockDuration
	}
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisTracker{redis: client, prefix: prefix, policy: policy}, nil
}

func (t *RedisTracker) key(identifier string) string {
	return t.prefix + ":" + identifier
}

// Check returns ErrLocked while the identifier is locked, clearing expired
// locks lazily.
//
//	Performance: 1 Lua EVALSHA.
func (t *RedisTracker) Check(ctx context.Context, identifier string) error {
	result, err := checkLua.Run(
		ctx,
		t.redis,
		[]string{t.key(identifier)},
		time.Now().UnixMilli(),
	).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return fmt.Errorf("%w: invalid check script response", ErrUnavailable)
	}
	if code, _ := parts[0].(int64); code == 1 {
		return ErrLocked
	}
	return nil
}

// OnFailure records a failed attempt; the returned bool reports whether this
// failure locked the identifier.
//
//	Performance: 1 Lua EVALSHA (atomic increment-and-maybe-lock).
func (t *RedisTracker) OnFailure(ctx context.Context, identifier string) (bool, error) {
	result, err := failureLua.Run(
		ctx,
		t.redis,
		[]string{t.key(identifier)},
		time.Now().UnixMilli(),
		t.policy.Threshold,
		t.policy.LockDuration.Milliseconds(),
		t.policy.Window.Milliseconds(),
	).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return false, fmt.Errorf("%w: invalid failure script response", ErrUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return false, fmt.Errorf("%w: invalid failure script status", ErrUnavailable)
	}
	return code == failureStatusNewLock, nil
}

// OnSuccess clears the identifier's record. Idempotent.
//
//	Performance: 1 Redis DEL.
func (t *RedisTracker) OnSuccess(ctx context.Context, identifier string) error {
	if err := t.redis.Del(ctx, t.key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// State returns the identifier's current tracking record.
func (t *RedisTracker) State(ctx context.Context, identifier string) (State, error) {
	fields, err := t.redis.HGetAll(ctx, t.key(identifier)).Result()
	if err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return State{}, nil
	}

	var state State
	if v, ok := fields["attempts"]; ok {
		n, _ := strconv.Atoi(v)
		state.Attempts = n
	}
	if v, ok := fields["last_ms"]; ok {
		ms, _ := strconv.ParseInt(v, 10, 64)
		state.LastFailure = time.UnixMilli(ms)
	}
	if v, ok := fields["until_ms"]; ok {
		ms, _ := strconv.ParseInt(v, 10, 64)
		deadline := time.UnixMilli(ms)
		if deadline.After(time.Now()) {
			state.Locked = true
			state.LockedUntil = deadline
		}
	}
	return state, nil
}
