package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "rt"

const (
	rotateStatusNotFound  int64 = 0
	rotateStatusExpired   int64 = 1
	rotateStatusDuplicate int64 = 2
	rotateStatusRotated   int64 = 3
)

const createScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", tonumber(ARGV[2]))
redis.call("SADD", KEYS[2], ARGV[3])
return 1
`

var createLua = redis.NewScript(createScript)

const rotateScript = `
local old_key = KEYS[1]
local next_key = KEYS[2]
local next_user_key = KEYS[3]
local old_token = ARGV[1]
local next_payload = ARGV[2]
local next_px = tonumber(ARGV[3])
local next_token = ARGV[4]
local now_ms = tonumber(ARGV[5])
local user_prefix = ARGV[6]

local data = redis.call("GET", old_key)
if not data then
  return {0}
end

local rec = cjson.decode(data)
local old_user_key = user_prefix .. rec.user_id

if rec.expires_ms <= now_ms then
  redis.call("DEL", old_key)
  redis.call("SREM", old_user_key, old_token)
  return {1}
end

if redis.call("EXISTS", next_key) == 1 then
  return {2}
end

redis.call("DEL", old_key)
redis.call("SREM", old_user_key, old_token)
redis.call("SET", next_key, next_payload, "PX", next_px)
redis.call("SADD", next_user_key, next_token)
return {3, data}
`

var rotateLua = redis.NewScript(rotateScript)

const revokeOneScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
local rec = cjson.decode(data)
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[2] .. rec.user_id, ARGV[1])
return 1
`

var revokeOneLua = redis.NewScript(revokeOneScript)

// redisRecord is the JSON wire form of a [Record]. JSON rather than a binary
// codec so the rotation script can decode it with cjson.
type redisRecord struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	CreatedMS int64  `json:"created_ms"`
	ExpiresMS int64  `json:"expires_ms"`
}

// RedisStore is a Redis-backed [Store]. Token records live under
// prefix:t:<token> with a PX expiry matching the record, and a per-user set
// under prefix:u:<userID> indexes tokens for logout-all.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a [RedisStore] on the given client. prefix sets the
// key namespace; empty means "rt".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) tokenKey(tokenValue string) string {
	return s.prefix + ":t:" + tokenValue
}

func (s *RedisStore) userPrefix() string {
	return s.prefix + ":u:"
}

func (s *RedisStore) userKey(userID string) string {
	return s.userPrefix() + userID
}

func encodeRecord(rec Record) ([]byte, error) {
	return json.Marshal(redisRecord{
		Token:     rec.Token,
		UserID:    rec.UserID,
		Email:     rec.Email,
		CreatedMS: rec.CreatedAt.UnixMilli(),
		ExpiresMS: rec.ExpiresAt.UnixMilli(),
	})
}

func decodeRecord(data []byte) (*Record, error) {
	var wire redisRecord
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: corrupt record: %v", ErrStoreUnavailable, err)
	}
	return &Record{
		Token:     wire.Token,
		UserID:    wire.UserID,
		Email:     wire.Email,
		CreatedAt: time.UnixMilli(wire.CreatedMS),
		ExpiresAt: time.UnixMilli(wire.ExpiresMS),
	}, nil
}

// Create inserts the record with a PX expiry and indexes it in the owner's
// set. The insert is a Lua script so the existence check and SET are atomic.
//
//	Performance: 1 Lua EVALSHA.
func (s *RedisStore) Create(ctx context.Context, rec Record) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("refresh record already expired at create: %s", rec.ExpiresAt)
	}

	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	inserted, err := createLua.Run(
		ctx,
		s.redis,
		[]string{s.tokenKey(rec.Token), s.userKey(rec.UserID)},
		payload,
		ttl.Milliseconds(),
		rec.Token,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if inserted == 0 {
		return ErrDuplicateToken
	}

	return nil
}

// FindValid returns the live record for the token. Redis PX expiry removes
// dead rows actively; the explicit expiry check below covers the window where
// a row outlives its logical deadline.
//
//	Performance: 1 Redis GET (plus a delete on the lazy-expiry path).
func (s *RedisStore) FindValid(ctx context.Context, tokenValue string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.tokenKey(tokenValue)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return nil, err
	}

	if !rec.ExpiresAt.After(time.Now()) {
		if _, err := s.RevokeOne(ctx, tokenValue); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	return rec, nil
}

// Rotate consumes the old record and inserts next in one Lua script, so two
// rotations racing on the same token resolve to a single winner. Returns the
// consumed record; ErrNotFound doubles as the replay signal.
//
//	Performance: 1 Lua EVALSHA (atomic consume-and-insert).
func (s *RedisStore) Rotate(ctx context.Context, oldTokenValue string, next Record) (*Record, error) {
	nextTTL := time.Until(next.ExpiresAt)
	if nextTTL <= 0 {
		return nil, fmt.Errorf("refresh record already expired at rotate: %s", next.ExpiresAt)
	}

	payload, err := encodeRecord(next)
	if err != nil {
		return nil, err
	}

	result, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{s.tokenKey(oldTokenValue), s.tokenKey(next.Token), s.userKey(next.UserID)},
		oldTokenValue,
		payload,
		nextTTL.Milliseconds(),
		next.Token,
		time.Now().UnixMilli(),
		s.userPrefix(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid rotate script response", ErrStoreUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid rotate script status", ErrStoreUnavailable)
	}

	switch code {
	case rotateStatusNotFound, rotateStatusExpired:
		return nil, ErrNotFound
	case rotateStatusDuplicate:
		return nil, ErrDuplicateToken
	case rotateStatusRotated:
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: missing consumed record payload", ErrStoreUnavailable)
		}
		var blob []byte
		switch v := parts[1].(type) {
		case string:
			blob = []byte(v)
		case []byte:
			blob = v
		default:
			return nil, fmt.Errorf("%w: invalid consumed record payload", ErrStoreUnavailable)
		}
		return decodeRecord(blob)
	default:
		return nil, fmt.Errorf("%w: unknown rotate script status %d", ErrStoreUnavailable, code)
	}
}

// RevokeOne deletes a single record and its index entry. Idempotent; returns
// the number of records removed.
//
//	Performance: 1 Lua EVALSHA.
func (s *RedisStore) RevokeOne(ctx context.Context, tokenValue string) (int, error) {
	removed, err := revokeOneLua.Run(
		ctx,
		s.redis,
		[]string{s.tokenKey(tokenValue)},
		tokenValue,
		s.userPrefix(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(removed), nil
}

// RevokeAllForUser deletes every record indexed under the user's set.
//
// ATOMICITY NOTE: this reads the index (SMEMBERS) and then deletes
// (TxPipelined DEL). A token created between the two phases survives this
// call; it will be caught by its own expiry or a subsequent invocation. The
// race window only affects logout-all completeness, never token validity.
func (s *RedisStore) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	userKey := s.userKey(userID)

	tokens, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var delCmd *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(tokens) > 0 {
			keys := make([]string, 0, len(tokens))
			for _, tok := range tokens {
				keys = append(keys, s.tokenKey(tok))
			}
			delCmd = pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if delCmd == nil {
		return 0, nil
	}
	return int(delCmd.Val()), nil
}

// PurgeExpired reconciles the per-user index sets against token keys that
// Redis PX expiry has already removed. Token rows themselves never outlive
// their PX deadline, so the sweep only has index entries to clean.
//
// Admin/sweep-only O(n) operation; must not run in request hot paths.
func (s *RedisStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	pattern := s.userPrefix() + "*"
	var (
		cursor uint64
		purged int
	)

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return purged, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		for _, userKey := range keys {
			tokens, err := s.redis.SMembers(ctx, userKey).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return purged, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			if len(tokens) == 0 {
				continue
			}

			pipe := s.redis.Pipeline()
			existsCmds := make([]*redis.IntCmd, len(tokens))
			for i, tok := range tokens {
				existsCmds[i] = pipe.Exists(ctx, s.tokenKey(tok))
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return purged, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}

			var stale []interface{}
			for i, cmd := range existsCmds {
				if cmd.Val() == 0 {
					stale = append(stale, tokens[i])
				}
			}
			if len(stale) == 0 {
				continue
			}

			removed, err := s.redis.SRem(ctx, userKey, stale...).Result()
			if err != nil {
				return purged, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			purged += int(removed)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return purged, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
