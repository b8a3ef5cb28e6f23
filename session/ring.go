package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound is returned when a digest has no live ring entry.
var ErrTokenNotFound = errors.New("refresh token not in ring")

// ErrRedisUnavailable is an exported constant or variable used by the access control engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// addRingEntryScript prunes expired entries, evicts the oldest entries
// down to capacity, and appends the new entry, all in one atomic step.
// Expiry lives at a fixed offset in the record blob (byte 2 in Lua's
// 1-based indexing) so pruning never needs a full decode.
const addRingEntryScript = `
local function read_be64(s, i)
  local b1 = string.byte(s, i)
  local b2 = string.byte(s, i + 1)
  local b3 = string.byte(s, i + 2)
  local b4 = string.byte(s, i + 3)
  local b5 = string.byte(s, i + 4)
  local b6 = string.byte(s, i + 5)
  local b7 = string.byte(s, i + 6)
  local b8 = string.byte(s, i + 7)
  if not b8 then
    return nil
  end
  return ((((((((b1 * 256) + b2) * 256 + b3) * 256 + b4) * 256 + b5) * 256 + b6) * 256 + b7) * 256 + b8)
end

local ring_key = KEYS[1]
local rec_key = KEYS[2]
local member = ARGV[1]
local blob = ARGV[2]
local now_unix = tonumber(ARGV[3])
local cap = tonumber(ARGV[4])
local ttl_ms = tonumber(ARGV[5])
local score = tonumber(ARGV[6])

local members = redis.call("ZRANGE", ring_key, 0, -1)
for i = 1, #members do
  local data = redis.call("HGET", rec_key, members[i])
  local expired = true
  if data then
    local expires_at = read_be64(data, 2)
    if expires_at and expires_at > now_unix then
      expired = false
    end
  end
  if expired then
    redis.call("ZREM", ring_key, members[i])
    redis.call("HDEL", rec_key, members[i])
  end
end

local evicted = 0
while redis.call("ZCARD", ring_key) >= cap do
  local oldest = redis.call("ZRANGE", ring_key, 0, 0)
  if not oldest[1] then
    break
  end
  redis.call("ZREM", ring_key, oldest[1])
  redis.call("HDEL", rec_key, oldest[1])
  evicted = evicted + 1
end

redis.call("ZADD", ring_key, score, member)
redis.call("HSET", rec_key, member, blob)
redis.call("PEXPIRE", ring_key, ttl_ms)
redis.call("PEXPIRE", rec_key, ttl_ms)

return evicted
`

var addRingEntryLua = redis.NewScript(addRingEntryScript)

// Store is the Redis-backed refresh-token ring: a creation-ordered ZSET of
// token digests plus a HASH of digest to record blob, both per credential.
// The ring holds at most the configured capacity; adding beyond it evicts
// the oldest live entry.
type Store struct {
	redis    redis.UniversalClient
	prefix   string
	capacity int
}

// NewStore creates a ring [Store] with the given key prefix and capacity.
func NewStore(redisClient redis.UniversalClient, prefix string, capacity int) *Store {
	return &Store{
		redis:    redisClient,
		prefix:   prefix,
		capacity: capacity,
	}
}

func (s *Store) ringKey(credentialID string) string {
	return s.prefix + ":ring:" + credentialID
}

func (s *Store) recordKey(credentialID string) string {
	return s.prefix + ":rec:" + credentialID
}

func memberFor(digest [32]byte) string {
	return base64.RawURLEncoding.EncodeToString(digest[:])
}

// Add appends a ring entry for the token digest, pruning expired entries
// and evicting the oldest live entries above capacity. It returns the
// number of evicted entries.
//
//	Performance: 1 Lua EVALSHA (atomic per credential).
func (s *Store) Add(ctx context.Context, credentialID string, digest [32]byte, rec *Record) (int, error) {
	blob, err := Encode(rec)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	ttl := time.Until(time.Unix(rec.ExpiresAt, 0))
	if ttl <= 0 {
		return 0, errors.New("refresh record already expired")
	}

	result, err := addRingEntryLua.Run(
		ctx,
		s.redis,
		[]string{s.ringKey(credentialID), s.recordKey(credentialID)},
		memberFor(digest),
		blob,
		now.Unix(),
		s.capacity,
		ttl.Milliseconds(),
		now.UnixMilli(),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	evicted, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: invalid ring script response", ErrRedisUnavailable)
	}

	return int(evicted), nil
}

// Contains returns the live ring entry for the digest, or
// [ErrTokenNotFound] when the digest is absent, evicted, or expired.
//
//	Performance: 1 Redis HGET on the hit path.
func (s *Store) Contains(ctx context.Context, credentialID string, digest [32]byte) (*Record, error) {
	member := memberFor(digest)

	data, err := s.redis.HGet(ctx, s.recordKey(credentialID), member).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}

	if rec.Expired(time.Now()) {
		// Lazy cleanup; the add script prunes too, this just keeps reads honest.
		if err := s.Remove(ctx, credentialID, digest); err != nil {
			return nil, err
		}
		return nil, ErrTokenNotFound
	}

	return rec, nil
}

// Remove deletes a single ring entry. Removing an absent entry is a no-op.
func (s *Store) Remove(ctx context.Context, credentialID string, digest [32]byte) error {
	member := memberFor(digest)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, s.ringKey(credentialID), member)
		pipe.HDel(ctx, s.recordKey(credentialID), member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// RemoveAll drops the credential's entire ring.
func (s *Store) RemoveAll(ctx context.Context, credentialID string) error {
	if err := s.redis.Del(ctx, s.ringKey(credentialID), s.recordKey(credentialID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Count returns the number of tracked entries, including any not yet
// pruned expired ones.
func (s *Store) Count(ctx context.Context, credentialID string) (int, error) {
	count, err := s.redis.ZCard(ctx, s.ringKey(credentialID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

// Entry pairs a ring member digest with its decoded record.
type Entry struct {
	Digest string
	Record Record
}

// List returns the live ring entries in creation order, oldest first.
func (s *Store) List(ctx context.Context, credentialID string) ([]Entry, error) {
	members, err := s.redis.ZRange(ctx, s.ringKey(credentialID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(members) == 0 {
		return []Entry{}, nil
	}

	blobs, err := s.redis.HMGet(ctx, s.recordKey(credentialID), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	now := time.Now()
	entries := make([]Entry, 0, len(members))
	for i, raw := range blobs {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		rec, decErr := Decode([]byte(str))
		if decErr != nil {
			return nil, decErr
		}
		if rec.Expired(now) {
			continue
		}
		entries = append(entries, Entry{Digest: members[i], Record: *rec})
	}

	return entries, nil
}
