package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockoutConfig holds the failed-login lockout parameters.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

// ErrLockoutUnavailable indicates the lockout backend is unreachable.
var ErrLockoutUnavailable = errors.New("lockout backend unavailable")

// recordFailureScript counts a failed attempt and flips the credential into
// the locked state at the threshold. While the lock key exists the counter
// is left untouched, so attempts made against a locked credential never
// extend or re-trigger the lock.
const recordFailureScript = `
if redis.call("EXISTS", KEYS[2]) == 1 then
  return {1, redis.call("PTTL", KEYS[2])}
end

local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end

if count >= tonumber(ARGV[2]) then
  redis.call("SET", KEYS[2], "1", "PX", ARGV[1])
  redis.call("DEL", KEYS[1])
  return {1, tonumber(ARGV[1])}
end

return {0, count}
`

var recordFailureLua = redis.NewScript(recordFailureScript)

// Lockout tracks consecutive failed login attempts per credential and
// locks the credential when the threshold is reached. The lock expires
// implicitly through the Redis key TTL.
type Lockout struct {
	redis  redis.UniversalClient
	config LockoutConfig
}

// NewLockout creates a lockout tracker backed by the given Redis client.
func NewLockout(redisClient redis.UniversalClient, cfg LockoutConfig) *Lockout {
	return &Lockout{redis: redisClient, config: cfg}
}

func (l *Lockout) countKey(credentialID string) string {
	return "slo:cnt:" + credentialID
}

func (l *Lockout) lockKey(credentialID string) string {
	return "slo:lock:" + credentialID
}

// Status reports whether the credential is currently locked and, if so,
// how long until the lock expires.
func (l *Lockout) Status(ctx context.Context, credentialID string) (bool, time.Duration, error) {
	ttl, err := l.redis.PTTL(ctx, l.lockKey(credentialID)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	if ttl <= 0 {
		// -2: no lock key; -1: key without TTL, treated as not locked
		// because locks are always written with an expiry.
		return false, 0, nil
	}
	return true, ttl, nil
}

// RecordFailure counts one failed attempt atomically. It returns true when
// the credential is locked after this attempt, either because the
// threshold was just reached or because the lock was already in place.
func (l *Lockout) RecordFailure(ctx context.Context, credentialID string) (bool, error) {
	if credentialID == "" {
		return false, nil
	}

	result, err := recordFailureLua.Run(
		ctx,
		l.redis,
		[]string{l.countKey(credentialID), l.lockKey(credentialID)},
		l.config.Duration.Milliseconds(),
		l.config.Threshold,
	).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return false, fmt.Errorf("%w: invalid lockout script response", ErrLockoutUnavailable)
	}
	locked, ok := parts[0].(int64)
	if !ok {
		return false, fmt.Errorf("%w: invalid lockout script status", ErrLockoutUnavailable)
	}

	return locked == 1, nil
}

// Reset clears both the failure counter and any active lock, e.g. after a
// successful login or a completed password reset.
func (l *Lockout) Reset(ctx context.Context, credentialID string) error {
	if credentialID == "" {
		return nil
	}

	if err := l.redis.Del(ctx, l.countKey(credentialID), l.lockKey(credentialID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// FailureCount returns the current consecutive-failure count for a
// credential. A locked credential reports zero because the counter is
// cleared when the lock engages.
func (l *Lockout) FailureCount(ctx context.Context, credentialID string) (int, error) {
	count, err := l.redis.Get(ctx, l.countKey(credentialID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return int(count), nil
}
