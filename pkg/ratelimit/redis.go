package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript admits a call iff fewer than ARGV[2] timestamps remain
// in KEYS[1] after pruning anything older than (now - ARGV[1]); on
// admission it records the new timestamp. Atomic so that concurrent
// processes sharing the same Redis instance enforce one combined budget,
// matching the single-process DequeLimiter's semantics.
//
// KEYS[1] = sorted-set key (e.g. "ratelimit:drugbank")
// ARGV[1] = window in seconds
// ARGV[2] = limit
// ARGV[3] = current unix time in microseconds (used as both score and member salt)
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local window_us = tonumber(ARGV[1]) * 1000000
local limit = tonumber(ARGV[2])
local now_us = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", key, "-inf", now_us - window_us)

local count = redis.call("ZCARD", key)
if count < limit then
    redis.call("ZADD", key, now_us, tostring(now_us) .. "-" .. tostring(math.random()))
    redis.call("PEXPIRE", key, (window_us / 1000) + 1000)
    return {1, 0}
end

local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
local retryAfterUs = 0
if oldest[2] then
    retryAfterUs = (tonumber(oldest[2]) + window_us) - now_us
end
return {0, retryAfterUs}
`)

// RedisLimiter implements Limiter against a shared Redis instance, for
// deployments running drugsvc/synth across multiple processes.
type RedisLimiter struct {
	client *redis.Client
	key    string
	limit  int
	window time.Duration
	sleep  func(context.Context, time.Duration) error
}

// NewRedisLimiter creates a distributed limiter keyed by key, admitting at
// most limit calls per window across all processes sharing client.
func NewRedisLimiter(client *redis.Client, key string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, key: key, limit: limit, window: window, sleep: sleepOrCancel}
}

// Admit implements Limiter.
func (r *RedisLimiter) Admit(ctx context.Context) error {
	if r.limit <= 0 {
		return nil
	}
	for {
		now := time.Now().UnixMicro()
		res, err := slidingWindowScript.Run(ctx, r.client, []string{r.key}, r.window.Seconds(), r.limit, now).Result()
		if err != nil {
			return fmt.Errorf("ratelimit: redis admission check failed: %w", err)
		}

		results, ok := res.([]interface{})
		if !ok || len(results) != 2 {
			return fmt.Errorf("ratelimit: unexpected lua response shape")
		}
		allowed, _ := results[0].(int64)
		if allowed == 1 {
			return nil
		}

		retryAfterUs, _ := results[1].(int64)
		wait := time.Duration(retryAfterUs) * time.Microsecond
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}
}
