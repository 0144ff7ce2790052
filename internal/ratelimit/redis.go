package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims the sorted set to the window, then records the
// request only when it still fits. Returns 1 when allowed.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local counter_key = KEYS[2]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)
	if count >= limit then
		return 0
	end

	local seq = redis.call('INCR', counter_key)
	redis.call('ZADD', key, now, now .. ':' .. seq)
	redis.call('PEXPIRE', key, window_ms)
	redis.call('PEXPIRE', counter_key, window_ms)
	return 1
`)

// Redis is a sliding-window limiter shared by every relay instance that points
// at the same Redis.
type Redis struct {
	client redis.UniversalClient
	prefix string
	limit  int
	period time.Duration
	now    func() time.Time
}

// NewRedis returns a limiter allowing limit actions per period for each key.
// Keys are stored under prefix.
func NewRedis(client redis.UniversalClient, prefix string, limit int, period time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		limit:  limit,
		period: period,
		now:    time.Now,
	}
}

// Allow records one action for key and reports whether it fits the window.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	if r.limit <= 0 {
		return true, nil
	}

	now := r.now()
	redisKey := r.windowKey(key)
	res, err := slidingWindowScript.Run(ctx, r.client,
		[]string{redisKey, redisKey + ":seq"},
		now.UnixMilli(),
		now.Add(-r.period).UnixMilli(),
		r.limit,
		r.period.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return res == 1, nil
}

// windowKey hash-tags key so the window and its sequence counter share a
// cluster slot.
func (r *Redis) windowKey(key string) string {
	return r.prefix + "{" + key + "}"
}
