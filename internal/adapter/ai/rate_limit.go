package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

// Redis converts Lua numbers to integers, so the wait is returned in whole milliseconds.
const luaTokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local ttl_ms = tonumber(ARGV[5])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] then
  tokens = tonumber(data[1])
end
if data[2] then
  last_refill = tonumber(data[2])
end

local delta = now - last_refill
if delta < 0 then
  delta = 0
end
tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
local retry_ms = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  retry_ms = math.ceil((cost - tokens) / refill_rate * 1000)
end

redis.call("HMSET", key, "tokens", tostring(tokens), "last_refill", tostring(now))
redis.call("PEXPIRE", key, ttl_ms)
return { allowed, retry_ms }
`

// RateLimiter is a Redis token bucket shared by every process calling one provider.
type RateLimiter struct {
	rdb        redis.UniversalClient
	key        string
	capacity   int64
	refillRate float64
	script     *redis.Script
	now        func() time.Time
}

// NewRateLimiter allows perMinute generations per minute under key. It
// returns nil, which disables limiting, when rdb is nil or perMinute <= 0.
func NewRateLimiter(rdb redis.UniversalClient, key string, perMinute int) *RateLimiter {
	if rdb == nil || perMinute <= 0 {
		return nil
	}
	return &RateLimiter{
		rdb:        rdb,
		key:        "rate:" + key,
		capacity:   int64(perMinute),
		refillRate: float64(perMinute) / 60.0,
		script:     redis.NewScript(luaTokenBucketScript),
		now:        time.Now,
	}
}

// Allow takes one token. Redis failures fail open.
func (l *RateLimiter) Allow(ctx context.Context) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	nowSec := float64(l.now().UnixNano()) / 1e9
	ttl := time.Duration(float64(l.capacity)/l.refillRate*2) * time.Second
	res, err := l.script.Run(ctx, l.rdb, []string{l.key}, l.capacity, l.refillRate, nowSec, 1, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		slog.Error("ai rate limiter script error", slog.String("key", l.key), slog.Any("error", err))
		return true, 0, err
	}
	if len(res) < 2 {
		return true, 0, nil
	}
	return res[0] == 1, time.Duration(res[1]) * time.Millisecond, nil
}

// Wait blocks until a token is available or ctx ends.
func (l *RateLimiter) Wait(ctx context.Context) error {
	for {
		allowed, retryAfter, _ := l.Allow(ctx)
		if allowed {
			return nil
		}
		if retryAfter <= 0 {
			retryAfter = 100 * time.Millisecond
		}
		slog.Debug("ai rate limited", slog.String("key", l.key), slog.Duration("retry_after", retryAfter))
		t := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("op=ai.rate_limit: %w: %w", domain.ErrUpstreamRateLimit, ctx.Err())
		case <-t.C:
		}
	}
}

type rateLimitedGenerator struct {
	base domain.TextGenerator
	lim  *RateLimiter
}

// WithRateLimit makes every call to base wait for a token from lim.
func WithRateLimit(base domain.TextGenerator, lim *RateLimiter) domain.TextGenerator {
	if lim == nil || base == nil {
		return base
	}
	return &rateLimitedGenerator{base: base, lim: lim}
}

func (g *rateLimitedGenerator) Generate(ctx domain.Context, prompt string) (string, error) {
	if err := g.lim.Wait(ctx); err != nil {
		return "", err
	}
	return g.base.Generate(ctx, prompt)
}
