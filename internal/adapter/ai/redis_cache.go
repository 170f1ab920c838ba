package ai

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "assessor:gen:"

// redisCache shares generation answers across API and worker processes.
// Redis failures degrade to a cache miss.
type redisCache struct {
	base domain.TextGenerator
	rdb  redis.UniversalClient
	ttl  time.Duration
}

// NewRedisCache wraps base with a Redis-backed cache. A nil client returns base.
func NewRedisCache(base domain.TextGenerator, rdb redis.UniversalClient, ttl time.Duration) domain.TextGenerator {
	if rdb == nil || base == nil {
		return base
	}
	return &redisCache{base: base, rdb: rdb, ttl: ttl}
}

func (c *redisCache) Generate(ctx domain.Context, prompt string) (string, error) {
	if cacheBypassed(ctx) {
		return c.base.Generate(ctx, prompt)
	}
	key := redisKeyPrefix + keyFor(prompt)
	v, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		observability.AICacheLookups.WithLabelValues("redis", "hit").Inc()
		return v, nil
	case errors.Is(err, redis.Nil):
		observability.AICacheLookups.WithLabelValues("redis", "miss").Inc()
	default:
		observability.AICacheLookups.WithLabelValues("redis", "error").Inc()
		slog.Warn("generation cache read failed", slog.Any("error", err))
	}

	text, err := c.base.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		if err := c.rdb.Set(ctx, key, text, c.ttl).Err(); err != nil {
			slog.Warn("generation cache write failed", slog.Any("error", err))
		}
	}
	return text, nil
}
