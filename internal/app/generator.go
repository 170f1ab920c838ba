package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/ai/gemini"
	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/ai/real"
	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/ai/stub"
	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/schema"
	"github.com/fairyhunter13/ai-interview-assessor/internal/config"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	"github.com/fairyhunter13/ai-interview-assessor/internal/pipeline"
)

// NewRedisClient returns nil when REDIS_URL is unset.
func NewRedisClient(cfg config.Config) (redis.UniversalClient, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("op=app.redis: %w", err)
	}
	return redis.NewClient(opts), nil
}

// BuildGenerator selects the provider named by AI_PROVIDER and wraps it as
// provider, breaker, rate limit, cache, pool (innermost first). The returned
// close func releases provider resources.
func BuildGenerator(ctx context.Context, cfg config.Config, rdb redis.UniversalClient) (*ai.Adapter, func() error, error) {
	var base domain.TextGenerator
	closeFn := func() error { return nil }
	switch cfg.Provider() {
	case config.ProviderStub:
		base = stub.New()
	case config.ProviderGemini:
		c, err := gemini.New(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("op=app.build_generator: %w", err)
		}
		base, closeFn = c, c.Close
	case config.ProviderOpenRouter:
		if cfg.OpenRouterAPIKey == "" {
			return nil, nil, fmt.Errorf("op=app.build_generator: OPENROUTER_API_KEY missing: %w", domain.ErrInvalidArgument)
		}
		base = real.New(cfg)
	default:
		return nil, nil, fmt.Errorf("op=app.build_generator: unknown provider %q: %w", cfg.AIProvider, domain.ErrInvalidArgument)
	}

	base = ai.WithCircuitBreaker(base, ai.NewCircuitBreaker(cfg.Provider(), cfg.CircuitFailureThreshold, cfg.CircuitRecoveryTimeout))
	base = ai.WithRateLimit(base, ai.NewRateLimiter(rdb, "ai:"+cfg.Provider(), cfg.AIRateLimitPerMin))
	switch {
	case rdb != nil:
		base = ai.NewRedisCache(base, rdb, cfg.GenCacheTTL)
	case cfg.GenCacheSize > 0:
		base = ai.NewGenerationCache(base, cfg.GenCacheSize)
	}

	counter := tokencount.NewCounter(cfg.TokenizerModel)
	adapter := ai.NewAdapter(cfg.Provider(), base,
		ai.WithPool(ai.NewPool(cfg.AIWorkerPoolSize)),
		ai.WithTokenCounter(counter.Count))
	slog.Info("text generator ready",
		slog.String("provider", cfg.Provider()),
		slog.Int("pool_size", cfg.AIWorkerPoolSize),
		slog.Bool("redis_cache", rdb != nil),
		slog.Int("rate_limit_per_min", cfg.AIRateLimitPerMin),
		slog.Int("memory_cache_size", cfg.GenCacheSize))
	return adapter, closeFn, nil
}

// BuildController wires the assessment pipeline with schema validation, the
// prompt token budget and the env-driven loop limits.
func BuildController(cfg config.Config, gen pipeline.Generator) (*pipeline.Controller, error) {
	v, err := schema.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("op=app.build_controller: %w", err)
	}
	pc := cfg.Pipeline()
	opts := []pipeline.Option{
		pipeline.WithValidator(v),
		pipeline.WithPipelineConfig(pc),
	}
	if pc.PromptMaxTokens > 0 {
		opts = append(opts, pipeline.WithTruncate(tokencount.NewCounter(pc.TokenizerModel).Truncator(pc.PromptMaxTokens)))
	}
	return pipeline.NewController(gen, opts...), nil
}
