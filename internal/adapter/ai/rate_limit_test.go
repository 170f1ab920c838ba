package ai

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

func newTestRateLimiter(t *testing.T, perMinute int) (*RateLimiter, *fakeClock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	lim := NewRateLimiter(rdb, "test", perMinute)
	require.NotNil(t, lim)
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	lim.now = clk.now
	return lim, clk, mr
}

func TestNewRateLimiter_Disabled(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NewRateLimiter(nil, "k", 10))
	rdb := redis.NewClient(&redis.Options{Addr: miniredis.RunT(t).Addr()})
	defer func() { _ = rdb.Close() }()
	assert.Nil(t, NewRateLimiter(rdb, "k", 0))

	var lim *RateLimiter
	allowed, retry, err := lim.Allow(context.Background())
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retry)
}

func TestRateLimiter_CapacityAndRefill(t *testing.T) {
	t.Parallel()

	lim, clk, mr := newTestRateLimiter(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, retry, err := lim.Allow(ctx)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d", i)
		assert.Zero(t, retry)
	}

	allowed, retry, err := lim.Allow(ctx)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.InDelta(t, float64(30*time.Second), float64(retry), float64(time.Second))
	assert.True(t, mr.Exists("rate:test"))
	assert.Greater(t, mr.TTL("rate:test"), time.Duration(0))

	clk.t = clk.t.Add(31 * time.Second)
	allowed, _, err = lim.Allow(ctx)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_FailsOpenOnRedisError(t *testing.T) {
	t.Parallel()

	lim, _, mr := newTestRateLimiter(t, 1)
	mr.Close()

	allowed, _, err := lim.Allow(context.Background())
	require.Error(t, err)
	assert.True(t, allowed)
}

func TestWithRateLimit(t *testing.T) {
	t.Parallel()

	lim, _, _ := newTestRateLimiter(t, 1)
	base := &passGenerator{text: "ok"}
	gen := WithRateLimit(base, lim)

	out, err := gen.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = gen.Generate(ctx, "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamRateLimit)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, base.calls)

	assert.Same(t, base, WithRateLimit(base, nil).(*passGenerator))
}

type passGenerator struct {
	text  string
	calls int
}

func (g *passGenerator) Generate(context.Context, string) (string, error) {
	g.calls++
	return g.text, nil
}
