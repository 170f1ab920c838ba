package ai

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/observability"
	"golang.org/x/sync/semaphore"
)

// DefaultPoolSize is used when a non-positive size is configured.
const DefaultPoolSize = 4

// Pool bounds the number of generation calls running at once in this process.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool creates a pool with size slots.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the slot count.
func (p *Pool) Size() int { return p.size }

// Do waits for a free slot, then runs fn on the caller's goroutine.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("op=ai.pool.acquire: %w", err)
	}
	defer p.sem.Release(1)
	observability.AIInFlight.Inc()
	defer observability.AIInFlight.Dec()
	return fn(ctx)
}
