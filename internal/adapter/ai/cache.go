package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

type noCacheKey struct{}

// WithoutCache marks ctx so generation caches pass the call straight through.
// Report regeneration uses it: a cached answer would defeat the retry.
func WithoutCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, noCacheKey{}, true)
}

func cacheBypassed(ctx context.Context) bool {
	v, _ := ctx.Value(noCacheKey{}).(bool)
	return v
}

// memoryCache wraps a TextGenerator and caches non-empty answers by prompt hash.
// Eviction is FIFO. It is safe for concurrent use.
type memoryCache struct {
	base     domain.TextGenerator
	capacity int
	mu       sync.RWMutex
	m        map[string]string
	ord      []string
}

// NewGenerationCache wraps base with an in-process cache of capacity entries.
// If capacity <= 0, base is returned unmodified.
func NewGenerationCache(base domain.TextGenerator, capacity int) domain.TextGenerator {
	if capacity <= 0 || base == nil {
		return base
	}
	return &memoryCache{base: base, capacity: capacity, m: make(map[string]string), ord: make([]string, 0, capacity)}
}

func (c *memoryCache) Generate(ctx domain.Context, prompt string) (string, error) {
	if cacheBypassed(ctx) {
		return c.base.Generate(ctx, prompt)
	}
	k := keyFor(prompt)
	c.mu.RLock()
	v, ok := c.m[k]
	c.mu.RUnlock()
	if ok {
		observability.AICacheLookups.WithLabelValues("memory", "hit").Inc()
		return v, nil
	}
	observability.AICacheLookups.WithLabelValues("memory", "miss").Inc()
	text, err := c.base.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		c.put(k, text)
	}
	return text, nil
}

func (c *memoryCache) put(k, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[k]; exists {
		c.m[k] = text
		return
	}
	if len(c.ord) >= c.capacity {
		old := c.ord[0]
		c.ord = c.ord[1:]
		delete(c.m, old)
	}
	c.m[k] = text
	c.ord = append(c.ord, k)
}

func (c *memoryCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func keyFor(prompt string) string {
	h := sha256.Sum256([]byte(strings.TrimSpace(prompt)))
	return hex.EncodeToString(h[:])
}
