// Package ai provides text generation adapters and wrappers used by the assessment pipeline.
package ai

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-assessor/internal/observability"
)

// Generation is the single result shape every provider is normalized to.
// Exactly one of Text or Err is meaningful; empty Text is a valid (if useless) answer.
type Generation struct {
	Text string
	Err  error
}

// Adapter turns a provider call into a Generation. It never panics and never
// returns a bare error, so callers only ever branch on Generation.Err.
type Adapter struct {
	provider    string
	gen         domain.TextGenerator
	pool        *Pool
	countTokens func(string) int
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithPool bounds concurrent provider calls with p.
func WithPool(p *Pool) AdapterOption {
	return func(a *Adapter) { a.pool = p }
}

// WithTokenCounter records the prompt size of each call.
func WithTokenCounter(fn func(string) int) AdapterOption {
	return func(a *Adapter) { a.countTokens = fn }
}

// NewAdapter wraps gen. Without WithPool a default-sized pool is used.
func NewAdapter(provider string, gen domain.TextGenerator, opts ...AdapterOption) *Adapter {
	a := &Adapter{provider: provider, gen: gen}
	for _, o := range opts {
		o(a)
	}
	if a.pool == nil {
		a.pool = NewPool(DefaultPoolSize)
	}
	return a
}

// Provider returns the configured provider name.
func (a *Adapter) Provider() string { return a.provider }

// Generate runs one prompt on the worker pool.
func (a *Adapter) Generate(ctx context.Context, prompt string) (g Generation) {
	defer func() {
		if r := recover(); r != nil {
			obsctx.LoggerFromContext(ctx).Error("text generation panicked",
				"provider", a.provider, "panic", fmt.Sprint(r))
			g = Generation{Err: fmt.Errorf("op=ai.generate: provider %s panicked: %v", a.provider, r)}
		}
	}()
	if a.gen == nil {
		return Generation{Err: fmt.Errorf("op=ai.generate: no provider configured: %w", domain.ErrInternal)}
	}
	if a.countTokens != nil {
		observability.AIPromptTokens.Observe(float64(a.countTokens(prompt)))
	}
	text, err := a.pool.Do(ctx, func(ctx context.Context) (string, error) {
		return a.gen.Generate(ctx, prompt)
	})
	if err != nil {
		return Generation{Err: err}
	}
	return Generation{Text: text}
}
