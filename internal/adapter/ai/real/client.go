// Package real implements the OpenRouter chat-completions text generator.
package real

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assessor/internal/config"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-assessor/internal/observability"
)

const (
	provider = "openrouter"
	opChat   = "chat"

	// OpenRouter accepts at most three fallback models per request.
	maxFallbackModels = 3
	snippetBytes      = 512
	defaultTimeout    = 120 * time.Second
)

var errRateLimited = errors.New("rate limited: 429")

// Client implements domain.TextGenerator against OpenRouter.
type Client struct {
	cfg  config.Config
	hc   *http.Client
	free *FreeModelCatalog
}

// New constructs a client with an instrumented transport.
func New(cfg config.Config) *Client {
	timeout := cfg.AIRequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	if cfg.OpenRouterFreeFallback {
		c.free = NewFreeModelCatalog(c.hc, cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.FreeModelsRefresh)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Models      []string      `json:"models,omitempty"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// getBackoffConfig returns a configured ExponentialBackOff based on the current environment.
func (c *Client) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

// fallbackModels lists the configured fallbacks, padded with free catalog
// models when enabled, skipping the primary model and capped at three.
func (c *Client) fallbackModels(ctx context.Context) []string {
	out := make([]string, 0, maxFallbackModels)
	seen := map[string]bool{"": true, c.cfg.OpenRouterModel: true}
	add := func(ids []string) {
		for _, m := range ids {
			if len(out) == maxFallbackModels {
				return
			}
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	add(c.cfg.ChatFallbackModels)
	if c.free != nil && len(out) < maxFallbackModels {
		ids, err := c.free.ModelIDs(ctx)
		if err != nil {
			obsctx.LoggerFromContext(ctx).Warn("free model catalog unavailable", slog.Any("error", err))
		}
		add(ids)
	}
	return out
}

// Generate sends prompt as a single user message and returns the first choice.
// 429 and 5xx responses are retried with exponential backoff; other 4xx are not.
func (c *Client) Generate(ctx domain.Context, prompt string) (string, error) {
	if c.cfg.OpenRouterAPIKey == "" {
		return "", fmt.Errorf("op=openrouter.generate: OPENROUTER_API_KEY missing: %w", domain.ErrInvalidArgument)
	}
	log := obsctx.LoggerFromContext(ctx).With(slog.String("provider", provider), slog.String("model", c.cfg.OpenRouterModel))
	endpoint := c.cfg.OpenRouterBaseURL + "/chat/completions"

	b, err := json.Marshal(chatRequest{
		Model:       c.cfg.OpenRouterModel,
		Models:      c.fallbackModels(ctx),
		Temperature: c.cfg.AITemperature,
		MaxTokens:   c.cfg.AIMaxTokens,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("op=openrouter.generate: encode request: %w", err)
	}

	var out chatResponse
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Bearer "+c.cfg.OpenRouterAPIKey)
		r.Header.Set("Content-Type", "application/json")
		if c.cfg.OpenRouterReferer != "" {
			r.Header.Set("HTTP-Referer", c.cfg.OpenRouterReferer)
		}
		if c.cfg.OpenRouterTitle != "" {
			r.Header.Set("X-Title", c.cfg.OpenRouterTitle)
		}
		resp, err := c.hc.Do(r)
		observability.AIRequestsTotal.WithLabelValues(provider, opChat).Inc()
		observability.AIRequestDuration.WithLabelValues(provider, opChat).Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			log.Warn("ai provider rate limited", slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			return errRateLimited
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			log.Warn("ai provider 4xx", slog.Int("status", resp.StatusCode), slog.String("body", snippet(body)))
			return backoff.Permanent(fmt.Errorf("chat status %d: %w", resp.StatusCode, domain.ErrInvalidArgument))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			log.Error("ai provider non-2xx", slog.Int("status", resp.StatusCode), slog.String("body", snippet(body)))
			return fmt.Errorf("chat status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(body, &out); err != nil {
			log.Error("ai provider decode error", slog.Any("error", err))
			return err
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(c.getBackoffConfig(), ctx)); err != nil {
		log.Error("OpenRouter API failed after retries", slog.Any("error", err))
		return "", fmt.Errorf("op=openrouter.generate: %w", classify(err))
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("op=openrouter.generate: empty choices: %w", domain.ErrUpstreamTimeout)
	}
	if out.Model != "" && out.Model != c.cfg.OpenRouterModel {
		log.Info("model substitution", slog.String("actual_model", out.Model))
	}
	return out.Choices[0].Message.Content, nil
}

// classify attaches the domain sentinel that matches a final retry error.
// Exhausted 5xx retries, transport errors and cancellation all read as timeouts.
func classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return err
	case errors.Is(err, errRateLimited):
		return fmt.Errorf("%w: %w", domain.ErrUpstreamRateLimit, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
	}
}

func snippet(b []byte) string {
	if len(b) > snippetBytes {
		return string(b[:snippetBytes])
	}
	return string(b)
}
