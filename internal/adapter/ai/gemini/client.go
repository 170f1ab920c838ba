// Package gemini implements a text generator backed by Google Gemini.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assessor/internal/config"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-assessor/internal/observability"
)

const (
	provider   = "gemini"
	opGenerate = "generate"
)

// Client implements domain.TextGenerator for Gemini models.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// New creates a Gemini client for cfg.GeminiModel.
func New(ctx context.Context, cfg config.Config) (*Client, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("op=gemini.new: GEMINI_API_KEY missing: %w", domain.ErrInvalidArgument)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("op=gemini.new: %w", err)
	}
	model := client.GenerativeModel(cfg.GeminiModel)
	model.SetTemperature(cfg.AITemperature)
	if cfg.AIMaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.AIMaxTokens))
	}
	return &Client{client: client, model: model, name: cfg.GeminiModel}, nil
}

// Generate sends prompt as a single text part.
func (c *Client) Generate(ctx domain.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	observability.AIRequestsTotal.WithLabelValues(provider, opGenerate).Inc()
	observability.AIRequestDuration.WithLabelValues(provider, opGenerate).Observe(time.Since(start).Seconds())
	if err != nil {
		obsctx.LoggerFromContext(ctx).Error("gemini generate failed",
			slog.String("provider", provider), slog.String("model", c.name), slog.Any("error", err))
		return "", fmt.Errorf("op=gemini.generate: %w: %w", domain.ErrUpstreamTimeout, err)
	}
	text, err := extractText(resp)
	if err != nil {
		return "", fmt.Errorf("op=gemini.generate: %w", err)
	}
	return text, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response: %w", domain.ErrUpstreamTimeout)
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("no content in response: %w", domain.ErrUpstreamTimeout)
	}
	var parts []string
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			parts = append(parts, string(t))
		}
	}
	return strings.Join(parts, ""), nil
}
