// Package tokencount counts and trims prompt text in model tokens.
//
// Encodings come from tiktoken-go with the offline BPE loader, so counting
// never reaches the network. If an encoding still cannot be loaded the
// counter degrades to a four-characters-per-token estimate.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const charsPerToken = 4

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter counts tokens for one model family. It is safe for concurrent use.
type Counter struct {
	model string
	once  sync.Once
	enc   *tiktoken.Tiktoken
}

// NewCounter returns a counter for model; the encoding loads lazily.
func NewCounter(model string) *Counter {
	return &Counter{model: model}
}

func (c *Counter) encoding() *tiktoken.Tiktoken {
	c.once.Do(func() {
		normalized := normalizeModelName(c.model)
		enc, err := tiktoken.EncodingForModel(normalized)
		if err != nil {
			slog.Debug("falling back to cl100k_base encoding",
				slog.String("model", c.model),
				slog.String("normalized", normalized),
				slog.Any("error", err))
			enc, err = tiktoken.GetEncoding("cl100k_base")
			if err != nil {
				slog.Warn("token encoding unavailable, estimating", slog.Any("error", err))
				return
			}
		}
		c.enc = enc
	})
	return c.enc
}

// normalizeModelName converts provider model IDs to tiktoken-compatible names.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	model = strings.TrimSuffix(model, ":free")
	if strings.Contains(model, "gpt-3.5") {
		return "gpt-3.5-turbo"
	}
	// gpt-4, gemini, llama, claude and the rest are approximated with cl100k_base.
	return "gpt-4"
}

// Count returns the token count of text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	enc := c.encoding()
	if enc == nil {
		return (len(text) + charsPerToken - 1) / charsPerToken
	}
	return len(enc.Encode(text, nil, nil))
}

// Truncate returns text cut to at most maxTokens tokens. maxTokens <= 0 disables the limit.
func (c *Counter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 || text == "" {
		return text
	}
	enc := c.encoding()
	if enc == nil {
		limit := maxTokens * charsPerToken
		if len(text) <= limit {
			return text
		}
		return strings.ToValidUTF8(text[:limit], "")
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	slog.Debug("prompt input truncated",
		slog.Int("tokens", len(tokens)),
		slog.Int("max_tokens", maxTokens))
	return strings.ToValidUTF8(enc.Decode(tokens[:maxTokens]), "")
}

// Truncator adapts the counter to the func(string) string shape the pipeline takes.
func (c *Counter) Truncator(maxTokens int) func(string) string {
	return func(s string) string { return c.Truncate(s, maxTokens) }
}
