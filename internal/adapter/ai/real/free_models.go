package real

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

type catalogModel struct {
	ID      string `json:"id"`
	Pricing struct {
		Prompt     string `json:"prompt"`
		Completion string `json:"completion"`
		Request    string `json:"request"`
		Image      string `json:"image"`
	} `json:"pricing"`
}

// Auto-routing and known paid families are never used as free fallbacks.
var excludedModelPatterns = []string{
	"auto", "gpt-4", "gpt-5", "claude-3", "gemini-pro", "mistral-large", "command-",
}

// FreeModelCatalog lists zero-priced OpenRouter models, refreshed at most once per refresh interval.
type FreeModelCatalog struct {
	hc      *http.Client
	baseURL string
	apiKey  string
	refresh time.Duration

	mu        sync.Mutex
	ids       []string
	lastFetch time.Time
	now       func() time.Time
}

// NewFreeModelCatalog builds a catalog backed by GET {baseURL}/models.
func NewFreeModelCatalog(hc *http.Client, baseURL, apiKey string, refresh time.Duration) *FreeModelCatalog {
	if refresh <= 0 {
		refresh = time.Hour
	}
	return &FreeModelCatalog{hc: hc, baseURL: baseURL, apiKey: apiKey, refresh: refresh, now: time.Now}
}

// ModelIDs returns the free model IDs. A failed refresh keeps serving the previous list.
func (c *FreeModelCatalog) ModelIDs(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ids != nil && c.now().Sub(c.lastFetch) < c.refresh {
		return c.ids, nil
	}
	ids, err := c.fetch(ctx)
	if err != nil {
		if c.ids != nil {
			slog.Warn("using cached free models after refresh failure", slog.Any("error", err), slog.Int("cached_count", len(c.ids)))
			return c.ids, nil
		}
		return nil, err
	}
	c.ids, c.lastFetch = ids, c.now()
	slog.Info("free models refreshed", slog.Int("count", len(ids)))
	return ids, nil
}

func (c *FreeModelCatalog) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("op=openrouter.models: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("op=openrouter.models: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("op=openrouter.models: status %d: %s", resp.StatusCode, snippet(body))
	}
	var out struct {
		Data []catalogModel `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("op=openrouter.models: decode: %w", err)
	}
	ids := make([]string, 0, len(out.Data))
	for _, m := range out.Data {
		if isFreeModel(m) {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

func isFreeModel(m catalogModel) bool {
	id := strings.ToLower(m.ID)
	if id == "" {
		return false
	}
	for _, p := range excludedModelPatterns {
		if strings.Contains(id, p) {
			return false
		}
	}
	for _, price := range []string{m.Pricing.Prompt, m.Pricing.Completion, m.Pricing.Request, m.Pricing.Image} {
		switch price {
		case "", "0", "0.0":
		default:
			return false
		}
	}
	return true
}
