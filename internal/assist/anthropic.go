// Package assist asks a language model to read an entity's panel text and
// propose field values. Proposals are only suggestions: the extraction engine
// validates them like any other candidate.
package assist

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadhunter/internal/extract"
	"github.com/sells-group/leadhunter/internal/resilience"
	"github.com/sells-group/leadhunter/pkg/anthropic"
)

const systemPrompt = `You read the text of one business listing panel from a maps site and extract the business's own details.
Ignore text that belongs to navigation, nearby places, ads, or help lines; the phone number must be this business's number.
Reply with ONLY a JSON object with exactly these keys:
{"store_name": "...", "rating": "4.5 or N/A", "reviews_count": "number or N/A", "phone": "... or Not found", "address": "... or Not found", "hours": "... or Not found", "website": "... or Not found"}`

// Config tunes the assistant.
type Config struct {
	Model         string
	MaxTokens     int64
	MaxInputChars int
	// RatePerSec paces model calls; zero or less means unlimited.
	RatePerSec       float64
	BreakerThreshold int
	Retry            resilience.RetryConfig
}

// DefaultConfig returns the assistant defaults.
func DefaultConfig() Config {
	return Config{
		Model:            "claude-haiku-4-5-20251001",
		MaxTokens:        512,
		MaxInputChars:    2000,
		RatePerSec:       2,
		BreakerThreshold: 3,
		Retry:            resilience.DefaultRetryConfig(),
	}
}

// Anthropic is an assistant backed by the Anthropic messages API.
type Anthropic struct {
	client  anthropic.Client
	cfg     Config
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewAnthropic creates an assistant. Zero-valued config fields take defaults.
func NewAnthropic(client anthropic.Client, cfg Config) *Anthropic {
	d := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = d.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = d.MaxTokens
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = d.MaxInputChars
	}
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("anthropic", "suggest")
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	return &Anthropic{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		breaker: resilience.NewBreaker("anthropic", cfg.BreakerThreshold),
	}
}

// Suggest proposes field values for one entity's text.
func (a *Anthropic) Suggest(ctx context.Context, text string) (extract.Suggestions, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "assist: rate limit wait")
	}

	req := anthropic.MessageRequest{
		Model:     a.cfg.Model,
		MaxTokens: a.cfg.MaxTokens,
		System:    []anthropic.SystemBlock{{Text: systemPrompt, CacheControl: &anthropic.CacheControl{TTL: "5m"}}},
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: fmt.Sprintf("Listing text:\n%s\n\nJSON:", truncateRunes(text, a.cfg.MaxInputChars)),
		}},
	}

	resp, err := resilience.Execute(ctx, a.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.DoVal(ctx, a.cfg.Retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return a.client.CreateMessage(ctx, req)
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "assist: suggest")
	}
	resp.Usage.LogCost(a.cfg.Model, "suggest")

	sugg, err := ParseSuggestion(resp.Text())
	if err != nil {
		return nil, err
	}
	zap.L().Debug("assist: suggestions", zap.Int("fields", len(sugg)))
	return sugg, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
