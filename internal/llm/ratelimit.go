package llm

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures client-side throttling. Zero fields disable
// the corresponding limit.
type RateLimitConfig struct {
	RequestsPerMinute int
	TokensPerMinute   int
	BurstSize         int
}

// RateLimitStats is a snapshot of limiter usage.
type RateLimitStats struct {
	Requests  int64 `json:"requests"`
	Tokens    int64 `json:"tokens"`
	Throttled int64 `json:"throttled"`
}

// RateLimitProvider throttles calls to inner using token buckets. Token
// usage is charged after each completion, so a large response delays the
// next request rather than the current one.
type RateLimitProvider struct {
	inner    Provider
	requests *rate.Limiter
	tokens   *rate.Limiter
	burst    int

	mu    sync.Mutex
	stats RateLimitStats
}

// NewRateLimitProvider wraps inner. A nil config disables throttling.
func NewRateLimitProvider(inner Provider, config *RateLimitConfig) *RateLimitProvider {
	p := &RateLimitProvider{inner: inner}
	if config == nil {
		return p
	}
	burst := config.BurstSize
	if burst <= 0 {
		burst = 1
	}
	if config.RequestsPerMinute > 0 {
		p.requests = rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60), burst)
	}
	if config.TokensPerMinute > 0 {
		p.burst = config.TokensPerMinute
		p.tokens = rate.NewLimiter(rate.Limit(float64(config.TokensPerMinute)/60), config.TokensPerMinute)
	}
	return p
}

func (p *RateLimitProvider) Name() string { return p.inner.Name() }

func (p *RateLimitProvider) SupportsEmbeddings() bool { return CanEmbed(p.inner) }

// Unwrap returns the wrapped provider.
func (p *RateLimitProvider) Unwrap() Provider { return p.inner }

func (p *RateLimitProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := p.inner.Complete(ctx, prompt, opts)
	if err == nil && resp != nil {
		p.charge(resp.TotalTokens())
	}
	return resp, err
}

func (p *RateLimitProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.Embed(ctx, texts)
}

// Stats returns a snapshot of usage counters.
func (p *RateLimitProvider) Stats() RateLimitStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *RateLimitProvider) wait(ctx context.Context) error {
	throttled := false
	if p.requests != nil {
		if p.requests.Tokens() < 1 {
			throttled = true
		}
		if err := p.requests.Wait(ctx); err != nil {
			return err
		}
	}
	if p.tokens != nil {
		if p.tokens.Tokens() < 1 {
			throttled = true
		}
		if err := p.tokens.Wait(ctx); err != nil {
			return err
		}
	}
	p.mu.Lock()
	p.stats.Requests++
	if throttled {
		p.stats.Throttled++
	}
	p.mu.Unlock()
	return nil
}

func (p *RateLimitProvider) charge(n int) {
	p.mu.Lock()
	p.stats.Tokens += int64(n)
	p.mu.Unlock()
	if p.tokens == nil || n <= 1 {
		return
	}
	// One token was already taken by wait.
	n--
	if n > p.burst {
		n = p.burst
	}
	p.tokens.ReserveN(time.Now(), n)
}
