package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimit_NilConfigPassesThrough(t *testing.T) {
	inner := &scriptedProvider{}
	p := NewRateLimitProvider(inner, nil)
	for i := 0; i < 10; i++ {
		if _, err := p.Complete(context.Background(), &Prompt{}, nil); err != nil {
			t.Fatal(err)
		}
	}
	if s := p.Stats(); s.Requests != 10 || s.Throttled != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestRateLimit_BurstThenThrottle(t *testing.T) {
	inner := &scriptedProvider{}
	p := NewRateLimitProvider(inner, &RateLimitConfig{RequestsPerMinute: 1, BurstSize: 2})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := p.Complete(ctx, &Prompt{}, nil); err != nil {
			t.Fatalf("burst call %d: %v", i, err)
		}
	}
	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := p.Complete(ctx, &Prompt{}, nil); err == nil {
		t.Fatal("third call should wait past the deadline")
	}
	if inner.Calls() != 2 {
		t.Errorf("inner calls = %d, want 2", inner.Calls())
	}
}

func TestRateLimit_TokenBudget(t *testing.T) {
	inner := &scriptedProvider{tokens: 500}
	p := NewRateLimitProvider(inner, &RateLimitConfig{TokensPerMinute: 500})
	if _, err := p.Complete(context.Background(), &Prompt{}, nil); err != nil {
		t.Fatal(err)
	}
	if got := p.Stats().Tokens; got != 500 {
		t.Errorf("tokens = %d, want 500", got)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Complete(ctx, &Prompt{}, nil); err == nil {
		t.Error("exhausted token budget should block")
	}
}

func TestRateLimit_Cancelled(t *testing.T) {
	p := NewRateLimitProvider(&scriptedProvider{}, &RateLimitConfig{RequestsPerMinute: 60})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Embed(ctx, []string{"x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
