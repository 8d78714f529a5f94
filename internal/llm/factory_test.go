package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// scriptedProvider returns errs in order, then succeeds.
type scriptedProvider struct {
	mu     sync.Mutex
	errs   []error
	calls  int
	tokens int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) next() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.errs) == 0 {
		return nil
	}
	err := p.errs[0]
	p.errs = p.errs[1:]
	return err
}

func (p *scriptedProvider) Complete(ctx context.Context, _ *Prompt, _ *RequestOptions) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	return &Response{Content: "{}", InputTokens: p.tokens}, nil
}

func (p *scriptedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestFactoryCreate_NoneProvider(t *testing.T) {
	f := NewFactory()
	for _, name := range []string{"", "none"} {
		p, err := f.Create(ProviderConfig{Provider: name})
		if err != nil || p != nil {
			t.Errorf("%q: got %v, %v; want nil, nil", name, p, err)
		}
	}
}

func TestFactoryCreate_UnknownProvider(t *testing.T) {
	f := NewFactory()
	f.Register("b", func(ProviderConfig) (Provider, error) { return &scriptedProvider{}, nil })
	f.Register("a", func(ProviderConfig) (Provider, error) { return &scriptedProvider{}, nil })
	_, err := f.Create(ProviderConfig{Provider: "nope", APIKey: "k"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "registered: a, b") {
		t.Errorf("error should list sorted names: %v", err)
	}
}

func TestFactoryCreate_ConstructorError(t *testing.T) {
	f := NewFactory()
	boom := errors.New("boom")
	f.Register("x", func(ProviderConfig) (Provider, error) { return nil, boom })
	if _, err := f.Create(ProviderConfig{Provider: "x", APIKey: "k"}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped constructor error, got %v", err)
	}
}

func TestFactoryCreate_MissingKey(t *testing.T) {
	f := NewFactory()
	f.Register("openai", func(ProviderConfig) (Provider, error) { return &scriptedProvider{}, nil })
	p, err := f.Create(ProviderConfig{Provider: "openai"})
	if err != nil || p != nil {
		t.Errorf("hosted provider without key should be disabled, got %v, %v", p, err)
	}
}

func TestFactoryCreate_Wrapping(t *testing.T) {
	f := NewFactory()
	f.Register("x", func(ProviderConfig) (Provider, error) { return &scriptedProvider{}, nil })

	p, _ := f.Create(ProviderConfig{Provider: "x", APIKey: "k"})
	if _, ok := p.(*scriptedProvider); !ok {
		t.Errorf("no retry/limit config should return the bare provider, got %T", p)
	}

	p, _ = f.Create(ProviderConfig{Provider: "x", APIKey: "k", MaxRetries: 2})
	if _, ok := p.(*RetryProvider); !ok {
		t.Errorf("expected *RetryProvider, got %T", p)
	}

	p, _ = f.Create(ProviderConfig{Provider: "x", APIKey: "k", TokensPerMinute: 1000})
	if _, ok := p.(*RateLimitProvider); !ok {
		t.Errorf("expected *RateLimitProvider, got %T", p)
	}
}

func TestRequiresKey(t *testing.T) {
	for name, want := range map[string]bool{"openai": true, "anthropic": true, "groq": true, "ollama": false, "custom": false} {
		if got := RequiresKey(name); got != want {
			t.Errorf("RequiresKey(%q) = %v", name, got)
		}
	}
}
