package llm

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ProviderConfig holds everything needed to build a provider.
type ProviderConfig struct {
	Provider   string // "openai", "anthropic", an OpenAI-compatible preset, "custom" or "none"
	APIKey     string
	Model      string
	BaseURL    string
	EmbedModel string

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	RequestsPerMinute int
	TokensPerMinute   int
}

// ProviderConstructor builds a Provider from config.
type ProviderConstructor func(cfg ProviderConfig) (Provider, error)

// ProviderFactory creates providers by name.
type ProviderFactory struct {
	constructors map[string]ProviderConstructor
}

// NewFactory returns an empty factory.
func NewFactory() *ProviderFactory {
	return &ProviderFactory{constructors: make(map[string]ProviderConstructor)}
}

// Register adds a constructor under name, replacing any previous one.
func (f *ProviderFactory) Register(name string, ctor ProviderConstructor) {
	f.constructors[name] = ctor
}

// Create builds the configured provider. It returns nil, nil when the
// provider is "none" or empty, or when no API key is set for a hosted
// provider; callers treat that as "AI unavailable".
//
// The result is throttled when rate limits are set and retried when
// MaxRetries or Timeout is set.
func (f *ProviderFactory) Create(cfg ProviderConfig) (Provider, error) {
	if cfg.Provider == "" || cfg.Provider == "none" {
		return nil, nil
	}
	ctor, ok := f.constructors[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider %q (registered: %s)", cfg.Provider, strings.Join(f.Names(), ", "))
	}
	if cfg.APIKey == "" && RequiresKey(cfg.Provider) {
		return nil, nil
	}

	p, err := ctor(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", cfg.Provider, err)
	}
	if cfg.RequestsPerMinute > 0 || cfg.TokensPerMinute > 0 {
		p = NewRateLimitProvider(p, &RateLimitConfig{
			RequestsPerMinute: cfg.RequestsPerMinute,
			TokensPerMinute:   cfg.TokensPerMinute,
		})
	}
	if cfg.Timeout > 0 || cfg.MaxRetries > 0 {
		p = WrapWithRetry(p, cfg)
	}
	return p, nil
}

// Names returns the registered provider names, sorted.
func (f *ProviderFactory) Names() []string {
	out := make([]string, 0, len(f.constructors))
	for k := range f.constructors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RequiresKey reports whether name is a hosted provider that cannot be
// called without an API key.
func RequiresKey(name string) bool {
	return name != "ollama" && name != "custom"
}

// KnownProviders maps preset names to their default base URLs. Presets other
// than anthropic speak the OpenAI chat completions protocol.
var KnownProviders = map[string]string{
	"anthropic":   "https://api.anthropic.com/v1",
	"openai":      "https://api.openai.com/v1",
	"groq":        "https://api.groq.com/openai/v1",
	"huggingface": "https://api-inference.huggingface.co/v1",
	"ollama":      "http://localhost:11434/v1",
	"together":    "https://api.together.xyz/v1",
	"deepseek":    "https://api.deepseek.com/v1",
}
