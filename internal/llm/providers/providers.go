// Package providers wires the built-in LLM clients into a factory.
package providers

import (
	"github.com/efebarandurmaz/phoenix/internal/llm"
	"github.com/efebarandurmaz/phoenix/internal/llm/anthropic"
	"github.com/efebarandurmaz/phoenix/internal/llm/openai"
)

// Register adds anthropic, openai and every OpenAI-compatible preset to f.
func Register(f *llm.ProviderFactory) {
	f.Register("anthropic", func(c llm.ProviderConfig) (llm.Provider, error) {
		return anthropic.New(c.APIKey, c.Model, c.BaseURL), nil
	})
	f.Register("openai", func(c llm.ProviderConfig) (llm.Provider, error) {
		return openai.New(c.APIKey, c.Model, c.BaseURL, c.EmbedModel), nil
	})
	for name, url := range llm.KnownProviders {
		if name == "anthropic" || name == "openai" {
			continue
		}
		url := url
		f.Register(name, func(c llm.ProviderConfig) (llm.Provider, error) {
			base := c.BaseURL
			if base == "" {
				base = url
			}
			return openai.New(c.APIKey, c.Model, base, c.EmbedModel), nil
		})
	}
	f.Register("custom", func(c llm.ProviderConfig) (llm.Provider, error) {
		return openai.New(c.APIKey, c.Model, c.BaseURL, c.EmbedModel), nil
	})
}

// NewFactory returns a factory with every built-in provider registered.
func NewFactory() *llm.ProviderFactory {
	f := llm.NewFactory()
	Register(f)
	return f
}
