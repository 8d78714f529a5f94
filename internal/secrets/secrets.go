// Package secrets resolves credentials that are not set in configuration
// from the environment, a JSON file or HashiCorp Vault.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/efebarandurmaz/phoenix/internal/config"
)

// Keys resolved by Apply.
const (
	KeyLLMAPIKey     = "llm_api_key"
	KeyGraphPassword = "graph_password"
)

// ErrNotFound is returned when no backend holds a key.
var ErrNotFound = errors.New("secret not found")

// Provider is a read-only secret backend.
type Provider interface {
	Name() string
	Get(ctx context.Context, key string) (string, error)
}

// Manager reads from a primary backend, then the environment, and caches hits.
type Manager struct {
	primary  Provider
	fallback Provider

	mu    sync.RWMutex
	cache map[string]string
}

// NewManager builds the backend named by cfg.Provider.
func NewManager(cfg config.SecretsConfig) (*Manager, error) {
	env := NewEnvProvider(config.EnvPrefix + "_")
	m := &Manager{cache: make(map[string]string)}

	switch cfg.Provider {
	case "", "env":
		m.primary = env
		return m, nil
	case "file":
		p, err := NewFileProvider(cfg.File)
		if err != nil {
			return nil, err
		}
		m.primary = p
	case "vault":
		p, err := NewVaultProvider(VaultConfig{
			Address: cfg.VaultAddr,
			Token:   cfg.VaultToken,
			Mount:   cfg.VaultMount,
			Path:    cfg.VaultPath,
			Timeout: cfg.VaultTimeout,
		})
		if err != nil {
			return nil, err
		}
		m.primary = p
	default:
		return nil, fmt.Errorf("unknown secrets provider %q", cfg.Provider)
	}
	m.fallback = env
	return m, nil
}

// Get returns the value of key from the first backend that has it.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	val, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return val, nil
	}

	for _, p := range []Provider{m.primary, m.fallback} {
		if p == nil {
			continue
		}
		val, err := p.Get(ctx, key)
		if err == nil && val != "" {
			m.mu.Lock()
			m.cache[key] = val
			m.mu.Unlock()
			return val, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			logrus.WithFields(logrus.Fields{"component": "secrets", "backend": p.Name(), "key": key}).
				WithError(err).Warn("secret lookup failed")
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Apply fills credentials left empty in cfg. Keys no backend holds stay empty.
func Apply(ctx context.Context, cfg *config.Config) error {
	m, err := NewManager(cfg.Secrets)
	if err != nil {
		return err
	}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{KeyLLMAPIKey, &cfg.LLM.APIKey},
		{KeyGraphPassword, &cfg.Graph.Password},
	} {
		if *f.dst != "" {
			continue
		}
		if val, err := m.Get(ctx, f.key); err == nil {
			*f.dst = val
		}
	}
	return nil
}

// EnvProvider reads PREFIX_KEY, then KEY, upper-cased.
type EnvProvider struct {
	prefix string
}

func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(_ context.Context, key string) (string, error) {
	name := strings.ToUpper(key)
	if val := os.Getenv(p.prefix + name); val != "" {
		return val, nil
	}
	if val := os.Getenv(name); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}
