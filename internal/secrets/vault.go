package secrets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// VaultConfig locates one KV v2 secret holding every Phoenix key.
type VaultConfig struct {
	Address string
	Token   string
	Mount   string
	Path    string
	Timeout time.Duration
}

// VaultProvider reads a KV v2 secret once and serves its fields.
type VaultProvider struct {
	cfg    VaultConfig
	client *resty.Client

	once    sync.Once
	data    map[string]any
	loadErr error
}

type kvResponse struct {
	Data struct {
		Data map[string]any `json:"data"`
	} `json:"data"`
}

// NewVaultProvider validates cfg and prepares the HTTP client.
func NewVaultProvider(cfg VaultConfig) (*VaultProvider, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("vault address required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("vault token required")
	}
	if cfg.Mount == "" {
		cfg.Mount = "secret"
	}
	if cfg.Path == "" {
		cfg.Path = "phoenix"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.Address, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("X-Vault-Token", cfg.Token)
	return &VaultProvider{cfg: cfg, client: client}, nil
}

func (p *VaultProvider) Name() string { return "vault" }

func (p *VaultProvider) Get(ctx context.Context, key string) (string, error) {
	p.once.Do(func() { p.data, p.loadErr = p.load(ctx) })
	if p.loadErr != nil {
		return "", p.loadErr
	}
	val, ok := p.data[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if s, ok := val.(string); ok {
		return s, nil
	}
	return fmt.Sprint(val), nil
}

func (p *VaultProvider) load(ctx context.Context) (map[string]any, error) {
	var out kvResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/v1/%s/data/%s", p.cfg.Mount, p.cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("vault request: %w", err)
	}
	if resp.StatusCode() == 404 {
		return map[string]any{}, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("vault: %d %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if out.Data.Data == nil {
		return map[string]any{}, nil
	}
	return out.Data.Data, nil
}
