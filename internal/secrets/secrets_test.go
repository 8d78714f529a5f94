package secrets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/efebarandurmaz/phoenix/internal/config"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("PHOENIX_GRAPH_PASSWORD", "prefixed")
	t.Setenv("LLM_API_KEY", "bare")
	p := NewEnvProvider("PHOENIX_")

	if v, _ := p.Get(context.Background(), KeyGraphPassword); v != "prefixed" {
		t.Errorf("graph_password = %q", v)
	}
	if v, _ := p.Get(context.Background(), KeyLLMAPIKey); v != "bare" {
		t.Errorf("llm_api_key = %q", v)
	}
	if _, err := p.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(`{"llm_api_key":"from-file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := p.Get(context.Background(), KeyLLMAPIKey); v != "from-file" {
		t.Errorf("got %q", v)
	}

	if _, err := NewFileProvider(filepath.Join(t.TempDir(), "missing.json")); err != nil {
		t.Errorf("missing file should be empty, got %v", err)
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte("{"), 0o600)
	if _, err := NewFileProvider(bad); err == nil {
		t.Error("expected parse error")
	}
}

func vaultServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Path != "/v1/secret/data/phoenix" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"data":{"llm_api_key":"sk-vault","graph_password":"neo"}}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVaultProvider_ReadsOnce(t *testing.T) {
	var calls int32
	srv := vaultServer(t, &calls)
	p, err := NewVaultProvider(VaultConfig{Address: srv.URL, Token: "root"})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if v, _ := p.Get(ctx, KeyLLMAPIKey); v != "sk-vault" {
		t.Errorf("llm_api_key = %q", v)
	}
	if v, _ := p.Get(ctx, KeyGraphPassword); v != "neo" {
		t.Errorf("graph_password = %q", v)
	}
	if _, err := p.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("vault called %d times, want 1", n)
	}
}

func TestVaultProvider_Forbidden(t *testing.T) {
	var calls int32
	srv := vaultServer(t, &calls)
	p, _ := NewVaultProvider(VaultConfig{Address: srv.URL, Token: "wrong"})
	if _, err := p.Get(context.Background(), KeyLLMAPIKey); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected vault error, got %v", err)
	}
	if _, err := NewVaultProvider(VaultConfig{Address: srv.URL}); err == nil {
		t.Error("expected error without token")
	}
}

func TestApply(t *testing.T) {
	var calls int32
	srv := vaultServer(t, &calls)
	cfg := &config.Config{}
	cfg.LLM.APIKey = "explicit"
	cfg.Secrets = config.SecretsConfig{Provider: "vault", VaultAddr: srv.URL, VaultToken: "root"}

	if err := Apply(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "explicit" {
		t.Errorf("explicit key overwritten: %q", cfg.LLM.APIKey)
	}
	if cfg.Graph.Password != "neo" {
		t.Errorf("graph password = %q", cfg.Graph.Password)
	}
}

func TestManager_FallsBackToEnv(t *testing.T) {
	t.Setenv("PHOENIX_LLM_API_KEY", "from-env")
	m, err := NewManager(config.SecretsConfig{Provider: "file", File: filepath.Join(t.TempDir(), "none.json")})
	if err != nil {
		t.Fatal(err)
	}
	if v, err := m.Get(context.Background(), KeyLLMAPIKey); err != nil || v != "from-env" {
		t.Errorf("got %q, %v", v, err)
	}
	if _, err := NewManager(config.SecretsConfig{Provider: "klingon"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
