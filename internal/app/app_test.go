package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efebarandurmaz/phoenix/internal/config"
	"github.com/efebarandurmaz/phoenix/internal/server"
	"github.com/efebarandurmaz/phoenix/internal/transform"
)

func demoConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("PHOENIX_LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestBuild_DemoMode(t *testing.T) {
	cfg := demoConfig(t)
	a, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close(context.Background())

	if a.Provider != nil {
		t.Errorf("expected no provider without an API key, got %s", a.Provider.Name())
	}
	if a.Analysis.AIEnabled() {
		t.Error("analysis should run in demo mode")
	}
	if a.Index.Enabled() {
		t.Error("similarity index should be disabled without an embedder")
	}

	res, err := a.Transform.Transform(context.Background(), transform.Request{
		SessionID: "s1", Filename: "inv.cbl", TargetLanguage: "Go", LegacyCode: "PROGRAM.",
	})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if res.SourceLanguage != "COBOL" {
		t.Errorf("source = %q", res.SourceLanguage)
	}
	events, _ := a.Lineage.History(context.Background(), "s1")
	if len(events) != 1 {
		t.Errorf("lineage events = %d, want 1", len(events))
	}
	if got := a.Activity.Stats().Transforms; got != 1 {
		t.Errorf("activity transforms = %d, want 1", got)
	}
}

func TestBuild_UnknownProvider(t *testing.T) {
	cfg := demoConfig(t)
	cfg.LLM.Provider = "klingon"
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestBuild_MissingCatalogFallback(t *testing.T) {
	cfg := demoConfig(t)
	cfg.Catalog.Fallback = "nope"
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Error("expected catalog error")
	}
}

func TestRegisterHealthAndShutdown(t *testing.T) {
	a, err := Build(context.Background(), demoConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	hs := server.NewHealthServer(Version)
	a.RegisterHealth(hs)
	r := chi.NewRouter()
	hs.Mount(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health = %d: %s", rec.Code, rec.Body.String())
	}

	sd := server.NewShutdownHandler(time.Second)
	a.RegisterShutdown(sd)
	sd.Shutdown()
	if !sd.WaitWithTimeout(2 * time.Second) {
		t.Error("shutdown hooks did not finish")
	}
}
