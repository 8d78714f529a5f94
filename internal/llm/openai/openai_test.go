package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/efebarandurmaz/phoenix/internal/llm"
)

func chatServer(t *testing.T, captured *map[string]any, auth *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth != nil {
			*auth = r.Header.Get("Authorization")
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, captured)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4-turbo-preview",
			"choices": []map[string]any{
				{"message": map[string]string{"content": `{"language":"COBOL"}`}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 34},
		})
	}))
}

func TestNew_Defaults(t *testing.T) {
	c := New("key", "model", "", "")
	if c.http.BaseURL != defaultBaseURL {
		t.Errorf("baseURL = %q", c.http.BaseURL)
	}
	if c.embedModel != defaultEmbedModel {
		t.Errorf("embedModel = %q", c.embedModel)
	}
	if c.Name() != "openai" {
		t.Errorf("Name() = %q", c.Name())
	}
	if New("k", "m", "http://x/v1/", "").http.BaseURL != "http://x/v1" {
		t.Error("trailing slash should be trimmed")
	}
}

func TestComplete_RequestAndResponse(t *testing.T) {
	var body map[string]any
	var auth string
	srv := chatServer(t, &body, &auth)
	defer srv.Close()

	c := New("sk-test", "gpt-4-turbo-preview", srv.URL, "")
	resp, err := c.Complete(context.Background(), &llm.Prompt{
		SystemPrompt: "system",
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "analyze"}},
	}, &llm.RequestOptions{
		MaxTokens:   llm.Int(1500),
		Temperature: llm.Float(0.3),
		JSONMode:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", auth)
	}
	if body["max_tokens"] != float64(1500) || body["temperature"] != 0.3 {
		t.Errorf("options not forwarded: %v", body)
	}
	rf, _ := body["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("response_format = %v", body["response_format"])
	}
	msgs := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Errorf("expected system + user messages, got %d", len(msgs))
	}

	if resp.Content != `{"language":"COBOL"}` || resp.StopReason != "stop" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 34 {
		t.Errorf("unexpected usage %+v", resp)
	}
}

func TestComplete_NoResponseFormatByDefault(t *testing.T) {
	var body map[string]any
	srv := chatServer(t, &body, nil)
	defer srv.Close()

	c := New("k", "m", srv.URL, "")
	if _, err := c.Complete(context.Background(), &llm.Prompt{Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}}}, nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["response_format"]; ok {
		t.Error("response_format should be omitted without JSONMode")
	}
	if body["max_tokens"] != float64(4096) {
		t.Errorf("default max_tokens = %v", body["max_tokens"])
	}
}

func TestComplete_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	c := New("k", "m", srv.URL, "")
	_, err := c.Complete(context.Background(), &llm.Prompt{}, nil)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected 429 error, got %v", err)
	}
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0.3}},
				{"index": 0, "embedding": []float32{0.1, 0.2}},
			},
		})
	}))
	defer srv.Close()

	c := New("k", "m", srv.URL, "")
	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 || len(vecs[0]) != 2 || len(vecs[1]) != 1 {
		t.Errorf("embeddings not in input order: %v", vecs)
	}
}

func TestEmbed_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1]}]}`))
	}))
	defer srv.Close()

	if _, err := New("k", "m", srv.URL, "").Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error when the server returns fewer vectors")
	}
}
