// Package openai talks to OpenAI-compatible chat and embedding APIs
// (OpenAI, Groq, Ollama, OpenRouter and friends).
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/efebarandurmaz/phoenix/internal/llm"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultEmbedModel = "text-embedding-3-small"
	defaultMaxTokens  = 4096
	requestTimeout    = 2 * time.Minute
)

// Client implements llm.Provider.
type Client struct {
	model      string
	embedModel string
	http       *resty.Client
}

// New returns a client. Empty baseURL and embedModel use OpenAI defaults.
func New(apiKey, model, baseURL, embedModel string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}
	h := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(requestTimeout)
	if apiKey != "" {
		h.SetAuthToken(apiKey)
	}
	return &Client{model: model, embedModel: embedModel, http: h}
}

func (c *Client) Name() string { return "openai" }

type chatMessage struct {
	Role    llm.Role `json:"role"`
	Content string   `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    *float64        `json:"temperature,omitempty"`
	TopP           *float64        `json:"top_p,omitempty"`
	Stop           []string        `json:"stop,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *Client) buildRequest(prompt *llm.Prompt, opts *llm.RequestOptions) chatRequest {
	req := chatRequest{Model: c.model, MaxTokens: defaultMaxTokens}
	if prompt.SystemPrompt != "" {
		req.Messages = append(req.Messages, chatMessage{Role: llm.RoleSystem, Content: prompt.SystemPrompt})
	}
	for _, m := range prompt.Messages {
		req.Messages = append(req.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	if opts == nil {
		return req
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	req.Temperature = opts.Temperature
	req.TopP = opts.TopP
	req.Stop = opts.StopSeqs
	if opts.JSONMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return req
}

func (c *Client) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(c.buildRequest(prompt, opts)).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, &llm.StatusError{Provider: c.Name(), Code: resp.StatusCode(), Body: resp.String()}
	}

	res := &llm.Response{
		Model:        out.Model,
		InputTokens:  out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
	}
	if len(out.Choices) > 0 {
		res.Content = out.Choices[0].Message.Content
		res.StopReason = out.Choices[0].FinishReason
	}
	return res, nil
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out embedResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"model": c.embedModel, "input": texts}).
		SetResult(&out).
		Post("/embeddings")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, &llm.StatusError{Provider: c.Name() + " embed", Code: resp.StatusCode(), Body: resp.String()}
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed: got %d vectors for %d inputs", len(out.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, d := range out.Data {
		idx := d.Index
		if idx < 0 || idx >= len(vectors) || vectors[idx] != nil {
			idx = i
		}
		vectors[idx] = d.Embedding
	}
	return vectors, nil
}
