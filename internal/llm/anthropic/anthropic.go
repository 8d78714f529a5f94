// Package anthropic talks to the Anthropic Messages API.
package anthropic

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/efebarandurmaz/phoenix/internal/llm"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096
	requestTimeout   = 2 * time.Minute
	jsonInstruction  = "Respond with a single JSON object and nothing else."
)

// Client implements llm.Provider. It cannot embed.
type Client struct {
	model string
	http  *resty.Client
}

// New returns a client for model. An empty baseURL uses the public API.
func New(apiKey, model, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		model: model,
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(requestTimeout).
			SetHeader("x-api-key", apiKey).
			SetHeader("anthropic-version", apiVersion),
	}
}

func (c *Client) Name() string { return "anthropic" }

// SupportsEmbeddings reports false; pair Anthropic with an OpenAI-compatible
// embedding provider for similarity search.
func (c *Client) SupportsEmbeddings() bool { return false }

type message struct {
	Role    llm.Role `json:"role"`
	Content string   `json:"content"`
}

type messagesRequest struct {
	Model         string    `json:"model"`
	MaxTokens     int       `json:"max_tokens"`
	System        string    `json:"system,omitempty"`
	Messages      []message `json:"messages"`
	Temperature   *float64  `json:"temperature,omitempty"`
	TopP          *float64  `json:"top_p,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *Client) buildRequest(prompt *llm.Prompt, opts *llm.RequestOptions) messagesRequest {
	req := messagesRequest{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
		System:    prompt.SystemPrompt,
	}
	// The Messages API takes the system prompt separately and rejects a
	// system role inside messages.
	for _, m := range prompt.Messages {
		if m.Role == llm.RoleSystem {
			req.System = strings.TrimSpace(req.System + "\n" + m.Content)
			continue
		}
		req.Messages = append(req.Messages, message{Role: m.Role, Content: m.Content})
	}
	if opts == nil {
		return req
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	req.Temperature = opts.Temperature
	req.TopP = opts.TopP
	req.StopSequences = opts.StopSeqs
	if opts.JSONMode {
		req.System = strings.TrimSpace(req.System + "\n" + jsonInstruction)
	}
	return req
}

func (c *Client) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	var out messagesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(c.buildRequest(prompt, opts)).
		SetResult(&out).
		Post("/messages")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, &llm.StatusError{Provider: c.Name(), Code: resp.StatusCode(), Body: resp.String()}
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "" || block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &llm.Response{
		Content:      text.String(),
		Model:        out.Model,
		InputTokens:  out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
		StopReason:   out.StopReason,
	}, nil
}

func (c *Client) Embed(context.Context, []string) ([][]float32, error) {
	return nil, llm.ErrEmbeddingUnsupported
}
