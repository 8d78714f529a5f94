package llm

import "context"

// Provider is a chat-completion backend used for file analysis and,
// when supported, upload embeddings.
type Provider interface {
	Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error)
	// Embed returns one vector per text, in input order. Backends without an
	// embeddings endpoint return ErrEmbeddingUnsupported.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// Response is a completed chat turn plus token accounting for rate limiting.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model,omitempty"`
	StopReason   string `json:"stop_reason,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}

// TotalTokens is the sum charged against a token budget.
func (r *Response) TotalTokens() int {
	if r == nil {
		return 0
	}
	return r.InputTokens + r.OutputTokens
}
