package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/efebarandurmaz/phoenix/internal/llm"
	"github.com/efebarandurmaz/phoenix/internal/observability"
)

const systemPrompt = "You are a senior software architect specializing in legacy code analysis. Provide accurate, detailed assessments."

const promptTemplate = `Analyze this %[1]s code and provide a detailed assessment in JSON format.

Code:
` + "```" + `
%[2]s
` + "```" + `

Return a JSON object with this exact structure:
{
  "language": "%[1]s",
  "languageVersion": "detected version",
  "linesOfCode": number,
  "complexity": number (1-10),
  "maintainability": number (0-100),
  "businessLogic": ["key functionality 1", "key functionality 2", ...],
  "dependencies": ["dependency 1", "dependency 2", ...],
  "securityIssues": [{"severity": "critical|high|medium|low", "description": "issue", "line": number}],
  "technicalDebt": ["debt item 1", "debt item 2", ...],
  "estimatedMigrationTime": "X-Y weeks",
  "recommendedTarget": "suggested modern framework",
  "migrationComplexity": "Low|Medium|High"
}

Return ONLY valid JSON, no other text.`

// ErrNoProvider is wrapped in an UpstreamError when no LLM is configured.
var ErrNoProvider = errors.New("no LLM provider configured")

// LLMAnalyzer asks a chat-completion model for a Record.
type LLMAnalyzer struct {
	provider llm.Provider
	model    string
}

// NewLLMAnalyzer wraps provider. model is only used for span attributes.
func NewLLMAnalyzer(provider llm.Provider, model string) *LLMAnalyzer {
	return &LLMAnalyzer{provider: provider, model: model}
}

// BuildPrompt returns the prompt sent for code in lang.
func BuildPrompt(code, lang string) *llm.Prompt {
	return &llm.Prompt{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(promptTemplate, lang, code)},
		},
	}
}

func (a *LLMAnalyzer) Analyze(ctx context.Context, code, lang string) (*Record, error) {
	if a == nil || a.provider == nil {
		return nil, &UpstreamError{Op: "provider", Err: ErrNoProvider}
	}

	ctx, span := observability.StartLLMSpan(ctx, a.provider.Name(), a.model)
	defer span.End()
	start := time.Now()

	resp, err := a.provider.Complete(ctx, BuildPrompt(code, lang), &llm.RequestOptions{
		MaxTokens:   llm.Int(1500),
		Temperature: llm.Float(0.3),
		JSONMode:    true,
	})
	dur := time.Since(start)
	if err != nil {
		observability.Metrics().RecordLLMRequest(dur, 0, err)
		observability.RecordError(span, err)
		return nil, &UpstreamError{Op: "complete", Err: err}
	}
	observability.Metrics().RecordLLMRequest(dur, resp.InputTokens+resp.OutputTokens, nil)
	observability.RecordLLMMetrics(span, resp.InputTokens, resp.OutputTokens, dur)

	rec, err := ParseRecord(resp.Content)
	if err != nil {
		observability.RecordError(span, err)
		return nil, &UpstreamError{Op: "decode", Err: err}
	}
	if rec.Language == "" {
		rec.Language = lang
	}
	return rec, nil
}

// ParseRecord decodes a model reply into a Record. Prose or fences around
// the JSON object are tolerated; complexity and maintainability are clamped
// to their ranges.
func ParseRecord(content string) (*Record, error) {
	raw, err := llm.ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}
	var rec Record
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decoding analysis: %w", err)
	}
	rec.Complexity = clamp(rec.Complexity, 1, 10)
	rec.Maintainability = clamp(rec.Maintainability, 0, 100)
	return &rec, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
