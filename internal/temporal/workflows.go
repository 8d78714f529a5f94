package temporal

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/efebarandurmaz/phoenix/internal/analysis"
	"github.com/efebarandurmaz/phoenix/internal/stats"
	"github.com/efebarandurmaz/phoenix/internal/transform"
)

// BatchFile is one file of a batch.
type BatchFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// BatchInput holds the workflow parameters.
type BatchInput struct {
	SessionID string      `json:"sessionId"`
	Target    string      `json:"targetLanguage"`
	Files     []BatchFile `json:"files"`
	Analyze   bool        `json:"analyze"`
	UseDemo   bool        `json:"useDemo"`
}

// FileOutcome is the per-file result of a batch.
type FileOutcome struct {
	Filename  string            `json:"filename"`
	Transform *transform.Result `json:"transform,omitempty"`
	Analysis  *analysis.Result  `json:"analysis,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Summary aggregates the successful transforms of a batch.
type Summary struct {
	Files                  int `json:"files"`
	Succeeded              int `json:"succeeded"`
	Failed                 int `json:"failed"`
	OriginalLines          int `json:"originalLines"`
	TransformedLines       int `json:"transformedLines"`
	AverageCodeReduction   int `json:"averageCodeReduction"`
	AggregateLineReduction int `json:"aggregateLineReduction"`
}

// BatchOutput holds the workflow result.
type BatchOutput struct {
	SessionID string        `json:"sessionId"`
	Target    string        `json:"targetLanguage"`
	Results   []FileOutcome `json:"results"`
	Summary   Summary       `json:"summary"`
}

// BatchTransformWorkflow transforms every file of a batch in parallel and,
// when requested, analyzes each one. A failing file is reported in its
// outcome and does not fail the workflow.
func BatchTransformWorkflow(ctx workflow.Context, input BatchInput) (*BatchOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ErrTypeBadInput},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	var a *Activities
	transforms := make([]workflow.Future, len(input.Files))
	analyses := make([]workflow.Future, len(input.Files))
	for i, f := range input.Files {
		transforms[i] = workflow.ExecuteActivity(ctx, a.TransformActivity, TransformInput{
			SessionID: input.SessionID,
			Filename:  f.Name,
			Target:    input.Target,
			Code:      f.Content,
		})
		if input.Analyze {
			analyses[i] = workflow.ExecuteActivity(ctx, a.AnalyzeActivity, AnalyzeInput{
				SessionID: input.SessionID,
				Filename:  f.Name,
				Code:      f.Content,
				UseDemo:   input.UseDemo,
			})
		}
	}

	out := &BatchOutput{SessionID: input.SessionID, Target: input.Target, Results: make([]FileOutcome, len(input.Files))}
	for i, f := range input.Files {
		outcome := FileOutcome{Filename: f.Name}
		var res transform.Result
		if err := transforms[i].Get(ctx, &res); err != nil {
			logger.Warn("transform failed", "filename", f.Name, "error", err)
			outcome.Error = err.Error()
		} else {
			outcome.Transform = &res
		}
		if analyses[i] != nil {
			var ar analysis.Result
			if err := analyses[i].Get(ctx, &ar); err == nil && ar.Filename != "" {
				outcome.Analysis = &ar
			}
		}
		out.Results[i] = outcome
	}
	out.Summary = Summarize(out.Results)
	return out, nil
}

// Summarize aggregates outcomes. AverageCodeReduction is the rounded mean of
// per-file reductions; AggregateLineReduction compares total line counts.
func Summarize(results []FileOutcome) Summary {
	s := Summary{Files: len(results)}
	reductionSum := 0
	for _, r := range results {
		if r.Transform == nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.OriginalLines += r.Transform.Stats.OriginalLines
		s.TransformedLines += r.Transform.Stats.TransformedLines
		reductionSum += r.Transform.Stats.CodeReductionPercent
	}
	if s.Succeeded > 0 {
		s.AverageCodeReduction = stats.Round(float64(reductionSum) / float64(s.Succeeded))
	}
	s.AggregateLineReduction = stats.Reduction(s.OriginalLines, s.TransformedLines)
	return s
}
