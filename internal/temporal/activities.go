package temporal

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	sdktemporal "go.temporal.io/sdk/temporal"

	"github.com/efebarandurmaz/phoenix/internal/analysis"
	"github.com/efebarandurmaz/phoenix/internal/transform"
)

// ErrTypeBadInput marks activity failures that retrying cannot fix.
const ErrTypeBadInput = "BadInput"

// TransformInput is the input to TransformActivity.
type TransformInput struct {
	SessionID string
	Filename  string
	Target    string
	Code      string
}

// AnalyzeInput is the input to AnalyzeActivity.
type AnalyzeInput struct {
	SessionID string
	Filename  string
	Code      string
	UseDemo   bool
}

// Activities holds the services activities run against.
type Activities struct {
	Transform *transform.Service
	Analysis  *analysis.Service
}

func (a *Activities) TransformActivity(ctx context.Context, in TransformInput) (*transform.Result, error) {
	activity.GetLogger(ctx).Debug("transform", "filename", in.Filename, "target", in.Target)
	res, err := a.Transform.Transform(ctx, transform.Request{
		SessionID:      in.SessionID,
		Filename:       in.Filename,
		TargetLanguage: in.Target,
		LegacyCode:     in.Code,
	})
	if errors.Is(err, transform.ErrMissingParameter) {
		return nil, sdktemporal.NewNonRetryableApplicationError(err.Error(), ErrTypeBadInput, err)
	}
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", in.Filename, err)
	}
	return res, nil
}

func (a *Activities) AnalyzeActivity(ctx context.Context, in AnalyzeInput) (*analysis.Result, error) {
	if a.Analysis == nil {
		return nil, sdktemporal.NewNonRetryableApplicationError("analysis not configured", ErrTypeBadInput, nil)
	}
	res := a.Analysis.Analyze(ctx, in.SessionID, []analysis.File{{Name: in.Filename, Content: in.Code}}, in.UseDemo)
	if len(res) == 0 {
		return nil, nil
	}
	return &res[0], nil
}
