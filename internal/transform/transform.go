// Package transform implements the transform operation: classify the file,
// select its fixture family, resolve the target rendition and compute stats.
package transform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/efebarandurmaz/phoenix/internal/catalog"
	"github.com/efebarandurmaz/phoenix/internal/dispatch"
	"github.com/efebarandurmaz/phoenix/internal/language"
	"github.com/efebarandurmaz/phoenix/internal/observability"
	"github.com/efebarandurmaz/phoenix/internal/session"
	"github.com/efebarandurmaz/phoenix/internal/stats"
)

// ErrMissingParameter is returned when a required request field is empty.
var ErrMissingParameter = errors.New("missing required parameters")

// Request is the input to Transform.
type Request struct {
	SessionID      string `json:"sessionId"`
	Filename       string `json:"filename"`
	TargetLanguage string `json:"targetLanguage"`
	LegacyCode     string `json:"legacyCode"`
}

// Result is the outcome of Transform.
type Result struct {
	SessionID       string            `json:"sessionId,omitempty"`
	Filename        string            `json:"filename"`
	SourceLanguage  string            `json:"sourceLanguage"`
	TargetLanguage  string            `json:"targetLanguage"`
	LegacyCode      string            `json:"legacyCode"`
	TransformedCode string            `json:"transformedCode"`
	Stats           stats.Stats       `json:"stats"`
	Strategy        dispatch.Strategy `json:"strategy"`
	Fixture         string            `json:"fixture"`
	FallbackFixture bool              `json:"fallbackFixture"`
}

// LineageEvent describes one completed transform.
type LineageEvent struct {
	SessionID      string
	Filename       string
	SourceLanguage string
	Family         string
	TargetLanguage string
	Strategy       string
	Reduction      int
	At             time.Time
}

// LineageRecorder persists transform lineage. Failures never fail a transform.
type LineageRecorder interface {
	RecordTransform(ctx context.Context, ev LineageEvent) error
}

// Service runs transforms.
type Service struct {
	catalog  *catalog.Registry
	resolver *dispatch.Resolver
	sessions session.Store
	lineage  []LineageRecorder
	log      *logrus.Entry
}

// Option configures a Service.
type Option func(*Service)

// WithSessions lets requests without legacy code read it from a session.
func WithSessions(s session.Store) Option {
	return func(svc *Service) { svc.sessions = s }
}

// WithLineage records every transform to l. It may be given more than once.
func WithLineage(l LineageRecorder) Option {
	return func(svc *Service) {
		if l != nil {
			svc.lineage = append(svc.lineage, l)
		}
	}
}

// NewService creates a Service. A nil resolver uses every built-in renderer.
func NewService(reg *catalog.Registry, resolver *dispatch.Resolver, opts ...Option) *Service {
	if resolver == nil {
		resolver = dispatch.NewDefaultResolver()
	}
	svc := &Service{
		catalog:  reg,
		resolver: resolver,
		log:      logrus.WithField("component", "transform"),
	}
	for _, o := range opts {
		o(svc)
	}
	return svc
}

// Resolver returns the dispatch resolver in use.
func (s *Service) Resolver() *dispatch.Resolver { return s.resolver }

// Transform resolves req. Filename and TargetLanguage are required. An empty
// LegacyCode is read from the session when one is given; otherwise it is
// transformed as empty input.
func (s *Service) Transform(ctx context.Context, req Request) (*Result, error) {
	if req.Filename == "" || req.TargetLanguage == "" {
		return nil, ErrMissingParameter
	}
	start := time.Now()
	ctx, span := observability.StartTransformSpan(ctx, req.Filename, req.TargetLanguage)
	defer span.End()

	code := req.LegacyCode
	if code == "" && req.SessionID != "" && s.sessions != nil {
		f, err := s.sessions.File(ctx, req.SessionID, req.Filename)
		switch {
		case err == nil:
			code = f.Content
		case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrFileNotFound):
			observability.RecordError(span, err)
			return nil, fmt.Errorf("%w: %v", ErrMissingParameter, err)
		default:
			observability.RecordError(span, err)
			return nil, fmt.Errorf("reading session file: %w", err)
		}
	}

	res := s.resolve(req.Filename, req.TargetLanguage, code)
	res.SessionID = req.SessionID

	dur := time.Since(start)
	observability.RecordTransformResult(span, res.SourceLanguage, res.Fixture, string(res.Strategy), res.FallbackFixture, res.Stats.CodeReductionPercent)
	observability.Metrics().RecordTransform(string(res.Strategy), res.FallbackFixture, dur)
	observability.Audit().LogTransform(req.SessionID, req.Filename, res.SourceLanguage, req.TargetLanguage, string(res.Strategy), res.FallbackFixture, dur)

	s.log.WithFields(logrus.Fields{
		"session_id": req.SessionID,
		"filename":   req.Filename,
		"target":     req.TargetLanguage,
		"strategy":   res.Strategy,
		"fixture":    res.Fixture,
	}).Debug("transform resolved")

	if len(s.lineage) > 0 {
		ev := LineageEvent{
			SessionID:      req.SessionID,
			Filename:       req.Filename,
			SourceLanguage: res.SourceLanguage,
			Family:         res.Fixture,
			TargetLanguage: req.TargetLanguage,
			Strategy:       string(res.Strategy),
			Reduction:      res.Stats.CodeReductionPercent,
			At:             start.UTC(),
		}
		for _, l := range s.lineage {
			if err := l.RecordTransform(ctx, ev); err != nil {
				s.log.WithError(err).WithField("filename", req.Filename).Warn("lineage record failed")
			}
		}
	}
	return res, nil
}

// Resolve runs the pure transform pipeline without sessions or side effects.
func (s *Service) Resolve(filename, target, code string) *Result {
	return s.resolve(filename, target, code)
}

func (s *Service) resolve(filename, target, code string) *Result {
	label := language.Classify(filename)
	family := language.FamilyOf(label)
	fixture, matched := s.catalog.Resolve(string(family))
	r := s.resolver.Resolve(fixture, target, string(label))
	return &Result{
		Filename:        filename,
		SourceLanguage:  string(label),
		TargetLanguage:  target,
		LegacyCode:      code,
		TransformedCode: r.Code,
		Stats:           stats.Compute(code, r.Code),
		Strategy:        r.Strategy,
		Fixture:         fixture.Key,
		FallbackFixture: !matched,
	}
}
