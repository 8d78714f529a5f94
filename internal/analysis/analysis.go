// Package analysis produces assessment records for uploaded legacy files.
//
// A configured Analyzer (normally an LLM) is tried first; any failure falls
// back to the catalog's prepared record for the file's language family.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/phoenix/internal/catalog"
	"github.com/efebarandurmaz/phoenix/internal/language"
	"github.com/efebarandurmaz/phoenix/internal/observability"
)

// Record is the structured assessment of one file.
type Record = catalog.AnalysisRecord

// SecurityIssue is one finding in a Record.
type SecurityIssue = catalog.SecurityIssue

const (
	// DefaultTimeout bounds a single analyzer call.
	DefaultTimeout = 30 * time.Second
	DefaultWorkers = 4
)

// Mode values reported per file.
const (
	ModeAI   = "ai"
	ModeDemo = "demo"
)

// Analyzer assesses code written in language.
type Analyzer interface {
	Analyze(ctx context.Context, code, language string) (*Record, error)
}

// UpstreamError wraps any failure of the analyzer backend.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("analysis upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// File is one input to Service.Analyze.
type File struct {
	Name    string `json:"name"`
	Content string `json:"-"`
}

// Result is the analysis of one file.
type Result struct {
	Filename   string `json:"filename"`
	Language   string `json:"language"`
	Analysis   Record `json:"analysis"`
	Mode       string `json:"mode"`
	AIFallback bool   `json:"aiFallback,omitempty"`
}

// Options configures a Service.
type Options struct {
	Timeout time.Duration
	// Workers bounds concurrent analyzer calls. Zero uses DefaultWorkers.
	Workers int
}

// Service runs the analyze operation.
type Service struct {
	catalog  *catalog.Registry
	analyzer Analyzer
	timeout  time.Duration
	workers  int
	log      *logrus.Entry
}

// NewService creates a Service. A nil analyzer means demo mode only.
func NewService(reg *catalog.Registry, analyzer Analyzer, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Service{
		catalog:  reg,
		analyzer: analyzer,
		timeout:  opts.Timeout,
		workers:  opts.Workers,
		log:      logrus.WithField("component", "analysis"),
	}
}

// AIEnabled reports whether an analyzer is configured.
func (s *Service) AIEnabled() bool { return s.analyzer != nil }

// Analyze assesses every file with content. Files with empty content are
// skipped. Analyzer failures are logged and never returned.
// Results keep the input order.
func (s *Service) Analyze(ctx context.Context, sessionID string, files []File, useDemo bool) []Result {
	todo := make([]File, 0, len(files))
	for _, f := range files {
		if f.Content != "" {
			todo = append(todo, f)
		}
	}
	out := make([]Result, len(todo))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, f := range todo {
		g.Go(func() error {
			out[i] = s.analyzeOne(ctx, sessionID, f, useDemo)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) analyzeOne(ctx context.Context, sessionID string, f File, useDemo bool) Result {
	start := time.Now()
	label := language.Classify(f.Name)
	ctx, span := observability.StartAnalysisSpan(ctx, f.Name, string(label))
	defer span.End()

	res := Result{Filename: f.Name, Language: string(label), Mode: ModeDemo}
	failed := false
	if s.analyzer != nil && !useDemo {
		rec, err := s.callAnalyzer(ctx, f.Content, string(label))
		if err == nil {
			res.Analysis = *rec
			res.Mode = ModeAI
		} else {
			failed = true
			res.AIFallback = true
			observability.RecordError(span, err)
			s.log.WithFields(logrus.Fields{
				"session_id": sessionID,
				"filename":   f.Name,
			}).WithError(err).Warn("AI analysis failed, falling back to demo")
			observability.Audit().LogAIFallback(sessionID, f.Name, err)
		}
	}
	if res.Mode == ModeDemo {
		res.Analysis = s.Fallback(label)
	}

	dur := time.Since(start)
	observability.RecordAnalysisMode(span, res.Mode)
	observability.Metrics().RecordAnalysis(res.Mode, failed, dur)
	observability.Audit().LogAnalyze(sessionID, f.Name, res.Language, res.Mode, dur)
	return res
}

func (s *Service) callAnalyzer(ctx context.Context, code, lang string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rec, err := s.analyzer.Analyze(ctx, code, lang)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &UpstreamError{Op: "analyze", Err: fmt.Errorf("empty record")}
	}
	return rec, nil
}

// Fallback returns the prepared record for label's family.
func (s *Service) Fallback(label language.Label) Record {
	f, _ := s.catalog.Resolve(string(language.FamilyOf(label)))
	return f.Analysis
}
