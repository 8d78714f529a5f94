// Package api exposes the Phoenix operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/efebarandurmaz/phoenix/internal/activity"
	"github.com/efebarandurmaz/phoenix/internal/analysis"
	"github.com/efebarandurmaz/phoenix/internal/catalog"
	"github.com/efebarandurmaz/phoenix/internal/lineage"
	"github.com/efebarandurmaz/phoenix/internal/observability"
	"github.com/efebarandurmaz/phoenix/internal/server"
	"github.com/efebarandurmaz/phoenix/internal/session"
	"github.com/efebarandurmaz/phoenix/internal/temporal"
	"github.com/efebarandurmaz/phoenix/internal/transform"
	"github.com/efebarandurmaz/phoenix/internal/vector"
)

// DefaultMaxUploadBytes caps an upload request body.
const DefaultMaxUploadBytes int64 = 10 << 20

// BatchDispatcher starts and inspects batch transforms.
type BatchDispatcher interface {
	Submit(ctx context.Context, in temporal.BatchInput) (temporal.Submission, error)
	Status(ctx context.Context, workflowID string) (temporal.BatchStatus, error)
}

// LineageReader returns the recorded transforms of a session.
type LineageReader interface {
	History(ctx context.Context, sessionID string) ([]lineage.Event, error)
}

// Deps are the collaborators of a Server. Catalog, Sessions, Transform and
// Analysis are required; the rest disable their routes when nil.
type Deps struct {
	Catalog   *catalog.Registry
	Sessions  session.Store
	Transform *transform.Service
	Analysis  *analysis.Service
	Index     *vector.Index
	Lineage   LineageReader
	Batches   BatchDispatcher
	Health    *server.HealthServer
	Activity  *activity.Feed
}

// Options tunes request handling.
type Options struct {
	MaxUploadBytes int64
	CORSOrigins    []string
}

// Server routes HTTP requests to the Phoenix services.
type Server struct {
	router chi.Router
	deps   Deps
	opts   Options
	log    *logrus.Entry
}

// NewServer builds the router.
func NewServer(deps Deps, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		opts:   opts,
		log:    logrus.WithField("component", "api"),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors(s.opts.CORSOrigins))

	if s.deps.Health != nil {
		s.deps.Health.Mount(r)
	}
	r.Method(http.MethodGet, "/metrics", observability.Metrics().Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/transform", s.handleTransform)

		r.Get("/targets", s.handleTargets)
		r.Get("/languages", s.handleLanguages)
		r.Get("/fixtures/{key}", s.handleFixture)

		r.Get("/sessions/{id}", s.handleSession)
		r.Get("/sessions/{id}/lineage", s.handleLineage)
		r.Post("/similar", s.handleSimilar)

		r.Route("/advanced", func(r chi.Router) {
			r.Post("/scan", s.handleScan)
			r.Post("/roadmap", s.handleRoadmap)
			r.Post("/roi", s.handleROI)
			r.Post("/performance", s.handlePerformance)
			r.Post("/github-export", s.handleGitHubExport)
		})

		r.Post("/batch", s.handleBatchSubmit)
		r.Get("/batch/{id}", s.handleBatchStatus)

		if s.deps.Activity != nil {
			s.deps.Activity.Mount(r)
		}
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"dur":        time.Since(start).String(),
			"remote":     r.RemoteAddr,
		}).Info("request")
	})
}

// cors allows the listed origins, or any origin when the list holds "*".
func cors(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimSpace(o)] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowed["*"] || allowed[origin]) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Id")
				h.Add("Vary", "Origin")
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	entry := s.log.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"status":     status,
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	if status >= http.StatusInternalServerError {
		entry.Error(msg)
	} else {
		entry.Warn(msg)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) publish(ev activity.Event) {
	if s.deps.Activity != nil {
		s.deps.Activity.Publish(ev)
	}
}
