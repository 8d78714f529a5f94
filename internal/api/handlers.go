package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efebarandurmaz/phoenix/internal/activity"
	"github.com/efebarandurmaz/phoenix/internal/analysis"
	"github.com/efebarandurmaz/phoenix/internal/dispatch"
	"github.com/efebarandurmaz/phoenix/internal/language"
	"github.com/efebarandurmaz/phoenix/internal/session"
	"github.com/efebarandurmaz/phoenix/internal/transform"
	"github.com/efebarandurmaz/phoenix/internal/vector"
)

const defaultSimilarTopK = 5

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, msgInvalidBody, err)
		return
	}
	if req.SessionID == "" || req.Files == nil {
		s.writeError(w, r, http.StatusBadRequest, msgMissingParameters, nil)
		return
	}
	ctx := r.Context()

	files := make([]analysis.File, 0, len(req.Files))
	for _, ref := range req.Files {
		content := req.FileContents[ref.Name]
		if content == "" {
			f, err := s.deps.Sessions.File(ctx, req.SessionID, ref.Name)
			switch {
			case err == nil:
				content = f.Content
			case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrFileNotFound):
			default:
				s.writeError(w, r, http.StatusInternalServerError, msgAnalysisFailed, err)
				return
			}
		}
		files = append(files, analysis.File{Name: ref.Name, Content: content})
	}

	results := s.deps.Analysis.Analyze(ctx, req.SessionID, files, req.UseDemo)
	for _, res := range results {
		s.publish(activity.Event{
			Kind:      activity.KindAnalyze,
			SessionID: req.SessionID,
			Filename:  res.Filename,
			Language:  res.Language,
			Detail:    res.Mode,
		})
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, SessionID: req.SessionID, Results: results})
}

func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	var req transform.Request
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, msgInvalidBody, err)
		return
	}
	res, err := s.deps.Transform.Transform(r.Context(), req)
	if err != nil {
		if errors.Is(err, transform.ErrMissingParameter) {
			s.writeError(w, r, http.StatusBadRequest, msgMissingParameters, err)
			return
		}
		s.writeError(w, r, http.StatusInternalServerError, msgTransformFailed, err)
		return
	}
	writeJSON(w, http.StatusOK, transformResponse{Success: true, Result: res})
}

func (s *Server) handleTargets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, targetsResponse{
		Default: string(dispatch.DefaultTarget),
		Targets: s.deps.Transform.Resolver().Targets(),
	})
}

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, languagesResponse{
		Extensions: language.Extensions(),
		Labels:     language.Labels(),
	})
}

func (s *Server) handleFixture(w http.ResponseWriter, r *http.Request) {
	f, ok := s.deps.Catalog.Lookup(chi.URLParam(r, "key"))
	if !ok {
		s.writeError(w, r, http.StatusNotFound, msgUnknownFixture, nil)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.writeError(w, r, http.StatusNotFound, msgSessionNotFound, nil)
			return
		}
		s.writeError(w, r, http.StatusInternalServerError, "Session lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLineage(w http.ResponseWriter, r *http.Request) {
	if s.deps.Lineage == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, msgLineageDisabled, nil)
		return
	}
	id := chi.URLParam(r, "id")
	events, err := s.deps.Lineage.History(r.Context(), id)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "Lineage lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, lineageResponse{SessionID: id, Events: events})
}

// handleSimilar accepts either raw content or a session file reference.
func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Index.Enabled() {
		s.writeError(w, r, http.StatusServiceUnavailable, msgSimilarDisabled, nil)
		return
	}
	var req similarRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, msgInvalidBody, err)
		return
	}
	ctx := r.Context()
	if req.Content == "" && req.SessionID != "" && req.Filename != "" {
		if f, err := s.deps.Sessions.File(ctx, req.SessionID, req.Filename); err == nil {
			req.Content = f.Content
		}
	}
	if req.Content == "" {
		s.writeError(w, r, http.StatusBadRequest, msgMissingParameters, nil)
		return
	}
	if req.TopK <= 0 {
		req.TopK = defaultSimilarTopK
	}
	matches, err := s.deps.Index.Similar(ctx, req.Content, req.SessionID, req.TopK)
	if err != nil {
		if errors.Is(err, vector.ErrDisabled) {
			s.writeError(w, r, http.StatusServiceUnavailable, msgSimilarDisabled, err)
			return
		}
		s.writeError(w, r, http.StatusBadGateway, "Similarity search failed", err)
		return
	}
	if matches == nil {
		matches = []vector.Match{}
	}
	writeJSON(w, http.StatusOK, similarResponse{Matches: matches})
}
