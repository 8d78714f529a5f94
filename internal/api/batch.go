package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/efebarandurmaz/phoenix/internal/activity"
	"github.com/efebarandurmaz/phoenix/internal/observability"
	"github.com/efebarandurmaz/phoenix/internal/session"
	"github.com/efebarandurmaz/phoenix/internal/temporal"
)

func (s *Server) handleBatchSubmit(w http.ResponseWriter, r *http.Request) {
	if s.deps.Batches == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, msgBatchDisabled, nil)
		return
	}
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, msgInvalidBody, err)
		return
	}
	if req.TargetLanguage == "" {
		s.writeError(w, r, http.StatusBadRequest, msgMissingParameters, nil)
		return
	}
	ctx := r.Context()

	files, err := s.batchFiles(r, req)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.writeError(w, r, http.StatusNotFound, msgSessionNotFound, err)
			return
		}
		s.writeError(w, r, http.StatusInternalServerError, msgBatchFailed, err)
		return
	}
	if len(files) == 0 {
		s.writeError(w, r, http.StatusBadRequest, msgNoFiles, nil)
		return
	}

	ctx, span := observability.StartBatchSpan(ctx, req.SessionID, req.TargetLanguage, len(files))
	defer span.End()
	sub, err := s.deps.Batches.Submit(ctx, temporal.BatchInput{
		SessionID: req.SessionID,
		Target:    req.TargetLanguage,
		Files:     files,
		Analyze:   req.Analyze,
		UseDemo:   req.UseDemo,
	})
	if err != nil {
		observability.RecordError(span, err)
		s.writeError(w, r, http.StatusBadGateway, msgBatchFailed, err)
		return
	}
	observability.Metrics().RecordBatch(req.TargetLanguage)
	observability.Audit().LogBatchSubmit(req.SessionID, sub.WorkflowID, req.TargetLanguage, len(files))
	s.publish(activity.Event{
		Kind:      activity.KindBatch,
		SessionID: req.SessionID,
		Target:    req.TargetLanguage,
		Detail:    sub.WorkflowID,
		Value:     len(files),
	})
	s.log.WithFields(logrus.Fields{
		"session_id":  req.SessionID,
		"workflow_id": sub.WorkflowID,
		"files":       len(files),
	}).Info("batch submitted")
	writeJSON(w, http.StatusAccepted, sub)
}

// batchFiles returns the request's files, filling missing content from the
// session. With no files listed, every file of the session is used.
func (s *Server) batchFiles(r *http.Request, req batchRequest) ([]temporal.BatchFile, error) {
	needSession := len(req.Files) == 0
	for _, f := range req.Files {
		if f.Content == "" {
			needSession = true
		}
	}
	var sess session.Session
	if needSession && req.SessionID != "" {
		var err error
		if sess, err = s.deps.Sessions.Get(r.Context(), req.SessionID); err != nil {
			return nil, err
		}
	}

	if len(req.Files) == 0 {
		out := make([]temporal.BatchFile, 0, len(sess.Files))
		for _, f := range sess.Files {
			out = append(out, temporal.BatchFile{Name: f.Name, Content: f.Content})
		}
		return out, nil
	}
	out := make([]temporal.BatchFile, 0, len(req.Files))
	for _, f := range req.Files {
		content := f.Content
		if content == "" {
			if sf, ok := sess.Lookup(f.Name); ok {
				content = sf.Content
			}
		}
		out = append(out, temporal.BatchFile{Name: f.Name, Content: content})
	}
	return out, nil
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Batches == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, msgBatchDisabled, nil)
		return
	}
	st, err := s.deps.Batches.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, temporal.ErrBatchNotFound) {
			s.writeError(w, r, http.StatusNotFound, msgBatchNotFound, err)
			return
		}
		s.writeError(w, r, http.StatusBadGateway, "Batch status unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
