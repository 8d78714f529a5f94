package api

import (
	"net/http"
	"strings"

	"github.com/efebarandurmaz/phoenix/internal/analysis"
)

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, msgInvalidBody, err)
		return
	}
	writeJSON(w, http.StatusOK, scanResponse{Vulnerabilities: analysis.Scan(req.Code, req.Filename)})
}

func (s *Server) handleRoadmap(w http.ResponseWriter, r *http.Request) {
	var req roadmapRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, msgInvalidBody, err)
		return
	}
	writeJSON(w, http.StatusOK, roadmapResponse{Steps: analysis.Roadmap(req.Components)})
}

func (s *Server) handleROI(w http.ResponseWriter, r *http.Request) {
	var req analysis.ROIInput
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, msgInvalidBody, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.EstimateROI(req))
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	var req performanceRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, msgInvalidBody, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.EstimatePerformance(req.Language, req.Architecture))
}

func (s *Server) handleGitHubExport(w http.ResponseWriter, r *http.Request) {
	var req githubExportRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, msgInvalidBody, err)
		return
	}
	if strings.TrimSpace(req.ProjectName) == "" {
		s.writeError(w, r, http.StatusBadRequest, msgMissingParameters, nil)
		return
	}
	writeJSON(w, http.StatusOK, analysis.PrepareGitHubExport(req.ProjectName, req.Files))
}
