package api

import (
	"github.com/efebarandurmaz/phoenix/internal/analysis"
	"github.com/efebarandurmaz/phoenix/internal/dispatch"
	"github.com/efebarandurmaz/phoenix/internal/language"
	"github.com/efebarandurmaz/phoenix/internal/lineage"
	"github.com/efebarandurmaz/phoenix/internal/session"
	"github.com/efebarandurmaz/phoenix/internal/transform"
	"github.com/efebarandurmaz/phoenix/internal/vector"
)

// Error messages returned to clients.
const (
	msgNoFiles           = "No files uploaded"
	msgUploadTooLarge    = "Upload too large"
	msgUploadFailed      = "Upload failed"
	msgMissingParameters = "Missing required parameters"
	msgInvalidBody       = "Invalid JSON body"
	msgTransformFailed   = "Transformation failed"
	msgAnalysisFailed    = "Analysis failed"
	msgSessionNotFound   = "Session not found"
	msgUnknownFixture    = "Unknown fixture"
	msgLineageDisabled   = "Lineage tracking not configured"
	msgSimilarDisabled   = "Similarity search not configured"
	msgBatchDisabled     = "Batch processing not configured"
	msgBatchNotFound     = "Batch not found"
	msgBatchFailed       = "Batch submission failed"
)

type errorResponse struct {
	Error string `json:"error"`
}

type uploadResponse struct {
	Success      bool              `json:"success"`
	SessionID    string            `json:"sessionId"`
	Files        []session.File    `json:"files"`
	FileContents map[string]string `json:"fileContents"`
	Message      string            `json:"message"`
}

type fileRef struct {
	Name string `json:"name"`
}

type analyzeRequest struct {
	SessionID    string            `json:"sessionId"`
	Files        []fileRef         `json:"files"`
	FileContents map[string]string `json:"fileContents"`
	UseDemo      bool              `json:"useDemo"`
}

type analyzeResponse struct {
	Success   bool              `json:"success"`
	SessionID string            `json:"sessionId"`
	Results   []analysis.Result `json:"results"`
}

type transformResponse struct {
	Success bool `json:"success"`
	*transform.Result
}

type targetsResponse struct {
	Default string                `json:"default"`
	Targets []dispatch.TargetInfo `json:"targets"`
}

type languagesResponse struct {
	Extensions []language.Extension `json:"extensions"`
	Labels     []string             `json:"labels"`
}

type lineageResponse struct {
	SessionID string          `json:"sessionId"`
	Events    []lineage.Event `json:"events"`
}

type similarRequest struct {
	SessionID string `json:"sessionId"`
	Filename  string `json:"filename"`
	Content   string `json:"content"`
	TopK      int    `json:"topK"`
}

type similarResponse struct {
	Matches []vector.Match `json:"matches"`
}

type scanRequest struct {
	Code     string `json:"code"`
	Filename string `json:"filename"`
}

type scanResponse struct {
	Vulnerabilities []analysis.Vulnerability `json:"vulnerabilities"`
}

type roadmapRequest struct {
	Components []analysis.Component `json:"components"`
}

type roadmapResponse struct {
	Steps []analysis.RoadmapStep `json:"steps"`
}

type performanceRequest struct {
	Language     string `json:"language"`
	Architecture string `json:"architecture"`
}

type githubExportRequest struct {
	ProjectName string                `json:"projectName"`
	Files       []analysis.ExportFile `json:"files"`
}

type batchFile struct {
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
}

type batchRequest struct {
	SessionID      string      `json:"sessionId"`
	TargetLanguage string      `json:"targetLanguage"`
	Files          []batchFile `json:"files"`
	Analyze        bool        `json:"analyze"`
	UseDemo        bool        `json:"useDemo"`
}
