package analysis

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"

	"github.com/efebarandurmaz/phoenix/internal/stats"
)

// Vulnerability is a pattern-scanner finding.
type Vulnerability struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Location    string `json:"location,omitempty"`
}

var vulnPatterns = []struct {
	id, desc, severity string
	re                 *regexp.Regexp
}{
	{"VULN-001", "Use of eval()", "high", regexp.MustCompile(`(?i)\beval\(`)},
	{"VULN-002", "Possible command execution via exec()", "high", regexp.MustCompile(`(?i)\bexec\(`)},
	{"VULN-003", "Hardcoded credentials found", "medium", regexp.MustCompile(`(?i)password\s*=\s*['"]`)},
}

// Scan reports each pattern at most once. An empty filename is reported as "unknown".
func Scan(code, filename string) []Vulnerability {
	out := []Vulnerability{}
	if code == "" {
		return out
	}
	if filename == "" {
		filename = "unknown"
	}
	for _, p := range vulnPatterns {
		if p.re.MatchString(code) {
			out = append(out, Vulnerability{ID: p.id, Description: p.desc, Severity: p.severity, Location: filename})
		}
	}
	return out
}

// Component is a unit of a migration plan.
type Component struct {
	Name       string `json:"name"`
	Complexity int    `json:"complexity"`
}

// RoadmapStep is one entry of a migration roadmap.
type RoadmapStep struct {
	ID                  string `json:"id"`
	Component           string `json:"component"`
	RiskLevel           string `json:"riskLevel"`
	EstimatedHours      int    `json:"estimatedHours"`
	RecommendedTeamSize int    `json:"recommendedTeamSize"`
	Notes               string `json:"notes,omitempty"`
}

const defaultComplexity = 5

// Roadmap produces one step per component. With no components a single
// "legacy-core" step of complexity 5 is planned. Zero complexity counts as 5
// for hours and team size.
func Roadmap(components []Component) []RoadmapStep {
	if len(components) == 0 {
		components = []Component{{Name: "legacy-core", Complexity: defaultComplexity}}
	}
	steps := make([]RoadmapStep, 0, len(components))
	for i, c := range components {
		risk := "low"
		switch {
		case c.Complexity > 7:
			risk = "high"
		case c.Complexity > 4:
			risk = "medium"
		}
		effective := c.Complexity
		if effective == 0 {
			effective = defaultComplexity
		}
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("component-%d", i+1)
		}
		noteName := c.Name
		if noteName == "" {
			noteName = "component"
		}
		team := int(math.Ceil(float64(effective) / 4))
		if team < 1 {
			team = 1
		}
		steps = append(steps, RoadmapStep{
			ID:                  fmt.Sprintf("step-%d", i+1),
			Component:           name,
			RiskLevel:           risk,
			EstimatedHours:      stats.Round(float64(effective) * 20),
			RecommendedTeamSize: team,
			Notes:               "Auto-generated roadmap step for " + noteName,
		})
	}
	return steps
}

// ROIInput holds the figures EstimateROI works from.
type ROIInput struct {
	CurrentMaintenancePerYearUSD  float64 `json:"currentMaintenancePerYearUSD"`
	MigrationCostUSD              float64 `json:"migrationCostUSD"`
	ExpectedEfficiencyGainPercent float64 `json:"expectedEfficiencyGainPercent"`
}

// ROIResult is the outcome of EstimateROI.
type ROIResult struct {
	EstimatedAnnualSavingsUSD int    `json:"estimatedAnnualSavingsUSD"`
	PaybackMonths             int    `json:"paybackMonths"`
	Notes                     string `json:"notes,omitempty"`
}

// EstimateROI computes annual savings and a payback period of at least one month.
func EstimateROI(in ROIInput) ROIResult {
	savings := stats.Round(in.CurrentMaintenancePerYearUSD * in.ExpectedEfficiencyGainPercent / 100)
	payback := stats.Round(in.MigrationCostUSD / math.Max(1, float64(savings)) * 12)
	if payback < 1 {
		payback = 1
	}
	return ROIResult{
		EstimatedAnnualSavingsUSD: savings,
		PaybackMonths:             payback,
		Notes:                     "This is an estimate. Use real operational metrics for accuracy.",
	}
}

// Resource is a throughput and memory figure.
type Resource struct {
	RPS   int `json:"rps"`
	MemMB int `json:"memMB"`
}

// PerfEstimate is the outcome of EstimatePerformance.
type PerfEstimate struct {
	Before                 Resource `json:"before"`
	After                  Resource `json:"after"`
	ExpectedSpeedupPercent int      `json:"expectedSpeedupPercent"`
	Notes                  string   `json:"notes,omitempty"`
}

var perfBaseline = Resource{RPS: 100, MemMB: 512}

// EstimatePerformance applies a fixed speedup heuristic. lang is the source
// label; architecture is "monolith", "microservice" or "serverless".
func EstimatePerformance(lang, architecture string) PerfEstimate {
	speedup := 20
	switch lang {
	case "COBOL":
		speedup = 10
	case "TypeScript":
		speedup = 40
	}
	switch architecture {
	case "microservice":
		speedup += 15
	case "serverless":
		speedup += 10
	}
	speedup = max(5, min(200, speedup))

	s := float64(speedup)
	return PerfEstimate{
		Before: perfBaseline,
		After: Resource{
			RPS:   stats.Round(float64(perfBaseline.RPS) * (1 + s/100)),
			MemMB: stats.Round(float64(perfBaseline.MemMB) * (1 - s/400)),
		},
		ExpectedSpeedupPercent: speedup,
		Notes:                  "Heuristic estimate. Run real benchmarks for accurate numbers.",
	}
}

// ExportFile is one file in a GitHub export.
type ExportFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// GitHubExport is the prepared payload for creating a repository.
type GitHubExport struct {
	RepoName  string `json:"repoName"`
	CreateURL string `json:"createUrl,omitempty"`
	Summary   string `json:"summary"`
}

var repoNameUnsafe = regexp.MustCompile(`(?i)[^a-z0-9-]`)

// PrepareGitHubExport derives a repository name and creation link. No
// request is made to GitHub.
func PrepareGitHubExport(projectName string, files []ExportFile) GitHubExport {
	name := strings.ToLower(repoNameUnsafe.ReplaceAllString(projectName, "-"))
	return GitHubExport{
		RepoName:  name,
		CreateURL: "https://github.com/new?name=" + url.QueryEscape(name),
		Summary: fmt.Sprintf("Prepared %d files for export to GitHub. "+
			"Use a backend service with an OAuth token to create the repo and push commits.", len(files)),
	}
}
