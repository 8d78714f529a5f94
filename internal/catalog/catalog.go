// Package catalog holds the canned per-family fixtures: an original legacy
// program, its default TypeScript rendition and a prepared analysis record.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*.yaml
var embedded embed.FS

// DefaultFallback is the family served for keys the catalog does not know.
const DefaultFallback = "cobol"

// ErrFallbackMissing is returned by Load when the fallback family has no fixture.
var ErrFallbackMissing = errors.New("fallback family not present in catalog")

// SecurityIssue is one finding in an analysis record.
type SecurityIssue struct {
	Severity    string `json:"severity" yaml:"severity"`
	Description string `json:"description" yaml:"description"`
	Line        int    `json:"line" yaml:"line"`
}

// AnalysisRecord is the structured assessment of a legacy file.
type AnalysisRecord struct {
	Language               string          `json:"language" yaml:"language"`
	LanguageVersion        string          `json:"languageVersion" yaml:"languageVersion"`
	LinesOfCode            int             `json:"linesOfCode" yaml:"linesOfCode"`
	Complexity             int             `json:"complexity" yaml:"complexity"`
	Maintainability        int             `json:"maintainability" yaml:"maintainability"`
	BusinessLogic          []string        `json:"businessLogic" yaml:"businessLogic"`
	Dependencies           []string        `json:"dependencies" yaml:"dependencies"`
	SecurityIssues         []SecurityIssue `json:"securityIssues" yaml:"securityIssues"`
	TechnicalDebt          []string        `json:"technicalDebt" yaml:"technicalDebt"`
	EstimatedMigrationTime string          `json:"estimatedMigrationTime" yaml:"estimatedMigrationTime"`
	RecommendedTarget      string          `json:"recommendedTarget" yaml:"recommendedTarget"`
	MigrationComplexity    string          `json:"migrationComplexity" yaml:"migrationComplexity"`
}

// Clone returns a deep copy so callers cannot mutate catalog state.
func (a AnalysisRecord) Clone() AnalysisRecord {
	out := a
	out.BusinessLogic = append([]string(nil), a.BusinessLogic...)
	out.Dependencies = append([]string(nil), a.Dependencies...)
	out.SecurityIssues = append([]SecurityIssue(nil), a.SecurityIssues...)
	out.TechnicalDebt = append([]string(nil), a.TechnicalDebt...)
	return out
}

// Fixture is the canned material for one language family.
type Fixture struct {
	Key         string         `json:"key" yaml:"key"`
	Original    string         `json:"original" yaml:"original"`
	Transformed string         `json:"transformed" yaml:"transformed"`
	Analysis    AnalysisRecord `json:"analysis" yaml:"analysis"`
}

func (f Fixture) clone() Fixture {
	f.Analysis = f.Analysis.Clone()
	return f
}

// Registry is an immutable set of fixtures keyed by family.
type Registry struct {
	fixtures map[string]Fixture
	fallback string
}

// Load builds a registry from the embedded fixture set.
func Load(fallback string) (*Registry, error) {
	return LoadFS(embedded, "fixtures", fallback)
}

// LoadDir builds a registry from *.yaml files in dir, layered over the
// embedded set so a directory only needs the families it overrides.
func LoadDir(dir, fallback string) (*Registry, error) {
	base, err := readFixtures(embedded, "fixtures")
	if err != nil {
		return nil, err
	}
	extra, err := readFixtures(os.DirFS(dir), ".")
	if err != nil {
		return nil, fmt.Errorf("reading catalog dir %s: %w", dir, err)
	}
	for k, f := range extra {
		base[k] = f
	}
	return newRegistry(base, fallback)
}

// LoadFS builds a registry from *.yaml files under root in fsys.
func LoadFS(fsys fs.FS, root, fallback string) (*Registry, error) {
	fixtures, err := readFixtures(fsys, root)
	if err != nil {
		return nil, err
	}
	return newRegistry(fixtures, fallback)
}

func newRegistry(fixtures map[string]Fixture, fallback string) (*Registry, error) {
	if fallback == "" {
		fallback = DefaultFallback
	}
	if _, ok := fixtures[fallback]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrFallbackMissing, fallback)
	}
	return &Registry{fixtures: fixtures, fallback: fallback}, nil
}

func readFixtures(fsys fs.FS, root string) (map[string]Fixture, error) {
	matches, err := fs.Glob(fsys, path.Join(root, "*.yaml"))
	if err != nil {
		return nil, err
	}
	out := make(map[string]Fixture, len(matches))
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading fixture %s: %w", name, err)
		}
		var f Fixture
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing fixture %s: %w", name, err)
		}
		if f.Key == "" {
			f.Key = strings.TrimSuffix(path.Base(name), ".yaml")
		}
		if f.Original == "" || f.Transformed == "" {
			return nil, fmt.Errorf("fixture %s: original and transformed are required", name)
		}
		if _, dup := out[f.Key]; dup {
			return nil, fmt.Errorf("fixture %s: duplicate key %q", name, f.Key)
		}
		out[f.Key] = f
	}
	return out, nil
}

// Lookup returns the fixture for key exactly.
func (r *Registry) Lookup(key string) (Fixture, bool) {
	f, ok := r.fixtures[key]
	if !ok {
		return Fixture{}, false
	}
	return f.clone(), true
}

// Resolve returns the fixture for key, or the fallback family's fixture when
// key is unknown. The boolean is false when the fallback was used.
func (r *Registry) Resolve(key string) (Fixture, bool) {
	if f, ok := r.Lookup(key); ok {
		return f, true
	}
	return r.fixtures[r.fallback].clone(), false
}

// Fallback returns the family key served for unknown keys.
func (r *Registry) Fallback() string { return r.fallback }

// Keys returns the known family keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.fixtures))
	for k := range r.fixtures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len reports the number of fixtures.
func (r *Registry) Len() int { return len(r.fixtures) }
