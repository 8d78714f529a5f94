// Package dispatch maps a (fixture, target label) pair to the transformed
// text returned to clients.
//
// Precedence is fixed:
//
//  1. the default target returns the fixture's own rendition verbatim;
//  2. a label with a dedicated renderer returns that rendering;
//  3. any other label returns the fixture's rendition.
//
// Resolution never fails.
package dispatch

import (
	"github.com/efebarandurmaz/phoenix/internal/catalog"
	"github.com/efebarandurmaz/phoenix/internal/plugins"
	"github.com/efebarandurmaz/phoenix/internal/plugins/target"
)

// Target is a target-format label as offered to clients.
type Target string

// DefaultTarget is the label served straight from the fixture.
const DefaultTarget Target = "TypeScript"

// known lists the offered targets in presentation order.
var known = []Target{
	"TypeScript", "React", "Next.js", "Vue.js", "Svelte", "Angular", "Solid.js", "Qwik",
	"Node.js + Express", "FastAPI (Python)", "Django", "Flask", "Ruby on Rails", "Spring Boot",
	"ASP.NET Core", "Laravel", "Phoenix (Elixir)", "NestJS",
	"Python", "Go", "Rust", "Java", "C#", "Kotlin", "Swift", "Elixir", "Scala", "F#",
	"React Native", "Flutter", "Swift UI", "Jetpack Compose",
	"Serverless (AWS Lambda)", "Azure Functions", "Google Cloud Functions", "Kubernetes CRD",
	"GraphQL API", "gRPC Service", "WebAssembly",
}

var knownSet = func() map[Target]struct{} {
	m := make(map[Target]struct{}, len(known))
	for _, t := range known {
		m[t] = struct{}{}
	}
	return m
}()

// ParseTarget matches label exactly against the offered targets.
func ParseTarget(label string) (Target, bool) {
	t := Target(label)
	_, ok := knownSet[t]
	return t, ok
}

// Strategy names which precedence rule produced a resolution.
type Strategy string

const (
	StrategyDefault  Strategy = "default"
	StrategyRenderer Strategy = "renderer"
	StrategyFallback Strategy = "fallback"
)

// Resolution is the outcome of Resolve.
type Resolution struct {
	Code     string   `json:"code"`
	Strategy Strategy `json:"strategy"`
}

// TargetInfo describes one offered target.
type TargetInfo struct {
	Label     string `json:"label"`
	Dedicated bool   `json:"dedicated"`
	Default   bool   `json:"default"`
}

// Resolver applies the dispatch precedence over a renderer registry.
type Resolver struct {
	renderers *plugins.Registry
}

// NewResolver creates a resolver over renderers. A nil registry means no
// dedicated renderers.
func NewResolver(renderers *plugins.Registry) *Resolver {
	if renderers == nil {
		renderers = plugins.NewRegistry()
	}
	return &Resolver{renderers: renderers}
}

// NewDefaultResolver creates a resolver with every built-in renderer.
func NewDefaultResolver() *Resolver {
	return NewResolver(target.NewRegistry())
}

// Resolve returns the transformed text for fixture in targetLabel. The
// source label is only used in rendered headers.
func (r *Resolver) Resolve(fixture catalog.Fixture, targetLabel, sourceLabel string) Resolution {
	if Target(targetLabel) == DefaultTarget {
		return Resolution{Code: fixture.Transformed, Strategy: StrategyDefault}
	}
	if p, err := r.renderers.Target(targetLabel); err == nil {
		code, err := p.Render(plugins.RenderContext{Source: sourceLabel, Target: targetLabel})
		if err == nil {
			return Resolution{Code: code, Strategy: StrategyRenderer}
		}
	}
	return Resolution{Code: fixture.Transformed, Strategy: StrategyFallback}
}

// Dedicated reports whether label has its own renderer.
func (r *Resolver) Dedicated(label string) bool {
	return r.renderers.Has(label)
}

// Targets lists the offered targets with their resolution class.
func (r *Resolver) Targets() []TargetInfo {
	out := make([]TargetInfo, 0, len(known))
	for _, t := range known {
		out = append(out, TargetInfo{
			Label:     string(t),
			Dedicated: r.Dedicated(string(t)),
			Default:   t == DefaultTarget,
		})
	}
	return out
}
