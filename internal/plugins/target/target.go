// Package target provides the template-backed renderers for every target
// label that has a dedicated rendition of the inventory program.
package target

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/efebarandurmaz/phoenix/internal/plugins"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// files maps each dedicated target label to its template.
var files = map[string]string{
	"React":            "react.tmpl",
	"Python":           "python.tmpl",
	"Next.js":          "nextjs.tmpl",
	"Go":               "go.tmpl",
	"Rust":             "rust.tmpl",
	"Vue.js":           "vue.tmpl",
	"Angular":          "angular.tmpl",
	"Java":             "java.tmpl",
	"C#":               "csharp.tmpl",
	"Kotlin":           "kotlin.tmpl",
	"Swift":            "swift.tmpl",
	"Svelte":           "svelte.tmpl",
	"FastAPI (Python)": "fastapi.tmpl",
	"Django":           "django.tmpl",
	"Spring Boot":      "springboot.tmpl",
	"Ruby on Rails":    "rails.tmpl",
	"Phoenix (Elixir)": "phoenix.tmpl",
	"ASP.NET Core":     "aspnetcore.tmpl",
	"NestJS":           "nestjs.tmpl",
}

// Plugin renders one target label from an embedded template.
type Plugin struct {
	label string
	tmpl  *template.Template
}

func (p *Plugin) Language() string { return p.label }

func (p *Plugin) Render(rc plugins.RenderContext) (string, error) {
	var b strings.Builder
	if err := p.tmpl.Execute(&b, rc); err != nil {
		return "", fmt.Errorf("rendering %s: %w", p.label, err)
	}
	return b.String(), nil
}

// Templates use [[ ]] delimiters because Vue and Angular sources contain {{ }}.
var all = func() []*Plugin {
	out := make([]*Plugin, 0, len(files))
	for label, name := range files {
		src, err := templateFS.ReadFile("templates/" + name)
		if err != nil {
			panic(fmt.Sprintf("target: missing template %s: %v", name, err))
		}
		t := template.Must(template.New(name).Delims("[[", "]]").Option("missingkey=error").Parse(string(src)))
		out = append(out, &Plugin{label: label, tmpl: t})
	}
	return out
}()

// Register adds every dedicated renderer to r.
func Register(r *plugins.Registry) {
	for _, p := range all {
		r.RegisterTarget(p)
	}
}

// NewRegistry returns a registry preloaded with every dedicated renderer.
func NewRegistry() *plugins.Registry {
	r := plugins.NewRegistry()
	Register(r)
	return r
}

