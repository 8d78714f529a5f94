package plugins

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores the available target renderers keyed by exact label.
type Registry struct {
	mu      sync.RWMutex
	targets map[string]TargetPlugin
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		targets: make(map[string]TargetPlugin),
	}
}

func (r *Registry) RegisterTarget(p TargetPlugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[p.Language()] = p
}

func (r *Registry) Target(lang string) (TargetPlugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.targets[lang]
	if !ok {
		return nil, fmt.Errorf("no target plugin for language %q", lang)
	}
	return p, nil
}

// Has reports whether a renderer is registered for lang.
func (r *Registry) Has(lang string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.targets[lang]
	return ok
}

// Targets returns the registered labels, sorted.
func (r *Registry) Targets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.targets))
	for k := range r.targets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
