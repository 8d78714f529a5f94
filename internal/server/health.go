// Package server provides health endpoints and graceful shutdown for the
// HTTP service.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck is the result of one check.
type HealthCheck struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthResponse is the body of every health endpoint.
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Checks    []HealthCheck `json:"checks,omitempty"`
}

// HealthChecker performs one check.
type HealthChecker func(ctx context.Context) HealthCheck

// HealthServer serves liveness, readiness and dependency health.
type HealthServer struct {
	mu      sync.RWMutex
	checks  map[string]HealthChecker
	version string
	ready   bool
	live    bool
	timeout time.Duration
}

// NewHealthServer returns a live, not-yet-ready health server.
func NewHealthServer(version string) *HealthServer {
	return &HealthServer{
		checks:  make(map[string]HealthChecker),
		version: version,
		live:    true,
		timeout: 5 * time.Second,
	}
}

// RegisterCheck adds or replaces the check called name.
func (s *HealthServer) RegisterCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = checker
}

func (s *HealthServer) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *HealthServer) SetLive(live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = live
}

// Mount registers the health routes, including the Kubernetes aliases, on r.
func (s *HealthServer) Mount(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/readyz", s.handleReady)
	r.Get("/live", s.handleLive)
	r.Get("/livez", s.handleLive)
}

// Check runs every registered check concurrently and folds the results:
// any unhealthy check makes the whole unhealthy, any degraded one degraded.
func (s *HealthServer) Check(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthChecker, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	s.mu.RUnlock()
	sort.Strings(names)

	results := make([]HealthCheck, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			c := checks[name](ctx)
			c.Name = name
			results[i] = c
		}(i, name)
	}
	wg.Wait()

	resp := HealthResponse{Status: HealthStatusHealthy, Timestamp: time.Now().UTC(), Version: s.version, Checks: results}
	for _, c := range results {
		switch {
		case c.Status == HealthStatusUnhealthy:
			resp.Status = HealthStatusUnhealthy
		case c.Status == HealthStatusDegraded && resp.Status == HealthStatusHealthy:
			resp.Status = HealthStatusDegraded
		}
	}
	return resp
}

func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := s.Check(r.Context())
	code := http.StatusOK
	if resp.Status == HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *HealthServer) handleReady(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	ok := s.ready
	s.mu.RUnlock()
	s.probe(w, ok)
}

func (s *HealthServer) handleLive(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	ok := s.live
	s.mu.RUnlock()
	s.probe(w, ok)
}

func (s *HealthServer) probe(w http.ResponseWriter, ok bool) {
	resp := HealthResponse{Status: HealthStatusHealthy, Timestamp: time.Now().UTC()}
	if !ok {
		resp.Status = HealthStatusUnhealthy
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// DependencyChecker wraps a connectivity probe. A failing critical
// dependency is unhealthy; a failing optional one only degrades.
func DependencyChecker(label string, critical bool, checkFn func(ctx context.Context) error) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		if err := checkFn(ctx); err != nil {
			status := HealthStatusDegraded
			if critical {
				status = HealthStatusUnhealthy
			}
			return HealthCheck{Status: status, Message: label + " unavailable: " + err.Error()}
		}
		return HealthCheck{Status: HealthStatusHealthy, Message: label + " OK"}
	}
}

// CountChecker reports a gauge-like count. It is unhealthy when count is
// below min and degraded when max is positive and count reaches it.
func CountChecker(label string, min, max int, count func() int) HealthChecker {
	return func(context.Context) HealthCheck {
		n := count()
		details := map[string]string{"count": fmt.Sprint(n)}
		switch {
		case n < min:
			return HealthCheck{Status: HealthStatusUnhealthy, Message: fmt.Sprintf("%s: %d below minimum %d", label, n, min), Details: details}
		case max > 0 && n >= max:
			return HealthCheck{Status: HealthStatusDegraded, Message: fmt.Sprintf("%s: at capacity %d", label, max), Details: details}
		}
		return HealthCheck{Status: HealthStatusHealthy, Message: label + " OK", Details: details}
	}
}

// StaticChecker always reports status with message, e.g. "demo mode".
func StaticChecker(status HealthStatus, message string, details map[string]string) HealthChecker {
	return func(context.Context) HealthCheck {
		return HealthCheck{Status: status, Message: message, Details: details}
	}
}
