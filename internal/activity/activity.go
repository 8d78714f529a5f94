// Package activity keeps a bounded feed of recent Phoenix operations with
// running totals, and streams new entries to subscribers.
package activity

import (
	"context"
	"sync"
	"time"

	"github.com/efebarandurmaz/phoenix/internal/analysis"
	"github.com/efebarandurmaz/phoenix/internal/dispatch"
	"github.com/efebarandurmaz/phoenix/internal/transform"
)

// Kind classifies an event.
type Kind string

const (
	KindUpload    Kind = "upload"
	KindTransform Kind = "transform"
	KindAnalyze   Kind = "analyze"
	KindBatch     Kind = "batch"
)

// DefaultLimit is the number of events retained.
const DefaultLimit = 500

// Event is one feed entry.
type Event struct {
	Seq       uint64    `json:"seq"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"sessionId,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Language  string    `json:"language,omitempty"`
	Target    string    `json:"target,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Value     int       `json:"value,omitempty"`
}

// Stats are running totals since start.
type Stats struct {
	Uploads            int     `json:"uploads"`
	FilesUploaded      int     `json:"filesUploaded"`
	Transforms         int     `json:"transforms"`
	RendererTransforms int     `json:"rendererTransforms"`
	Analyses           int     `json:"analyses"`
	AIAnalyses         int     `json:"aiAnalyses"`
	Batches            int     `json:"batches"`
	AvgCodeReduction   float64 `json:"avgCodeReduction"`
	TopTargets         []Count `json:"topTargets"`
	Subscribers        int     `json:"subscribers"`

	reductionSum int
	targets      map[string]int
}

// Count is a label with its number of occurrences.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Feed is safe for concurrent use.
type Feed struct {
	mu     sync.RWMutex
	events []Event
	next   int
	full   bool
	seq    uint64
	stats  Stats
	now    func() time.Time
	hub    *hub
}

// NewFeed retains up to limit events. A non-positive limit uses DefaultLimit.
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Feed{
		events: make([]Event, limit),
		stats:  Stats{targets: map[string]int{}},
		now:    time.Now,
		hub:    newHub(),
	}
}

// Publish stamps ev, stores it and broadcasts it.
func (f *Feed) Publish(ev Event) {
	f.mu.Lock()
	f.seq++
	ev.Seq = f.seq
	if ev.Timestamp.IsZero() {
		ev.Timestamp = f.now().UTC()
	}
	f.events[f.next] = ev
	f.next = (f.next + 1) % len(f.events)
	if f.next == 0 {
		f.full = true
	}
	f.count(ev)
	f.mu.Unlock()

	f.hub.broadcast(ev)
}

func (f *Feed) count(ev Event) {
	s := &f.stats
	switch ev.Kind {
	case KindUpload:
		s.Uploads++
		s.FilesUploaded += ev.Value
	case KindTransform:
		s.Transforms++
		if ev.Detail == string(dispatch.StrategyRenderer) {
			s.RendererTransforms++
		}
		s.reductionSum += ev.Value
		s.targets[ev.Target]++
	case KindAnalyze:
		s.Analyses++
		if ev.Detail == analysis.ModeAI {
			s.AIAnalyses++
		}
	case KindBatch:
		s.Batches++
	}
}

// RecordTransform publishes a transform event.
func (f *Feed) RecordTransform(_ context.Context, ev transform.LineageEvent) error {
	f.Publish(Event{
		Kind:      KindTransform,
		Timestamp: ev.At,
		SessionID: ev.SessionID,
		Filename:  ev.Filename,
		Language:  ev.SourceLanguage,
		Target:    ev.TargetLanguage,
		Detail:    ev.Strategy,
		Value:     ev.Reduction,
	})
	return nil
}

// Recent returns up to n events, newest first. n <= 0 returns all retained.
func (f *Feed) Recent(n int) []Event {
	f.mu.RLock()
	defer f.mu.RUnlock()
	size := f.next
	if f.full {
		size = len(f.events)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		idx := (f.next - i + len(f.events)) % len(f.events)
		out = append(out, f.events[idx])
	}
	return out
}

const topTargets = 5

// Stats returns a snapshot of the totals.
func (f *Feed) Stats() Stats {
	f.mu.RLock()
	s := f.stats
	counts := make([]Count, 0, len(s.targets))
	for label, n := range s.targets {
		counts = append(counts, Count{Label: label, Count: n})
	}
	f.mu.RUnlock()

	if s.Transforms > 0 {
		s.AvgCodeReduction = float64(s.reductionSum) / float64(s.Transforms)
	}
	sortCounts(counts)
	if len(counts) > topTargets {
		counts = counts[:topTargets]
	}
	s.TopTargets = counts
	s.Subscribers = f.hub.size()
	s.targets = nil
	return s
}

var _ transform.LineageRecorder = (*Feed)(nil)
