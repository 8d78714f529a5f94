package lineage

import (
	"context"
	"sort"
	"sync"
)

// DefaultMemoryLimit caps events kept per session by MemoryRepository.
const DefaultMemoryLimit = 500

// MemoryRepository keeps lineage in process. It is used when no graph
// database is configured.
type MemoryRepository struct {
	mu     sync.RWMutex
	events map[string][]Event
	limit  int
}

// NewMemory returns an empty repository keeping at most limit events per
// session. A non-positive limit uses DefaultMemoryLimit.
func NewMemory(limit int) *MemoryRepository {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &MemoryRepository{events: make(map[string][]Event), limit: limit}
}

func (m *MemoryRepository) RecordTransform(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	evs := append(m.events[ev.SessionID], ev)
	if len(evs) > m.limit {
		evs = evs[len(evs)-m.limit:]
	}
	m.events[ev.SessionID] = evs
	return nil
}

func (m *MemoryRepository) History(_ context.Context, sessionID string) ([]Event, error) {
	m.mu.RLock()
	out := append([]Event(nil), m.events[sessionID]...)
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

// Forget drops the history of sessionID.
func (m *MemoryRepository) Forget(sessionID string) {
	m.mu.Lock()
	delete(m.events, sessionID)
	m.mu.Unlock()
}

func (m *MemoryRepository) Close(context.Context) error { return nil }

var _ Repository = (*MemoryRepository)(nil)
