package vector

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryRepository is a brute-force cosine index held in process.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemory returns an empty in-process repository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]Document)}
}

func (m *MemoryRepository) EnsureCollection(context.Context, int) error { return nil }

func (m *MemoryRepository) Upsert(_ context.Context, docs []Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return nil
}

func (m *MemoryRepository) Search(_ context.Context, q Query) ([]SearchResult, error) {
	m.mu.RLock()
	out := make([]SearchResult, 0, len(m.docs))
	for _, d := range m.docs {
		if q.ExcludeSession != "" && d.Metadata["session"] == q.ExcludeSession {
			continue
		}
		out = append(out, SearchResult{ID: d.ID, Score: cosine(q.Vector, d.Vector), Metadata: d.Metadata})
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if q.TopK > 0 && len(out) > q.TopK {
		out = out[:q.TopK]
	}
	return out, nil
}

func (m *MemoryRepository) Close() error { return nil }

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ Repository = (*MemoryRepository)(nil)
