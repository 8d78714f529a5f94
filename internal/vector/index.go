package vector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/efebarandurmaz/phoenix/internal/language"
	"github.com/efebarandurmaz/phoenix/internal/llm"
	"github.com/efebarandurmaz/phoenix/internal/session"
)

// DefaultMaxChars truncates file content before embedding.
const DefaultMaxChars = 8000

// ErrDisabled is returned when the index has no embedder.
var ErrDisabled = errors.New("similarity index disabled")

// Match is an earlier upload similar to a query.
type Match struct {
	SessionID string  `json:"sessionId"`
	Filename  string  `json:"filename"`
	Language  string  `json:"language"`
	Family    string  `json:"family"`
	Score     float32 `json:"score"`
}

// Index embeds uploads and finds similar ones.
type Index struct {
	embedder llm.Provider
	repo     Repository
	maxChars int
	log      *logrus.Entry

	mu          sync.Mutex
	initialized bool
}

// NewIndex returns an index over repo using embedder. A nil embedder yields
// a disabled index whose methods return ErrDisabled.
func NewIndex(embedder llm.Provider, repo Repository) *Index {
	return &Index{
		embedder: embedder,
		repo:     repo,
		maxChars: DefaultMaxChars,
		log:      logrus.WithField("component", "vector"),
	}
}

// Enabled reports whether the index can embed.
func (ix *Index) Enabled() bool { return ix != nil && ix.embedder != nil && ix.repo != nil }

// truncate cuts s to at most maxChars bytes without splitting a rune.
func (ix *Index) truncate(s string) string {
	if len(s) <= ix.maxChars {
		return s
	}
	n := ix.maxChars
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ensure creates the collection once it first succeeds; failures are
// retried on the next call.
func (ix *Index) ensure(ctx context.Context, dim int) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.initialized {
		return nil
	}
	if err := ix.repo.EnsureCollection(ctx, dim); err != nil {
		return err
	}
	ix.initialized = true
	return nil
}

// IndexFiles embeds the non-empty files of sessionID.
func (ix *Index) IndexFiles(ctx context.Context, sessionID string, files []session.File) error {
	if !ix.Enabled() {
		return ErrDisabled
	}
	var texts []string
	var kept []session.File
	for _, f := range files {
		if f.Content == "" {
			continue
		}
		texts = append(texts, ix.truncate(f.Content))
		kept = append(kept, f)
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
	}
	if err := ix.ensure(ctx, len(vectors[0])); err != nil {
		return fmt.Errorf("vector collection: %w", err)
	}

	docs := make([]Document, len(kept))
	for i, f := range kept {
		label := language.Classify(f.Name)
		docs[i] = Document{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Metadata: map[string]string{
				"session":  sessionID,
				"filename": f.Name,
				"language": string(label),
				"family":   string(language.FamilyOf(label)),
			},
		}
	}
	if err := ix.repo.Upsert(ctx, docs); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	ix.log.WithFields(logrus.Fields{"session_id": sessionID, "files": len(docs)}).Debug("indexed upload")
	return nil
}

// Similar returns up to topK earlier uploads resembling content, excluding
// those of excludeSession.
func (ix *Index) Similar(ctx context.Context, content, excludeSession string, topK int) ([]Match, error) {
	if !ix.Enabled() {
		return nil, ErrDisabled
	}
	vectors, err := ix.embedder.Embed(ctx, []string{ix.truncate(content)})
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want 1", len(vectors))
	}
	if err := ix.ensure(ctx, len(vectors[0])); err != nil {
		return nil, fmt.Errorf("vector collection: %w", err)
	}
	hits, err := ix.repo.Search(ctx, Query{Vector: vectors[0], TopK: topK, ExcludeSession: excludeSession})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	out := make([]Match, len(hits))
	for i, h := range hits {
		out[i] = Match{
			SessionID: h.Metadata["session"],
			Filename:  h.Metadata["filename"],
			Language:  h.Metadata["language"],
			Family:    h.Metadata["family"],
			Score:     h.Score,
		}
	}
	return out, nil
}

// Close releases the repository.
func (ix *Index) Close() error {
	if ix == nil || ix.repo == nil {
		return nil
	}
	return ix.repo.Close()
}
