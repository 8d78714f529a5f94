package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(opts Options) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(opts)
	s.now = clock.Now
	return s, clock
}

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(Options{})
	defer s.Close()

	files := []File{{Name: "legacy.cbl", Size: 10, Content: "PROGRAM-ID."}}
	if err := s.Put(ctx, "abc", files); err != nil {
		t.Fatal(err)
	}
	sess, err := s.Get(ctx, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.Files) != 1 || sess.Files[0].Content != "PROGRAM-ID." {
		t.Errorf("unexpected session: %+v", sess)
	}

	f, err := s.File(ctx, "abc", "legacy.cbl")
	if err != nil || f.Size != 10 {
		t.Errorf("File() = %+v, %v", f, err)
	}
	if _, err := s.File(ctx, "abc", "missing.cbl"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	s, _ := newTestStore(Options{})
	defer s.Close()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put(context.Background(), "", nil); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(Options{TTL: time.Minute})
	defer s.Close()

	_ = s.Put(ctx, "a", nil)
	clock.Advance(59 * time.Second)
	if _, err := s.Get(ctx, "a"); err != nil {
		t.Fatalf("session expired early: %v", err)
	}
	clock.Advance(time.Second)
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected expiry, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expired entries stay until swept")
	}
	if n := s.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after sweep", s.Len())
	}
}

func TestMemoryStore_CapEvictsOldest(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(Options{MaxSessions: 2})
	defer s.Close()

	for _, id := range []string{"first", "second", "third"} {
		_ = s.Put(ctx, id, nil)
		clock.Advance(time.Second)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if _, err := s.Get(ctx, "first"); !errors.Is(err, ErrNotFound) {
		t.Error("oldest session should have been evicted")
	}
	if _, err := s.Get(ctx, "third"); err != nil {
		t.Errorf("newest session missing: %v", err)
	}
}

func TestMemoryStore_CapKeepsNewestOnTimestampTie(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(Options{MaxSessions: 2})
	defer s.Close()

	// All three share a creation time and "a" sorts first by id.
	for _, id := range []string{"m", "z", "a"} {
		_ = s.Put(ctx, id, nil)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if _, err := s.Get(ctx, "a"); err != nil {
		t.Errorf("just-stored session evicted: %v", err)
	}
}

func TestMemoryStore_CapDropsExpiredFirst(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(Options{MaxSessions: 2, TTL: time.Minute})
	defer s.Close()

	_ = s.Put(ctx, "old", nil)
	clock.Advance(time.Second)
	_ = s.Put(ctx, "older", nil)
	clock.Advance(2 * time.Minute)
	_ = s.Put(ctx, "new", nil)

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (expired sessions dropped)", s.Len())
	}
	if _, err := s.Get(ctx, "new"); err != nil {
		t.Errorf("new session missing: %v", err)
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(Options{})
	defer s.Close()
	_ = s.Put(ctx, "a", []File{{Name: "x.cbl"}})
	sess, _ := s.Get(ctx, "a")
	sess.Files[0].Name = "changed"
	again, _ := s.Get(ctx, "a")
	if again.Files[0].Name != "x.cbl" {
		t.Error("store state leaked through Get")
	}
}

func TestMemoryStore_JanitorStopsOnClose(t *testing.T) {
	s := NewMemoryStore(Options{TTL: time.Millisecond, JanitorInterval: 5 * time.Millisecond})
	_ = s.Put(context.Background(), "a", nil)

	deadline := time.Now().Add(2 * time.Second)
	for s.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Len() != 0 {
		t.Error("janitor did not sweep expired session")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal("second Close should be a no-op")
	}
}

func TestNewID_Unique(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b || len(a) != 36 {
		t.Errorf("unexpected ids %q %q", a, b)
	}
}
