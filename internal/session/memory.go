package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultTTL         = time.Hour
	DefaultMaxSessions = 1000
)

// Options configures a MemoryStore.
type Options struct {
	TTL         time.Duration
	MaxSessions int
	// JanitorInterval enables background sweeping when positive.
	JanitorInterval time.Duration
}

// MemoryStore is a thread-safe in-memory Store with TTL and size-cap eviction.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	max      int
	now      func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates a MemoryStore. Zero options take package defaults.
func NewMemoryStore(opts Options) *MemoryStore {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	s := &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      opts.TTL,
		max:      opts.MaxSessions,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if opts.JanitorInterval > 0 {
		go s.janitor(opts.JanitorInterval)
	} else {
		close(s.done)
	}
	return s
}

// Put stores files under id, replacing any previous session with that id.
func (s *MemoryStore) Put(_ context.Context, id string, files []File) error {
	if id == "" {
		return ErrInvalidID
	}
	now := s.now()
	sess := &Session{
		ID:        id,
		Files:     append([]File(nil), files...),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
	s.evictOldest(id)
	return nil
}

// Get returns the session for id.
func (s *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok || !s.now().Before(sess.ExpiresAt) {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := *sess
	out.Files = append([]File(nil), sess.Files...)
	return out, nil
}

// File returns a single file from session id.
func (s *MemoryStore) File(ctx context.Context, id, name string) (File, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return File{}, err
	}
	f, ok := sess.Lookup(name)
	if !ok {
		return File{}, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return f, nil
}

// Delete removes session id. Deleting an unknown id is not an error.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len reports the number of stored sessions, expired ones included until swept.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Close stops the janitor. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func (s *MemoryStore) janitor(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logrus.WithFields(logrus.Fields{
					"component": "session",
					"removed":   n,
				}).Debug("expired sessions swept")
			}
		}
	}
}

// evictOldest enforces the session cap after keep was stored. Expired
// sessions go first, then the oldest by creation time; keep is never evicted.
// Must be called with lock held.
func (s *MemoryStore) evictOldest(keep string) {
	if len(s.sessions) <= s.max {
		return
	}
	now := s.now()
	for id, sess := range s.sessions {
		if id != keep && !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
	if len(s.sessions) <= s.max {
		return
	}

	type created struct {
		id   string
		time time.Time
	}
	all := make([]created, 0, len(s.sessions)-1)
	for id, sess := range s.sessions {
		if id != keep {
			all = append(all, created{id: id, time: sess.CreatedAt})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].time.Equal(all[j].time) {
			return all[i].time.Before(all[j].time)
		}
		return all[i].id < all[j].id
	})

	toDelete := len(s.sessions) - s.max
	for i := 0; i < toDelete && i < len(all); i++ {
		delete(s.sessions, all[i].id)
	}
}
