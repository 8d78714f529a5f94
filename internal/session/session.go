// Package session keeps uploaded files for the lifetime of a session.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for unknown or expired session ids.
	ErrNotFound = errors.New("session not found")
	// ErrFileNotFound is returned when a session exists but lacks the file.
	ErrFileNotFound = errors.New("file not found in session")
	// ErrInvalidID is returned when an empty id is stored.
	ErrInvalidID = errors.New("session id is required")
)

// File is one uploaded file.
type File struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
	Language string `json:"language,omitempty"`
	Detected string `json:"detected,omitempty"`
	Content  string `json:"-"`
}

// Session is the set of files uploaded together.
type Session struct {
	ID        string    `json:"id"`
	Files     []File    `json:"files"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Lookup returns the file called name.
func (s Session) Lookup(name string) (File, bool) {
	for _, f := range s.Files {
		if f.Name == name {
			return f, true
		}
	}
	return File{}, false
}

// Store persists sessions for a bounded time.
type Store interface {
	Put(ctx context.Context, id string, files []File) error
	Get(ctx context.Context, id string) (Session, error)
	File(ctx context.Context, id, name string) (File, error)
	Delete(ctx context.Context, id string) error
	Len() int
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}
