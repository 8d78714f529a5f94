// Package lineage stores which files were transformed to which targets.
package lineage

import (
	"context"

	"github.com/efebarandurmaz/phoenix/internal/transform"
)

// Event is one recorded transform.
type Event = transform.LineageEvent

// Repository persists and queries transform lineage.
type Repository interface {
	transform.LineageRecorder
	// History returns the transforms recorded for sessionID, oldest first.
	History(ctx context.Context, sessionID string) ([]Event, error)
	// Close releases resources.
	Close(ctx context.Context) error
}
