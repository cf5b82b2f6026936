// Package transcript archives completed conversation turns. The archive
// is best-effort: the orchestrator records turns after publishing events
// and a failed write never fails the turn.
package transcript

import (
	"context"
	"time"
)

// Turn is one archived visitor/character exchange.
type Turn struct {
	// ID is the turn's UUID, shared with the published events.
	ID string

	// Character is the character instance name (e.g., "leonardo").
	Character string

	// Visitor is the visitor's utterance.
	Visitor string

	// Reply is the clean reply text, marker stripped.
	Reply string

	// Marker is the marker label the reply carried.
	Marker string

	// Cached reports whether the audio came from the cache.
	Cached bool

	// Fallback reports whether the reply is a spoken fallback line.
	Fallback bool

	// CreatedAt is set by the store on append.
	CreatedAt time.Time
}

// Store archives turns. Implementations must be safe for concurrent use.
type Store interface {
	// Append records a completed turn. CreatedAt is assigned by the store.
	Append(ctx context.Context, turn *Turn) error

	// Recent returns up to limit turns for a character, newest first.
	Recent(ctx context.Context, character string, limit int) ([]Turn, error)
}

// Nop is a Store that archives nothing. Used when no archive is
// configured.
type Nop struct{}

// Append implements Store.
func (Nop) Append(context.Context, *Turn) error { return nil }

// Recent implements Store.
func (Nop) Recent(context.Context, string, int) ([]Turn, error) { return nil, nil }

var _ Store = Nop{}
