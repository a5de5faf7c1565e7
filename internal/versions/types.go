package versions

import (
	"context"
	"errors"
	"time"
)

// errors
var (
	// no record exists for the requested session or version ID
	ErrNotFound = errors.New("code version not found")

	// two writers assigned the same version number and retries ran out
	ErrVersionConflict = errors.New("version number conflict")
)

// one immutable snapshot of a session's document text.
// Version is a per-session ordinal starting at 0; the store assigns it
// atomically so concurrent writers never produce duplicates.
type CodeVersion struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Code      string    `json:"code"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// append-only log of code snapshots, one entry per session edit
type Store interface {
	// persists a new snapshot and returns it with its assigned version
	Append(ctx context.Context, sessionID, code string) (*CodeVersion, error)

	// returns the most recent snapshot for a session, or ErrNotFound
	Latest(ctx context.Context, sessionID string) (*CodeVersion, error)

	// returns a snapshot by its record ID, or ErrNotFound
	GetByID(ctx context.Context, id string) (*CodeVersion, error)

	// returns the number of snapshots persisted for a session
	Count(ctx context.Context, sessionID string) (int, error)
}
