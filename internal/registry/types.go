package registry

import "sync"

// represents the live in-memory state of one collaborative session.
// Code mirrors the most recent write this process has made or observed;
// OwnerConnID is the connection that created the session, kept only for
// disconnect notification (cleared on disconnect, never reassigned).
type Session struct {
	ID          string
	Code        string
	OwnerConnID string
}

// process-wide mapping from session ID to live session state.
// entries are created on create/join and removed when the last
// participant leaves; nothing here survives a restart.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}
