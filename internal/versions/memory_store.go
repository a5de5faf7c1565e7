package versions

import (
	"context"
	"sync"
	"time"
)

// implements Store using in-memory storage; snapshots are lost on
// restart, so this backend is only suitable for tests and local runs
type MemoryStore struct {
	mu        sync.RWMutex
	bySession map[string][]*CodeVersion
	byID      map[string]*CodeVersion
}

// creates a new in-memory version store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bySession: make(map[string][]*CodeVersion),
		byID:      make(map[string]*CodeVersion),
	}
}

// persists a new snapshot; the version number is assigned under the
// store lock, so concurrent appends never collide
func (s *MemoryStore) Append(_ context.Context, sessionID, code string) (*CodeVersion, error) {
	id, err := generateRecordID()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := &CodeVersion{
		ID:        id,
		SessionID: sessionID,
		Code:      code,
		Version:   len(s.bySession[sessionID]),
		CreatedAt: time.Now(),
	}

	s.bySession[sessionID] = append(s.bySession[sessionID], record)
	s.byID[id] = record

	return record, nil
}

// returns the most recent snapshot for a session
func (s *MemoryStore) Latest(_ context.Context, sessionID string) (*CodeVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.bySession[sessionID]
	if len(records) == 0 {
		return nil, ErrNotFound
	}

	record := *records[len(records)-1]
	return &record, nil
}

// returns a snapshot by record ID
func (s *MemoryStore) GetByID(_ context.Context, id string) (*CodeVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.byID[id]
	if !exists {
		return nil, ErrNotFound
	}

	copied := *record
	return &copied, nil
}

// returns the number of snapshots for a session
func (s *MemoryStore) Count(_ context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.bySession[sessionID]), nil
}
