package registry

// creates an empty session registry
func New() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// inserts a new session with the given code, owned by ownerConnID.
// an existing entry with the same ID is silently replaced; session IDs
// are generated with enough entropy that this only happens when a
// caller re-creates a session on purpose.
func (r *Registry) Create(sessionID, ownerConnID, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = &Session{
		ID:          sessionID,
		Code:        code,
		OwnerConnID: ownerConnID,
	}
}

// returns a snapshot of the session state, or false if absent
func (r *Registry) Get(sessionID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[sessionID]
	if !exists {
		return Session{}, false
	}

	return *session, true
}

// updates the authoritative code for an existing session.
// a no-op when the session is absent (it may have been removed by a
// concurrent leave; the version history is already persisted).
func (r *Registry) SetCode(sessionID, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, exists := r.sessions[sessionID]; exists {
		session.Code = code
	}
}

// removes a session from the registry
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
}

// clears ownership on every session owned by connID and returns the
// affected session IDs, used for disconnect notification
func (r *Registry) MarkOwnerGone(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var affected []string

	for sessionID, session := range r.sessions {
		if session.OwnerConnID == connID {
			session.OwnerConnID = ""
			affected = append(affected, sessionID)
		}
	}

	return affected
}

// returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
