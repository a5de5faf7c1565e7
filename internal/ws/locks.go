package ws

import "sync"

// mutex keyed by session ID, used to serialize coordinator work for one
// session while letting different sessions proceed in parallel. entries
// are reference counted and dropped as soon as no goroutine holds or
// waits on them, so idle sessions cost nothing.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	refs int
	mu   sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{
		entries: make(map[string]*lockEntry),
	}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()

	entry, exists := k.entries[key]
	if !exists {
		entry = &lockEntry{}
		k.entries[key] = entry
	}

	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()

	entry := k.entries[key]
	entry.refs--

	if entry.refs == 0 {
		delete(k.entries, key)
	}

	k.mu.Unlock()

	entry.mu.Unlock()
}
