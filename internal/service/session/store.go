package session

import "sync"

// Entry is the per-conversation state consulted by the confirmation trigger.
type Entry struct {
	LastAgentQuestion  string
	ConfirmationPrompt bool
}

// Store holds session entries keyed by conversation identifier. Implementations
// must be safe for concurrent use from multiple connection lifecycles.
type Store interface {
	Get(conversationID string) (Entry, bool)
	Set(conversationID string, entry Entry)
	Delete(conversationID string)
}

// MemoryStore implements Store with a mutex-guarded map, suitable for a
// single-process deployment. Entries vanish on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(conversationID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[conversationID]
	return entry, ok
}

func (s *MemoryStore) Set(conversationID string, entry Entry) {
	s.mu.Lock()
	s.entries[conversationID] = entry
	s.mu.Unlock()
}

func (s *MemoryStore) Delete(conversationID string) {
	s.mu.Lock()
	delete(s.entries, conversationID)
	s.mu.Unlock()
}
