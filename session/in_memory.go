package session

import (
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// thread holds one conversation history with its own lock so appends on
// independent threads never contend.
type thread struct {
	mu      sync.Mutex
	history []core.Message
}

// InMemoryStore is a process-local Store implementation. It is safe for
// concurrent use; Load returns defensive copies so callers can never mutate
// stored history.
type InMemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*thread
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{threads: make(map[string]*thread)}
}

// Load implements the Store interface.
func (s *InMemoryStore) Load(threadID string) []core.Message {
	s.mu.RLock()
	t, ok := s.threads[threadID]
	s.mu.RUnlock()
	if !ok {
		return []core.Message{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return core.CloneMessages(t.history)
}

// Append implements the Store interface.
func (s *InMemoryStore) Append(threadID string, msgs []core.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	t, ok := s.threads[threadID]
	if !ok {
		t = &thread{}
		s.threads[threadID] = t
	}
	s.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = append(t.history, core.CloneMessages(msgs)...)
	return nil
}

// Clear implements the Store interface.
func (s *InMemoryStore) Clear(threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.threads[threadID]
	delete(s.threads, threadID)
	return ok
}

// Len returns the number of threads with stored history.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}

var _ Store = (*InMemoryStore)(nil)
