package state

import (
	"maps"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	now      func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]Session),
		now:      time.Now,
	}
}

// Get returns a copy of the session for a user.
func (m *MemoryStore) Get(userID int64) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[userID]
	if !ok {
		return Session{State: StateIdle}, false
	}
	s.Fields = maps.Clone(s.Fields)
	return s, true
}

// Put stores a copy of s for the user.
func (m *MemoryStore) Put(userID int64, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.Fields = maps.Clone(s.Fields)
	if s.Fields == nil {
		s.Fields = make(map[string]string)
	}
	s.UpdatedAt = m.now()
	m.sessions[userID] = s
}

// Delete removes the entire session for a user.
func (m *MemoryStore) Delete(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.sessions[userID]
	delete(m.sessions, userID)
	return ok
}

// Len reports the number of open sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
