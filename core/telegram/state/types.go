package state

import "time"

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session stores conversation state and the fields collected so far.
type Session struct {
	State     State
	Fields    map[string]string
	UpdatedAt time.Time
}

// Field returns a collected value.
func (s Session) Field(key string) (string, bool) {
	v, ok := s.Fields[key]
	return v, ok
}

// Store keeps at most one session per user.
type Store interface {
	// Get returns a copy of the user's session.
	Get(userID int64) (Session, bool)
	// Put replaces the user's session.
	Put(userID int64, s Session)
	// Delete discards the user's session, reporting whether one existed.
	Delete(userID int64) bool
	// Len reports the number of open sessions.
	Len() int
}
