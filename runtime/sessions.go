package runtime

import (
	"chat-rooms/domain"
	"chat-rooms/errors"
	"sync"
)

// SessionRegistry is the directory of live sessions, one per user.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[domain.UserID]*Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[domain.UserID]*Session)}
}

// Add registers a freshly authenticated session. A user holds at most one
// live session: a second one is rejected with errors.ErrAlreadyLoggedIn.
func (r *SessionRegistry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.UserID]; ok {
		return errors.ErrAlreadyLoggedIn
	}
	r.sessions[s.UserID] = s
	return nil
}

// Remove deletes s if it is still the registered session of its user.
// It reports whether anything was removed, so repeated calls are harmless.
func (r *SessionRegistry) Remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[s.UserID]; !ok || current != s {
		return false
	}
	delete(r.sessions, s.UserID)
	return true
}

func (r *SessionRegistry) Get(userID domain.UserID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	return s, ok
}

func (r *SessionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// All returns a snapshot of the live sessions.
func (r *SessionRegistry) All() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	return all
}
