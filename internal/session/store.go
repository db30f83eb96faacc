package session

import (
	"sync"
	"time"

	"github.com/mehmetcc/medgate/internal/person"
)

// Session pairs the logged-in principal with the credential the server issued.
type Session struct {
	Principal  person.Principal
	Credential string
	ExpiresAt  time.Time
}

// ExpiredAt is a client-side hint only. The server is the authority on expiry.
func (s Session) ExpiredAt(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store holds at most one session. Each client process, or each browser in
// the web client, owns its own Store.
type Store struct {
	mu      sync.RWMutex
	current *Session
}

func NewStore() *Store {
	return &Store{}
}

// Set replaces any previous session.
func (s *Store) Set(principal person.Principal, credential string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &Session{
		Principal:  principal,
		Credential: credential,
		ExpiresAt:  expiresAt,
	}
}

func (s *Store) Get() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// ClearIf empties the store only if it still holds credential, so a
// rejection of an old credential cannot log out a newer session.
func (s *Store) ClearIf(credential string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.Credential != credential {
		return false
	}
	s.current = nil
	return true
}
