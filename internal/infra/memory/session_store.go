package memory

import (
	"context"
	"sync"

	"weld-academy-service/internal/app"
	"weld-academy-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// It keeps live *app.Session values so concurrent callers share one session mutex.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Save(_ context.Context, session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (*app.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
