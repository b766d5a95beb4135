package memory

import (
	"context"
	"sync"

	"weld-academy-service/internal/domain"
)

// UserStore keeps user records in a map. UpdateBadges runs under the write lock.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserStore(seed ...domain.User) *UserStore {
	s := &UserStore{users: make(map[string]domain.User, len(seed))}
	for _, u := range seed {
		s.users[u.ID] = u
	}
	return s
}

func (s *UserStore) GetUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *UserStore) SaveUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *UserStore) UpdateBadges(_ context.Context, userID string, fn func(domain.BadgeSet) (domain.BadgeSet, bool)) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	next, changed := fn(user.Badges)
	if changed {
		user.Badges = next
		s.users[userID] = user
	}
	return user, nil
}
