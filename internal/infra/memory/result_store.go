package memory

import (
	"context"
	"sync"

	"weld-academy-service/internal/domain"
)

// ResultStore appends quiz results per user in arrival order.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string][]domain.QuizResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string][]domain.QuizResult)}
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.UserID] = append(s.results[result.UserID], result)
	return nil
}

func (s *ResultStore) ListResults(_ context.Context, userID string) ([]domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.QuizResult{}, s.results[userID]...), nil
}
