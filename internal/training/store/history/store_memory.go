package history

import (
	"context"
	"slices"
	"sync"

	"idscore/internal/training/models"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	entries []models.HistoryEntry
	limit   int
}

func NewInMemory(limit int) *InMemoryStore {
	if limit <= 0 {
		limit = models.DefaultConfig().HistoryLimit
	}
	return &InMemoryStore{limit: limit}
}

func (s *InMemoryStore) Append(_ context.Context, entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = slices.Insert(s.entries, 0, entry)
	if len(s.entries) > s.limit {
		s.entries = s.entries[:s.limit]
	}
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, limit int) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	return slices.Clone(s.entries[:limit]), nil
}
