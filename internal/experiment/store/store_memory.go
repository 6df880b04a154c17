package store

import (
	"context"
	"slices"
	"sync"

	"idscore/internal/experiment/models"
	"idscore/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu         sync.RWMutex
	current    *models.Experiment
	promotions []models.PromotionRecord
	limit      int
}

func NewInMemory(historyLimit int) *InMemoryStore {
	if historyLimit <= 0 {
		historyLimit = models.DefaultConfig().PromotionHistory
	}
	return &InMemoryStore{limit: historyLimit}
}

func (s *InMemoryStore) Current(_ context.Context) (*models.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, sentinel.ErrNotFound
	}
	exp := *s.current
	return &exp, nil
}

func (s *InMemoryStore) Create(_ context.Context, exp models.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.Enabled {
		return sentinel.ErrConflict
	}
	s.current = &exp
	return nil
}

func (s *InMemoryStore) Save(_ context.Context, exp models.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &exp
	return nil
}

func (s *InMemoryStore) AppendPromotion(_ context.Context, rec models.PromotionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promotions = append([]models.PromotionRecord{rec}, s.promotions...)
	if len(s.promotions) > s.limit {
		s.promotions = s.promotions[:s.limit]
	}
	return nil
}

func (s *InMemoryStore) Promotions(_ context.Context, limit int) ([]models.PromotionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.promotions) {
		limit = len(s.promotions)
	}
	return slices.Clone(s.promotions[:limit]), nil
}
