package store

import (
	"context"
	"slices"
	"sync"

	"idscore/internal/artifact"
	"idscore/pkg/platform/sentinel"
)

// InMemoryStore keeps artifacts in process memory. Used by tests and by
// single-instance deployments without Redis.
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]artifact.Artifact
	pointer   *artifact.Pointer
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]artifact.Artifact)}
}

func (s *InMemoryStore) Put(_ context.Context, arts ...artifact.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range arts {
		a.Data = slices.Clone(a.Data)
		s.artifacts[a.Meta.Ref().Key()] = a
	}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, ref artifact.Ref) (*artifact.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[ref.Key()]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	a.Data = slices.Clone(a.Data)
	return &a, nil
}

func (s *InMemoryStore) Delete(_ context.Context, refs ...artifact.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ref := range refs {
		delete(s.artifacts, ref.Key())
	}
	return nil
}

func (s *InMemoryStore) Pointer(_ context.Context) (*artifact.Pointer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pointer == nil {
		return nil, sentinel.ErrNotFound
	}
	p := *s.pointer
	return &p, nil
}

func (s *InMemoryStore) SetPointer(_ context.Context, p artifact.Pointer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointer = &p
	return nil
}

// Keys lists every stored artifact key.
func (s *InMemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.artifacts))
	for k := range s.artifacts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Corrupt flips one byte of a stored artifact's data.
func (s *InMemoryStore) Corrupt(ref artifact.Ref) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[ref.Key()]
	if !ok || len(a.Data) == 0 {
		return false
	}
	a.Data = slices.Clone(a.Data)
	a.Data[0] ^= 0xff
	s.artifacts[ref.Key()] = a
	return true
}
