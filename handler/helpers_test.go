package handler

import (
	"context"
	"sync"

	"github.com/bmwz1992yc/order-management/backend/service"
)

// memObjectStore is an in-memory ObjectStore for handler tests
type memObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte)}
}

func (s *memObjectStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, service.ErrObjectNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *memObjectStore) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return nil
}
