package blob

import (
	"context"
	"sync"

	"amicable/pkg/platform/sentinel"
)

type object struct {
	data        []byte
	contentType string
}

type InMemory struct {
	mu      sync.RWMutex
	objects map[string]object
}

func NewInMemory() *InMemory {
	return &InMemory{objects: make(map[string]object)}
}

func (s *InMemory) Put(_ context.Context, key, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

func (s *InMemory) Get(_ context.Context, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", sentinel.ErrNotFound
	}
	return append([]byte(nil), obj.data...), obj.contentType, nil
}

func (s *InMemory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Len reports how many objects are stored.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
