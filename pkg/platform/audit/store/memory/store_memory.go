package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	audit "amicable/pkg/platform/audit"
)

// InMemoryStore is an outbox for single-process runs and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
	events  []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.events = nil
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	event = audit.Prepare(event)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	s.entries = append(s.entries, audit.Entry{
		ID:            event.ID,
		AggregateType: "accident",
		AggregateID:   event.AccidentID.String(),
		EventType:     event.Type,
		Payload:       payload,
		CreatedAt:     event.Timestamp,
	})
	return nil
}

func (s *InMemoryStore) Pending(_ context.Context, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Entry
	for _, e := range s.entries {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if _, ok := want[s.entries[i].ID]; ok && s.entries[i].PublishedAt == nil {
			t := at
			s.entries[i].PublishedAt = &t
		}
	}
	return nil
}

// Events returns every appended event in order.
func (s *InMemoryStore) Events() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...)
}

// Types returns the appended event types in order.
func (s *InMemoryStore) Types() []audit.EventType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.EventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}
