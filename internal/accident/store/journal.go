package store

import (
	"context"
	"sync"
)

type journalKey struct{}

// journal records inverse operations for writes made inside one in-memory
// transaction so they can be undone if the transaction fails.
type journal struct {
	mu   sync.Mutex
	undo []func()
}

func (j *journal) record(fn func()) {
	j.mu.Lock()
	j.undo = append(j.undo, fn)
	j.mu.Unlock()
}

func (j *journal) rollback() {
	j.mu.Lock()
	steps := j.undo
	j.undo = nil
	j.mu.Unlock()
	for i := len(steps) - 1; i >= 0; i-- {
		steps[i]()
	}
}

func journalFrom(ctx context.Context) *journal {
	j, _ := ctx.Value(journalKey{}).(*journal)
	return j
}

// BeginUndo opens an undo scope. The returned finish func rolls back every
// write recorded under ctx unless commit is true. Nested scopes join the
// outer one.
func (s *InMemory) BeginUndo(ctx context.Context) (context.Context, func(commit bool)) {
	if journalFrom(ctx) != nil {
		return ctx, func(bool) {}
	}
	j := &journal{}
	ctx = context.WithValue(ctx, journalKey{}, j)
	return ctx, func(commit bool) {
		if commit {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		j.rollback()
	}
}

// recordLocked registers an undo step. Undo steps run with s.mu held.
func (s *InMemory) recordLocked(ctx context.Context, fn func()) {
	if j := journalFrom(ctx); j != nil {
		j.record(fn)
	}
}
