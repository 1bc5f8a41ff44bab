package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "amicable/pkg/platform/audit"
	"amicable/pkg/platform/audit/store/memory"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]audit.Entry
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, entries []audit.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, entries)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func appendEvents(t *testing.T, store *memory.InMemoryStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, store.Append(context.Background(), audit.Event{Type: audit.EventStatementUpdated, AccidentID: 1}))
	}
}

func TestRelayFlushDrainsInBatches(t *testing.T) {
	store := memory.NewInMemoryStore()
	appendEvents(t, store, 5)
	pub := &recordingPublisher{}

	relay := NewRelay(store, pub, WithBatchSize(2))
	n, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Len(t, pub.batches, 3)

	pending, err := store.Pending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err = relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "published entries are not sent twice")
}

func TestRelayKeepsEntriesWhenPublishFails(t *testing.T) {
	store := memory.NewInMemoryStore()
	appendEvents(t, store, 2)
	pub := &recordingPublisher{err: errors.New("broker down")}

	relay := NewRelay(store, pub)
	_, err := relay.Flush(context.Background())
	require.Error(t, err)

	pending, err := store.Pending(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	pub.err = nil
	n, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRelayRunStopsOnCancel(t *testing.T) {
	store := memory.NewInMemoryStore()
	appendEvents(t, store, 1)
	pub := &recordingPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewRelay(store, pub, WithInterval(5*time.Millisecond)).Run(ctx) }()

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	store := memory.NewInMemoryStore()
	require.NoError(t, store.Append(context.Background(), audit.Event{Type: audit.EventDriverRemoved, AccidentID: 42}))
	entries, err := store.Pending(context.Background(), 10)
	require.NoError(t, err)

	require.NoError(t, NewLogPublisher(logger).Publish(context.Background(), entries))
	assert.Contains(t, buf.String(), `"event_type":"driver_removed"`)
	assert.Contains(t, buf.String(), `"category":"security"`)
	assert.Contains(t, buf.String(), `"accident_id":"42"`)
}
