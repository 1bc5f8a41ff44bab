package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "amicable/pkg/platform/audit"
)

// Publisher delivers outbox entries to their destination. Publish must be
// all-or-nothing from the relay's point of view: on error nothing is marked
// published and the batch is retried.
type Publisher interface {
	Publish(ctx context.Context, entries []audit.Entry) error
}

// Relay polls the outbox and publishes committed events. Delivery is
// at-least-once; consumers dedupe on the event id.
type Relay struct {
	store     audit.Store
	publisher Publisher
	interval  time.Duration
	batch     int
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRelay(store audit.Store, publisher Publisher, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		publisher: publisher,
		interval:  time.Second,
		batch:     100,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run flushes on every tick until ctx is cancelled. Publish failures are
// logged and retried on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				r.logger.WarnContext(ctx, "outbox relay flush failed", "error", err)
			}
		}
	}
}

// Flush publishes pending entries batch by batch until the outbox is drained
// and returns how many were published.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	total := 0
	for {
		entries, err := r.store.Pending(ctx, r.batch)
		if err != nil {
			return total, err
		}
		if len(entries) == 0 {
			return total, nil
		}
		if err := r.publisher.Publish(ctx, entries); err != nil {
			return total, err
		}
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		if err := r.store.MarkPublished(ctx, ids, r.now().UTC()); err != nil {
			return total, err
		}
		total += len(entries)
		if len(entries) < r.batch {
			return total, nil
		}
	}
}

// LogPublisher writes entries to the log. Used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, entries []audit.Entry) error {
	for _, e := range entries {
		p.logger.InfoContext(ctx, "accident event",
			"log_type", "event",
			"event_id", e.ID.String(),
			"event_type", string(e.EventType),
			"category", string(e.EventType.Category()),
			"accident_id", e.AggregateID,
		)
	}
	return nil
}
