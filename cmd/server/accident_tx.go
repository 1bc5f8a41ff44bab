package main

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand/v2"
	"time"

	"amicable/internal/accident/metrics"
	"amicable/internal/platform/postgres"
	"amicable/pkg/domain"
	dErrors "amicable/pkg/domain-errors"
	txcontext "amicable/pkg/platform/tx"
)

const (
	defaultAccidentTxTimeout = 5 * time.Second
	maxTxAttempts            = 3
	baseTxBackoff            = 25 * time.Millisecond
)

// accidentPostgresTx serializes writers of one accident with a
// transaction-scoped advisory lock keyed by the accident id. Id 0 (an accident
// being created) takes no lock.
type accidentPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func newAccidentPostgresTx(db *sql.DB, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *accidentPostgresTx {
	return &accidentPostgresTx{db: db, timeout: timeout, metrics: m, logger: logger, sleep: sleepCtx}
}

func (t *accidentPostgresTx) RunInTx(ctx context.Context, accidentID domain.AccidentID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultAccidentTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return retryTransient(ctx, maxTxAttempts, t.sleep, func(attempt int, err error) {
		t.metrics.IncrementTxRetries()
		t.logger.WarnContext(ctx, "retrying accident transaction",
			"accident_id", accidentID,
			"attempt", attempt,
			"error", err,
		)
	}, func() error {
		return t.runOnce(ctx, accidentID, fn)
	})
}

func (t *accidentPostgresTx) runOnce(ctx context.Context, accidentID domain.AccidentID, fn func(ctx context.Context) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if accidentID != 0 {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(accidentID)); err != nil {
			return err
		}
	}

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	return tx.Commit()
}

// retryTransient runs op up to attempts times while it fails with a transient
// Postgres error, backing off with jitter between tries. Exhausted retries
// surface as CodeUnavailable. Domain errors pass through; raw driver errors
// become CodeTimeout once ctx is done and CodeInternal otherwise.
func retryTransient(
	ctx context.Context,
	attempts int,
	sleep func(context.Context, time.Duration) error,
	onRetry func(attempt int, err error),
	op func() error,
) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !postgres.IsTransient(err) {
			if _, ok := dErrors.As(err); ok {
				return err
			}
			if ctx.Err() != nil {
				return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction timed out")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "transaction failed")
		}
		if attempt == attempts {
			break
		}
		onRetry(attempt, err)
		if sleepErr := sleep(ctx, backoff(attempt)); sleepErr != nil {
			return dErrors.Wrap(sleepErr, dErrors.CodeTimeout, "transaction timed out")
		}
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "storage temporarily unavailable")
}

// backoff doubles per attempt with up to 50% jitter.
func backoff(attempt int) time.Duration {
	d := baseTxBackoff << (attempt - 1)
	return d + rand.N(d/2+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
