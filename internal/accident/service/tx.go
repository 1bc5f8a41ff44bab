package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"amicable/pkg/domain"
	dErrors "amicable/pkg/domain-errors"
)

// AccidentTx is the single write boundary of the workflow. Every multi-step
// mutation of one accident runs inside RunInTx; writes made through the
// store with the ctx passed to fn either all land or none do, and two
// transactions on the same accident never interleave.
type AccidentTx interface {
	RunInTx(ctx context.Context, accidentID domain.AccidentID, fn func(ctx context.Context) error) error
}

// UndoScope opens a rollback scope for stores without native transactions.
type UndoScope interface {
	BeginUndo(ctx context.Context) (context.Context, func(commit bool))
}

// numAccidentShards bounds lock memory; accidents hashing to the same shard
// serialize, which is safe but slower.
const numAccidentShards = 128

// defaultTxTimeout is the maximum duration for an accident transaction.
const defaultTxTimeout = 5 * time.Second

// ShardedTx serializes in-memory transactions per accident using sharded
// mutexes, and rolls back partial writes through the store's undo journal.
type ShardedTx struct {
	shards  [numAccidentShards]sync.Mutex
	undo    UndoScope
	timeout time.Duration
}

// NewShardedTx builds the in-memory AccidentTx. A zero timeout uses the default.
func NewShardedTx(undo UndoScope, timeout time.Duration) *ShardedTx {
	return &ShardedTx{undo: undo, timeout: timeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, accidentID domain.AccidentID, fn func(ctx context.Context) error) error {
	// Check if context is already cancelled
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := shardFor(accidentID)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	ctx, finish := t.undo.BeginUndo(ctx)
	err := fn(ctx)
	finish(err == nil)
	return err
}

func shardFor(id domain.AccidentID) int {
	return int(hashString(strconv.FormatInt(int64(id), 10)) % numAccidentShards)
}

// hashString uses FNV-1a for better hash distribution than simple multiply-add.
func hashString(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
