package store

import (
	"context"
	"sort"
	"sync"
	"time"

	dErrors "biblio/pkg/domain-errors"
)

// Tx is the transactional boundary for circulation mutations. Checkout and
// return each run their load-check-mutate sequence inside one RunInTx call,
// keyed on the item and patron identifiers being touched, so two concurrent
// checkouts cannot both observe the last copy and both take it, and a patron
// cannot race past their loan limit.
type Tx interface {
	RunInTx(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}

// numShards trades memory for contention: keys hash onto this many mutexes.
const numShards = 64

// defaultTxTimeout bounds a transaction when the caller sets no deadline.
const defaultTxTimeout = 5 * time.Second

// ShardedTx serializes operations with sharded mutexes, for use with the
// in-memory stores. Every key hashes to a shard; all shards for an
// operation's keys are locked in ascending order, which rules out deadlock
// between concurrent operations sharing keys.
type ShardedTx struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

func NewShardedTx() *ShardedTx {
	return &ShardedTx{timeout: defaultTxTimeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	for _, shard := range shardSet(keys) {
		t.shards[shard].Lock()
		defer t.shards[shard].Unlock()
	}

	// Check again after acquiring locks.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

// shardSet maps keys to a deduplicated, ascending list of shard indices.
func shardSet(keys []string) []int {
	seen := make(map[int]struct{}, len(keys))
	out := make([]int, 0, len(keys))
	for _, key := range keys {
		shard := int(fnv1a(key) % numShards)
		if _, ok := seen[shard]; ok {
			continue
		}
		seen[shard] = struct{}{}
		out = append(out, shard)
	}
	sort.Ints(out)
	return out
}

// fnv1a hashes a key for shard selection.
func fnv1a(s string) uint32 {
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
