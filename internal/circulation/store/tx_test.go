package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "biblio/pkg/domain-errors"
)

func TestShardedTxSerializesSameKey(t *testing.T) {
	tx := NewShardedTx()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tx.RunInTx(context.Background(), []string{"item:I1"}, func(context.Context) error {
				// Unsynchronized on purpose: the lock is what makes this safe.
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 32, counter)
}

func TestShardedTxDuplicateKeysDoNotDeadlock(t *testing.T) {
	tx := NewShardedTx()

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := tx.RunInTx(context.Background(),
			[]string{"item:I1", "item:I1", "patron:P1"},
			func(context.Context) error { return nil })
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunInTx deadlocked on duplicate keys")
	}
}

func TestShardedTxRejectsCancelledContext(t *testing.T) {
	tx := NewShardedTx()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tx.RunInTx(ctx, []string{"item:I1"}, func(context.Context) error {
		t.Fatal("fn must not run on a cancelled context")
		return nil
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

func TestShardedTxAppliesDefaultDeadline(t *testing.T) {
	tx := NewShardedTx()

	err := tx.RunInTx(context.Background(), []string{"k"}, func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		require.True(t, ok, "expected a default deadline")
		assert.WithinDuration(t, time.Now().Add(defaultTxTimeout), deadline, time.Second)
		return nil
	})
	require.NoError(t, err)
}

func TestShardSetDedupesAndSorts(t *testing.T) {
	shards := shardSet([]string{"a", "b", "a", "c"})
	require.NotEmpty(t, shards)
	for i := 1; i < len(shards); i++ {
		assert.Greater(t, shards[i], shards[i-1])
	}
}
