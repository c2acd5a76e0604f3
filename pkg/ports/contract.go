package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebframework/treb/pkg/domain"
)

// RunCacheContract runs a suite of tests to verify that a Cache
// implementation adheres to the defined interface contract.
func RunCacheContract(t *testing.T, cache Cache) {
	ctx := context.Background()
	key := "contract-test-" + time.Now().Format("20060102150405")

	t.Run("Set and Get", func(t *testing.T) {
		err := cache.Set(ctx, key, []byte("payload"), time.Minute)
		require.NoError(t, err, "Set should not return error")

		got, err := cache.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, []byte("payload"), got)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := cache.Get(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, []byte("one"), time.Minute))
		require.NoError(t, cache.Set(ctx, key, []byte("two"), time.Minute))

		got, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, []byte("gone"), time.Minute))
		require.NoError(t, cache.Delete(ctx, key), "Delete should not return error")

		_, err := cache.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrCacheMiss, "Get after Delete should miss")
	})

	t.Run("Delete Non-Existent", func(t *testing.T) {
		assert.NoError(t, cache.Delete(ctx, "non-existent-"+key))
	})
}

// RunLockerContract verifies the advisory semantics of a Locker
// implementation: exclusion while held, reacquisition after release.
func RunLockerContract(t *testing.T, locker Locker) {
	ctx := context.Background()
	key := "contract-lock-" + time.Now().Format("20060102150405")

	t.Run("Acquire and Release", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, time.Minute)
		require.NoError(t, err, "first Lock should succeed")
		require.NotNil(t, unlock)

		// Held lock blocks a second acquisition within the retry budget.
		_, err = locker.Lock(ctx, key, time.Minute)
		assert.ErrorIs(t, err, domain.ErrLockNotAcquired)

		require.NoError(t, unlock(ctx))

		unlock2, err := locker.Lock(ctx, key, time.Minute)
		require.NoError(t, err, "Lock after release should succeed")
		require.NoError(t, unlock2(ctx))
	})
}
