package store

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkDockerAvailable checks if Docker is available and running.
func checkDockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// testStoreContract runs the behaviour every backend must share.
func testStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		_, err := s.Get(ctx, "wager:missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SetGetOverwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "wager:1", []byte(`{"id":"1"}`)))
		got, err := s.Get(ctx, "wager:1")
		require.NoError(t, err)
		assert.Equal(t, `{"id":"1"}`, string(got))

		require.NoError(t, s.Set(ctx, "wager:1", []byte(`{"id":"1","status":"CANCELLED"}`)))
		got, err = s.Get(ctx, "wager:1")
		require.NoError(t, err)
		assert.Equal(t, `{"id":"1","status":"CANCELLED"}`, string(got))
	})

	t.Run("ListByPrefix", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "wager:2", []byte(`{}`)))
		require.NoError(t, s.Set(ctx, "wallet:user:42", []byte(`{}`)))
		require.NoError(t, s.Set(ctx, "transfer:abc", []byte(`{}`)))

		keys, err := s.List(ctx, "wager:")
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{"wager:1", "wager:2"}, keys)

		keys, err = s.List(ctx, "wallet:")
		require.NoError(t, err)
		assert.Equal(t, []string{"wallet:user:42"}, keys)

		keys, err = s.List(ctx, "nothing:")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("IncrIsMonotonic", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			n, err := s.Incr(ctx, "wager_id")
			require.NoError(t, err)
			assert.Equal(t, i, n)
		}
		n, err := s.Incr(ctx, "other")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		keys, err := s.List(ctx, "")
		require.NoError(t, err)
		for _, k := range keys {
			assert.NotContains(t, k, "wager_id")
		}
	})

	t.Run("IncrIsAtomic", func(t *testing.T) {
		const workers = 20
		seen := make(map[int64]bool, workers)
		var mu sync.Mutex
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := s.Incr(ctx, "concurrent")
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				seen[n] = true
				mu.Unlock()
			}()
		}
		wg.Wait()

		require.Len(t, seen, workers)
		for i := int64(1); i <= workers; i++ {
			assert.True(t, seen[i], fmt.Sprintf("missing counter value %d", i))
		}
	})
}
