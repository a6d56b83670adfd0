package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryConfirmationCounter_Incr(t *testing.T) {
	counter := NewInMemoryConfirmationCounter()
	defer counter.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	counter.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("window is fixed from the first click", func(t *testing.T) {
		count, ttl, err := counter.Incr(ctx, "a", 30*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, 30*time.Second, ttl)

		now = now.Add(10 * time.Second)
		count, ttl, err = counter.Incr(ctx, "a", 30*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Equal(t, 20*time.Second, ttl, "a later click must not extend the window")
	})

	t.Run("expired counter starts over", func(t *testing.T) {
		now = now.Add(25 * time.Second)
		count, ttl, err := counter.Incr(ctx, "a", 30*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, 30*time.Second, ttl)
	})

	t.Run("keys are independent", func(t *testing.T) {
		count, _, err := counter.Incr(ctx, "b", 30*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestInMemoryConfirmationCounter_Reset(t *testing.T) {
	counter := NewInMemoryConfirmationCounter()
	defer counter.Close()
	ctx := context.Background()

	_, _, _ = counter.Incr(ctx, "k", time.Minute)
	_, _, _ = counter.Incr(ctx, "k", time.Minute)
	require.NoError(t, counter.Reset(ctx, "k"))

	count, _, err := counter.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, counter.Reset(ctx, "missing"))
}

func TestInMemoryConfirmationCounter_Cleanup(t *testing.T) {
	counter := NewInMemoryConfirmationCounter()
	defer counter.Close()

	now := time.Now()
	counter.now = func() time.Time { return now }
	ctx := context.Background()

	_, _, _ = counter.Incr(ctx, "short", time.Second)
	_, _, _ = counter.Incr(ctx, "long", time.Hour)
	require.Equal(t, 2, counter.Size())

	now = now.Add(2 * time.Second)
	counter.cleanup()

	assert.Equal(t, 1, counter.Size())
}

func TestInMemoryConfirmationCounter_Concurrent(t *testing.T) {
	counter := NewInMemoryConfirmationCounter()
	defer counter.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = counter.Incr(ctx, "shared", time.Minute)
		}()
	}
	wg.Wait()

	count, _, err := counter.Incr(ctx, "shared", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 51, count)
}

func TestInMemoryConfirmationCounter_CloseTwice(t *testing.T) {
	counter := NewInMemoryConfirmationCounter()
	assert.NoError(t, counter.Close())
	assert.NoError(t, counter.Close())
}
