package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlightCacheSingleFlight(t *testing.T) {
	fc := NewFlightCache[int]()
	gate := make(chan struct{})
	var computes int32

	compute := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&computes, 1)
		<-gate
		return 42, nil
	}

	const callers = 20
	var wg sync.WaitGroup
	results := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := fc.Do(context.Background(), "k", time.Minute, false, compute)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Let every caller queue behind the one active flight before it resolves.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&computes))
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestFlightCacheTTLExpiry(t *testing.T) {
	fc := NewFlightCache[string]()
	clock := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	fc.now = func() time.Time { return clock }

	var computes int
	compute := func(ctx context.Context) (string, error) {
		computes++
		return "v", nil
	}

	_, hit, err := fc.Do(context.Background(), "k", time.Minute, false, compute)
	require.NoError(t, err)
	assert.False(t, hit)

	clock = clock.Add(59 * time.Second)
	_, hit, err = fc.Do(context.Background(), "k", time.Minute, false, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, computes)

	clock = clock.Add(2 * time.Second)
	_, hit, err = fc.Do(context.Background(), "k", time.Minute, false, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, computes)
}

func TestFlightCacheStaleAfterFailure(t *testing.T) {
	fc := NewFlightCache[string]()
	clock := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	fc.now = func() time.Time { return clock }

	_, _, err := fc.Do(context.Background(), "k", time.Second, false, func(ctx context.Context) (string, error) {
		return "last-good", nil
	})
	require.NoError(t, err)
	computedAt := clock

	clock = clock.Add(time.Hour)
	boom := errors.New("upstream down")
	_, _, err = fc.Do(context.Background(), "k", time.Second, false, func(ctx context.Context) (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)

	// The expired entry survives the failed refresh.
	payload, at, ok := fc.Stale("k")
	require.True(t, ok)
	assert.Equal(t, "last-good", payload)
	assert.Equal(t, computedAt, at)
}

func TestFlightCacheInvalidate(t *testing.T) {
	fc := NewFlightCache[int]()
	var computes int
	compute := func(ctx context.Context) (int, error) {
		computes++
		return computes, nil
	}

	v, _, err := fc.Do(context.Background(), "k", time.Hour, false, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	fc.Invalidate("k")
	_, _, ok := fc.Stale("k")
	assert.False(t, ok)

	v, hit, err := fc.Do(context.Background(), "k", time.Hour, false, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, v)
}

func TestFlightCacheForceBypassesFreshEntry(t *testing.T) {
	fc := NewFlightCache[int]()
	var computes int
	compute := func(ctx context.Context) (int, error) {
		computes++
		return computes, nil
	}

	_, _, err := fc.Do(context.Background(), "k", time.Hour, false, compute)
	require.NoError(t, err)

	v, hit, err := fc.Do(context.Background(), "k", time.Hour, true, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, v)
}
