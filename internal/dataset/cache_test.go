package dataset

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func TestCache_ReloadsAfterTTL(t *testing.T) {
	var loads atomic.Int32
	cache := NewCache(func(context.Context) (*Dataset, error) {
		loads.Add(1)
		return New(nil, nil), nil
	}, time.Minute)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	first, err := cache.Get(ctx)
	require.NoError(t, err)
	second, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), loads.Load())

	now = now.Add(2 * time.Minute)
	third, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, int32(2), loads.Load())
}

func TestCache_SharesConcurrentLoad(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	cache := NewCache(func(context.Context) (*Dataset, error) {
		loads.Add(1)
		<-release
		return New(nil, nil), nil
	}, 0)

	var wg sync.WaitGroup
	results := make([]*Dataset, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ds, err := cache.Get(context.Background())
			assert.NoError(t, err)
			results[i] = ds
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, ds := range results {
		assert.Same(t, results[0], ds)
	}
}

func TestCache_LoadError(t *testing.T) {
	boom := errors.New("boom")
	cache := NewCache(func(context.Context) (*Dataset, error) { return nil, boom }, 0)

	_, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestStatic(t *testing.T) {
	ds := New(nil, nil)
	got, err := Static(ds).Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, ds, got)
}
