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

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestGetSet(t *testing.T) {
	c := New[string]("test", time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", "alpha")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", v)
	assert.Equal(t, 1, c.Len())
}

func TestExpiredEntryIsNeverReturned(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := New[int]("test", 10*time.Minute, WithClock(clock.Now))

	c.Set("k", 42)
	clock.Advance(10*time.Minute - time.Second)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry must expire exactly at its TTL")
	assert.Equal(t, 0, c.Len(), "lazy expiry removes the entry")
}

func TestEagerDeletion(t *testing.T) {
	c := New[int]("test", 20*time.Millisecond)
	c.Set("k", 1)

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStaleTimerDoesNotRemoveNewerEntry(t *testing.T) {
	c := New[int]("test", 50*time.Millisecond)
	c.Set("k", 1)
	c.Set("k", 2)

	// the first timer was stopped; the second one is still pending
	time.Sleep(10 * time.Millisecond)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestMaxSizeEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int]("test", time.Minute, WithMaxSize(2))
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestGetOrComputeCachesValue(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := New[string]("test", 5*time.Minute, WithClock(clock.Now))
	var calls int32
	fn := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "computed", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute(context.Background(), "k", fn)
		require.NoError(t, err)
		assert.Equal(t, "computed", v)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	clock.Advance(5 * time.Minute)
	_, err := c.GetOrCompute(context.Background(), "k", fn)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := New[string]("test", time.Minute)
	boom := errors.New("boom")
	var calls int

	_, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (string, error) {
		calls++
		return "", boom
	})
	assert.ErrorIs(t, err, boom)

	v, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestGetOrComputeSharesConcurrentCalls(t *testing.T) {
	c := New[int]("test", time.Minute)
	var calls int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (int, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return 7, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, v := range results {
		assert.Equal(t, 7, v)
	}
}

func TestPurge(t *testing.T) {
	c := New[int]("test", time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestGetOrComputeOutlivesCancelledCaller(t *testing.T) {
	c := New[int]("test", time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	fn := func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return 7, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.GetOrCompute(ctxA, "k", fn)
		errA <- err
	}()
	<-started

	type result struct {
		v   int
		err error
	}
	resB := make(chan result, 1)
	go func() {
		v, err := c.GetOrCompute(context.Background(), "k", fn)
		resB <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, 7, b.v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestGetOrComputeIsBoundedByComputeTimeout(t *testing.T) {
	c := New[int]("test", time.Minute, WithComputeTimeout(10*time.Millisecond))
	_, err := c.GetOrCompute(context.Background(), "k", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, c.Len())
}

func TestGetOrComputeSkipsDoneCaller(t *testing.T) {
	c := New[int]("test", time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetOrCompute(ctx, "k", func(context.Context) (int, error) {
		t.Fatal("fn must not run for a caller that is already done")
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
