package fetchers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchPublishOnlyIfGreater(t *testing.T) {
	watch := NewWatch(func(old, new int) bool { return old < new })
	receiver := watch.Receiver()

	assert.True(t, watch.Publish(5))
	value, present := receiver.Latest()
	require.True(t, present)
	assert.Equal(t, 5, value)

	// A stale value is rejected; the current one stays.
	assert.False(t, watch.Publish(4))
	assert.False(t, watch.Publish(5))
	value, _ = receiver.Latest()
	assert.Equal(t, 5, value)

	assert.True(t, watch.Publish(6))
	value, _ = receiver.Latest()
	assert.Equal(t, 6, value)
}

func TestWatchGetBlocksUntilFirstValue(t *testing.T) {
	watch := NewWatch(func(old, new int) bool { return old < new })
	receiver := watch.Receiver()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := receiver.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go func() {
		time.Sleep(10 * time.Millisecond)
		watch.Publish(7)
	}()
	waitCtx, cancelWait := context.WithTimeout(context.Background(), time.Second)
	defer cancelWait()
	value, err := receiver.Get(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, 7, value)
}

func TestWatchAlwaysAcceptComparator(t *testing.T) {
	watch := NewWatch[int](nil)
	assert.True(t, watch.Publish(3))
	assert.True(t, watch.Publish(1))
	value, _ := watch.Receiver().Latest()
	assert.Equal(t, 1, value)
}

type countingFetcher struct {
	initErr error
	values  chan int
}

func (f *countingFetcher) Name() string { return "counting" }

func (f *countingFetcher) Init(ctx context.Context) error { return f.initErr }

func (f *countingFetcher) Fetch(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case value := <-f.values:
		return value, nil
	}
}

func TestPeriodicFetcherPublishes(t *testing.T) {
	fetcher := &countingFetcher{values: make(chan int, 2)}
	fetcher.values <- 1
	fetcher.values <- 2

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := NewPeriodic[int](fetcher, ZeroConfig(), testLog(t))
	receiver := runner.Serve(ctx, func(old, new int) bool { return old < new })

	waitCtx, cancelWait := context.WithTimeout(ctx, time.Second)
	defer cancelWait()
	value, err := receiver.Get(waitCtx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, value, 1)
}

func TestPeriodicFetcherDeadOnInitFailure(t *testing.T) {
	fetcher := &countingFetcher{initErr: assert.AnError, values: make(chan int, 1)}
	fetcher.values <- 1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	receiver := NewPeriodic[int](fetcher, ZeroConfig(), testLog(t)).
		Serve(ctx, nil)

	waitCtx, cancelWait := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancelWait()
	_, err := receiver.Get(waitCtx)
	assert.Error(t, err)
}
