package usecase

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
	"go.uber.org/zap"

	"github.com/naka-gawa/ctrl/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startDispatcher(t *testing.T, cfg DispatcherConfig) (*Dispatcher, func()) {
	t.Helper()
	d := NewDispatcher(cfg, metrics.NewRecorder(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, d.Run(ctx))
	}()
	return d, func() {
		cancel()
		<-done
	}
}

func TestDispatcher_RunsJobs(t *testing.T) {
	d, stop := startDispatcher(t, DispatcherConfig{Workers: 2, QueueSize: 10})

	var wg sync.WaitGroup
	var count atomic.Int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		id, err := d.Submit("respond", func(ctx context.Context) error {
			defer wg.Done()
			count.Add(1)
			return nil
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}
	wg.Wait()
	stop()

	assert.Equal(t, int32(5), count.Load())
}

func TestDispatcher_RetriesUntilSuccess(t *testing.T) {
	d, stop := startDispatcher(t, DispatcherConfig{Workers: 1, MaxRetries: 3, Backoff: time.Millisecond})

	var attempts atomic.Int32
	done := make(chan struct{})
	_, err := d.Submit("flaky", func(ctx context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("temporary")
		}
		close(done)
		return nil
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job never succeeded")
	}
	stop()
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDispatcher_GivesUpAfterRetries(t *testing.T) {
	d, stop := startDispatcher(t, DispatcherConfig{Workers: 1, MaxRetries: 2, Backoff: time.Millisecond})

	var attempts atomic.Int32
	_, err := d.Submit("broken", func(ctx context.Context) error {
		attempts.Add(1)
		return errors.New("permanent")
	})
	require.NoError(t, err)
	stop()

	assert.Equal(t, int32(3), attempts.Load(), "queued jobs are drained on shutdown")
}

func TestDispatcher_JobTimeout(t *testing.T) {
	d, stop := startDispatcher(t, DispatcherConfig{Workers: 1, Timeout: 10 * time.Millisecond})

	result := make(chan error, 1)
	_, err := d.Submit("slow", func(ctx context.Context) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	})
	require.NoError(t, err)

	assert.ErrorIs(t, <-result, context.DeadlineExceeded)
	stop()
}

func TestDispatcher_QueueFullAndClosed(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{Workers: 1, QueueSize: 1}, nil, zap.NewNop())

	_, err := d.Submit("first", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	_, err = d.Submit("second", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	_, err = d.Submit("late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrDispatcherClosed)
}

func TestDispatcher_SubmitOnceIsNotRetried(t *testing.T) {
	d, stop := startDispatcher(t, DispatcherConfig{Workers: 1, MaxRetries: 5, Backoff: time.Millisecond})

	var attempts atomic.Int32
	_, err := d.SubmitOnce("merge", func(ctx context.Context) error {
		attempts.Add(1)
		return errors.New("merge conflict")
	})
	require.NoError(t, err)
	stop()

	assert.Equal(t, int32(1), attempts.Load())
}
