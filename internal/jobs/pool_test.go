package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsAllJobsBeforeStop(t *testing.T) {
	p := New(3, 10, time.Second, nil)
	p.Start(context.Background())

	var done atomic.Int32
	for i := 0; i < 25; i++ {
		require.NoError(t, p.Submit(context.Background(), "count", func(ctx context.Context) error {
			done.Add(1)
			return nil
		}))
	}
	p.Stop()
	assert.Equal(t, int32(25), done.Load())

	err := p.Submit(context.Background(), "late", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
	p.Stop() // idempotent
}

func TestPoolSurvivesPanicAndError(t *testing.T) {
	p := New(1, 4, time.Second, nil)
	p.Start(context.Background())

	var ran atomic.Bool
	require.NoError(t, p.Submit(context.Background(), "boom", func(context.Context) error { panic("boom") }))
	require.NoError(t, p.Submit(context.Background(), "fail", func(context.Context) error { return errors.New("x") }))
	require.NoError(t, p.Submit(context.Background(), "ok", func(context.Context) error {
		ran.Store(true)
		return nil
	}))
	p.Stop()
	assert.True(t, ran.Load())
}

func TestPoolJobTimeout(t *testing.T) {
	p := New(1, 1, 20*time.Millisecond, nil)
	p.Start(context.Background())

	got := make(chan error, 1)
	require.NoError(t, p.Submit(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		got <- ctx.Err()
		return ctx.Err()
	}))
	select {
	case err := <-got:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("job context never expired")
	}
	p.Stop()
}

func TestSubmitRespectsContextWhenFull(t *testing.T) {
	p := New(1, 1, time.Second, nil) // belum Start: queue tidak pernah dikosongkan
	require.NoError(t, p.Submit(context.Background(), "fill", func(context.Context) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, "overflow", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	p.Start(context.Background())
	p.Stop()
}

func TestRetryStopsOnSuccess(t *testing.T) {
	var calls atomic.Int32
	err := Retry(context.Background(), 5, time.Millisecond, func(ctx context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("store down")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryGivesUp(t *testing.T) {
	var calls atomic.Int32
	err := Retry(context.Background(), 3, time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("store down")
	})
	assert.EqualError(t, err, "store down")
	assert.Equal(t, int32(3), calls.Load())

	// ctx selesai: tidak menunggu backoff berikutnya
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls.Store(0)
	err = Retry(ctx, 3, time.Hour, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("store down")
	})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
