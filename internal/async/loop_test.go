package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_RunsInOrder(t *testing.T) {
	l := NewLoop(nil)
	var got []int
	for i := 0; i < 50; i++ {
		i := i
		require.NoError(t, l.Post(context.Background(), func(context.Context) { got = append(got, i) }))
	}
	l.Shutdown(context.Background())

	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoop_SingleWriter(t *testing.T) {
	l := NewLoop(nil, WithQueueSize(4))
	defer l.Shutdown(context.Background())

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Do(context.Background(), func(context.Context) error { counter++; return nil })
		}()
	}
	wg.Wait()

	var final int
	require.NoError(t, l.Do(context.Background(), func(context.Context) error { final = counter; return nil }))
	assert.Equal(t, 20, final)
}

func TestLoop_DoReturnsError(t *testing.T) {
	l := NewLoop(nil)
	defer l.Shutdown(context.Background())

	boom := errors.New("boom")
	assert.ErrorIs(t, l.Do(context.Background(), func(context.Context) error { return boom }), boom)
	assert.ErrorContains(t, l.Do(context.Background(), func(context.Context) error { panic("bad") }), "panicked")
	// still alive after a panic
	assert.NoError(t, l.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestLoop_DoAbandonedOnCancel(t *testing.T) {
	l := NewLoop(nil)
	defer l.Shutdown(context.Background())

	release := make(chan struct{})
	require.NoError(t, l.Post(context.Background(), func(context.Context) { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestLoop_TaskTimeout(t *testing.T) {
	l := NewLoop(nil, WithTaskTimeout(10*time.Millisecond))
	defer l.Shutdown(context.Background())

	err := l.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoop_DoTaskSeesCallerCancel(t *testing.T) {
	l := NewLoop(nil)
	defer l.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	seen := make(chan error, 1)
	go func() {
		_ = l.Do(ctx, func(tctx context.Context) error {
			close(started)
			<-tctx.Done()
			seen <- tctx.Err()
			return tctx.Err()
		})
	}()
	<-started
	cancel()

	select {
	case err := <-seen:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("task context outlived the caller")
	}
	// the loop is free again
	require.NoError(t, l.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestLoop_PostAfterShutdown(t *testing.T) {
	l := NewLoop(nil)
	l.Shutdown(context.Background())
	l.Shutdown(context.Background())
	assert.ErrorIs(t, l.Post(context.Background(), func(context.Context) {}), ErrClosed)
	assert.ErrorIs(t, l.Do(context.Background(), func(context.Context) error { return nil }), ErrClosed)
}
