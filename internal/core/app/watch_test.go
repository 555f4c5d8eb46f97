package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWatchApp(t *testing.T, root string, minInterval time.Duration) *App {
	t.Helper()
	a := newTestApp(t, root)
	a.Config.Watch.Debounce = 50 * time.Millisecond
	a.Config.Watch.MinInterval = minInterval
	return a
}

func TestWatchSession_RebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.ts", `export const a = 1;`)

	a := newWatchApp(t, root, 10*time.Millisecond)
	builds := make(chan *Result, 4)
	s, err := a.StartWatch(context.Background(), func(res *Result, err error) {
		assert.NoError(t, err)
		builds <- res
	})
	require.NoError(t, err)
	defer s.Close()

	writeSource(t, root, "b.ts", `import { a } from "./a";`)

	select {
	case res := <-builds:
		require.NotNil(t, res)
		assert.Equal(t, 2, res.Files)
		node, ok := findNode(res.ViewModel.Root, "b.ts")
		require.True(t, ok)
		assert.Equal(t, 1, node.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for rebuild")
	}

	select {
	case <-builds:
		t.Fatal("one write must trigger exactly one rebuild")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchSession_ThrottlesByMinInterval(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.ts", `export const a = 1;`)

	var calls atomic.Int32
	s, err := newWatchApp(t, root, time.Hour).StartWatch(context.Background(), func(*Result, error) {
		calls.Add(1)
	})
	require.NoError(t, err)

	s.onChange([]string{"a.ts"})
	assert.Equal(t, int32(1), calls.Load())

	done := make(chan struct{})
	go func() {
		s.onChange([]string{"a.ts"})
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "second batch must wait for the interval")

	require.NoError(t, s.Close())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not release the throttled rebuild")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatchSession_CloseWaitsForRebuild(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.ts", `export const a = 1;`)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	s, err := newWatchApp(t, root, 10*time.Millisecond).StartWatch(context.Background(), func(*Result, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
	})
	require.NoError(t, err)

	go s.onChange([]string{"a.ts"})
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild never started")
	}

	closed := make(chan struct{})
	go func() {
		assert.NoError(t, s.Close())
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a rebuild was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after the rebuild finished")
	}

	s.onChange([]string{"a.ts"})
	assert.Equal(t, int32(1), calls.Load(), "no rebuild after Close")
}
