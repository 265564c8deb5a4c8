package wakelock

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeInhibitor stands in for the systemd-inhibit child process.
type fakeInhibitor struct {
	mu       sync.Mutex
	startErr error
	starts   int
	stops    int
	done     chan struct{}
}

func (f *fakeInhibitor) starter() starter {
	return func() (func(), <-chan struct{}, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.startErr != nil {
			return nil, nil, f.startErr
		}
		f.starts++
		done := make(chan struct{})
		f.done = done
		stop := func() {
			f.mu.Lock()
			f.stops++
			f.mu.Unlock()
			close(done)
		}
		return stop, done, nil
	}
}

func (f *fakeInhibitor) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

func TestRequestAndRelease(t *testing.T) {
	f := &fakeInhibitor{}
	c := newWithStarter(f.starter())

	require.True(t, c.Supported())
	require.False(t, c.Active())

	require.True(t, c.Request())
	require.True(t, c.Active())

	// A second request while held reports failure.
	require.False(t, c.Request())

	c.Release()
	require.False(t, c.Active())
	starts, stops := f.counts()
	require.Equal(t, 1, starts)
	require.Equal(t, 1, stops)

	// Releasing again is a no-op.
	c.Release()
	_, stops = f.counts()
	require.Equal(t, 1, stops)
}

func TestRequestUnsupported(t *testing.T) {
	c := newWithStarter(nil)
	require.False(t, c.Supported())
	require.False(t, c.Request())
	require.False(t, c.Active())
	c.Release() // must not panic
}

func TestRequestStartFailure(t *testing.T) {
	f := &fakeInhibitor{startErr: errors.New("no bus")}
	c := newWithStarter(f.starter())

	require.False(t, c.Request())
	require.False(t, c.Active())
}

func TestExternalReleaseClearsActive(t *testing.T) {
	f := &fakeInhibitor{}
	c := newWithStarter(f.starter())
	require.True(t, c.Request())

	// The inhibitor dying out from under us must clear the hold.
	f.mu.Lock()
	done := f.done
	f.mu.Unlock()
	close(done)

	require.Eventually(t, func() bool {
		return !c.Active()
	}, time.Second, 5*time.Millisecond)
}

func TestStaleWatcherDoesNotClearNewHold(t *testing.T) {
	f := &fakeInhibitor{}
	c := newWithStarter(f.starter())

	require.True(t, c.Request())
	c.Release() // closes the first done channel via stop

	require.True(t, c.Request())
	require.True(t, c.Active())

	// The watcher of the released hold observed its done channel close; give
	// it time to run and verify it left the new hold alone.
	time.Sleep(50 * time.Millisecond)
	require.True(t, c.Active())
}

func TestHandleVisibilityChange(t *testing.T) {
	f := &fakeInhibitor{}
	c := newWithStarter(f.starter())

	// Hidden with nothing held: nothing happens.
	c.HandleVisibilityChange(false, true)
	require.False(t, c.Active())

	// Visible during playback acquires.
	c.HandleVisibilityChange(true, true)
	require.True(t, c.Active())

	// Hidden releases.
	c.HandleVisibilityChange(false, true)
	require.False(t, c.Active())

	// Visible while paused does not acquire.
	c.HandleVisibilityChange(true, false)
	require.False(t, c.Active())
}
