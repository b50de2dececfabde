package lifecycle

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newMounted(t *testing.T) *Coordinator {
	t.Helper()
	c := New(slog.New(slog.DiscardHandler))
	c.Mount()
	return c
}

func TestMountSetsVisible(t *testing.T) {
	t.Parallel()

	c := New(slog.New(slog.DiscardHandler))
	s := c.Snapshot()
	require.False(t, s.Mounted)
	require.Equal(t, AppInactive, s.App)

	c.Mount()
	s = c.Snapshot()
	require.True(t, s.Mounted)
	require.True(t, s.Visible)
	require.Equal(t, AppActive, s.App)
}

func TestUnmountIsTerminalAndIdempotent(t *testing.T) {
	t.Parallel()

	c := newMounted(t)
	c.SetFocused(true)
	c.Unmount()
	c.Unmount()

	// No lifecycle mutation may be applied after the terminal transition.
	c.SetFocused(true)
	c.SetAppState(AppActive)
	s := c.Snapshot()
	require.False(t, s.Mounted)
	require.False(t, s.Visible)
	require.False(t, s.Focused)

	// And best-effort execution is refused outright.
	for i := 0; i < 3; i++ {
		v, ok := c.SafeRun(KindFetch, func() (any, error) {
			t.Fatal("must not run after unmount")
			return nil, nil
		})
		require.Nil(t, v)
		require.False(t, ok)
	}
}

func TestTrackRejectsWhenUnmounted(t *testing.T) {
	t.Parallel()

	c := New(slog.New(slog.DiscardHandler))
	_, err := c.Track(KindFetch, nil)
	require.ErrorIs(t, err, ErrNotMounted)

	c.Mount()
	c.Unmount()
	_, err = c.Track(KindMutation, nil)
	require.ErrorIs(t, err, ErrNotMounted)
}

func TestUnmountRunsCleanupExactlyOnce(t *testing.T) {
	t.Parallel()

	c := newMounted(t)
	var cleanups [3]int32
	for i := 0; i < 3; i++ {
		i := i
		_, err := c.Track(KindFetch, func() { atomic.AddInt32(&cleanups[i], 1) })
		require.NoError(t, err)
	}

	// A settled operation releases its entry and must not be cleaned up.
	var settledCleanup int32
	done, err := c.Track(KindMutation, func() { atomic.AddInt32(&settledCleanup, 1) })
	require.NoError(t, err)
	done()
	done() // done is idempotent

	c.Unmount()
	for i := 0; i < 3; i++ {
		require.Equal(t, int32(1), atomic.LoadInt32(&cleanups[i]))
	}
	require.Equal(t, int32(0), atomic.LoadInt32(&settledCleanup))
	require.Zero(t, c.Pending())
}

func TestRunPropagatesError(t *testing.T) {
	t.Parallel()

	c := newMounted(t)
	boom := errors.New("boom")
	require.ErrorIs(t, c.Run(KindMutation, func() error { return boom }), boom)
	require.Zero(t, c.Pending())
}

func TestSafeRunSwallowsError(t *testing.T) {
	t.Parallel()

	c := newMounted(t)
	v, ok := c.SafeRun(KindFetch, func() (any, error) {
		return nil, errors.New("best effort")
	})
	require.Nil(t, v)
	require.False(t, ok)

	v, ok = c.SafeRun(KindFetch, func() (any, error) { return 42, nil })
	require.True(t, ok)
	require.Equal(t, 42, v)
}

func TestSafeRunRequiresVisible(t *testing.T) {
	t.Parallel()

	c := newMounted(t)
	c.SetAppState(AppBackground)
	ran := false
	_, ok := c.SafeRun(KindFetch, func() (any, error) {
		ran = true
		return nil, nil
	})
	require.False(t, ok)
	require.False(t, ran, "fn must not be invoked while backgrounded")

	c.SetAppState(AppActive)
	_, ok = c.SafeRun(KindFetch, func() (any, error) { return "v", nil })
	require.True(t, ok)
}

func TestGuardConditions(t *testing.T) {
	t.Parallel()

	c := newMounted(t)
	c.SetFocused(false)
	require.False(t, c.Guard(Conditions{Mounted: true, Focused: true}, func() {}))
	require.True(t, c.Guard(Conditions{Mounted: true}, func() {}))

	c.SetFocused(true)
	require.True(t, c.Guard(Conditions{Mounted: true, Focused: true, Visible: true, Active: true}, func() {}))

	c.SetAppState(AppInactive)
	require.False(t, c.Guard(Conditions{Active: true}, func() {}))
}

func TestFocusTimestamps(t *testing.T) {
	t.Parallel()

	c := newMounted(t)
	c.SetFocused(true)
	require.False(t, c.Snapshot().LastFocus.IsZero())
	require.True(t, c.Snapshot().LastBlur.IsZero())
	c.SetFocused(false)
	require.False(t, c.Snapshot().LastBlur.IsZero())
}

func TestDebounceFires(t *testing.T) {
	t.Parallel()

	c := newMounted(t)
	fired := make(chan struct{})
	_, err := c.Debounce(10*time.Millisecond, func() { close(fired) })
	require.NoError(t, err)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("debounced fn did not fire")
	}
	require.Eventually(t, func() bool { return c.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestDebounceClearedAtUnmount(t *testing.T) {
	t.Parallel()

	c := newMounted(t)
	var fired int32
	_, err := c.Debounce(30*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	require.NoError(t, err)
	c.Unmount()

	time.Sleep(80 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&fired), "timer must not fire into a dead owner")
}

func TestDebounceCancel(t *testing.T) {
	t.Parallel()

	c := newMounted(t)
	var fired int32
	cancel, err := c.Debounce(30*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	require.NoError(t, err)
	cancel()
	require.Zero(t, c.Pending())

	time.Sleep(80 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&fired))
}
