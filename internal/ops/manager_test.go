package ops

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestDoSharesSingleExecution(t *testing.T) {
	t.Parallel()

	m := NewManager(discardLogger())
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	op := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "sent", nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]any, n)
	sharedFlags := make([]bool, n)
	errs := make([]error, n)
	started := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started <- struct{}{}
			results[i], sharedFlags[i], errs[i] = m.Do(ctx, "magic_link:a@b.com", TypeMagicLink, op)
		}(i)
	}
	for i := 0; i < n; i++ {
		<-started
	}
	// Let the joiners reach the wait before releasing the operation.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "operation must run exactly once")
	originals := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "sent", results[i])
		if !sharedFlags[i] {
			originals++
		}
	}
	require.Equal(t, 1, originals, "exactly one caller executes, the rest share")
}

func TestDoSharesRejection(t *testing.T) {
	t.Parallel()

	m := NewManager(discardLogger())
	ctx := context.Background()
	boom := errors.New("send failed")

	release := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = m.Do(ctx, "k", TypeMagicLink, func(context.Context) (any, error) {
				<-release
				return nil, boom
			})
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, errs[i], boom, "rejection is propagated verbatim to every sharer")
	}
}

func TestDoTypeMismatchRunsIndependently(t *testing.T) {
	t.Parallel()

	m := NewManager(discardLogger())
	ctx := context.Background()

	firstRunning := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, shared, err := m.Do(ctx, "k", TypeMagicLink, func(context.Context) (any, error) {
			close(firstRunning)
			<-release
			return "first", nil
		})
		require.NoError(t, err)
		require.False(t, shared)
		require.Equal(t, "first", v)
	}()
	<-firstRunning

	// Same key, different type: must execute its own thunk, never inherit
	// the first operation's result.
	var secondCalls int32
	v, shared, err := m.Do(ctx, "k", TypeLogout, func(context.Context) (any, error) {
		atomic.AddInt32(&secondCalls, 1)
		return "second", nil
	})
	require.NoError(t, err)
	require.False(t, shared)
	require.Equal(t, "second", v)
	require.Equal(t, int32(1), secondCalls)

	close(release)
	wg.Wait()
}

func TestDoFreshAfterSettlement(t *testing.T) {
	t.Parallel()

	m := NewManager(discardLogger())
	ctx := context.Background()

	_, _, err := m.Do(ctx, "k", TypeMagicLink, func(context.Context) (any, error) {
		return nil, errors.New("first attempt fails")
	})
	require.Error(t, err)

	// The failed registration must be gone: the retry runs fresh and
	// succeeds instead of inheriting the rejection.
	v, shared, err := m.Do(ctx, "k", TypeMagicLink, func(context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	require.False(t, shared)
	require.Equal(t, "ok", v)
}

func TestDoEvictsStaleOperation(t *testing.T) {
	t.Parallel()

	m := NewManager(discardLogger())
	ctx := context.Background()

	current := time.Now()
	m.now = func() time.Time { return current }

	stuck := make(chan struct{})
	go func() {
		_, _, _ = m.Do(ctx, "k", TypeSessionTokens, func(context.Context) (any, error) {
			<-stuck
			return nil, nil
		})
	}()
	require.Eventually(t, func() bool {
		return m.HasType(TypeSessionTokens)
	}, time.Second, 5*time.Millisecond)

	// Advance past the staleness window: the next caller must evict the
	// registration and run fresh rather than wait on the stuck operation.
	current = current.Add(StaleAfter + time.Second)
	v, shared, err := m.Do(ctx, "k", TypeSessionTokens, func(context.Context) (any, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	require.False(t, shared)
	require.Equal(t, "fresh", v)
	close(stuck)
}

func TestCancelTypeStopsAdvertising(t *testing.T) {
	t.Parallel()

	m := NewManager(discardLogger())
	ctx := context.Background()

	running := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, _, err := m.Do(ctx, "magic_link:a@b.com", TypeMagicLink, func(context.Context) (any, error) {
			close(running)
			<-release
			return "late", nil
		})
		done <- err
	}()
	<-running
	require.True(t, m.HasType(TypeMagicLink))

	require.Equal(t, 1, m.CancelType(TypeMagicLink))
	require.False(t, m.HasType(TypeMagicLink))

	// A new caller is no longer told anything is in flight.
	var calls int32
	v, shared, err := m.Do(ctx, "magic_link:a@b.com", TypeMagicLink, func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "new", nil
	})
	require.NoError(t, err)
	require.False(t, shared)
	require.Equal(t, "new", v)
	require.Equal(t, int32(1), calls)

	// The original keeps running to completion in the background.
	close(release)
	require.NoError(t, <-done)
}

func TestDoWaiterHonoursContext(t *testing.T) {
	t.Parallel()

	m := NewManager(discardLogger())

	running := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _, _ = m.Do(context.Background(), "k", TypeAuthInit, func(context.Context) (any, error) {
			close(running)
			<-release
			return nil, nil
		})
	}()
	<-running

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, shared, err := m.Do(ctx, "k", TypeAuthInit, func(context.Context) (any, error) {
		t.Fatal("joined caller must not execute")
		return nil, nil
	})
	require.True(t, shared)
	require.ErrorIs(t, err, context.Canceled)
	close(release)
}

func TestDoRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	m := NewManager(discardLogger())
	_, _, err := m.Do(context.Background(), "", TypeMagicLink, func(context.Context) (any, error) {
		return nil, nil
	})
	require.Error(t, err)
}
