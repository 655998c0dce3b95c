package filechan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockTestFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lock.dat")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0644))
	return path
}

func openFile(t *testing.T, path string, flags Flags, opts ...Option) Channel {
	t.Helper()
	ch, err := Open(path, flags, 0, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { ch.Close() })
	return ch
}

// Byte-range locks only conflict between channels of one process where
// the OS scopes them to the open file.
func requireHandleScopedLocks(t *testing.T) {
	t.Helper()
	if runtime.GOOS != "linux" && runtime.GOOS != "windows" {
		t.Skipf("locks on %s are process scoped", runtime.GOOS)
	}
}

func TestLockArgs(t *testing.T) {
	ch := openFile(t, lockTestFile(t), ReadWrite)

	_, err := ch.TryLock(-1, 1, false)
	assert.True(t, IsInvalidArgument(err), "negative position: %v", err)
	_, err = ch.TryLock(0, -1, false)
	assert.True(t, IsInvalidArgument(err), "negative size: %v", err)
	_, err = ch.TryLock(maxRegionEnd, 1, true)
	assert.True(t, IsInvalidArgument(err), "overflowing region: %v", err)
}

func TestLockOverlap(t *testing.T) {
	ch := openFile(t, lockTestFile(t), ReadWrite)

	l, err := ch.TryLock(0, 10, false)
	require.NoError(t, err)
	assert.True(t, l.IsValid())
	assert.Same(t, ch, l.Channel())
	assert.Equal(t, int64(0), l.Position())
	assert.Equal(t, int64(10), l.Size())
	assert.False(t, l.Shared())

	_, err = ch.TryLock(5, 10, true)
	assert.Equal(t, ErrOverlappingLock, Code(err))

	// Adjacent regions do not overlap.
	l2, err := ch.TryLock(10, 10, true)
	require.NoError(t, err)

	// A zero size reaches to the end of any future file.
	_, err = ch.TryLock(1000, 0, false)
	require.NoError(t, err)
	_, err = ch.TryLock(1<<40, 1, false)
	assert.Equal(t, ErrOverlappingLock, Code(err))

	require.NoError(t, l.Release())
	assert.False(t, l.IsValid())
	require.NoError(t, l.Release(), "second release is a no-op")

	l3, err := ch.TryLock(5, 5, false)
	require.NoError(t, err)
	assert.True(t, l3.IsValid())
	assert.True(t, l2.IsValid())
}

func TestCloseReleasesLocks(t *testing.T) {
	ch := openFile(t, lockTestFile(t), ReadWrite)

	l, err := ch.Lock(context.Background(), 0, 0, false)
	require.NoError(t, err)
	require.NoError(t, ch.Close())

	assert.False(t, l.IsValid())
	assert.True(t, IsClosed(l.Release()))

	_, err = ch.TryLock(0, 1, true)
	assert.True(t, IsClosed(err))
}

func TestReadOnlyLockThroughFile(t *testing.T) {
	ro, err := OpenReadOnly(lockTestFile(t))
	require.NoError(t, err)
	defer ro.Close()

	_, err = ro.TryLock(0, 8, false)
	assert.True(t, IsNotWritable(err))

	l, err := ro.TryLock(0, 8, true)
	require.NoError(t, err)
	assert.True(t, l.Shared())
	assert.Same(t, ro, l.Channel())

	// The view shares the inner channel's lock table.
	_, err = ro.Lock(context.Background(), 4, 8, true)
	assert.Equal(t, ErrOverlappingLock, Code(err))

	require.NoError(t, l.Release())
	require.NoError(t, ro.Close())
	_, err = ro.TryLock(0, 8, true)
	assert.True(t, IsClosed(err))
}

func TestTryLockConflict(t *testing.T) {
	requireHandleScopedLocks(t)
	path := lockTestFile(t)
	a := openFile(t, path, ReadWrite)
	b := openFile(t, path, ReadWrite)

	l, err := a.TryLock(0, 16, false)
	require.NoError(t, err)

	_, err = b.TryLock(8, 16, true)
	assert.True(t, IsLockHeld(err), "got %v", err)
	assert.ErrorIs(t, err, ErrLockHeldError)

	// Disjoint regions do not conflict.
	_, err = b.TryLock(16, 16, false)
	require.NoError(t, err)

	require.NoError(t, l.Release())
	_, err = b.TryLock(0, 8, true)
	require.NoError(t, err)
}

func TestLockHonorsContext(t *testing.T) {
	requireHandleScopedLocks(t)
	path := lockTestFile(t)
	w := openFile(t, path, ReadWrite)
	ro := openFile(t, path, ReadOnly, WithLockBackoff(time.Millisecond, 5*time.Millisecond))

	held, err := w.TryLock(0, 0, false)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = ro.Lock(ctx, 0, 8, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)

	// The failed attempt left nothing behind in the lock table.
	require.NoError(t, held.Release())
	l, err := ro.Lock(context.Background(), 0, 8, true)
	require.NoError(t, err)
	assert.True(t, l.IsValid())
}

func TestReadOnlyTryLockWaits(t *testing.T) {
	requireHandleScopedLocks(t)
	path := lockTestFile(t)
	w := openFile(t, path, ReadWrite)
	ro := openFile(t, path, ReadOnly, WithLockBackoff(time.Millisecond, 5*time.Millisecond))

	held, err := w.TryLock(0, 16, false)
	require.NoError(t, err)

	type result struct {
		l   *FileLock
		err error
	}
	done := make(chan result, 1)
	go func() {
		l, err := ro.TryLock(0, 16, true)
		done <- result{l, err}
	}()

	select {
	case r := <-done:
		t.Fatalf("TryLock returned before release: %v", r.err)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, held.Release())

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.True(t, r.l.Shared())
		assert.Same(t, ro, r.l.Channel())
	case <-time.After(5 * time.Second):
		t.Fatal("TryLock did not return after the lock was released")
	}
}
