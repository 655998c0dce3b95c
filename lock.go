package filechan

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// maxRegionEnd bounds position+size for lock regions.
const maxRegionEnd = math.MaxInt64

// Default backoff between attempts while waiting for a contended lock.
const (
	defaultLockBackoffMin = time.Millisecond
	defaultLockBackoffMax = 100 * time.Millisecond
)

// lockOwner is implemented by the channels that grant FileLocks.
type lockOwner interface {
	IsOpen() bool
	releaseLock(l *FileLock) error
}

// FileLock is a lock on a region of a file, obtained from Lock or TryLock.
type FileLock struct {
	owner    lockOwner
	channel  Channel
	position int64
	size     int64
	shared   bool
	released atomic.Bool
}

// Channel returns the channel the lock was acquired through.
func (l *FileLock) Channel() Channel {
	return l.channel
}

// Position returns the first locked byte.
func (l *FileLock) Position() int64 {
	return l.position
}

// Size returns the number of locked bytes; zero means the lock extends to
// any future end of the file.
func (l *FileLock) Size() int64 {
	return l.size
}

// Shared reports whether the lock is shared rather than exclusive.
func (l *FileLock) Shared() bool {
	return l.shared
}

// IsValid reports whether the lock is still held: it has not been
// released and its channel is open.
func (l *FileLock) IsValid() bool {
	return !l.released.Load() && l.owner.IsOpen()
}

// Overlaps reports whether the lock covers any byte of the given region.
func (l *FileLock) Overlaps(position, size int64) bool {
	return l.position < regionEnd(position, size) && position < l.end()
}

// Release releases the lock. Releasing an already released lock does
// nothing; releasing through a closed channel fails with ErrClosed.
func (l *FileLock) Release() error {
	if !l.owner.IsOpen() {
		return opError(ErrClosed, "release")
	}
	if l.released.Load() {
		return nil
	}
	return l.owner.releaseLock(l)
}

func (l *FileLock) end() int64 {
	return regionEnd(l.position, l.size)
}

func regionEnd(position, size int64) int64 {
	if size == 0 {
		return maxRegionEnd
	}
	return position + size
}

// lockTable tracks the locks held through one channel so overlapping
// requests from the same holder are refused instead of silently merged by
// the OS.
type lockTable struct {
	mu    sync.Mutex
	locks []*FileLock
}

func (t *lockTable) add(l *FileLock) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, held := range t.locks {
		if held.Overlaps(l.position, l.size) {
			return opError(ErrOverlappingLock, "lock")
		}
	}
	t.locks = append(t.locks, l)
	return nil
}

func (t *lockTable) remove(l *FileLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, held := range t.locks {
		if held == l {
			t.locks = append(t.locks[:i], t.locks[i+1:]...)
			return
		}
	}
}

// drain empties the table and returns what it held.
func (t *lockTable) drain() []*FileLock {
	t.mu.Lock()
	defer t.mu.Unlock()
	locks := t.locks
	t.locks = nil
	return locks
}

func (t *lockTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}

// lockBackoff bounds the delay between attempts of a waiting lock.
type lockBackoff struct {
	min, max time.Duration
}

// acquire calls try until it reports the lock was granted, it fails, or ctx
// is done. With wait false it makes exactly one attempt.
func (b lockBackoff) acquire(ctx context.Context, wait bool, try func() (bool, error)) error {
	delay := b.min
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !wait {
			return opError(ErrLockHeld, "lock")
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return opWrap("lock", ctx.Err())
		case <-timer.C:
		}
		if delay *= 2; delay > b.max {
			delay = b.max
		}
	}
}
