//go:build windows

package filechan

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

func lockSpan(position, size int64) (low, high uint32, ov *windows.Overlapped) {
	length := uint64(size)
	if size == 0 {
		length = uint64(maxRegionEnd - position)
	}
	ov = &windows.Overlapped{
		Offset:     uint32(uint64(position)),
		OffsetHigh: uint32(uint64(position) >> 32),
	}
	return uint32(length), uint32(length >> 32), ov
}

// lockRegion makes one non-blocking attempt to lock a byte range of f.
// It reports false when a conflicting lock is held elsewhere.
func lockRegion(f *os.File, position, size int64, shared bool) (bool, error) {
	flags := uint32(windows.LOCKFILE_FAIL_IMMEDIATELY)
	if !shared {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}

	low, high, ov := lockSpan(position, size)
	err := windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, low, high, ov)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, windows.ERROR_LOCK_VIOLATION) || errors.Is(err, windows.ERROR_IO_PENDING) {
		return false, nil
	}
	return false, &os.PathError{Op: "LockFileEx", Path: f.Name(), Err: err}
}

// unlockRegion releases a byte range locked by lockRegion.
func unlockRegion(f *os.File, position, size int64) error {
	low, high, ov := lockSpan(position, size)
	if err := windows.UnlockFileEx(windows.Handle(f.Fd()), 0, low, high, ov); err != nil {
		return &os.PathError{Op: "UnlockFileEx", Path: f.Name(), Err: err}
	}
	return nil
}
