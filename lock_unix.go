//go:build unix

package filechan

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// lockRegion makes one non-blocking attempt to lock a byte range of f.
// It reports false when a conflicting lock is held elsewhere.
func lockRegion(f *os.File, position, size int64, shared bool) (bool, error) {
	lk := unix.Flock_t{
		Type:   unix.F_WRLCK,
		Whence: io.SeekStart,
		Start:  position,
		Len:    size,
	}
	if shared {
		lk.Type = unix.F_RDLCK
	}

	err := unix.FcntlFlock(f.Fd(), fcntlSetLock, &lk)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EACCES) {
		return false, nil
	}
	return false, &os.PathError{Op: "fcntl", Path: f.Name(), Err: err}
}

// unlockRegion releases a byte range locked by lockRegion.
func unlockRegion(f *os.File, position, size int64) error {
	lk := unix.Flock_t{
		Type:   unix.F_UNLCK,
		Whence: io.SeekStart,
		Start:  position,
		Len:    size,
	}
	if err := unix.FcntlFlock(f.Fd(), fcntlSetLock, &lk); err != nil {
		return &os.PathError{Op: "fcntl", Path: f.Name(), Err: err}
	}
	return nil
}
