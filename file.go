package filechan

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Giulio2002/filechan/mmap"
)

var (
	errMapPastEOF     = errors.New("read-only region extends past end of file")
	errMapPastMaxSize = errors.New("region extends past the largest file offset")
)

// File is a full-capability Channel over an *os.File.
//
// Operations that use or move the current position are serialized;
// ReadAt, WriteAt, Map and the lock calls may run concurrently with them
// and with each other.
type File struct {
	f        *os.File
	readable bool
	writable bool
	closed   atomic.Bool

	posMu   sync.Mutex // Serializes position-dependent operations
	locks   lockTable
	log     *zap.Logger
	backoff lockBackoff
}

var _ Channel = (*File)(nil)

// NewFile wraps an open *os.File. flags must describe the access f was
// opened with; the channel owns f from now on and closes it on Close.
func NewFile(f *os.File, flags Flags, opts ...Option) *File {
	o := applyOptions(opts)
	return &File{
		f:        f,
		readable: flags.readable(),
		writable: flags.writable(),
		log:      o.logger.With(zap.String("path", f.Name())),
		backoff:  o.backoff,
	}
}

// Name returns the name of the underlying file.
func (f *File) Name() string {
	return f.f.Name()
}

// IsOpen reports whether the channel is open. A nil *File is closed.
func (f *File) IsOpen() bool {
	return f != nil && !f.closed.Load()
}

// Readable reports whether the file was opened for reading.
func (f *File) Readable() bool {
	return f.readable
}

// Writable reports whether the file was opened for writing.
func (f *File) Writable() bool {
	return f.writable
}

func (f *File) checkReadable(op string) error {
	if !f.readable {
		return opError(ErrNotReadable, op)
	}
	return nil
}

func (f *File) checkWritable(op string) error {
	if !f.writable {
		return opError(ErrNotWritable, op)
	}
	return nil
}

// readErr passes io.EOF through untouched and wraps everything else.
func readErr(op string, err error) error {
	if err == nil || err == io.EOF {
		return err
	}
	return opWrap(op, err)
}

// Read reads from the current position and advances it.
func (f *File) Read(p []byte) (int, error) {
	if err := checkBuffer(p, "read"); err != nil {
		return 0, err
	}
	if err := checkOpen(f, "read"); err != nil {
		return 0, err
	}
	if err := f.checkReadable("read"); err != nil {
		return 0, err
	}

	f.posMu.Lock()
	defer f.posMu.Unlock()
	n, err := f.f.Read(p)
	return n, readErr("read", err)
}

// ReadAt reads at position without moving the current position.
func (f *File) ReadAt(p []byte, position int64) (int, error) {
	if err := checkBuffer(p, "read"); err != nil {
		return 0, err
	}
	if err := checkPosition(position, "read"); err != nil {
		return 0, err
	}
	if err := checkOpen(f, "read"); err != nil {
		return 0, err
	}
	if err := f.checkReadable("read"); err != nil {
		return 0, err
	}

	n, err := f.f.ReadAt(p, position)
	return n, readErr("read", err)
}

// ReadVec fills bufs[offset:offset+length] in order from the current
// position. It returns io.EOF only when nothing was read.
func (f *File) ReadVec(bufs [][]byte, offset, length int) (int64, error) {
	if err := checkOffsetAndCount(bufs, offset, length, "read"); err != nil {
		return 0, err
	}
	if err := checkOpen(f, "read"); err != nil {
		return 0, err
	}
	if err := f.checkReadable("read"); err != nil {
		return 0, err
	}

	f.posMu.Lock()
	defer f.posMu.Unlock()

	var total int64
	for _, b := range bufs[offset : offset+length] {
		for len(b) > 0 {
			n, err := f.f.Read(b)
			total += int64(n)
			b = b[n:]
			if err == io.EOF {
				if total == 0 {
					return 0, io.EOF
				}
				return total, nil
			}
			if err != nil {
				return total, opWrap("read", err)
			}
		}
	}
	return total, nil
}

// Write writes at the current position and advances it.
func (f *File) Write(p []byte) (int, error) {
	if err := checkOpen(f, "write"); err != nil {
		return 0, err
	}
	if err := checkBuffer(p, "write"); err != nil {
		return 0, err
	}
	if err := f.checkWritable("write"); err != nil {
		return 0, err
	}

	f.posMu.Lock()
	defer f.posMu.Unlock()
	n, err := f.f.Write(p)
	return n, opWrap("write", err)
}

// WriteAt writes at position without moving the current position.
func (f *File) WriteAt(p []byte, position int64) (int, error) {
	if err := checkBuffer(p, "write"); err != nil {
		return 0, err
	}
	if err := checkPosition(position, "write"); err != nil {
		return 0, err
	}
	if err := checkOpen(f, "write"); err != nil {
		return 0, err
	}
	if err := f.checkWritable("write"); err != nil {
		return 0, err
	}

	n, err := f.f.WriteAt(p, position)
	return n, opWrap("write", err)
}

// WriteVec writes bufs[offset:offset+length] in order at the current
// position.
func (f *File) WriteVec(bufs [][]byte, offset, length int) (int64, error) {
	if err := checkOffsetAndCount(bufs, offset, length, "write"); err != nil {
		return 0, err
	}
	if err := checkOpen(f, "write"); err != nil {
		return 0, err
	}
	if err := f.checkWritable("write"); err != nil {
		return 0, err
	}

	f.posMu.Lock()
	defer f.posMu.Unlock()

	var total int64
	for _, b := range bufs[offset : offset+length] {
		n, err := f.f.Write(b)
		total += int64(n)
		if err != nil {
			return total, opWrap("write", err)
		}
	}
	return total, nil
}

// Position returns the current position.
func (f *File) Position() (int64, error) {
	if err := checkOpen(f, "position"); err != nil {
		return 0, err
	}

	f.posMu.Lock()
	defer f.posMu.Unlock()
	pos, err := f.f.Seek(0, io.SeekCurrent)
	return pos, opWrap("position", err)
}

// SetPosition moves the current position.
func (f *File) SetPosition(position int64) error {
	if err := checkOpen(f, "position"); err != nil {
		return err
	}
	if err := checkPosition(position, "position"); err != nil {
		return err
	}

	f.posMu.Lock()
	defer f.posMu.Unlock()
	_, err := f.f.Seek(position, io.SeekStart)
	return opWrap("position", err)
}

// Seek implements io.Seeker. Resulting positions below zero fail with
// ErrInvalidArgument.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if err := checkOpen(f, "seek"); err != nil {
		return 0, err
	}

	f.posMu.Lock()
	defer f.posMu.Unlock()

	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		cur, err := f.f.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, opWrap("seek", err)
		}
		base = cur
	case io.SeekEnd:
		size, err := f.size()
		if err != nil {
			return 0, opWrap("seek", err)
		}
		base = size
	default:
		return 0, opError(ErrInvalidArgument, "seek")
	}

	target := base + offset
	if target < 0 || (offset > 0 && target < base) {
		return 0, opError(ErrInvalidArgument, "seek")
	}
	pos, err := f.f.Seek(target, io.SeekStart)
	return pos, opWrap("seek", err)
}

func (f *File) size() (int64, error) {
	fi, err := f.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Size returns the current size of the file.
func (f *File) Size() (int64, error) {
	if err := checkOpen(f, "size"); err != nil {
		return 0, err
	}
	size, err := f.size()
	return size, opWrap("size", err)
}

// Truncate shrinks the file to size. A larger size leaves the file as is.
// Either way a current position past size is moved back to size.
func (f *File) Truncate(size int64) error {
	if err := checkOpen(f, "truncate"); err != nil {
		return err
	}
	if size < 0 {
		return opError(ErrInvalidArgument, "truncate")
	}
	if err := f.checkWritable("truncate"); err != nil {
		return err
	}

	f.posMu.Lock()
	defer f.posMu.Unlock()

	cur, err := f.size()
	if err != nil {
		return opWrap("truncate", err)
	}
	if size < cur {
		if err := f.f.Truncate(size); err != nil {
			return opWrap("truncate", err)
		}
	}

	pos, err := f.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return opWrap("truncate", err)
	}
	if pos > size {
		if _, err := f.f.Seek(size, io.SeekStart); err != nil {
			return opWrap("truncate", err)
		}
	}
	return nil
}

// Force flushes file data, and metadata too when asked, to stable storage.
func (f *File) Force(metadata bool) error {
	if err := checkOpen(f, "force"); err != nil {
		return err
	}
	if metadata {
		return opWrap("force", f.f.Sync())
	}
	return opWrap("force", syncData(f.f))
}

// Map maps size bytes of the file starting at position.
//
// MapReadOnly needs a readable channel and a region inside the file.
// MapReadWrite and MapPrivate need a readable and writable channel and
// grow the file to cover the region first.
func (f *File) Map(mode MapMode, position, size int64) (*MappedRegion, error) {
	if err := checkOpen(f, "map"); err != nil {
		return nil, err
	}
	if err := checkMapArgs(mode, position, size); err != nil {
		return nil, err
	}
	if mode != MapReadOnly {
		if err := f.checkWritable("map"); err != nil {
			return nil, err
		}
	}
	if err := f.checkReadable("map"); err != nil {
		return nil, err
	}

	fileSize, err := f.size()
	if err != nil {
		return nil, opWrap("map", err)
	}
	if position > fileSize-size {
		if mode == MapReadOnly {
			e := WrapError(ErrIO, errMapPastEOF)
			e.Op = "map"
			return nil, e
		}
		if position > maxRegionEnd-size {
			e := WrapError(ErrIO, errMapPastMaxSize)
			e.Op = "map"
			return nil, e
		}
		if err := f.f.Truncate(position + size); err != nil {
			return nil, opWrap("map", err)
		}
	}

	if size == 0 {
		return newHeapRegion([]byte{}, mode, position), nil
	}

	prot := mmap.ReadOnly
	switch mode {
	case MapReadWrite:
		prot = mmap.ReadWrite
	case MapPrivate:
		prot = mmap.CopyOnWrite
	}

	m, err := mmap.New(f.f.Fd(), position, int(size), prot)
	if err != nil {
		return nil, opWrap("map", err)
	}

	f.log.Debug("region mapped",
		zap.Stringer("mode", mode),
		zap.Int64("position", position),
		zap.Int64("size", size))
	return newMappedRegion(m, mode, position), nil
}

// Lock acquires a lock on a region of the file, waiting for conflicting
// holders until ctx is done.
func (f *File) Lock(ctx context.Context, position, size int64, shared bool) (*FileLock, error) {
	if err := checkOpen(f, "lock"); err != nil {
		return nil, err
	}
	return f.lock(ctx, position, size, shared, true)
}

// TryLock acquires a lock on a region of the file without waiting.
func (f *File) TryLock(position, size int64, shared bool) (*FileLock, error) {
	if err := checkOpen(f, "lock"); err != nil {
		return nil, err
	}
	return f.lock(context.Background(), position, size, shared, false)
}

func (f *File) lock(ctx context.Context, position, size int64, shared, wait bool) (*FileLock, error) {
	if err := checkLockArgs(position, size); err != nil {
		return nil, err
	}
	if shared {
		if err := f.checkReadable("lock"); err != nil {
			return nil, err
		}
	} else if err := f.checkWritable("lock"); err != nil {
		return nil, err
	}

	l := &FileLock{owner: f, channel: f, position: position, size: size, shared: shared}
	if err := f.locks.add(l); err != nil {
		return nil, err
	}

	err := f.backoff.acquire(ctx, wait, func() (bool, error) {
		if !f.IsOpen() {
			return false, opError(ErrClosed, "lock")
		}
		ok, err := lockRegion(f.f, position, size, shared)
		return ok, opWrap("lock", err)
	})
	if err != nil {
		f.locks.remove(l)
		return nil, err
	}

	f.log.Debug("lock acquired",
		zap.Int64("position", position),
		zap.Int64("size", size),
		zap.Bool("shared", shared))
	return l, nil
}

func (f *File) releaseLock(l *FileLock) error {
	if !l.released.CompareAndSwap(false, true) {
		return nil
	}
	f.locks.remove(l)
	if err := unlockRegion(f.f, l.position, l.size); err != nil {
		return opWrap("release", err)
	}
	f.log.Debug("lock released", zap.Int64("position", l.position), zap.Int64("size", l.size))
	return nil
}

// Close closes the channel and the underlying file. Locks held through the
// channel are released; mapped regions stay valid. Closing twice is a no-op.
func (f *File) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, l := range f.locks.drain() {
		l.released.Store(true)
	}
	err := f.f.Close()
	f.log.Debug("channel closed")
	return opWrap("close", err)
}
