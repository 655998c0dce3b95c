package filechan

import (
	"context"
	"io"
	"math"
)

// MaxMapSize is the largest region a single Map call accepts.
const MaxMapSize int64 = math.MaxInt32

// MapMode selects the access a mapped region is created with.
// The zero value is unset and is rejected by Map.
type MapMode int

const (
	// MapReadOnly maps the region for reading only
	MapReadOnly MapMode = iota + 1

	// MapReadWrite maps the region shared; stores reach the file
	MapReadWrite

	// MapPrivate maps the region copy-on-write; stores stay private
	MapPrivate
)

func (m MapMode) String() string {
	switch m {
	case MapReadOnly:
		return "READ_ONLY"
	case MapReadWrite:
		return "READ_WRITE"
	case MapPrivate:
		return "PRIVATE"
	default:
		return "UNSET"
	}
}

func (m MapMode) valid() bool {
	return m >= MapReadOnly && m <= MapPrivate
}

// ReadableChannel is a source for TransferFrom.
type ReadableChannel interface {
	io.Reader
	IsOpen() bool
}

// WritableChannel is a destination for TransferTo.
type WritableChannel interface {
	io.Writer
	IsOpen() bool
}

// Channel is a random-access byte channel over a file.
//
// A nil []byte or [][]byte passed where a buffer is expected is treated as a
// missing argument and fails with ErrInvalidArgument; an empty non-nil
// buffer is valid and transfers nothing.
type Channel interface {
	io.ReadWriteSeeker
	io.ReaderAt
	io.WriterAt
	io.Closer

	// IsOpen reports whether the channel has not been closed.
	IsOpen() bool

	// Readable reports whether the channel permits reads.
	Readable() bool

	// Writable reports whether the channel permits writes.
	Writable() bool

	// ReadVec reads into bufs[offset:offset+length] in order from the
	// current position.
	ReadVec(bufs [][]byte, offset, length int) (int64, error)

	// WriteVec writes bufs[offset:offset+length] in order at the current
	// position.
	WriteVec(bufs [][]byte, offset, length int) (int64, error)

	// Position returns the current position.
	Position() (int64, error)

	// SetPosition moves the current position. Positions past the end of
	// the file are allowed.
	SetPosition(position int64) error

	// Size returns the current size of the file.
	Size() (int64, error)

	// Truncate shrinks the file to size. Larger sizes leave the file alone.
	Truncate(size int64) error

	// Force flushes written data to stable storage; metadata selects
	// whether file metadata is flushed too.
	Force(metadata bool) error

	// TransferFrom reads up to count bytes from src and writes them at
	// position. Nothing is transferred when position is past the end.
	TransferFrom(src ReadableChannel, position, count int64) (int64, error)

	// TransferTo writes up to count bytes starting at position to dst.
	TransferTo(position, count int64, dst WritableChannel) (int64, error)

	// Map maps size bytes starting at position.
	Map(mode MapMode, position, size int64) (*MappedRegion, error)

	// Lock acquires a lock on the region, waiting until it is granted or
	// ctx is done. A size of zero locks from position to any future end.
	Lock(ctx context.Context, position, size int64, shared bool) (*FileLock, error)

	// TryLock acquires a lock on the region without waiting. It fails with
	// ErrLockHeld when another holder has a conflicting lock.
	TryLock(position, size int64, shared bool) (*FileLock, error)
}
