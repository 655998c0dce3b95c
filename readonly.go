package filechan

import "context"

// ReadOnlyChannel is a read-only view of another Channel.
//
// Reads, positioning, size queries, shared locks and read-only mappings are
// forwarded to the inner channel. Every operation that could modify the
// file fails with ErrNotWritable, after the same argument and state checks
// a writable channel performs, so a bad argument is reported as
// ErrInvalidArgument or ErrClosed no matter which kind of channel is used.
// No rejected call reaches the inner channel.
//
// The view holds no state of its own; closing it closes the inner channel.
type ReadOnlyChannel struct {
	inner Channel
}

var _ Channel = (*ReadOnlyChannel)(nil)

// NewReadOnly returns a read-only view of inner.
func NewReadOnly(inner Channel) *ReadOnlyChannel {
	return &ReadOnlyChannel{inner: inner}
}

// WriteAt always fails: ErrInvalidArgument for a nil buffer or negative
// position, ErrNotWritable otherwise.
func (r *ReadOnlyChannel) WriteAt(p []byte, position int64) (int, error) {
	if err := checkBuffer(p, "write"); err != nil {
		return 0, err
	}
	if err := checkPosition(position, "write"); err != nil {
		return 0, err
	}
	return 0, opError(ErrNotWritable, "write")
}

// Write always fails: ErrClosed on a closed channel, ErrNotWritable
// otherwise.
func (r *ReadOnlyChannel) Write(p []byte) (int, error) {
	if err := checkOpen(r.inner, "write"); err != nil {
		return 0, err
	}
	return 0, opError(ErrNotWritable, "write")
}

// WriteVec always fails: ErrInvalidArgument for a bad sub-range, ErrClosed
// on a closed channel, ErrNotWritable otherwise.
func (r *ReadOnlyChannel) WriteVec(bufs [][]byte, offset, length int) (int64, error) {
	if err := checkOffsetAndCount(bufs, offset, length, "write"); err != nil {
		return 0, err
	}
	if err := checkOpen(r.inner, "write"); err != nil {
		return 0, err
	}
	return 0, opError(ErrNotWritable, "write")
}

// Truncate always fails: ErrClosed, then ErrInvalidArgument for a negative
// size, then ErrNotWritable.
func (r *ReadOnlyChannel) Truncate(size int64) error {
	if err := checkOpen(r.inner, "truncate"); err != nil {
		return err
	}
	if size < 0 {
		return opError(ErrInvalidArgument, "truncate")
	}
	return opError(ErrNotWritable, "truncate")
}

// TransferFrom always fails: ErrClosed when either channel is closed,
// ErrInvalidArgument for a nil source, ErrNotWritable otherwise.
func (r *ReadOnlyChannel) TransferFrom(src ReadableChannel, position, count int64) (int64, error) {
	if err := checkOpen(r.inner, "transfer from"); err != nil {
		return 0, err
	}
	if err := checkPeer(src, "transfer from"); err != nil {
		return 0, err
	}
	return 0, opError(ErrNotWritable, "transfer from")
}

// Map maps a region of the file. Only MapReadOnly is permitted; other
// valid modes fail with ErrNotWritable once the arguments have been
// checked.
func (r *ReadOnlyChannel) Map(mode MapMode, position, size int64) (*MappedRegion, error) {
	if err := checkOpen(r.inner, "map"); err != nil {
		return nil, err
	}
	if err := checkMapArgs(mode, position, size); err != nil {
		return nil, err
	}
	if mode != MapReadOnly {
		return nil, opError(ErrNotWritable, "map")
	}
	return r.inner.Map(MapReadOnly, position, size)
}

// Force checks the channel is open. There is nothing to flush.
func (r *ReadOnlyChannel) Force(metadata bool) error {
	return checkOpen(r.inner, "force")
}

// Lock acquires a shared lock through the inner channel, waiting until it
// is granted or ctx is done. Exclusive requests fail with ErrNotWritable.
func (r *ReadOnlyChannel) Lock(ctx context.Context, position, size int64, shared bool) (*FileLock, error) {
	if err := checkOpen(r.inner, "lock"); err != nil {
		return nil, err
	}
	return r.lock(ctx, position, size, shared)
}

// TryLock behaves like Lock with a background context: shared requests
// still wait for the lock rather than failing with ErrLockHeld.
func (r *ReadOnlyChannel) TryLock(position, size int64, shared bool) (*FileLock, error) {
	if err := checkOpen(r.inner, "lock"); err != nil {
		return nil, err
	}
	return r.lock(context.Background(), position, size, shared)
}

// lock is the single entry for both lock calls; shared requests always
// wait.
func (r *ReadOnlyChannel) lock(ctx context.Context, position, size int64, shared bool) (*FileLock, error) {
	if !shared {
		return nil, opError(ErrNotWritable, "lock")
	}
	l, err := r.inner.Lock(ctx, position, size, true)
	if err != nil {
		return nil, err
	}
	l.channel = r
	return l, nil
}

// Writable reports false.
func (r *ReadOnlyChannel) Writable() bool {
	return false
}

func (r *ReadOnlyChannel) Readable() bool {
	return r.inner.Readable()
}

func (r *ReadOnlyChannel) IsOpen() bool {
	return r.inner.IsOpen()
}

func (r *ReadOnlyChannel) Close() error {
	return r.inner.Close()
}

func (r *ReadOnlyChannel) Read(p []byte) (int, error) {
	return r.inner.Read(p)
}

func (r *ReadOnlyChannel) ReadAt(p []byte, position int64) (int, error) {
	return r.inner.ReadAt(p, position)
}

func (r *ReadOnlyChannel) ReadVec(bufs [][]byte, offset, length int) (int64, error) {
	return r.inner.ReadVec(bufs, offset, length)
}

func (r *ReadOnlyChannel) Seek(offset int64, whence int) (int64, error) {
	return r.inner.Seek(offset, whence)
}

func (r *ReadOnlyChannel) Position() (int64, error) {
	return r.inner.Position()
}

func (r *ReadOnlyChannel) SetPosition(position int64) error {
	return r.inner.SetPosition(position)
}

func (r *ReadOnlyChannel) Size() (int64, error) {
	return r.inner.Size()
}

func (r *ReadOnlyChannel) TransferTo(position, count int64, dst WritableChannel) (int64, error) {
	return r.inner.TransferTo(position, count, dst)
}
