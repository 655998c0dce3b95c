package filechan

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"
)

var errMapUnsupported = errors.New("writable mappings are not supported by billy filesystems")

// BillyFile is a Channel over a go-billy file, so in-memory and chroot
// filesystems can sit behind the same channel API as real files.
//
// billy files keep a single offset, so every operation is serialized.
// Locks are tracked per channel only; billy gives no byte-range locking,
// so Lock never waits.
type BillyFile struct {
	fs       billy.Filesystem
	file     billy.File
	name     string // path on fs; some backends report only the base name
	readable bool
	writable bool
	closed   atomic.Bool

	mu    sync.Mutex
	locks lockTable
	log   *zap.Logger
}

var _ Channel = (*BillyFile)(nil)

// OpenBilly opens name on fs as a channel. Like Open, the result is a
// *ReadOnlyChannel unless the flags request write access.
func OpenBilly(fs billy.Filesystem, name string, flags Flags, perm os.FileMode, opts ...Option) (Channel, error) {
	flag, err := flags.osFlags()
	if err != nil {
		return nil, err
	}
	if !flags.writable() && flags&(Create|TruncateExisting) != 0 {
		return nil, opError(ErrNotWritable, "open")
	}

	file, err := fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, opWrap("open", err)
	}

	bf := NewBillyFile(fs, file, flags, opts...)
	bf.name = name
	bf.log.Debug("channel opened",
		zap.Bool("readable", bf.readable),
		zap.Bool("writable", bf.writable))

	if !flags.writable() {
		return NewReadOnly(bf), nil
	}
	return bf, nil
}

// NewBillyFile wraps a file opened on fs with the access described by
// flags. The channel closes file on Close.
func NewBillyFile(fs billy.Filesystem, file billy.File, flags Flags, opts ...Option) *BillyFile {
	o := applyOptions(opts)
	return &BillyFile{
		fs:       fs,
		file:     file,
		name:     file.Name(),
		readable: flags.readable(),
		writable: flags.writable(),
		log:      o.logger.With(zap.String("path", file.Name()), zap.String("backend", "billy")),
	}
}

// Name returns the path of the file on its filesystem.
func (b *BillyFile) Name() string {
	return b.name
}

// IsOpen reports whether the channel is open. A nil *BillyFile is closed.
func (b *BillyFile) IsOpen() bool {
	return b != nil && !b.closed.Load()
}

func (b *BillyFile) Readable() bool {
	return b.readable
}

func (b *BillyFile) Writable() bool {
	return b.writable
}

func (b *BillyFile) checkReadable(op string) error {
	if !b.readable {
		return opError(ErrNotReadable, op)
	}
	return nil
}

func (b *BillyFile) checkWritable(op string) error {
	if !b.writable {
		return opError(ErrNotWritable, op)
	}
	return nil
}

func (b *BillyFile) size() (int64, error) {
	fi, err := b.fs.Stat(b.name)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (b *BillyFile) Read(p []byte) (int, error) {
	if err := checkBuffer(p, "read"); err != nil {
		return 0, err
	}
	if err := checkOpen(b, "read"); err != nil {
		return 0, err
	}
	if err := b.checkReadable("read"); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.file.Read(p)
	return n, readErr("read", err)
}

func (b *BillyFile) ReadAt(p []byte, position int64) (int, error) {
	if err := checkBuffer(p, "read"); err != nil {
		return 0, err
	}
	if err := checkPosition(position, "read"); err != nil {
		return 0, err
	}
	if err := checkOpen(b, "read"); err != nil {
		return 0, err
	}
	if err := b.checkReadable("read"); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.file.ReadAt(p, position)
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, readErr("read", err)
}

func (b *BillyFile) ReadVec(bufs [][]byte, offset, length int) (int64, error) {
	if err := checkOffsetAndCount(bufs, offset, length, "read"); err != nil {
		return 0, err
	}
	if err := checkOpen(b, "read"); err != nil {
		return 0, err
	}
	if err := b.checkReadable("read"); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var total int64
	for _, buf := range bufs[offset : offset+length] {
		n, err := io.ReadFull(b.file, buf)
		total += int64(n)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			if total == 0 {
				return 0, io.EOF
			}
			return total, nil
		}
		if err != nil {
			return total, opWrap("read", err)
		}
	}
	return total, nil
}

func (b *BillyFile) Write(p []byte) (int, error) {
	if err := checkOpen(b, "write"); err != nil {
		return 0, err
	}
	if err := checkBuffer(p, "write"); err != nil {
		return 0, err
	}
	if err := b.checkWritable("write"); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.file.Write(p)
	return n, opWrap("write", err)
}

func (b *BillyFile) WriteAt(p []byte, position int64) (int, error) {
	if err := checkBuffer(p, "write"); err != nil {
		return 0, err
	}
	if err := checkPosition(position, "write"); err != nil {
		return 0, err
	}
	if err := checkOpen(b, "write"); err != nil {
		return 0, err
	}
	if err := b.checkWritable("write"); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.writeAt(p, position)
	return n, opWrap("write", err)
}

// writeAt writes p at position and restores the offset. b.mu must be held.
func (b *BillyFile) writeAt(p []byte, position int64) (int, error) {
	cur, err := b.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	if _, err := b.file.Seek(position, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := b.file.Write(p)
	if _, serr := b.file.Seek(cur, io.SeekStart); err == nil {
		err = serr
	}
	return n, err
}

func (b *BillyFile) WriteVec(bufs [][]byte, offset, length int) (int64, error) {
	if err := checkOffsetAndCount(bufs, offset, length, "write"); err != nil {
		return 0, err
	}
	if err := checkOpen(b, "write"); err != nil {
		return 0, err
	}
	if err := b.checkWritable("write"); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var total int64
	for _, buf := range bufs[offset : offset+length] {
		n, err := b.file.Write(buf)
		total += int64(n)
		if err != nil {
			return total, opWrap("write", err)
		}
	}
	return total, nil
}

func (b *BillyFile) Position() (int64, error) {
	if err := checkOpen(b, "position"); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	pos, err := b.file.Seek(0, io.SeekCurrent)
	return pos, opWrap("position", err)
}

func (b *BillyFile) SetPosition(position int64) error {
	if err := checkOpen(b, "position"); err != nil {
		return err
	}
	if err := checkPosition(position, "position"); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.file.Seek(position, io.SeekStart)
	return opWrap("position", err)
}

func (b *BillyFile) Seek(offset int64, whence int) (int64, error) {
	if err := checkOpen(b, "seek"); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		cur, err := b.file.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, opWrap("seek", err)
		}
		base = cur
	case io.SeekEnd:
		size, err := b.size()
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
	pos, err := b.file.Seek(target, io.SeekStart)
	return pos, opWrap("seek", err)
}

func (b *BillyFile) Size() (int64, error) {
	if err := checkOpen(b, "size"); err != nil {
		return 0, err
	}
	size, err := b.size()
	return size, opWrap("size", err)
}

func (b *BillyFile) Truncate(size int64) error {
	if err := checkOpen(b, "truncate"); err != nil {
		return err
	}
	if size < 0 {
		return opError(ErrInvalidArgument, "truncate")
	}
	if err := b.checkWritable("truncate"); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cur, err := b.size()
	if err != nil {
		return opWrap("truncate", err)
	}
	if size < cur {
		if err := b.file.Truncate(size); err != nil {
			return opWrap("truncate", err)
		}
	}

	pos, err := b.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return opWrap("truncate", err)
	}
	if pos > size {
		if _, err := b.file.Seek(size, io.SeekStart); err != nil {
			return opWrap("truncate", err)
		}
	}
	return nil
}

// Force syncs the file when the billy backend supports it.
func (b *BillyFile) Force(metadata bool) error {
	if err := checkOpen(b, "force"); err != nil {
		return err
	}
	if s, ok := b.file.(interface{ Sync() error }); ok {
		return opWrap("force", s.Sync())
	}
	return nil
}

func (b *BillyFile) TransferFrom(src ReadableChannel, position, count int64) (int64, error) {
	if err := checkOpen(b, "transfer from"); err != nil {
		return 0, err
	}
	if err := checkPeer(src, "transfer from"); err != nil {
		return 0, err
	}
	if err := b.checkWritable("transfer from"); err != nil {
		return 0, err
	}
	if err := checkTransferRange(position, count, "transfer from"); err != nil {
		return 0, err
	}

	b.mu.Lock()
	size, err := b.size()
	b.mu.Unlock()
	if err != nil {
		return 0, opWrap("transfer from", err)
	}
	if position > size || count == 0 {
		return 0, nil
	}

	// b.mu is taken per write only, so src may be this channel.
	n, err := io.CopyN(io.NewOffsetWriter(billyWriterAt{b}, position), src, count)
	if err == io.EOF {
		err = nil
	}
	return n, opWrap("transfer from", err)
}

// billyWriterAt and billyReaderAt give transfers positional access that
// holds b.mu for one call at a time.
type billyWriterAt struct {
	b *BillyFile
}

func (w billyWriterAt) WriteAt(p []byte, off int64) (int, error) {
	w.b.mu.Lock()
	defer w.b.mu.Unlock()
	return w.b.writeAt(p, off)
}

type billyReaderAt struct {
	b *BillyFile
}

func (r billyReaderAt) ReadAt(p []byte, off int64) (int, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	return r.b.file.ReadAt(p, off)
}

func (b *BillyFile) TransferTo(position, count int64, dst WritableChannel) (int64, error) {
	if err := checkOpen(b, "transfer to"); err != nil {
		return 0, err
	}
	if err := checkPeer(dst, "transfer to"); err != nil {
		return 0, err
	}
	if err := b.checkReadable("transfer to"); err != nil {
		return 0, err
	}
	if err := checkTransferRange(position, count, "transfer to"); err != nil {
		return 0, err
	}

	b.mu.Lock()
	size, err := b.size()
	b.mu.Unlock()
	if err != nil {
		return 0, opWrap("transfer to", err)
	}
	if position >= size || count == 0 {
		return 0, nil
	}

	// dst may be this channel; its Write takes b.mu.
	n, err := io.Copy(dst, io.NewSectionReader(billyReaderAt{b}, position, min(count, size-position)))
	return n, opWrap("transfer to", err)
}

// Map copies the region into memory for MapReadOnly. Writable modes fail
// with ErrIO since the copy could not be written back.
func (b *BillyFile) Map(mode MapMode, position, size int64) (*MappedRegion, error) {
	if err := checkOpen(b, "map"); err != nil {
		return nil, err
	}
	if err := checkMapArgs(mode, position, size); err != nil {
		return nil, err
	}
	if mode != MapReadOnly {
		if err := b.checkWritable("map"); err != nil {
			return nil, err
		}
		e := WrapError(ErrIO, errMapUnsupported)
		e.Op = "map"
		return nil, e
	}
	if err := b.checkReadable("map"); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fileSize, err := b.size()
	if err != nil {
		return nil, opWrap("map", err)
	}
	if position > fileSize-size {
		e := WrapError(ErrIO, errMapPastEOF)
		e.Op = "map"
		return nil, e
	}

	data := make([]byte, size)
	if size > 0 {
		n, err := b.file.ReadAt(data, position)
		if n < len(data) {
			if err == nil || err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, opWrap("map", err)
		}
	}
	return newHeapRegion(data, mode, position), nil
}

func (b *BillyFile) Lock(ctx context.Context, position, size int64, shared bool) (*FileLock, error) {
	if err := checkOpen(b, "lock"); err != nil {
		return nil, err
	}
	return b.lock(position, size, shared)
}

func (b *BillyFile) TryLock(position, size int64, shared bool) (*FileLock, error) {
	if err := checkOpen(b, "lock"); err != nil {
		return nil, err
	}
	return b.lock(position, size, shared)
}

func (b *BillyFile) lock(position, size int64, shared bool) (*FileLock, error) {
	if err := checkLockArgs(position, size); err != nil {
		return nil, err
	}
	if shared {
		if err := b.checkReadable("lock"); err != nil {
			return nil, err
		}
	} else if err := b.checkWritable("lock"); err != nil {
		return nil, err
	}

	l := &FileLock{owner: b, channel: b, position: position, size: size, shared: shared}
	if err := b.locks.add(l); err != nil {
		return nil, err
	}
	b.log.Debug("lock acquired",
		zap.Int64("position", position),
		zap.Int64("size", size),
		zap.Bool("shared", shared))
	return l, nil
}

func (b *BillyFile) releaseLock(l *FileLock) error {
	if !l.released.CompareAndSwap(false, true) {
		return nil
	}
	b.locks.remove(l)
	return nil
}

func (b *BillyFile) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, l := range b.locks.drain() {
		l.released.Store(true)
	}
	err := b.file.Close()
	b.log.Debug("channel closed")
	return opWrap("close", err)
}
