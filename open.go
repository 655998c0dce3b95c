package filechan

import (
	"os"

	"go.uber.org/zap"
)

// Flags select how a channel is opened.
type Flags uint

// Open flags. Access is ReadOnly unless WriteOnly or ReadWrite is given.
const (
	ReadOnly         Flags = 0
	WriteOnly        Flags = 1 << 0
	ReadWrite        Flags = 1 << 1
	Create           Flags = 1 << 2 // Create the file if it does not exist
	Exclusive        Flags = 1 << 3 // With Create, fail if the file exists
	TruncateExisting Flags = 1 << 4 // Truncate a writable file on open
	SyncWrites       Flags = 1 << 5 // Open for synchronous I/O
)

func (fl Flags) readable() bool {
	return fl&WriteOnly == 0
}

func (fl Flags) writable() bool {
	return fl&(WriteOnly|ReadWrite) != 0
}

// osFlags translates fl to os.OpenFile flags.
func (fl Flags) osFlags() (int, error) {
	var flag int
	switch fl & (WriteOnly | ReadWrite) {
	case ReadOnly:
		flag = os.O_RDONLY
	case WriteOnly:
		flag = os.O_WRONLY
	case ReadWrite:
		flag = os.O_RDWR
	default:
		return 0, opError(ErrInvalidArgument, "open")
	}
	if fl&Create != 0 {
		flag |= os.O_CREATE
	}
	if fl&Exclusive != 0 {
		flag |= os.O_EXCL
	}
	if fl&TruncateExisting != 0 {
		flag |= os.O_TRUNC
	}
	if fl&SyncWrites != 0 {
		flag |= os.O_SYNC
	}
	return flag, nil
}

// Open opens the named file as a channel. Without WriteOnly or ReadWrite
// the result is a *ReadOnlyChannel; otherwise it is a *File.
func Open(path string, flags Flags, perm os.FileMode, opts ...Option) (Channel, error) {
	flag, err := flags.osFlags()
	if err != nil {
		return nil, err
	}
	if !flags.writable() && flags&(Create|TruncateExisting) != 0 {
		// Both would mutate the file behind a read-only channel.
		return nil, opError(ErrNotWritable, "open")
	}

	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, opWrap("open", err)
	}

	file := NewFile(f, flags, opts...)
	file.log.Debug("channel opened",
		zap.String("path", path),
		zap.Bool("readable", file.readable),
		zap.Bool("writable", file.writable))

	if !flags.writable() {
		return NewReadOnly(file), nil
	}
	return file, nil
}

// OpenReadOnly opens the named file as a read-only channel.
func OpenReadOnly(path string, opts ...Option) (*ReadOnlyChannel, error) {
	ch, err := Open(path, ReadOnly, 0, opts...)
	if err != nil {
		return nil, err
	}
	return ch.(*ReadOnlyChannel), nil
}
