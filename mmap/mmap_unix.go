//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

// Granularity returns the alignment required for mapping offsets.
func Granularity() int64 {
	return int64(os.Getpagesize())
}

// New creates a new memory mapping of length bytes of fd starting at offset.
// The offset need not be aligned.
func New(fd uintptr, offset int64, length int, prot Prot) (*Map, error) {
	if length <= 0 {
		return nil, ErrInvalidSize
	}
	if offset < 0 {
		return nil, ErrInvalidRange
	}

	base, delta := alignDown(offset, Granularity())

	flags := unix.MAP_SHARED
	p := unix.PROT_READ
	switch prot {
	case ReadWrite:
		p |= unix.PROT_WRITE
	case CopyOnWrite:
		p |= unix.PROT_WRITE
		flags = unix.MAP_PRIVATE
	}

	mapped, err := unix.Mmap(int(fd), base, int(delta)+length, p, flags)
	if err != nil {
		return nil, &Error{Op: "mmap", Err: err}
	}

	end := int(delta) + length
	return &Map{
		mapped: mapped,
		data:   mapped[delta:end:end],
		offset: offset,
		prot:   prot,
	}, nil
}

// Sync flushes changes to disk synchronously.
func (m *Map) Sync() error {
	if m.mapped == nil {
		return ErrNotMapped
	}
	if err := unix.Msync(m.mapped, unix.MS_SYNC); err != nil {
		return &Error{Op: "msync", Err: err}
	}
	return nil
}

// Close releases the memory mapping.
func (m *Map) Close() error {
	if m.mapped == nil {
		return nil
	}

	err := unix.Munmap(m.mapped)
	m.mapped = nil
	m.data = nil
	if err != nil {
		return &Error{Op: "munmap", Err: err}
	}
	return nil
}

// Advise provides hints to the kernel about memory usage patterns.
func (m *Map) Advise(advice int) error {
	if m.mapped == nil {
		return ErrNotMapped
	}
	return unix.Madvise(m.mapped, advice)
}

// AdviseWillNeed hints that pages will be needed soon.
func (m *Map) AdviseWillNeed() error {
	return m.Advise(unix.MADV_WILLNEED)
}
