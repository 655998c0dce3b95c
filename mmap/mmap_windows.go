//go:build windows

package mmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// allocationGranularity is the view offset alignment on every supported
// Windows release.
const allocationGranularity = 64 * 1024

// Granularity returns the alignment required for mapping offsets.
func Granularity() int64 {
	return allocationGranularity
}

// New creates a new memory mapping of length bytes of the file handle fd
// starting at offset. The offset need not be aligned.
func New(fd uintptr, offset int64, length int, prot Prot) (*Map, error) {
	if length <= 0 {
		return nil, ErrInvalidSize
	}
	if offset < 0 {
		return nil, ErrInvalidRange
	}

	handle := windows.Handle(fd)

	pageProt := uint32(windows.PAGE_READONLY)
	access := uint32(windows.FILE_MAP_READ)
	switch prot {
	case ReadWrite:
		pageProt = windows.PAGE_READWRITE
		access = windows.FILE_MAP_WRITE
	case CopyOnWrite:
		pageProt = windows.PAGE_WRITECOPY
		access = windows.FILE_MAP_COPY
	}

	end := uint64(offset) + uint64(length)
	mapping, err := windows.CreateFileMapping(handle, nil, pageProt, uint32(end>>32), uint32(end), nil)
	if err != nil {
		return nil, &Error{Op: "CreateFileMapping", Err: err}
	}

	base, delta := alignDown(offset, allocationGranularity)
	viewLen := int(delta) + length

	addr, err := windows.MapViewOfFile(mapping, access, uint32(uint64(base)>>32), uint32(base), uintptr(viewLen))
	if err != nil {
		windows.CloseHandle(mapping)
		return nil, &Error{Op: "MapViewOfFile", Err: err}
	}

	mapped := unsafe.Slice((*byte)(unsafe.Pointer(addr)), viewLen)
	return &Map{
		mapped:  mapped,
		data:    mapped[delta:viewLen:viewLen],
		offset:  offset,
		prot:    prot,
		mapping: uintptr(mapping),
	}, nil
}

// Sync flushes changes to disk.
func (m *Map) Sync() error {
	if m.mapped == nil {
		return ErrNotMapped
	}
	if err := windows.FlushViewOfFile(uintptr(unsafe.Pointer(&m.mapped[0])), uintptr(len(m.mapped))); err != nil {
		return &Error{Op: "FlushViewOfFile", Err: err}
	}
	return nil
}

// Close releases the memory mapping.
func (m *Map) Close() error {
	if m.mapped == nil {
		return nil
	}

	addr := uintptr(unsafe.Pointer(&m.mapped[0]))
	if err := windows.UnmapViewOfFile(addr); err != nil {
		return &Error{Op: "UnmapViewOfFile", Err: err}
	}

	if m.mapping != 0 {
		windows.CloseHandle(windows.Handle(m.mapping))
		m.mapping = 0
	}

	m.mapped = nil
	m.data = nil
	return nil
}

// AdviseWillNeed hints that pages will be needed soon.
// Windows has no madvise; this only checks the mapping is live.
func (m *Map) AdviseWillNeed() error {
	if m.mapped == nil {
		return ErrNotMapped
	}
	return nil
}
