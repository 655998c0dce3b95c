// Package mmap provides cross-platform memory mapping of file regions.
package mmap

// Prot selects how a region is mapped.
type Prot int

const (
	// ReadOnly maps pages readable only
	ReadOnly Prot = iota
	// ReadWrite maps pages shared with the file; stores reach the file
	ReadWrite
	// CopyOnWrite maps pages privately; stores are never written back
	CopyOnWrite
)

// Map represents a memory-mapped file region.
// The mapping itself starts at an aligned file offset; Data exposes only
// the bytes that were requested.
type Map struct {
	mapped []byte // Whole mapping, starting at the aligned offset
	data   []byte // Requested window into mapped
	offset int64  // Requested file offset
	prot   Prot
	// Windows-specific handle (only used on Windows, zero on Unix)
	mapping uintptr
}

// Data returns the mapped byte slice.
func (m *Map) Data() []byte {
	return m.data
}

// Size returns the mapped size as requested.
func (m *Map) Size() int64 {
	return int64(len(m.data))
}

// Offset returns the file offset of the first byte of Data.
func (m *Map) Offset() int64 {
	return m.offset
}

// Prot returns the protection the region was mapped with.
func (m *Map) Prot() Prot {
	return m.prot
}

// Writable returns true if stores through Data are permitted.
func (m *Map) Writable() bool {
	return m.prot != ReadOnly
}

// alignDown splits offset into an aligned base and the distance from it.
func alignDown(offset int64, granularity int64) (base, delta int64) {
	delta = offset % granularity
	return offset - delta, delta
}

// Error represents an mmap error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "mmap: " + e.Op + ": " + e.Err.Error()
	}
	return "mmap: " + e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Common errors
var (
	ErrInvalidSize  = &Error{Op: "invalid size"}
	ErrInvalidRange = &Error{Op: "invalid range"}
	ErrNotMapped    = &Error{Op: "not mapped"}
)
