package filechan

import (
	"io"

	"github.com/Giulio2002/filechan/mmap"
)

// MappedRegion is a mapped view of a file region returned by Map.
//
// For MapReadOnly regions the memory is protected; storing into Bytes
// faults. A region stays valid after its channel is closed, until Unmap.
type MappedRegion struct {
	m        *mmap.Map // nil for empty and heap-backed regions
	data     []byte
	mode     MapMode
	position int64
	unmapped bool
}

func newMappedRegion(m *mmap.Map, mode MapMode, position int64) *MappedRegion {
	return &MappedRegion{m: m, data: m.Data(), mode: mode, position: position}
}

// newHeapRegion wraps a private copy of file bytes. Used for zero-size maps
// and backends without mmap.
func newHeapRegion(data []byte, mode MapMode, position int64) *MappedRegion {
	return &MappedRegion{data: data, mode: mode, position: position}
}

// Bytes returns the mapped bytes. It returns nil after Unmap.
func (r *MappedRegion) Bytes() []byte {
	return r.data
}

// Len returns the number of mapped bytes.
func (r *MappedRegion) Len() int {
	return len(r.data)
}

// Mode returns the mode the region was mapped with.
func (r *MappedRegion) Mode() MapMode {
	return r.mode
}

// Position returns the file offset of the first mapped byte.
func (r *MappedRegion) Position() int64 {
	return r.position
}

// ReadAt implements io.ReaderAt over the region. off is relative to the
// start of the region.
func (r *MappedRegion) ReadAt(p []byte, off int64) (int, error) {
	if r.unmapped {
		return 0, opError(ErrClosed, "region read")
	}
	if off < 0 {
		return 0, opError(ErrInvalidArgument, "region read")
	}
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Load hints that the whole region will be read soon.
func (r *MappedRegion) Load() error {
	if r.unmapped {
		return opError(ErrClosed, "region load")
	}
	if r.m == nil {
		return nil
	}
	return opWrap("region load", r.m.AdviseWillNeed())
}

// Force writes modified pages of a MapReadWrite region back to the file.
// It does nothing for other modes.
func (r *MappedRegion) Force() error {
	if r.unmapped {
		return opError(ErrClosed, "region force")
	}
	if r.m == nil || r.mode != MapReadWrite {
		return nil
	}
	return opWrap("region force", r.m.Sync())
}

// Unmap releases the mapping. Bytes must not be used afterwards.
// Calling Unmap more than once is safe.
func (r *MappedRegion) Unmap() error {
	if r.unmapped {
		return nil
	}
	r.unmapped = true
	r.data = nil
	if r.m == nil {
		return nil
	}
	return opWrap("unmap", r.m.Close())
}
