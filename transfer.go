package filechan

import (
	"io"
)

// TransferFrom reads up to count bytes from src and writes them into the
// file at position. The current position is not changed. If position is
// past the end of the file nothing is transferred. It returns early,
// without error, when src runs out.
func (f *File) TransferFrom(src ReadableChannel, position, count int64) (int64, error) {
	if err := checkOpen(f, "transfer from"); err != nil {
		return 0, err
	}
	if err := checkPeer(src, "transfer from"); err != nil {
		return 0, err
	}
	if err := f.checkWritable("transfer from"); err != nil {
		return 0, err
	}
	if err := checkTransferRange(position, count, "transfer from"); err != nil {
		return 0, err
	}

	size, err := f.size()
	if err != nil {
		return 0, opWrap("transfer from", err)
	}
	if position > size || count == 0 {
		return 0, nil
	}

	n, err := io.CopyN(io.NewOffsetWriter(f.f, position), src, count)
	if err == io.EOF {
		err = nil
	}
	return n, opWrap("transfer from", err)
}

// TransferTo writes up to count bytes of the file starting at position to
// dst. The current position is not changed. Nothing is transferred when
// position is at or past the end of the file.
func (f *File) TransferTo(position, count int64, dst WritableChannel) (int64, error) {
	if err := checkOpen(f, "transfer to"); err != nil {
		return 0, err
	}
	if err := checkPeer(dst, "transfer to"); err != nil {
		return 0, err
	}
	if err := f.checkReadable("transfer to"); err != nil {
		return 0, err
	}
	if err := checkTransferRange(position, count, "transfer to"); err != nil {
		return 0, err
	}

	size, err := f.size()
	if err != nil {
		return 0, opWrap("transfer to", err)
	}
	if position >= size || count == 0 {
		return 0, nil
	}

	n, err := io.Copy(dst, io.NewSectionReader(f.f, position, min(count, size-position)))
	return n, opWrap("transfer to", err)
}
