package filechan

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func openRW(t *testing.T, data []byte) (*File, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rw.dat")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	ch, err := Open(path, ReadWrite, 0)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	f, ok := ch.(*File)
	if !ok {
		t.Fatalf("Open(ReadWrite) returned %T, want *File", ch)
	}
	t.Cleanup(func() { f.Close() })
	return f, path
}

func TestOpenFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.dat")

	if _, err := Open(path, ReadOnly, 0); Code(err) != ErrIO {
		t.Errorf("opening missing file: got %v, want ErrIO", err)
	}
	if _, err := Open(path, ReadOnly|Create, 0644); !IsNotWritable(err) {
		t.Errorf("read-only create: got %v, want ErrNotWritable", err)
	}
	if _, err := Open(path, WriteOnly|ReadWrite, 0644); !IsInvalidArgument(err) {
		t.Errorf("conflicting access: got %v, want ErrInvalidArgument", err)
	}

	ch, err := Open(path, ReadWrite|Create|Exclusive, 0644)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !ch.Readable() || !ch.Writable() {
		t.Error("ReadWrite channel should be readable and writable")
	}
	ch.Close()

	if _, err := Open(path, ReadWrite|Create|Exclusive, 0644); Code(err) != ErrIO {
		t.Errorf("exclusive create of existing file: got %v, want ErrIO", err)
	}

	ch, err = Open(path, ReadOnly, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ch.(*ReadOnlyChannel); !ok {
		t.Errorf("Open(ReadOnly) returned %T, want *ReadOnlyChannel", ch)
	}
	ch.Close()
}

func TestWriteReadPosition(t *testing.T) {
	f, path := openRW(t, nil)

	n, err := f.Write([]byte("hello "))
	if err != nil || n != 6 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if _, err := f.WriteVec([][]byte{[]byte("big "), []byte("world")}, 1, 1); err != nil {
		t.Fatal(err)
	}
	pos, err := f.Position()
	if err != nil || pos != 11 {
		t.Fatalf("Position = %d, %v; want 11", pos, err)
	}

	// Positional writes leave the position alone.
	if _, err := f.WriteAt([]byte("W"), 6); err != nil {
		t.Fatal(err)
	}
	if pos, _ := f.Position(); pos != 11 {
		t.Errorf("WriteAt moved position to %d", pos)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello World" {
		t.Errorf("file = %q", got)
	}

	if err := f.SetPosition(0); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 5)
	if _, err := io.ReadFull(f, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "hello" {
		t.Errorf("Read = %q", buf)
	}

	// Reading at the end reports io.EOF.
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Read(buf); err != io.EOF {
		t.Errorf("Read at end: got %v, want io.EOF", err)
	}
	if _, err := f.ReadVec([][]byte{buf}, 0, 1); err != io.EOF {
		t.Errorf("ReadVec at end: got %v, want io.EOF", err)
	}
}

func TestValidationOrder(t *testing.T) {
	f, _ := openRW(t, []byte("data"))
	f.Close()

	// Argument errors win over the closed state where arguments come first.
	if _, err := f.WriteAt(nil, 0); !IsInvalidArgument(err) {
		t.Errorf("WriteAt(nil) on closed: got %v", err)
	}
	if _, err := f.WriteAt([]byte("x"), -1); !IsInvalidArgument(err) {
		t.Errorf("WriteAt(-1) on closed: got %v", err)
	}
	if _, err := f.WriteAt([]byte("x"), 0); !IsClosed(err) {
		t.Errorf("WriteAt on closed: got %v", err)
	}
	if err := f.Truncate(-1); !IsClosed(err) {
		t.Errorf("Truncate(-1) on closed: got %v", err)
	}
	if _, err := f.Map(0, 0, 1); !IsClosed(err) {
		t.Errorf("Map on closed: got %v", err)
	}
	if err := f.Force(true); !IsClosed(err) {
		t.Errorf("Force on closed: got %v", err)
	}
	if _, err := f.Size(); !IsClosed(err) {
		t.Errorf("Size on closed: got %v", err)
	}
	// Close is idempotent.
	if err := f.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestTruncate(t *testing.T) {
	f, path := openRW(t, []byte("0123456789"))

	if err := f.SetPosition(8); err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(-1); !IsInvalidArgument(err) {
		t.Errorf("Truncate(-1): got %v", err)
	}

	// Growing is a no-op.
	if err := f.Truncate(100); err != nil {
		t.Fatal(err)
	}
	if size, _ := f.Size(); size != 10 {
		t.Errorf("size after Truncate(100) = %d, want 10", size)
	}

	if err := f.Truncate(4); err != nil {
		t.Fatal(err)
	}
	if pos, _ := f.Position(); pos != 4 {
		t.Errorf("position after truncate = %d, want 4", pos)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "0123" {
		t.Errorf("file = %q, want 0123", got)
	}
}

func TestSeek(t *testing.T) {
	f, _ := openRW(t, []byte("0123456789"))

	tests := []struct {
		offset int64
		whence int
		want   int64
		code   ErrorCode
	}{
		{3, io.SeekStart, 3, Success},
		{2, io.SeekCurrent, 5, Success},
		{-1, io.SeekEnd, 9, Success},
		{5, io.SeekEnd, 15, Success},
		{-20, io.SeekCurrent, 0, ErrInvalidArgument},
		{0, 7, 0, ErrInvalidArgument},
	}
	for _, tt := range tests {
		pos, err := f.Seek(tt.offset, tt.whence)
		if Code(err) != tt.code {
			t.Errorf("Seek(%d, %d): got %v, want code %v", tt.offset, tt.whence, err, tt.code)
			continue
		}
		if err == nil && pos != tt.want {
			t.Errorf("Seek(%d, %d) = %d, want %d", tt.offset, tt.whence, pos, tt.want)
		}
	}
	if err := f.SetPosition(-1); !IsInvalidArgument(err) {
		t.Errorf("SetPosition(-1): got %v", err)
	}
}

func TestWriteOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wo.dat")
	ch, err := Open(path, WriteOnly|Create, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer ch.Close()

	if _, err := ch.Write([]byte("abc")); err != nil {
		t.Fatal(err)
	}
	if _, err := ch.ReadAt(make([]byte, 1), 0); !IsNotReadable(err) {
		t.Errorf("ReadAt on write-only: got %v", err)
	}
	if _, err := ch.Map(MapReadOnly, 0, 1); !IsNotReadable(err) {
		t.Errorf("Map on write-only: got %v", err)
	}
	if _, err := ch.TryLock(0, 1, true); !IsNotReadable(err) {
		t.Errorf("shared lock on write-only: got %v", err)
	}
	if err := ch.Force(false); err != nil {
		t.Errorf("Force(false): %v", err)
	}
}

func TestTransfer(t *testing.T) {
	f, path := openRW(t, []byte("0123456789"))

	src := &peer{}
	src.WriteString("abcdef")
	n, err := f.TransferFrom(src, 2, 4)
	if err != nil || n != 4 {
		t.Fatalf("TransferFrom = %d, %v", n, err)
	}
	// Position past the end transfers nothing.
	if n, err := f.TransferFrom(src, 11, 1); err != nil || n != 0 {
		t.Errorf("TransferFrom past end = %d, %v", n, err)
	}
	// A short source ends the transfer without error.
	if n, err := f.TransferFrom(src, 10, 100); err != nil || n != 2 {
		t.Errorf("TransferFrom short source = %d, %v", n, err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "01abcd6789ef" {
		t.Errorf("file = %q", got)
	}

	var dst peer
	if n, err := f.TransferTo(8, 100, &dst); err != nil || n != 4 {
		t.Errorf("TransferTo = %d, %v", n, err)
	}
	if dst.String() != "89ef" {
		t.Errorf("TransferTo wrote %q", dst.String())
	}

	if _, err := f.TransferTo(-1, 1, &dst); !IsInvalidArgument(err) {
		t.Errorf("TransferTo(-1): got %v", err)
	}
	if _, err := f.TransferTo(0, 1, &peer{closed: true}); !IsClosed(err) {
		t.Errorf("TransferTo closed target: got %v", err)
	}
	if _, err := f.TransferFrom(nil, 0, 1); !IsInvalidArgument(err) {
		t.Errorf("TransferFrom(nil): got %v", err)
	}
}

func TestMapReadWrite(t *testing.T) {
	f, path := openRW(t, []byte("abc"))

	// A writable mapping grows the file to cover the region.
	region, err := f.Map(MapReadWrite, 0, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if size, _ := f.Size(); size != 4096 {
		t.Errorf("size after map = %d, want 4096", size)
	}
	if !bytes.HasPrefix(region.Bytes(), []byte("abc")) {
		t.Errorf("mapped data = %q", region.Bytes()[:3])
	}
	copy(region.Bytes(), "XYZ")
	if err := region.Force(); err != nil {
		t.Fatal(err)
	}
	if err := region.Unmap(); err != nil {
		t.Fatal(err)
	}

	got, _ := os.ReadFile(path)
	if !bytes.HasPrefix(got, []byte("XYZ")) {
		t.Errorf("file = %q", got[:3])
	}

	// A region ending past the largest offset cannot be backed by the file.
	_, err = f.Map(MapReadWrite, math.MaxInt64-2, 8)
	if Code(err) != ErrIO || !errors.Is(err, errMapPastMaxSize) {
		t.Errorf("Map past max offset: got %v", err)
	}
	if size, _ := f.Size(); size != 4096 {
		t.Errorf("failed map changed size to %d", size)
	}

	private, err := f.Map(MapPrivate, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	copy(private.Bytes(), "ppp")
	private.Unmap()
	got, _ = os.ReadFile(path)
	if !bytes.HasPrefix(got, []byte("XYZ")) {
		t.Errorf("private mapping reached the file: %q", got[:3])
	}
}

func TestRegionReadAt(t *testing.T) {
	f, _ := openRW(t, []byte("0123456789"))

	region, err := f.Map(MapReadOnly, 2, 6)
	if err != nil {
		t.Fatal(err)
	}
	defer region.Unmap()

	buf := make([]byte, 4)
	n, err := region.ReadAt(buf, 3)
	if n != 3 || err != io.EOF {
		t.Errorf("ReadAt = %d, %v; want 3, EOF", n, err)
	}
	if string(buf[:n]) != "567" {
		t.Errorf("ReadAt read %q", buf[:n])
	}
	if _, err := region.ReadAt(buf, 6); err != io.EOF {
		t.Errorf("ReadAt at end: %v", err)
	}
	if _, err := region.ReadAt(buf, -1); !IsInvalidArgument(err) {
		t.Errorf("ReadAt(-1): %v", err)
	}
}
