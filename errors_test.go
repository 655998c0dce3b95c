package filechan

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NewError(ErrClosed), "filechan: channel is closed"},
		{opError(ErrNotWritable, "write"), "filechan: write: channel is not writable"},
		{opWrap("read", io.ErrUnexpectedEOF), "filechan: read: i/o error: unexpected EOF"},
		{NewError(ErrorCode(99)), "filechan: unknown error code 99"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", opError(ErrNotWritable, "truncate"))

	if !errors.Is(err, ErrNotWritableError) {
		t.Error("errors.Is should match by code through wrapping")
	}
	if errors.Is(err, ErrClosedError) {
		t.Error("errors.Is matched a different code")
	}
	if !IsNotWritable(err) {
		t.Error("IsNotWritable should see through wrapping")
	}

	ioErr := opWrap("write", io.ErrShortWrite)
	if !errors.Is(ioErr, io.ErrShortWrite) {
		t.Error("wrapped cause should stay reachable")
	}
	if !errors.Is(ioErr, ErrIOError) {
		t.Error("wrapped cause should be classified as ErrIO")
	}
}

func TestOpWrap(t *testing.T) {
	if opWrap("read", nil) != nil {
		t.Error("opWrap(nil) should be nil")
	}

	coded := opError(ErrClosed, "lock")
	if got := opWrap("release", coded); got != coded {
		t.Errorf("coded errors should pass through unchanged, got %v", got)
	}
}

func TestCode(t *testing.T) {
	if Code(nil) != Success {
		t.Error("Code(nil) should be Success")
	}
	if Code(errors.New("plain")) != ErrIO {
		t.Error("foreign errors should report ErrIO")
	}
	if Code(opError(ErrLockHeld, "lock")) != ErrLockHeld {
		t.Error("Code should return the error's code")
	}
	if !IsLockHeld(opError(ErrLockHeld, "lock")) || IsNotReadable(nil) {
		t.Error("Is helpers disagree with Code")
	}
}
