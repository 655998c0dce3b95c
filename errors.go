package filechan

import (
	"errors"
	"fmt"
)

// Error represents a filechan error with an error code
type Error struct {
	Code    ErrorCode
	Op      string // operation that failed, e.g. "write", "map"
	Message string
	Err     error // wrapped error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("filechan: %s: %v", msg, e.Err)
	}
	return fmt.Sprintf("filechan: %s", msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error with the same code.
// This lets callers match against the ErrXxxError values with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ErrorCode classifies channel failures
type ErrorCode int

const (
	// Success indicates the operation completed successfully
	Success ErrorCode = 0

	// ErrInvalidArgument indicates a nil buffer, a negative position or size,
	// an out-of-bounds offset/length or an unset map mode
	ErrInvalidArgument ErrorCode = 1

	// ErrClosed indicates the channel (or a transfer peer) is closed
	ErrClosed ErrorCode = 2

	// ErrNotWritable indicates the channel was not opened for writing
	ErrNotWritable ErrorCode = 3

	// ErrNotReadable indicates the channel was not opened for reading
	ErrNotReadable ErrorCode = 4

	// ErrOverlappingLock indicates the channel already holds a lock
	// overlapping the requested region
	ErrOverlappingLock ErrorCode = 5

	// ErrLockHeld indicates a non-blocking lock request found the region
	// locked by someone else
	ErrLockHeld ErrorCode = 6

	// ErrIO indicates the underlying file or mapping operation failed
	ErrIO ErrorCode = 7
)

var errorMessages = map[ErrorCode]string{
	Success:            "success",
	ErrInvalidArgument: "invalid argument",
	ErrClosed:          "channel is closed",
	ErrNotWritable:     "channel is not writable",
	ErrNotReadable:     "channel is not readable",
	ErrOverlappingLock: "overlapping lock held by this channel",
	ErrLockHeld:        "region is locked",
	ErrIO:              "i/o error",
}

// String returns the description of the code.
func (c ErrorCode) String() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return fmt.Sprintf("unknown error code %d", int(c))
}

// NewError creates a new Error with the given code
func NewError(code ErrorCode) *Error {
	return &Error{Code: code, Message: code.String()}
}

// WrapError creates a new Error wrapping another error
func WrapError(code ErrorCode, err error) *Error {
	e := NewError(code)
	e.Err = err
	return e
}

// opError creates an Error tagged with the failing operation.
func opError(code ErrorCode, op string) *Error {
	e := NewError(code)
	e.Op = op
	return e
}

// opWrap wraps err as an ErrIO failure of op. Errors that already carry a
// code pass through with that code.
func opWrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	w := WrapError(ErrIO, err)
	w.Op = op
	return w
}

// Common error values for use with errors.Is
var (
	ErrInvalidArgumentError = NewError(ErrInvalidArgument)
	ErrClosedError          = NewError(ErrClosed)
	ErrNotWritableError     = NewError(ErrNotWritable)
	ErrNotReadableError     = NewError(ErrNotReadable)
	ErrOverlappingLockError = NewError(ErrOverlappingLock)
	ErrLockHeldError        = NewError(ErrLockHeld)
	ErrIOError              = NewError(ErrIO)
)

// IsInvalidArgument returns true if the error is ErrInvalidArgument
func IsInvalidArgument(err error) bool {
	return Code(err) == ErrInvalidArgument
}

// IsClosed returns true if the error is ErrClosed
func IsClosed(err error) bool {
	return Code(err) == ErrClosed
}

// IsNotWritable returns true if the error is ErrNotWritable
func IsNotWritable(err error) bool {
	return Code(err) == ErrNotWritable
}

// IsNotReadable returns true if the error is ErrNotReadable
func IsNotReadable(err error) bool {
	return Code(err) == ErrNotReadable
}

// IsLockHeld returns true if the error is ErrLockHeld
func IsLockHeld(err error) bool {
	return Code(err) == ErrLockHeld
}

// Code returns the error code from an error, or ErrIO if not a filechan error
func Code(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrIO
}
