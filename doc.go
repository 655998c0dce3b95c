// Package filechan provides random-access file channels and a read-only
// view over them.
//
// A Channel reads and writes at a current position or at explicit
// positions, transfers bytes to and from other channels, maps regions of
// the file into memory and locks byte ranges. File implements Channel over
// an *os.File; BillyFile implements it over a go-billy filesystem.
//
// ReadOnlyChannel wraps any Channel and refuses every operation that could
// modify the file. A refused call reports ErrNotWritable, but only after
// the same argument and open-state checks a writable channel makes, so a
// caller sees ErrInvalidArgument or ErrClosed for a bad call whichever
// kind of channel it holds. Shared locks are forwarded and always wait;
// Force does nothing beyond checking the channel is open.
//
// Basic usage:
//
//	ch, err := filechan.OpenReadOnly("/path/to/file")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ch.Close()
//
//	buf := make([]byte, 4096)
//	n, err := ch.ReadAt(buf, 0)
//	if err != nil && err != io.EOF {
//	    log.Fatal(err)
//	}
//
//	// Writes are refused
//	_, err = ch.WriteAt(buf[:n], 0)
//	fmt.Println(filechan.IsNotWritable(err)) // true
//
//	// Read-only mappings are allowed
//	region, err := ch.Map(filechan.MapReadOnly, 0, int64(n))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer region.Unmap()
//
// Errors returned by channels are *Error values carrying an ErrorCode.
// Use errors.Is with the ErrXxxError values, the IsXxx helpers, or Code
// to classify them. End of file is reported as io.EOF.
package filechan
