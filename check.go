package filechan

// Validation helpers shared by every Channel implementation. Each returns
// nil or a *Error tagged with op so that all variants report the same
// failure for the same bad call.

type opener interface {
	IsOpen() bool
}

func checkOpen(c opener, op string) error {
	if !c.IsOpen() {
		return opError(ErrClosed, op)
	}
	return nil
}

func checkBuffer(p []byte, op string) error {
	if p == nil {
		return opError(ErrInvalidArgument, op)
	}
	return nil
}

func checkPosition(position int64, op string) error {
	if position < 0 {
		return opError(ErrInvalidArgument, op)
	}
	return nil
}

// checkOffsetAndCount validates a sub-range of a buffer sequence.
func checkOffsetAndCount(bufs [][]byte, offset, length int, op string) error {
	if bufs == nil {
		return opError(ErrInvalidArgument, op)
	}
	if offset < 0 || length < 0 || offset > len(bufs)-length {
		return opError(ErrInvalidArgument, op)
	}
	return nil
}

// checkMapArgs validates everything about a map request except the
// capability the mode needs.
func checkMapArgs(mode MapMode, position, size int64) error {
	if !mode.valid() {
		return opError(ErrInvalidArgument, "map")
	}
	if position < 0 || size < 0 || size > MaxMapSize {
		return opError(ErrInvalidArgument, "map")
	}
	return nil
}

func checkLockArgs(position, size int64) error {
	if position < 0 || size < 0 {
		return opError(ErrInvalidArgument, "lock")
	}
	if size > 0 && position > maxRegionEnd-size {
		return opError(ErrInvalidArgument, "lock")
	}
	return nil
}

// checkPeer validates the other side of a transfer.
func checkPeer(peer opener, op string) error {
	if peer == nil {
		return opError(ErrInvalidArgument, op)
	}
	if !peer.IsOpen() {
		return opError(ErrClosed, op)
	}
	return nil
}

func checkTransferRange(position, count int64, op string) error {
	if position < 0 || count < 0 {
		return opError(ErrInvalidArgument, op)
	}
	return nil
}
