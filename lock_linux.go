//go:build linux

package filechan

import "golang.org/x/sys/unix"

// Open file description locks belong to the open file rather than the
// process, so two channels on the same file in one process conflict the
// same way two processes do.
const fcntlSetLock = unix.F_OFD_SETLK
