//go:build unix && !linux

package filechan

import "golang.org/x/sys/unix"

// Classic POSIX record locks are per process: channels of the same process
// never conflict with each other here, and closing any descriptor of the
// file drops the process's locks on it.
const fcntlSetLock = unix.F_SETLK
