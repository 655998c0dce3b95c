//go:build !linux

package filechan

import "os"

// syncData flushes file data. Platforms without fdatasync flush metadata
// as well.
func syncData(f *os.File) error {
	return f.Sync()
}
