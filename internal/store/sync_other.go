//go:build !linux && !freebsd && !darwin

package store

import "os"

// Fdatasync syncs file data to stable storage. Fallback for platforms
// without fdatasync: full fsync.
func Fdatasync(f *os.File) error {
	return f.Sync()
}

// flockExclusive is a no-op on platforms without flock. Single-process
// exclusion is not enforced there.
func flockExclusive(_ *os.File) error {
	return nil
}

// funlock is a no-op on platforms without flock.
func funlock(_ *os.File) error {
	return nil
}
