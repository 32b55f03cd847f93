//go:build darwin

package store

import (
	"os"

	"golang.org/x/sys/unix"
)

// Fdatasync syncs file data to stable storage.
//
// macOS has no fdatasync; F_FULLFSYNC is used so data reaches the physical
// disk rather than just the drive cache.
func Fdatasync(f *os.File) error {
	_, err := unix.FcntlInt(f.Fd(), unix.F_FULLFSYNC, 0)
	return err
}

// flockExclusive takes an exclusive, non-blocking lock on f.
func flockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

// funlock releases the lock taken by flockExclusive.
func funlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
