//go:build linux || freebsd

package store

import (
	"os"

	"golang.org/x/sys/unix"
)

// Fdatasync syncs file data to stable storage.
//
// On Linux/FreeBSD, fdatasync() provides sufficient guarantees: metadata
// needed to read the appended data back is included.
func Fdatasync(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}

// flockExclusive takes an exclusive, non-blocking lock on f.
func flockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

// funlock releases the lock taken by flockExclusive.
func funlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
