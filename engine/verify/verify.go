package verify

import (
	"errors"
	"fmt"

	"github.com/emberdb/ember/internal/format"
)

// ValidationError describes a structural problem found in an object's
// record stream.
type ValidationError struct {
	Type    string         // Error category (e.g. "RecordMagic", "Checksum")
	Message string         // Human-readable description
	Offset  int64          // File offset where the problem starts
	Details map[string]any // Additional context
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("verify: %s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
}

// Records validates an object's on-disk record stream: every record must
// carry the record magic, stay in bounds, and match its payload checksum.
// Zero padding after the last record (direct-I/O block fill) is accepted as
// a clean tail.
//
// Returns nil for a structurally sound stream, or a *ValidationError
// locating the first problem.
func Records(data []byte) error {
	off := 0
	for off < len(data) {
		_, next, err := format.DecodeRecord(data, off)
		if errors.Is(err, format.ErrZeroFill) {
			return nil
		}
		if err != nil {
			return validationError(err, int64(off))
		}
		off = next
	}
	return nil
}

// SalvageOffset returns the length of the longest valid record-stream
// prefix of data. Everything past the returned offset is garbage that a
// salvage should discard. For a fully valid stream the result equals the
// stream length (including any clean zero tail).
func SalvageOffset(data []byte) int64 {
	off := 0
	for off < len(data) {
		_, next, err := format.DecodeRecord(data, off)
		if errors.Is(err, format.ErrZeroFill) {
			return int64(len(data))
		}
		if err != nil {
			return int64(off)
		}
		off = next
	}
	return int64(off)
}

// Count returns the number of valid records at the front of data, stopping
// at the first corruption or the clean tail.
func Count(data []byte) int {
	n := 0
	off := 0
	for off < len(data) {
		_, next, err := format.DecodeRecord(data, off)
		if err != nil {
			return n
		}
		n++
		off = next
	}
	return n
}

// validationError maps a decode error onto a categorized ValidationError.
func validationError(err error, off int64) *ValidationError {
	typ := "Record"
	switch {
	case errors.Is(err, format.ErrBadMagic):
		typ = "RecordMagic"
	case errors.Is(err, format.ErrChecksum):
		typ = "Checksum"
	case errors.Is(err, format.ErrTruncated):
		typ = "Truncated"
	}
	return &ValidationError{
		Type:    typ,
		Message: err.Error(),
		Offset:  off,
		Details: map[string]any{"cause": err},
	}
}
