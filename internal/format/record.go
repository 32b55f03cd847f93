// Package format defines the on-disk record framing shared by the object
// store, the operation journal, and the verifier.
//
// Object data files are a sequence of data records. The operation journal is
// a sequence of journal records (a data record prefixed with the 128-bit
// object identity). All integers are little-endian.
//
// Data record layout:
//
//	0   4   magic (0x434D5245, "EMRC")
//	4   8   generation
//	12  4   payload length
//	16  8   xxh3-64 checksum of payload
//	24  n   payload
//
// Journal record layout:
//
//	0   4   magic (0x4C4A5245, "EMJL")
//	4   16  object identity
//	20  8   generation
//	28  4   payload length
//	32  8   xxh3-64 checksum of payload
//	40  n   payload
//
// Data files written through the direct-I/O path are padded to the device
// block size with zero bytes, so a record stream may contain zero runs
// between records and after the last one. Decoders skip zero runs; a zero
// run that reaches the end of the stream is a clean tail.
package format

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zeebo/xxh3"
)

const (
	// RecordMagic marks the start of a data record ("EMRC").
	RecordMagic uint32 = 0x434D5245

	// JournalMagic marks the start of a journal record ("EMJL").
	JournalMagic uint32 = 0x4C4A5245

	// RecordHeaderSize is the fixed data record header length.
	RecordHeaderSize = 24

	// JournalHeaderSize is the fixed journal record header length.
	JournalHeaderSize = 40

	// MaxPayloadSize bounds a single record payload. Guards decoders
	// against corrupt length fields.
	MaxPayloadSize = 1 << 30
)

var (
	// ErrZeroFill reports that the decoder hit zero padding, i.e. the clean
	// end of a block-padded stream.
	ErrZeroFill = errors.New("format: zero fill")

	// ErrBadMagic reports an unrecognized record magic.
	ErrBadMagic = errors.New("format: bad record magic")

	// ErrTruncated reports a record extending past the end of the stream.
	ErrTruncated = errors.New("format: truncated record")

	// ErrChecksum reports a payload checksum mismatch.
	ErrChecksum = errors.New("format: checksum mismatch")
)

// Record is a decoded data record.
type Record struct {
	Generation uint64
	Payload    []byte
}

// JournalRecord is a decoded journal record.
type JournalRecord struct {
	Object     [16]byte
	Generation uint64
	Payload    []byte
}

// AppendRecord appends an encoded data record to dst and returns the
// extended slice.
func AppendRecord(dst []byte, gen uint64, payload []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, RecordMagic)
	dst = binary.LittleEndian.AppendUint64(dst, gen)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(payload)))
	dst = binary.LittleEndian.AppendUint64(dst, xxh3.Hash(payload))
	return append(dst, payload...)
}

// AppendJournalRecord appends an encoded journal record to dst and returns
// the extended slice.
func AppendJournalRecord(dst []byte, object [16]byte, gen uint64, payload []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, JournalMagic)
	dst = append(dst, object[:]...)
	dst = binary.LittleEndian.AppendUint64(dst, gen)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(payload)))
	dst = binary.LittleEndian.AppendUint64(dst, xxh3.Hash(payload))
	return append(dst, payload...)
}

// DecodeRecord decodes the data record at off (skipping any zero padding
// first) and returns it together with the offset of the next record.
//
// Returns ErrZeroFill when only zero padding remains, ErrBadMagic /
// ErrTruncated / ErrChecksum on corruption. The returned payload aliases
// data.
func DecodeRecord(data []byte, off int) (Record, int, error) {
	if off+RecordHeaderSize > len(data) {
		if zeroTail(data[off:]) {
			return Record{}, 0, ErrZeroFill
		}
		return Record{}, 0, fmt.Errorf("%w: header at offset %d", ErrTruncated, off)
	}
	magic := binary.LittleEndian.Uint32(data[off:])
	if magic == 0 {
		// Zero fill: block padding from a previous flush. The next record,
		// if any, starts at the first non-zero byte.
		next := skipZeros(data, off)
		if next == len(data) {
			return Record{}, 0, ErrZeroFill
		}
		return DecodeRecord(data, next)
	}
	if magic != RecordMagic {
		return Record{}, 0, fmt.Errorf("%w: 0x%08X at offset %d", ErrBadMagic, magic, off)
	}
	gen := binary.LittleEndian.Uint64(data[off+4:])
	length := binary.LittleEndian.Uint32(data[off+12:])
	sum := binary.LittleEndian.Uint64(data[off+16:])
	if length > MaxPayloadSize {
		return Record{}, 0, fmt.Errorf("%w: payload length %d at offset %d", ErrTruncated, length, off)
	}
	end := off + RecordHeaderSize + int(length)
	if end > len(data) {
		return Record{}, 0, fmt.Errorf("%w: payload at offset %d", ErrTruncated, off)
	}
	payload := data[off+RecordHeaderSize : end]
	if xxh3.Hash(payload) != sum {
		return Record{}, 0, fmt.Errorf("%w: record at offset %d", ErrChecksum, off)
	}
	return Record{Generation: gen, Payload: payload}, end, nil
}

// DecodeJournalRecord decodes the journal record at off and returns it
// together with the offset of the next record.
func DecodeJournalRecord(data []byte, off int) (JournalRecord, int, error) {
	if off+JournalHeaderSize > len(data) {
		if zeroTail(data[off:]) {
			return JournalRecord{}, 0, ErrZeroFill
		}
		return JournalRecord{}, 0, fmt.Errorf("%w: header at offset %d", ErrTruncated, off)
	}
	magic := binary.LittleEndian.Uint32(data[off:])
	if magic == 0 {
		next := skipZeros(data, off)
		if next == len(data) {
			return JournalRecord{}, 0, ErrZeroFill
		}
		return DecodeJournalRecord(data, next)
	}
	if magic != JournalMagic {
		return JournalRecord{}, 0, fmt.Errorf("%w: 0x%08X at offset %d", ErrBadMagic, magic, off)
	}
	var rec JournalRecord
	copy(rec.Object[:], data[off+4:off+20])
	rec.Generation = binary.LittleEndian.Uint64(data[off+20:])
	length := binary.LittleEndian.Uint32(data[off+28:])
	sum := binary.LittleEndian.Uint64(data[off+32:])
	if length > MaxPayloadSize {
		return JournalRecord{}, 0, fmt.Errorf("%w: payload length %d at offset %d", ErrTruncated, length, off)
	}
	end := off + JournalHeaderSize + int(length)
	if end > len(data) {
		return JournalRecord{}, 0, fmt.Errorf("%w: payload at offset %d", ErrTruncated, off)
	}
	rec.Payload = data[off+JournalHeaderSize : end]
	if xxh3.Hash(rec.Payload) != sum {
		return JournalRecord{}, 0, fmt.Errorf("%w: record at offset %d", ErrChecksum, off)
	}
	return rec, end, nil
}

// zeroTail reports whether the remainder of the stream is all zero bytes.
func zeroTail(tail []byte) bool {
	for _, b := range tail {
		if b != 0 {
			return false
		}
	}
	return true
}

// skipZeros returns the offset of the first non-zero byte at or after off.
func skipZeros(data []byte, off int) int {
	for off < len(data) && data[off] == 0 {
		off++
	}
	return off
}
