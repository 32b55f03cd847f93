// Package objid provides the 128-bit object identity used to name an
// object's on-disk files.
package objid

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/xxh3"
)

// ID is a 128-bit object identity derived from the object's URI. Two
// objects with the same URI produce the same ID, so the identity doubles as
// a stable file name for the object's backing data.
type ID [16]byte

// Zero is the zero-value ID.
var Zero ID

// FromURI computes the identity of the object named by uri.
func FromURI(uri string) ID {
	var id ID
	sum := xxh3.Hash128([]byte(uri))
	for i := range 8 {
		id[i] = byte(sum.Hi >> (56 - 8*i))
		id[8+i] = byte(sum.Lo >> (56 - 8*i))
	}
	return id
}

// Hex returns the lowercase hex encoding of the identity.
func (id ID) Hex() string {
	return hex.EncodeToString(id[:])
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return id.Hex()
}

// IsZero reports whether id is the zero identity.
func (id ID) IsZero() bool {
	return id == Zero
}

// ParseHex decodes a 32-character hex string into an ID.
func ParseHex(s string) (ID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Zero, fmt.Errorf("objid.ParseHex: %w", err)
	}
	if len(b) != len(Zero) {
		return Zero, fmt.Errorf("objid.ParseHex: want %d bytes, got %d", len(Zero), len(b))
	}
	var id ID
	copy(id[:], b)
	return id, nil
}
