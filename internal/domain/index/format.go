// Package index builds and queries the n-gram substring index.
//
// On-disk layout (two parallel files, no headers, no separators):
//
//	key file:     entryCount × keyWidth bytes, sorted ascending byte-wise
//	payload file: entryCount × 8 bytes, offset:u32be ‖ length:u32be
//
// Entry i of the key file belongs to entry i of the payload file. Offsets and
// lengths address whole lines of the normalized corpus file. Both files are
// immutable once published; a rebuild replaces them wholesale.
package index

import (
	"encoding/binary"
	"fmt"
)

const (
	// MaxKeyWidth is the size of the Key array. Narrower widths leave the
	// tail zeroed.
	MaxKeyWidth = 12

	// KeyWidth12 is the canonical key width.
	KeyWidth12 = 12

	// KeyWidth8 is the width used by the earlier index generation.
	KeyWidth8 = 8

	// RecordSize is the payload stride.
	RecordSize = 8
)

// Key is a fixed-width n-gram key. Bytes past the line end are zero.
type Key [MaxKeyWidth]byte

// Record addresses one line of the corpus file.
type Record struct {
	Offset uint32
	Length uint32
}

// End returns the offset one past the record's last byte.
func (r Record) End() int64 { return int64(r.Offset) + int64(r.Length) }

// Compare orders records by offset, then length.
func (r Record) Compare(o Record) int {
	switch {
	case r.Offset < o.Offset:
		return -1
	case r.Offset > o.Offset:
		return 1
	case r.Length < o.Length:
		return -1
	case r.Length > o.Length:
		return 1
	}
	return 0
}

// EncodeRecord writes r into the first RecordSize bytes of dst, big-endian.
func EncodeRecord(dst []byte, r Record) {
	binary.BigEndian.PutUint32(dst[0:4], r.Offset)
	binary.BigEndian.PutUint32(dst[4:8], r.Length)
}

// DecodeRecord reads a big-endian record from the first RecordSize bytes of b.
func DecodeRecord(b []byte) Record {
	return Record{
		Offset: binary.BigEndian.Uint32(b[0:4]),
		Length: binary.BigEndian.Uint32(b[4:8]),
	}
}

// ValidateWidth returns ErrKeyWidth unless w is one of the two supported
// key widths.
func ValidateWidth(w int) error {
	if w != KeyWidth12 && w != KeyWidth8 {
		return fmt.Errorf("%w: %d", ErrKeyWidth, w)
	}
	return nil
}
