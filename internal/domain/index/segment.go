package index

import (
	"bytes"
	"fmt"
	"math"
	"slices"
)

// Segment is one (key, record) tuple before sorting.
type Segment struct {
	Key    Key
	Record Record
}

// Compare orders segments by key bytes, then by record.
func (s Segment) Compare(o Segment) int {
	if c := bytes.Compare(s.Key[:], o.Key[:]); c != 0 {
		return c
	}
	return s.Record.Compare(o.Record)
}

// ExtractSegments appends one segment per byte position of line to dst.
// Every segment points at the whole line, not at the window the key was cut
// from, so a hit anywhere inside the line retrieves the complete line.
// Multi-byte UTF-8 sequences are cut at byte granularity.
func ExtractSegments(dst []Segment, line []byte, offset uint32, width int) []Segment {
	rec := Record{Offset: offset, Length: uint32(len(line))}
	for p := range line {
		var s Segment
		copy(s.Key[:width], line[p:])
		s.Record = rec
		dst = append(dst, s)
	}
	return dst
}

// CollectSegments extracts segments from every line of a newline-joined
// corpus and returns them sorted with exact duplicates removed. Distinct
// records sharing a key are all kept.
func CollectSegments(text []byte, width int) ([]Segment, error) {
	if err := ValidateWidth(width); err != nil {
		return nil, err
	}
	if int64(len(text)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorpusTooLarge, len(text))
	}

	segs := make([]Segment, 0, len(text))
	var offset int
	for offset <= len(text) {
		end := bytes.IndexByte(text[offset:], '\n')
		if end < 0 {
			end = len(text) - offset
		}
		segs = ExtractSegments(segs, text[offset:offset+end], uint32(offset), width)
		offset += end + 1
	}

	slices.SortFunc(segs, Segment.Compare)
	return slices.Compact(segs), nil
}
