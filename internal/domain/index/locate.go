package index

import "bytes"

// SearchKey is a query cut to key width. Only the first Len bytes take part
// in comparisons; trailing zero bytes are wildcards, not literal NULs.
type SearchKey struct {
	Key Key
	Len int
}

// NewSearchKey copies query into a key of the given width, truncating longer
// queries. Len is the position after the last non-zero byte.
func NewSearchKey(query string, width int) SearchKey {
	var k SearchKey
	n := copy(k.Key[:width], query)
	for n > 0 && k.Key[n-1] == 0 {
		n--
	}
	k.Len = n
	return k
}

// compare compares a key block against k with every byte at or past k.Len
// masked to equal on both sides.
func (k SearchKey) compare(word []byte) int {
	return bytes.Compare(word[:k.Len], k.Key[:k.Len])
}

// Range is a half-open range of key-file blocks.
type Range struct {
	Begin int64
	End   int64
}

// Len returns the number of blocks in the range.
func (r Range) Len() int64 { return r.End - r.Begin }

// Empty reports whether the range holds no blocks.
func (r Range) Empty() bool { return r.End <= r.Begin }

// PayloadOffsets converts the block range to the byte range of the matching
// payload records.
func (r Range) PayloadOffsets() (begin, end int64) {
	return r.Begin * RecordSize, r.End * RecordSize
}

// Locate returns the blocks whose keys agree with query over the query's
// length (capped at the key width). An empty query returns an empty range
// without touching the key file.
func (idx *Index) Locate(query string) (Range, error) {
	if query == "" || idx.blocks == 0 {
		return Range{}, nil
	}
	head := NewSearchKey(query, idx.width)

	begin, err := idx.limitLeft(head)
	if err != nil {
		return Range{}, err
	}
	end, err := idx.limitRight(head)
	if err != nil {
		return Range{}, err
	}
	if end < begin {
		end = begin
	}
	return Range{Begin: begin, End: end}, nil
}

// limitLeft returns the first block not less than head.
func (idx *Index) limitLeft(head SearchKey) (int64, error) {
	return idx.bisect(head, func(c int) bool { return c >= 0 })
}

// limitRight returns the first block strictly greater than head.
func (idx *Index) limitRight(head SearchKey) (int64, error) {
	return idx.bisect(head, func(c int) bool { return c > 0 })
}

// bisect returns the smallest block in [0, blocks] for which
// past(compare(block, head)) holds, or blocks when none does. past must be
// monotone over the sorted key file. The span halves every step, so the
// search reads O(log blocks) key blocks.
func (idx *Index) bisect(head SearchKey, past func(int) bool) (int64, error) {
	word := make([]byte, idx.width)
	fr, to := int64(0), idx.blocks
	for fr < to {
		cursor := fr + (to-fr)/2
		if err := idx.readBlock(cursor, word); err != nil {
			return 0, err
		}
		if past(head.compare(word)) {
			to = cursor
		} else {
			fr = cursor + 1
		}
	}
	return fr, nil
}
