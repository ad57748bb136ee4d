package index

import (
	"errors"
	"fmt"
)

var (
	// ErrMissing means one of the derived index files does not exist.
	// Callers treat it as a rebuild trigger.
	ErrMissing = errors.New("index missing")

	// ErrCorrupt means an index file exists but violates the on-disk layout
	// (size not a multiple of its stride, key/payload entry counts differ).
	// It is never retried.
	ErrCorrupt = errors.New("index corrupt")

	// ErrKeyWidth rejects key widths other than 8 and 12.
	ErrKeyWidth = errors.New("unsupported key width")

	// ErrCorpusTooLarge means a record offset or length would not fit the
	// 32-bit payload fields.
	ErrCorpusTooLarge = errors.New("corpus too large for 32-bit payload")

	// ErrInvalidUTF8 marks a retrieved record whose bytes are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("record is not valid UTF-8")
)

// Retryable reports whether err can be cured by rebuilding the index from
// its source corpus.
func Retryable(err error) bool {
	return errors.Is(err, ErrMissing) && !errors.Is(err, ErrCorrupt)
}

// RecordError describes a candidate record that could not be read back from
// the corpus. The query continues without it.
type RecordError struct {
	Record Record
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d+%d: %v", e.Record.Offset, e.Record.Length, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
