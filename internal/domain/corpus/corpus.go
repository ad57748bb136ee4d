// Package corpus turns raw dictionary and example-sentence sources into the
// normalized text an index is built over: newline-free UTF-8 records joined
// by '\n', with no trailing newline.
package corpus

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Format names a source layout.
type Format string

const (
	// FormatPlain keeps every line as one record (EDICT tab files,
	// subtitle training sets).
	FormatPlain Format = "plain"

	// FormatTanaka keeps the "A: " lines of the Tanaka example corpus,
	// minus their trailing "#ID=" reference.
	FormatTanaka Format = "tanaka"

	// FormatParallel zips two line-aligned files into "left\tright" records.
	FormatParallel Format = "parallel"

	// FormatEijiro reads a Shift_JIS EIJIRO dictionary.
	FormatEijiro Format = "eijiro"

	// FormatReijiro reads a Shift_JIS REIJIRO example dictionary.
	FormatReijiro Format = "reijiro"
)

// Formats lists every supported format.
var Formats = []Format{FormatPlain, FormatTanaka, FormatParallel, FormatEijiro, FormatReijiro}

var (
	// ErrUnknownFormat rejects a format name not in Formats.
	ErrUnknownFormat = errors.New("unknown corpus format")

	// ErrMalformedLine means a dictionary line lacks its "■title : body"
	// shape. The build is aborted.
	ErrMalformedLine = errors.New("malformed dictionary line")

	// ErrInvalidText means a UTF-8 source contains invalid byte sequences.
	ErrInvalidText = errors.New("source is not valid UTF-8")

	// ErrSecondSource means a parallel corpus was given without its second
	// file.
	ErrSecondSource = errors.New("parallel corpus needs a second source")
)

// maxLine bounds a single source line.
const maxLine = 16 << 20

// ParseFormat validates a format name. The empty string means FormatPlain.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatPlain, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// NeedsSecondSource reports whether f reads two files.
func (f Format) NeedsSecondSource() bool { return f == FormatParallel }

// ShiftJIS reports whether the source bytes are Shift_JIS.
func (f Format) ShiftJIS() bool { return f == FormatEijiro || f == FormatReijiro }

// Normalize reads a source in format f and returns its normalized text.
// second is only read by FormatParallel and may be nil otherwise.
func Normalize(f Format, r io.Reader, second io.Reader) ([]byte, error) {
	var w recordWriter
	var err error
	switch f {
	case FormatPlain, "":
		err = eachLine(r, true, func(_ int, line string) error {
			w.add(line)
			return nil
		})
	case FormatTanaka:
		err = eachLine(r, true, func(_ int, line string) error {
			if rec, ok := tanakaRecord(line); ok {
				w.add(rec)
			}
			return nil
		})
	case FormatParallel:
		if second == nil {
			return nil, ErrSecondSource
		}
		err = zipLines(r, second, func(left, right string) {
			w.add(left + "\t" + right)
		})
	case FormatEijiro:
		var a eijiroAppender
		err = eachLine(decodeShiftJIS(r), false, func(n int, line string) error {
			if line == "" {
				return nil
			}
			title, body, err := splitEntry(n, line)
			if err != nil {
				return err
			}
			a.append(title, body)
			return nil
		})
		return a.bytes(), err
	case FormatReijiro:
		err = eachLine(decodeShiftJIS(r), false, func(n int, line string) error {
			if line == "" {
				return nil
			}
			title, body, err := splitEntry(n, line)
			if err != nil {
				return err
			}
			w.add(title + "\t" + reijiroBody(body))
			return nil
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
	if err != nil {
		return nil, err
	}
	return w.bytes(), nil
}

// recordWriter joins records with '\n'.
type recordWriter struct {
	buf bytes.Buffer
	n   int
}

func (w *recordWriter) add(rec string) {
	if w.n > 0 {
		w.buf.WriteByte('\n')
	}
	w.buf.WriteString(rec)
	w.n++
}

func (w *recordWriter) bytes() []byte { return w.buf.Bytes() }

func decodeShiftJIS(r io.Reader) io.Reader {
	return transform.NewReader(r, japanese.ShiftJIS.NewDecoder())
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	return sc
}

// eachLine calls fn with every line of r and its 1-based number. Line
// terminators ("\n" or "\r\n") are removed.
func eachLine(r io.Reader, checkUTF8 bool, fn func(n int, line string) error) error {
	sc := newScanner(r)
	n := 0
	for sc.Scan() {
		n++
		if checkUTF8 && !utf8.Valid(sc.Bytes()) {
			return fmt.Errorf("%w: line %d", ErrInvalidText, n)
		}
		if err := fn(n, sc.Text()); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	return nil
}

// zipLines pairs the lines of two readers, stopping at the shorter one.
func zipLines(a, b io.Reader, fn func(left, right string)) error {
	sa, sb := newScanner(a), newScanner(b)
	n := 0
	for sa.Scan() && sb.Scan() {
		n++
		if !utf8.Valid(sa.Bytes()) || !utf8.Valid(sb.Bytes()) {
			return fmt.Errorf("%w: line %d", ErrInvalidText, n)
		}
		fn(sa.Text(), sb.Text())
	}
	if err := errors.Join(sa.Err(), sb.Err()); err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	return nil
}

// tanakaRecord extracts the sentence pair of an "A: " line.
func tanakaRecord(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, "A: ")
	if !ok {
		return "", false
	}
	if i := strings.LastIndexByte(rest, '#'); i >= 0 {
		rest = rest[:i]
	}
	return rest, true
}
