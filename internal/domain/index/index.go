package index

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/corey/eiji/internal/logging"
)

// Index is an opened, read-only index: key file, payload file and the corpus
// they address. All reads are positioned (ReadAt), so one Index can serve
// concurrent queries without locking.
type Index struct {
	paths   Paths
	width   int
	blocks  int64
	keys    *os.File
	payload *os.File
	corpus  *os.File
	logger  *slog.Logger
}

// Open opens the three files of an index and validates their layout.
// A missing file yields an error matching ErrMissing; a size that is not a
// multiple of its stride, or differing entry counts, yields ErrCorrupt.
func Open(paths Paths, width int, logger *slog.Logger) (*Index, error) {
	if err := ValidateWidth(width); err != nil {
		return nil, err
	}

	idx := &Index{
		paths:  paths,
		width:  width,
		logger: logging.Default(logger).With("component", "index"),
	}

	var err error
	if idx.keys, err = openFile(paths.Keys); err != nil {
		return nil, err
	}
	if idx.payload, err = openFile(paths.Payload); err != nil {
		idx.Close()
		return nil, err
	}
	if idx.corpus, err = openFile(paths.Corpus); err != nil {
		idx.Close()
		return nil, err
	}

	if err := idx.validate(); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func (idx *Index) validate() error {
	ks, err := fileSize(idx.keys)
	if err != nil {
		return err
	}
	ps, err := fileSize(idx.payload)
	if err != nil {
		return err
	}

	if ks%int64(idx.width) != 0 {
		return fmt.Errorf("%w: key file %s is %d bytes, not a multiple of %d",
			ErrCorrupt, idx.paths.Keys, ks, idx.width)
	}
	if ps%RecordSize != 0 {
		return fmt.Errorf("%w: payload file %s is %d bytes, not a multiple of %d",
			ErrCorrupt, idx.paths.Payload, ps, RecordSize)
	}
	if ks/int64(idx.width) != ps/RecordSize {
		return fmt.Errorf("%w: %d keys but %d payload records",
			ErrCorrupt, ks/int64(idx.width), ps/RecordSize)
	}

	idx.blocks = ks / int64(idx.width)
	return nil
}

func fileSize(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", f.Name(), err)
	}
	return info.Size(), nil
}

// Entries returns the number of key/payload entries.
func (idx *Index) Entries() int64 { return idx.blocks }

// KeyWidth returns the key width the index was opened with.
func (idx *Index) KeyWidth() int { return idx.width }

// Paths returns the files backing the index.
func (idx *Index) Paths() Paths { return idx.paths }

// Close releases all file handles. Safe to call on a partially opened index.
func (idx *Index) Close() error {
	var errs []error
	for _, f := range []*os.File{idx.keys, idx.payload, idx.corpus} {
		if f != nil {
			errs = append(errs, f.Close())
		}
	}
	return errors.Join(errs...)
}

// readBlock reads key block i into dst (len(dst) == width).
func (idx *Index) readBlock(i int64, dst []byte) error {
	if _, err := idx.keys.ReadAt(dst, i*int64(idx.width)); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: key block %d past end of file", ErrCorrupt, i)
		}
		return fmt.Errorf("read key block %d: %w", i, err)
	}
	return nil
}
