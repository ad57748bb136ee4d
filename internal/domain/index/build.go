package index

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ctxCheckEvery is how many entries the writer emits between context checks.
const ctxCheckEvery = 1 << 16

// Paths names the files of one index.
type Paths struct {
	Keys    string // key file (n-gram blocks)
	Payload string // payload file (offset+length records)
	Corpus  string // normalized corpus text the payload points into
}

// BuildOptions configures Build.
type BuildOptions struct {
	Paths    Paths
	KeyWidth int // 8 or 12; 0 means KeyWidth12
}

// BuildStats summarizes a finished build.
type BuildStats struct {
	Lines    int
	Segments int // before dedup
	Entries  int // after dedup
	Bytes    int
	Elapsed  time.Duration
}

// Build turns a normalized corpus into the key and payload files named by
// opts.Paths. Nothing is written until the full sort completes; both files
// are staged as temporaries in their destination directories and renamed
// into place only after every byte has been flushed and synced. The same
// input always yields byte-identical files.
//
// Build does not write opts.Paths.Corpus; publish the corpus text with
// WriteFileAtomic before calling Build.
func Build(ctx context.Context, text []byte, opts BuildOptions) (BuildStats, error) {
	start := time.Now()
	width := opts.KeyWidth
	if width == 0 {
		width = KeyWidth12
	}

	segs, err := CollectSegments(text, width)
	if err != nil {
		return BuildStats{}, err
	}
	if err := ctx.Err(); err != nil {
		return BuildStats{}, err
	}

	stats := BuildStats{
		Lines:   countLines(text),
		Entries: len(segs),
		Bytes:   len(text),
	}
	stats.Segments = countSegments(text)

	keysTmp, err := stage(opts.Paths.Keys, func(w *bufio.Writer) error {
		for i := range segs {
			if i%ctxCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if _, err := w.Write(segs[i].Key[:width]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return BuildStats{}, fmt.Errorf("write key file: %w", err)
	}

	payloadTmp, err := stage(opts.Paths.Payload, func(w *bufio.Writer) error {
		var buf [RecordSize]byte
		for i := range segs {
			if i%ctxCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			EncodeRecord(buf[:], segs[i].Record)
			if _, err := w.Write(buf[:]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		os.Remove(keysTmp)
		return BuildStats{}, fmt.Errorf("write payload file: %w", err)
	}

	// Payload is published before keys. Open rejects an index whose entry
	// counts disagree.
	if err := os.Rename(payloadTmp, opts.Paths.Payload); err != nil {
		os.Remove(keysTmp)
		os.Remove(payloadTmp)
		return BuildStats{}, fmt.Errorf("publish payload file: %w", err)
	}
	if err := os.Rename(keysTmp, opts.Paths.Keys); err != nil {
		os.Remove(keysTmp)
		return BuildStats{}, fmt.Errorf("publish key file: %w", err)
	}
	syncDir(filepath.Dir(opts.Paths.Keys))
	if d := filepath.Dir(opts.Paths.Payload); d != filepath.Dir(opts.Paths.Keys) {
		syncDir(d)
	}

	stats.Elapsed = time.Since(start)
	return stats, nil
}

// WriteFileAtomic replaces path with data via a synced temporary file in the
// same directory and a rename.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := stage(path, func(w *bufio.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	syncDir(filepath.Dir(path))
	return nil
}

// stage writes a temporary sibling of dest through fill and returns its path.
// The temporary is removed on any failure.
func stage(dest string, fill func(w *bufio.Writer) error) (string, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return "", err
	}
	path := f.Name()

	w := bufio.NewWriterSize(f, 1<<20)
	if err := fill(w); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	if err := os.Chmod(path, 0o644); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// syncDir is best effort; some platforms cannot fsync a directory.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	d.Sync()
	d.Close()
}

func countLines(text []byte) int {
	n := 1
	for _, b := range text {
		if b == '\n' {
			n++
		}
	}
	return n
}

// countSegments is the pre-dedup segment count: one per non-newline byte.
func countSegments(text []byte) int {
	n := 0
	for _, b := range text {
		if b != '\n' {
			n++
		}
	}
	return n
}
