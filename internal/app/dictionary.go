package app

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/corey/eiji/internal/domain/corpus"
	"github.com/corey/eiji/internal/domain/index"
	"github.com/corey/eiji/internal/ports"
)

// ErrNoSource means a dictionary has neither a source file nor a normalized
// text to build from.
var ErrNoSource = ports.ErrNoSource

// Dictionary is one configured dictionary and, once prepared, its open
// index. The index is swapped under mu when a rebuild finishes; queries
// hold the read lock for their whole duration.
type Dictionary struct {
	cfg DictionaryConfig

	mu  sync.RWMutex
	idx *index.Index
}

// Name returns the dictionary name.
func (d *Dictionary) Name() string { return d.cfg.Name }

// Config returns the resolved dictionary configuration.
func (d *Dictionary) Config() DictionaryConfig { return d.cfg }

// Available reports whether the dictionary has an open index.
func (d *Dictionary) Available() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.idx != nil
}

// Entries returns the number of index entries, 0 when unavailable.
func (d *Dictionary) Entries() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.idx == nil {
		return 0
	}
	return d.idx.Entries()
}

// Retrieve queries the open index. An unavailable dictionary yields an
// empty result.
func (d *Dictionary) Retrieve(ctx context.Context, q string, opts index.RetrieveOptions) (*index.Result, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.idx == nil {
		return &index.Result{Query: q}, nil
	}
	return d.idx.Retrieve(ctx, q, opts)
}

// swap installs idx and closes the previous index.
func (d *Dictionary) swap(idx *index.Index) error {
	d.mu.Lock()
	old := d.idx
	d.idx = idx
	d.mu.Unlock()
	if old != nil {
		return old.Close()
	}
	return nil
}

// state is what Prepare needs to know about a dictionary on disk.
type state struct {
	source  bool // every source file exists
	text    bool
	keys    bool
	payload bool
}

func (s state) complete() bool { return s.text && s.keys && s.payload }

func (d *Dictionary) inspect() state {
	st := state{
		source:  d.cfg.Source != "",
		text:    exists(d.cfg.Text),
		keys:    exists(d.cfg.Keys),
		payload: exists(d.cfg.Payload),
	}
	for _, p := range d.cfg.Sources() {
		if p == "" || !exists(p) {
			st.source = false
		}
	}
	return st
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// buildInput is the normalized text of a build and where it came from.
type buildInput struct {
	text       []byte
	fromSource bool
	source     fs.FileInfo
}

// readBuildInput normalizes the source when present; otherwise it falls back
// to the already normalized text file.
func (d *Dictionary) readBuildInput() (*buildInput, error) {
	if d.inspect().source {
		text, info, err := d.normalizeSource()
		if err != nil {
			return nil, err
		}
		return &buildInput{text: text, fromSource: true, source: info}, nil
	}
	if exists(d.cfg.Text) {
		text, err := os.ReadFile(d.cfg.Text)
		if err != nil {
			return nil, fmt.Errorf("read text %s: %w", d.cfg.Text, err)
		}
		return &buildInput{text: text}, nil
	}
	return nil, fmt.Errorf("%s: %w", d.cfg.Name, ErrNoSource)
}

func (d *Dictionary) normalizeSource() ([]byte, fs.FileInfo, error) {
	format, err := corpus.ParseFormat(d.cfg.Format)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(d.cfg.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat source: %w", err)
	}

	var second io.Reader
	if format.NeedsSecondSource() {
		f2, err := os.Open(d.cfg.Source2)
		if err != nil {
			return nil, nil, fmt.Errorf("open source2: %w", err)
		}
		defer f2.Close()
		second = f2
	}

	text, err := corpus.Normalize(format, f, second)
	if err != nil {
		return nil, nil, fmt.Errorf("normalize %s: %w", d.cfg.Source, err)
	}
	return text, info, nil
}

// build writes the text (when built from source) and the index files, and
// returns the manifest describing them.
func (d *Dictionary) build(ctx context.Context, width int) (*ports.Manifest, error) {
	start := time.Now()
	in, err := d.readBuildInput()
	if err != nil {
		return nil, err
	}
	if in.fromSource {
		if err := index.WriteFileAtomic(d.cfg.Text, in.text); err != nil {
			return nil, fmt.Errorf("write text %s: %w", d.cfg.Text, err)
		}
	}

	stats, err := index.Build(ctx, in.text, index.BuildOptions{
		Paths:    d.cfg.IndexPaths(),
		KeyWidth: width,
	})
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", d.cfg.Name, err)
	}

	m := &ports.Manifest{
		Name:        d.cfg.Name,
		BuildID:     uuid.NewString(),
		Format:      d.cfg.Format,
		KeyWidth:    width,
		Entries:     stats.Entries,
		Segments:    stats.Segments,
		Lines:       stats.Lines,
		CorpusBytes: stats.Bytes,
		Source:      d.cfg.Text,
		BuiltAt:     time.Now().UTC(),
		DurationMs:  time.Since(start).Milliseconds(),
	}
	if in.fromSource {
		m.Source = d.cfg.Source
		m.SourceSize = in.source.Size()
		m.SourceModTime = in.source.ModTime().UTC()
	}
	return m, nil
}

// open opens the dictionary's index with the given key width.
func (d *Dictionary) open(width int, logger *slog.Logger) (*index.Index, error) {
	return index.Open(d.cfg.IndexPaths(), width, logger.With("dictionary", d.cfg.Name))
}
