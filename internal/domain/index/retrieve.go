package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxRecords caps the distinct candidate records read per query.
const DefaultMaxRecords = 9999

// payloadChunk is how many payload records Candidates reads per ReadAt.
const payloadChunk = 1 << 16

// RetrieveOptions tunes Retrieve.
type RetrieveOptions struct {
	MaxRecords int // <= 0 means DefaultMaxRecords
	Workers    int // <= 0 means GOMAXPROCS
}

// Match is a verified hit: the record and its decoded line.
type Match struct {
	Record Record
	Text   string
}

// Result is the outcome of one query against one index.
type Result struct {
	Query      string
	Range      Range
	Candidates []Record // sorted, deduplicated, capped
	Total      int      // distinct candidates before the cap
	Truncated  bool
	Matches    []Match // in candidate order
	Skipped    []RecordError
}

// Lines returns the text of every match in order.
func (r *Result) Lines() []string {
	lines := make([]string, len(r.Matches))
	for i, m := range r.Matches {
		lines[i] = m.Text
	}
	return lines
}

// Candidates reads the payload records of a block range, sorted by
// (offset, length) with duplicates removed. Several keys of one line can
// match the same query, so duplicates are the norm.
func (idx *Index) Candidates(r Range) ([]Record, error) {
	if r.Empty() {
		return nil, nil
	}
	recs := make([]Record, 0, r.Len())
	buf := make([]byte, min(r.Len(), payloadChunk)*RecordSize)

	for b := r.Begin; b < r.End; b += payloadChunk {
		n := min(r.End-b, payloadChunk)
		chunk := buf[:n*RecordSize]
		if _, err := idx.payload.ReadAt(chunk, b*RecordSize); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: payload record %d past end of file", ErrCorrupt, b+n-1)
			}
			return nil, fmt.Errorf("read payload: %w", err)
		}
		for p := 0; p < len(chunk); p += RecordSize {
			recs = append(recs, DecodeRecord(chunk[p:]))
		}
	}

	slices.SortFunc(recs, Record.Compare)
	return slices.Compact(recs), nil
}

// Retrieve answers query: it locates the key range, collects the distinct
// candidate records (keeping the lowest MaxRecords), reads each line from the
// corpus in parallel, and keeps the lines that literally contain query.
//
// A record that cannot be read or is not valid UTF-8 is reported in
// Result.Skipped and the query carries on. Only index corruption and context
// cancellation fail the call.
func (idx *Index) Retrieve(ctx context.Context, query string, opts RetrieveOptions) (*Result, error) {
	res := &Result{Query: query}
	if query == "" {
		return res, nil
	}

	rng, err := idx.Locate(query)
	if err != nil {
		return nil, fmt.Errorf("locate %q: %w", query, err)
	}
	res.Range = rng

	cands, err := idx.Candidates(rng)
	if err != nil {
		return nil, fmt.Errorf("candidates %q: %w", query, err)
	}
	res.Total = len(cands)

	limit := opts.MaxRecords
	if limit <= 0 {
		limit = DefaultMaxRecords
	}
	if len(cands) > limit {
		idx.logger.Info("too many hits, truncating",
			"query", query, "hits", len(cands), "kept", limit)
		cands = cands[:limit]
		res.Truncated = true
	}
	res.Candidates = cands
	if len(cands) == 0 {
		return res, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	texts := make([]string, len(cands))
	keep := make([]bool, len(cands))
	errs := make([]error, len(cands))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rec := range cands {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := idx.readRecord(rec)
			if err != nil {
				errs[i] = err
				return nil
			}
			texts[i] = text
			keep[i] = strings.Contains(text, query)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, rec := range cands {
		if errs[i] != nil {
			res.Skipped = append(res.Skipped, RecordError{Record: rec, Err: errs[i]})
			continue
		}
		if keep[i] {
			res.Matches = append(res.Matches, Match{Record: rec, Text: texts[i]})
		}
	}
	if len(res.Skipped) > 0 {
		idx.logger.Warn("skipped unreadable records",
			"query", query, "skipped", len(res.Skipped), "first", res.Skipped[0].Error())
	}
	return res, nil
}

// readRecord reads one line of the corpus with a positioned read.
func (idx *Index) readRecord(rec Record) (string, error) {
	buf := make([]byte, rec.Length)
	if _, err := idx.corpus.ReadAt(buf, int64(rec.Offset)); err != nil {
		return "", fmt.Errorf("read corpus at %d: %w", rec.Offset, err)
	}
	if !utf8.Valid(buf) {
		return "", ErrInvalidUTF8
	}
	return string(buf), nil
}
