// Package query answers a user query across groups of dictionaries.
//
// A group's sources are queried in order and their hits concatenated into a
// single presented set; groups are returned separately, in configuration
// order.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corey/eiji/internal/domain/index"
	"github.com/corey/eiji/internal/logging"
)

// Retriever is the read side of an opened index.
type Retriever interface {
	Retrieve(ctx context.Context, q string, opts index.RetrieveOptions) (*index.Result, error)
}

// Source is a named Retriever.
type Source interface {
	Retriever
	Name() string
}

type named struct {
	Retriever
	name string
}

func (n named) Name() string { return n.name }

// Named attaches a name to r.
func Named(name string, r Retriever) Source {
	return named{Retriever: r, name: name}
}

// Group is an ordered list of sources presented as one result set.
type Group struct {
	Name    string
	Sources []Source
}

// GroupResult is the presented outcome of one group.
type GroupResult struct {
	Name    string
	Lines   []string        // reordered, ready for presentation
	Sources []string        // source names, parallel to Results
	Results []*index.Result // one per source, in source order
}

// Count returns the number of lines in the group.
func (g GroupResult) Count() int { return len(g.Lines) }

// Engine runs queries against a fixed set of groups.
type Engine struct {
	groups []Group
	opts   index.RetrieveOptions
	logger *slog.Logger
}

// NewEngine creates an engine over groups. Groups without sources are
// dropped.
func NewEngine(groups []Group, opts index.RetrieveOptions, logger *slog.Logger) *Engine {
	e := &Engine{
		opts:   opts,
		logger: logging.Default(logger).With("component", "query"),
	}
	for _, g := range groups {
		if len(g.Sources) > 0 {
			e.groups = append(e.groups, g)
		}
	}
	return e
}

// Groups returns the groups the engine queries.
func (e *Engine) Groups() []Group { return e.groups }

// Search runs q against every source. Empty and whitespace-only queries
// return nil without touching any index. Sources run concurrently; results
// keep group and source order.
func (e *Engine) Search(ctx context.Context, q string) ([]GroupResult, error) {
	if strings.TrimSpace(q) == "" {
		return nil, nil
	}
	start := time.Now()

	results := make([][]*index.Result, len(e.groups))
	g, gctx := errgroup.WithContext(ctx)
	for gi, grp := range e.groups {
		results[gi] = make([]*index.Result, len(grp.Sources))
		for si, src := range grp.Sources {
			g.Go(func() error {
				res, err := src.Retrieve(gctx, q, e.opts)
				if err != nil {
					return fmt.Errorf("search %s: %w", src.Name(), err)
				}
				results[gi][si] = res
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]GroupResult, len(e.groups))
	total := 0
	for gi, grp := range e.groups {
		var lines []string
		names := make([]string, len(grp.Sources))
		for si, res := range results[gi] {
			lines = append(lines, res.Lines()...)
			names[si] = grp.Sources[si].Name()
		}
		out[gi] = GroupResult{
			Name:    grp.Name,
			Lines:   Reorder(lines, q),
			Sources: names,
			Results: results[gi],
		}
		total += len(lines)
	}

	e.logger.Debug("search", "query", q, "hits", total, "elapsed", time.Since(start))
	return out, nil
}
