// Package app wires together all adapters and domain logic.
// It owns the dictionaries of a data directory: it rebuilds missing indexes
// before the first query, opens them, and swaps in fresh indexes after a
// rebuild while queries keep running.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/corey/eiji/internal/adapters/bbolt"
	"github.com/corey/eiji/internal/domain/index"
	"github.com/corey/eiji/internal/domain/query"
	"github.com/corey/eiji/internal/logging"
	"github.com/corey/eiji/internal/ports"
)

// ErrUnknownDictionary means a name matches no configured dictionary.
var ErrUnknownDictionary = errors.New("unknown dictionary")

// App is the top-level container wiring all components together.
type App struct {
	Config *Config
	Paths  *Paths
	Store  *bbolt.Store

	dicts  []*Dictionary
	logger *slog.Logger

	buildMu sync.Mutex // serializes Prepare and Rebuild

	engineMu sync.RWMutex
	engine   *query.Engine
}

// New resolves and validates cfg, opens the manifest store and creates the
// dictionaries. Indexes are not touched until Prepare.
func New(cfg *Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if err := cfg.Resolve(); err != nil {
		return nil, fmt.Errorf("resolve config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	paths := NewPaths(cfg.DataDir)
	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("create %s: %w", paths.Root, err)
	}
	store, err := bbolt.NewStore(paths.DB)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &App{
		Config: cfg,
		Paths:  paths,
		Store:  store,
		logger: logging.Default(logger).With("component", "app"),
	}
	for _, dc := range cfg.Dictionaries {
		a.dicts = append(a.dicts, &Dictionary{cfg: dc})
	}
	a.refreshEngine()
	return a, nil
}

// Prepare makes every dictionary queryable. A dictionary whose source (or
// normalized text) exists but any derived file is missing is rebuilt first,
// synchronously. A dictionary with neither source nor text is skipped for
// the session. A corrupt index is fatal.
func (a *App) Prepare(ctx context.Context) error {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()

	if n, err := a.Paths.Migrate(a.migratableStems()); err != nil {
		return fmt.Errorf("migrate old index layout: %w", err)
	} else if n > 0 {
		a.logger.Info("moved indexes from old layout", "count", n, "dir", a.Paths.IndexDir)
	}

	defer a.refreshEngine()
	for _, d := range a.dicts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.prepare(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) prepare(ctx context.Context, d *Dictionary) error {
	st := d.inspect()
	if !st.source && !st.text {
		a.logger.Info("dictionary unavailable, skipping", "dictionary", d.Name(), "source", d.cfg.Source)
		return nil
	}
	if !st.complete() {
		a.logger.Info("index missing, rebuilding", "dictionary", d.Name(),
			"text", st.text, "keys", st.keys, "payload", st.payload)
		if _, err := a.build(ctx, d); err != nil {
			return err
		}
	}

	idx, err := a.openOrRebuild(ctx, d)
	if err != nil {
		return err
	}
	return d.swap(idx)
}

// openOrRebuild opens d, rebuilding once when an index file went missing
// between inspection and open.
func (a *App) openOrRebuild(ctx context.Context, d *Dictionary) (*index.Index, error) {
	idx, err := a.open(d)
	if err == nil || !index.Retryable(err) {
		return idx, err
	}
	a.logger.Warn("index vanished, rebuilding", "dictionary", d.Name(), "err", err)
	if _, err := a.build(ctx, d); err != nil {
		return nil, err
	}
	return a.open(d)
}

// Rebuild forces a full rebuild of one dictionary and swaps the new index in.
// Queries running against the old index finish first.
func (a *App) Rebuild(ctx context.Context, name string) (*ports.Manifest, error) {
	d, err := a.Dictionary(name)
	if err != nil {
		return nil, err
	}

	a.buildMu.Lock()
	defer a.buildMu.Unlock()

	m, err := a.build(ctx, d)
	if err != nil {
		return nil, err
	}
	idx, err := a.open(d)
	if err != nil {
		return nil, err
	}
	if err := d.swap(idx); err != nil {
		a.logger.Warn("close replaced index", "dictionary", name, "error", err)
	}
	a.refreshEngine()
	return m, nil
}

func (a *App) build(ctx context.Context, d *Dictionary) (*ports.Manifest, error) {
	log := a.logger.With("dictionary", d.Name())
	log.Info("building index", "source", d.cfg.Source, "format", d.cfg.Format)

	m, err := d.build(ctx, a.Config.KeyWidth)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", d.Name(), err)
	}
	if err := a.Store.SaveManifest(m); err != nil {
		return nil, fmt.Errorf("save manifest %s: %w", d.Name(), err)
	}

	log.Info("index built",
		"entries", m.Entries, "lines", m.Lines, "bytes", m.CorpusBytes,
		"key_width", m.KeyWidth, "duration_ms", m.DurationMs)
	return m, nil
}

// open opens d with the key width its manifest records, so indexes built at
// the older 8-byte width keep working after the default changes.
func (a *App) open(d *Dictionary) (*index.Index, error) {
	width := a.Config.KeyWidth
	m, err := a.Store.LoadManifest(d.Name())
	if err != nil {
		return nil, fmt.Errorf("load manifest %s: %w", d.Name(), err)
	}
	if m != nil && m.KeyWidth != 0 {
		width = m.KeyWidth
	}
	idx, err := d.open(width, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name(), err)
	}
	return idx, nil
}

// migratableStems returns the stems of dictionaries left at their default
// artifact location.
func (a *App) migratableStems() []string {
	var stems []string
	for _, d := range a.dicts {
		keys, payload, text := a.Paths.Artifacts(d.cfg.Stem)
		if d.cfg.Keys == keys && d.cfg.Payload == payload && d.cfg.Text == text {
			stems = append(stems, d.cfg.Stem)
		}
	}
	return stems
}

// refreshEngine rebuilds the query engine over the available dictionaries,
// grouped in configuration order.
func (a *App) refreshEngine() {
	var groups []query.Group
	for _, name := range a.Config.Groups() {
		g := query.Group{Name: name}
		for _, d := range a.dicts {
			if d.cfg.Group == name && d.Available() {
				g.Sources = append(g.Sources, d)
			}
		}
		groups = append(groups, g)
	}
	e := query.NewEngine(groups, a.Config.RetrieveOptions(), a.logger)

	a.engineMu.Lock()
	a.engine = e
	a.engineMu.Unlock()
}

// Search runs q against every available dictionary.
func (a *App) Search(ctx context.Context, q string) ([]query.GroupResult, error) {
	a.engineMu.RLock()
	e := a.engine
	a.engineMu.RUnlock()
	return e.Search(ctx, q)
}

// Dictionary returns the named dictionary.
func (a *App) Dictionary(name string) (*Dictionary, error) {
	for _, d := range a.dicts {
		if d.Name() == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownDictionary, name)
}

// Dictionaries returns every configured dictionary in configuration order.
func (a *App) Dictionaries() []*Dictionary { return a.dicts }

// Manifests returns the stored build manifests.
func (a *App) Manifests() ([]*ports.Manifest, error) {
	return a.Store.ListManifests()
}

// DBPath returns the manifest database path, relative to the data dir when
// possible.
func (a *App) DBPath() string {
	if rel, err := filepath.Rel(a.Config.DataDir, a.Paths.DB); err == nil {
		return rel
	}
	return a.Paths.DB
}

// Close closes every index and the manifest store.
func (a *App) Close() error {
	var errs []error
	for _, d := range a.dicts {
		errs = append(errs, d.swap(nil))
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}
