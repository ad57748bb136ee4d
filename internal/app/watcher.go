package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	fsw "github.com/corey/eiji/internal/adapters/fsnotify"
	"github.com/corey/eiji/internal/ports"
)

// RebuildFunc receives the outcome of a rebuild triggered by a source change.
type RebuildFunc func(name string, m *ports.Manifest, err error)

// Watch rebuilds a dictionary wholesale whenever its source file changes,
// until ctx is done. A removed source leaves the current index in place.
// notify may be nil.
func (a *App) Watch(ctx context.Context, notify RebuildFunc) error {
	w, err := fsw.NewWatcher(a.Config.WatchDebounce)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Stop()
	return a.watch(ctx, w, notify)
}

func (a *App) watch(ctx context.Context, w ports.Watcher, notify RebuildFunc) error {
	bySource := make(map[string]*Dictionary)
	var paths []string
	for _, d := range a.dicts {
		for _, src := range d.cfg.Sources() {
			if src == "" {
				continue
			}
			if _, err := os.Stat(filepath.Dir(src)); err != nil {
				a.logger.Warn("not watching source, directory missing", "dictionary", d.Name(), "source", src)
				continue
			}
			bySource[src] = d
			paths = append(paths, src)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no dictionary source can be watched")
	}

	err := w.Watch(paths, func(path string) {
		d := bySource[path]
		if d == nil {
			return
		}
		a.onSourceChanged(ctx, d, path, notify)
	})
	if err != nil {
		return fmt.Errorf("watch sources: %w", err)
	}
	a.logger.Info("watching sources", "count", len(paths))

	<-ctx.Done()
	return nil
}

func (a *App) onSourceChanged(ctx context.Context, d *Dictionary, path string, notify RebuildFunc) {
	if ctx.Err() != nil {
		return
	}
	if !d.inspect().source {
		a.logger.Warn("source removed, keeping current index", "dictionary", d.Name(), "source", path)
		return
	}
	a.logger.Info("source changed", "dictionary", d.Name(), "source", path)
	m, err := a.Rebuild(ctx, d.Name())
	if err != nil {
		a.logger.Error("rebuild failed", "dictionary", d.Name(), "error", err)
	}
	if notify != nil {
		notify(d.Name(), m, err)
	}
}
