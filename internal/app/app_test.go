package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/eiji/internal/domain/index"
	"github.com/corey/eiji/internal/ports"
)

// =============================================================================
// App: rebuild trigger, skip rules, hot swap, watch
// =============================================================================

const edictSource = "isomorphism\t同型\nsame type\t同型\ntype\t型"
const subtitleSource = "それは同型だ\tit's the same type\nhello\tこんにちは"

func testConfig(dir string) *Config {
	cfg := Defaults()
	cfg.DataDir = dir
	cfg.WatchDebounce = 20 * time.Millisecond
	cfg.Dictionaries = []DictionaryConfig{
		{Name: "edict", Group: "main", Source: "edict.tab"},
		{Name: "extra", Group: "main", Source: "extra.tab"},
		{Name: "subtitle", Group: "subtitle", Source: "train"},
	}
	return cfg
}

func writeSource(t *testing.T, dir, name, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0644))
}

func newTestApp(t *testing.T, cfg *Config) *App {
	t.Helper()
	a, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func searchLines(t *testing.T, a *App, q string) map[string][]string {
	t.Helper()
	res, err := a.Search(context.Background(), q)
	require.NoError(t, err)
	out := map[string][]string{}
	for _, g := range res {
		out[g.Name] = g.Lines
	}
	return out
}

func TestPrepare_BuildsMissingIndexes(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "edict.tab", edictSource)
	writeSource(t, dir, "train", subtitleSource)

	a := newTestApp(t, testConfig(dir))
	require.NoError(t, a.Prepare(context.Background()))

	got := searchLines(t, a, "同型")
	assert.Equal(t, []string{"isomorphism\t同型", "same type\t同型"}, got["main"])
	assert.Equal(t, []string{"それは同型だ\tit's the same type"}, got["subtitle"])

	m, err := a.Store.LoadManifest("edict")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 3, m.Lines)
	assert.Equal(t, index.KeyWidth12, m.KeyWidth)
	assert.Equal(t, int64(len(edictSource)), m.SourceSize)
	assert.NotEmpty(t, m.BuildID)

	d, err := a.Dictionary("edict")
	require.NoError(t, err)
	assert.True(t, d.Available())
	assert.Equal(t, int64(m.Entries), d.Entries())
}

func TestPrepare_SkipsDictionaryWithoutSource(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "edict.tab", edictSource)

	a := newTestApp(t, testConfig(dir))
	require.NoError(t, a.Prepare(context.Background()))

	extra, err := a.Dictionary("extra")
	require.NoError(t, err)
	assert.False(t, extra.Available())
	assert.Zero(t, extra.Entries())

	got := searchLines(t, a, "同型")
	assert.Len(t, got["main"], 2)
	_, ok := got["subtitle"]
	assert.False(t, ok, "group without available dictionaries is not queried")

	m, err := a.Store.LoadManifest("extra")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestPrepare_KeepsCompleteIndex(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "edict.tab", edictSource)

	a, err := New(testConfig(dir), nil)
	require.NoError(t, err)
	require.NoError(t, a.Prepare(context.Background()))
	first, err := a.Store.LoadManifest("edict")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b := newTestApp(t, testConfig(dir))
	require.NoError(t, b.Prepare(context.Background()))
	second, err := b.Store.LoadManifest("edict")
	require.NoError(t, err)
	assert.Equal(t, first.BuildID, second.BuildID, "complete index is not rebuilt")
}

func TestPrepare_RebuildsWhenAnyArtifactMissing(t *testing.T) {
	for _, missing := range []string{"keys", "payload", "text"} {
		t.Run(missing, func(t *testing.T) {
			dir := t.TempDir()
			writeSource(t, dir, "edict.tab", edictSource)

			a, err := New(testConfig(dir), nil)
			require.NoError(t, err)
			require.NoError(t, a.Prepare(context.Background()))
			first, err := a.Store.LoadManifest("edict")
			require.NoError(t, err)
			d, _ := a.Dictionary("edict")
			cfg := d.Config()
			require.NoError(t, a.Close())

			target := map[string]string{"keys": cfg.Keys, "payload": cfg.Payload, "text": cfg.Text}[missing]
			require.NoError(t, os.Remove(target))

			b := newTestApp(t, testConfig(dir))
			require.NoError(t, b.Prepare(context.Background()))
			second, err := b.Store.LoadManifest("edict")
			require.NoError(t, err)
			assert.NotEqual(t, first.BuildID, second.BuildID)
			assert.Len(t, searchLines(t, b, "同型")["main"], 2)
		})
	}
}

func TestPrepare_BuildsFromTextWhenSourceGone(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Dictionaries = cfg.Dictionaries[:1]
	cfg.Dictionaries[0].Source = ""
	cfg.Dictionaries[0].Text = "EDICT_TEXT"
	writeSource(t, dir, "EDICT_TEXT", edictSource)

	a := newTestApp(t, cfg)
	require.NoError(t, a.Prepare(context.Background()))
	assert.Len(t, searchLines(t, a, "type")["main"], 2)

	m, err := a.Store.LoadManifest("edict")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "EDICT_TEXT"), m.Source)
	assert.Zero(t, m.SourceSize)
}

func TestPrepare_CorruptIndexIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "edict.tab", edictSource)

	a, err := New(testConfig(dir), nil)
	require.NoError(t, err)
	require.NoError(t, a.Prepare(context.Background()))
	d, _ := a.Dictionary("edict")
	payload := d.Config().Payload
	require.NoError(t, a.Close())

	info, err := os.Stat(payload)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(payload, info.Size()-index.RecordSize))

	b := newTestApp(t, testConfig(dir))
	err = b.Prepare(context.Background())
	require.ErrorIs(t, err, index.ErrCorrupt)
	assert.False(t, index.Retryable(err))
}

func TestOpenOrRebuild_RecoversVanishedIndex(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "edict.tab", edictSource)

	a := newTestApp(t, testConfig(dir))
	require.NoError(t, a.Prepare(context.Background()))
	d, err := a.Dictionary("edict")
	require.NoError(t, err)
	require.NoError(t, os.Remove(d.Config().Keys))

	idx, err := a.openOrRebuild(context.Background(), d)
	require.NoError(t, err)
	require.NotNil(t, idx)
	t.Cleanup(func() { idx.Close() })
	assert.FileExists(t, d.Config().Keys)
}

func TestOpenOrRebuild_CorruptIsNotRetried(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "edict.tab", edictSource)

	a, err := New(testConfig(dir), nil)
	require.NoError(t, err)
	require.NoError(t, a.Prepare(context.Background()))
	require.NoError(t, a.Close())

	b := newTestApp(t, testConfig(dir))
	d, err := b.Dictionary("edict")
	require.NoError(t, err)
	payload := d.Config().Payload
	info, err := os.Stat(payload)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(payload, info.Size()-index.RecordSize))

	_, err = b.openOrRebuild(context.Background(), d)
	require.ErrorIs(t, err, index.ErrCorrupt)
	after, err := os.Stat(payload)
	require.NoError(t, err)
	assert.Equal(t, info.Size()-index.RecordSize, after.Size())
}

func TestPrepare_OpensWithManifestKeyWidth(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "edict.tab", edictSource)

	cfg := testConfig(dir)
	cfg.KeyWidth = index.KeyWidth8
	a, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, a.Prepare(context.Background()))
	require.NoError(t, a.Close())

	b := newTestApp(t, testConfig(dir))
	require.NoError(t, b.Prepare(context.Background()))
	m, err := b.Store.LoadManifest("edict")
	require.NoError(t, err)
	assert.Equal(t, index.KeyWidth8, m.KeyWidth)
	assert.Len(t, searchLines(t, b, "same type")["main"], 1)
}

func TestPrepare_MigratesOldLayout(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "edict.tab", edictSource)

	// Build once, then move the artifacts back to the flat layout.
	a, err := New(testConfig(dir), nil)
	require.NoError(t, err)
	require.NoError(t, a.Prepare(context.Background()))
	d, _ := a.Dictionary("edict")
	cfg := d.Config()
	first, _ := a.Store.LoadManifest("edict")
	require.NoError(t, a.Close())
	for _, p := range []string{cfg.Keys, cfg.Payload, cfg.Text} {
		require.NoError(t, os.Rename(p, filepath.Join(dir, filepath.Base(p))))
	}

	b := newTestApp(t, testConfig(dir))
	require.NoError(t, b.Prepare(context.Background()))
	second, _ := b.Store.LoadManifest("edict")
	assert.Equal(t, first.BuildID, second.BuildID, "migrated index is reused, not rebuilt")
	_, err = os.Stat(cfg.Keys)
	assert.NoError(t, err)
}

func TestRebuild_HotSwap(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "edict.tab", edictSource)

	a := newTestApp(t, testConfig(dir))
	require.NoError(t, a.Prepare(context.Background()))
	assert.Empty(t, searchLines(t, a, "polymorphism")["main"])

	writeSource(t, dir, "edict.tab", edictSource+"\npolymorphism\t多型")
	m, err := a.Rebuild(context.Background(), "edict")
	require.NoError(t, err)
	assert.Equal(t, 4, m.Lines)
	assert.Equal(t, []string{"polymorphism\t多型"}, searchLines(t, a, "polymorphism")["main"])
}

func TestRebuild_MakesSkippedDictionaryAvailable(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "edict.tab", edictSource)

	a := newTestApp(t, testConfig(dir))
	require.NoError(t, a.Prepare(context.Background()))

	writeSource(t, dir, "train", subtitleSource)
	_, err := a.Rebuild(context.Background(), "subtitle")
	require.NoError(t, err)
	assert.Len(t, searchLines(t, a, "hello")["subtitle"], 1)
}

func TestRebuild_Errors(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, testConfig(dir))

	_, err := a.Rebuild(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownDictionary)

	_, err = a.Rebuild(context.Background(), "extra")
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestRebuild_ConcurrentSearches(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "edict.tab", edictSource)

	a := newTestApp(t, testConfig(dir))
	require.NoError(t, a.Prepare(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				if _, err := a.Search(context.Background(), "型"); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	for range 5 {
		_, err := a.Rebuild(context.Background(), "edict")
		require.NoError(t, err)
	}
	cancel()
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestWatch_RebuildsChangedSource(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "edict.tab", edictSource)

	a := newTestApp(t, testConfig(dir))
	require.NoError(t, a.Prepare(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rebuilt := make(chan *ports.Manifest, 4)
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, func(name string, m *ports.Manifest, err error) {
			if err == nil && name == "edict" {
				rebuilt <- m
			}
		})
	}()
	time.Sleep(100 * time.Millisecond)

	writeSource(t, dir, "edict.tab", edictSource+"\nhomomorphism\t準同型")
	select {
	case m := <-rebuilt:
		assert.Equal(t, 4, m.Lines)
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after source change")
	}
	assert.Len(t, searchLines(t, a, "準同型")["main"], 1)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestStatus_ReportsEveryDictionary(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "edict.tab", edictSource)

	a := newTestApp(t, testConfig(dir))
	require.NoError(t, a.Prepare(context.Background()))

	st := a.Status()
	require.Len(t, st, 3)
	assert.Equal(t, "edict", st[0].Name)
	assert.Equal(t, "main", st[0].Group)
	assert.True(t, st[0].Available)
	assert.Positive(t, st[0].Entries)
	assert.False(t, st[1].Available)
	assert.False(t, st[2].Available)
}
