package app

import (
	"os"
	"path/filepath"
)

// Artifact suffixes of a dictionary's derived files.
const (
	keysSuffix    = "_NGRAM"
	payloadSuffix = "_INDEX"
	textSuffix    = "_TEXT"
)

// Paths holds all resolved filesystem paths for the .eiji/ state directory.
// All fields are pre-computed at construction.
type Paths struct {
	DataDir  string // dictionary sources live here
	Root     string // .eiji/
	DB       string // .eiji/eiji.db
	IndexDir string // .eiji/index/
}

// NewPaths constructs all resolved paths from a data directory.
func NewPaths(dataDir string) *Paths {
	root := filepath.Join(dataDir, ".eiji")
	return &Paths{
		DataDir:  dataDir,
		Root:     root,
		DB:       filepath.Join(root, "eiji.db"),
		IndexDir: filepath.Join(root, "index"),
	}
}

// EnsureDirs creates all subdirectories under .eiji/. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.IndexDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// Artifacts returns the default key, payload and text paths for a file stem.
func (p *Paths) Artifacts(stem string) (keys, payload, text string) {
	return filepath.Join(p.IndexDir, stem+keysSuffix),
		filepath.Join(p.IndexDir, stem+payloadSuffix),
		filepath.Join(p.IndexDir, stem+textSuffix)
}

// Migrate moves indexes from the old flat layout (STEM_NGRAM, STEM_INDEX and
// STEM_TEXT next to the sources) into .eiji/index/. Returns the number of
// indexes moved. A stem is moved only when all three old files exist and
// none of the new ones does; older generations without a text file are left
// alone. Idempotent.
func (p *Paths) Migrate(stems []string) (int, error) {
	count := 0
	for _, stem := range stems {
		keys, payload, text := p.Artifacts(stem)
		moves := [][2]string{
			{filepath.Join(p.DataDir, stem+keysSuffix), keys},
			{filepath.Join(p.DataDir, stem+payloadSuffix), payload},
			{filepath.Join(p.DataDir, stem+textSuffix), text},
		}
		if !movable(moves) {
			continue
		}
		// Text first, keys last: a half-finished migration leaves the new
		// location without keys, which Open reports as missing.
		for _, i := range []int{2, 1, 0} {
			if err := os.Rename(moves[i][0], moves[i][1]); err != nil {
				return count, err
			}
		}
		count++
	}
	return count, nil
}

func movable(moves [][2]string) bool {
	for _, m := range moves {
		// Skip if source doesn't exist.
		if _, err := os.Stat(m[0]); err != nil {
			return false
		}
		// Don't overwrite existing destination.
		if _, err := os.Stat(m[1]); err == nil {
			return false
		}
	}
	return true
}
