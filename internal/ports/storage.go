// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

import "time"

// ManifestStore persists one build manifest per dictionary.
// The backing store (bbolt) is shared by every dictionary of a data dir.
// Concurrent reads are safe; writes are serialized by the adapter.
//
// Crash safety: SaveManifest must be transactional. A crash mid-write must
// not corrupt previously committed manifests.
type ManifestStore interface {
	// SaveManifest stores m under m.Name, replacing any prior manifest.
	SaveManifest(m *Manifest) error

	// LoadManifest returns the manifest of a dictionary.
	// Returns nil, nil if the dictionary was never built.
	LoadManifest(name string) (*Manifest, error)

	// ListManifests returns every stored manifest ordered by name.
	ListManifests() ([]*Manifest, error)

	// DeleteManifest removes a dictionary's manifest.
	// Idempotent: deleting a nonexistent manifest is not an error.
	DeleteManifest(name string) error
}

// Manifest records how and from what a dictionary's index was built.
// The index files stay the source of truth; a manifest only describes them.
type Manifest struct {
	Name          string    `json:"name"`
	BuildID       string    `json:"build_id"` // fresh UUID per build
	Format        string    `json:"format"`
	KeyWidth      int       `json:"key_width"`
	Entries       int       `json:"entries"` // key/payload entries after dedup
	Segments      int       `json:"segments"`
	Lines         int       `json:"lines"`
	CorpusBytes   int       `json:"corpus_bytes"`
	Source        string    `json:"source"`
	SourceSize    int64     `json:"source_size"`
	SourceModTime time.Time `json:"source_mod_time"`
	BuiltAt       time.Time `json:"built_at"`
	DurationMs    int64     `json:"duration_ms"`
}
