// Package bbolt implements the ports.ManifestStore interface using bbolt (embedded B+ tree).
// A single "manifests" bucket maps dictionary names to JSON-serialized manifests.
// Writes are transactional: a crash mid-write cannot corrupt previously committed data.
package bbolt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/corey/eiji/internal/ports"
)

var bucketManifests = []byte("manifests")

// Store implements ports.ManifestStore backed by bbolt.
type Store struct {
	db *bolt.DB
}

var _ ports.ManifestStore = (*Store)(nil)

// NewStore opens (or creates) a bbolt database at the given path.
// Another process holding the database makes the open fail after one second.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketManifests)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("bbolt init: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// SaveManifest stores m under its name, replacing any prior manifest.
func (s *Store) SaveManifest(m *ports.Manifest) error {
	if m == nil {
		return errors.New("nil manifest")
	}
	if m.Name == "" {
		return errors.New("manifest has no name")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketManifests).Put([]byte(m.Name), data)
	})
}

// LoadManifest returns the manifest stored under name.
// Returns nil, nil if none exists.
func (s *Store) LoadManifest(name string) (*ports.Manifest, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := tx.Bucket(bucketManifests).Get([]byte(name)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var m ports.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest %s: %w", name, err)
	}
	return &m, nil
}

// ListManifests returns every manifest in key (name) order.
func (s *Store) ListManifests() ([]*ports.Manifest, error) {
	var out []*ports.Manifest
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketManifests).ForEach(func(k, v []byte) error {
			var m ports.Manifest
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("unmarshal manifest %s: %w", k, err)
			}
			out = append(out, &m)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteManifest removes the manifest stored under name.
// Idempotent: deleting a nonexistent manifest is not an error.
func (s *Store) DeleteManifest(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketManifests).Delete([]byte(name))
	})
}
