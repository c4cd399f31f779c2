// Package localstore persists credentials and the upload manifest in a local
// bbolt database. The remote service has no listing API, so the manifest is
// the only record of what an account has uploaded.
//
// Records are stored as JSON, one slot per scope key. A scope is derived from
// an account's username, keeping every account's state independent.
package localstore

import (
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketCredentials = []byte("credentials")
	bucketManifests   = []byte("manifests")
)

// DefaultScope is the scope used when no username is given.
const DefaultScope = "default"

// Store wraps one bbolt database holding all scoped slots.
type Store struct {
	db *bbolt.DB
}

// OpenStore opens or creates the bbolt database at dbPath. The parent
// directory is created if it does not exist.
func OpenStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, ErrInvalidPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("localstore: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("localstore: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketCredentials, bucketManifests} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("localstore: create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Credentials returns the credential slot for scope. An empty scope selects
// DefaultScope.
func (s *Store) Credentials(scope string) *CredentialStore {
	return &CredentialStore{db: s.db, scope: normalizeScope(scope)}
}

// Manifest returns the upload manifest for scope, capped at capacity entries.
// A non-positive capacity selects DefaultManifestCapacity.
func (s *Store) Manifest(scope string, capacity int) *ManifestStore {
	if capacity <= 0 {
		capacity = DefaultManifestCapacity
	}
	return &ManifestStore{db: s.db, scope: normalizeScope(scope), capacity: capacity}
}

func normalizeScope(scope string) string {
	if scope == "" {
		return DefaultScope
	}
	return scope
}
