package localstore

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// DefaultManifestCapacity is the maximum number of manifest entries kept per
// scope when no explicit capacity is configured.
const DefaultManifestCapacity = 1000

// FileRecord is one locally known upload. ID is the content identifier of
// the payload bytes; FileName is the upload-time name and the only key the
// remote service accepts for retrieval. The two are not derivable from each
// other.
type FileRecord struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	Size       int64     `json:"size"`
	Hash       string    `json:"hash"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ManifestStore is one scope's ordered list of known uploads,
// most-recent-first, capped at a fixed capacity. Entries are unique by
// content identifier.
type ManifestStore struct {
	db       *bbolt.DB
	scope    string
	capacity int
}

// Capacity returns the configured maximum number of entries.
func (m *ManifestStore) Capacity() int { return m.capacity }

// Upsert inserts or replaces a record by its identifier. A known identifier
// is replaced in place, keeping its position; a new one is prepended and the
// tail trimmed to capacity. The whole read-modify-write runs in one write
// transaction, so same-scope writers serialize.
func (m *ManifestStore) Upsert(rec FileRecord) error {
	if rec.ID == "" {
		return ErrMissingIdentifier
	}
	err := m.db.Update(func(tx *bbolt.Tx) error {
		list, err := readManifest(tx, m.scope)
		if err != nil {
			return err
		}
		replaced := false
		for i := range list {
			if list[i].ID == rec.ID {
				list[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			list = append([]FileRecord{rec}, list...)
			if len(list) > m.capacity {
				list = list[:m.capacity]
			}
		}
		return writeManifest(tx, m.scope, list)
	})
	if err != nil {
		return fmt.Errorf("%w: upsert manifest entry: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// List returns all records, most-recent-first. An empty manifest yields an
// empty slice.
func (m *ManifestStore) List() ([]FileRecord, error) {
	var list []FileRecord
	err := m.db.View(func(tx *bbolt.Tx) error {
		var err error
		list, err = readManifest(tx, m.scope)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("localstore: list manifest: %w", err)
	}
	return list, nil
}

// Get returns the record for the given content identifier.
// Returns ErrNotFound if no entry matches.
func (m *ManifestStore) Get(id string) (*FileRecord, error) {
	list, err := m.List()
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Remove deletes the record for the given content identifier. Removing an
// unknown identifier is not an error.
func (m *ManifestStore) Remove(id string) error {
	err := m.db.Update(func(tx *bbolt.Tx) error {
		list, err := readManifest(tx, m.scope)
		if err != nil {
			return err
		}
		for i := range list {
			if list[i].ID == id {
				list = append(list[:i], list[i+1:]...)
				return writeManifest(tx, m.scope, list)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: remove manifest entry: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Clear removes every record in the scope.
func (m *ManifestStore) Clear() error {
	err := m.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketManifests).Delete([]byte(m.scope))
	})
	if err != nil {
		return fmt.Errorf("%w: clear manifest: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Count returns the number of records in the scope.
func (m *ManifestStore) Count() (int, error) {
	list, err := m.List()
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// readManifest decodes the scope's record list. A missing or malformed slot
// reads as empty; the next write replaces it wholesale.
func readManifest(tx *bbolt.Tx, scope string) ([]FileRecord, error) {
	raw := tx.Bucket(bucketManifests).Get([]byte(scope))
	if raw == nil {
		return []FileRecord{}, nil
	}
	var list []FileRecord
	if err := json.Unmarshal(raw, &list); err != nil {
		return []FileRecord{}, nil
	}
	return list, nil
}

func writeManifest(tx *bbolt.Tx, scope string, list []FileRecord) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return tx.Bucket(bucketManifests).Put([]byte(scope), data)
}
