package localstore

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/pipenetwork/libpipe-go/auth"
)

// CredentialStore is one scoped slot holding an account's long-lived
// credentials.
type CredentialStore struct {
	db    *bbolt.DB
	scope string
}

// Save persists the account record, replacing any previous one in the slot.
func (c *CredentialStore) Save(account auth.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("localstore: marshal account: %w", err)
	}
	err = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCredentials).Put([]byte(c.scope), data)
	})
	if err != nil {
		return fmt.Errorf("%w: save credentials: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Load returns the stored account, or nil if the slot is empty. A slot
// holding malformed or incomplete data is cleared and reported as empty
// rather than raising: stale credentials are worthless, so corruption is
// treated the same as absence.
func (c *CredentialStore) Load() (*auth.Account, error) {
	var raw []byte
	err := c.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketCredentials).Get([]byte(c.scope)); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if err != nil || raw == nil {
		return nil, nil
	}

	var account auth.Account
	if err := json.Unmarshal(raw, &account); err != nil {
		_ = c.Clear()
		return nil, nil
	}
	// A record is usable if it can drive at least one authorization path.
	// The legacy identity fields stay optional: a login that could not
	// resolve them still yields a working token-based account.
	if err := account.Validate(); err != nil {
		_ = c.Clear()
		return nil, nil
	}
	return &account, nil
}

// Exists reports whether the slot holds any record, without validating it.
func (c *CredentialStore) Exists() (bool, error) {
	var found bool
	err := c.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketCredentials).Get([]byte(c.scope)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: check credentials: %w", ErrStoreUnavailable, err)
	}
	return found, nil
}

// Clear removes the slot's record. Clearing an empty slot is not an error.
func (c *CredentialStore) Clear() error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCredentials).Delete([]byte(c.scope))
	})
	if err != nil {
		return fmt.Errorf("%w: clear credentials: %w", ErrStoreUnavailable, err)
	}
	return nil
}
