package state

import (
	"errors"
	"fmt"

	"tokenflow/storage/trie"
)

// SchemaVersion is the layout of the keys written by this package. Bump it on
// any incompatible change to stored records.
const SchemaVersion uint32 = 1

var schemaVersionKey = []byte("tokenflow/schema")

var ErrSchemaMismatch = errors.New("state: schema version mismatch")

// SchemaMismatchError reports the stored and supported layouts.
type SchemaMismatchError struct {
	Stored    uint32
	Supported uint32
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%v: stored %d, supported %d", ErrSchemaMismatch, e.Stored, e.Supported)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

func (m *Manager) SetSchemaVersion(version uint32) error {
	return m.KVPut(schemaVersionKey, version)
}

// SchemaVersion returns zero when no version was ever written.
func (m *Manager) SchemaVersion() (uint32, error) {
	var version uint32
	if _, err := m.KVGet(schemaVersionKey, &version); err != nil {
		return 0, fmt.Errorf("state: read schema version: %w", err)
	}
	return version, nil
}

// CheckSchema fails with a *SchemaMismatchError unless the trie was written
// with SchemaVersion. allowMigrate downgrades the mismatch to a no-op.
func CheckSchema(tr *trie.Trie, allowMigrate bool) error {
	stored, err := NewManager(tr).SchemaVersion()
	if err != nil {
		return err
	}
	if stored == SchemaVersion || allowMigrate {
		return nil
	}
	return &SchemaMismatchError{Stored: stored, Supported: SchemaVersion}
}
