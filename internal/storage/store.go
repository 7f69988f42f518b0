// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Well-known document keys. The main document is mirrored under the recovery
// key on every successful save; the restore point is written only before
// explicitly destructive actions.
const (
	KeyMain         = "state"
	KeyRecovery     = "state.recovery"
	KeyRestorePoint = "state.restore"
	keyMeta         = "meta"
)

// MaxQuarantine bounds how many corrupt payloads are retained for diagnosis.
const MaxQuarantine = 8

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("storage: key not found")

// QuarantineEntry is one retained corrupt payload.
type QuarantineEntry struct {
	ID  string
	At  time.Time
	Raw []byte
}

// Meta is the small metadata record kept next to the documents.
type Meta struct {
	Schema         int       `json:"schema"`
	LastSavedAt    time.Time `json:"lastSavedAt,omitzero"`
	RestorePointAt time.Time `json:"restorePointAt,omitzero"`
}

// Store is the local key-value document store. This abstraction allows
// swapping backends (SQLite, plain files, etc.) without changing the service
// layer.
type Store interface {
	// Read returns the payload under key, or ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores the payload under key, replacing any previous value.
	Write(ctx context.Context, key string, data []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Quarantine retains a corrupt payload for inspection, evicting the
	// oldest entries beyond MaxQuarantine.
	Quarantine(ctx context.Context, raw []byte) error

	// Quarantined lists retained corrupt payloads, newest first.
	Quarantined(ctx context.Context) ([]QuarantineEntry, error)

	// Close releases any resources held by the store.
	Close() error
}

// LoadMeta reads the metadata record, returning a zero Meta when absent.
func LoadMeta(ctx context.Context, s Store) (Meta, error) {
	raw, err := s.Read(ctx, keyMeta)
	if errors.Is(err, ErrNotFound) {
		return Meta{}, nil
	}
	if err != nil {
		return Meta{}, err
	}
	var m Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		// A broken meta record is not worth failing a load over.
		return Meta{}, nil
	}
	return m, nil
}

// SaveMeta writes the metadata record.
func SaveMeta(ctx context.Context, s Store, m Meta) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.Write(ctx, keyMeta, raw)
}
