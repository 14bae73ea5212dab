// Package store provides the suspension callbacks that persist neurons
// outside of memory: an in-memory map, an append-only file store with a
// binary index, and a SQLite-backed store.
package store

import (
	"errors"
	"fmt"

	"spreadnet/internal/config"
)

// ErrMissingEntity is returned when an id or label is not present in the
// store. It signals a stale reference or a corrupted index.
var ErrMissingEntity = errors.New("store: missing entity")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// SuspensionCallback is the storage boundary used by the model to suspend
// and retrieve neurons. Store and Remove are idempotent.
type SuspensionCallback interface {
	CreateID() (int64, error)
	Store(id int64, label string, customData, data []byte) error
	Retrieve(id int64) ([]byte, error)
	Remove(id int64) error

	IDByLabel(label string) (int64, bool)
	PutLabel(label string, id int64) error
	RemoveLabel(label string) error

	LoadIndex() error
	StoreIndex() error

	Close() error
}

// Lister is implemented by stores that can enumerate their label table.
type Lister interface {
	Labels() (map[string]int64, error)
}

// Open creates the store configured by cfg.
func Open(cfg config.StorageConfig) (SuspensionCallback, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile:
		return OpenFileStore(cfg.Path)
	case config.BackendSQLite:
		return OpenSQLStore(cfg.Path, cfg.Driver)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}

func missing(id int64) error {
	return fmt.Errorf("%w: id %d", ErrMissingEntity, id)
}
