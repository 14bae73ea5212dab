package config

import "fmt"

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// SQL drivers for the sqlite backend.
const (
	DriverCGO     = "sqlite3" // github.com/mattn/go-sqlite3
	DriverModernc = "sqlite"  // modernc.org/sqlite
)

// StorageConfig configures where suspended neurons are kept.
type StorageConfig struct {
	Backend string `yaml:"backend" json:"backend"` // memory, file, sqlite
	Driver  string `yaml:"driver" json:"driver"`   // sqlite3 (cgo) or sqlite (pure Go)
	Path    string `yaml:"path" json:"path"`       // directory for file, database file for sqlite
}

// Validate checks the storage section.
func (s StorageConfig) Validate() error {
	switch s.Backend {
	case BackendMemory:
		return nil
	case BackendFile:
	case BackendSQLite:
		if s.Driver != DriverCGO && s.Driver != DriverModernc {
			return fmt.Errorf("invalid storage driver: %s (valid: %s, %s)", s.Driver, DriverCGO, DriverModernc)
		}
	default:
		return fmt.Errorf("invalid storage backend: %s", s.Backend)
	}
	if s.Path == "" {
		return fmt.Errorf("storage.path required for backend %s", s.Backend)
	}
	return nil
}
