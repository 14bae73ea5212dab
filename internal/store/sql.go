package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"spreadnet/internal/config"
	"spreadnet/internal/logging"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// SQLStore keeps suspended entities in a SQLite database. The driver is
// either "sqlite3" (mattn/go-sqlite3, cgo) or "sqlite" (modernc, pure Go).
type SQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	path   string
	driver string
}

// OpenSQLStore opens the database at path, creating the schema if needed.
func OpenSQLStore(path, driver string) (*SQLStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "OpenSQLStore")
	defer timer.Stop()

	if driver == "" {
		driver = config.DriverModernc
	}
	logging.Store("initializing SQLStore at path: %s (driver %s)", path, driver)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.Get(logging.CategoryStore).Error("failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &SQLStore{db: db, path: path, driver: driver}
	if err := s.initialize(); err != nil {
		logging.Get(logging.CategoryStore).Error("failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS id_sequence (
			id INTEGER PRIMARY KEY AUTOINCREMENT
		)`,
		`CREATE TABLE IF NOT EXISTS entities (
			id INTEGER PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			custom_data BLOB,
			data BLOB NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS labels (
			label TEXT PRIMARY KEY,
			id INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_labels_id ON labels(id)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Driver returns the database/sql driver name in use.
func (s *SQLStore) Driver() string { return s.driver }

func (s *SQLStore) CreateID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec("INSERT INTO id_sequence DEFAULT VALUES")
	if err != nil {
		return 0, fmt.Errorf("store: create id: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLStore) Store(id int64, label string, customData, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.Exec(`
		INSERT INTO entities (id, label, custom_data, data) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			custom_data = excluded.custom_data,
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP`,
		id, label, customData, data)
	if err != nil {
		return fmt.Errorf("store: write entity %d: %w", id, err)
	}
	// Keep the sequence ahead of ids assigned elsewhere.
	if _, err := s.db.Exec("INSERT OR IGNORE INTO id_sequence (id) VALUES (?)", id); err != nil {
		return fmt.Errorf("store: advance id sequence: %w", err)
	}
	logging.StoreDebug("stored id=%d label=%q bytes=%d", id, label, len(data))
	return nil
}

func (s *SQLStore) Retrieve(id int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var data []byte
	err := s.db.QueryRow("SELECT data FROM entities WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, missing(id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: read entity %d: %w", id, err)
	}
	return data, nil
}

func (s *SQLStore) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM entities WHERE id = ?", id); err != nil {
		return fmt.Errorf("store: remove entity %d: %w", id, err)
	}
	return nil
}

func (s *SQLStore) IDByLabel(label string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var id int64
	err := s.db.QueryRow("SELECT id FROM labels WHERE label = ?", label).Scan(&id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logging.StoreWarn("label lookup %q failed: %v", label, err)
		}
		return 0, false
	}
	return id, true
}

func (s *SQLStore) PutLabel(label string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO labels (label, id) VALUES (?, ?)
		ON CONFLICT(label) DO UPDATE SET id = excluded.id`, label, id)
	if err != nil {
		return fmt.Errorf("store: put label %q: %w", label, err)
	}
	return nil
}

func (s *SQLStore) RemoveLabel(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM labels WHERE label = ?", label); err != nil {
		return fmt.Errorf("store: remove label %q: %w", label, err)
	}
	return nil
}

// Labels returns the label table.
func (s *SQLStore) Labels() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query("SELECT label, id FROM labels")
	if err != nil {
		return nil, fmt.Errorf("store: list labels: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var label string
		var id int64
		if err := rows.Scan(&label, &id); err != nil {
			return nil, fmt.Errorf("store: scan label: %w", err)
		}
		out[label] = id
	}
	return out, rows.Err()
}

// LoadIndex is a no-op: the tables are the index.
func (s *SQLStore) LoadIndex() error { return nil }

// StoreIndex checkpoints the write-ahead log.
func (s *SQLStore) StoreIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		logging.StoreDebug("wal checkpoint failed: %v", err)
	}
	return nil
}

// GetStats returns row counts per table.
func (s *SQLStore) GetStats() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	for _, table := range []string{"entities", "labels"} {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return nil, fmt.Errorf("store: count %s: %w", table, err)
		}
		stats[table] = count
	}
	return stats, nil
}

func (s *SQLStore) Close() error {
	logging.Store("closing SQLStore database connection")
	return s.db.Close()
}
