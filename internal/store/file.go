package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"spreadnet/internal/logging"
)

const (
	indexFileName = "index.dat"
	dataFileName  = "model.dat"
)

// FileStore appends records to a data file and keeps their offsets in an
// Index that is persisted separately by StoreIndex.
type FileStore struct {
	mu     sync.Mutex
	dir    string
	data   *os.File
	size   int64
	index  *Index
	nextID int64
	closed bool
}

// OpenFileStore opens or creates a file store in dir and loads its index
// if one exists.
func OpenFileStore(dir string) (*FileStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "OpenFileStore")
	defer timer.Stop()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, dataFileName), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("store: open data file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("store: stat data file: %w", err)
	}

	s := &FileStore{dir: dir, data: f, size: info.Size(), index: NewIndex()}
	if err := s.LoadIndex(); err != nil {
		f.Close()
		return nil, err
	}
	logging.Store("file store opened at %s (%d entries, %d labels)", dir, len(s.index.Entries), len(s.index.Labels))
	return s, nil
}

// IndexPath returns the location of the index file for a store directory.
func IndexPath(dir string) string {
	return filepath.Join(dir, indexFileName)
}

// ReadIndexFile decodes the index of the store in dir without opening the
// data file.
func ReadIndexFile(dir string) (*Index, error) {
	raw, err := os.ReadFile(IndexPath(dir))
	if err != nil {
		return nil, fmt.Errorf("store: read index: %w", err)
	}
	ix := NewIndex()
	if err := ix.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return ix, nil
}

func (s *FileStore) CreateID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	s.nextID++
	return s.nextID, nil
}

// Store appends a new record for id. An earlier record for the same id stays
// in the data file but is no longer referenced by the index.
func (s *FileStore) Store(id int64, label string, customData, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	rec, err := encodeRecord(label, customData, data)
	if err != nil {
		return err
	}
	if _, err := s.data.WriteAt(rec, s.size); err != nil {
		return fmt.Errorf("store: write data: %w", err)
	}
	s.index.Entries[id] = IndexEntry{ID: id, Offset: s.size, Length: int32(len(rec))}
	s.size += int64(len(rec))
	if id > s.nextID {
		s.nextID = id
	}
	logging.StoreDebug("stored id=%d label=%q bytes=%d", id, label, len(data))
	return nil
}

func (s *FileStore) Retrieve(id int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	e, ok := s.index.Entries[id]
	if !ok {
		return nil, missing(id)
	}
	rec := make([]byte, e.Length)
	if _, err := s.data.ReadAt(rec, e.Offset); err != nil {
		return nil, fmt.Errorf("store: read data for id %d: %w", id, err)
	}
	_, _, data, err := decodeRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("store: decode record %d: %w", id, err)
	}
	return data, nil
}

func (s *FileStore) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.index.Entries, id)
	return nil
}

func (s *FileStore) IDByLabel(label string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.index.Labels[label]
	return id, ok
}

func (s *FileStore) PutLabel(label string, id int64) error {
	if len(label) > math.MaxUint16 {
		return fmt.Errorf("store: label too long (%d bytes)", len(label))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index.Labels[label] = id
	return nil
}

func (s *FileStore) RemoveLabel(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.index.Labels, label)
	return nil
}

// Labels returns a copy of the label table.
func (s *FileStore) Labels() (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.index.Labels))
	for k, v := range s.index.Labels {
		out[k] = v
	}
	return out, nil
}

// LoadIndex replaces the in-memory index with the one on disk. A missing
// index file leaves an empty index.
func (s *FileStore) LoadIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(IndexPath(s.dir))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: read index: %w", err)
	}
	ix := NewIndex()
	if err := ix.UnmarshalBinary(raw); err != nil {
		return err
	}
	s.index = ix
	if max := ix.MaxID(); max > s.nextID {
		s.nextID = max
	}
	return nil
}

// StoreIndex writes the index next to the data file, replacing the previous
// one atomically.
func (s *FileStore) StoreIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	raw, err := s.index.MarshalBinary()
	if err != nil {
		return err
	}
	if err := s.data.Sync(); err != nil {
		return fmt.Errorf("store: sync data: %w", err)
	}
	tmp := IndexPath(s.dir) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("store: write index: %w", err)
	}
	if err := os.Rename(tmp, IndexPath(s.dir)); err != nil {
		return fmt.Errorf("store: replace index: %w", err)
	}
	logging.StoreDebug("index stored: %d entries, %d labels", len(s.index.Entries), len(s.index.Labels))
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	logging.Store("closing file store at %s", s.dir)
	return s.data.Close()
}

// A record is: uint16 label length, label, uint32 custom length, custom
// data, payload.
func encodeRecord(label string, customData, data []byte) ([]byte, error) {
	if len(label) > math.MaxUint16 {
		return nil, fmt.Errorf("store: label too long (%d bytes)", len(label))
	}
	n := 2 + len(label) + 4 + len(customData) + len(data)
	if n > math.MaxInt32 {
		return nil, fmt.Errorf("store: record too large (%d bytes)", n)
	}
	rec := make([]byte, 0, n)
	rec = binary.BigEndian.AppendUint16(rec, uint16(len(label)))
	rec = append(rec, label...)
	rec = binary.BigEndian.AppendUint32(rec, uint32(len(customData)))
	rec = append(rec, customData...)
	rec = append(rec, data...)
	return rec, nil
}

func decodeRecord(rec []byte) (label string, customData, data []byte, err error) {
	if len(rec) < 2 {
		return "", nil, nil, errors.New("short record")
	}
	ln := int(binary.BigEndian.Uint16(rec))
	rec = rec[2:]
	if len(rec) < ln+4 {
		return "", nil, nil, errors.New("short record label")
	}
	label = string(rec[:ln])
	rec = rec[ln:]
	cn := int(binary.BigEndian.Uint32(rec))
	rec = rec[4:]
	if len(rec) < cn {
		return "", nil, nil, errors.New("short record custom data")
	}
	return label, rec[:cn], rec[cn:], nil
}
