package store

import "sync"

type record struct {
	label      string
	customData []byte
	data       []byte
}

// MemoryStore keeps suspended entities in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]record
	labels  map[string]int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[int64]record),
		labels:  make(map[string]int64),
	}
}

func (s *MemoryStore) CreateID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID, nil
}

func (s *MemoryStore) Store(id int64, label string, customData, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = record{
		label:      label,
		customData: append([]byte(nil), customData...),
		data:       append([]byte(nil), data...),
	}
	if id > s.nextID {
		s.nextID = id
	}
	return nil
}

func (s *MemoryStore) Retrieve(id int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, missing(id)
	}
	return append([]byte(nil), r.data...), nil
}

func (s *MemoryStore) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) IDByLabel(label string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.labels[label]
	return id, ok
}

func (s *MemoryStore) PutLabel(label string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels[label] = id
	return nil
}

func (s *MemoryStore) RemoveLabel(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.labels, label)
	return nil
}

// Labels returns a copy of the label table.
func (s *MemoryStore) Labels() (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.labels))
	for k, v := range s.labels {
		out[k] = v
	}
	return out, nil
}

// LoadIndex is a no-op: the memory store has nothing to load.
func (s *MemoryStore) LoadIndex() error { return nil }

// StoreIndex is a no-op.
func (s *MemoryStore) StoreIndex() error { return nil }

func (s *MemoryStore) Close() error { return nil }
