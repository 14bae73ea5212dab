package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spreadnet/internal/config"
)

// exercise runs the contract every backend must satisfy.
func exercise(t *testing.T, s SuspensionCallback) {
	t.Helper()

	id, err := s.CreateID()
	require.NoError(t, err)
	id2, err := s.CreateID()
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)

	_, err = s.Retrieve(id)
	assert.True(t, errors.Is(err, ErrMissingEntity), "got %v", err)

	require.NoError(t, s.Store(id, "token:the", []byte("token"), []byte(`{"bias":1}`)))
	require.NoError(t, s.Store(id, "token:the", []byte("token"), []byte(`{"bias":2}`)))
	got, err := s.Retrieve(id)
	require.NoError(t, err)
	assert.Equal(t, `{"bias":2}`, string(got))

	require.NoError(t, s.PutLabel("token:the", id))
	lid, ok := s.IDByLabel("token:the")
	assert.True(t, ok)
	assert.Equal(t, id, lid)

	_, ok = s.IDByLabel("token:missing")
	assert.False(t, ok)

	require.NoError(t, s.RemoveLabel("token:the"))
	require.NoError(t, s.RemoveLabel("token:the"))
	_, ok = s.IDByLabel("token:the")
	assert.False(t, ok)

	require.NoError(t, s.Remove(id))
	require.NoError(t, s.Remove(id))
	_, err = s.Retrieve(id)
	assert.ErrorIs(t, err, ErrMissingEntity)

	require.NoError(t, s.StoreIndex())
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exercise(t, s)
}

func TestFileStore(t *testing.T) {
	s, err := OpenFileStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()
	exercise(t, s)
}

func TestSQLStore(t *testing.T) {
	for _, driver := range []string{config.DriverModernc, config.DriverCGO} {
		t.Run(driver, func(t *testing.T) {
			s, err := OpenSQLStore(filepath.Join(t.TempDir(), "model.db"), driver)
			if err != nil && driver == config.DriverCGO {
				t.Skipf("cgo sqlite driver unavailable: %v", err)
			}
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, driver, s.Driver())
			exercise(t, s)

			stats, err := s.GetStats()
			require.NoError(t, err)
			assert.Equal(t, int64(0), stats["entities"])
		})
	}
}

func TestSQLStore_StoredIDsAdvanceSequence(t *testing.T) {
	s, err := OpenSQLStore(filepath.Join(t.TempDir(), "model.db"), config.DriverModernc)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Store(40, "n", nil, []byte("x")))
	id, err := s.CreateID()
	require.NoError(t, err)
	assert.Greater(t, id, int64(40))
}

func TestIndex_RoundTripIsByteExact(t *testing.T) {
	ix := NewIndex()
	ix.Labels["token:a"] = 1
	ix.Labels["binding:a"] = 2
	ix.Labels["__model__"] = 9
	ix.Entries[1] = IndexEntry{ID: 1, Offset: 0, Length: 31}
	ix.Entries[2] = IndexEntry{ID: 2, Offset: 31, Length: 40}
	ix.Entries[9] = IndexEntry{ID: 9, Offset: 71, Length: 512}

	raw, err := ix.MarshalBinary()
	require.NoError(t, err)

	back := NewIndex()
	require.NoError(t, back.UnmarshalBinary(raw))
	if diff := cmp.Diff(ix, back); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}

	raw2, err := back.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, raw, raw2)
	assert.Equal(t, int64(9), back.MaxID())
}

func TestIndex_Layout(t *testing.T) {
	ix := NewIndex()
	ix.Labels["ab"] = 7
	ix.Entries[7] = IndexEntry{ID: 7, Offset: 3, Length: 5}

	raw, err := ix.MarshalBinary()
	require.NoError(t, err)

	want := []byte{
		1, 0, 2, 'a', 'b', 0, 0, 0, 0, 0, 0, 0, 7,
		0,
		1, 0, 0, 0, 0, 0, 0, 0, 7, 0, 0, 0, 0, 0, 0, 0, 3, 0, 0, 0, 5,
		0,
	}
	assert.Equal(t, want, raw)
}

func TestIndex_EmptyAndCorrupt(t *testing.T) {
	raw, err := NewIndex().MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0}, raw)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"missing entry terminator", []byte{0}},
		{"bad flag", []byte{2, 0}},
		{"truncated label", []byte{1, 0, 5, 'a'}},
		{"trailing bytes", []byte{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, NewIndex().UnmarshalBinary(tt.data))
		})
	}
}

func TestFileStore_ReopenRestoresIndex(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenFileStore(dir)
	require.NoError(t, err)
	id, err := s.CreateID()
	require.NoError(t, err)
	require.NoError(t, s.Store(id, "pattern:x", []byte("pattern"), []byte("payload")))
	require.NoError(t, s.PutLabel("pattern:x", id))
	require.NoError(t, s.StoreIndex())
	require.NoError(t, s.Close())

	_, err = s.Retrieve(id)
	assert.ErrorIs(t, err, ErrClosed)

	reopened, err := OpenFileStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Retrieve(id)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	lid, ok := reopened.IDByLabel("pattern:x")
	require.True(t, ok)
	assert.Equal(t, id, lid)

	next, err := reopened.CreateID()
	require.NoError(t, err)
	assert.Greater(t, next, id)

	ix, err := ReadIndexFile(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"pattern:x": id}, ix.Labels)
}

func TestFileStore_UnsavedIndexIsLost(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Store(1, "a", nil, []byte("a")))
	require.NoError(t, s.Close())

	reopened, err := OpenFileStore(dir)
	require.NoError(t, err)
	defer reopened.Close()
	_, err = reopened.Retrieve(1)
	assert.ErrorIs(t, err, ErrMissingEntity)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		want    interface{}
		wantErr bool
	}{
		{"memory", config.StorageConfig{Backend: config.BackendMemory}, &MemoryStore{}, false},
		{"file", config.StorageConfig{Backend: config.BackendFile, Path: filepath.Join(dir, "fs")}, &FileStore{}, false},
		{"sqlite", config.StorageConfig{Backend: config.BackendSQLite, Driver: config.DriverModernc, Path: filepath.Join(dir, "m.db")}, &SQLStore{}, false},
		{"bad backend", config.StorageConfig{Backend: "tape"}, nil, true},
		{"file without path", config.StorageConfig{Backend: config.BackendFile}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()
			assert.IsType(t, tt.want, s)
		})
	}
}

func TestLister(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.PutLabel("x", 3))
	var l Lister = s
	labels, err := l.Labels()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"x": 3}, labels)
}
