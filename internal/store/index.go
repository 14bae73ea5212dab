package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

// IndexEntry locates one record in the data file.
type IndexEntry struct {
	ID     int64
	Offset int64
	Length int32
}

// Index is the label table plus the id to offset table of a file store.
//
// Binary layout, big-endian:
//
//	{ bool(true) uint16(len) label int64(id) }* bool(false)
//	{ bool(true) int64(id) int64(offset) int32(length) }* bool(false)
//
// Labels are written in label order and entries in id order, so equal
// indexes encode to identical bytes.
type Index struct {
	Labels  map[string]int64
	Entries map[int64]IndexEntry
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		Labels:  make(map[string]int64),
		Entries: make(map[int64]IndexEntry),
	}
}

// MaxID returns the largest id referenced by either table.
func (ix *Index) MaxID() int64 {
	var max int64
	for _, id := range ix.Labels {
		if id > max {
			max = id
		}
	}
	for id := range ix.Entries {
		if id > max {
			max = id
		}
	}
	return max
}

// MarshalBinary encodes the index.
func (ix *Index) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer

	labels := make([]string, 0, len(ix.Labels))
	for l := range ix.Labels {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		if len(l) > math.MaxUint16 {
			return nil, fmt.Errorf("store: label too long (%d bytes)", len(l))
		}
		buf.WriteByte(1)
		binary.Write(&buf, binary.BigEndian, uint16(len(l)))
		buf.WriteString(l)
		binary.Write(&buf, binary.BigEndian, ix.Labels[l])
	}
	buf.WriteByte(0)

	ids := make([]int64, 0, len(ix.Entries))
	for id := range ix.Entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		e := ix.Entries[id]
		buf.WriteByte(1)
		binary.Write(&buf, binary.BigEndian, e.ID)
		binary.Write(&buf, binary.BigEndian, e.Offset)
		binary.Write(&buf, binary.BigEndian, e.Length)
	}
	buf.WriteByte(0)

	return buf.Bytes(), nil
}

// UnmarshalBinary replaces the contents of ix with the decoded index.
func (ix *Index) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	labels := make(map[string]int64)
	entries := make(map[int64]IndexEntry)

	for {
		more, err := readBool(r)
		if err != nil {
			return fmt.Errorf("store: read label flag: %w", err)
		}
		if !more {
			break
		}
		var n uint16
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return fmt.Errorf("store: read label length: %w", err)
		}
		label := make([]byte, n)
		if _, err := io.ReadFull(r, label); err != nil {
			return fmt.Errorf("store: read label: %w", err)
		}
		var id int64
		if err := binary.Read(r, binary.BigEndian, &id); err != nil {
			return fmt.Errorf("store: read label id: %w", err)
		}
		labels[string(label)] = id
	}

	for {
		more, err := readBool(r)
		if err != nil {
			return fmt.Errorf("store: read entry flag: %w", err)
		}
		if !more {
			break
		}
		var e IndexEntry
		if err := binary.Read(r, binary.BigEndian, &e.ID); err != nil {
			return fmt.Errorf("store: read entry id: %w", err)
		}
		if err := binary.Read(r, binary.BigEndian, &e.Offset); err != nil {
			return fmt.Errorf("store: read entry offset: %w", err)
		}
		if err := binary.Read(r, binary.BigEndian, &e.Length); err != nil {
			return fmt.Errorf("store: read entry length: %w", err)
		}
		entries[e.ID] = e
	}

	if r.Len() != 0 {
		return fmt.Errorf("store: %d trailing bytes after index", r.Len())
	}
	ix.Labels = labels
	ix.Entries = entries
	return nil
}

func readBool(r io.ByteReader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, io.ErrUnexpectedEOF
		}
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool byte 0x%02x", b)
	}
}
