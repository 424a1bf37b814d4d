package dynamicstore

import (
	"encoding/binary"

	"github.com/dynamicstore/dynamicstore/internal/layout"
	"github.com/dynamicstore/dynamicstore/internal/resize"
	"github.com/dynamicstore/dynamicstore/internal/tree"
)

// CreateArray allocates a handle for a new, empty array.
func (e *engine) CreateArray() (ArrayIndex, error) {
	idx, err := e.table.AllocateIndex()
	if err != nil {
		return ArrayIndex{}, err
	}
	e.logger.Debug("created array", Field{"index", idx.Value})
	return idx, nil
}

// DestroyArray frees idx's storage and returns its handle to the free
// list.
func (e *engine) DestroyArray(idx ArrayIndex) error {
	if !e.table.IsIndexValid(idx) {
		return ErrInvalidIndex
	}

	entry := e.table.GetIndexEntry(idx)
	entry = resize.ResizeIndexEntry(e.alloc, entry, 0)
	e.table.SetIndexEntry(idx, entry)
	e.table.DeallocateIndex(idx)

	e.logger.Debug("destroyed array", Field{"index", idx.Value})
	return nil
}

// GetArraySize returns idx's current size in bytes.
func (e *engine) GetArraySize(idx ArrayIndex) (uint64, error) {
	if !e.table.IsIndexValid(idx) {
		return 0, ErrInvalidIndex
	}
	return e.table.GetIndexEntry(idx).ArraySize, nil
}

// SetArraySize grows or shrinks idx's array to newSize bytes.
func (e *engine) SetArraySize(idx ArrayIndex, newSize uint64) error {
	if !e.table.IsIndexValid(idx) {
		return ErrInvalidIndex
	}

	entry := e.table.GetIndexEntry(idx)
	entry = resize.ResizeIndexEntry(e.alloc, entry, newSize)
	e.table.SetIndexEntry(idx, entry)
	return nil
}

// ReadArray copies len(buf) bytes starting at offset into buf.
func (e *engine) ReadArray(idx ArrayIndex, offset uint64, buf []byte) error {
	if !e.table.IsIndexValid(idx) {
		return ErrInvalidIndex
	}
	entry := e.table.GetIndexEntry(idx)
	if offset+uint64(len(buf)) > entry.ArraySize {
		return ErrOutOfRange
	}
	if len(buf) == 0 {
		return nil
	}

	switch entry.BlockType() {
	case layout.L8:
		var raw [8]byte
		binary.LittleEndian.PutUint64(raw[:], entry.Data())
		copy(buf, raw[offset:offset+uint64(len(buf))])

	case layout.L4096Plus:
		e.copyTreeBytes(entry, offset, buf, false)

	default:
		copy(buf, e.file.GetBytes(entry.Offset()+offset, uint64(len(buf))))
	}
	return nil
}

// WriteArray copies data into idx's array starting at offset.
func (e *engine) WriteArray(idx ArrayIndex, offset uint64, data []byte) error {
	if !e.table.IsIndexValid(idx) {
		return ErrInvalidIndex
	}
	entry := e.table.GetIndexEntry(idx)
	if offset+uint64(len(data)) > entry.ArraySize {
		return ErrOutOfRange
	}
	if len(data) == 0 {
		return nil
	}

	switch entry.BlockType() {
	case layout.L8:
		var raw [8]byte
		binary.LittleEndian.PutUint64(raw[:], entry.Data())
		copy(raw[offset:offset+uint64(len(data))], data)
		entry.SetData(binary.LittleEndian.Uint64(raw[:]))
		e.table.SetIndexEntry(idx, entry)

	case layout.L4096Plus:
		e.copyTreeBytes(entry, offset, data, true)

	default:
		e.file.SetBytes(entry.Offset()+offset, data)
	}
	return nil
}

// copyTreeBytes copies buf to or from the tree-backed array described by
// entry, starting at offset, crossing cluster boundaries as needed. When
// write is true buf is copied into the array; otherwise the array is
// copied into buf.
func (e *engine) copyTreeBytes(entry layout.IndexEntry, offset uint64, buf []byte, write bool) {
	it := tree.New(e.alloc, entry)

	remaining := buf
	pos := offset
	for len(remaining) > 0 {
		it.SeekToCluster(pos)
		clusterStart := pos - pos%layout.ClusterSize
		inCluster := pos - clusterStart
		n := layout.ClusterSize - inCluster
		if uint64(len(remaining)) < n {
			n = uint64(len(remaining))
		}

		cluster := it.GetCurrentClusterAddress()
		if write {
			copy(cluster[inCluster:inCluster+n], remaining[:n])
		} else {
			copy(remaining[:n], cluster[inCluster:inCluster+n])
		}

		remaining = remaining[n:]
		pos += n
	}
}
