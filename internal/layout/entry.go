package layout

import "github.com/dynamicstore/dynamicstore/internal/codec"

// ArrayIndex is the handle callers use to address an array. A zero value
// is valid only as the tail sentinel of a freelist; real handles start at
// 1.
type ArrayIndex struct {
	Value uint64
}

// IndexEntry is the 16-byte per-handle descriptor kept in the index table
// (and, for the table's own entry, in the static header). Which meaning
// Aux carries depends on ArraySize:
//
//   - ArraySize <= 8: Aux holds the payload inline (Data).
//   - 8 < ArraySize, class < L4096Plus: Aux is the file offset of the
//     backing block (Offset).
//   - ArraySize > ClusterSize: Aux is the file offset of the tree root
//     (Offset).
//   - ArraySize == FreeEntryArraySize: Aux is the next free index
//     (NextFreeIndex), and this slot is on the index freelist.
type IndexEntry struct {
	ArraySize uint64
	Aux       uint64
}

// Data returns Aux interpreted as inline payload bits.
func (e IndexEntry) Data() uint64 { return e.Aux }

// SetData stores v as the inline payload.
func (e *IndexEntry) SetData(v uint64) { e.Aux = v }

// Offset returns Aux interpreted as a file offset.
func (e IndexEntry) Offset() uint64 { return e.Aux }

// SetOffset stores v as the backing-block or tree-root file offset.
func (e *IndexEntry) SetOffset(v uint64) { e.Aux = v }

// NextFreeIndex returns Aux interpreted as a freelist link.
func (e IndexEntry) NextFreeIndex() ArrayIndex { return ArrayIndex{Value: e.Aux} }

// SetNextFreeIndex stores i as the freelist link.
func (e *IndexEntry) SetNextFreeIndex(i ArrayIndex) { e.Aux = i.Value }

// IsFree reports whether this slot is on the index freelist rather than
// describing a live array.
func (e IndexEntry) IsFree() bool { return e.ArraySize == FreeEntryArraySize }

// BlockType returns the storage class this entry's ArraySize maps to.
func (e IndexEntry) BlockType() BlockType { return GetBlockType(e.ArraySize) }

// ReadIndexEntry reads a 16-byte IndexEntry at offset. Metadata reads the
// static header's index-table entry through it; package indextable reads
// user entries through its Engine's GetUint64 instead.
func ReadIndexEntry(buf []byte, offset uint64) IndexEntry {
	return IndexEntry{
		ArraySize: codec.GetUint64(buf, offset),
		Aux:       codec.GetUint64(buf, offset+8),
	}
}

// WriteIndexEntry writes a 16-byte IndexEntry at offset.
func WriteIndexEntry(buf []byte, offset uint64, e IndexEntry) {
	codec.PutUint64(buf, offset, e.ArraySize)
	codec.PutUint64(buf, offset+8, e.Aux)
}
