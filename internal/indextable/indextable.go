// Package indextable implements the index table mapping an ArrayIndex
// handle to the IndexEntry describing its array, plus the handle
// freelist. The table is itself stored as an ordinary array and grown
// through the same resize state machine every other array uses — a
// table past L4096 in size is tree-backed exactly like any other large
// array.
package indextable

import (
	"github.com/dynamicstore/dynamicstore/internal/layout"
	"github.com/dynamicstore/dynamicstore/internal/resize"
	"github.com/dynamicstore/dynamicstore/internal/tree"
)

// Engine is the capability the table needs from its host; *alloc.Allocator
// satisfies it, and it is exactly tree.Engine so both packages can share a
// caller without an import cycle.
type Engine = tree.Engine

// Table is a typed view over the on-disk index table described by
// meta.IndexTableEntry.
type Table struct {
	eng  Engine
	meta *layout.Metadata
}

// New wraps eng and meta as an index table accessor.
func New(eng Engine, meta *layout.Metadata) *Table {
	return &Table{eng: eng, meta: meta}
}

// AllocateIndex returns a handle for a brand new, empty array: either the
// head of the free-index list, or a freshly extended table slot when the
// free list is empty.
func (t *Table) AllocateIndex() (layout.ArrayIndex, error) {
	head := t.meta.FreeIndexHead()
	if head == layout.FreeIndexTail {
		return t.ExtendIndexTable()
	}

	entry := t.GetIndexEntry(head)
	t.meta.SetFreeIndexHead(entry.NextFreeIndex())
	t.InitializeIndexEntry(head)
	return head, nil
}

// DeallocateIndex returns idx to the free-index list. The caller must
// already have resized the array down to nothing (ResizeIndexEntry to 0)
// so no blocks are leaked.
func (t *Table) DeallocateIndex(idx layout.ArrayIndex) {
	entry := layout.IndexEntry{ArraySize: layout.FreeEntryArraySize}
	entry.SetNextFreeIndex(t.meta.FreeIndexHead())
	t.SetIndexEntry(idx, entry)
	t.meta.SetFreeIndexHead(idx)
}

// entriesPerCluster is how many IndexEntry slots fit in one L4096Plus leaf
// cluster of the table itself.
const entriesPerCluster = layout.ClusterSize / layout.IndexEntrySize

// ExtendIndexTable grows the table by doubling its entry count, capped at
// one cluster's worth of entries per call, via the ordinary resize state
// machine. Every new slot but the one returned is threaded onto the
// free-index list, so that AllocateIndex usually pulls from the free list
// instead of paying for a table resize on every single CreateArray.
func (t *Table) ExtendIndexTable() (layout.ArrayIndex, error) {
	tableEntry := t.meta.IndexTableEntry()
	oldCount := tableEntry.ArraySize / layout.IndexEntrySize

	grow := oldCount
	if grow == 0 || grow > entriesPerCluster {
		grow = entriesPerCluster
	}
	newCount := oldCount + grow

	tableEntry = resize.ResizeIndexEntry(t.eng, tableEntry, newCount*layout.IndexEntrySize)
	t.meta.SetIndexTableEntry(tableEntry)

	newIdx := layout.ArrayIndex{Value: oldCount + 1}
	t.InitializeIndexEntry(newIdx)

	for v := newCount; v > oldCount+1; v-- {
		idx := layout.ArrayIndex{Value: v}
		entry := layout.IndexEntry{ArraySize: layout.FreeEntryArraySize}
		entry.SetNextFreeIndex(t.meta.FreeIndexHead())
		t.SetIndexEntry(idx, entry)
		t.meta.SetFreeIndexHead(idx)
	}

	return newIdx, nil
}

// InitializeIndexEntry resets idx's slot to describe an empty array.
func (t *Table) InitializeIndexEntry(idx layout.ArrayIndex) {
	t.SetIndexEntry(idx, layout.IndexEntry{})
}

// GetIndexEntryOffset resolves the byte offset of idx's 16-byte slot
// within the table's storage, whatever representation the table is
// currently using.
func (t *Table) GetIndexEntryOffset(idx layout.ArrayIndex) uint64 {
	if idx.Value == 0 {
		panic("indextable: index 0 is reserved")
	}

	tableEntry := t.meta.IndexTableEntry()
	byteOffset := (idx.Value - 1) * layout.IndexEntrySize

	if tableEntry.BlockType() == layout.L4096Plus {
		it := tree.New(t.eng, tableEntry)
		it.SeekToCluster(byteOffset)
		return it.GetCurrentClusterOffset() + byteOffset%layout.ClusterSize
	}
	return tableEntry.Offset() + byteOffset
}

// GetIndexEntry reads idx's slot.
func (t *Table) GetIndexEntry(idx layout.ArrayIndex) layout.IndexEntry {
	off := t.GetIndexEntryOffset(idx)
	return layout.IndexEntry{
		ArraySize: t.eng.GetUint64(off),
		Aux:       t.eng.GetUint64(off + 8),
	}
}

// SetIndexEntry writes idx's slot.
func (t *Table) SetIndexEntry(idx layout.ArrayIndex, entry layout.IndexEntry) {
	off := t.GetIndexEntryOffset(idx)
	t.eng.SetUint64(off, entry.ArraySize)
	t.eng.SetUint64(off+8, entry.Aux)
}

// IsIndexValid reports whether idx currently names a live array rather
// than being out of range, the reserved zero handle, or a free slot.
func (t *Table) IsIndexValid(idx layout.ArrayIndex) bool {
	if idx.Value == 0 {
		return false
	}
	tableEntry := t.meta.IndexTableEntry()
	maxIdx := tableEntry.ArraySize / layout.IndexEntrySize
	if idx.Value > maxIdx {
		return false
	}
	return !t.GetIndexEntry(idx).IsFree()
}
