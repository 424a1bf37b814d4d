// Package resize implements the index-entry resize state machine that
// moves an array's payload between the inline, single-block, and
// L4096Plus tree representations as its size changes, always in the
// same fixed order — normalize out of whatever extreme representation the
// entry is currently in, reclass the in-between storage, then grow into
// whatever extreme representation the target size requires.
package resize

import (
	"github.com/dynamicstore/dynamicstore/internal/layout"
	"github.com/dynamicstore/dynamicstore/internal/tree"
)

// ResizeIndexEntry returns the entry that results from resizing entry's
// array to newSize, reading and relocating live data as needed. It never
// mutates caller-visible state outside entry itself and the blocks it
// allocates or frees along the way.
func ResizeIndexEntry(eng tree.Engine, entry layout.IndexEntry, newSize uint64) layout.IndexEntry {
	oldType := entry.BlockType()
	newType := layout.GetBlockType(newSize)

	switch {
	case oldType == layout.L4096Plus && newType != layout.L4096Plus:
		entry = shrinkOutOfTree(eng, entry)
		return ResizeIndexEntry(eng, entry, newSize)

	case newType == layout.L4096Plus && oldType != layout.L4096Plus:
		entry = ResizeIndexEntry(eng, entry, layout.ClusterSize)
		entry.ArraySize = layout.ClusterSize
		it := tree.New(eng, entry)
		it.ExpandToSize(newSize)
		return it.Entry()

	case oldType == layout.L4096Plus && newType == layout.L4096Plus:
		return resizeWithinTree(eng, entry, newSize)

	default:
		return reclassIntermediate(eng, entry, oldType, newType, newSize)
	}
}

// shrinkOutOfTree collapses a tree-backed entry down to its single
// surviving leaf, returning an entry of class L4096 ready for ordinary
// intermediate reclassing.
func shrinkOutOfTree(eng tree.Engine, entry layout.IndexEntry) layout.IndexEntry {
	it := tree.New(eng, entry)
	it.ShrinkToSize(layout.ClusterSize)
	return it.Entry()
}

// resizeWithinTree handles a resize that starts and ends in L4096Plus. If
// the leaf count does not change, only the recorded size moves; otherwise
// the tree itself grows or shrinks.
func resizeWithinTree(eng tree.Engine, entry layout.IndexEntry, newSize uint64) layout.IndexEntry {
	if tree.GetClusterNumber(entry.ArraySize) == tree.GetClusterNumber(newSize) {
		entry.ArraySize = newSize
		return entry
	}

	it := tree.New(eng, entry)
	if newSize > entry.ArraySize {
		it.ExpandToSize(newSize)
	} else {
		it.ShrinkToSize(newSize)
	}
	return it.Entry()
}

// reclassIntermediate resizes an entry whose old and new classes are both
// strictly smaller than L4096Plus, relocating live bytes between the
// inline Aux field and allocated blocks as needed.
func reclassIntermediate(eng tree.Engine, entry layout.IndexEntry, oldType, newType layout.BlockType, newSize uint64) layout.IndexEntry {
	if oldType != newType {
		oldInline := oldType == layout.L8
		newInline := newType == layout.L8

		switch {
		case oldInline && newInline:
			// Data already lives in Aux; only ArraySize changes below.

		case oldInline && !newInline:
			newOffset, err := eng.AllocateBlock(newType)
			if err != nil {
				panic(err)
			}
			eng.SetUint64(newOffset, entry.Data())
			entry.SetOffset(newOffset)

		case !oldInline && newInline:
			v := eng.GetUint64(entry.Offset())
			eng.DeallocateBlock(oldType, entry.Offset())
			entry.SetData(v)

		default:
			newOffset, err := eng.AllocateBlock(newType)
			if err != nil {
				panic(err)
			}
			copySize := entry.ArraySize
			if newSize < copySize {
				copySize = newSize
			}
			if copySize > 0 {
				eng.MoveData(entry.Offset(), newOffset, copySize)
			}
			eng.DeallocateBlock(oldType, entry.Offset())
			entry.SetOffset(newOffset)
		}
	}

	entry.ArraySize = newSize
	return entry
}
