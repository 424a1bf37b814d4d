package dynamicstore

import (
	"strconv"

	"github.com/dynamicstore/dynamicstore/internal/layout"
	"github.com/dynamicstore/dynamicstore/internal/tree"
)

// LoadAndCheck verifies the header is sane and that CheckConsistency finds
// no corruption. Open calls it whenever the backing file was not freshly
// formatted.
func (e *engine) LoadAndCheck() bool {
	fileSize := e.meta.FileSize()
	if fileSize != e.file.Size() {
		e.logger.Error("file size mismatch between header and backing file",
			Field{"header_size", fileSize}, Field{"actual_size", e.file.Size()})
		return false
	}
	if fileSize == 0 || fileSize%layout.ClusterSize != 0 {
		e.logger.Error("file size is not a positive multiple of the cluster size",
			Field{"size", fileSize})
		return false
	}

	return e.CheckConsistency()
}

// CheckConsistency walks every freelist and every live array, looking for
// double-allocations (an offset reachable from more than one place) and
// structural damage (out-of-range or misaligned offsets, or a cycle in a
// freelist). It never mutates anything; a corrupted store is left exactly
// as found so an operator can inspect it before deciding what to do.
// LoadAndCheck runs it unconditionally whenever a pre-existing file is
// opened.
func (e *engine) CheckConsistency() bool {
	owned := make(map[uint64]string)
	ok := true

	mark := func(offset uint64, owner string) bool {
		if prev, seen := owned[offset]; seen {
			e.logger.Error("offset claimed by more than one owner",
				Field{"offset", offset}, Field{"first_owner", prev}, Field{"second_owner", owner})
			ok = false
			return false
		}
		owned[offset] = owner
		return true
	}

	fileSize := e.meta.FileSize()
	inRange := func(offset, size uint64) bool {
		return offset < fileSize && offset+size <= fileSize
	}

	markBlock := func(offset, size uint64, owner string) bool {
		if !inRange(offset, size) || offset%size != 0 {
			e.logger.Error("tree block offset is out of range or misaligned",
				Field{"owner", owner}, Field{"offset", offset})
			ok = false
			return false
		}
		return mark(offset, owner)
	}

	for t := layout.L16; t <= layout.L4096; t++ {
		blockSize := layout.BlockSize(t)
		owner := "freelist:" + t.String()

		seen := make(map[uint64]bool)
		cur := e.meta.FreeBlockHead(t)
		for cur != layout.FreeBlockTail {
			if seen[cur] {
				e.logger.Error("cycle detected in block freelist", Field{"class", t.String()}, Field{"offset", cur})
				ok = false
				break
			}
			seen[cur] = true

			if !inRange(cur, blockSize) || cur%blockSize != 0 {
				e.logger.Error("free block offset is out of range or misaligned",
					Field{"class", t.String()}, Field{"offset", cur})
				ok = false
				break
			}
			if !mark(cur, owner) {
				break
			}
			cur = e.file.GetUint64(cur)
		}
	}

	seenIdx := make(map[uint64]bool)
	cur := e.meta.FreeIndexHead()
	for cur != layout.FreeIndexTail {
		if seenIdx[cur.Value] {
			e.logger.Error("cycle detected in index freelist", Field{"index", cur.Value})
			ok = false
			break
		}
		seenIdx[cur.Value] = true

		entry := e.table.GetIndexEntry(cur)
		if !entry.IsFree() {
			e.logger.Error("index freelist references a live slot", Field{"index", cur.Value})
			ok = false
			break
		}
		cur = entry.NextFreeIndex()
	}

	tableEntry := e.meta.IndexTableEntry()
	total := tableEntry.ArraySize / layout.IndexEntrySize

	checkEntry := func(entry layout.IndexEntry, owner string) {
		switch bt := entry.BlockType(); bt {
		case layout.L8:
			// inline, no backing storage to claim

		case layout.L4096Plus:
			checkTree(e, entry, owner, markBlock, &ok)

		default:
			size := layout.BlockSize(bt)
			if !inRange(entry.Offset(), size) || entry.Offset()%size != 0 {
				e.logger.Error("array block offset is out of range or misaligned",
					Field{"owner", owner}, Field{"offset", entry.Offset()})
				ok = false
				return
			}
			mark(entry.Offset(), owner)
		}
	}

	checkEntry(tableEntry, "index-table")

	for v := uint64(1); v <= total; v++ {
		idx := layout.ArrayIndex{Value: v}
		entry := e.table.GetIndexEntry(idx)
		if entry.IsFree() {
			continue
		}
		checkEntry(entry, "array:"+strconv.FormatUint(v, 10))
	}

	return ok
}

// checkTree marks every block reachable from an L4096Plus entry's tree —
// the root, every intermediate index node at every tracked level, and
// every leaf cluster — walking it the same way tree.Iterator does
// internally but without mutating anything. Two arrays whose trees
// happen to share an index or root block, not just a leaf, are caught
// here the same way a shared leaf would be.
func checkTree(e *engine, entry layout.IndexEntry, owner string, markBlock func(uint64, uint64, string) bool, ok *bool) bool {
	it := tree.New(e.alloc, entry)

	if it.Levels() == 0 {
		if !markBlock(it.Entry().Offset(), layout.ClusterSize, owner) {
			*ok = false
			return false
		}
		return true
	}

	top := it.Levels() - 1
	rootSize := layout.BlockSize(layout.GetBlockType(it.LevelClusterCount(top) * layout.ClusterIndexSize))
	if !markBlock(it.Entry().Offset(), rootSize, owner) {
		*ok = false
		return false
	}

	for level := top; level >= 0; level-- {
		count := it.LevelClusterCount(level)
		for i := uint64(0); i < count; i++ {
			if !markBlock(it.ClusterAddressAt(level, i), layout.ClusterSize, owner) {
				*ok = false
				return false
			}
		}
	}
	return true
}
