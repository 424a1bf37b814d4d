package tree

import "github.com/dynamicstore/dynamicstore/internal/layout"

// ExpandToSize grows the tree to cover newSize bytes, which must be larger
// than the entry's current ArraySize. It proceeds strictly top-down: add
// levels until the shape is deep enough, grow the root to address the new
// topmost level, then grow each level down to the leaves, each relying on
// its already-grown parent for child slots.
func (it *Iterator) ExpandToSize(newSize uint64) {
	newLeafCount := GetClusterNumber(newSize)
	targetLevels := levelCountFor(newLeafCount)

	if targetLevels < len(it.stack) {
		panic("tree: ExpandToSize computed a shape shallower than the tree already has")
	}
	for len(it.stack) < targetLevels {
		it.addOneLevel()
	}

	if len(it.stack) > 0 {
		desired := make([]uint64, len(it.stack))
		n := newLeafCount
		for i := 0; i < len(it.stack); i++ {
			desired[i] = n
			n = GetClusterNumber(n * layout.ClusterIndexSize)
		}

		it.growRoot(desired[len(it.stack)-1])

		for level := len(it.stack) - 1; level >= 0; level-- {
			want := desired[level]
			old := it.stack[level].clusterNumber
			if want <= old {
				continue
			}
			for i := old; i < want; i++ {
				childOffset, err := it.eng.AllocateBlock(layout.L4096)
				if err != nil {
					panic(err)
				}

				var parentOffset uint64
				if level == len(it.stack)-1 {
					parentOffset = it.entry.Offset()
				} else {
					parentOffset = it.clusterAddressAt(level+1, i/layout.ClusterIndexCount)
				}
				slot := (i % layout.ClusterIndexCount) * layout.ClusterIndexSize
				it.eng.SetUint64(parentOffset+slot, childOffset)
			}
			it.stack[level].clusterNumber = want
		}
	}

	it.entry.ArraySize = newSize
}

// levelCountFor returns how many tracked levels a tree of n leaves needs:
// the same bottom-up shape rule New uses, applied without building the
// stack itself.
func levelCountFor(n uint64) int {
	count := 0
	for n > 1 {
		count++
		n = GetClusterNumber(n * layout.ClusterIndexSize)
	}
	return count
}

// addOneLevel promotes the current root into a new topmost tracked level,
// leaving the tree exactly as deep as before plus one. Only the brand new
// top level is allowed to stay root-collapsed (no distinct block, just
// entry.Offset() pointing straight at its single child) — every level it
// displaces downward must end up with a real block of its own, since
// clusterAddressAt always walks a fixed number of hops down from the
// root and has no way to skip over a level that was left un-materialized.
// The very first level ever pushed (len(stack) == 0) is the exception:
// it *is* the leaf level, and entry.Offset() already addresses that leaf
// directly, so there is nothing to wrap.
func (it *Iterator) addOneLevel() {
	if len(it.stack) == 0 {
		it.stack = append(it.stack, level{clusterNumber: 1, currentLogicIndex: noLogicIndex})
		return
	}

	old := it.stack[len(it.stack)-1]
	oldOffset := it.entry.Offset()

	if old.clusterNumber > 1 {
		oldClass := layout.GetBlockType(old.clusterNumber * layout.ClusterIndexSize)
		newCluster, err := it.eng.AllocateBlock(layout.L4096)
		if err != nil {
			panic(err)
		}
		it.eng.MoveData(oldOffset, newCluster, old.clusterNumber*layout.ClusterIndexSize)
		it.eng.DeallocateBlock(oldClass, oldOffset)
		it.entry.SetOffset(newCluster)
	} else {
		// old's sole node is already real (either the leaf itself, at
		// level 0, or a block a previous call to this same function
		// materialized) — it just needs a parent slot pointing at it.
		newCluster, err := it.eng.AllocateBlock(layout.L4096)
		if err != nil {
			panic(err)
		}
		it.eng.SetUint64(newCluster, oldOffset)
		it.entry.SetOffset(newCluster)
	}

	it.stack = append(it.stack, level{clusterNumber: 1, currentLogicIndex: noLogicIndex})
}

// growRoot ensures the root can address topCount pointers into the
// topmost tracked level, reallocating it to a larger block class (or, the
// first time a second child appears, allocating one at all) if needed.
func (it *Iterator) growRoot(topCount uint64) {
	if len(it.stack) == 0 {
		return
	}
	old := it.stack[len(it.stack)-1].clusterNumber
	if topCount <= old {
		return
	}

	if old <= 1 {
		child := it.entry.Offset()
		newRoot, err := it.eng.AllocateBlock(layout.GetBlockType(topCount * layout.ClusterIndexSize))
		if err != nil {
			panic(err)
		}
		it.eng.SetUint64(newRoot, child)
		it.entry.SetOffset(newRoot)
		return
	}

	oldClass := layout.GetBlockType(old * layout.ClusterIndexSize)
	newClass := layout.GetBlockType(topCount * layout.ClusterIndexSize)
	if newClass == oldClass {
		return
	}

	oldRoot := it.entry.Offset()
	newRoot, err := it.eng.AllocateBlock(newClass)
	if err != nil {
		panic(err)
	}
	it.eng.MoveData(oldRoot, newRoot, old*layout.ClusterIndexSize)
	it.eng.DeallocateBlock(oldClass, oldRoot)
	it.entry.SetOffset(newRoot)
}
