package tree

import "github.com/dynamicstore/dynamicstore/internal/layout"

// ShrinkToSize discards the tail of the tree beyond newSize, which must be
// smaller than the entry's current ArraySize. It mirrors ExpandToSize in
// reverse: remove whole levels from the top down until the shape is
// shallow enough, trim the surviving levels' trailing clusters, then
// shrink the root's block class if the new topmost level no longer needs
// as many pointers.
func (it *Iterator) ShrinkToSize(newSize uint64) {
	newLeafCount := GetClusterNumber(newSize)
	targetLevels := levelCountFor(newLeafCount)

	if targetLevels > len(it.stack) {
		panic("tree: ShrinkToSize computed a shape deeper than the tree already has")
	}

	for len(it.stack) > targetLevels {
		it.removeOneLevel()
	}

	if len(it.stack) > 0 {
		desired := make([]uint64, len(it.stack))
		n := newLeafCount
		for i := 0; i < len(it.stack); i++ {
			desired[i] = n
			n = GetClusterNumber(n * layout.ClusterIndexSize)
		}

		oldCounts := make([]uint64, len(it.stack))
		for i, lvl := range it.stack {
			oldCounts[i] = lvl.clusterNumber
		}

		top := len(it.stack) - 1
		oldTop := oldCounts[top]

		// survivingCount tracks how many clusters at the level being
		// processed are still physically present. At the top it's simply
		// the old count; below that it's capped by how many children the
		// level above still has after ITS trim, since freeRange already
		// cascaded away everything under a discarded parent. Using the
		// raw stale oldCounts value here instead would re-free clusters
		// the cascade from a higher level already freed.
		survivingCount := oldTop
		for level := top; level >= 0; level-- {
			want := desired[level]
			if want < survivingCount {
				it.freeRange(level, want, survivingCount)
			}
			it.stack[level].clusterNumber = want

			if level > 0 {
				survivingCount = oldCounts[level-1]
				if cap := want * layout.ClusterIndexCount; cap < survivingCount {
					survivingCount = cap
				}
			}
		}

		it.shrinkRoot(oldTop, desired[top])
	}

	it.entry.ArraySize = newSize
}

// freeRange deallocates clusters [from, to) at level, recursing into each
// one's children first when level addresses index nodes rather than
// leaves. Must run before anything above level is mutated, since it
// resolves every address via the still-intact parent chain.
func (it *Iterator) freeRange(level int, from, to uint64) {
	for idx := from; idx < to; idx++ {
		addr := it.clusterAddressAt(level, idx)
		if level > 0 {
			childCount := it.stack[level-1].clusterNumber
			childFrom := idx * layout.ClusterIndexCount
			childTo := childFrom + layout.ClusterIndexCount
			if childTo > childCount {
				childTo = childCount
			}
			if childFrom < childTo {
				it.freeRange(level-1, childFrom, childTo)
			}
		}
		it.eng.DeallocateBlock(layout.L4096, addr)
	}
}

// removeOneLevel discards the topmost tracked level down to its single
// surviving first child, freeing every other sibling's whole subtree, and
// collapses the root onto that survivor.
func (it *Iterator) removeOneLevel() {
	top := len(it.stack) - 1
	cur := it.stack[top].clusterNumber
	survivor := it.clusterAddressAt(top, 0)

	if cur > 1 {
		it.freeRange(top, 1, cur)
		it.eng.DeallocateBlock(layout.GetBlockType(cur*layout.ClusterIndexSize), it.entry.Offset())
	}

	it.entry.SetOffset(survivor)
	it.stack = it.stack[:top]

	// survivor is a single node that can hold at most ClusterIndexCount
	// children; the new top's recorded count is stale until capped to
	// that, or a later freeRange call addressing beyond survivor's own
	// slots would wrap around (idx % ClusterIndexCount) onto it.
	if top > 0 && it.stack[top-1].clusterNumber > layout.ClusterIndexCount {
		it.stack[top-1].clusterNumber = layout.ClusterIndexCount
	}
}

// shrinkRoot reallocates the root to a smaller block class when the
// topmost level's pointer count has dropped enough to no longer need the
// one it currently occupies.
func (it *Iterator) shrinkRoot(oldTop, newTop uint64) {
	if oldTop <= 1 || newTop >= oldTop {
		return
	}
	oldClass := layout.GetBlockType(oldTop * layout.ClusterIndexSize)
	newClass := layout.GetBlockType(newTop * layout.ClusterIndexSize)
	if newClass == oldClass {
		return
	}

	oldRoot := it.entry.Offset()
	newRoot, err := it.eng.AllocateBlock(newClass)
	if err != nil {
		panic(err)
	}
	it.eng.MoveData(oldRoot, newRoot, newTop*layout.ClusterIndexSize)
	it.eng.DeallocateBlock(oldClass, oldRoot)
	it.entry.SetOffset(newRoot)
}
