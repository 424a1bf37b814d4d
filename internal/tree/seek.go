package tree

import "github.com/dynamicstore/dynamicstore/internal/layout"

// SeekToCluster positions the iterator at the cluster that contains byte
// offsetInArray, which must be less than the entry's ArraySize. It updates
// the cached logical index at every tracked level; the actual cluster
// address is resolved on demand by GetCurrentClusterOffset, since at the
// bounded depth (MaxClusterHierarchyDepth levels) a fresh root-to-leaf
// walk costs at most a handful of uint64 reads.
func (it *Iterator) SeekToCluster(offsetInArray uint64) {
	it.currentOffsetInArray = offsetInArray
	for i := range it.stack {
		it.stack[i].currentLogicIndex = getClusterLogicIndexOfLevel(offsetInArray, uint64(i))
	}
}

// GotoNextCluster advances to the cluster immediately following the
// current one. Callers must stop advancing once currentOffsetInArray
// reaches the entry's ArraySize.
func (it *Iterator) GotoNextCluster() {
	it.SeekToCluster(it.currentOffsetInArray + layout.ClusterSize)
}

// GetCurrentClusterOffset returns the file offset of the cluster last
// selected by SeekToCluster.
func (it *Iterator) GetCurrentClusterOffset() uint64 {
	if len(it.stack) == 0 {
		return it.entry.Offset()
	}
	return it.clusterAddressAt(0, it.stack[0].currentLogicIndex)
}

// GetCurrentClusterAddress returns a live slice over the current cluster.
func (it *Iterator) GetCurrentClusterAddress() []byte {
	return it.eng.GetClusterAddress(it.GetCurrentClusterOffset())
}

// clusterAddressAt resolves the file offset of the idx-th cluster at
// level, walking down from the root. Each step picks the child whose
// index is the next base-512 digit of idx, most significant first.
func (it *Iterator) clusterAddressAt(level int, idx uint64) uint64 {
	addr := it.entry.Offset()
	for l := len(it.stack) - 1; l >= level; l-- {
		digit := (idx >> (9 * uint64(l-level))) % layout.ClusterIndexCount
		addr = it.eng.GetUint64(addr + digit*layout.ClusterIndexSize)
	}
	return addr
}
