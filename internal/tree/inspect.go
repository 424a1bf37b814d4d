package tree

// Levels returns how many tracked index levels sit above the leaves.
// Zero means the array is a single leaf cluster with no index nodes at
// all, addressed directly by Entry().Offset().
func (it *Iterator) Levels() int { return len(it.stack) }

// LevelClusterCount returns how many nodes are live at level (0 is the
// leaf level, the same numbering SeekToCluster and clusterAddressAt use).
func (it *Iterator) LevelClusterCount(level int) uint64 {
	return it.stack[level].clusterNumber
}

// ClusterAddressAt exposes clusterAddressAt to callers outside the
// package (the consistency walk), which need to resolve every node at
// every level, not just the ones SeekToCluster's logical-index cache
// already covers.
func (it *Iterator) ClusterAddressAt(level int, idx uint64) uint64 {
	return it.clusterAddressAt(level, idx)
}
