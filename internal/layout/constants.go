// Package layout owns the on-disk constants, the block/array size-class
// arithmetic, and the typed view over cluster 0 (the static metadata
// header) that every other internal package builds on.
package layout

// ClusterSize is the fixed unit of file growth. Cluster 0 holds the static
// header; every other cluster is either a data leaf, a cluster-index node,
// or subdivided into intermediate-class blocks.
const ClusterSize = 4096

// IndexEntrySize is the on-disk width of one IndexEntry.
const IndexEntrySize = 16

// ClusterIndexSize is the width of one child pointer in a cluster-index
// block. ClusterIndexCount is how many fit in one cluster.
const (
	ClusterIndexSize  = 8
	ClusterIndexCount = ClusterSize / ClusterIndexSize // 512
)

// ClusterOffsetMask, applied with &, rounds an offset down to its cluster
// boundary. ^ClusterOffsetMask applied with & gives the offset within the
// cluster.
const ClusterOffsetMask = ^uint64(ClusterSize - 1)

// Sentinels.
const (
	FreeBlockTail      = 0
	FreeEntryArraySize = ^uint64(0) // U64_MAX
)

// FreeIndexTail is the tail sentinel for the index freelist: ArrayIndex{0}.
var FreeIndexTail = ArrayIndex{Value: 0}

// MaxUserMetadataSize is constrained by the concrete byte layout Format
// carves out of cluster 0 (see StaticMetadataSize in metadata.go): the
// static header occupies exactly the first 256 bytes of cluster 0, and
// everything from byte 256 onward is committed to the L16..L256 freelist
// carve-up. What's left after the other fixed header fields is 120 bytes.
// See DESIGN.md.
const MaxUserMetadataSize = 120

// MaxClusterHierarchyDepth bounds the L4096Plus tree's stack depth.
// 512^6 * 4096 bytes is far beyond any file this engine can address, so
// 6 levels is always sufficient.
const MaxClusterHierarchyDepth = 6

// BlockType is a storage size class, indexing blockSizeTable.
type BlockType uint8

const (
	L8 BlockType = iota
	L16
	L32
	L64
	L128
	L256
	L512
	L1024
	L2048
	L4096
	L4096Plus
	blockTypeCount // sentinel, not a real class
)

// blockSizeTable holds the fixed byte width of each intermediate size
// class. The L4096Plus slot is unused numerically (arrays in that class
// are never a single fixed-size block); callers must not index it for
// size arithmetic.
var blockSizeTable = [blockTypeCount]uint64{
	L8:        8,
	L16:       16,
	L32:       32,
	L64:       64,
	L128:      128,
	L256:      256,
	L512:      512,
	L1024:     1024,
	L2048:     2048,
	L4096:     4096,
	L4096Plus: 0,
}

// BlockSize returns the fixed size in bytes of class t. Panics for
// L4096Plus, which has no fixed size.
func BlockSize(t BlockType) uint64 {
	if t == L4096Plus || t >= blockTypeCount {
		panic("layout: BlockSize called on a class with no fixed size")
	}
	return blockSizeTable[t]
}

// GetBlockType returns the smallest class Lk with k >= size, or L4096Plus
// if size exceeds one cluster. size == 0 maps to L8, since empty arrays
// live inline.
func GetBlockType(size uint64) BlockType {
	if size == 0 {
		return L8
	}
	for t := L8; t < L4096Plus; t++ {
		if blockSizeTable[t] >= size {
			return t
		}
	}
	return L4096Plus
}

func (t BlockType) String() string {
	names := [blockTypeCount]string{
		L8: "L8", L16: "L16", L32: "L32", L64: "L64", L128: "L128",
		L256: "L256", L512: "L512", L1024: "L1024", L2048: "L2048",
		L4096: "L4096", L4096Plus: "L4096Plus",
	}
	if t >= blockTypeCount {
		return "BlockType(invalid)"
	}
	return names[t]
}
