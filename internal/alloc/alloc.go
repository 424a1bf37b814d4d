// Package alloc implements the block allocator: size-classed intrusive
// freelists inside the memory-mapped file, plus the fresh-cluster-carving
// that backs them.
package alloc

import (
	"github.com/dynamicstore/dynamicstore/internal/backing"
	"github.com/dynamicstore/dynamicstore/internal/layout"
)

// Allocator is the block allocator. It embeds *backing.File so that it
// provides the raw Get/Set/MoveData access tree.Engine needs alongside
// Allocate/Deallocate, and satisfies that interface on its own.
type Allocator struct {
	*backing.File
	meta *layout.Metadata
}

// New wraps file and meta as a block allocator. meta must view the same
// file.
func New(file *backing.File, meta *layout.Metadata) *Allocator {
	return &Allocator{File: file, meta: meta}
}

// ExtendFileByOneCluster appends one cluster to the file and returns its
// offset.
func (a *Allocator) ExtendFileByOneCluster() (uint64, error) {
	oldSize := a.meta.FileSize()
	if err := a.SetSize(oldSize + layout.ClusterSize); err != nil {
		return 0, err
	}
	a.meta.SetFileSize(oldSize + layout.ClusterSize)
	return oldSize, nil
}

// InitializeClusterSection threads [begin, end) of the cluster at
// clusterOffset as free blocks of class t, in descending order, so the
// resulting freelist traverses the cluster ascending: the head becomes
// begin, and each slot's next-pointer is the previous head.
func (a *Allocator) InitializeClusterSection(t BlockType, clusterOffset, begin, end uint64) uint64 {
	requireIntermediate(t)
	blockSize := layout.BlockSize(t)
	nextFreeBlock := a.meta.FreeBlockHead(t)

	for blockOffset := end - blockSize; blockOffset >= begin && blockOffset < end; blockOffset -= blockSize {
		a.SetUint64(clusterOffset+blockOffset, nextFreeBlock)
		nextFreeBlock = clusterOffset + blockOffset
	}

	a.meta.SetFreeBlockHead(t, nextFreeBlock)
	return nextFreeBlock
}

// InitializeCluster threads an entire fresh cluster as free blocks of
// class t.
func (a *Allocator) InitializeCluster(t BlockType, clusterOffset uint64) uint64 {
	return a.InitializeClusterSection(t, clusterOffset, 0, layout.ClusterSize)
}

// AllocateBlock returns a class-t-aligned offset owned by nobody,
// extending the file with a fresh cluster if the freelist is empty. t must
// be in [L16, L4096]; L4096Plus arrays are grown through package tree
// instead.
func (a *Allocator) AllocateBlock(t BlockType) (uint64, error) {
	requireIntermediate(t)

	head := a.meta.FreeBlockHead(t)
	if head == layout.FreeBlockTail {
		clusterOffset, err := a.ExtendFileByOneCluster()
		if err != nil {
			return 0, err
		}
		head = a.InitializeCluster(t, clusterOffset)
	}

	if head%layout.BlockSize(t) != 0 {
		panic("alloc: free block head is not class-aligned")
	}

	next := a.GetUint64(head)
	a.meta.SetFreeBlockHead(t, next)
	return head, nil
}

// DeallocateBlock returns blockOffset, which must be t-aligned, to the
// class-t freelist.
func (a *Allocator) DeallocateBlock(t BlockType, blockOffset uint64) {
	requireIntermediate(t)
	if blockOffset%layout.BlockSize(t) != 0 {
		panic("alloc: deallocated block is not class-aligned")
	}

	head := a.meta.FreeBlockHead(t)
	a.SetUint64(blockOffset, head)
	a.meta.SetFreeBlockHead(t, blockOffset)
}

func requireIntermediate(t BlockType) {
	if t <= layout.L8 || t >= layout.L4096Plus {
		panic("alloc: block type out of [L16, L4096] range: " + t.String())
	}
}

// BlockType re-exports layout.BlockType so callers of this package rarely
// need to import layout solely for the type name.
type BlockType = layout.BlockType
