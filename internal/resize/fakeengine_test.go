package resize

import "github.com/dynamicstore/dynamicstore/internal/layout"

// fakeEngine is an in-memory stand-in for *alloc.Allocator, sufficient to
// exercise the resize state machine (including the tree it delegates to
// for L4096Plus entries) without a real mapped file.
type fakeEngine struct {
	mem       map[uint64][]byte
	nextAddr  uint64
	freelists map[layout.BlockType][]uint64
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		mem:       make(map[uint64][]byte),
		nextAddr:  layout.ClusterSize,
		freelists: make(map[layout.BlockType][]uint64),
	}
}

func (e *fakeEngine) AllocateBlock(t layout.BlockType) (uint64, error) {
	if fl := e.freelists[t]; len(fl) > 0 {
		addr := fl[len(fl)-1]
		e.freelists[t] = fl[:len(fl)-1]
		return addr, nil
	}
	addr := e.nextAddr
	e.nextAddr += layout.ClusterSize
	e.mem[addr] = make([]byte, layout.BlockSize(t))
	return addr, nil
}

func (e *fakeEngine) DeallocateBlock(t layout.BlockType, offset uint64) {
	e.freelists[t] = append(e.freelists[t], offset)
}

func (e *fakeEngine) GetUint64(offset uint64) uint64 {
	b := e.bytesAt(offset, 8)
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func (e *fakeEngine) SetUint64(offset uint64, v uint64) {
	b := e.bytesAt(offset, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v)
		v >>= 8
	}
}

func (e *fakeEngine) MoveData(srcOffset, dstOffset, size uint64) {
	src := e.bytesAt(srcOffset, size)
	dst := e.bytesAt(dstOffset, size)
	copy(dst, src)
}

func (e *fakeEngine) GetClusterAddress(offset uint64) []byte {
	return e.bytesAt(offset, layout.ClusterSize)
}

func (e *fakeEngine) bytesAt(offset, size uint64) []byte {
	base := (offset / layout.ClusterSize) * layout.ClusterSize
	blk, ok := e.mem[base]
	if !ok {
		if b, ok2 := e.mem[offset]; ok2 {
			return b[:size]
		}
		blk = make([]byte, layout.ClusterSize)
		e.mem[base] = blk
	}
	rel := offset - base
	if int(rel+size) > len(blk) {
		grown := make([]byte, rel+size)
		copy(grown, blk)
		blk = grown
		e.mem[base] = blk
	}
	return blk[rel : rel+size]
}
