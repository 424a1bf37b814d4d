package layout

import "github.com/dynamicstore/dynamicstore/internal/codec"

// Mapping is the minimal capability Metadata needs from the backing file:
// the current live view of the mapped bytes. It is fetched fresh on every
// access (never cached) because SetSize remaps the file and invalidates
// any previously returned slice.
type Mapping interface {
	Data() []byte
}

// Field byte offsets within cluster 0. The static header occupies exactly
// [0, StaticMetadataSize); Format carves the remainder of cluster 0
// ([StaticMetadataSize, ClusterSize)) into the L16..L256 freelists.
const (
	offFileSize         = 0
	offStoreID           = offFileSize + 8  // 8
	offIndexTableEntry  = offStoreID + 16   // 24
	offFreeIndexHead    = offIndexTableEntry + IndexEntrySize // 40
	offFreeClusterHead  = offFreeIndexHead + 8                // 48 (reserved)
	offFreeBlockHead    = offFreeClusterHead + 8               // 56
	freeBlockHeadCount  = 9                                    // L16..L4096
	offUserMetadataSize = offFreeBlockHead + freeBlockHeadCount*8 // 128
	offUserMetadata     = offUserMetadataSize + 8                 // 136

	// StaticMetadataSize is the fixed width of cluster 0's header: [0, 256).
	StaticMetadataSize = 256
)

func init() {
	if offUserMetadata+MaxUserMetadataSize > StaticMetadataSize {
		panic("layout: static metadata fields overflow StaticMetadataSize")
	}
}

// freeBlockHeadOffset returns the absolute offset of the freelist head
// slot for class t, which must be in [L16, L4096].
func freeBlockHeadOffset(t BlockType) uint64 {
	if t < L16 || t > L4096 {
		panic("layout: free block head requested for class " + t.String())
	}
	return offFreeBlockHead + uint64(t-L16)*8
}

// Metadata is a mutable typed view over cluster 0.
type Metadata struct {
	m Mapping
}

// NewMetadata wraps m as a static metadata accessor.
func NewMetadata(m Mapping) *Metadata {
	return &Metadata{m: m}
}

func (md *Metadata) FileSize() uint64 { return codec.GetUint64(md.m.Data(), offFileSize) }
func (md *Metadata) SetFileSize(v uint64) {
	codec.PutUint64(md.m.Data(), offFileSize, v)
}

// StoreID returns the 16 raw bytes stamped at Format() time. Purely
// cosmetic; no allocation or resize invariant depends on it.
func (md *Metadata) StoreID() [16]byte {
	var id [16]byte
	copy(id[:], md.m.Data()[offStoreID:offStoreID+16])
	return id
}

func (md *Metadata) SetStoreID(id [16]byte) {
	copy(md.m.Data()[offStoreID:offStoreID+16], id[:])
}

func (md *Metadata) IndexTableEntry() IndexEntry {
	return ReadIndexEntry(md.m.Data(), offIndexTableEntry)
}

func (md *Metadata) SetIndexTableEntry(e IndexEntry) {
	WriteIndexEntry(md.m.Data(), offIndexTableEntry, e)
}

func (md *Metadata) FreeIndexHead() ArrayIndex {
	return ArrayIndex{Value: codec.GetUint64(md.m.Data(), offFreeIndexHead)}
}

func (md *Metadata) SetFreeIndexHead(i ArrayIndex) {
	codec.PutUint64(md.m.Data(), offFreeIndexHead, i.Value)
}

func (md *Metadata) FreeBlockHead(t BlockType) uint64 {
	return codec.GetUint64(md.m.Data(), freeBlockHeadOffset(t))
}

func (md *Metadata) SetFreeBlockHead(t BlockType, v uint64) {
	codec.PutUint64(md.m.Data(), freeBlockHeadOffset(t), v)
}

func (md *Metadata) UserMetadataSize() uint64 {
	return codec.GetUint64(md.m.Data(), offUserMetadataSize)
}

func (md *Metadata) SetUserMetadataSize(v uint64) {
	codec.PutUint64(md.m.Data(), offUserMetadataSize, v)
}

// UserMetadataBytes returns a live slice over the user metadata region
// (fixed width MaxUserMetadataSize, regardless of UserMetadataSize).
func (md *Metadata) UserMetadataBytes() []byte {
	return md.m.Data()[offUserMetadata : offUserMetadata+MaxUserMetadataSize]
}
