package dynamicstore

import "github.com/dynamicstore/dynamicstore/internal/layout"

// ArrayIndex is the handle CreateArray returns and every other array
// operation takes. It is opaque; callers persist it however they like
// (it is just a uint64 wrapper) and pass it back to address the same
// array later.
type ArrayIndex = layout.ArrayIndex

// Field represents a structured logging field.
type Field struct {
	Key   string
	Value interface{}
}

// Stats summarizes the engine's current allocation state, surfaced by
// cmd/dynamicstore's info subcommand and useful for tests.
type Stats struct {
	// FileSize is the current size of the backing file in bytes.
	FileSize uint64

	// IndexTableEntries is the number of slots in the index table: live,
	// freed, and those not yet handed out by CreateArray.
	IndexTableEntries uint64

	// LiveArrays is the number of handles currently describing a live
	// array rather than sitting on the free list.
	LiveArrays uint64

	// StoreID is the identifier stamped into the header by the last
	// Format call.
	StoreID [16]byte

	// UserMetadataSize is the current length in bytes of the caller-owned
	// metadata region, as last set by StoreUserMetadata.
	UserMetadataSize uint64
}
