/*
Package dynamicstore provides an embedded single-file storage engine.

dynamicstore keeps every array a caller creates inside one ordinary file,
memory-mapped for the lifetime of the Engine. Arrays grow and shrink
independently: small ones live inline in their index entry or in a single
block, large ones are backed by a tree of 4096-byte clusters, and the
engine itself never needs more than one file descriptor or one mapping.

Quick Start:

	engine := dynamicstore.MustOpen("/data/store.db")
	defer engine.Close()

	idx, err := engine.CreateArray()
	if err != nil {
		log.Fatal(err)
	}

	if err := engine.SetArraySize(idx, 4096); err != nil {
		log.Fatal(err)
	}
	if err := engine.WriteArray(idx, 0, []byte("hello")); err != nil {
		log.Fatal(err)
	}

For the on-disk format and the resize state machine backing arrays of
every size, see DESIGN.md.
*/
package dynamicstore

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dynamicstore/dynamicstore/internal/alloc"
	"github.com/dynamicstore/dynamicstore/internal/backing"
	"github.com/dynamicstore/dynamicstore/internal/indextable"
	"github.com/dynamicstore/dynamicstore/internal/layout"
)

// Engine is the main entry point into dynamicstore. One Engine owns one
// backing file for its whole lifetime.
//
// Example:
//
//	engine := dynamicstore.MustOpen("/data/store.db")
//	defer engine.Close()
type Engine interface {
	// Format resets the backing file to a single, empty cluster and
	// writes a fresh static header, discarding any arrays it held.
	Format() error

	// LoadAndCheck verifies the backing file's header and walks its
	// freelists and live arrays for double-allocations, freelist cycles,
	// and out-of-range or misaligned offsets. It returns false, logging
	// what it found, rather than returning an error. Blocks reachable
	// from no freelist and no array (leaks) are not detected.
	LoadAndCheck() bool

	// LoadUserMetadata returns a copy of the caller-owned metadata
	// region stamped by the last StoreUserMetadata call.
	LoadUserMetadata() ([]byte, error)

	// StoreUserMetadata overwrites the caller-owned metadata region.
	// Returns ErrUserMetadataTooLarge if data exceeds
	// layout.MaxUserMetadataSize.
	StoreUserMetadata(data []byte) error

	// CreateArray allocates a handle for a new, empty array.
	CreateArray() (ArrayIndex, error)

	// DestroyArray frees idx's array and returns its handle to the free
	// list. idx must not be used again afterward.
	DestroyArray(idx ArrayIndex) error

	// GetArraySize returns idx's current size in bytes.
	GetArraySize(idx ArrayIndex) (uint64, error)

	// SetArraySize grows or shrinks idx's array to newSize bytes,
	// relocating its storage between inline, block, and tree
	// representations as needed. Newly exposed bytes on growth are
	// left uninitialized.
	SetArraySize(idx ArrayIndex, newSize uint64) error

	// ReadArray copies len(buf) bytes starting at offset into buf.
	// Returns ErrOutOfRange if that range exceeds the array's size.
	ReadArray(idx ArrayIndex, offset uint64, buf []byte) error

	// WriteArray copies data into idx's array starting at offset.
	// Returns ErrOutOfRange if that range exceeds the array's size.
	WriteArray(idx ArrayIndex, offset uint64, data []byte) error

	// Stats reports the engine's current allocation state.
	Stats() Stats

	// Close flushes the backing file and releases the mapping.
	Close() error
}

// engine is the concrete implementation of Engine.
type engine struct {
	file   *backing.File
	meta   *layout.Metadata
	alloc  *alloc.Allocator
	table  *indextable.Table
	logger Logger
}

// Open opens or creates the backing file at path.
//
// Example:
//
//	engine, err := dynamicstore.Open("/data/store.db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
func Open(path string, opts ...Option) (Engine, error) {
	o := defaultOpenOptions()
	for _, opt := range opts {
		opt(o)
	}

	f, err := backing.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "dynamicstore: open")
	}

	meta := layout.NewMetadata(f)
	a := alloc.New(f, meta)
	e := &engine{
		file:   f,
		meta:   meta,
		alloc:  a,
		table:  indextable.New(a, meta),
		logger: o.logger,
	}

	if f.Size() == 0 {
		if o.withoutForce {
			return nil, ErrNotFormatted
		}
		if err := e.formatWithStoreID(o.storeID); err != nil {
			return nil, err
		}
		return e, nil
	}

	if !e.LoadAndCheck() {
		return nil, ErrInconsistent
	}
	return e, nil
}

// MustOpen is like Open but panics on error.
//
// Example:
//
//	engine := dynamicstore.MustOpen("/data/store.db")
//	defer engine.Close()
func MustOpen(path string, opts ...Option) Engine {
	e, err := Open(path, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Format resets the file to a single empty cluster with a fresh header.
func (e *engine) Format() error {
	generated := uuid.New()
	var id [16]byte
	copy(id[:], generated[:])
	return e.formatWithStoreID(id)
}

func (e *engine) formatWithStoreID(id [16]byte) error {
	if err := e.file.SetSize(layout.ClusterSize); err != nil {
		return errors.Wrap(err, "dynamicstore: format")
	}

	e.meta.SetFileSize(layout.ClusterSize)
	e.meta.SetStoreID(id)
	e.meta.SetIndexTableEntry(layout.IndexEntry{})
	e.meta.SetFreeIndexHead(layout.FreeIndexTail)
	for t := layout.L16; t <= layout.L4096; t++ {
		e.meta.SetFreeBlockHead(t, layout.FreeBlockTail)
	}
	e.meta.SetUserMetadataSize(0)

	// Carve the rest of cluster 0 into the L16..L256 freelists.
	carve := []struct {
		t          layout.BlockType
		begin, end uint64
	}{
		{layout.L16, layout.StaticMetadataSize, 512},
		{layout.L32, 512, 1024},
		{layout.L64, 1024, 2048},
		{layout.L128, 2048, 3072},
		{layout.L256, 3072, layout.ClusterSize},
	}
	for _, c := range carve {
		e.alloc.InitializeClusterSection(c.t, 0, c.begin, c.end)
	}

	e.logger.Info("formatted store", Field{"store_id", id})
	return nil
}

// Close flushes and releases the backing file.
func (e *engine) Close() error {
	return e.file.Close()
}

// Stats reports the engine's current allocation state.
func (e *engine) Stats() Stats {
	tableEntry := e.meta.IndexTableEntry()
	total := tableEntry.ArraySize / layout.IndexEntrySize

	var live uint64
	for v := uint64(1); v <= total; v++ {
		if e.table.IsIndexValid(layout.ArrayIndex{Value: v}) {
			live++
		}
	}

	return Stats{
		FileSize:          e.meta.FileSize(),
		IndexTableEntries: total,
		LiveArrays:        live,
		StoreID:           e.meta.StoreID(),
		UserMetadataSize:  e.meta.UserMetadataSize(),
	}
}
