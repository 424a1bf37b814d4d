package backing

import "github.com/dynamicstore/dynamicstore/internal/codec"

// GetUint64 reads a little-endian uint64 at offset.
func (f *File) GetUint64(offset uint64) uint64 { return codec.GetUint64(f.data, offset) }

// SetUint64 writes v as a little-endian uint64 at offset.
func (f *File) SetUint64(offset uint64, v uint64) { codec.PutUint64(f.data, offset, v) }
