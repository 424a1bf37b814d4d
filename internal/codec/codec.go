// Package codec provides the typed byte <-> integer primitives shared by
// every layer that addresses the backing file directly: a fixed
// little-endian binary layout for uint64 values. It has no knowledge of
// any higher-level on-disk struct — layout.IndexEntry's own codec lives in
// package layout, which calls back down into these primitives, so that
// codec never needs to import layout.
package codec

import "encoding/binary"

// GetUint64 reads a little-endian uint64 at offset within buf.
func GetUint64(buf []byte, offset uint64) uint64 {
	return binary.LittleEndian.Uint64(buf[offset : offset+8])
}

// PutUint64 writes v as a little-endian uint64 at offset within buf.
func PutUint64(buf []byte, offset uint64, v uint64) {
	binary.LittleEndian.PutUint64(buf[offset:offset+8], v)
}
