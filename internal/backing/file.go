// Package backing implements the file-opening, memory-mapping, and
// size-adjustment layer every other package builds on: byte-addressable
// random-access storage that grows in cluster units, with typed get/set
// and bulk copy over file offsets.
package backing

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// File is a memory-mapped backing file. It is not safe for concurrent
// use; the engine assumes exclusive access for its lifetime.
type File struct {
	f    *os.File
	data []byte
	size uint64
}

// Open opens path for read/write, creating it if it does not exist. The
// returned File reflects the file's current size; if that size is 0, Data
// returns nil until the first SetSize call (Format always calls SetSize
// before touching the mapping).
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "backing: open")
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "backing: stat")
	}

	bf := &File{f: f, size: uint64(info.Size())}
	if bf.size > 0 {
		if err := bf.mmap(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return bf, nil
}

// Size returns the current file size in bytes.
func (f *File) Size() uint64 { return f.size }

// Data returns the current live mapping. Callers must not retain it across
// a SetSize call, which remaps the file.
func (f *File) Data() []byte { return f.data }

// SetSize grows or truncates the file and remaps it. newSize is always a
// multiple of ClusterSize.
func (f *File) SetSize(newSize uint64) error {
	if f.data != nil {
		if err := unix.Munmap(f.data); err != nil {
			return errors.Wrap(err, "backing: munmap")
		}
		f.data = nil
	}

	if err := f.f.Truncate(int64(newSize)); err != nil {
		return errors.Wrap(err, "backing: truncate")
	}
	f.size = newSize

	if newSize == 0 {
		return nil
	}
	return f.mmap()
}

func (f *File) mmap() error {
	data, err := unix.Mmap(int(f.f.Fd()), 0, int(f.size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return errors.Wrap(err, "backing: mmap")
	}
	f.data = data
	return nil
}

// GetClusterAddress returns a live slice over the cluster starting at
// offset, which must be cluster-aligned. Callers index into it with an
// in-cluster offset.
func (f *File) GetClusterAddress(offset uint64) []byte {
	return f.data[offset : offset+clusterSize]
}

// MoveData performs a possibly-overlapping byte copy inside the mapping.
// Go's builtin copy is defined for overlapping source/destination within
// the same backing array, so this is safe even when the ranges overlap.
func (f *File) MoveData(srcOffset, dstOffset, size uint64) {
	copy(f.data[dstOffset:dstOffset+size], f.data[srcOffset:srcOffset+size])
}

// GetBytes returns a live slice of size bytes at offset.
func (f *File) GetBytes(offset, size uint64) []byte {
	return f.data[offset : offset+size]
}

// SetBytes copies b into the mapping at offset.
func (f *File) SetBytes(offset uint64, b []byte) {
	copy(f.data[offset:offset+uint64(len(b))], b)
}

// Sync flushes the mapping to disk.
func (f *File) Sync() error {
	if f.data == nil {
		return nil
	}
	if err := unix.Msync(f.data, unix.MS_SYNC); err != nil {
		return errors.Wrap(err, "backing: msync")
	}
	return nil
}

// Close flushes and releases the mapping, then closes the file.
func (f *File) Close() error {
	if f.data != nil {
		if err := f.Sync(); err != nil {
			return err
		}
		if err := unix.Munmap(f.data); err != nil {
			return errors.Wrap(err, "backing: munmap")
		}
		f.data = nil
	}
	return f.f.Close()
}

// clusterSize is duplicated from layout.ClusterSize so that this package
// does not depend on layout; GetClusterAddress is most at home here, next
// to the mapping it slices.
const clusterSize = 4096
