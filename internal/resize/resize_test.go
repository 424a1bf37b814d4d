package resize

import (
	"testing"

	"github.com/dynamicstore/dynamicstore/internal/layout"
)

func TestResizeInlineGrowsAndShrinksWithoutBlocks(t *testing.T) {
	eng := newFakeEngine()
	entry := layout.IndexEntry{ArraySize: 8}
	entry.SetData(0x1122334455667788)

	entry = ResizeIndexEntry(eng, entry, 4)
	if entry.BlockType() != layout.L8 {
		t.Fatalf("expected inline class, got %s", entry.BlockType())
	}
	if entry.Data() != 0x1122334455667788 {
		t.Fatalf("inline payload corrupted across shrink")
	}

	entry = ResizeIndexEntry(eng, entry, 8)
	if entry.BlockType() != layout.L8 {
		t.Fatalf("expected inline class after growing back, got %s", entry.BlockType())
	}
	if entry.Data() != 0x1122334455667788 {
		t.Fatalf("inline payload corrupted across grow")
	}
	if eng.nextAddr != layout.ClusterSize {
		t.Fatalf("inline resizes allocated a block")
	}
}

func TestResizeInlineToBlockAndBack(t *testing.T) {
	eng := newFakeEngine()
	entry := layout.IndexEntry{}
	entry.SetData(0xDEADBEEF)

	entry = ResizeIndexEntry(eng, entry, 100)
	if entry.BlockType() != layout.L128 {
		t.Fatalf("expected L128 after growing to 100 bytes, got %s", entry.BlockType())
	}
	if eng.GetUint64(entry.Offset()) != 0xDEADBEEF {
		t.Fatalf("data lost when promoting inline entry to a block")
	}

	entry = ResizeIndexEntry(eng, entry, 4)
	if entry.BlockType() != layout.L8 {
		t.Fatalf("expected to demote back to inline, got %s", entry.BlockType())
	}
	if entry.Data() != 0xDEADBEEF {
		t.Fatalf("data lost when demoting block entry back to inline")
	}
}

func TestResizeGrowsIntoTreeAndBackOut(t *testing.T) {
	eng := newFakeEngine()
	entry := layout.IndexEntry{}
	entry.SetData(0x42)

	entry = ResizeIndexEntry(eng, entry, 5000*layout.ClusterSize)
	if entry.BlockType() != layout.L4096Plus {
		t.Fatalf("expected tree class, got %s", entry.BlockType())
	}
	if entry.ArraySize != 5000*layout.ClusterSize {
		t.Fatalf("unexpected array size: %d", entry.ArraySize)
	}

	entry = ResizeIndexEntry(eng, entry, 6)
	if entry.BlockType() != layout.L8 {
		t.Fatalf("expected to collapse back to inline, got %s", entry.BlockType())
	}
}

func TestResizeShrinkWithinTreeAcrossTopSiblings(t *testing.T) {
	eng := newFakeEngine()
	entry := layout.IndexEntry{}
	entry = ResizeIndexEntry(eng, entry, 1025*layout.ClusterSize)

	entry = ResizeIndexEntry(eng, entry, 700*layout.ClusterSize)
	if entry.BlockType() != layout.L4096Plus {
		t.Fatalf("expected to stay tree-backed, got %s", entry.BlockType())
	}
	if entry.ArraySize != 700*layout.ClusterSize {
		t.Fatalf("unexpected array size: %d", entry.ArraySize)
	}

	seen := make(map[uint64]bool)
	for _, fl := range eng.freelists {
		for _, addr := range fl {
			if seen[addr] {
				t.Fatalf("offset %d freed more than once", addr)
			}
			seen[addr] = true
		}
	}
}

func TestResizeWithinTreeStaysSameClusterCount(t *testing.T) {
	eng := newFakeEngine()
	entry := layout.IndexEntry{}
	entry = ResizeIndexEntry(eng, entry, 5000*layout.ClusterSize)

	rootBefore := entry.Offset()
	entry = ResizeIndexEntry(eng, entry, 5000*layout.ClusterSize-10)
	if entry.Offset() != rootBefore {
		t.Fatalf("resize within the same leaf count should not touch the root")
	}
}
