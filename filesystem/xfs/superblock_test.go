package xfs

import (
	"testing"

	"github.com/forensicfs/go-fsxfs/util"
)

// TestParseSuperblockSanity is concrete scenario 1 from spec.md §8: magic
// XFSB, block_size=4096, ag_count=4, root_inode=128.
func TestParseSuperblockSanity(t *testing.T) {
	b := buildSuperblock(4096, 1000, 4, 128, 256, 5)
	g, err := parseSuperblock(b)
	if err != nil {
		t.Fatalf("parseSuperblock: %v", err)
	}
	if g.BlockSize != 4096 {
		t.Errorf("BlockSize = %d, want 4096", g.BlockSize)
	}
	if g.RootInode != 128 {
		t.Errorf("RootInode = %d, want 128", g.RootInode)
	}
	if g.AGCount != 4 {
		t.Errorf("AGCount = %d, want 4", g.AGCount)
	}
	if g.FormatVersion != FormatV5 {
		t.Errorf("FormatVersion = %v, want FormatV5", g.FormatVersion)
	}
	if g.Label != "testvol" {
		t.Errorf("Label = %q, want %q", g.Label, "testvol")
	}
}

func TestParseSuperblockBadMagic(t *testing.T) {
	b := buildSuperblock(4096, 1000, 4, 128, 256, 5)
	copy(b[0:4], "NOPE")
	_, err := parseSuperblock(b)
	if err == nil {
		t.Fatalf("expected signature mismatch")
	}
	if kind, ok := KindOf(err); !ok || kind != KindSignatureMismatch {
		t.Errorf("expected KindSignatureMismatch, got %v", kind)
	}
}

func TestParseSuperblockUnsupportedVersion(t *testing.T) {
	b := buildSuperblock(4096, 1000, 4, 128, 256, 3)
	_, err := parseSuperblock(b)
	if err == nil {
		t.Fatalf("expected unsupported-version error")
	}
	if kind, ok := KindOf(err); !ok || kind != KindUnsupportedVersion {
		t.Errorf("expected KindUnsupportedVersion, got %v", kind)
	}
}

func TestParseSuperblockBadBlockSize(t *testing.T) {
	b := buildSuperblock(4096, 1000, 4, 128, 256, 5)
	// 4097 is not a power of two.
	b[4], b[5], b[6], b[7] = 0, 0, 0x10, 0x01
	_, err := parseSuperblock(b)
	if err == nil {
		t.Fatalf("expected invalid-data error for non-power-of-two block size")
	}
	if kind, ok := KindOf(err); !ok || kind != KindInvalidData {
		t.Errorf("expected KindInvalidData, got %v", kind)
	}
}

func TestParseSuperblockTooShort(t *testing.T) {
	_, err := parseSuperblock(make([]byte, 10))
	if err == nil {
		t.Fatalf("expected error for undersized buffer")
	}
}

func TestParseSuperblockRootInodeOutOfRange(t *testing.T) {
	// root inode decomposes to an AG index >= ag_count.
	b := buildSuperblock(4096, 1000, 1, 1<<40, 256, 5)
	_, err := parseSuperblock(b)
	if err == nil {
		t.Fatalf("expected invalid-data error for out-of-range root inode")
	}
}

// TestSuperblockFieldDriftDiagnostics builds two superblocks that should be
// byte-identical and, on any mismatch, dumps the differing rows the same way
// the decoder's own fixture comparisons do, rather than reporting only "not
// equal".
func TestSuperblockFieldDriftDiagnostics(t *testing.T) {
	a := buildSuperblock(4096, 1000, 4, 128, 256, 5)
	b := buildSuperblock(4096, 1000, 4, 128, 256, 5)
	if different, dump := util.DumpByteSlicesWithDiffs(a, b, 16, true, true, false); different {
		t.Fatalf("two builds of the same superblock fixture diverged:\n%s", dump)
	}
}
