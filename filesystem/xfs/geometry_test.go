package xfs

import "testing"

func testGeometry() *Geometry {
	return &Geometry{
		FormatVersion: FormatV5,
		BlockSize:     4096,
		AGCount:       4,
		AGBlocks:      1000,
		RelBlockBits:  ceilLog2(1000),
		RelInodeBits:  relInodeBitsFor(1000, 64),
	}
}

func TestSplitMakeBlockRoundTrip(t *testing.T) {
	g := testGeometry()
	for ag := uint32(0); ag < g.AGCount; ag++ {
		for _, rel := range []uint32{0, 1, 500, g.AGBlocks - 1} {
			blk := g.MakeBlock(ag, rel)
			gotAG, gotRel := g.SplitBlock(blk)
			if gotAG != ag || gotRel != rel {
				t.Errorf("SplitBlock(MakeBlock(%d,%d)) = (%d,%d)", ag, rel, gotAG, gotRel)
			}
		}
	}
}

func TestSplitMakeInodeRoundTrip(t *testing.T) {
	g := testGeometry()
	for ag := uint32(0); ag < g.AGCount; ag++ {
		for _, rel := range []uint32{0, 1, 63, 127} {
			ino := g.MakeInode(ag, rel)
			gotAG, gotRel := g.SplitInode(ino)
			if gotAG != ag || gotRel != rel {
				t.Errorf("SplitInode(MakeInode(%d,%d)) = (%d,%d)", ag, rel, gotAG, gotRel)
			}
		}
	}
}

// TestByteOffsetExtentRead is concrete scenario 4 from spec.md §8: one
// extent (logical=0, physical=100, count=2), block_size=4096,
// ag_block_count=1000, ag_index=0 -> physical offset 100*4096.
func TestByteOffsetExtentRead(t *testing.T) {
	g := testGeometry()
	off := g.ByteOffset(0, 100)
	want := int64(100) * int64(g.BlockSize)
	if off != want {
		t.Errorf("ByteOffset(0,100) = %d, want %d", off, want)
	}
}

func TestAbsoluteByteOffsetBoundsChecked(t *testing.T) {
	g := testGeometry()

	if _, err := g.AbsoluteByteOffset(g.MakeBlock(g.AGCount, 0), 1); err == nil {
		t.Errorf("block in an AG index >= AGCount should fail")
	}

	// a block range that runs off the end of its AG.
	blk := g.MakeBlock(0, g.AGBlocks-1)
	if _, err := g.AbsoluteByteOffset(blk, 2); err == nil {
		t.Errorf("block range extending past AG end should fail")
	}

	if _, err := g.AbsoluteByteOffset(g.MakeBlock(0, 0), 1); err != nil {
		t.Errorf("valid block range should succeed: %v", err)
	}
}

func TestHasFeatureBits(t *testing.T) {
	g := &Geometry{FormatVersion: FormatV4, FeatureBits: featureAttr}
	if !g.HasAttrFork() {
		t.Errorf("HasAttrFork should be true when the attr bit is set")
	}
	if g.HasFileType() {
		t.Errorf("HasFileType should be false on v4 without the ftype bit")
	}

	g5 := &Geometry{FormatVersion: FormatV5}
	if !g5.HasFileType() {
		t.Errorf("HasFileType should always be true on v5")
	}
}
