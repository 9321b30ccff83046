package xfs

import "github.com/google/uuid"

// FormatVersion distinguishes the on-disk header family: v2 (format
// version 4, no CRC) vs v3 (format version 5, CRC-enabled, self-describing
// blocks).
type FormatVersion int

const (
	FormatV4 FormatVersion = 4
	FormatV5 FormatVersion = 5
)

// featureFlag bits, tested against Geometry.featureBits / secondaryFeatureBits.
const (
	featureAttr        uint16 = 0x0010 // extended-attribute fork enabled
	secondaryFeatureAttr2  uint32 = 0x0008 // v2 short-form attribute layout
	secondaryFeatureFType  uint32 = 0x0200 // file-type byte in directory entries
)

// Geometry holds the volume attributes derived from the superblock and
// frozen for the lifetime of the Volume (§3 "Volume"). It is immutable
// after Open and is shared, read-only, across every handle derived from a
// Volume.
type Geometry struct {
	FormatVersion          FormatVersion
	BlockSize              uint32
	SectorSize             uint16
	AGCount                uint32
	AGBlocks               uint32
	InodeSize              uint16
	RootInode              uint64
	DirBlockSize           uint32
	FeatureBits            uint16
	SecondaryFeatureBits   uint32
	RelBlockBits           uint // number_of_relative_block_number_bits
	RelInodeBits           uint // number_of_relative_inode_number_bits
	UUID                   uuid.UUID
	Label                  string
	InodesPerBlock         uint32
	InodesPerChunk         uint32
}

// HasAttrFork reports whether the extended-attribute fork feature bit is set.
func (g *Geometry) HasAttrFork() bool {
	return g.FeatureBits&featureAttr != 0
}

// HasAttr2 reports whether the v2 short-form attribute layout is enabled.
func (g *Geometry) HasAttr2() bool {
	return g.SecondaryFeatureBits&secondaryFeatureAttr2 != 0
}

// HasFileType reports whether directory entries carry a trailing file-type
// byte. Always true for v5.
func (g *Geometry) HasFileType() bool {
	return g.FormatVersion == FormatV5 || g.SecondaryFeatureBits&secondaryFeatureFType != 0
}

// SplitInode decomposes a 64-bit inode number into its allocation-group
// index and AG-relative inode number, per §3 "Inode number".
func (g *Geometry) SplitInode(ino uint64) (ag uint32, rel uint32) {
	rel = uint32(ino & ((1 << g.RelInodeBits) - 1))
	ag = uint32(ino >> g.RelInodeBits)
	return ag, rel
}

// MakeInode composes an absolute inode number from an AG index and an
// AG-relative inode number, the inverse of SplitInode.
func (g *Geometry) MakeInode(ag, rel uint32) uint64 {
	return uint64(ag)<<g.RelInodeBits | uint64(rel)
}

// SplitBlock decomposes a 64-bit block number into its allocation-group
// index and AG-relative block number, per §3 "Block number".
func (g *Geometry) SplitBlock(blk uint64) (ag uint32, rel uint32) {
	rel = uint32(blk & ((1 << g.RelBlockBits) - 1))
	ag = uint32(blk >> g.RelBlockBits)
	return ag, rel
}

// MakeBlock composes an absolute block number from an AG index and an
// AG-relative block number.
func (g *Geometry) MakeBlock(ag, rel uint32) uint64 {
	return uint64(ag)<<g.RelBlockBits | uint64(rel)
}

// ByteOffset computes the absolute byte offset of an AG-relative block
// number, per §3: "(ag_index × ag_block_count + rel_block) × block_size".
func (g *Geometry) ByteOffset(ag, rel uint32) int64 {
	return (int64(ag)*int64(g.AGBlocks) + int64(rel)) * int64(g.BlockSize)
}

// AbsoluteByteOffset decomposes blk and returns its byte offset, validating
// that both components are within the volume's geometry (the extent-map
// invariant in §8: "physical_block decomposes to (ag_index < ag_count,
// rel_block + count ≤ ag_block_count)").
func (g *Geometry) AbsoluteByteOffset(blk uint64, blockCount uint32) (int64, error) {
	ag, rel := g.SplitBlock(blk)
	if ag >= g.AGCount {
		return 0, errInvalidData("block %d resolves to AG %d >= AG count %d", blk, ag, g.AGCount)
	}
	if uint64(rel)+uint64(blockCount) > uint64(g.AGBlocks) {
		return 0, errInvalidData("block range [%d,+%d) in AG %d exceeds AG block count %d", rel, blockCount, ag, g.AGBlocks)
	}
	return g.ByteOffset(ag, rel), nil
}
