package xfs

import (
	"bytes"
	"math/bits"
	"strings"

	"github.com/google/uuid"
)

const (
	superblockMagic = "XFSB"
	// superblockMinSize is the minimum number of bytes parseSuperblock needs;
	// the real structure runs longer (CRC, log incompat flags, metadata
	// UUID, ...) but nothing past this point is needed to resolve the root
	// inode and walk the volume, which is all §4.2 requires of this layer.
	superblockMinSize = 208
)

// parseSuperblock implements §4.2: read sector 0 and produce the frozen
// Geometry for a Volume, or fail with SignatureMismatch / UnsupportedVersion
// / InvalidGeometry (reported here as InvalidData, per the §7 taxonomy
// which does not carry a distinct "InvalidGeometry" kind).
func parseSuperblock(b []byte) (*Geometry, error) {
	if len(b) < superblockMinSize {
		return nil, errInvalidData("superblock buffer too short: %d bytes, need >= %d", len(b), superblockMinSize)
	}
	if err := signature(b, 0, superblockMagic); err != nil {
		return nil, err
	}

	blockSize, err := readU32(b, 4)
	if err != nil {
		return nil, err
	}
	if !isPowerOfTwoInRange(blockSize, 512, 65536) {
		return nil, errInvalidData("block size %d is not a power of two in [512, 65536]", blockSize)
	}

	rootInode, err := readU64(b, 56)
	if err != nil {
		return nil, err
	}
	agBlocks, err := readU32(b, 84)
	if err != nil {
		return nil, err
	}
	agCount, err := readU32(b, 88)
	if err != nil {
		return nil, err
	}
	versionAndFeatures, err := readU16(b, 100)
	if err != nil {
		return nil, err
	}
	sectorSize, err := readU16(b, 102)
	if err != nil {
		return nil, err
	}
	if !isPowerOfTwoInRange(uint32(sectorSize), 512, 65536) {
		return nil, errInvalidData("sector size %d is not a power of two in [512, 65536]", sectorSize)
	}
	inodeSize, err := readU16(b, 104)
	if err != nil {
		return nil, err
	}
	if !isPowerOfTwoInRange(uint32(inodeSize), 256, 2048) {
		return nil, errInvalidData("inode size %d is not a power of two in [256, 2048]", inodeSize)
	}
	inodesPerBlockRaw, err := readU16(b, 106)
	if err != nil {
		return nil, err
	}
	dirBlockLog, err := readU8(b, 192)
	if err != nil {
		return nil, err
	}
	secondaryFeatures, err := readU32(b, 200)
	if err != nil {
		return nil, err
	}

	version := versionAndFeatures & 0x000f
	var formatVersion FormatVersion
	switch version {
	case 4:
		formatVersion = FormatV4
	case 5:
		formatVersion = FormatV5
	default:
		return nil, errUnsupportedVersion("unsupported superblock version nibble %d (only 4 and 5 are handled)", version)
	}

	rawUUID, err := slice(b, 32, 16)
	if err != nil {
		return nil, err
	}
	volUUID, err := uuid.FromBytes(rawUUID)
	if err != nil {
		return nil, errInvalidData("malformed volume UUID: %v", err)
	}

	rawLabel, err := slice(b, 108, 12)
	if err != nil {
		return nil, err
	}
	label := strings.TrimRight(string(bytes.TrimRight(rawLabel, "\x00")), " ")

	// overflow check: block size * AG block count must not overflow 64-bit.
	if agBlocks != 0 && uint64(blockSize) > (1<<63)/uint64(agBlocks) {
		return nil, errInvalidData("block_size (%d) * ag_block_count (%d) overflows 64 bits", blockSize, agBlocks)
	}

	ag, rel := splitInode64(rootInode, relInodeBitsFor(agBlocks, inodesPerBlockRaw))
	if agCount == 0 || ag >= agCount {
		return nil, errInvalidData("root inode %d decomposes to AG %d, but volume has only %d AGs", rootInode, ag, agCount)
	}
	_ = rel

	g := &Geometry{
		FormatVersion:        formatVersion,
		BlockSize:            blockSize,
		SectorSize:           sectorSize,
		AGCount:              agCount,
		AGBlocks:             agBlocks,
		InodeSize:            inodeSize,
		RootInode:            rootInode,
		FeatureBits:          versionAndFeatures,
		SecondaryFeatureBits: secondaryFeatures,
		RelBlockBits:         ceilLog2(agBlocks),
		InodesPerBlock:       uint32(inodesPerBlockRaw),
		UUID:                 volUUID,
		Label:                label,
	}
	g.RelInodeBits = relInodeBitsFor(agBlocks, inodesPerBlockRaw)
	g.DirBlockSize = blockSize << dirBlockLog
	g.InodesPerChunk = inodesPerChunk

	return g, nil
}

// inodesPerChunk is the fixed inode-btree chunk size XFS allocates inodes
// in (64 inodes, regardless of inode size); component 3 and 4 both rely on
// it to map a relative inode number to the chunk that holds it.
const inodesPerChunk uint32 = 64

func relInodeBitsFor(agBlocks uint32, inodesPerBlock uint16) uint {
	return ceilLog2(agBlocks) + ceilLog2(uint32(inodesPerBlock))
}

func splitInode64(ino uint64, relBits uint) (ag uint32, rel uint32) {
	rel = uint32(ino & ((1 << relBits) - 1))
	ag = uint32(ino >> relBits)
	return ag, rel
}

// ceilLog2 returns the ceiling of log2(n), treating n==0 or n==1 as 0.
func ceilLog2(n uint32) uint {
	if n <= 1 {
		return 0
	}
	return uint(bits.Len32(n - 1))
}

func isPowerOfTwoInRange(v, lo, hi uint32) bool {
	if v < lo || v > hi {
		return false
	}
	return v&(v-1) == 0
}
