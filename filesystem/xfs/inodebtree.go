package xfs

import (
	"sort"

	"github.com/forensicfs/go-fsxfs/util/bitmap"
)

// inobtMaxDepth bounds the inode B+tree descent (§4.3: "cap depth at 16").
const inobtMaxDepth = 16

const (
	inobtBlockMagic   = "IABT"
	inobtBlockMagicV3 = "IAB3"
)

// inobtBlockHeader is the common header of every inode-btree block
// (internal or leaf).
type inobtBlockHeader struct {
	level   uint16
	numrecs uint16
}

// inobtBlockHeaderSize is the on-disk size of the common (non-CRC) btree
// block header: magic(4) + level(2) + numrecs(2) + leftsib(4) + rightsib(4).
// v3 blocks carry a longer CRC/UUID/LSN trailer after it that this layer
// never needs to read, but the sibling pointers are part of every version's
// header and the record array always starts after them.
const inobtBlockHeaderSize = 16

func parseInobtBlockHeader(b []byte) (*inobtBlockHeader, bool, error) {
	isV3 := false
	if err := signature(b, 0, inobtBlockMagic); err != nil {
		if err2 := signature(b, 0, inobtBlockMagicV3); err2 != nil {
			return nil, false, errSignatureMismatch("block is neither an IABT nor IAB3 inode btree block")
		}
		isV3 = true
	}
	level, err := readU16(b, 4)
	if err != nil {
		return nil, false, err
	}
	numrecs, err := readU16(b, 6)
	if err != nil {
		return nil, false, err
	}
	return &inobtBlockHeader{level: level, numrecs: numrecs}, isV3, nil
}

// inobtKeyPtrSize is the size of one (key, child block pointer) pair in an
// internal inode-btree node.
const inobtKeyPtrSize = 8

// inobtRecSize is the size of one leaf record: (start_inode, startblock,
// free_mask).
const inobtRecSize = 16

// locateInode implements §4.3: resolve an absolute inode number to the
// absolute byte offset of its inode record.
func (v *Volume) locateInode(inodeNumber uint64) (int64, error) {
	ag, rel := v.geometry.SplitInode(inodeNumber)
	if ag >= v.geometry.AGCount {
		return 0, errInvalidData("inode %d decomposes to AG %d >= AG count %d", inodeNumber, ag, v.geometry.AGCount)
	}

	_, agi, err := v.readAGHeaders(ag)
	if err != nil {
		return 0, Annotate(err, "locateInode")
	}

	visited := bitmap.NewBits(int(v.geometry.AGBlocks))
	blockNum := agi.root
	depth := 0
	for {
		if depth > inobtMaxDepth {
			return 0, errInvalidData("inode btree descent exceeded max depth %d", inobtMaxDepth)
		}
		if already, err := visited.IsSet(int(blockNum)); err != nil {
			return 0, errInvalidData("inode btree block %d is outside AG bounds: %v", blockNum, err)
		} else if already {
			return 0, errInvalidData("inode btree descent revisited block %d: cyclic or corrupt tree", blockNum)
		}
		if err := visited.Set(int(blockNum)); err != nil {
			return 0, errInvalidData("inode btree block %d is outside AG bounds: %v", blockNum, err)
		}
		blockBytes := make([]byte, v.geometry.BlockSize)
		off := v.geometry.ByteOffset(ag, blockNum)
		if _, err := v.readAt(blockBytes, off); err != nil {
			return 0, errIO(err, "reading inode btree block at AG %d block %d", ag, blockNum)
		}
		hdr, _, err := parseInobtBlockHeader(blockBytes)
		if err != nil {
			return 0, Annotate(err, "locateInode")
		}

		if hdr.level == 0 {
			offset, err := findInodeInLeaf(blockBytes, hdr.numrecs, rel, v.geometry)
			if err != nil {
				return 0, Annotate(err, "locateInode")
			}
			return v.geometry.ByteOffset(ag, 0) + offset, nil
		}

		next, err := findChildInInternal(blockBytes, hdr.numrecs, rel)
		if err != nil {
			return 0, Annotate(err, "locateInode")
		}
		blockNum = next
		depth++
	}
}

// findChildInInternal binary-searches the sorted (key, child block) array
// for the largest key <= rel, per §4.3.
func findChildInInternal(b []byte, numrecs uint16, rel uint32) (uint32, error) {
	n := int(numrecs)
	if n == 0 {
		return 0, errInvalidData("internal inode btree node has zero records")
	}
	keys := make([]uint32, n)
	ptrs := make([]uint32, n)
	for i := 0; i < n; i++ {
		recOff := inobtBlockHeaderSize + i*inobtKeyPtrSize
		key, err := readU32(b, recOff)
		if err != nil {
			return 0, err
		}
		ptr, err := readU32(b, recOff+4)
		if err != nil {
			return 0, err
		}
		keys[i] = key
		ptrs[i] = ptr
	}
	idx := sort.Search(n, func(i int) bool { return keys[i] > rel }) - 1
	if idx < 0 {
		return 0, errInvalidData("relative inode %d precedes the first key %d in internal node", rel, keys[0])
	}
	return ptrs[idx], nil
}

// findInodeInLeaf binary-searches leaf records (start_inode, startblock,
// free_mask) for the chunk containing rel, then computes the byte offset
// within the AG of the inode record, per §4.3: "offset within the block =
// (rel_inode mod inodes_per_chunk) × inode_size".
func findInodeInLeaf(b []byte, numrecs uint16, rel uint32, g *Geometry) (int64, error) {
	n := int(numrecs)
	if n == 0 {
		return 0, errNotFound("inode btree leaf has zero records")
	}
	starts := make([]uint32, n)
	startBlocks := make([]uint32, n)
	for i := 0; i < n; i++ {
		recOff := inobtBlockHeaderSize + i*inobtRecSize
		start, err := readU32(b, recOff)
		if err != nil {
			return 0, err
		}
		startBlock, err := readU32(b, recOff+4)
		if err != nil {
			return 0, err
		}
		starts[i] = start
		startBlocks[i] = startBlock
	}
	idx := sort.Search(n, func(i int) bool { return starts[i] > rel }) - 1
	if idx < 0 {
		return 0, errNotFound("inode %d precedes the first chunk start %d", rel, starts[0])
	}
	chunkStart := starts[idx]
	if rel-chunkStart >= g.InodesPerChunk {
		return 0, errNotFound("inode %d is not covered by any inode btree chunk", rel)
	}
	offsetInChunk := rel - chunkStart
	blockDelta := offsetInChunk / g.InodesPerBlock
	indexInBlock := offsetInChunk % g.InodesPerBlock
	block := startBlocks[idx] + blockDelta
	return int64(block)*int64(g.BlockSize) + int64(indexInBlock)*int64(g.InodeSize), nil
}
