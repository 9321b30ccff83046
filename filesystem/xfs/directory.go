package xfs

// DirEntry is one decoded directory entry, per §4.6's `list(inode)` ->
// sequence of (inode_number, name_bytes).
type DirEntry struct {
	InodeNumber uint64
	Name        []byte
	FileType    uint8 // 0 if the volume does not carry file-type bytes
}

const (
	blockDirMagic   = "XD2B"
	blockDirMagicV3 = "XDB3"
	freeTagSentinel = 0xffff
)

// blockDirHeaderSizeV2 is the v2 block-directory header: signature(4) +
// 3x(offset u16, size u16) free-region array = 16 bytes.
const blockDirHeaderSizeV2 = 4 + 3*4

// blockDirHeaderSizeV3 is the v3 block-directory header: signature(4) +
// checksum(4) + block_number(8) + lsn(8) + block_type_identifier(16) +
// owner_inode_number(8) + unknown1(4) + the same 3-entry free-region array
// as v2(12) + padding to the documented 64-byte total.
const blockDirHeaderSizeV3 = 64

// leafOffsetBlock is LIBFSXFS_DIRECTORY_LEAF_OFFSET expressed in logical
// fs-blocks: the fixed logical offset (2^35 bytes) at which the leaf
// hash-to-offset block lives, above which data blocks never appear in any
// of the multi-block layouts. The walker never descends into it — it only
// needs data blocks below this threshold (§4.6(c)).
func leafOffsetBlock(blockSize uint32) uint64 {
	return (uint64(1) << 35) / uint64(blockSize)
}

// ListDirectory implements §4.6: dispatch on the data fork type to the
// right layout and return every entry except `.` and `..`.
func (v *Volume) ListDirectory(inode *Inode) ([]DirEntry, error) {
	if !inode.IsDirectory() {
		return nil, errInvalidArgument("inode %d is not a directory", inode.Number)
	}
	switch inode.DataForkType {
	case ForkInline:
		return parseShortFormDirectory(inode.InlineData, v.geometry)
	case ForkExtents, ForkBTree:
		return v.listMultiBlockDirectory(inode)
	default:
		return nil, errInvalidData("directory inode %d has unsupported fork type %s", inode.Number, inode.DataForkType)
	}
}

// parseShortFormDirectory implements §4.6(a).
func parseShortFormDirectory(b []byte, g *Geometry) ([]DirEntry, error) {
	count, err := readU8(b, 0)
	if err != nil {
		return nil, err
	}
	count8, err := readU8(b, 1)
	if err != nil {
		return nil, err
	}
	numEntries := int(count)
	inumSize := 4
	if count8 != 0 {
		numEntries = int(count8)
		inumSize = 8
	}
	off := 2 + inumSize // skip parent inode number field
	entries := make([]DirEntry, 0, numEntries)
	for i := 0; i < numEntries; i++ {
		nameLen, err := readU8(b, off)
		if err != nil {
			return nil, err
		}
		if nameLen == 0 {
			return nil, errInvalidData("short-form directory entry %d has zero name length", i)
		}
		off++
		var fileType uint8
		if g.HasFileType() {
			fileType, err = readU8(b, off)
			if err != nil {
				return nil, err
			}
			off++
		}
		name, err := slice(b, off, int(nameLen))
		if err != nil {
			return nil, err
		}
		off += int(nameLen)
		var inodeNumber uint64
		if inumSize == 8 {
			inodeNumber, err = readU64(b, off)
		} else {
			var v32 uint32
			v32, err = readU32(b, off)
			inodeNumber = uint64(v32)
		}
		if err != nil {
			return nil, err
		}
		off += inumSize
		off += 2 // tag offset footer
		entries = append(entries, DirEntry{InodeNumber: inodeNumber, Name: append([]byte(nil), name...), FileType: fileType})
	}
	return entries, nil
}

// listMultiBlockDirectory implements §4.6(b)-(e): enumerate every logical
// directory block below the fixed leaf offset, decode its entries, and
// concatenate. The leaf/node indirection blocks above that offset are
// never visited, per §4.6(c)'s "walker ... never needs the hash table".
func (v *Volume) listMultiBlockDirectory(inode *Inode) ([]DirEntry, error) {
	g := v.geometry
	blocksPerDirBlock := uint64(g.DirBlockSize / g.BlockSize)
	if blocksPerDirBlock == 0 {
		blocksPerDirBlock = 1
	}
	limit := leafOffsetBlock(g.BlockSize)

	var entries []DirEntry
	for logical := uint64(0); logical < limit; logical += blocksPerDirBlock {
		if err := v.checkAbort(); err != nil {
			return nil, err
		}
		res, err := v.resolveExtent(inode, logical)
		if err != nil {
			return nil, Annotate(err, "listMultiBlockDirectory")
		}
		if res.IsHole {
			if res.RunLength == 0 {
				break // no more extents: end of directory data
			}
			continue
		}
		dirBlock := make([]byte, g.DirBlockSize)
		for sub := uint64(0); sub < blocksPerDirBlock; sub++ {
			off, err := g.AbsoluteByteOffset(res.PhysicalBlock+sub, 1)
			if err != nil {
				return nil, Annotate(err, "listMultiBlockDirectory")
			}
			if _, err := v.readAt(dirBlock[sub*uint64(g.BlockSize):(sub+1)*uint64(g.BlockSize)], off); err != nil {
				return nil, errIO(err, "reading directory block at logical offset %d", logical)
			}
		}
		blockEntries, err := parseDirDataBlock(dirBlock, g)
		if err != nil {
			return nil, Annotate(err, "listMultiBlockDirectory")
		}
		entries = append(entries, blockEntries...)
	}
	return entries, nil
}

// parseDirDataBlock implements the shared entry layout in §4.6(b)/(c):
// signature, a free-region header, then a mix of real entries and
// free-tagged gaps, 8-byte aligned.
func parseDirDataBlock(b []byte, g *Geometry) ([]DirEntry, error) {
	sig, err := signatureAny(b, 0, blockDirMagic, blockDirMagicV3)
	if err != nil {
		return nil, err
	}
	// v2 ("XD2B") headers are signature + 3x(offset u16, size u16) = 16
	// bytes. v3 ("XDB3") headers add a checksum, block number, LSN, block
	// type identifier, owner inode number and a reserved field ahead of the
	// same free-region array, for 64 bytes total.
	off := blockDirHeaderSizeV2
	if sig == blockDirMagicV3 {
		off = blockDirHeaderSizeV3
	}
	var entries []DirEntry
	for off+8 <= len(b) {
		tag, err := readU16(b, off)
		if err != nil {
			return nil, err
		}
		if tag == freeTagSentinel {
			length, err := readU16(b, off+2)
			if err != nil {
				return nil, err
			}
			if length < 4 {
				return nil, errInvalidData("directory free-tag region at offset %d has implausible length %d", off, length)
			}
			off += int(length)
			continue
		}

		start := off
		inodeNumber, err := readU64(b, off)
		if err != nil {
			return nil, err
		}
		off += 8
		nameLen, err := readU8(b, off)
		if err != nil {
			return nil, err
		}
		if nameLen == 0 || nameLen > 255 {
			return nil, errInvalidData("directory entry at offset %d has invalid name length %d", start, nameLen)
		}
		off++
		name, err := slice(b, off, int(nameLen))
		if err != nil {
			return nil, errOutOfBounds("directory entry name at offset %d overruns block bounds: %v", start, err)
		}
		off += int(nameLen)
		var fileType uint8
		if g.HasFileType() {
			fileType, err = readU8(b, off)
			if err != nil {
				return nil, err
			}
			off++
		}
		off += 2 // tag_offset footer

		aligned := (off - start + 7) &^ 7
		off = start + aligned

		if string(name) == "." || string(name) == ".." {
			continue
		}
		entries = append(entries, DirEntry{InodeNumber: inodeNumber, Name: append([]byte(nil), name...), FileType: fileType})
	}
	return entries, nil
}

// bytesEqualFold compares a directory-entry name against a path segment
// using the byte-wise Unicode-stream comparison semantics of §4.6/§4.8 —
// an exact byte comparison, since both sides are already normalized UTF-8
// on disk and no case-folding is defined for XFS names.
func bytesEqualFold(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
