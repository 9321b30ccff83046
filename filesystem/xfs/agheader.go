package xfs

// agiHeader is the allocation-group inode-information header (§4.3):
// parsed just far enough to locate the root block of that AG's inode
// B+tree. Real XFS AGI headers also carry unlinked-inode hash buckets and,
// on v5, a CRC/LSN/UUID trailer; this decoder stops at what component 4
// needs, consistent with §2's "enough to locate the inode B+tree root"
// charter for this layer.
type agiHeader struct {
	sequenceNumber uint32
	length         uint32 // blocks in this AG
	count          uint32 // inodes allocated in this AG
	root           uint32 // AG-relative block number of the inode btree root
	level          uint32 // inode btree height
	freeCount      uint32
}

const agiMagic = "XAGI"

// parseAGI decodes the AGI header from the start of the third block (block
// 2) of an allocation group (AG layout: superblock copy, AGF, AGI, AGFL,
// then the AG's data blocks).
func parseAGI(b []byte) (*agiHeader, error) {
	if err := signature(b, 0, agiMagic); err != nil {
		return nil, err
	}
	seq, err := readU32(b, 8)
	if err != nil {
		return nil, err
	}
	length, err := readU32(b, 12)
	if err != nil {
		return nil, err
	}
	count, err := readU32(b, 16)
	if err != nil {
		return nil, err
	}
	root, err := readU32(b, 20)
	if err != nil {
		return nil, err
	}
	level, err := readU32(b, 24)
	if err != nil {
		return nil, err
	}
	freeCount, err := readU32(b, 28)
	if err != nil {
		return nil, err
	}
	return &agiHeader{
		sequenceNumber: seq,
		length:         length,
		count:          count,
		root:           root,
		level:          level,
		freeCount:      freeCount,
	}, nil
}

// agfHeader is the allocation-group free-space header: parsed only for its
// length field, which bounds-checks block numbers resolved inside the AG.
type agfHeader struct {
	length uint32
}

const agfMagic = "XAGF"

func parseAGF(b []byte) (*agfHeader, error) {
	if err := signature(b, 0, agfMagic); err != nil {
		return nil, err
	}
	length, err := readU32(b, 12)
	if err != nil {
		return nil, err
	}
	return &agfHeader{length: length}, nil
}

// readAGHeaders reads the AGF and AGI header blocks for the given AG index.
// AG layout addresses in filesystem blocks, not sectors: block 0 holds the
// superblock copy, block 1 the AGF, block 2 the AGI, block 3 the AGFL.
func (v *Volume) readAGHeaders(ag uint32) (*agfHeader, *agiHeader, error) {
	blockSize := int64(v.geometry.BlockSize)
	base := v.geometry.ByteOffset(ag, 0)

	agfBytes := make([]byte, blockSize)
	if _, err := v.readAt(agfBytes, base+blockSize); err != nil {
		return nil, nil, errIO(err, "reading AGF header for AG %d", ag)
	}
	agf, err := parseAGF(agfBytes)
	if err != nil {
		return nil, nil, Annotate(err, "parseAGF")
	}

	agiBytes := make([]byte, blockSize)
	if _, err := v.readAt(agiBytes, base+2*blockSize); err != nil {
		return nil, nil, errIO(err, "reading AGI header for AG %d", ag)
	}
	agi, err := parseAGI(agiBytes)
	if err != nil {
		return nil, nil, Annotate(err, "parseAGI")
	}

	return agf, agi, nil
}
