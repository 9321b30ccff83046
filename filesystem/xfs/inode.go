package xfs

import "time"

// ForkType is the tagged variant describing how an inode's data (or
// attribute) fork area is encoded, per §3 "Fork type". The numeric values
// mirror the on-disk di_format byte.
type ForkType uint8

const (
	ForkDevice     ForkType = 0
	ForkInline     ForkType = 1
	ForkExtents    ForkType = 2
	ForkBTree      ForkType = 3
	ForkUUID       ForkType = 4
	ForkReverseMap ForkType = 5
)

func (f ForkType) String() string {
	switch f {
	case ForkDevice:
		return "DEVICE"
	case ForkInline:
		return "INLINE"
	case ForkExtents:
		return "EXTENTS"
	case ForkBTree:
		return "BTREE"
	case ForkUUID:
		return "UUID"
	case ForkReverseMap:
		return "REVERSE_MAP"
	default:
		return "UNKNOWN"
	}
}

// FileType is the 4-bit object-type nibble packed into the top of the mode
// field, following the conventional POSIX S_IFMT encoding.
type FileType uint16

const (
	FileTypeFIFO       FileType = 0x1000
	FileTypeChar       FileType = 0x2000
	FileTypeDirectory  FileType = 0x4000
	FileTypeBlock      FileType = 0x6000
	FileTypeRegular    FileType = 0x8000
	FileTypeSymlink    FileType = 0xA000
	FileTypeSocket     FileType = 0xC000
)

const fileTypeMask uint16 = 0xF000

// inodeFlag bits within the 16-bit on-disk flags field relevant to this
// decoder; the real format carries many more (realtime, no-defrag, ...)
// that have no bearing on read-only traversal and are left unparsed.
type inodeFlag uint16

const (
	inodeFlagBigtime inodeFlag = 0x0002
)

// Timestamp is a POSIX seconds+nanoseconds timestamp, decoded either from
// the legacy (seconds_i32, nanoseconds_u32) pair or from a v5 bigtime
// packed 64-bit nanoseconds-since-epoch value, per §4.4.
type Timestamp struct {
	Seconds     int64
	Nanoseconds uint32
}

func (t Timestamp) Time() time.Time {
	return time.Unix(t.Seconds, int64(t.Nanoseconds)).UTC()
}

// bigtimeEpochOffsetSeconds is the distance between the bigtime epoch and
// the Unix epoch: a bigtime value counts nanoseconds from 2^31 seconds
// before 1970, so decoding subtracts this offset to get Unix time.
const bigtimeEpochOffsetSeconds int64 = 1 << 31

// Inode is the decoded form of an on-disk inode record (§3 "Inode"). It is
// never mutated once returned by parseInode, and its lifetime is bounded by
// a single read — callers hold no reference back into volume state beyond
// the Geometry needed to interpret its forks.
type Inode struct {
	Number               uint64
	FileMode             uint16 // 12-bit permissions + 4-bit type
	Type                 FileType
	LinkCount            uint16
	OwnerUID             uint32
	OwnerGID             uint32
	SizeBytes            uint64
	NumberOfDataBlocks   uint64
	AccessTime           Timestamp
	ModifyTime           Timestamp
	ChangeTime           Timestamp
	CreateTime           Timestamp // zero value on v4
	Flags                uint16
	DataForkType         ForkType
	AttributesForkType   ForkType
	NumberOfDataExtents  uint32
	NumberOfAttrExtents  uint16
	AttributesForkOffset uint8 // in units of 8 bytes, relative to end of header
	Generation           uint32 // v5 only
	InlineData           []byte // the raw fork area, before fork-specific decode
	AttrInlineData       []byte
	headerSize           int
}

const (
	inodeHeaderSizeV2 = 96
	inodeHeaderSizeV3 = 176
	inodeMagic        = "IN"
)

func bigtime(b []byte, off int) (Timestamp, error) {
	raw, err := readU64(b, off)
	if err != nil {
		return Timestamp{}, err
	}
	// Packed as nanoseconds since an epoch shifted to allow pre-1970 dates.
	totalNanos := int64(raw) - bigtimeEpochOffsetSeconds*int64(time.Second)
	sec := totalNanos / int64(time.Second)
	nsec := totalNanos % int64(time.Second)
	if nsec < 0 {
		nsec += int64(time.Second)
		sec--
	}
	return Timestamp{Seconds: sec, Nanoseconds: uint32(nsec)}, nil
}

func legacyTimestamp(b []byte, off int) (Timestamp, error) {
	sec, err := readU32(b, off)
	if err != nil {
		return Timestamp{}, err
	}
	nsec, err := readU32(b, off+4)
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Seconds: int64(int32(sec)), Nanoseconds: nsec}, nil
}

func decodeTimestamp(b []byte, off int, bigtimeEnabled bool) (Timestamp, error) {
	if bigtimeEnabled {
		return bigtime(b, off)
	}
	return legacyTimestamp(b, off)
}

// parseInode implements §4.4: decode the fixed header and locate the fork
// area, without yet decoding the fork's contents (that is component 5's
// extent-map / directory / attribute specializations, built on top of this
// record).
func parseInode(b []byte, number uint64, g *Geometry) (*Inode, error) {
	if err := signature(b, 0, inodeMagic); err != nil {
		return nil, err
	}
	headerSize := inodeHeaderSizeV2
	if g.FormatVersion == FormatV5 {
		headerSize = inodeHeaderSizeV3
	}
	if len(b) < headerSize {
		return nil, errInvalidData("inode buffer too short: %d bytes, need >= %d for format version %d", len(b), headerSize, g.FormatVersion)
	}

	mode, err := readU16(b, 2)
	if err != nil {
		return nil, err
	}
	dataForkTypeRaw, err := readU8(b, 5)
	if err != nil {
		return nil, err
	}
	linkCount, err := readU16(b, 6)
	if err != nil {
		return nil, err
	}
	uid, err := readU32(b, 8)
	if err != nil {
		return nil, err
	}
	gid, err := readU32(b, 12)
	if err != nil {
		return nil, err
	}
	flags, err := readU16(b, 90)
	if err != nil {
		return nil, err
	}
	bigtimeEnabled := inodeFlag(flags)&inodeFlagBigtime != 0

	atime, err := decodeTimestamp(b, 32, bigtimeEnabled)
	if err != nil {
		return nil, err
	}
	mtime, err := decodeTimestamp(b, 40, bigtimeEnabled)
	if err != nil {
		return nil, err
	}
	ctime, err := decodeTimestamp(b, 48, bigtimeEnabled)
	if err != nil {
		return nil, err
	}
	size, err := readU64(b, 56)
	if err != nil {
		return nil, err
	}
	nblocks, err := readU64(b, 64)
	if err != nil {
		return nil, err
	}
	nextents, err := readU32(b, 76)
	if err != nil {
		return nil, err
	}
	nattrextents, err := readU16(b, 80)
	if err != nil {
		return nil, err
	}
	forkoff, err := readU8(b, 82)
	if err != nil {
		return nil, err
	}
	attrForkTypeRaw, err := readU8(b, 83)
	if err != nil {
		return nil, err
	}

	dataForkType, err := validateForkType(dataForkTypeRaw)
	if err != nil {
		return nil, err
	}
	attrForkType, err := validateForkType(attrForkTypeRaw)
	if err != nil {
		return nil, err
	}

	var (
		generation uint32
		crtime     Timestamp
	)
	if g.FormatVersion == FormatV5 {
		generation, err = readU32(b, 116)
		if err != nil {
			return nil, err
		}
		selfIno, err := readU64(b, 152)
		if err != nil {
			return nil, err
		}
		if selfIno != number {
			return nil, errInvalidData("v5 inode self-number %d does not match requested inode %d", selfIno, number)
		}
		crtime, err = decodeTimestamp(b, 144, bigtimeEnabled)
		if err != nil {
			return nil, err
		}
		if err := verifyCRC32C(b[:headerSize], 100); err != nil {
			return nil, err
		}
	}

	forkAreaSize := len(b) - headerSize
	dataForkSize := forkAreaSize
	if forkoff != 0 {
		dataForkSize = int(forkoff) * 8
	}
	if dataForkSize < 0 || dataForkSize > forkAreaSize {
		return nil, errInvalidData("data fork size %d exceeds fork area of %d bytes", dataForkSize, forkAreaSize)
	}
	dataFork, err := slice(b, headerSize, dataForkSize)
	if err != nil {
		return nil, err
	}
	attrFork, err := slice(b, headerSize+dataForkSize, forkAreaSize-dataForkSize)
	if err != nil {
		return nil, err
	}

	return &Inode{
		Number:               number,
		FileMode:             mode,
		Type:                 FileType(mode & fileTypeMask),
		LinkCount:            linkCount,
		OwnerUID:             uid,
		OwnerGID:             gid,
		SizeBytes:            size,
		NumberOfDataBlocks:   nblocks,
		AccessTime:           atime,
		ModifyTime:           mtime,
		ChangeTime:           ctime,
		CreateTime:           crtime,
		Flags:                flags,
		DataForkType:         dataForkType,
		AttributesForkType:   attrForkType,
		NumberOfDataExtents:  nextents,
		NumberOfAttrExtents:  nattrextents,
		AttributesForkOffset: forkoff,
		Generation:           generation,
		InlineData:           dataFork,
		AttrInlineData:       attrFork,
		headerSize:           headerSize,
	}, nil
}

func validateForkType(raw uint8) (ForkType, error) {
	switch ForkType(raw) {
	case ForkDevice, ForkInline, ForkExtents, ForkBTree, ForkUUID, ForkReverseMap:
		return ForkType(raw), nil
	default:
		return 0, errUnsupportedValue("unrecognized fork type byte %#02x", raw)
	}
}

// IsDirectory, IsRegular, IsSymlink report the inode's object type.
func (i *Inode) IsDirectory() bool { return i.Type == FileTypeDirectory }
func (i *Inode) IsRegular() bool   { return i.Type == FileTypeRegular }
func (i *Inode) IsSymlink() bool   { return i.Type == FileTypeSymlink }

// Permissions returns the low 12 bits of FileMode (owner/group/other rwx
// plus setuid/setgid/sticky).
func (i *Inode) Permissions() uint16 {
	return i.FileMode & 0x0FFF
}
