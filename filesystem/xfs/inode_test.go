package xfs

import (
	"encoding/binary"
	"hash/crc32"
	"testing"
)

// buildInode encodes a minimal v4 or v5 inode record, header only plus an
// optional fork payload placed immediately after the header (forkoff=0
// means the whole fork area is the data fork).
func buildInode(v5 bool, number uint64, fileType FileType, dataForkType, attrForkType uint8, size uint64, forkData []byte) []byte {
	headerSize := inodeHeaderSizeV2
	if v5 {
		headerSize = inodeHeaderSizeV3
	}
	b := make([]byte, headerSize+len(forkData))
	copy(b[0:2], inodeMagic)
	binary.BigEndian.PutUint16(b[2:4], uint16(fileType)|0o755)
	b[5] = dataForkType
	binary.BigEndian.PutUint16(b[6:8], 1) // link count
	binary.BigEndian.PutUint64(b[56:64], size)
	binary.BigEndian.PutUint32(b[76:80], 1) // nextents
	b[82] = 0                               // forkoff: whole area is data fork
	b[83] = attrForkType
	copy(b[headerSize:], forkData)

	if v5 {
		binary.BigEndian.PutUint64(b[152:160], number)
		crcBuf := make([]byte, len(b[:headerSize]))
		copy(crcBuf, b[:headerSize])
		crcBuf[100], crcBuf[101], crcBuf[102], crcBuf[103] = 0, 0, 0, 0
		sum := crc32.Checksum(crcBuf, crc32cTable)
		b[100] = byte(sum)
		b[101] = byte(sum >> 8)
		b[102] = byte(sum >> 16)
		b[103] = byte(sum >> 24)
	}
	return b
}

func v4Geometry() *Geometry {
	return &Geometry{FormatVersion: FormatV4}
}

func v5Geometry() *Geometry {
	return &Geometry{FormatVersion: FormatV5}
}

func TestParseInodeV4Directory(t *testing.T) {
	b := buildInode(false, 128, FileTypeDirectory, uint8(ForkInline), uint8(ForkInline), 64, []byte("shortform-dir-bytes"))
	inode, err := parseInode(b, 128, v4Geometry())
	if err != nil {
		t.Fatalf("parseInode: %v", err)
	}
	if !inode.IsDirectory() {
		t.Errorf("expected a directory inode")
	}
	if inode.SizeBytes != 64 {
		t.Errorf("SizeBytes = %d, want 64", inode.SizeBytes)
	}
	if string(inode.InlineData) != "shortform-dir-bytes" {
		t.Errorf("InlineData = %q", inode.InlineData)
	}
	if inode.CreateTime != (Timestamp{}) {
		t.Errorf("v4 inode should have a zero-value CreateTime")
	}
}

func TestParseInodeV5RegularFileChecksSelfNumber(t *testing.T) {
	b := buildInode(true, 99, FileTypeRegular, uint8(ForkExtents), uint8(ForkDevice), 4096, nil)
	inode, err := parseInode(b, 99, v5Geometry())
	if err != nil {
		t.Fatalf("parseInode: %v", err)
	}
	if !inode.IsRegular() {
		t.Errorf("expected a regular file inode")
	}
	if inode.DataForkType != ForkExtents {
		t.Errorf("DataForkType = %v, want EXTENTS", inode.DataForkType)
	}
}

func TestParseInodeV5SelfNumberMismatch(t *testing.T) {
	b := buildInode(true, 99, FileTypeRegular, uint8(ForkExtents), uint8(ForkDevice), 4096, nil)
	if _, err := parseInode(b, 100, v5Geometry()); err == nil {
		t.Errorf("mismatched self-inode number should be rejected")
	}
}

func TestParseInodeBadMagic(t *testing.T) {
	b := buildInode(false, 1, FileTypeRegular, uint8(ForkInline), uint8(ForkInline), 0, nil)
	b[0], b[1] = 'X', 'X'
	if _, err := parseInode(b, 1, v4Geometry()); err == nil {
		t.Errorf("bad inode magic should be rejected")
	}
}

func TestParseInodeBadForkType(t *testing.T) {
	b := buildInode(false, 1, FileTypeRegular, 0xff, uint8(ForkInline), 0, nil)
	if _, err := parseInode(b, 1, v4Geometry()); err == nil {
		t.Errorf("unrecognized fork type byte should be rejected")
	}
}

func TestInodePermissions(t *testing.T) {
	inode := &Inode{FileMode: uint16(FileTypeRegular) | 0o644}
	if inode.Permissions() != 0o644 {
		t.Errorf("Permissions() = %#o, want 0644", inode.Permissions())
	}
}
