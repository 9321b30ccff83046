package xfs

import (
	"encoding/binary"
	"testing"
)

func buildAGI(seq, length, count, root, level, freeCount uint32) []byte {
	b := make([]byte, 32)
	copy(b[0:4], agiMagic)
	binary.BigEndian.PutUint32(b[8:12], seq)
	binary.BigEndian.PutUint32(b[12:16], length)
	binary.BigEndian.PutUint32(b[16:20], count)
	binary.BigEndian.PutUint32(b[20:24], root)
	binary.BigEndian.PutUint32(b[24:28], level)
	binary.BigEndian.PutUint32(b[28:32], freeCount)
	return b
}

func buildAGF(length uint32) []byte {
	b := make([]byte, 16)
	copy(b[0:4], agfMagic)
	binary.BigEndian.PutUint32(b[12:16], length)
	return b
}

func TestParseAGI(t *testing.T) {
	b := buildAGI(1, 1000, 50, 7, 2, 10)
	agi, err := parseAGI(b)
	if err != nil {
		t.Fatalf("parseAGI: %v", err)
	}
	if agi.root != 7 || agi.level != 2 || agi.length != 1000 || agi.count != 50 || agi.freeCount != 10 {
		t.Errorf("parseAGI = %+v", agi)
	}
}

func TestParseAGIBadMagic(t *testing.T) {
	b := buildAGI(1, 1000, 50, 7, 2, 10)
	copy(b[0:4], "NOPE")
	if _, err := parseAGI(b); err == nil {
		t.Errorf("bad AGI magic should be rejected")
	}
}

func TestParseAGF(t *testing.T) {
	b := buildAGF(999)
	agf, err := parseAGF(b)
	if err != nil {
		t.Fatalf("parseAGF: %v", err)
	}
	if agf.length != 999 {
		t.Errorf("length = %d, want 999", agf.length)
	}
}

func TestParseAGFBadMagic(t *testing.T) {
	b := buildAGF(999)
	copy(b[0:4], "NOPE")
	if _, err := parseAGF(b); err == nil {
		t.Errorf("bad AGF magic should be rejected")
	}
}

// TestReadAGHeadersAddressesInBlocksNotSectors pins AG addressing to
// filesystem-block units (AGF at block 1, AGI at block 2) with a sector
// size that differs from the block size, the realistic case (512-byte
// sectors, 4096-byte blocks) where sector-based addressing would read
// garbage.
func TestReadAGHeadersAddressesInBlocksNotSectors(t *testing.T) {
	const blockSize = 4096
	const sectorSize = 512
	const agBlocks = 100
	g := &Geometry{
		BlockSize:    blockSize,
		SectorSize:   sectorSize,
		AGCount:      1,
		AGBlocks:     agBlocks,
		RelBlockBits: ceilLog2(agBlocks),
	}
	data := make([]byte, 3*blockSize)
	copy(data[blockSize:], buildAGF(777))
	copy(data[2*blockSize:], buildAGI(1, agBlocks, 50, 9, 0, 14))
	v := &Volume{source: &memReader{data: data}, geometry: g}

	agf, agi, err := v.readAGHeaders(0)
	if err != nil {
		t.Fatalf("readAGHeaders: %v", err)
	}
	if agf.length != 777 {
		t.Errorf("agf.length = %d, want 777", agf.length)
	}
	if agi.root != 9 {
		t.Errorf("agi.root = %d, want 9", agi.root)
	}
}
