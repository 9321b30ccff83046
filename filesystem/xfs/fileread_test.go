package xfs

import "testing"

func TestReadInlineClampsToSizeAndBuffer(t *testing.T) {
	inode := &Inode{SizeBytes: 5, InlineData: []byte("hello world")}
	got, err := readInline(inode, 0, 100)
	if err != nil {
		t.Fatalf("readInline: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("readInline(0,100) = %q, want %q", got, "hello")
	}
}

func TestReadInlineOffsetPastEnd(t *testing.T) {
	inode := &Inode{SizeBytes: 5, InlineData: []byte("hello")}
	got, err := readInline(inode, 10, 5)
	if err != nil {
		t.Fatalf("readInline: %v", err)
	}
	if got != nil {
		t.Errorf("offset past end should yield no bytes, got %q", got)
	}
}

func TestReadInlineMidRange(t *testing.T) {
	inode := &Inode{SizeBytes: 11, InlineData: []byte("hello world")}
	got, err := readInline(inode, 6, 5)
	if err != nil {
		t.Fatalf("readInline: %v", err)
	}
	if string(got) != "world" {
		t.Errorf("readInline(6,5) = %q, want %q", got, "world")
	}
}

// TestReadFileExtentBacked exercises §4.9's EXTENTS read path: one extent
// (logical=0, physical=1, count=1) over a 512-byte block, verifying the
// resolved physical offset lands on the right bytes and holes read as zero.
func TestReadFileExtentBacked(t *testing.T) {
	g := &Geometry{BlockSize: 512, AGCount: 1, AGBlocks: 100, RelBlockBits: ceilLog2(100)}
	data := make([]byte, 100*512)
	payload := []byte("xfs-file-contents")
	copy(data[512:], payload)
	v := &Volume{source: &memReader{data: data}, geometry: g}

	extentBytes := encodeExtentDescriptor(0, 1, 1, false)
	inode := &Inode{
		DataForkType:        ForkExtents,
		SizeBytes:           uint64(len(payload)),
		NumberOfDataExtents: 1,
		InlineData:          extentBytes,
	}

	got, err := v.ReadFile(inode, 0, uint64(len(payload)))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("ReadFile = %q, want %q", got, payload)
	}
}

func TestReadFileHoleReadsZero(t *testing.T) {
	g := &Geometry{BlockSize: 512, AGCount: 1, AGBlocks: 100, RelBlockBits: ceilLog2(100)}
	data := make([]byte, 100*512)
	v := &Volume{source: &memReader{data: data}, geometry: g}

	// extent starts at logical block 2; blocks 0-1 are a hole.
	extentBytes := encodeExtentDescriptor(2, 1, 1, false)
	inode := &Inode{
		DataForkType:        ForkExtents,
		SizeBytes:           uint64(3 * 512),
		NumberOfDataExtents: 1,
		InlineData:          extentBytes,
	}

	got, err := v.ReadFile(inode, 0, 512)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	for i, bb := range got {
		if bb != 0 {
			t.Fatalf("byte %d of a hole read should be zero, got %#x", i, bb)
		}
	}
}

func TestReadFileUnwrittenExtentReadsZero(t *testing.T) {
	g := &Geometry{BlockSize: 512, AGCount: 1, AGBlocks: 100, RelBlockBits: ceilLog2(100)}
	data := make([]byte, 100*512)
	copy(data[512:], []byte("should-be-hidden"))
	v := &Volume{source: &memReader{data: data}, geometry: g}

	extentBytes := encodeExtentDescriptor(0, 1, 1, true)
	inode := &Inode{
		DataForkType:        ForkExtents,
		SizeBytes:           512,
		NumberOfDataExtents: 1,
		InlineData:          extentBytes,
	}

	got, err := v.ReadFile(inode, 0, 512)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	for i, bb := range got {
		if bb != 0 {
			t.Fatalf("byte %d of an unwritten extent read should be zero, got %#x", i, bb)
		}
	}
}
