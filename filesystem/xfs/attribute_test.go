package xfs

import (
	"encoding/binary"
	"testing"
)

// buildAttrLeafBlock encodes a single-entry leaf attribute block: the
// generic da-node block info (forw/back/magic/pad) followed by the leaf
// header and one local (inline) value record, matching the layout
// parseAttrBlock decodes.
func buildAttrLeafBlock(blockSize int, ns attrNamespace, name, value string) []byte {
	b := make([]byte, blockSize)
	binary.BigEndian.PutUint16(b[8:10], attrLeafMagic)
	binary.BigEndian.PutUint16(b[12:14], 1) // number_of_entries

	const leafHeaderSize = 32
	const entrySize = 8
	recSize := 3 + len(name) + len(value)
	valOff := blockSize - recSize
	binary.BigEndian.PutUint16(b[14:16], uint16(recSize)) // usedbytes
	binary.BigEndian.PutUint16(b[16:18], uint16(valOff))  // firstused

	binary.BigEndian.PutUint32(b[leafHeaderSize:leafHeaderSize+4], 0xdeadbeef) // name_hash, unused
	binary.BigEndian.PutUint16(b[leafHeaderSize+4:leafHeaderSize+6], uint16(valOff))
	b[leafHeaderSize+6] = byte(ns) | attrFlagLocal

	binary.BigEndian.PutUint16(b[valOff:valOff+2], uint16(len(value)))
	b[valOff+2] = byte(len(name))
	copy(b[valOff+3:], name)
	copy(b[valOff+3+len(name):], value)

	_ = entrySize
	return b
}

// buildShortFormAttributes encodes entries per §4.7(a): total_size(u16),
// entry_count(u8), pad(u8), then per entry name_len/value_len/flags/name/value.
func buildShortFormAttributes(entries []struct {
	ns    attrNamespace
	name  string
	value string
}) []byte {
	b := []byte{0, 0, byte(len(entries)), 0}
	for _, e := range entries {
		b = append(b, byte(len(e.name)), byte(len(e.value)), byte(e.ns))
		b = append(b, e.name...)
		b = append(b, e.value...)
	}
	return b
}

// TestParseShortFormAttributesSELinux is concrete scenario 3 from spec.md
// §8: a short-form attribute security.selinux with a non-empty value.
func TestParseShortFormAttributesSELinux(t *testing.T) {
	b := buildShortFormAttributes([]struct {
		ns    attrNamespace
		name  string
		value string
	}{
		{attrNamespaceSecure, "selinux", "unconfined_u:object_r:default_t:s0"},
	})
	attrs, err := parseShortFormAttributes(b, 1)
	if err != nil {
		t.Fatalf("parseShortFormAttributes: %v", err)
	}
	if len(attrs) != 1 {
		t.Fatalf("got %d attributes, want 1", len(attrs))
	}
	if string(attrs[0].Name) != "security.selinux" {
		t.Errorf("Name = %q, want %q", attrs[0].Name, "security.selinux")
	}
	if attrs[0].IsRemote() {
		t.Errorf("short-form attribute value should be inline")
	}
	if string(attrs[0].inlineValue) != "unconfined_u:object_r:default_t:s0" {
		t.Errorf("inline value = %q", attrs[0].inlineValue)
	}
}

func TestParseShortFormAttributesMultipleNamespaces(t *testing.T) {
	b := buildShortFormAttributes([]struct {
		ns    attrNamespace
		name  string
		value string
	}{
		{attrNamespaceUser, "comment", "hi"},
		{attrNamespaceTrusted, "overlay.opaque", "y"},
		{attrNamespaceSecure, "capability", "\x00"},
	})
	attrs, err := parseShortFormAttributes(b, 1)
	if err != nil {
		t.Fatalf("parseShortFormAttributes: %v", err)
	}
	want := []string{"comment", "trusted.overlay.opaque", "security.capability"}
	if len(attrs) != len(want) {
		t.Fatalf("got %d attributes, want %d", len(attrs), len(want))
	}
	for i, name := range want {
		if string(attrs[i].Name) != name {
			t.Errorf("attrs[%d].Name = %q, want %q", i, attrs[i].Name, name)
		}
	}
}

func TestParseShortFormAttributesBadNamespace(t *testing.T) {
	b := []byte{0, 0, 1, 0, 4, 1, 0x07, 'n', 'a', 'm', 'e', 'x'}
	if _, err := parseShortFormAttributes(b, 1); err == nil {
		t.Errorf("unrecognized namespace bits should be rejected")
	}
}

func TestLookupAttributeNotFound(t *testing.T) {
	v := &Volume{}
	inode := &Inode{AttributesForkType: ForkInline}
	if _, err := v.LookupAttribute(inode, []byte("user.missing")); err == nil {
		t.Errorf("lookup of a nonexistent attribute should fail")
	}
}

func TestAttrNamespacePrefix(t *testing.T) {
	cases := []struct {
		ns   attrNamespace
		want string
	}{
		{attrNamespaceUser, ""},
		{attrNamespaceTrusted, "trusted."},
		{attrNamespaceSecure, "security."},
	}
	for _, c := range cases {
		if got := c.ns.prefix(); got != c.want {
			t.Errorf("prefix(%d) = %q, want %q", c.ns, got, c.want)
		}
	}
}

func TestParseAttrBlockUnrecognizedMagicSkipped(t *testing.T) {
	b := make([]byte, 64)
	b[8], b[9] = 0x12, 0x34 // signature lives at offset 8, not 0
	attrs, isLeaf, err := parseAttrBlock(b)
	if err != nil {
		t.Fatalf("parseAttrBlock: %v", err)
	}
	if isLeaf || attrs != nil {
		t.Errorf("a non-leaf-magic block should be reported as skippable, got attrs=%v isLeaf=%v", attrs, isLeaf)
	}
}

// TestParseAttrBlockSignatureAtOffsetEight proves the leaf signature is read
// from byte offset 8: a block whose first 8 bytes are garbage but whose
// offset-8 field carries the leaf magic must still parse, while the same
// magic bytes written at offset 0 (with zeroed offset-8 bytes) must not.
func TestParseAttrBlockSignatureAtOffsetEight(t *testing.T) {
	b := buildAttrLeafBlock(256, attrNamespaceUser, "comment", "hi")
	// Scramble the leading forw/back fields the real signature offset skips
	// past, to prove they are not mistaken for the magic.
	binary.BigEndian.PutUint32(b[0:4], 0xffffffff)
	binary.BigEndian.PutUint32(b[4:8], 0xffffffff)

	attrs, isLeaf, err := parseAttrBlock(b)
	if err != nil {
		t.Fatalf("parseAttrBlock: %v", err)
	}
	if !isLeaf {
		t.Fatalf("block with magic at offset 8 should be recognized as a leaf block")
	}
	if len(attrs) != 1 || string(attrs[0].Name) != "comment" {
		t.Errorf("attrs = %+v, want a single \"comment\" attribute", attrs)
	}
	if attrs[0].IsRemote() || string(attrs[0].inlineValue) != "hi" {
		t.Errorf("inline value = %q, want %q", attrs[0].inlineValue, "hi")
	}

	var atOffsetZero [10]byte
	binary.BigEndian.PutUint16(atOffsetZero[0:2], attrLeafMagic)
	b2 := make([]byte, 256)
	copy(b2, atOffsetZero[:])
	_, isLeaf2, err := parseAttrBlock(b2)
	if err != nil {
		t.Fatalf("parseAttrBlock: %v", err)
	}
	if isLeaf2 {
		t.Errorf("magic bytes at offset 0 (not 8) must not be mistaken for the leaf signature")
	}
}
