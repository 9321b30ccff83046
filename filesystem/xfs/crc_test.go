package xfs

import (
	"hash/crc32"
	"testing"
)

// TestVerifyCRC32CRoundTrip covers §8's invariant: "∀ v5 blocks: CRC
// verification succeeds; mutating any byte causes verification to fail."
func TestVerifyCRC32CRoundTrip(t *testing.T) {
	b := make([]byte, 32)
	for i := range b {
		b[i] = byte(i * 7)
	}
	crcOffset := 8
	b[crcOffset], b[crcOffset+1], b[crcOffset+2], b[crcOffset+3] = 0, 0, 0, 0
	sum := crc32.Checksum(b, crc32cTable)
	b[crcOffset] = byte(sum)
	b[crcOffset+1] = byte(sum >> 8)
	b[crcOffset+2] = byte(sum >> 16)
	b[crcOffset+3] = byte(sum >> 24)

	if err := verifyCRC32C(b, crcOffset); err != nil {
		t.Fatalf("verifyCRC32C on a self-consistent block: %v", err)
	}

	for i := range b {
		mutated := make([]byte, len(b))
		copy(mutated, b)
		mutated[i] ^= 0xff
		err := verifyCRC32C(mutated, crcOffset)
		// flipping a byte inside the CRC field itself changes "want", which
		// can coincidentally still mismatch "got" -- but it must still be an
		// error, since the stored checksum no longer matches the computed one.
		if err == nil {
			t.Errorf("mutating byte %d did not trip CRC verification", i)
			continue
		}
		if kind, ok := KindOf(err); !ok || kind != KindChecksumMismatch {
			t.Errorf("mutating byte %d: expected KindChecksumMismatch, got %v", i, kind)
		}
	}
}

func TestVerifyCRC32COutOfRange(t *testing.T) {
	b := make([]byte, 8)
	if err := verifyCRC32C(b, 6); err == nil {
		t.Errorf("crc offset overruning the buffer should fail")
	}
	if err := verifyCRC32C(b, -1); err == nil {
		t.Errorf("negative crc offset should fail")
	}
}
