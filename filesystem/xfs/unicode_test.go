package xfs

import "testing"

func TestCompareNameUTF8(t *testing.T) {
	cmp, err := CompareName([]byte("beta"), NameQuery{UTF8: []byte("beta")})
	if err != nil {
		t.Fatalf("CompareName: %v", err)
	}
	if cmp != 0 {
		t.Errorf("CompareName(beta, beta) = %d, want 0", cmp)
	}

	cmp, err = CompareName([]byte("alpha"), NameQuery{UTF8: []byte("beta")})
	if err != nil {
		t.Fatalf("CompareName: %v", err)
	}
	if cmp >= 0 {
		t.Errorf("CompareName(alpha, beta) = %d, want negative", cmp)
	}
}

func TestCompareNameUTF16(t *testing.T) {
	// "ab" as little-endian UTF-16: 0x61 0x00 0x62 0x00.
	utf16 := []byte{0x61, 0x00, 0x62, 0x00}
	cmp, err := CompareName([]byte("ab"), NameQuery{UTF16: utf16})
	if err != nil {
		t.Fatalf("CompareName: %v", err)
	}
	if cmp != 0 {
		t.Errorf("CompareName(ab, utf16 ab) = %d, want 0", cmp)
	}
}

func TestNameEquals(t *testing.T) {
	if !NameEquals([]byte("gamma"), []byte("gamma")) {
		t.Errorf("identical names should compare equal")
	}
	if NameEquals([]byte("gamma"), []byte("Gamma")) {
		t.Errorf("XFS directory names are case-sensitive byte comparisons")
	}
	if NameEquals([]byte("gamma"), []byte("gam")) {
		t.Errorf("differing lengths should never compare equal")
	}
}
