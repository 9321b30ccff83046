package xfs

import "encoding/binary"

// slice returns b[off:off+n], failing with InvalidData rather than
// panicking when the requested range exceeds b. Every other decode helper
// in this file is built on top of this one so that "advance offset by N,
// failing if N > remaining" is the only bounds-check idiom the rest of the
// parser has to reason about.
func slice(b []byte, off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n < off || off+n > len(b) {
		return nil, errInvalidData("slice [%d:%d] exceeds buffer of length %d", off, off+n, len(b))
	}
	return b[off : off+n], nil
}

func readU8(b []byte, off int) (uint8, error) {
	s, err := slice(b, off, 1)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

func readU16(b []byte, off int) (uint16, error) {
	s, err := slice(b, off, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(s), nil
}

func readU32(b []byte, off int) (uint32, error) {
	s, err := slice(b, off, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(s), nil
}

func readU64(b []byte, off int) (uint64, error) {
	s, err := slice(b, off, 8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(s), nil
}

// signature compares b[off:off+len(sig)] against the literal sig, returning
// an *Error of KindSignatureMismatch (not KindInvalidData) when they
// differ, per the §7 taxonomy's special-casing of magic mismatches for
// diagnostics.
func signature(b []byte, off int, sig string) error {
	s, err := slice(b, off, len(sig))
	if err != nil {
		return err
	}
	if string(s) != sig {
		return errSignatureMismatch("expected signature %q at offset %d, found %q", sig, off, s)
	}
	return nil
}

// signatureAny succeeds if b[off:] matches any of the candidate signatures,
// used where a structure has distinct v2/v3 magics (e.g. directory data
// blocks and extent B+tree blocks).
func signatureAny(b []byte, off int, sigs ...string) (string, error) {
	for _, sig := range sigs {
		if err := signature(b, off, sig); err == nil {
			return sig, nil
		}
	}
	return "", errSignatureMismatch("no matching signature at offset %d among %v", off, sigs)
}
