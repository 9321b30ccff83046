package xfs

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
)

// NameQuery is a path-segment or attribute-name query in either of the two
// encodings callers commonly hand in: a UTF-8 byte stream as stored on
// disk, or a UTF-16 stream from a caller that copy-pasted a Windows-side
// artifact path. Exactly one of the two must be set.
type NameQuery struct {
	UTF8  []byte
	UTF16 []byte // little-endian, no BOM
}

// utf16LE is the external collaborator §6 calls out: "byte-wise compare an
// opaque UTF-8 stream to a UTF-8 or UTF-16 query, returning less/equal/
// greater." Implementations may use any library; this one is
// golang.org/x/text's UTF-16 decoder feeding a plain byte comparison.
var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

// CompareName implements that contract for directory and attribute name
// matching (§4.6, §4.8): decode q to UTF-8 if necessary, then compare
// byte-for-byte against onDisk, which is always the raw UTF-8 stream
// XFS stores.
func CompareName(onDisk []byte, q NameQuery) (int, error) {
	target := q.UTF8
	if q.UTF16 != nil {
		decoded, err := utf16LE.Bytes(q.UTF16)
		if err != nil {
			return 0, errInvalidArgument("query is not valid UTF-16: %v", err)
		}
		target = decoded
	}
	return bytes.Compare(onDisk, target), nil
}

// NameEquals is the common case used by the path resolver and directory
// lookups: a plain UTF-8 byte-wise equality check with no decoding.
func NameEquals(onDisk, query []byte) bool {
	return bytesEqualFold(onDisk, query)
}
