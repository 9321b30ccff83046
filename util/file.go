package util

import "io"

// File is the minimal surface a disk-image container format (raw, qcow2)
// must provide so a Driver can be read from directly: random-access reads
// by absolute byte offset. WriterAt is kept in the interface because the
// underlying format decoders implement it, but nothing in this module
// calls it — the library never opens an image for anything but reading.
type File interface {
	io.ReaderAt
	io.WriterAt
}
