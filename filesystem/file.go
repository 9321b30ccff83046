package filesystem

import (
	"io"
	"io/fs"
)

// File a reference to a single file on disk, opened read-only.
type File interface {
	fs.ReadDirFile
	io.ReaderAt
	io.Seeker
}
