// raw package represents a raw disk image. Reads are pass-through; this
// module never creates or writes disk images.
package raw

import (
	"errors"
	"os"

	"github.com/forensicfs/go-fsxfs/disk/formats"
)

// Raw a raw disk
type Raw struct {
	file *os.File
}

// NewRaw wraps an already-open raw disk image file for read-only access.
func NewRaw(file *os.File) (*Raw, error) {
	return &Raw{file}, nil
}

func (r Raw) Format() formats.Format {
	return formats.Raw
}
func (r Raw) File() *os.File {
	return r.file
}

func (r Raw) ReadAt(b []byte, offset int64) (int, error) {
	return r.file.ReadAt(b, offset)
}

// WriteAt satisfies util.File's interface but is never exercised: this
// module only ever mounts evidence images read-only.
func (r Raw) WriteAt(b []byte, offset int64) (int, error) {
	return 0, errors.New("raw: write access is disabled; this module mounts disk images read-only")
}
