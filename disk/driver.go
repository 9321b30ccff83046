package disk

import (
	"fmt"
	"os"

	"github.com/forensicfs/go-fsxfs/disk/formats"
	"github.com/forensicfs/go-fsxfs/disk/formats/qcow2"
	"github.com/forensicfs/go-fsxfs/disk/formats/raw"
	"github.com/forensicfs/go-fsxfs/util"
)

// Driver driver to a particular disk format
type Driver interface {
	Format() formats.Format
	File() *os.File
	util.File
}

// GetDriver opens an already-existing disk image read-only through the
// driver for the given format. If the format is formats.Unknown, it probes
// qcow2 first (qcow2 images fail fast on a bad header) and falls back to
// treating the image as raw.
func GetDriver(f *os.File, format formats.Format) (Driver, error) {
	switch format {
	case formats.Unknown:
		if driver, err := qcow2.NewQcow2(f); err == nil {
			return driver, nil
		}
		return raw.NewRaw(f)
	case formats.Raw:
		return raw.NewRaw(f)
	case formats.Qcow2:
		return qcow2.NewQcow2(f)
	}
	return nil, fmt.Errorf("unknown disk format: %v", format)
}
