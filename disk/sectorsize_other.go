//go:build !linux && !darwin

package disk

import (
	"errors"
	"os"
)

func getSectorSizes(f *os.File) (logicalSectorSize, physicalSectorSize int64, err error) {
	return 0, 0, errors.New("block devices not supported on this platform")
}
