//go:build linux || darwin

package disk

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	blkSSZGet = 0x1268
	blkBSZGet = 0x80081270
)

// getSectorSizes retrieves the logical and physical sector size of a block
// device via ioctl. Regular files never reach this path; Open only calls
// it for DeviceTypeBlockDevice.
func getSectorSizes(f *os.File) (logicalSectorSize, physicalSectorSize int64, err error) {
	fd := f.Fd()
	logical, err := unix.IoctlGetInt(int(fd), blkSSZGet)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get device logical sector size: %w", err)
	}
	physical, err := unix.IoctlGetInt(int(fd), blkBSZGet)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get device physical sector size: %w", err)
	}
	return int64(logical), int64(physical), nil
}
