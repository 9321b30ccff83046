// Package diskfs opens a disk image or block device read-only and mounts
// the XFS volume found at a given byte offset within it, without writing
// to the image or invoking the kernel's own filesystem driver.
//
// It does not mount any disks or filesystems, neither directly locally nor
// via a VM. Instead it manipulates the bytes directly.
//
// Example: open an image and read a file from the XFS volume at offset 0.
//
//	d, err := diskfs.Open("/tmp/case7.img")
//	fs, err := d.GetFilesystem(0)
//	f, err := fs.OpenFile("/var/log/auth.log", os.O_RDONLY)
package diskfs

import (
	"errors"

	"github.com/forensicfs/go-fsxfs/backend/file"
	"github.com/forensicfs/go-fsxfs/disk"
	"github.com/forensicfs/go-fsxfs/disk/formats"
)

// Open a Disk from a path to a device or image file, read-only.
// Should pass a path to a block device e.g. /dev/sda or a path to a file
// /tmp/foo.img. The provided device must exist at the time you call Open().
func Open(device string) (*disk.Disk, error) {
	return OpenWithFormat(device, formats.Unknown)
}

// OpenWithFormat is like Open but skips container-format sniffing when the
// caller already knows whether the image is raw or qcow2.
func OpenWithFormat(device string, format formats.Format) (*disk.Disk, error) {
	if device == "" {
		return nil, errors.New("must pass device name")
	}
	storage, err := file.OpenFromPath(device, true)
	if err != nil {
		return nil, err
	}
	return disk.Open(storage, format)
}
