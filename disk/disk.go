// Package disk provides utilities for working directly with a disk image or
// block device: detecting its container format (raw, qcow2) and its sector
// geometry, and handing off a byte-addressable view to the xfs package.
package disk

import (
	"fmt"
	"io"
	iofs "io/fs"

	"github.com/forensicfs/go-fsxfs/backend"
	"github.com/forensicfs/go-fsxfs/disk/formats"
	"github.com/forensicfs/go-fsxfs/filesystem/xfs"
)

const defaultBlocksize = 512

// Disk is a reference to a single disk image or block device that has
// been Open()ed for reading. Backend is the handle the image was opened
// through; Driver is the container-format view (raw or qcow2) over it.
type Disk struct {
	Backend           backend.Storage
	Driver            Driver
	Info              iofs.FileInfo
	Type              DeviceType
	Size              int64
	LogicalBlocksize  int64
	PhysicalBlocksize int64
}

// Close releases the underlying backend handle.
func (d *Disk) Close() error {
	return d.Backend.Close()
}

// GetFilesystem opens the XFS volume starting at the given byte offset
// within the disk. This library never parses partition tables itself;
// callers supply the offset directly, matching the CLI's `-o` flag for
// images preceded by a partition header or other envelope.
func (d *Disk) GetFilesystem(offset int64, opts ...xfs.Option) (*xfs.FS, error) {
	if offset < 0 || offset >= d.Size {
		return nil, NewUnknownFilesystemError(offset)
	}
	source := io.NewSectionReader(d.Driver, offset, d.Size-offset)
	vol, err := xfs.Open(source, opts...)
	if err != nil {
		return nil, NewUnknownFilesystemError(offset)
	}
	return xfs.NewFS(vol), nil
}

// Open detects a Driver for storage (raw or qcow2, or sniffs it when format
// is formats.Unknown) and packages it with its FileInfo and sector geometry.
// storage is typically obtained from backend/file.OpenFromPath; its Sys()
// method hands back the *os.File the container-format decoders and the
// sector-size ioctls need.
func Open(storage backend.Storage, format formats.Format) (*Disk, error) {
	info, err := storage.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() <= 0 {
		return nil, NewUnknownFilesystemError(0)
	}

	deviceType, err := DetermineDeviceType(storage)
	if err != nil {
		return nil, err
	}

	osFile, err := storage.Sys()
	if err != nil {
		return nil, fmt.Errorf("backend does not expose an underlying os.File: %w", err)
	}

	driver, err := GetDriver(osFile, format)
	if err != nil {
		return nil, err
	}

	lblksize := int64(defaultBlocksize)
	pblksize := int64(defaultBlocksize)
	if deviceType == DeviceTypeBlockDevice {
		lblksize, pblksize, err = getSectorSizes(osFile)
		if err != nil {
			return nil, err
		}
	}

	return &Disk{
		Backend:           storage,
		Driver:            driver,
		Info:              info,
		Type:              deviceType,
		Size:              info.Size(),
		LogicalBlocksize:  lblksize,
		PhysicalBlocksize: pblksize,
	}, nil
}
