// Package filesystem provides interfaces and constants required for filesystem implementations.
// The one implementation in this module is github.com/forensicfs/go-fsxfs/filesystem/xfs.
package filesystem

import (
	"errors"
	"os"
)

var (
	ErrNotSupported       = errors.New("method not supported by this filesystem")
	ErrNotImplemented     = errors.New("method not implemented (patches are welcome)")
	ErrReadonlyFilesystem = errors.New("read-only filesystem")
)

// FileSystem is a reference to a single filesystem on a disk, opened for
// reading only. Every mutating method on a concrete implementation returns
// ErrReadonlyFilesystem.
type FileSystem interface {
	// Type return the type of filesystem
	Type() Type
	// ReadDir read the contents of a directory
	ReadDir(pathname string) ([]os.FileInfo, error)
	// OpenFile open a handle to read a file
	OpenFile(pathname string, flag int) (File, error)
	// Label get the label for the filesystem, or "" if none. Be careful to trim it, as it may contain
	// leading or following whitespace. The label is passed as-is and not cleaned up at all.
	Label() string
}

// Type represents the type of disk this is
type Type int

const (
	// TypeXFS is an XFS compatible filesystem
	TypeXFS Type = iota
)
