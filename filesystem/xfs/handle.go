package xfs

import (
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Volume is an opened, read-only handle onto an XFS filesystem image or
// block device, per §3 "Volume". Once Open returns, its Geometry is frozen;
// every FileEntry, ExtendedAttribute, and Extent handed out by its
// operations borrows that same Geometry and the same underlying source.
type Volume struct {
	source   io.ReaderAt
	geometry *Geometry
	log      *logrus.Entry
	aborted  int32 // atomic bool, set by RequestAbort
}

// Option configures a Volume at Open time.
type Option func(*Volume)

// WithLogger attaches a structured logger; callers embedding this package in
// a larger tool can pass their own entry to keep field context (volume
// path, case ID, ...) attached to every log line this package emits.
func WithLogger(log *logrus.Entry) Option {
	return func(v *Volume) {
		v.log = log
	}
}

// Open reads the superblock from source and returns a ready Volume. source
// must support concurrent ReadAt calls from multiple goroutines, matching
// the contract of io.ReaderAt; Open never retains source beyond what it
// needs to call ReadAt.
func Open(source io.ReaderAt, opts ...Option) (*Volume, error) {
	if source == nil {
		return nil, errInvalidArgument("source must not be nil")
	}
	sb := make([]byte, superblockMinSize)
	if _, err := source.ReadAt(sb, 0); err != nil && err != io.EOF {
		return nil, errIO(err, "reading superblock")
	}
	geometry, err := parseSuperblock(sb)
	if err != nil {
		return nil, Annotate(err, "Open")
	}
	v := &Volume{
		source:   source,
		geometry: geometry,
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.log = v.log.WithFields(logrus.Fields{
		"volume_uuid": geometry.UUID.String(),
		"format":      geometry.FormatVersion,
	})
	v.log.Debug("opened xfs volume")
	return v, nil
}

// Geometry returns the volume's frozen geometry.
func (v *Volume) Geometry() *Geometry {
	return v.geometry
}

// RequestAbort sets the cooperative cancellation flag. Any walk in progress
// observes it the next time it crosses a block boundary and returns
// ErrAbortRequested; it does not interrupt a single in-flight ReadAt.
func (v *Volume) RequestAbort() {
	atomic.StoreInt32(&v.aborted, 1)
}

func (v *Volume) abortRequested() bool {
	return atomic.LoadInt32(&v.aborted) != 0
}

// checkAbort returns ErrAbortRequested if RequestAbort has been called.
// Every loop that walks more than one block (inode btree descent,
// directory block iteration, extent map resolution) calls this between
// iterations per §3's cooperative-cancellation requirement.
func (v *Volume) checkAbort() error {
	if v.abortRequested() {
		return ErrAbortRequested
	}
	return nil
}

// readAt reads exactly len(p) bytes at off, translating EOF and checking
// the abort flag first so a cancelled walk does not issue one more I/O.
func (v *Volume) readAt(p []byte, off int64) (int, error) {
	if err := v.checkAbort(); err != nil {
		return 0, err
	}
	n, err := v.source.ReadAt(p, off)
	if err != nil && err != io.EOF {
		return n, err
	}
	if n < len(p) {
		return n, errInvalidData("short read at offset %d: got %d of %d bytes", off, n, len(p))
	}
	return n, nil
}

// readBlock reads one geometry.BlockSize-sized block at the given absolute
// block number.
func (v *Volume) readBlock(blockNum uint64) ([]byte, error) {
	off, err := v.geometry.AbsoluteByteOffset(blockNum, 1)
	if err != nil {
		return nil, Annotate(err, "readBlock")
	}
	buf := make([]byte, v.geometry.BlockSize)
	if _, err := v.readAt(buf, off); err != nil {
		return nil, errIO(err, "reading block %d", blockNum)
	}
	return buf, nil
}

// RootInode returns the inode number of the volume's root directory.
func (v *Volume) RootInode() uint64 {
	return v.geometry.RootInode
}

// Close releases any resources Open acquired. The underlying source is
// owned by the caller and is never closed here; Close exists so Volume
// satisfies the same lifecycle shape as the rest of this package's handle
// types even though there is nothing yet to release.
func (v *Volume) Close() error {
	return nil
}

// GetInode resolves an inode number to its decoded record, per §4.10's
// "resolve inode number -> Inode" primitive that every higher-level
// operation (directory listing, path resolution, file reads) builds on.
func (v *Volume) GetInode(inodeNumber uint64) (*Inode, error) {
	off, err := v.locateInode(inodeNumber)
	if err != nil {
		return nil, Annotate(err, "GetInode")
	}
	buf := make([]byte, v.geometry.InodeSize)
	if _, err := v.readAt(buf, off); err != nil {
		return nil, errIO(err, "reading inode %d at offset %d", inodeNumber, off)
	}
	inode, err := parseInode(buf, inodeNumber, v.geometry)
	if err != nil {
		return nil, Annotate(err, "GetInode")
	}
	return inode, nil
}
