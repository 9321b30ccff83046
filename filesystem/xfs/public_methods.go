package xfs

import (
	"io"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/forensicfs/go-fsxfs/filesystem"
)

// FS adapts a Volume to the generic filesystem.FileSystem interface, the
// same surface the teacher's ext4 package exposed, trimmed to its
// read-only subset.
type FS struct {
	vol *Volume
}

// NewFS wraps an already-opened Volume.
func NewFS(vol *Volume) *FS {
	return &FS{vol: vol}
}

func (f *FS) Type() filesystem.Type {
	return filesystem.TypeXFS
}

func (f *FS) Label() string {
	return f.vol.geometry.Label
}

// ReadDir implements filesystem.FileSystem.ReadDir: resolve pathname to an
// inode, require it be a directory, and return os.FileInfo for each entry.
func (f *FS) ReadDir(pathname string) ([]os.FileInfo, error) {
	inodeNumber, err := f.vol.ResolvePath(pathname)
	if err != nil {
		return nil, Annotate(err, "ReadDir")
	}
	dirInode, err := f.vol.GetInode(inodeNumber)
	if err != nil {
		return nil, Annotate(err, "ReadDir")
	}
	if !dirInode.IsDirectory() {
		return nil, errInvalidArgument("%s is not a directory", pathname)
	}
	entries, err := f.vol.ListDirectory(dirInode)
	if err != nil {
		return nil, Annotate(err, "ReadDir")
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		childInode, err := f.vol.GetInode(e.InodeNumber)
		if err != nil {
			return nil, Annotate(err, "ReadDir")
		}
		infos = append(infos, &fileInfo{name: string(e.Name), inode: childInode})
	}
	return infos, nil
}

// OpenFile implements filesystem.FileSystem.OpenFile. Only os.O_RDONLY is
// accepted; every other flag fails with filesystem.ErrReadonlyFilesystem.
func (f *FS) OpenFile(pathname string, flag int) (filesystem.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_APPEND|os.O_TRUNC) != 0 {
		return nil, filesystem.ErrReadonlyFilesystem
	}
	inodeNumber, err := f.vol.ResolvePath(pathname)
	if err != nil {
		return nil, Annotate(err, "OpenFile")
	}
	inode, err := f.vol.GetInode(inodeNumber)
	if err != nil {
		return nil, Annotate(err, "OpenFile")
	}
	return &openFile{
		vol:   f.vol,
		inode: inode,
		name:  path.Base(pathname),
	}, nil
}

// fileInfo adapts an Inode to os.FileInfo for ReadDir results.
type fileInfo struct {
	name  string
	inode *Inode
}

func (fi *fileInfo) Name() string { return fi.name }
func (fi *fileInfo) Size() int64  { return int64(fi.inode.SizeBytes) }
func (fi *fileInfo) Mode() os.FileMode {
	m := os.FileMode(fi.inode.Permissions())
	switch fi.inode.Type {
	case FileTypeDirectory:
		m |= os.ModeDir
	case FileTypeSymlink:
		m |= os.ModeSymlink
	case FileTypeChar:
		m |= os.ModeCharDevice
	case FileTypeBlock:
		m |= os.ModeDevice
	case FileTypeFIFO:
		m |= os.ModeNamedPipe
	case FileTypeSocket:
		m |= os.ModeSocket
	}
	return m
}
func (fi *fileInfo) ModTime() time.Time { return fi.inode.ModifyTime.Time() }
func (fi *fileInfo) IsDir() bool        { return fi.inode.IsDirectory() }
func (fi *fileInfo) Sys() any           { return fi.inode }

// dirEntryAdapter adapts fileInfo to fs.DirEntry for ReadDir(n).
type dirEntryAdapter struct{ info *fileInfo }

func (d dirEntryAdapter) Name() string               { return d.info.Name() }
func (d dirEntryAdapter) IsDir() bool                 { return d.info.IsDir() }
func (d dirEntryAdapter) Type() fs.FileMode           { return d.info.Mode().Type() }
func (d dirEntryAdapter) Info() (fs.FileInfo, error)  { return d.info, nil }

// openFile implements filesystem.File: fs.ReadDirFile + io.ReaderAt +
// io.Seeker, all backed by Volume.ReadFile / Volume.ListDirectory.
type openFile struct {
	vol    *Volume
	inode  *Inode
	name   string
	offset int64
}

func (of *openFile) Stat() (fs.FileInfo, error) {
	return &fileInfo{name: of.name, inode: of.inode}, nil
}

func (of *openFile) Read(p []byte) (int, error) {
	if of.offset >= int64(of.inode.SizeBytes) {
		return 0, io.EOF
	}
	data, err := of.vol.ReadFile(of.inode, uint64(of.offset), uint64(len(p)))
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	of.offset += int64(n)
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (of *openFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(of.inode.SizeBytes) {
		return 0, io.EOF
	}
	data, err := of.vol.ReadFile(of.inode, uint64(off), uint64(len(p)))
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (of *openFile) Seek(offset int64, whence int) (int64, error) {
	var newOffset int64
	switch whence {
	case io.SeekStart:
		newOffset = offset
	case io.SeekCurrent:
		newOffset = of.offset + offset
	case io.SeekEnd:
		newOffset = int64(of.inode.SizeBytes) + offset
	default:
		return 0, errInvalidArgument("invalid whence %d", whence)
	}
	if newOffset < 0 {
		return 0, errInvalidArgument("negative seek position %d", newOffset)
	}
	of.offset = newOffset
	return of.offset, nil
}

func (of *openFile) Close() error { return nil }

func (of *openFile) ReadDir(n int) ([]fs.DirEntry, error) {
	if !of.inode.IsDirectory() {
		return nil, errInvalidArgument("%s is not a directory", of.name)
	}
	entries, err := of.vol.ListDirectory(of.inode)
	if err != nil {
		return nil, Annotate(err, "ReadDir")
	}
	out := make([]fs.DirEntry, 0, len(entries))
	for _, e := range entries {
		childInode, err := of.vol.GetInode(e.InodeNumber)
		if err != nil {
			return nil, Annotate(err, "ReadDir")
		}
		out = append(out, dirEntryAdapter{info: &fileInfo{name: string(e.Name), inode: childInode}})
	}
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out, nil
}

var (
	_ filesystem.FileSystem = (*FS)(nil)
	_ filesystem.File       = (*openFile)(nil)
)
