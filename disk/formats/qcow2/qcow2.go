package qcow2

import (
	"fmt"
	"os"

	"github.com/forensicfs/go-fsxfs/disk/formats"
)

// Qcow2 a qcow2 disk
type Qcow2 struct {
	file          *os.File
	start         int64
	blocksize     int64
	header        *header
	compressor    Compressor
	encryptor     Encryptor
	l1Table       *l1Table
	refcountTable *refcountTable
}

// NewQcow2 opens an existing qcow2 image for read-only access. Image
// creation is outside this module's scope: it only ever mounts images a
// suspect or examiner already produced.
func NewQcow2(f *os.File) (*Qcow2, error) {
	return Read(f, 0)
}
func (q Qcow2) Format() formats.Format {
	return formats.Qcow2
}
func (q Qcow2) File() *os.File {
	return q.file
}

// ReadAt read into the provided []byte at the given offset. Translates into
// the proper clusetr in the underlying qcow2 image.
func (q Qcow2) ReadAt(b []byte, offset int64) (int, error) {
	clusterSize := int(q.header.clusterSize)
	inClusterOffset := offset % int64(clusterSize)
	// the data could stretch over more than one cluster
	for remainder := len(b); remainder > 0; {
		// find the cluster location
		clusterLocation, err := q.getClusterLocation(offset + int64(len(b)-remainder))
		if err != nil {
			return 0, err
		}
		// how much data do we read from to this cluster?
		size := remainder
		if remainder > clusterSize {
			size = clusterSize
		}
		size = remainder - int(inClusterOffset)
		// if the cluster was unallocated, just add empty bytes
		if clusterLocation == 0 {
			b2 := make([]byte, size)
			copy(b[remainder:remainder+size], b2)
		} else {
			location := clusterLocation + inClusterOffset
			if _, err := q.file.ReadAt(b[remainder:remainder+size], location); err != nil {
				return 0, fmt.Errorf("error reading from cluster at %d in-cluster offset %d: %v", clusterLocation, inClusterOffset, err)
			}
		}
		// for all subsequent clusters, our inClusterOffset should be 0
		inClusterOffset = 0
		// find out where our offset would be for the next cluster
		remainder -= size
	}
	return len(b), nil
}

// WriteAt satisfies util.File's interface but is never exercised: this
// module only ever mounts evidence images read-only.
func (q Qcow2) WriteAt(b []byte, offset int64) (int, error) {
	return 0, fmt.Errorf("qcow2: write access is disabled; this module mounts disk images read-only")
}

// Read read an existing qcow2 disk to get a usable Qcow2 Driver
func Read(file *os.File, start int64) (*Qcow2, error) {
	var (
		read int
		err  error
	)

	// load the information from the disk

	// read the header
	b := make([]byte, header2Size)
	read, err = file.ReadAt(b, start)
	if err != nil {
		return nil, fmt.Errorf("Unable to read bytes for header: %v", err)
	}
	if int64(read) != header2Size {
		return nil, fmt.Errorf("Read %d bytes instead of expected %d for header", read, header2Size)
	}

	// parse header first run. The purpose here is just to get the cluster size,
	// since we really should parse the first cluster in its entirety
	h, err := parseHeader(b)
	if err != nil {
		return nil, fmt.Errorf("Error parsing %d minimal header: %v", header2Size, err)
	}
	b = make([]byte, h.clusterSize)
	read, err = file.ReadAt(b, start)
	if err != nil {
		return nil, fmt.Errorf("Unable to read bytes for header: %v", err)
	}
	if read != int(h.clusterSize) {
		return nil, fmt.Errorf("Read %d bytes instead of expected cluster %d for header", read, h.clusterSize)
	}
	h, err = parseHeader(b)
	if err != nil {
		return nil, fmt.Errorf("Error parsing %d full cluster header: %v", h.clusterSize, err)
	}

	compress, err := newCompressor(h.compressionType)
	if err != nil {
		return nil, fmt.Errorf("error getting compression: %v", err)
	}
	encrypt, err := newEncryptor(h.encryptMethod)
	if err != nil {
		return nil, fmt.Errorf("error getting encryptor: %v", err)
	}
	if encrypt.hasHeader() {
		for _, extension := range h.extensions {
			extEncrypt, ok := extension.(headerExtensionFullDiskEncryption)
			if !ok {
				continue
			}
			b = make([]byte, extEncrypt.length)
			read, err = file.ReadAt(b, start+int64(extEncrypt.offset))
			if err != nil {
				return nil, fmt.Errorf("Unable to read bytes for full disk encryption header header: %v", err)
			}
			if uint64(read) != extEncrypt.length {
				return nil, fmt.Errorf("Read %d bytes instead of expected %d for full disk encryption header header", read, extEncrypt.length)
			}
			if err := extEncrypt.parseEncryptionHeader(b); err != nil {
				return nil, fmt.Errorf("Error reading full disk encryption header: %v", err)
			}
		}
	}

	refcountTableSize := h.refCountClusters * h.clusterSize
	refcountTableBytes := make([]byte, int(refcountTableSize))
	pos := start + int64(h.refCountOffset)
	n, err := file.ReadAt(refcountTableBytes, pos)
	if err != nil {
		return nil, fmt.Errorf("error reading refcount table bytes at position %d: %v", pos, err)
	}
	if len(refcountTableBytes) != n {
		return nil, fmt.Errorf("reading refcount table read %d bytes instead of expected %d at position %d", n, len(refcountTableBytes), pos)
	}
	refcountTable, err := parseRefcountTable(refcountTableBytes)
	if err != nil {
		return nil, fmt.Errorf("error parsing refcount table from bytes: %v", err)
	}

	l1TableBytes := make([]byte, int(h.l1Size))
	pos = start + int64(h.l1Offset)
	n, err = file.ReadAt(l1TableBytes, pos)
	if err != nil {
		return nil, fmt.Errorf("error reading L1 table bytes at position %d: %v", pos, err)
	}
	if len(l1TableBytes) != n {
		return nil, fmt.Errorf("reading L1 table read %d bytes instead of expected %d at position %d", n, len(l1TableBytes), pos)
	}
	l1Table, err := parseL1Table(l1TableBytes)
	if err != nil {
		return nil, fmt.Errorf("error parsing L1 table from bytes: %v", err)
	}

	return &Qcow2{
		file:          file,
		start:         start,
		header:        h,
		blocksize:     int64(h.clusterSize),
		compressor:    compress,
		encryptor:     encrypt,
		l1Table:       l1Table,
		refcountTable: refcountTable,
	}, nil
}

// getClusterLocation given an offset into the virtual disk, find the location
// of the start of the cluster in the qcow2 image. An unallocated cluster
// (a hole, read back as zeros) reports location 0.
func (q Qcow2) getClusterLocation(offset int64) (location int64, err error) {
	clusterSize := int64(q.header.clusterSize)
	l2entries := clusterSize / 8 // 8 = sizeof uint64
	l2index := (offset / clusterSize) % l2entries
	l1index := (offset / clusterSize) / l2entries
	l1Entry := q.l1Table.entries[l1index]

	if !l1Entry.allocated {
		return 0, nil
	}
	l2tableData, err := q.readCluster(int64(l1Entry.offset))
	if err != nil {
		return 0, err
	}
	l2table, err := parseL2Table(l2tableData, q.header.clusterBits, q.header.extendedL2)
	if err != nil {
		return 0, err
	}
	return int64(l2table.entries[l2index].offset), nil
}

// readCluster read the contents of an individual cluster
func (q Qcow2) readCluster(offset int64) ([]byte, error) {
	b := make([]byte, q.header.clusterSize)
	pos := q.start + offset
	n, err := q.file.ReadAt(b, pos)
	if err != nil {
		return nil, fmt.Errorf("error reading cluster at position %d: %v", pos, err)
	}
	if n != len(b) {
		return nil, fmt.Errorf("at position %d, read %d bytes instead of expected %d", pos, n, len(b))
	}
	return b, nil
}
