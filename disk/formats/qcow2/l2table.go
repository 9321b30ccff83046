package qcow2

import (
	"encoding/binary"
	"fmt"
)

const (
	l2TableEntrySize         = 8
	l2TableExtendedEntrySize = 16
)

type l2Table struct {
	entries               []l2TableEntry
	clusterBits           uint32
	clusterOffsetMask     uint64
	additionalSectorsMask uint64
}

type subcluster struct {
	allocated bool
	zeros     bool
}

// l2TableEntry l2 table entry
type l2TableEntry struct {
	compressed        bool
	standard          bool
	zeros             bool
	offset            uint64
	allocated         bool
	additionalSectors uint64
	extended          bool
	subclusters       [32]subcluster
}

// parseL2Table read the l2table from the byte data
func parseL2Table(b []byte, clusterBits uint32, extendedL2 bool) (*l2Table, error) {
	x := 62 - (clusterBits - 8)
	clusterOffsetMask := mask64(0, int(x))
	additionalSectorsMask := mask64(int(x), 61)
	table := l2Table{
		clusterBits:           clusterBits,
		clusterOffsetMask:     clusterOffsetMask,
		additionalSectorsMask: additionalSectorsMask,
	}
	if extendedL2 {
		for i := 0; i < len(b); i += l2TableExtendedEntrySize {
			entry, err := parseL2TableExtendedEntry(b[i:i+l2TableExtendedEntrySize], x, clusterOffsetMask, additionalSectorsMask)
			if err != nil {
				return nil, err
			}
			table.entries = append(table.entries, entry)
		}
	} else {
		for i := 0; i < len(b); i += l2TableEntrySize {
			entry, err := parseL2TableStandardEntry(b[i:i+l2TableEntrySize], x, clusterOffsetMask, additionalSectorsMask)
			if err != nil {
				return nil, err
			}
			table.entries = append(table.entries, entry)
		}
	}
	return &table, nil
}

func parseL2TableStandardEntry(b []byte, x uint32, clusterOffsetMask, additionalSectorsMask uint64) (l2TableEntry, error) {
	var entry l2TableEntry
	if len(b) != l2TableEntrySize {
		return entry, fmt.Errorf("cannot parse an entry with %d bytes, requires exactly %d", len(b), l2TableEntrySize)
	}
	compressed := b[7]&0x2 == 0x2
	standard := b[7]&0x1 == 0x1
	// we convert the offset to a uint64 as is, and then manipulate it as needed
	offset := binary.BigEndian.Uint64(b)
	// is this a compressed cluster?
	if compressed {
		// bits 0 to (x-1)
		clusterOffset := offset & clusterOffsetMask
		// shift additionalSectors to get actual number. additionalSectors ends at bit x-1, uint64 ends at bit 63, so >> (63-(x-1))
		clusterOffset >>= (63 - (x - 1))
		// bits x to 61
		additionalSectors := offset & additionalSectorsMask
		// shift additionalSectors to get actual number. additionalSectors ends at bit 61, uint64 ends at bit 63, so >> 2
		additionalSectors >>= 2
		entry = l2TableEntry{
			compressed:        compressed,
			standard:          standard,
			offset:            clusterOffset,
			additionalSectors: additionalSectors,
		}
	} else {
		zeros := b[0]&0x80 == 0x80
		// last 6 bits in the descriptor are reserved
		// bits 62 and 63 are flags and not used for the descriptor
		offset >>= 2
		offset >>= 6
		offset &= 0xff000000
		allocated := !standard && offset == 0

		entry = l2TableEntry{
			compressed: compressed,
			standard:   standard,
			offset:     offset,
			zeros:      zeros,
			allocated:  allocated,
		}
	}
	return entry, nil
}

func parseL2TableExtendedEntry(b []byte, x uint32, clusterOffsetMask, additionalSectorsMask uint64) (l2TableEntry, error) {
	var entry l2TableEntry
	if len(b) != l2TableExtendedEntrySize {
		return entry, fmt.Errorf("cannot parse an entry with %d bytes, requires exactly %d", len(b), l2TableExtendedEntrySize)
	}
	// first 8 bits are the same
	entry, err := parseL2TableStandardEntry(b[:8], x, clusterOffsetMask, additionalSectorsMask)
	if err != nil || entry.compressed {
		return entry, err
	}
	entry.extended = true

	value := binary.BigEndian.Uint64(b[8:])
	// parse the allocation status and the zeros status
	for i := 0; i < 32; i++ {
		allocationMask := mask64(i, 1)
		zerosMask := mask64(i+32, 1)
		entry.subclusters[i] = subcluster{
			allocated: value&allocationMask == allocationMask,
			zeros:     value&zerosMask == zerosMask,
		}
	}
	return entry, nil
}
