package xfs

// maxInlineSymlinkSize is the threshold at which a symlink's target moves
// from the inline data fork to a regular extent-backed read, per §4.9's
// "Symlink content": "size is small (≤ 1024 bytes) ... otherwise treat as
// a regular file read."
const maxInlineSymlinkSize = 1024

// ReadFile implements §4.9: read up to length bytes of inode's data
// starting at offset, clamped to the inode's size, filling holes and
// unwritten extents with zeros. It returns the bytes actually read, which
// may be fewer than length at EOF.
func (v *Volume) ReadFile(inode *Inode, offset uint64, length uint64) ([]byte, error) {
	if inode.IsSymlink() && inode.SizeBytes <= maxInlineSymlinkSize && inode.DataForkType == ForkInline {
		return readInline(inode, offset, length)
	}
	if inode.DataForkType == ForkInline {
		return readInline(inode, offset, length)
	}
	return v.readExtentBacked(inode, offset, length)
}

func readInline(inode *Inode, offset, length uint64) ([]byte, error) {
	if offset > inode.SizeBytes {
		offset = inode.SizeBytes
	}
	end := offset + length
	if end > inode.SizeBytes {
		end = inode.SizeBytes
	}
	if end > uint64(len(inode.InlineData)) {
		end = uint64(len(inode.InlineData))
	}
	if offset > end {
		return nil, nil
	}
	return append([]byte(nil), inode.InlineData[offset:end]...), nil
}

// readExtentBacked implements the EXTENTS/BTREE half of §4.9's algorithm:
// walk logical blocks computing `physical_offset = (ag × ag_block_count +
// rel_block) × block_size + (offset mod block_size)`, reading real data or
// filling zeros for holes and unwritten extents.
func (v *Volume) readExtentBacked(inode *Inode, offset, length uint64) ([]byte, error) {
	if offset > inode.SizeBytes {
		offset = inode.SizeBytes
	}
	if offset+length > inode.SizeBytes {
		length = inode.SizeBytes - offset
	}
	if length == 0 {
		return nil, nil
	}

	blockSize := uint64(v.geometry.BlockSize)
	out := make([]byte, 0, length)
	cur := offset
	end := offset + length

	for cur < end {
		if err := v.checkAbort(); err != nil {
			return nil, err
		}
		logicalBlock := cur / blockSize
		withinBlock := cur % blockSize

		res, err := v.resolveExtent(inode, logicalBlock)
		if err != nil {
			return nil, Annotate(err, "readExtentBacked")
		}

		var runBytesAvailable uint64
		if res.RunLength > 0 {
			runBytesAvailable = uint64(res.RunLength)*blockSize - withinBlock
		} else {
			runBytesAvailable = end - cur // hole extends at least to EOF/clamp
		}
		chunk := runBytesAvailable
		if remain := end - cur; chunk > remain {
			chunk = remain
		}

		if res.IsHole || res.IsUnwritten {
			out = append(out, make([]byte, chunk)...)
		} else {
			ag, rel := v.geometry.SplitBlock(res.PhysicalBlock)
			physOff := v.geometry.ByteOffset(ag, rel) + int64(withinBlock)
			buf := make([]byte, chunk)
			if _, err := v.readAt(buf, physOff); err != nil {
				return nil, errIO(err, "reading file data at physical offset %d", physOff)
			}
			out = append(out, buf...)
		}
		cur += chunk
	}
	return out, nil
}
