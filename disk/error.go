package disk

import "fmt"

// UnknownFilesystemError is returned when xfs.Open fails to recognize the
// signature at the requested volume offset.
type UnknownFilesystemError struct {
	offset int64
}

func (e *UnknownFilesystemError) Error() string {
	return fmt.Sprintf("no recognized xfs filesystem at offset %d", e.offset)
}

func NewUnknownFilesystemError(offset int64) *UnknownFilesystemError {
	return &UnknownFilesystemError{offset: offset}
}
