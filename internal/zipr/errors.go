package zipr

import (
	"errors"
	"fmt"
)

var (
	// ErrEOCDNotFound means the end-of-central-directory signature was not
	// found in the archive's tail window. Also the failure mode for Zip64
	// archives, which the upstream does not produce and we do not support.
	ErrEOCDNotFound = errors.New("zip: end of central directory not found")

	// ErrTruncated means fewer bytes arrived than a header or payload needs.
	ErrTruncated = errors.New("zip: truncated archive")

	// ErrMemberNotFound means the named member is not in the directory.
	ErrMemberNotFound = errors.New("zip: member not found")
)

// UnsupportedCompressionError reports a member stored with a compression
// method other than STORED or DEFLATE.
type UnsupportedCompressionError struct {
	Name   string
	Method uint16
}

func (e *UnsupportedCompressionError) Error() string {
	return fmt.Sprintf("zip: member %q uses unsupported compression method %d", e.Name, e.Method)
}
