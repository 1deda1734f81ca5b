// Package zipr extracts individual members from remote ZIP archives using
// HTTP byte-range requests. A request touching one member pays for that
// member's bytes plus two small metadata fetches, never for the whole
// archive.
//
// The protocol is the classic three-step walk: locate the end-of-central-
// directory record in a trailing window, fetch and parse the central
// directory, then resolve each member's local header to find its payload.
// archive/zip is not used here because it has no way to issue range
// requests against a remote URL. Zip64 is out of scope: archives past 4 GiB
// or 65535 entries fail fast with ErrEOCDNotFound or a size misparse.
package zipr

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
)

const (
	eocdSignature  = 0x06054b50
	cdirSignature  = 0x02014b50
	localSignature = 0x04034b50

	eocdSize       = 22
	cdirHeaderLen  = 46
	localHeaderLen = 30

	// Maximum EOCD comment (65535) plus the fixed 22-byte record.
	maxTailWindow = 65557

	// Compression methods we inflate.
	methodStored  = 0
	methodDeflate = 8
)

// Entry is one member of an archive's central directory.
type Entry struct {
	Name             string
	Method           uint16
	CompressedSize   uint32
	UncompressedSize uint32
	HeaderOffset     uint32
}

// Ranger issues inclusive byte-range requests. Implemented by httpx.Client.
type Ranger interface {
	GetRange(ctx context.Context, url string, start, end int64) ([]byte, error)
}

// Reader is a random-access handle on one remote archive: a URL plus the
// total byte length obtained from a size probe.
type Reader struct {
	url    string
	size   int64
	ranger Ranger
}

// NewReader creates a reader for the archive at url with the given total size.
func NewReader(r Ranger, url string, size int64) *Reader {
	return &Reader{url: url, size: size, ranger: r}
}

// Directory fetches and parses the archive's central directory.
func (r *Reader) Directory(ctx context.Context) ([]Entry, error) {
	window := int64(maxTailWindow)
	if r.size < window {
		window = r.size
	}
	if window < eocdSize {
		return nil, ErrEOCDNotFound
	}

	tail, err := r.ranger.GetRange(ctx, r.url, r.size-window, r.size-1)
	if err != nil {
		return nil, err
	}

	pos := findEOCD(tail)
	if pos < 0 {
		return nil, ErrEOCDNotFound
	}
	cdSize := int64(binary.LittleEndian.Uint32(tail[pos+12:]))
	cdOffset := int64(binary.LittleEndian.Uint32(tail[pos+16:]))
	if cdSize == 0 {
		return nil, nil
	}

	dir, err := r.ranger.GetRange(ctx, r.url, cdOffset, cdOffset+cdSize-1)
	if err != nil {
		return nil, err
	}
	return parseDirectory(dir), nil
}

// findEOCD scans buf backward for the EOCD signature.
func findEOCD(buf []byte) int {
	for i := len(buf) - eocdSize; i >= 0; i-- {
		if binary.LittleEndian.Uint32(buf[i:]) == eocdSignature {
			return i
		}
	}
	return -1
}

// parseDirectory walks fixed-layout central-directory headers. A failed
// signature check terminates the walk.
func parseDirectory(dir []byte) []Entry {
	var entries []Entry
	pos := 0
	for pos+cdirHeaderLen <= len(dir) {
		if binary.LittleEndian.Uint32(dir[pos:]) != cdirSignature {
			break
		}
		method := binary.LittleEndian.Uint16(dir[pos+10:])
		compressed := binary.LittleEndian.Uint32(dir[pos+20:])
		uncompressed := binary.LittleEndian.Uint32(dir[pos+24:])
		nameLen := int(binary.LittleEndian.Uint16(dir[pos+28:]))
		extraLen := int(binary.LittleEndian.Uint16(dir[pos+30:]))
		commentLen := int(binary.LittleEndian.Uint16(dir[pos+32:]))
		offset := binary.LittleEndian.Uint32(dir[pos+42:])

		if pos+cdirHeaderLen+nameLen > len(dir) {
			break
		}
		name := string(dir[pos+cdirHeaderLen : pos+cdirHeaderLen+nameLen])

		entries = append(entries, Entry{
			Name:             name,
			Method:           method,
			CompressedSize:   compressed,
			UncompressedSize: uncompressed,
			HeaderOffset:     offset,
		})
		pos += cdirHeaderLen + nameLen + extraLen + commentLen
	}
	return entries
}

// Find returns the directory entry with the given name.
func Find(entries []Entry, name string) (Entry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Extract fetches and inflates one member. Two range requests are issued:
// the 30-byte local header, then exactly CompressedSize bytes of payload.
func (r *Reader) Extract(ctx context.Context, e Entry) ([]byte, error) {
	local, err := r.ranger.GetRange(ctx, r.url, int64(e.HeaderOffset), int64(e.HeaderOffset)+localHeaderLen-1)
	if err != nil {
		return nil, err
	}
	if len(local) < localHeaderLen {
		return nil, ErrTruncated
	}
	if binary.LittleEndian.Uint32(local) != localSignature {
		return nil, ErrTruncated
	}

	// The local header repeats name and extra lengths; they may differ from
	// the central directory's, so the payload offset comes from here.
	nameLen := int64(binary.LittleEndian.Uint16(local[26:]))
	extraLen := int64(binary.LittleEndian.Uint16(local[28:]))
	dataStart := int64(e.HeaderOffset) + localHeaderLen + nameLen + extraLen

	if e.CompressedSize == 0 {
		return nil, nil
	}
	data, err := r.ranger.GetRange(ctx, r.url, dataStart, dataStart+int64(e.CompressedSize)-1)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) < int64(e.CompressedSize) {
		return nil, ErrTruncated
	}

	switch e.Method {
	case methodStored:
		return data, nil
	case methodDeflate:
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		out, err := io.ReadAll(fr)
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, &UnsupportedCompressionError{Name: e.Name, Method: e.Method}
	}
}

// ReadMember extracts the named member and decodes it as UTF-8 text.
func (r *Reader) ReadMember(ctx context.Context, entries []Entry, name string) (string, error) {
	e, ok := Find(entries, name)
	if !ok {
		return "", ErrMemberNotFound
	}
	data, err := r.Extract(ctx, e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// TopLevelDirs returns the set of top-level directory names that contain at
// least one sub-path, in directory order.
func TopLevelDirs(entries []Entry) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, e := range entries {
		i := strings.IndexByte(e.Name, '/')
		if i <= 0 || i == len(e.Name)-1 {
			// No sub-path, or a bare "dir/" marker.
			continue
		}
		top := e.Name[:i]
		if !seen[top] {
			seen[top] = true
			dirs = append(dirs, top)
		}
	}
	return dirs
}
