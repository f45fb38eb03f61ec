// Package source selects where the scene asset comes from and reads it into
// a single buffer.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned when the scene path does not exist.
	ErrNotFound = errors.New("source not found")
	// ErrEmptyOrUnreadable is returned when the file cannot be opened or has no content.
	ErrEmptyOrUnreadable = errors.New("source empty or unreadable")
	// ErrRead is returned when fewer bytes than probed could be read.
	ErrRead = errors.New("source read failed")
)

// Format is the container format of a scene asset.
type Format int

const (
	FormatBinary Format = iota // GLB container
	FormatText                 // JSON document
)

// String returns a short name for the format.
func (f Format) String() string {
	if f == FormatBinary {
		return "binary"
	}
	return "text"
}

// glbMagic starts every binary container.
var glbMagic = []byte("glTF")

// Blob is a fully buffered scene asset.
type Blob struct {
	Bytes    []byte
	SizeHint int64
	Format   Format
	Embedded bool
	// Path is the file the blob was read from; empty for the embedded payload.
	Path string
	// Dir is the directory external resources resolve against; empty for the embedded payload.
	Dir string
}

// Release drops the buffer so its memory can be reclaimed.
func (b *Blob) Release() {
	b.Bytes = nil
}

// Embedded returns a blob over the built-in payload.
func Embedded(payload []byte) *Blob {
	return &Blob{
		Bytes:    payload,
		SizeHint: int64(len(payload)),
		Format:   DetectFormat("", true),
		Embedded: true,
	}
}

// Exists reports ErrNotFound when path does not name a filesystem entry.
func Exists(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
	}
	return nil
}

// Select returns the embedded payload when path is empty, and otherwise
// reads the file at path after probing its size.
func Select(path string, payload []byte) (*Blob, error) {
	if path == "" {
		return Embedded(payload), nil
	}
	if err := Exists(path); err != nil {
		return nil, err
	}

	f, size, err := probe(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, size)
	n, err := io.ReadFull(f, buf)
	if err != nil || int64(n) != size {
		return nil, fmt.Errorf("%w: %s: got %d of %d bytes: %v", ErrRead, path, n, size, err)
	}

	return &Blob{
		Bytes:    buf,
		SizeHint: size,
		Format:   DetectFormat(path, false),
		Path:     path,
		Dir:      filepath.Dir(path),
	}, nil
}

// probe opens path and measures it by seeking to the end. The returned file
// is positioned at the start.
func probe(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", ErrEmptyOrUnreadable, path, err)
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err == nil && size > 0 {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil || size <= 0 {
		f.Close()
		return nil, 0, fmt.Errorf("%w: %s", ErrEmptyOrUnreadable, path)
	}
	return f, size, nil
}

// DetectFormat chooses the container format from the file extension. The
// embedded payload is always binary.
func DetectFormat(path string, embedded bool) Format {
	if embedded || strings.EqualFold(filepath.Ext(path), ".glb") {
		return FormatBinary
	}
	return FormatText
}

// SniffFormat guesses the format from content. ok is false when the bytes
// look like neither container.
func SniffFormat(data []byte) (f Format, ok bool) {
	if bytes.HasPrefix(data, glbMagic) {
		return FormatBinary, true
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n\xef\xbb\xbf")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatText, true
	}
	return FormatText, false
}
