package gltf

import (
	"encoding/binary"
	"fmt"
)

const (
	glbMagic        = 0x46546C67 // "glTF"
	glbVersion      = 2
	glbHeaderSize   = 12
	glbChunkHeader  = 8
	glbChunkJSON    = 0x4E4F534A // "JSON"
	glbChunkBinary  = 0x004E4942 // "BIN\0"
	glbMinimumBytes = glbHeaderSize + glbChunkHeader
)

// splitGLB returns the JSON chunk and the optional BIN chunk of a binary
// container. Unknown chunk types are skipped.
func splitGLB(data []byte) (jsonChunk, binChunk []byte, err error) {
	if len(data) < glbMinimumBytes {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != glbMagic {
		return nil, nil, fmt.Errorf("%w: 0x%08x", ErrInvalidMagic, magic)
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != glbVersion {
		return nil, nil, fmt.Errorf("%w: container version %d", ErrUnsupportedVersion, version)
	}
	total := int(binary.LittleEndian.Uint32(data[8:12]))
	if total > len(data) || total < glbMinimumBytes {
		return nil, nil, fmt.Errorf("%w: header length %d, have %d bytes", ErrTruncated, total, len(data))
	}

	offset := glbHeaderSize
	for offset+glbChunkHeader <= total {
		length := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		kind := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		start := offset + glbChunkHeader
		end := start + length
		if length < 0 || end > total {
			return nil, nil, fmt.Errorf("%w: chunk at %d overruns container", ErrTruncated, offset)
		}

		switch {
		case kind == glbChunkJSON && jsonChunk == nil:
			if offset != glbHeaderSize {
				return nil, nil, fmt.Errorf("%w: JSON chunk must come first", ErrMissingChunk)
			}
			jsonChunk = data[start:end]
		case kind == glbChunkBinary && binChunk == nil:
			binChunk = data[start:end]
		}
		offset = end
	}

	if jsonChunk == nil {
		return nil, nil, fmt.Errorf("%w: JSON", ErrMissingChunk)
	}
	return jsonChunk, binChunk, nil
}
