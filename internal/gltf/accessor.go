package gltf

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

var (
	errBufferUnavailable = errors.New("buffer not loaded")
	errAccessorBounds    = errors.New("accessor exceeds its buffer view")
	errAccessorType      = errors.New("unexpected accessor type")
	errSparse            = errors.New("sparse accessors are not supported")
)

// accessorBytes returns the bytes covering accessor idx and the distance
// between consecutive elements.
func (a *Asset) accessorBytes(idx int) (accessor, []byte, int, error) {
	acc := a.doc.Accessors[idx]
	if acc.Sparse != nil {
		return acc, nil, 0, errSparse
	}
	elem := componentSize(acc.ComponentType) * typeComponents(acc.Type)
	if acc.Count <= 0 {
		return acc, nil, elem, nil
	}
	if acc.BufferView == nil {
		// glTF: an accessor without a buffer view reads as zeros. A zero
		// stride makes every element alias the same zeroed bytes.
		return acc, make([]byte, elem), 0, nil
	}

	bv := a.doc.BufferViews[*acc.BufferView]
	var buf []byte
	if bv.Buffer < len(a.buffers) {
		buf = a.buffers[bv.Buffer]
	}
	if buf == nil {
		return acc, nil, 0, fmt.Errorf("%w: buffer %d", errBufferUnavailable, bv.Buffer)
	}

	stride := elem
	if bv.ByteStride > 0 {
		stride = bv.ByteStride
	}
	// avail is the room after the first element; comparing by division keeps
	// stride*count from overflowing.
	avail := bv.ByteLength - acc.ByteOffset - elem
	if bv.ByteOffset < 0 || acc.ByteOffset < 0 || avail < 0 ||
		(acc.Count-1) > avail/stride || bv.ByteOffset > len(buf)-bv.ByteLength {
		return acc, nil, 0, fmt.Errorf("%w: accessor %d", errAccessorBounds, idx)
	}
	start := bv.ByteOffset + acc.ByteOffset
	end := start + stride*(acc.Count-1) + elem
	return acc, buf[start:end], stride, nil
}

// readFloats decodes accessor idx into comps floats per element, applying
// normalization for integer components.
func (a *Asset) readFloats(idx, comps int) ([]float32, error) {
	acc, data, stride, err := a.accessorBytes(idx)
	if err != nil {
		return nil, err
	}
	if typeComponents(acc.Type) != comps {
		return nil, fmt.Errorf("%w: accessor %d is %s", errAccessorType, idx, acc.Type)
	}

	size := componentSize(acc.ComponentType)
	out := make([]float32, acc.Count*comps)
	for i := 0; i < acc.Count; i++ {
		base := i * stride
		for c := 0; c < comps; c++ {
			out[i*comps+c] = readComponent(data[base+c*size:], acc.ComponentType, acc.Normalized)
		}
	}
	return out, nil
}

// readIndices decodes a scalar unsigned accessor.
func (a *Asset) readIndices(idx int) ([]uint32, error) {
	acc, data, stride, err := a.accessorBytes(idx)
	if err != nil {
		return nil, err
	}
	if acc.Type != "SCALAR" {
		return nil, fmt.Errorf("%w: index accessor %d is %s", errAccessorType, idx, acc.Type)
	}

	out := make([]uint32, acc.Count)
	for i := range out {
		b := data[i*stride:]
		switch acc.ComponentType {
		case componentUnsignedByte:
			out[i] = uint32(b[0])
		case componentUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(b))
		case componentUnsignedInt:
			out[i] = binary.LittleEndian.Uint32(b)
		default:
			return nil, fmt.Errorf("%w: index component type %d", errAccessorType, acc.ComponentType)
		}
	}
	return out, nil
}

func readComponent(b []byte, componentType int, normalized bool) float32 {
	switch componentType {
	case componentFloat:
		return math32.Float32frombits(binary.LittleEndian.Uint32(b))
	case componentUnsignedByte:
		if normalized {
			return float32(b[0]) / 255
		}
		return float32(b[0])
	case componentByte:
		v := float32(int8(b[0]))
		if normalized {
			return max(v/127, -1)
		}
		return v
	case componentUnsignedShort:
		v := float32(binary.LittleEndian.Uint16(b))
		if normalized {
			return v / 65535
		}
		return v
	case componentShort:
		v := float32(int16(binary.LittleEndian.Uint16(b)))
		if normalized {
			return max(v/32767, -1)
		}
		return v
	case componentUnsignedInt:
		return float32(binary.LittleEndian.Uint32(b))
	}
	return 0
}
