package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestSelectEmbedded(t *testing.T) {
	payload := []byte("glTF\x02\x00\x00\x00")
	b, err := Select("", payload)
	require.NoError(t, err)

	assert.True(t, b.Embedded)
	assert.Equal(t, FormatBinary, b.Format)
	assert.Equal(t, int64(len(payload)), b.SizeHint)
	assert.Empty(t, b.Dir)
}

func TestSelectFile(t *testing.T) {
	data := make([]byte, 10000)
	copy(data, "glTF")
	path := writeFile(t, "model.glb", data)

	b, err := Select(path, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(10000), b.SizeHint)
	assert.Len(t, b.Bytes, 10000)
	assert.Equal(t, cap(b.Bytes), 10000, "buffer should be allocated once at the probed size")
	assert.Equal(t, FormatBinary, b.Format)
	assert.Equal(t, filepath.Dir(path), b.Dir)
	assert.False(t, b.Embedded)

	b.Release()
	assert.Nil(t, b.Bytes)
}

func TestSelectErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Select(filepath.Join(dir, "missing.gltf"), nil)
	assert.ErrorIs(t, err, ErrNotFound)

	empty := writeFile(t, "empty.gltf", nil)
	_, err = Select(empty, nil)
	assert.ErrorIs(t, err, ErrEmptyOrUnreadable)
}

func TestExists(t *testing.T) {
	assert.NoError(t, Exists(writeFile(t, "a.gltf", []byte("{}"))))
	assert.ErrorIs(t, Exists(filepath.Join(t.TempDir(), "nope")), ErrNotFound)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path     string
		embedded bool
		want     Format
	}{
		{"model.glb", false, FormatBinary},
		{"MODEL.GLB", false, FormatBinary},
		{"dir.glb/model.gltf", false, FormatText},
		{"model.gltf", false, FormatText},
		{"model", false, FormatText},
		{"model.gltf", true, FormatBinary},
		{"", true, FormatBinary},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectFormat(tt.path, tt.embedded), tt.path)
	}
}

func TestSniffFormat(t *testing.T) {
	f, ok := SniffFormat([]byte("glTF\x02\x00\x00\x00"))
	assert.True(t, ok)
	assert.Equal(t, FormatBinary, f)

	f, ok = SniffFormat([]byte("\n  {\"asset\":{}}"))
	assert.True(t, ok)
	assert.Equal(t, FormatText, f)

	_, ok = SniffFormat([]byte{0x89, 'P', 'N', 'G'})
	assert.False(t, ok)
}
