package debug

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
}

func TestFilename(t *testing.T) {
	s := NewScreenshots("shots", "gltfview")
	s.now = fixedClock
	assert.Equal(t, filepath.Join("shots", "gltfview_2026-03-04_05-06-07.000.png"), s.Filename())

	s = NewScreenshots("", "x")
	s.now = fixedClock
	assert.False(t, strings.ContainsRune(s.Filename(), filepath.Separator))
}

func TestSaveBottomUpFlipsRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s := NewScreenshots(dir, "shot")
	s.now = fixedClock

	// Two rows: bottom red, top blue.
	pixels := []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	}
	path, err := s.SaveBottomUp(pixels, 1, 2)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{B: 255, A: 255}, color.RGBAModel.Convert(img.At(0, 0)))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, color.RGBAModel.Convert(img.At(0, 1)))
}

func TestSaveBottomUpRejectsSizeMismatch(t *testing.T) {
	s := NewScreenshots(t.TempDir(), "shot")
	_, err := s.SaveBottomUp(make([]byte, 7), 1, 2)
	assert.Error(t, err)
	_, err = s.SaveBottomUp(nil, 0, 0)
	assert.Error(t, err)
}
