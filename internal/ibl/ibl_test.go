package ibl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shSample = `(  0.776,  0.812,  0.874); // L00, irradiance, pre-scaled base
( 0.206,  0.262,  0.339); // L1-1, irradiance, pre-scaled base
(-0.010, -0.011, -0.009); // L10, irradiance, pre-scaled base
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SHFile), []byte(shSample), 0o644))

	l, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, l.SH, 3)
	assert.InDelta(t, 0.776, l.Ambient()[0], 1e-6)
	assert.InDelta(t, 0.874, l.Ambient()[2], 1e-6)
	assert.InDelta(t, -0.011, l.SH[2][1], 1e-6)
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadWithoutCoefficients(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SHFile), []byte("// empty\n"), 0o644))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrNoCoefficients)
}

func TestAmbientFallsBackToDefault(t *testing.T) {
	var l *Light
	assert.Equal(t, Default().SH[0], l.Ambient())
}
