package gltf

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/gltfview/internal/config"
	"github.com/Faultbox/gltfview/internal/gltf/gltftest"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestLoadResourcesExternalTexturesAlongsideGLB(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "albedo.png", gltftest.PNG(4, 4, color.RGBA{R: 255, A: 255}))
	writeFile(t, dir, "detail png.png", gltftest.PNG(2, 2, color.RGBA{G: 255, A: 255}))

	b := gltftest.New()
	m0 := b.Material("albedo", b.TextureURI("albedo.png"))
	m1 := b.Material("detail", b.TextureURI("detail%20png.png"))
	b.Node("A", b.Cube(m0))
	b.Node("B", b.Cube(m1))
	glb := b.GLBSized(10000)
	require.Len(t, glb, 10000)

	l, rec, _ := newLoader(t, config.GenerateShaders)
	a, err := l.ParseBinary(glb)
	require.NoError(t, err)

	uris, err := a.ResourceURIs()
	require.NoError(t, err)
	assert.Equal(t, []string{"albedo.png", "detail%20png.png"}, uris)

	report, err := NewResourceLoader(ResourceConfig{Engine: rec, BaseDir: dir}).LoadResources(a)
	require.NoError(t, err)
	assert.True(t, report.Complete(), "shortfalls: %v", report.Shortfalls)
	assert.Equal(t, 2, report.Textures)
	assert.Equal(t, 2, report.Renderables)
	assert.Equal(t, 2, a.TextureCount())
	assert.Equal(t, 2, rec.LiveTextures())

	for _, e := range a.Renderables() {
		r, ok := rec.Renderable(e)
		require.True(t, ok)
		require.Len(t, r.Primitives, 1)
		assert.Equal(t, 36, r.Primitives[0].IndexCount)
		assert.NotZero(t, r.Primitives[0].Material.BaseColorTexture)
	}
}

func TestLoadResourcesMissingTextureIsShortfall(t *testing.T) {
	dir := t.TempDir()
	b := gltftest.New()
	b.Node("Cube", b.Cube(b.Material("m", b.TextureURI("missing.png"))))
	writeFile(t, dir, "model.gltf", b.JSON())

	l, rec, _ := newLoader(t, config.GenerateShaders)
	a, err := l.ParseText(b.JSON())
	require.NoError(t, err)

	report, err := NewResourceLoader(ResourceConfig{Engine: rec, BaseDir: dir}).LoadResources(a)
	require.NoError(t, err)

	require.Len(t, report.Shortfalls, 1)
	s := report.Shortfalls[0]
	assert.Equal(t, ShortfallImage, s.Kind)
	assert.Equal(t, "missing.png", s.URI)
	assert.ErrorIs(t, s.Err, os.ErrNotExist)

	assert.Equal(t, 1, report.Renderables, "geometry still loads")
	assert.Zero(t, a.TextureCount())
	r, _ := rec.Renderable(a.Renderables()[0])
	assert.Zero(t, r.Primitives[0].Material.BaseColorTexture)
}

func TestLoadResourcesExternalBuffer(t *testing.T) {
	dir := t.TempDir()
	b := gltftest.New()
	b.Node("Cube", b.Cube(-1))
	writeFile(t, dir, "scene.bin", b.Bin())

	l, rec, _ := newLoader(t, config.GenerateShaders)
	a, err := l.ParseText(b.JSONExternal("scene.bin"))
	require.NoError(t, err)

	report, err := NewResourceLoader(ResourceConfig{Engine: rec, BaseDir: dir}).LoadResources(a)
	require.NoError(t, err)
	assert.True(t, report.Complete())
	assert.Equal(t, 1, report.Buffers)
	assert.Equal(t, 2, rec.LiveBuffers())
}

func TestLoadResourcesMissingBufferDegrades(t *testing.T) {
	b := gltftest.New()
	b.Node("Cube", b.Cube(-1))

	l, rec, _ := newLoader(t, config.GenerateShaders)
	a, err := l.ParseText(b.JSONExternal("gone.bin"))
	require.NoError(t, err)

	report, err := NewResourceLoader(ResourceConfig{Engine: rec, BaseDir: t.TempDir()}).LoadResources(a)
	require.NoError(t, err)

	kinds := map[ShortfallKind]int{}
	for _, s := range report.Shortfalls {
		kinds[s.Kind]++
	}
	assert.Equal(t, 1, kinds[ShortfallBuffer])
	assert.Equal(t, 1, kinds[ShortfallPrimitive])
	assert.Zero(t, report.Renderables)
	assert.Len(t, a.Entities(), 2, "asset stays usable")
}

func TestLoadResourcesWithoutBaseDir(t *testing.T) {
	b := gltftest.New()
	b.Node("Cube", b.Cube(b.Material("m", b.TextureURI("tex.png"))))

	l, rec, _ := newLoader(t, config.GenerateShaders)
	a, err := l.ParseBinary(b.GLB())
	require.NoError(t, err)

	report, err := NewResourceLoader(ResourceConfig{Engine: rec}).LoadResources(a)
	require.NoError(t, err)
	require.Len(t, report.Shortfalls, 1)
	assert.ErrorIs(t, report.Shortfalls[0].Err, errNoBaseDir)
}

func TestLoadResourcesUnsupportedMode(t *testing.T) {
	b := gltftest.New()
	b.Node("Cube", b.Cube(-1))
	b.Node("Lines", b.Lines())

	l, rec, _ := newLoader(t, config.GenerateShaders)
	a, err := l.ParseBinary(b.GLB())
	require.NoError(t, err)

	report, err := NewResourceLoader(ResourceConfig{Engine: rec}).LoadResources(a)
	require.NoError(t, err)
	require.Len(t, report.Shortfalls, 1)
	assert.Equal(t, ShortfallPrimitive, report.Shortfalls[0].Kind)
	assert.Equal(t, 1, report.Renderables)
}

func TestLoadResourcesTwice(t *testing.T) {
	b := gltftest.New()
	b.Node("Cube", b.Cube(-1))
	l, rec, _ := newLoader(t, config.GenerateShaders)
	a, err := l.ParseBinary(b.GLB())
	require.NoError(t, err)

	rl := NewResourceLoader(ResourceConfig{Engine: rec})
	_, err = rl.LoadResources(a)
	require.NoError(t, err)
	_, err = rl.LoadResources(a)
	assert.ErrorIs(t, err, ErrInvalidAssetState)

	_, err = rl.LoadResources(nil)
	assert.ErrorIs(t, err, ErrInvalidAssetState)
}

func TestTransformsAndBounds(t *testing.T) {
	b := gltftest.New()
	child := b.Node("Child", b.Cube(-1))
	b.Translate(child, 0, 2, 0)
	parent := b.Node("Parent", -1, child)
	b.Translate(parent, 5, 0, 0)

	for _, recompute := range []bool{false, true} {
		l, rec, reg := newLoader(t, config.GenerateShaders)
		a, err := l.ParseBinary(b.GLB())
		require.NoError(t, err)
		_, err = NewResourceLoader(ResourceConfig{Engine: rec, RecomputeBoundingBoxes: recompute}).LoadResources(a)
		require.NoError(t, err)

		childEntity := a.Renderables()[0]
		require.Equal(t, "Child", reg.Name(childEntity))
		m, ok := rec.Transform(childEntity)
		require.True(t, ok)
		assert.InDelta(t, 5, m[12], 1e-6)
		assert.InDelta(t, 2, m[13], 1e-6)

		bounds := a.Bounds()
		assert.InDelta(t, 4.5, bounds.Min.X, 1e-5, "recompute=%v", recompute)
		assert.InDelta(t, 2.5, bounds.Max.Y, 1e-5, "recompute=%v", recompute)
	}
}

func TestDataURIs(t *testing.T) {
	data, err := decodeDataURI("data:application/octet-stream;base64,AAEC")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, data)

	data, err = decodeDataURI("data:text/plain,hello%20world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	_, err = decodeDataURI("data:nocomma")
	assert.Error(t, err)

	assert.Equal(t, "data:image/png;base64,...", displayURI("data:image/png;base64,AAAA"))
	assert.Equal(t, "tex.png", displayURI("tex.png"))
}

func intPtr(i int) *int { return &i }

func TestAccessorBytesRejectsBadRanges(t *testing.T) {
	tests := []struct {
		name string
		view bufferView
		acc  accessor
	}{
		{"negative view offset", bufferView{ByteOffset: -8, ByteLength: 8}, accessor{Count: 1}},
		{"negative accessor offset", bufferView{ByteLength: 16}, accessor{ByteOffset: -4, Count: 1}},
		{"view past buffer", bufferView{ByteOffset: 12, ByteLength: 8}, accessor{Count: 1}},
		{"count past view", bufferView{ByteLength: 16}, accessor{Count: 5}},
		{"count overflows", bufferView{ByteLength: 16}, accessor{Count: 1 << 62}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.acc.BufferView = intPtr(0)
			tt.acc.ComponentType = componentFloat
			tt.acc.Type = "SCALAR"
			a := &Asset{
				doc:     &document{BufferViews: []bufferView{tt.view}, Accessors: []accessor{tt.acc}},
				buffers: [][]byte{make([]byte, 16)},
			}

			var err error
			require.NotPanics(t, func() { _, err = a.readFloats(0, 1) })
			assert.ErrorIs(t, err, errAccessorBounds)
		})
	}
}

func TestZeroAccessorSharesOneElement(t *testing.T) {
	a := &Asset{doc: &document{Accessors: []accessor{{ComponentType: componentFloat, Type: "VEC3", Count: 1000}}}}

	_, data, stride, err := a.accessorBytes(0)
	require.NoError(t, err)
	assert.Len(t, data, 12)
	assert.Zero(t, stride)

	floats, err := a.readFloats(0, 3)
	require.NoError(t, err)
	assert.Len(t, floats, 3000)
	for _, f := range floats {
		assert.Zero(t, f)
	}
}

func TestImageBytesRejectsBadRanges(t *testing.T) {
	for _, bv := range []bufferView{
		{ByteOffset: -4, ByteLength: 4},
		{ByteLength: -4},
		{ByteOffset: 12, ByteLength: 8},
	} {
		a := &Asset{
			doc:     &document{BufferViews: []bufferView{bv}},
			buffers: [][]byte{make([]byte, 16)},
		}
		rl := NewResourceLoader(ResourceConfig{})

		var err error
		require.NotPanics(t, func() { _, err = rl.imageBytes(a, imageDef{BufferView: intPtr(0)}) }, "%+v", bv)
		assert.Error(t, err, "%+v", bv)
	}
}
