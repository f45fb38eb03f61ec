package host

import (
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/gltfview/internal/render"
)

func TestSceneAddRemove(t *testing.T) {
	s := NewScene()
	s.AddEntity(1)
	s.AddEntity(2)
	s.AddEntity(3)
	s.AddEntity(2)
	assert.Equal(t, 3, s.Len())

	s.RemoveEntity(1)
	s.RemoveEntity(42)
	assert.Equal(t, 2, s.Len())
	assert.ElementsMatch(t, []render.Entity{2, 3}, s.entities)
	for i, e := range s.entities {
		assert.Equal(t, i, s.index[e])
	}

	s.RemoveEntity(3)
	s.RemoveEntity(2)
	assert.Zero(t, s.Len())
	assert.Empty(t, s.index)
}

func TestTemplateDefines(t *testing.T) {
	tests := []struct {
		name string
		desc render.MaterialDesc
		want []string
	}{
		{"plain", render.MaterialDesc{}, nil},
		{"textured", render.MaterialDesc{Features: render.FeatureBaseColorTexture}, []string{"HAS_BASE_COLOR_TEXTURE"}},
		{"unlit mask", render.MaterialDesc{Unlit: true, Alpha: render.AlphaMask}, []string{"UNLIT", "ALPHA_MASK"}},
		{"ubershader blend", render.MaterialDesc{Ubershader: true, Alpha: render.AlphaBlend, Features: render.FeatureBaseColorTexture}, []string{"UBERSHADER", "ALPHA_BLEND"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, templateDefines(tt.desc))
		})
	}
}

func TestSamplerStateDefaults(t *testing.T) {
	minF, magF, ws, wt := samplerState(render.Sampler{})
	assert.Equal(t, int32(gl.LINEAR_MIPMAP_LINEAR), minF)
	assert.Equal(t, int32(gl.LINEAR), magF)
	assert.Equal(t, int32(gl.REPEAT), ws)
	assert.Equal(t, int32(gl.REPEAT), wt)
	assert.True(t, usesMipmaps(minF))

	minF, magF, ws, wt = samplerState(render.Sampler{
		MinFilter: gl.NEAREST, MagFilter: gl.NEAREST, WrapS: gl.CLAMP_TO_EDGE, WrapT: gl.MIRRORED_REPEAT,
	})
	assert.Equal(t, int32(gl.NEAREST), minF)
	assert.Equal(t, int32(gl.NEAREST), magF)
	assert.Equal(t, int32(gl.CLAMP_TO_EDGE), ws)
	assert.Equal(t, int32(gl.MIRRORED_REPEAT), wt)
	assert.False(t, usesMipmaps(minF))
}

func TestViewSampleCount(t *testing.T) {
	v := NewView(nil)
	assert.Equal(t, 1, v.sampleCount)
	v.SetSampleCount(4)
	assert.Equal(t, 4, v.sampleCount)
	v.SetSampleCount(0)
	assert.Equal(t, 1, v.sampleCount)

	v.SetPostProcessAntiAliasing(true)
	assert.True(t, v.postAA)
	assert.Equal(t, [3]float32{0.6, 0.6, 0.6}, v.ambient)
}
