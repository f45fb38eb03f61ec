package gltf

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/gltfview/internal/config"
	"github.com/Faultbox/gltfview/internal/embedded"
	"github.com/Faultbox/gltfview/internal/gltf/gltftest"
	"github.com/Faultbox/gltfview/internal/render"
	"github.com/Faultbox/gltfview/internal/render/rendertest"
)

func animatedAsset(t *testing.T, b *gltftest.Builder) (*Asset, *Animator, *rendertest.Recorder) {
	t.Helper()
	l, rec, _ := newLoader(t, config.GenerateShaders)
	a, err := l.ParseBinary(b.GLB())
	require.NoError(t, err)
	_, err = NewResourceLoader(ResourceConfig{Engine: rec}).LoadResources(a)
	require.NoError(t, err)
	an, err := a.Animator()
	require.NoError(t, err)
	return a, an, rec
}

func translationX(t *testing.T, rec *rendertest.Recorder, e render.Entity) float32 {
	t.Helper()
	m, ok := rec.Transform(e)
	require.True(t, ok)
	return m[12]
}

func TestEmbeddedAnimation(t *testing.T) {
	l, rec, _ := newLoader(t, config.GenerateShaders)
	a, err := l.ParseBinary(embedded.Payload())
	require.NoError(t, err)
	_, err = NewResourceLoader(ResourceConfig{Engine: rec}).LoadResources(a)
	require.NoError(t, err)

	an, err := a.Animator()
	require.NoError(t, err)
	require.Equal(t, 1, an.AnimationCount())
	assert.Equal(t, "Spin", an.AnimationName(0))
	assert.InDelta(t, 4, an.AnimationDuration(0), 1e-6)
	assert.Equal(t, "", an.AnimationName(5))
	assert.Zero(t, an.AnimationDuration(-1))
}

func TestLinearTranslation(t *testing.T) {
	b := gltftest.New()
	n := b.Node("Mover", b.Cube(-1))
	b.Animation("Slide", n, "translation", "LINEAR",
		[]float32{0, 1, 3},
		[]float32{0, 0, 0, 10, 0, 0, 30, 0, 0}, 3)

	a, an, rec := animatedAsset(t, b)
	e := a.Renderables()[0]

	tests := []struct {
		at   float32
		want float32
	}{
		{-1, 0},
		{0, 0},
		{0.5, 5},
		{1, 10},
		{2, 20},
		{3, 30},
		{10, 30},
	}
	for _, tt := range tests {
		an.ApplyAnimation(0, tt.at)
		an.UpdateTransforms()
		assert.InDelta(t, tt.want, translationX(t, rec, e), 1e-5, "t=%v", tt.at)
	}
}

func TestStepInterpolation(t *testing.T) {
	b := gltftest.New()
	n := b.Node("Mover", b.Cube(-1))
	b.Animation("Jump", n, "translation", "STEP",
		[]float32{0, 1, 2},
		[]float32{0, 0, 0, 10, 0, 0, 20, 0, 0}, 3)

	a, an, rec := animatedAsset(t, b)
	e := a.Renderables()[0]

	an.ApplyAnimation(0, 0.99)
	an.UpdateTransforms()
	assert.InDelta(t, 0, translationX(t, rec, e), 1e-6)

	an.ApplyAnimation(0, 1.5)
	an.UpdateTransforms()
	assert.InDelta(t, 10, translationX(t, rec, e), 1e-6)
}

func TestCubicSplineUsesKeyValues(t *testing.T) {
	b := gltftest.New()
	n := b.Node("Mover", b.Cube(-1))
	// (in-tangent, value, out-tangent) per key.
	b.Animation("Curve", n, "translation", "CUBICSPLINE",
		[]float32{0, 2},
		[]float32{
			9, 9, 9, 0, 0, 0, 9, 9, 9,
			9, 9, 9, 4, 0, 0, 9, 9, 9,
		}, 3)

	a, an, rec := animatedAsset(t, b)
	an.ApplyAnimation(0, 1)
	an.UpdateTransforms()
	assert.InDelta(t, 2, translationX(t, rec, a.Renderables()[0]), 1e-5)
}

func TestRotationFollowsParent(t *testing.T) {
	b := gltftest.New()
	child := b.Node("Child", b.Cube(-1))
	b.Translate(child, 1, 0, 0)
	parent := b.Node("Parent", -1, child)
	b.Spin("Turn", parent, 4)

	a, an, rec := animatedAsset(t, b)
	e := a.Renderables()[0]

	// A quarter turn about +Y maps +X to -Z.
	an.ApplyAnimation(0, 1)
	an.UpdateTransforms()
	m, _ := rec.Transform(e)
	assert.InDelta(t, 0, m[12], 1e-5)
	assert.InDelta(t, -1, m[14], 1e-5)

	an.ResetPose()
	an.UpdateTransforms()
	m, _ = rec.Transform(e)
	assert.InDelta(t, 1, m[12], 1e-5)
}

func TestBadChannelsAreSkipped(t *testing.T) {
	b := gltftest.New()
	n := b.Node("Mover", b.Cube(-1))
	// Three keys but only two values.
	b.Animation("Broken", n, "translation", "LINEAR", []float32{0, 1, 2}, []float32{0, 0, 0, 1, 1, 1}, 3)
	b.Animation("Weights", n, "weights", "LINEAR", []float32{0, 1}, []float32{0, 0, 0, 1, 1, 1}, 3)

	_, an, _ := animatedAsset(t, b)
	require.Equal(t, 2, an.AnimationCount())
	assert.Zero(t, an.AnimationDuration(0))
	assert.Zero(t, an.AnimationDuration(1))

	// Sampling an empty animation must not panic.
	an.ApplyAnimation(0, 0.5)
	an.ApplyAnimation(7, 0.5)
}

func TestSlerpKeepsUnitQuaternion(t *testing.T) {
	ch := channel{
		path:  pathRotation,
		comps: 4,
		times: []float32{0, 1},
		values: []float32{
			0, 0, 0, 1,
			0, math32.Sin(math32.Pi / 4), 0, math32.Cos(math32.Pi / 4),
		},
	}
	q := ch.sampleQuat(0.5)
	assert.InDelta(t, 1, q.Dot(q), 1e-5)
	assert.InDelta(t, math32.Sin(math32.Pi/8), q.Y, 1e-5)
}
