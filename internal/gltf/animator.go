package gltf

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/gltfview/internal/logger"
	"github.com/Faultbox/gltfview/internal/render"
	"github.com/Faultbox/gltfview/pkg/math"
)

// Interpolation is a keyframe interpolation mode.
type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
	// InterpolationCubicSpline keyframes are sampled at their values; the
	// tangents are ignored.
	InterpolationCubicSpline
)

func parseInterpolation(s string) Interpolation {
	switch s {
	case "STEP":
		return InterpolationStep
	case "CUBICSPLINE":
		return InterpolationCubicSpline
	}
	return InterpolationLinear
}

type targetPath int

const (
	pathTranslation targetPath = iota
	pathRotation
	pathScale
)

// channel is a sampler-ready track owning its keyframe data.
type channel struct {
	node   int
	path   targetPath
	interp Interpolation
	times  []float32
	values []float32 // comps floats per keyframe, tangents stripped
	comps  int
}

// Animation is one realized glTF animation.
type Animation struct {
	Name     string
	Duration float32
	channels []channel
}

// Animator samples an asset's animations into its entity transforms. It
// copies everything it needs and stays valid after the asset releases its
// source data.
type Animator struct {
	engine     render.Engine
	entities   []render.Entity
	parents    []int
	rest       []transform
	pose       []transform
	world      []math.Mat4
	animations []Animation
}

// Animator realizes the asset's animation channels, moving it to
// StateAnimationReady. Later calls return the same animator.
func (a *Asset) Animator() (*Animator, error) {
	if a.animator != nil {
		return a.animator, nil
	}
	switch a.state {
	case StateSourceReleased:
		return nil, ErrSourceReleased
	case StateDestroyed:
		return nil, fmt.Errorf("%w: %s", ErrInvalidAssetState, a.state)
	}
	if !a.resourcesLoaded {
		return nil, fmt.Errorf("%w: resources not loaded", ErrInvalidAssetState)
	}

	an := &Animator{
		engine:   a.loader.engine,
		entities: a.entities,
		parents:  a.parents,
		rest:     append([]transform(nil), a.local...),
		pose:     append([]transform(nil), a.local...),
		world:    make([]math.Mat4, len(a.local)),
	}

	for ai, src := range a.doc.Animations {
		anim := Animation{Name: src.Name}
		if anim.Name == "" {
			anim.Name = fmt.Sprintf("animation %d", ai)
		}
		for ci, c := range src.Channels {
			ch, err := a.realizeChannel(src, c)
			if err != nil {
				logger.Warn("animation channel skipped",
					zap.String("animation", anim.Name), zap.Int("channel", ci), zap.Error(err))
				continue
			}
			if ch == nil {
				continue
			}
			if last := ch.times[len(ch.times)-1]; last > anim.Duration {
				anim.Duration = last
			}
			anim.channels = append(anim.channels, *ch)
		}
		an.animations = append(an.animations, anim)
	}

	a.animator = an
	a.state = StateAnimationReady
	return an, nil
}

// realizeChannel returns nil for channels the viewer does not animate.
func (a *Asset) realizeChannel(src animation, c animationChannel) (*channel, error) {
	if c.Target.Node == nil {
		return nil, nil
	}
	node := *c.Target.Node

	ch := &channel{node: node}
	switch c.Target.Path {
	case "translation":
		ch.path, ch.comps = pathTranslation, 3
	case "rotation":
		ch.path, ch.comps = pathRotation, 4
	case "scale":
		ch.path, ch.comps = pathScale, 3
	default:
		// Morph target weights are not rendered.
		return nil, nil
	}
	if a.local[node].matrix != nil {
		return nil, fmt.Errorf("node %d uses a matrix transform", node)
	}

	s := src.Samplers[c.Sampler]
	ch.interp = parseInterpolation(s.Interpolation)

	times, err := a.readFloats(s.Input, 1)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	values, err := a.readFloats(s.Output, ch.comps)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("no keyframes")
	}

	perKey := ch.comps
	if ch.interp == InterpolationCubicSpline {
		perKey *= 3
	}
	if len(values) != len(times)*perKey {
		return nil, fmt.Errorf("%d keyframes but %d output values", len(times), len(values))
	}
	if ch.interp == InterpolationCubicSpline {
		// Keep the value element of each (in-tangent, value, out-tangent) triple.
		kept := make([]float32, 0, len(times)*ch.comps)
		for k := range times {
			off := k*perKey + ch.comps
			kept = append(kept, values[off:off+ch.comps]...)
		}
		values = kept
	}

	ch.times = times
	ch.values = values
	return ch, nil
}

// AnimationCount returns the number of animations.
func (an *Animator) AnimationCount() int {
	return len(an.animations)
}

// AnimationName returns the name of animation i.
func (an *Animator) AnimationName(i int) string {
	if i < 0 || i >= len(an.animations) {
		return ""
	}
	return an.animations[i].Name
}

// AnimationDuration returns the length of animation i in seconds.
func (an *Animator) AnimationDuration(i int) float32 {
	if i < 0 || i >= len(an.animations) {
		return 0
	}
	return an.animations[i].Duration
}

// ApplyAnimation poses the nodes animation i targets at time t seconds.
// Times outside the keyframe range clamp to the first or last key.
func (an *Animator) ApplyAnimation(i int, t float32) {
	if i < 0 || i >= len(an.animations) {
		return
	}
	for _, ch := range an.animations[i].channels {
		p := &an.pose[ch.node]
		switch ch.path {
		case pathTranslation:
			p.t = ch.sampleVec3(t)
		case pathScale:
			p.s = ch.sampleVec3(t)
		case pathRotation:
			p.r = ch.sampleQuat(t)
		}
	}
}

// ResetPose restores every node to its rest transform.
func (an *Animator) ResetPose() {
	copy(an.pose, an.rest)
}

// UpdateTransforms recomputes world transforms from the current pose and
// pushes them to the engine.
func (an *Animator) UpdateTransforms() {
	computeWorld(an.pose, an.parents, an.world)
	for i, e := range an.entities {
		if e != 0 {
			an.engine.SetTransform(e, an.world[i])
		}
	}
}

// keyframes returns the keys surrounding t and the blend factor between them.
func (ch *channel) keyframes(t float32) (k0, k1 int, f float32) {
	last := len(ch.times) - 1
	if t <= ch.times[0] {
		return 0, 0, 0
	}
	if t >= ch.times[last] {
		return last, last, 0
	}
	k1 = sort.Search(len(ch.times), func(i int) bool { return ch.times[i] > t })
	k0 = k1 - 1
	span := ch.times[k1] - ch.times[k0]
	if span > 0 {
		f = (t - ch.times[k0]) / span
	}
	if ch.interp == InterpolationStep {
		return k0, k0, 0
	}
	return k0, k1, f
}

func (ch *channel) vec3(k int) math.Vec3 {
	v := ch.values[k*3:]
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func (ch *channel) sampleVec3(t float32) math.Vec3 {
	k0, k1, f := ch.keyframes(t)
	return ch.vec3(k0).Lerp(ch.vec3(k1), f)
}

func (ch *channel) sampleQuat(t float32) math.Quat {
	k0, k1, f := ch.keyframes(t)
	q0 := math.Quat{X: ch.values[k0*4], Y: ch.values[k0*4+1], Z: ch.values[k0*4+2], W: ch.values[k0*4+3]}
	q1 := math.Quat{X: ch.values[k1*4], Y: ch.values[k1*4+1], Z: ch.values[k1*4+2], W: ch.values[k1*4+3]}
	return q0.Slerp(q1, f).Normalize()
}
