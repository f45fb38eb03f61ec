package host

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/gltfview/internal/engine/camera"
	"github.com/Faultbox/gltfview/internal/engine/framebuffer"
	"github.com/Faultbox/gltfview/internal/engine/lighting"
	"github.com/Faultbox/gltfview/internal/ibl"
	"github.com/Faultbox/gltfview/internal/logger"
	"github.com/Faultbox/gltfview/internal/render"
	"github.com/Faultbox/gltfview/pkg/math"
)

// Scene is the ordered set of entities drawn by a View.
type Scene struct {
	entities []render.Entity
	index    map[render.Entity]int
}

// NewScene creates an empty scene.
func NewScene() *Scene {
	return &Scene{index: make(map[render.Entity]int)}
}

// AddEntity implements render.Scene. Adding an entity twice is a no-op.
func (s *Scene) AddEntity(e render.Entity) {
	if _, ok := s.index[e]; ok {
		return
	}
	s.index[e] = len(s.entities)
	s.entities = append(s.entities, e)
}

// RemoveEntity implements render.Scene.
func (s *Scene) RemoveEntity(e render.Entity) {
	i, ok := s.index[e]
	if !ok {
		return
	}
	last := len(s.entities) - 1
	s.entities[i] = s.entities[last]
	s.index[s.entities[i]] = i
	s.entities = s.entities[:last]
	delete(s.index, e)
}

// Len returns the number of entities in the scene.
func (s *Scene) Len() int {
	return len(s.entities)
}

// View renders a Scene through an orbit camera into an offscreen target.
type View struct {
	sampleCount int
	postAA      bool

	camera  *camera.OrbitCamera
	light   lighting.KeyLight
	ambient [3]float32

	fb *framebuffer.Framebuffer
}

// NewView creates a view lit by env. A nil env uses the neutral default.
func NewView(env *ibl.Light) *View {
	return &View{
		sampleCount: 1,
		camera:      camera.NewOrbitCamera(),
		light:       lighting.DefaultKeyLight(),
		ambient:     env.Ambient(),
	}
}

// SetSampleCount implements render.View. The target is rebuilt on the next frame.
func (v *View) SetSampleCount(n int) {
	if n < 1 {
		n = 1
	}
	if n == v.sampleCount {
		return
	}
	v.sampleCount = n
	v.releaseTarget()
}

// SetPostProcessAntiAliasing implements render.View. The preview renderer has
// no post-process pass; the flag is kept so the setting survives backend changes.
func (v *View) SetPostProcessAntiAliasing(enabled bool) {
	v.postAA = enabled
	logger.Debug("post-process antialiasing", zap.Bool("enabled", enabled))
}

// Camera returns the view's camera.
func (v *View) Camera() *camera.OrbitCamera {
	return v.camera
}

// Fit points the camera at b.
func (v *View) Fit(b math.AABB) {
	v.camera.FitToBounds(b)
}

// Target returns the offscreen target, or nil before the first frame.
func (v *View) Target() *framebuffer.Framebuffer {
	return v.fb
}

// Render draws scene at width x height and returns the resolved color texture.
func (v *View) Render(e *Engine, scene *Scene, width, height int32) (uint32, error) {
	if err := v.ensureTarget(width, height); err != nil {
		return 0, err
	}

	restore := v.fb.BindWithViewport()
	v.fb.Clear(0.15, 0.15, 0.2, 1.0)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	if v.sampleCount > 1 {
		gl.Enable(gl.MULTISAMPLE)
	}

	w, h := v.fb.Size()
	frame := frameUniforms{
		view:       v.camera.ViewMatrix(),
		projection: v.camera.Projection(float32(w) / float32(h)),
		lightDir:   v.light.Direction(),
		lightColor: v.light.Color,
		ambient:    v.ambient,
	}
	e.draw(scene.entities, frame)

	restore()
	v.fb.Resolve()
	return v.fb.ColorTexture(), nil
}

func (v *View) ensureTarget(width, height int32) error {
	if v.fb == nil {
		fb, err := framebuffer.New(width, height, int32(v.sampleCount))
		if err != nil {
			return err
		}
		v.fb = fb
		logger.Debug("viewport target created",
			zap.Int32("width", width), zap.Int32("height", height), zap.Int32("samples", fb.Samples()))
		return nil
	}
	return v.fb.Resize(width, height)
}

func (v *View) releaseTarget() {
	if v.fb != nil {
		v.fb.Destroy()
		v.fb = nil
	}
}

// Destroy releases the offscreen target.
func (v *View) Destroy() {
	v.releaseTarget()
}

type frameUniforms struct {
	view, projection math.Mat4
	lightDir         math.Vec3
	lightColor       [3]float32
	ambient          [3]float32
}

type drawItem struct {
	world math.Mat4
	prim  glPrimitive
	prog  *program
}

// draw issues opaque and masked primitives first, then blended ones with
// depth writes off.
func (e *Engine) draw(entities []render.Entity, f frameUniforms) {
	var opaque, blended []drawItem
	for _, ent := range entities {
		world, ok := e.transforms[ent]
		if !ok {
			world = math.Identity()
		}
		for _, p := range e.renderables[ent] {
			prog := e.programs[p.material.Template]
			if prog == nil || p.indexCount == 0 {
				continue
			}
			item := drawItem{world: world, prim: p, prog: prog}
			if prog.desc.Alpha == render.AlphaBlend {
				blended = append(blended, item)
			} else {
				opaque = append(opaque, item)
			}
		}
	}

	gl.Disable(gl.BLEND)
	gl.DepthMask(true)
	for _, it := range opaque {
		e.drawItem(it, f)
	}

	if len(blended) > 0 {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
		gl.DepthMask(false)
		for _, it := range blended {
			e.drawItem(it, f)
		}
		gl.DepthMask(true)
		gl.Disable(gl.BLEND)
	}

	gl.BindVertexArray(0)
	gl.UseProgram(0)
}

func (e *Engine) drawItem(it drawItem, f frameUniforms) {
	p, m := it.prog, it.prim.material

	gl.UseProgram(p.id)
	gl.UniformMatrix4fv(p.locProjection, 1, false, f.projection.Ptr())
	gl.UniformMatrix4fv(p.locView, 1, false, f.view.Ptr())
	gl.UniformMatrix4fv(p.locModel, 1, false, it.world.Ptr())
	gl.Uniform3f(p.locLightDir, f.lightDir.X, f.lightDir.Y, f.lightDir.Z)
	gl.Uniform3f(p.locLightColor, f.lightColor[0], f.lightColor[1], f.lightColor[2])
	gl.Uniform3f(p.locAmbient, f.ambient[0], f.ambient[1], f.ambient[2])

	c := m.BaseColorFactor
	gl.Uniform4f(p.locBaseColorFactor, c[0], c[1], c[2], c[3])
	gl.Uniform3f(p.locEmissiveFactor, m.EmissiveFactor[0], m.EmissiveFactor[1], m.EmissiveFactor[2])
	gl.Uniform1f(p.locAlphaCutoff, m.AlphaCutoff)

	tex := e.fallbackTexture
	var features int32
	if name, ok := e.textures[m.BaseColorTexture]; ok {
		tex = name
		features |= int32(render.FeatureBaseColorTexture)
	}
	gl.Uniform1i(p.locFeatures, features)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.Uniform1i(p.locBaseColorTexture, 0)

	if m.DoubleSided {
		gl.Disable(gl.CULL_FACE)
	} else {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}

	gl.BindVertexArray(it.prim.vao)
	gl.DrawElementsWithOffset(gl.TRIANGLES, it.prim.indexCount, gl.UNSIGNED_INT, 0)
}
