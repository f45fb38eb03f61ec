package host

import (
	"fmt"
	"image"
	"time"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/gltfview/internal/engine/shader"
	"github.com/Faultbox/gltfview/internal/logger"
	"github.com/Faultbox/gltfview/internal/render"
	"github.com/Faultbox/gltfview/pkg/math"
)

// fenceTimeout bounds one ClientWaitSync call; fenceAttempts bounds the retries.
const (
	fenceTimeout  = time.Second
	fenceAttempts = 10
)

type glBuffer struct {
	name  uint32
	count int
}

type glPrimitive struct {
	vao        uint32
	indexCount int32
	material   render.MaterialInstance
}

// program is a linked material template with its uniform locations.
type program struct {
	desc render.MaterialDesc
	id   uint32

	locModel, locView, locProjection int32
	locBaseColorTexture              int32
	locBaseColorFactor               int32
	locEmissiveFactor                int32
	locAlphaCutoff                   int32
	locLightDir, locLightColor       int32
	locAmbient                       int32
	locFeatures                      int32
}

// Engine implements render.Engine on OpenGL 4.1 core. All methods must be
// called on the thread that owns the GL context.
type Engine struct {
	entities *render.EntityManager
	next     uint32

	buffers     map[render.BufferHandle]glBuffer
	textures    map[render.TextureHandle]uint32
	programs    map[render.MaterialHandle]*program
	renderables map[render.Entity][]glPrimitive
	transforms  map[render.Entity]math.Mat4

	// White 1x1 texture bound when a template samples a texture the asset could not provide.
	fallbackTexture uint32
}

// NewEngine creates the engine. The GL context must be current.
func NewEngine() *Engine {
	e := &Engine{
		entities:    render.NewEntityManager(),
		buffers:     make(map[render.BufferHandle]glBuffer),
		textures:    make(map[render.TextureHandle]uint32),
		programs:    make(map[render.MaterialHandle]*program),
		renderables: make(map[render.Entity][]glPrimitive),
		transforms:  make(map[render.Entity]math.Mat4),
	}
	white := []byte{255, 255, 255, 255}
	gl.GenTextures(1, &e.fallbackTexture)
	gl.BindTexture(gl.TEXTURE_2D, e.fallbackTexture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, 1, 1, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(white))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	return e
}

func (e *Engine) handle() uint32 {
	e.next++
	return e.next
}

// Entities implements render.Engine.
func (e *Engine) Entities() *render.EntityManager {
	return e.entities
}

func (e *Engine) createBuffer(target uint32, size int, data unsafe.Pointer, count int) render.BufferHandle {
	var name uint32
	gl.GenBuffers(1, &name)
	gl.BindBuffer(target, name)
	gl.BufferData(target, size, data, gl.STATIC_DRAW)
	gl.BindBuffer(target, 0)

	h := render.BufferHandle(e.handle())
	e.buffers[h] = glBuffer{name: name, count: count}
	return h
}

// CreateVertexBuffer implements render.Engine.
func (e *Engine) CreateVertexBuffer(vertices []render.Vertex) (render.BufferHandle, error) {
	if len(vertices) == 0 {
		return 0, fmt.Errorf("empty vertex buffer")
	}
	size := len(vertices) * int(unsafe.Sizeof(render.Vertex{}))
	return e.createBuffer(gl.ARRAY_BUFFER, size, unsafe.Pointer(&vertices[0]), len(vertices)), nil
}

// CreateIndexBuffer implements render.Engine.
func (e *Engine) CreateIndexBuffer(indices []uint32) (render.BufferHandle, error) {
	if len(indices) == 0 {
		return 0, fmt.Errorf("empty index buffer")
	}
	return e.createBuffer(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, unsafe.Pointer(&indices[0]), len(indices)), nil
}

// DestroyBuffer implements render.Engine.
func (e *Engine) DestroyBuffer(h render.BufferHandle) {
	b, ok := e.buffers[h]
	if !ok {
		logger.Warn("destroying unknown buffer", zap.Uint32("handle", uint32(h)))
		return
	}
	gl.DeleteBuffers(1, &b.name)
	delete(e.buffers, h)
}

// CreateTexture implements render.Engine.
func (e *Engine) CreateTexture(img *image.RGBA, s render.Sampler) (render.TextureHandle, error) {
	size := img.Bounds().Size()
	if size.X == 0 || size.Y == 0 {
		return 0, fmt.Errorf("empty image")
	}
	if img.Stride != size.X*4 {
		return 0, fmt.Errorf("image stride %d does not match width %d", img.Stride, size.X)
	}

	var name uint32
	gl.GenTextures(1, &name)
	gl.BindTexture(gl.TEXTURE_2D, name)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(size.X), int32(size.Y), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))

	minFilter, magFilter, wrapS, wrapT := samplerState(s)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, magFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrapS)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrapT)
	if usesMipmaps(minFilter) {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)

	h := render.TextureHandle(e.handle())
	e.textures[h] = name
	return h, nil
}

// samplerState maps glTF sampler values (GL enums) to GL parameters,
// substituting defaults for unset fields.
func samplerState(s render.Sampler) (minFilter, magFilter, wrapS, wrapT int32) {
	pick := func(v int, def int32) int32 {
		if v == 0 {
			return def
		}
		return int32(v)
	}
	return pick(s.MinFilter, gl.LINEAR_MIPMAP_LINEAR),
		pick(s.MagFilter, gl.LINEAR),
		pick(s.WrapS, gl.REPEAT),
		pick(s.WrapT, gl.REPEAT)
}

func usesMipmaps(minFilter int32) bool {
	switch minFilter {
	case gl.NEAREST_MIPMAP_NEAREST, gl.LINEAR_MIPMAP_NEAREST,
		gl.NEAREST_MIPMAP_LINEAR, gl.LINEAR_MIPMAP_LINEAR:
		return true
	}
	return false
}

// DestroyTexture implements render.Engine.
func (e *Engine) DestroyTexture(h render.TextureHandle) {
	name, ok := e.textures[h]
	if !ok {
		logger.Warn("destroying unknown texture", zap.Uint32("handle", uint32(h)))
		return
	}
	gl.DeleteTextures(1, &name)
	delete(e.textures, h)
}

// CreateMaterial compiles the template's shader variant.
func (e *Engine) CreateMaterial(desc render.MaterialDesc) (render.MaterialHandle, error) {
	id, err := shader.CompileVariant(shader.PreviewVertex, shader.PreviewFragment, templateDefines(desc)...)
	if err != nil {
		return 0, fmt.Errorf("compiling template %s: %w", desc.Name, err)
	}

	p := &program{
		desc:                desc,
		id:                  id,
		locModel:            shader.Uniform(id, "uModel"),
		locView:             shader.Uniform(id, "uView"),
		locProjection:       shader.Uniform(id, "uProjection"),
		locBaseColorTexture: shader.Uniform(id, "uBaseColorTexture"),
		locBaseColorFactor:  shader.Uniform(id, "uBaseColorFactor"),
		locEmissiveFactor:   shader.Uniform(id, "uEmissiveFactor"),
		locAlphaCutoff:      shader.Uniform(id, "uAlphaCutoff"),
		locLightDir:         shader.Uniform(id, "uLightDir"),
		locLightColor:       shader.Uniform(id, "uLightColor"),
		locAmbient:          shader.Uniform(id, "uAmbient"),
		locFeatures:         shader.Uniform(id, "uFeatures"),
	}
	h := render.MaterialHandle(e.handle())
	e.programs[h] = p
	logger.Debug("material template compiled", zap.String("name", desc.Name), zap.Uint32("program", id))
	return h, nil
}

// templateDefines selects the fragment variant for a template.
func templateDefines(desc render.MaterialDesc) []string {
	var defs []string
	if desc.Ubershader {
		defs = append(defs, "UBERSHADER")
	} else if desc.Features&render.FeatureBaseColorTexture != 0 {
		defs = append(defs, "HAS_BASE_COLOR_TEXTURE")
	}
	if desc.Unlit {
		defs = append(defs, "UNLIT")
	}
	switch desc.Alpha {
	case render.AlphaMask:
		defs = append(defs, "ALPHA_MASK")
	case render.AlphaBlend:
		defs = append(defs, "ALPHA_BLEND")
	}
	return defs
}

// DestroyMaterial implements render.Engine.
func (e *Engine) DestroyMaterial(h render.MaterialHandle) {
	p, ok := e.programs[h]
	if !ok {
		logger.Warn("destroying unknown material", zap.Uint32("handle", uint32(h)))
		return
	}
	gl.DeleteProgram(p.id)
	delete(e.programs, h)
}

// SetRenderable builds one vertex array per primitive, replacing any
// previous renderable of ent.
func (e *Engine) SetRenderable(ent render.Entity, r render.Renderable) {
	e.DestroyRenderable(ent)

	stride := int32(unsafe.Sizeof(render.Vertex{}))
	prims := make([]glPrimitive, 0, len(r.Primitives))
	for _, p := range r.Primitives {
		vb, okV := e.buffers[p.Vertices]
		ib, okI := e.buffers[p.Indices]
		if !okV || !okI {
			logger.Warn("renderable references unknown buffer", zap.Uint32("entity", uint32(ent)))
			continue
		}

		var vao uint32
		gl.GenVertexArrays(1, &vao)
		gl.BindVertexArray(vao)
		gl.BindBuffer(gl.ARRAY_BUFFER, vb.name)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ib.name)

		gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
		gl.EnableVertexAttribArray(0)
		gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 12)
		gl.EnableVertexAttribArray(1)
		gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 24)
		gl.EnableVertexAttribArray(2)

		gl.BindVertexArray(0)
		prims = append(prims, glPrimitive{vao: vao, indexCount: int32(p.IndexCount), material: p.Material})
	}
	e.renderables[ent] = prims
}

// DestroyRenderable implements render.Engine.
func (e *Engine) DestroyRenderable(ent render.Entity) {
	for _, p := range e.renderables[ent] {
		gl.DeleteVertexArrays(1, &p.vao)
	}
	delete(e.renderables, ent)
	delete(e.transforms, ent)
}

// SetTransform implements render.Engine.
func (e *Engine) SetTransform(ent render.Entity, world math.Mat4) {
	e.transforms[ent] = world
}

// CreateFence inserts a fence after every command issued so far.
func (e *Engine) CreateFence() render.Fence {
	return &glFence{sync: gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0)}
}

type glFence struct {
	sync uintptr
}

func (f *glFence) Wait() error {
	if f.sync == 0 {
		return fmt.Errorf("%w: no sync object", render.ErrFenceFailed)
	}
	for i := 0; i < fenceAttempts; i++ {
		switch gl.ClientWaitSync(f.sync, gl.SYNC_FLUSH_COMMANDS_BIT, uint64(fenceTimeout.Nanoseconds())) {
		case gl.ALREADY_SIGNALED, gl.CONDITION_SATISFIED:
			return nil
		case gl.TIMEOUT_EXPIRED:
			logger.Debug("GPU fence still pending", zap.Int("attempt", i+1))
		default:
			return render.ErrFenceFailed
		}
	}
	return fmt.Errorf("%w: timed out after %s", render.ErrFenceFailed, fenceTimeout*fenceAttempts)
}

func (f *glFence) Destroy() {
	if f.sync != 0 {
		gl.DeleteSync(f.sync)
		f.sync = 0
	}
}

// Destroy releases engine-owned objects and reports anything the asset
// pipeline failed to release.
func (e *Engine) Destroy() {
	if n := len(e.buffers) + len(e.textures) + len(e.programs) + len(e.renderables); n > 0 {
		logger.Warn("GPU resources still live at engine shutdown",
			zap.Int("buffers", len(e.buffers)),
			zap.Int("textures", len(e.textures)),
			zap.Int("materials", len(e.programs)),
			zap.Int("renderables", len(e.renderables)))
	}
	if e.fallbackTexture != 0 {
		gl.DeleteTextures(1, &e.fallbackTexture)
		e.fallbackTexture = 0
	}
}
