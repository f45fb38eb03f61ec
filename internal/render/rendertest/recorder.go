// Package rendertest provides an in-memory render.Engine that records every
// call so tests can assert on resource lifetimes and call ordering.
package rendertest

import (
	"fmt"
	"image"
	"sync"

	"github.com/Faultbox/gltfview/internal/render"
	"github.com/Faultbox/gltfview/pkg/math"
)

// Call names recorded in the log.
const (
	CallCreateVertexBuffer = "create-vertex-buffer"
	CallCreateIndexBuffer  = "create-index-buffer"
	CallDestroyBuffer      = "destroy-buffer"
	CallCreateTexture      = "create-texture"
	CallDestroyTexture     = "destroy-texture"
	CallCreateMaterial     = "create-material"
	CallDestroyMaterial    = "destroy-material"
	CallSetRenderable      = "set-renderable"
	CallDestroyRenderable  = "destroy-renderable"
	CallSetTransform       = "set-transform"
	CallCreateFence        = "create-fence"
	CallFenceWait          = "fence.wait"
	CallFenceDestroy       = "fence.destroy"
	CallSceneAdd           = "scene.add"
	CallSceneRemove        = "scene.remove"
	CallViewSampleCount    = "view.sample-count"
	CallViewPostAA         = "view.post-aa"
)

// Recorder implements render.Engine, render.Scene and render.View.
type Recorder struct {
	mu       sync.Mutex
	entities *render.EntityManager
	next     uint32
	calls    []string

	buffers     map[render.BufferHandle]int
	textures    map[render.TextureHandle]image.Point
	materials   map[render.MaterialHandle]render.MaterialDesc
	renderables map[render.Entity]render.Renderable
	transforms  map[render.Entity]math.Mat4
	scene       map[render.Entity]bool

	// DoubleFrees counts destroy calls on handles that were not live.
	DoubleFrees int
	// FenceErr is returned by every fence Wait when set.
	FenceErr error

	SampleCount int
	PostAA      bool
}

// New creates an empty recorder.
func New() *Recorder {
	return &Recorder{
		entities:    render.NewEntityManager(),
		buffers:     make(map[render.BufferHandle]int),
		textures:    make(map[render.TextureHandle]image.Point),
		materials:   make(map[render.MaterialHandle]render.MaterialDesc),
		renderables: make(map[render.Entity]render.Renderable),
		transforms:  make(map[render.Entity]math.Mat4),
		scene:       make(map[render.Entity]bool),
	}
}

func (r *Recorder) record(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *Recorder) handle() uint32 {
	r.next++
	return r.next
}

// Entities implements render.Engine.
func (r *Recorder) Entities() *render.EntityManager {
	return r.entities
}

func (r *Recorder) CreateVertexBuffer(vertices []render.Vertex) (render.BufferHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := render.BufferHandle(r.handle())
	r.buffers[h] = len(vertices)
	r.record(CallCreateVertexBuffer)
	return h, nil
}

func (r *Recorder) CreateIndexBuffer(indices []uint32) (render.BufferHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := render.BufferHandle(r.handle())
	r.buffers[h] = len(indices)
	r.record(CallCreateIndexBuffer)
	return h, nil
}

func (r *Recorder) DestroyBuffer(h render.BufferHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buffers[h]; !ok {
		r.DoubleFrees++
	}
	delete(r.buffers, h)
	r.record(CallDestroyBuffer)
}

func (r *Recorder) CreateTexture(img *image.RGBA, _ render.Sampler) (render.TextureHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := render.TextureHandle(r.handle())
	r.textures[h] = img.Bounds().Size()
	r.record(CallCreateTexture)
	return h, nil
}

func (r *Recorder) DestroyTexture(h render.TextureHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.textures[h]; !ok {
		r.DoubleFrees++
	}
	delete(r.textures, h)
	r.record(CallDestroyTexture)
}

func (r *Recorder) CreateMaterial(desc render.MaterialDesc) (render.MaterialHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := render.MaterialHandle(r.handle())
	r.materials[h] = desc
	r.record(CallCreateMaterial)
	return h, nil
}

func (r *Recorder) DestroyMaterial(h render.MaterialHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.materials[h]; !ok {
		r.DoubleFrees++
	}
	delete(r.materials, h)
	r.record(CallDestroyMaterial)
}

func (r *Recorder) SetRenderable(e render.Entity, rend render.Renderable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderables[e] = rend
	r.record(CallSetRenderable)
}

func (r *Recorder) DestroyRenderable(e render.Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.renderables, e)
	delete(r.transforms, e)
	r.record(CallDestroyRenderable)
}

func (r *Recorder) SetTransform(e render.Entity, world math.Mat4) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transforms[e] = world
}

func (r *Recorder) CreateFence() render.Fence {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(CallCreateFence)
	return &fence{r: r}
}

// AddEntity implements render.Scene.
func (r *Recorder) AddEntity(e render.Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scene[e] = true
	r.record(CallSceneAdd)
}

// RemoveEntity implements render.Scene.
func (r *Recorder) RemoveEntity(e render.Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scene, e)
	r.record(CallSceneRemove)
}

// SetSampleCount implements render.View.
func (r *Recorder) SetSampleCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SampleCount = n
	r.record(CallViewSampleCount)
}

// SetPostProcessAntiAliasing implements render.View.
func (r *Recorder) SetPostProcessAntiAliasing(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.PostAA = enabled
	r.record(CallViewPostAA)
}

type fence struct {
	r *Recorder
}

func (f *fence) Wait() error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.record(CallFenceWait)
	return f.r.FenceErr
}

func (f *fence) Destroy() {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.record(CallFenceDestroy)
}

// Calls returns a copy of the call log.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Index returns the position of the first call named name at or after from, or -1.
func (r *Recorder) Index(name string, from int) int {
	calls := r.Calls()
	for i := from; i < len(calls); i++ {
		if calls[i] == name {
			return i
		}
	}
	return -1
}

// Count returns how many times name was recorded.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, c := range r.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

// LiveBuffers returns the number of buffers not yet destroyed.
func (r *Recorder) LiveBuffers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers)
}

// LiveTextures returns the number of textures not yet destroyed.
func (r *Recorder) LiveTextures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.textures)
}

// LiveMaterials returns the number of material templates not yet destroyed.
func (r *Recorder) LiveMaterials() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.materials)
}

// Materials returns a copy of the live material templates.
func (r *Recorder) Materials() []render.MaterialDesc {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]render.MaterialDesc, 0, len(r.materials))
	for _, d := range r.materials {
		out = append(out, d)
	}
	return out
}

// Renderable returns the renderable attached to e.
func (r *Recorder) Renderable(e render.Entity) (render.Renderable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rend, ok := r.renderables[e]
	return rend, ok
}

// Renderables returns the number of entities with a renderable.
func (r *Recorder) Renderables() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.renderables)
}

// Transform returns the last world transform set for e.
func (r *Recorder) Transform(e render.Entity) (math.Mat4, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.transforms[e]
	return m, ok
}

// InScene reports whether e is in the scene.
func (r *Recorder) InScene(e render.Entity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scene[e]
}

// SceneSize returns the number of entities in the scene.
func (r *Recorder) SceneSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scene)
}
