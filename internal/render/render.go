// Package render defines the contract between the asset pipeline and a
// renderer: entities, GPU resource handles, and the Engine, Scene and View
// interfaces a host implements.
package render

import (
	"errors"
	"image"
	"sync/atomic"

	"github.com/Faultbox/gltfview/pkg/math"
)

// Entity identifies one object in the scene graph. The zero value is never issued.
type Entity uint32

// EntityManager issues entity identifiers.
type EntityManager struct {
	next atomic.Uint32
}

// NewEntityManager creates an entity manager.
func NewEntityManager() *EntityManager {
	return &EntityManager{}
}

// Create returns a fresh entity.
func (m *EntityManager) Create() Entity {
	return Entity(m.next.Add(1))
}

// Handles for engine-owned GPU resources. Zero means "none".
type (
	BufferHandle   uint32
	TextureHandle  uint32
	MaterialHandle uint32
)

// AlphaMode mirrors the glTF material alpha modes.
type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

// String returns the glTF spelling of the alpha mode.
func (a AlphaMode) String() string {
	switch a {
	case AlphaMask:
		return "MASK"
	case AlphaBlend:
		return "BLEND"
	default:
		return "OPAQUE"
	}
}

// Material feature bits used to pick a shader variant.
const (
	FeatureBaseColorTexture uint32 = 1 << iota
	FeatureNormalTexture
	FeatureMetallicRoughnessTexture
	FeatureOcclusionTexture
	FeatureEmissiveTexture
	FeatureVertexColor
)

// MaterialDesc describes a material template (shader variant).
type MaterialDesc struct {
	Name        string
	Unlit       bool
	DoubleSided bool
	Alpha       AlphaMode
	Features    uint32
	// Ubershader templates evaluate features at runtime instead of compiling them in.
	Ubershader bool
}

// MaterialInstance holds per-material parameters bound to a template.
type MaterialInstance struct {
	Template         MaterialHandle
	BaseColorFactor  [4]float32
	BaseColorTexture TextureHandle
	EmissiveFactor   [3]float32
	AlphaCutoff      float32
	DoubleSided      bool
}

// Vertex is the interleaved vertex layout uploaded for every primitive.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// Sampler holds texture sampling state using glTF/GL enum values. Zero fields
// mean "renderer default".
type Sampler struct {
	MagFilter int
	MinFilter int
	WrapS     int
	WrapT     int
}

// Primitive is one draw call of a renderable.
type Primitive struct {
	Vertices   BufferHandle
	Indices    BufferHandle
	IndexCount int
	Material   MaterialInstance
	Bounds     math.AABB
}

// Renderable is the drawable component attached to an entity.
type Renderable struct {
	Primitives []Primitive
}

// Fence is a GPU synchronization point.
type Fence interface {
	// Wait blocks until all GPU work submitted before the fence was created has completed.
	Wait() error
	// Destroy releases the fence.
	Destroy()
}

// Engine creates and destroys GPU-side resources. Calls are made from the
// single controlling thread; the GPU consumes them asynchronously.
type Engine interface {
	Entities() *EntityManager

	CreateVertexBuffer(vertices []Vertex) (BufferHandle, error)
	CreateIndexBuffer(indices []uint32) (BufferHandle, error)
	DestroyBuffer(h BufferHandle)

	CreateTexture(img *image.RGBA, s Sampler) (TextureHandle, error)
	DestroyTexture(h TextureHandle)

	CreateMaterial(desc MaterialDesc) (MaterialHandle, error)
	DestroyMaterial(h MaterialHandle)

	SetRenderable(e Entity, r Renderable)
	DestroyRenderable(e Entity)
	SetTransform(e Entity, world math.Mat4)

	CreateFence() Fence
}

// Scene is the set of entities drawn by a view.
type Scene interface {
	AddEntity(e Entity)
	RemoveEntity(e Entity)
}

// View holds per-view rendering options.
type View interface {
	SetSampleCount(n int)
	SetPostProcessAntiAliasing(enabled bool)
}

// ErrFenceFailed is returned when waiting on a fence fails.
var ErrFenceFailed = errors.New("fence wait failed")

// WaitAndDestroy waits on f and destroys it, even when the wait fails.
func WaitAndDestroy(f Fence) error {
	defer f.Destroy()
	return f.Wait()
}
