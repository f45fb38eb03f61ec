package gltf

import (
	"fmt"

	"github.com/Faultbox/gltfview/internal/render"
	"github.com/Faultbox/gltfview/pkg/math"
)

// State tracks how much of an asset's parse-time data is still available.
type State int

const (
	// StateParsed: the document and buffers are held; resources may be loaded.
	StateParsed State = iota
	// StateAnimationReady: the animator has been realized.
	StateAnimationReady
	// StateSourceReleased: document and buffer bytes are gone; only
	// entities, GPU resources and the animator remain.
	StateSourceReleased
	// StateDestroyed: the owning loader has released everything.
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateParsed:
		return "parsed"
	case StateAnimationReady:
		return "animation-ready"
	case StateSourceReleased:
		return "source-released"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transform is a node's local transform.
type transform struct {
	matrix *math.Mat4 // set when the node used a matrix instead of TRS
	t      math.Vec3
	r      math.Quat
	s      math.Vec3
}

func (tr transform) mat4() math.Mat4 {
	if tr.matrix != nil {
		return *tr.matrix
	}
	return math.Compose(tr.t, tr.r, tr.s)
}

// Asset is a parsed scene. It is owned by the Loader that created it and
// must be released with Loader.DestroyAsset.
type Asset struct {
	loader *Loader
	state  State

	// Source data, dropped by ReleaseSourceData.
	doc     *document
	bin     []byte
	buffers [][]byte

	root     render.Entity
	entities []render.Entity // by node index; zero for nodes outside the scene
	parents  []int
	local    []transform
	world    []math.Mat4
	bounds   math.AABB

	// Per glTF material index; defaultMaterial is used by primitives without one.
	materials       []render.MaterialInstance
	defaultMaterial render.MaterialInstance

	resourcesLoaded bool
	gpuBuffers      []render.BufferHandle
	textures        []render.TextureHandle // by glTF texture index; zero when unresolved
	renderables     []render.Entity

	animator *Animator
}

// State returns the current state.
func (a *Asset) State() State {
	return a.state
}

// Root returns the entity every top-level node is parented to.
func (a *Asset) Root() render.Entity {
	return a.root
}

// Entities returns the root followed by one entity per instantiated node.
func (a *Asset) Entities() []render.Entity {
	if a.state == StateDestroyed {
		return nil
	}
	out := make([]render.Entity, 0, len(a.entities)+1)
	out = append(out, a.root)
	for _, e := range a.entities {
		if e != 0 {
			out = append(out, e)
		}
	}
	return out
}

// Children returns the direct children of e. The root's children are the
// scene's top-level nodes.
func (a *Asset) Children(e render.Entity) []render.Entity {
	var out []render.Entity
	for i, child := range a.entities {
		if child == 0 {
			continue
		}
		if a.parentEntity(i) == e {
			out = append(out, child)
		}
	}
	return out
}

func (a *Asset) parentEntity(nodeIndex int) render.Entity {
	if p := a.parents[nodeIndex]; p >= 0 && a.entities[p] != 0 {
		return a.entities[p]
	}
	return a.root
}

// Renderables returns the entities that received a renderable from the
// resource loader.
func (a *Asset) Renderables() []render.Entity {
	return a.renderables
}

// TextureCount returns the number of textures uploaded for the asset.
func (a *Asset) TextureCount() int {
	n := 0
	for _, t := range a.textures {
		if t != 0 {
			n++
		}
	}
	return n
}

// Bounds returns the world-space bounding box of all primitives.
func (a *Asset) Bounds() math.AABB {
	return a.bounds
}

// ResourceURIs lists the external buffer and image URIs the document references.
func (a *Asset) ResourceURIs() ([]string, error) {
	if err := a.requireSource(); err != nil {
		return nil, err
	}
	var uris []string
	for _, b := range a.doc.Buffers {
		if b.URI != "" && !isDataURI(b.URI) {
			uris = append(uris, b.URI)
		}
	}
	for _, img := range a.doc.Images {
		if img.URI != "" && !isDataURI(img.URI) {
			uris = append(uris, img.URI)
		}
	}
	return uris, nil
}

// NodeCount returns the number of nodes in the source document.
func (a *Asset) NodeCount() (int, error) {
	if err := a.requireSource(); err != nil {
		return 0, err
	}
	return len(a.doc.Nodes), nil
}

// Generator returns the asset.generator string of the source document.
func (a *Asset) Generator() (string, error) {
	if err := a.requireSource(); err != nil {
		return "", err
	}
	return a.doc.Asset.Generator, nil
}

func (a *Asset) requireSource() error {
	switch a.state {
	case StateSourceReleased:
		return ErrSourceReleased
	case StateDestroyed:
		return fmt.Errorf("%w: %s", ErrInvalidAssetState, a.state)
	}
	return nil
}

// ReleaseSourceData drops the document and buffer bytes. It is irreversible:
// later source queries and resource loading fail with ErrSourceReleased.
func (a *Asset) ReleaseSourceData() error {
	switch a.state {
	case StateSourceReleased:
		return nil
	case StateDestroyed:
		return fmt.Errorf("%w: %s", ErrInvalidAssetState, a.state)
	}
	a.doc = nil
	a.bin = nil
	a.buffers = nil
	a.state = StateSourceReleased
	return nil
}

// computeWorld fills world with the transforms of local composed with
// their ancestors.
func computeWorld(local []transform, parents []int, world []math.Mat4) {
	done := make([]bool, len(local))
	var resolve func(i int) math.Mat4
	resolve = func(i int) math.Mat4 {
		if done[i] {
			return world[i]
		}
		m := local[i].mat4()
		if p := parents[i]; p >= 0 {
			m = resolve(p).Mul(m)
		}
		world[i] = m
		done[i] = true
		return m
	}
	for i := range local {
		resolve(i)
	}
}
