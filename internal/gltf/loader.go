// Package gltf parses glTF 2.0 scenes into renderer entities, loads their
// external resources and realizes their animations.
package gltf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/gltfview/internal/config"
	"github.com/Faultbox/gltfview/internal/logger"
	"github.com/Faultbox/gltfview/internal/names"
	"github.com/Faultbox/gltfview/internal/render"
	"github.com/Faultbox/gltfview/pkg/math"
)

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	Engine         render.Engine
	Names          *names.Registry
	MaterialSource config.MaterialSource
}

// Loader creates assets bound to one engine. It owns every asset and
// material template it creates until told to destroy them.
type Loader struct {
	engine    render.Engine
	names     *names.Registry
	materials *materialProvider
	assets    map[*Asset]struct{}
	destroyed bool
}

// NewLoader creates a loader. A nil registry is replaced by a private one.
func NewLoader(cfg LoaderConfig) *Loader {
	reg := cfg.Names
	if reg == nil {
		reg = names.NewRegistry()
	}
	return &Loader{
		engine:    cfg.Engine,
		names:     reg,
		materials: newMaterialProvider(cfg.Engine, cfg.MaterialSource),
		assets:    make(map[*Asset]struct{}),
	}
}

// ParseBinary parses a GLB container. The BIN chunk is copied so the caller
// may release data once this returns.
func (l *Loader) ParseBinary(data []byte) (*Asset, error) {
	if l.destroyed {
		return nil, ErrLoaderDestroyed
	}
	jsonChunk, binChunk, err := splitGLB(data)
	if err != nil {
		return nil, err
	}
	return l.parse(jsonChunk, bytes.Clone(binChunk))
}

// ParseText parses a JSON document.
func (l *Loader) ParseText(data []byte) (*Asset, error) {
	if l.destroyed {
		return nil, ErrLoaderDestroyed
	}
	return l.parse(data, nil)
}

func (l *Loader) parse(jsonData, bin []byte) (*Asset, error) {
	var doc document
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	parents, err := validate(&doc)
	if err != nil {
		return nil, err
	}

	a := &Asset{
		loader:  l,
		doc:     &doc,
		bin:     bin,
		parents: parents,
		local:   make([]transform, len(doc.Nodes)),
		world:   make([]math.Mat4, len(doc.Nodes)),
	}

	if err := l.buildMaterials(a); err != nil {
		// Templates stay with the provider and are freed by DestroyMaterials.
		return nil, err
	}

	for i, n := range doc.Nodes {
		a.local[i] = nodeTransform(n)
	}
	computeWorld(a.local, parents, a.world)

	em := l.engine.Entities()
	a.root = em.Create()
	a.entities = make([]render.Entity, len(doc.Nodes))
	for _, i := range sceneNodes(&doc, parents) {
		e := em.Create()
		a.entities[i] = e
		if name := doc.Nodes[i].Name; name != "" {
			l.names.Add(e, name)
		}
	}
	if s := defaultScene(&doc); s != nil && s.Name != "" {
		l.names.Add(a.root, s.Name)
	}

	a.bounds = declaredBounds(a)
	l.assets[a] = struct{}{}

	logger.Debug("asset parsed",
		zap.String("generator", doc.Asset.Generator),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("meshes", len(doc.Meshes)),
		zap.Int("animations", len(doc.Animations)),
		zap.Bool("glb", bin != nil))
	return a, nil
}

// DestroyAsset releases every resource the asset owns. Destroying an asset
// twice is a no-op.
func (l *Loader) DestroyAsset(a *Asset) error {
	if l.destroyed {
		return ErrLoaderDestroyed
	}
	if a == nil {
		return nil
	}
	if a.loader != l {
		return ErrForeignAsset
	}
	if a.state == StateDestroyed {
		return nil
	}

	for _, e := range a.renderables {
		l.engine.DestroyRenderable(e)
	}
	for _, b := range a.gpuBuffers {
		l.engine.DestroyBuffer(b)
	}
	for _, t := range a.textures {
		if t != 0 {
			l.engine.DestroyTexture(t)
		}
	}
	l.names.Remove(a.root)
	for _, e := range a.entities {
		if e != 0 {
			l.names.Remove(e)
		}
	}

	a.renderables = nil
	a.gpuBuffers = nil
	a.textures = nil
	a.animator = nil
	a.doc, a.bin, a.buffers = nil, nil, nil
	a.state = StateDestroyed
	delete(l.assets, a)
	return nil
}

// DestroyMaterials releases the material templates the loader created.
func (l *Loader) DestroyMaterials() error {
	if l.destroyed {
		return ErrLoaderDestroyed
	}
	l.materials.destroyAll()
	return nil
}

// MaterialCount returns the number of live material templates.
func (l *Loader) MaterialCount() int {
	return l.materials.count()
}

// Destroy marks the loader dead. Assets it still owns are leaked to the
// caller's responsibility and logged.
func (l *Loader) Destroy() error {
	if l.destroyed {
		return ErrLoaderDestroyed
	}
	if n := len(l.assets); n > 0 {
		logger.Warn("asset loader destroyed with live assets", zap.Int("assets", n))
	}
	if n := l.materials.count(); n > 0 {
		logger.Warn("asset loader destroyed with live materials", zap.Int("materials", n))
	}
	l.destroyed = true
	return nil
}

func (l *Loader) buildMaterials(a *Asset) error {
	def, err := l.materials.instance(defaultMaterial())
	if err != nil {
		return err
	}
	a.defaultMaterial = def

	a.materials = make([]render.MaterialInstance, len(a.doc.Materials))
	for i, m := range a.doc.Materials {
		inst, err := l.materials.instance(m)
		if err != nil {
			return fmt.Errorf("material %d: %w", i, err)
		}
		a.materials[i] = inst
	}
	return nil
}

func nodeTransform(n node) transform {
	if n.Matrix != nil {
		m := math.Mat4(*n.Matrix)
		return transform{matrix: &m}
	}
	tr := transform{r: math.QuatIdentity(), s: math.Vec3{X: 1, Y: 1, Z: 1}}
	if n.Translation != nil {
		tr.t = math.V3(*n.Translation)
	}
	if n.Rotation != nil {
		tr.r = math.Q4(*n.Rotation)
	}
	if n.Scale != nil {
		tr.s = math.V3(*n.Scale)
	}
	return tr
}

func defaultScene(doc *document) *scene {
	if len(doc.Scenes) == 0 {
		return nil
	}
	i := 0
	if doc.Scene != nil {
		i = *doc.Scene
	}
	return &doc.Scenes[i]
}

// sceneNodes returns the nodes reachable from the default scene, parents
// before children. Documents without scenes instantiate every root node.
func sceneNodes(doc *document, parents []int) []int {
	var roots []int
	if s := defaultScene(doc); s != nil {
		roots = s.Nodes
	} else {
		for i, p := range parents {
			if p < 0 {
				roots = append(roots, i)
			}
		}
	}

	var out []int
	seen := make([]bool, len(doc.Nodes))
	var walk func(i int)
	walk = func(i int) {
		if seen[i] {
			return
		}
		seen[i] = true
		out = append(out, i)
		for _, c := range doc.Nodes[i].Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}

// declaredBounds uses POSITION min/max, which glTF requires.
func declaredBounds(a *Asset) math.AABB {
	b := math.EmptyAABB()
	for i, e := range a.entities {
		n := a.doc.Nodes[i]
		if e == 0 || n.Mesh == nil {
			continue
		}
		for _, p := range a.doc.Meshes[*n.Mesh].Primitives {
			idx, ok := p.Attributes["POSITION"]
			if !ok {
				continue
			}
			acc := a.doc.Accessors[idx]
			if len(acc.Min) < 3 || len(acc.Max) < 3 {
				continue
			}
			local := math.EmptyAABB().
				Extend(math.Vec3{X: acc.Min[0], Y: acc.Min[1], Z: acc.Min[2]}).
				Extend(math.Vec3{X: acc.Max[0], Y: acc.Max[1], Z: acc.Max[2]})
			b = b.Union(local.Transform(a.world[i]))
		}
	}
	return b
}

const (
	// maxByteLength bounds buffer and buffer view sizes (the GLB length field is 32-bit).
	maxByteLength = 1<<31 - 1
	// maxZeroAccessorCount bounds accessors that have no buffer view and read as zeros.
	maxZeroAccessorCount = 1 << 24
)

// validate checks versions, index references and byte ranges, and returns
// each node's parent.
func validate(doc *document) ([]int, error) {
	major, _, _ := strings.Cut(doc.Asset.Version, ".")
	if major != "2" {
		return nil, fmt.Errorf("%w: asset version %q", ErrUnsupportedVersion, doc.Asset.Version)
	}
	for _, ext := range doc.ExtensionsRequired {
		if ext != extUnlit {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFeature, ext)
		}
	}

	ref := func(kind string, i, n int) error {
		if i < 0 || i >= n {
			return fmt.Errorf("%w: %s %d (have %d)", ErrInvalidReference, kind, i, n)
		}
		return nil
	}
	optRef := func(kind string, i *int, n int) error {
		if i == nil {
			return nil
		}
		return ref(kind, *i, n)
	}
	texRef := func(t *textureInfo) error {
		if t == nil {
			return nil
		}
		return ref("texture", t.Index, len(doc.Textures))
	}

	if err := optRef("scene", doc.Scene, len(doc.Scenes)); err != nil {
		return nil, err
	}
	for _, s := range doc.Scenes {
		for _, n := range s.Nodes {
			if err := ref("node", n, len(doc.Nodes)); err != nil {
				return nil, err
			}
		}
	}

	parents := make([]int, len(doc.Nodes))
	for i := range parents {
		parents[i] = -1
	}
	for i, n := range doc.Nodes {
		if err := optRef("mesh", n.Mesh, len(doc.Meshes)); err != nil {
			return nil, err
		}
		for _, c := range n.Children {
			if err := ref("node", c, len(doc.Nodes)); err != nil {
				return nil, err
			}
			if c == i || parents[c] >= 0 {
				return nil, fmt.Errorf("%w: node %d has more than one parent", ErrInvalidHierarchy, c)
			}
			parents[c] = i
		}
	}
	if err := checkAcyclic(parents); err != nil {
		return nil, err
	}
	for _, s := range doc.Scenes {
		for _, n := range s.Nodes {
			if parents[n] >= 0 {
				return nil, fmt.Errorf("%w: scene root %d is a child of node %d", ErrInvalidHierarchy, n, parents[n])
			}
		}
	}

	for mi, m := range doc.Meshes {
		if len(m.Primitives) == 0 {
			return nil, fmt.Errorf("%w: mesh %d has no primitives", ErrInvalidReference, mi)
		}
		for _, p := range m.Primitives {
			for _, a := range p.Attributes {
				if err := ref("accessor", a, len(doc.Accessors)); err != nil {
					return nil, err
				}
			}
			if err := optRef("accessor", p.Indices, len(doc.Accessors)); err != nil {
				return nil, err
			}
			if err := optRef("material", p.Material, len(doc.Materials)); err != nil {
				return nil, err
			}
		}
	}
	for bi, b := range doc.Buffers {
		if b.ByteLength < 0 || b.ByteLength > maxByteLength {
			return nil, fmt.Errorf("%w: buffer %d byteLength %d", ErrInvalidReference, bi, b.ByteLength)
		}
	}
	for vi, bv := range doc.BufferViews {
		if err := ref("buffer", bv.Buffer, len(doc.Buffers)); err != nil {
			return nil, err
		}
		if bv.ByteOffset < 0 || bv.ByteLength < 0 || bv.ByteOffset > doc.Buffers[bv.Buffer].ByteLength-bv.ByteLength {
			return nil, fmt.Errorf("%w: bufferView %d range [%d,+%d) outside buffer %d",
				ErrInvalidReference, vi, bv.ByteOffset, bv.ByteLength, bv.Buffer)
		}
		if bv.ByteStride != 0 && (bv.ByteStride < 4 || bv.ByteStride > 252) {
			return nil, fmt.Errorf("%w: bufferView %d byteStride %d", ErrInvalidReference, vi, bv.ByteStride)
		}
	}
	for ai, acc := range doc.Accessors {
		if err := optRef("bufferView", acc.BufferView, len(doc.BufferViews)); err != nil {
			return nil, err
		}
		elem := componentSize(acc.ComponentType) * typeComponents(acc.Type)
		if elem == 0 {
			return nil, fmt.Errorf("%w: accessor type %s/%d", ErrInvalidReference, acc.Type, acc.ComponentType)
		}
		if acc.ByteOffset < 0 || acc.Count < 0 {
			return nil, fmt.Errorf("%w: accessor %d byteOffset %d count %d", ErrInvalidReference, ai, acc.ByteOffset, acc.Count)
		}
		limit := maxByteLength / elem
		if acc.BufferView == nil {
			limit = maxZeroAccessorCount
		}
		if acc.Count > limit {
			return nil, fmt.Errorf("%w: accessor %d count %d", ErrInvalidReference, ai, acc.Count)
		}
	}
	for _, m := range doc.Materials {
		if pbr := m.PBRMetallicRoughness; pbr != nil {
			if err := texRef(pbr.BaseColorTexture); err != nil {
				return nil, err
			}
			if err := texRef(pbr.MetallicRoughnessTexture); err != nil {
				return nil, err
			}
		}
		for _, t := range []*textureInfo{m.NormalTexture, m.OcclusionTexture, m.EmissiveTexture} {
			if err := texRef(t); err != nil {
				return nil, err
			}
		}
	}
	for _, t := range doc.Textures {
		if err := optRef("image", t.Source, len(doc.Images)); err != nil {
			return nil, err
		}
		if err := optRef("sampler", t.Sampler, len(doc.Samplers)); err != nil {
			return nil, err
		}
	}
	for _, img := range doc.Images {
		if err := optRef("bufferView", img.BufferView, len(doc.BufferViews)); err != nil {
			return nil, err
		}
	}
	for _, an := range doc.Animations {
		for _, s := range an.Samplers {
			if err := ref("accessor", s.Input, len(doc.Accessors)); err != nil {
				return nil, err
			}
			if err := ref("accessor", s.Output, len(doc.Accessors)); err != nil {
				return nil, err
			}
		}
		for _, c := range an.Channels {
			if err := ref("animation sampler", c.Sampler, len(an.Samplers)); err != nil {
				return nil, err
			}
			if err := optRef("node", c.Target.Node, len(doc.Nodes)); err != nil {
				return nil, err
			}
		}
	}
	return parents, nil
}

func checkAcyclic(parents []int) error {
	for i := range parents {
		steps := 0
		for p := parents[i]; p >= 0; p = parents[p] {
			if steps++; steps > len(parents) {
				return fmt.Errorf("%w: cycle through node %d", ErrInvalidHierarchy, i)
			}
		}
	}
	return nil
}
