package gltf

import (
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/gltfview/internal/logger"
	"github.com/Faultbox/gltfview/internal/render"
	"github.com/Faultbox/gltfview/internal/texture"
	"github.com/Faultbox/gltfview/pkg/math"
)

// ResourceConfig configures a ResourceLoader.
type ResourceConfig struct {
	Engine render.Engine
	// BaseDir is where relative URIs resolve. Empty means there is no
	// directory to resolve against, as for the embedded payload.
	BaseDir string
	// RecomputeBoundingBoxes derives bounds from vertex data instead of
	// the declared POSITION min/max.
	RecomputeBoundingBoxes bool
}

// ShortfallKind names the kind of resource that could not be resolved.
type ShortfallKind string

const (
	ShortfallBuffer    ShortfallKind = "buffer"
	ShortfallImage     ShortfallKind = "image"
	ShortfallTexture   ShortfallKind = "texture"
	ShortfallPrimitive ShortfallKind = "primitive"
)

// Shortfall is a resource the loader skipped. The asset stays usable with
// reduced fidelity.
type Shortfall struct {
	Kind  ShortfallKind
	Index int
	URI   string
	Err   error
}

func (s Shortfall) String() string {
	if s.URI != "" {
		return fmt.Sprintf("%s %d (%s): %v", s.Kind, s.Index, s.URI, s.Err)
	}
	return fmt.Sprintf("%s %d: %v", s.Kind, s.Index, s.Err)
}

// ResourceReport summarizes a LoadResources call.
type ResourceReport struct {
	Buffers     int
	Textures    int
	Renderables int
	Shortfalls  []Shortfall
}

// Complete reports whether every resource was resolved.
func (r *ResourceReport) Complete() bool {
	return len(r.Shortfalls) == 0
}

func (r *ResourceReport) add(kind ShortfallKind, index int, uri string, err error) {
	r.Shortfalls = append(r.Shortfalls, Shortfall{Kind: kind, Index: index, URI: uri, Err: err})
}

var errNoBaseDir = errors.New("no base directory for external resource")

// ResourceLoader resolves the buffers and images an asset references and
// uploads its geometry and textures.
type ResourceLoader struct {
	cfg ResourceConfig
}

// NewResourceLoader creates a resource loader.
func NewResourceLoader(cfg ResourceConfig) *ResourceLoader {
	return &ResourceLoader{cfg: cfg}
}

// LoadResources loads the asset's external resources in place. Missing
// resources are reported, not returned as errors; an error means the asset
// cannot take resources at all.
func (rl *ResourceLoader) LoadResources(a *Asset) (*ResourceReport, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil asset", ErrInvalidAssetState)
	}
	switch {
	case a.state == StateSourceReleased:
		return nil, ErrSourceReleased
	case a.state != StateParsed || a.resourcesLoaded:
		return nil, fmt.Errorf("%w: resources already loaded or asset %s", ErrInvalidAssetState, a.state)
	}

	report := &ResourceReport{}
	rl.loadBuffers(a, report)
	rl.loadTextures(a, report)
	rl.buildRenderables(a, report)

	for i, e := range a.entities {
		if e != 0 {
			rl.cfg.Engine.SetTransform(e, a.world[i])
		}
	}
	a.resourcesLoaded = true

	for _, s := range report.Shortfalls {
		logger.Warn("resource unavailable", zap.String("resource", s.String()))
	}
	logger.Info("asset resources loaded",
		zap.Int("buffers", report.Buffers),
		zap.Int("textures", report.Textures),
		zap.Int("renderables", report.Renderables),
		zap.Int("shortfalls", len(report.Shortfalls)))
	return report, nil
}

func (rl *ResourceLoader) loadBuffers(a *Asset, report *ResourceReport) {
	a.buffers = make([][]byte, len(a.doc.Buffers))
	for i, b := range a.doc.Buffers {
		var data []byte
		var err error
		switch {
		case b.URI == "" && i == 0 && a.bin != nil:
			data = a.bin
		case b.URI == "":
			err = errors.New("buffer has no uri and no GLB chunk")
		default:
			data, err = rl.readURI(b.URI)
		}
		if err == nil && len(data) < b.ByteLength {
			err = fmt.Errorf("short buffer: %d of %d bytes", len(data), b.ByteLength)
		}
		if err != nil {
			report.add(ShortfallBuffer, i, displayURI(b.URI), err)
			continue
		}
		a.buffers[i] = data
		report.Buffers++
	}
}

func (rl *ResourceLoader) loadTextures(a *Asset, report *ResourceReport) {
	decoded := make([]*image.RGBA, len(a.doc.Images))
	for i, img := range a.doc.Images {
		data, err := rl.imageBytes(a, img)
		if err == nil {
			decoded[i], err = texture.Decode(data, img.MimeType)
		}
		if err != nil {
			report.add(ShortfallImage, i, displayURI(img.URI), err)
		}
	}

	a.textures = make([]render.TextureHandle, len(a.doc.Textures))
	for i, t := range a.doc.Textures {
		if t.Source == nil || decoded[*t.Source] == nil {
			continue
		}
		var s render.Sampler
		if t.Sampler != nil {
			ds := a.doc.Samplers[*t.Sampler]
			s = render.Sampler{MagFilter: ds.MagFilter, MinFilter: ds.MinFilter, WrapS: ds.WrapS, WrapT: ds.WrapT}
		}
		h, err := rl.cfg.Engine.CreateTexture(decoded[*t.Source], s)
		if err != nil {
			report.add(ShortfallTexture, i, "", err)
			continue
		}
		a.textures[i] = h
		report.Textures++
	}

	for i, m := range a.doc.Materials {
		if pbr := m.PBRMetallicRoughness; pbr != nil && pbr.BaseColorTexture != nil {
			a.materials[i].BaseColorTexture = a.textures[pbr.BaseColorTexture.Index]
		}
	}
}

func (rl *ResourceLoader) imageBytes(a *Asset, img imageDef) ([]byte, error) {
	if img.BufferView != nil {
		bv := a.doc.BufferViews[*img.BufferView]
		buf := a.buffers[bv.Buffer]
		if buf == nil {
			return nil, fmt.Errorf("%w: buffer %d", errBufferUnavailable, bv.Buffer)
		}
		if bv.ByteOffset < 0 || bv.ByteLength < 0 || bv.ByteOffset > len(buf)-bv.ByteLength {
			return nil, fmt.Errorf("image buffer view exceeds buffer %d", bv.Buffer)
		}
		return buf[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], nil
	}
	if img.URI == "" {
		return nil, errors.New("image has neither uri nor bufferView")
	}
	return rl.readURI(img.URI)
}

func (rl *ResourceLoader) buildRenderables(a *Asset, report *ResourceReport) {
	engine := rl.cfg.Engine
	var computed math.AABB
	if rl.cfg.RecomputeBoundingBoxes {
		computed = math.EmptyAABB()
	}

	for ni, e := range a.entities {
		n := a.doc.Nodes[ni]
		if e == 0 || n.Mesh == nil {
			continue
		}

		var r render.Renderable
		for pi, p := range a.doc.Meshes[*n.Mesh].Primitives {
			prim, err := rl.uploadPrimitive(a, p)
			if err != nil {
				report.add(ShortfallPrimitive, pi, "", fmt.Errorf("mesh %d: %w", *n.Mesh, err))
				continue
			}
			r.Primitives = append(r.Primitives, prim)
			if rl.cfg.RecomputeBoundingBoxes {
				computed = computed.Union(prim.Bounds.Transform(a.world[ni]))
			}
		}
		if len(r.Primitives) == 0 {
			continue
		}
		engine.SetRenderable(e, r)
		a.renderables = append(a.renderables, e)
		report.Renderables++
	}

	if rl.cfg.RecomputeBoundingBoxes {
		a.bounds = computed
	}
}

func (rl *ResourceLoader) uploadPrimitive(a *Asset, p primitive) (render.Primitive, error) {
	if p.mode() != modeTriangles {
		return render.Primitive{}, fmt.Errorf("unsupported primitive mode %d", p.mode())
	}
	posIdx, ok := p.Attributes["POSITION"]
	if !ok {
		return render.Primitive{}, errors.New("primitive has no POSITION")
	}
	pos, err := a.readFloats(posIdx, 3)
	if err != nil {
		return render.Primitive{}, fmt.Errorf("POSITION: %w", err)
	}
	count := len(pos) / 3

	vertices := make([]render.Vertex, count)
	bounds := math.EmptyAABB()
	for i := range vertices {
		vertices[i].Position = [3]float32{pos[i*3], pos[i*3+1], pos[i*3+2]}
		bounds = bounds.Extend(math.V3(vertices[i].Position))
	}
	// Optional attributes degrade to zero when unreadable.
	if idx, ok := p.Attributes["NORMAL"]; ok {
		if nrm, err := a.readFloats(idx, 3); err == nil && len(nrm) == count*3 {
			for i := range vertices {
				vertices[i].Normal = [3]float32{nrm[i*3], nrm[i*3+1], nrm[i*3+2]}
			}
		}
	}
	if idx, ok := p.Attributes["TEXCOORD_0"]; ok {
		if uv, err := a.readFloats(idx, 2); err == nil && len(uv) == count*2 {
			for i := range vertices {
				vertices[i].TexCoord = [2]float32{uv[i*2], uv[i*2+1]}
			}
		}
	}

	var indices []uint32
	if p.Indices != nil {
		if indices, err = a.readIndices(*p.Indices); err != nil {
			return render.Primitive{}, fmt.Errorf("indices: %w", err)
		}
		for _, ix := range indices {
			if int(ix) >= count {
				return render.Primitive{}, fmt.Errorf("index %d out of range (%d vertices)", ix, count)
			}
		}
	} else {
		indices = make([]uint32, count)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	engine := rl.cfg.Engine
	vb, err := engine.CreateVertexBuffer(vertices)
	if err != nil {
		return render.Primitive{}, err
	}
	ib, err := engine.CreateIndexBuffer(indices)
	if err != nil {
		engine.DestroyBuffer(vb)
		return render.Primitive{}, err
	}
	a.gpuBuffers = append(a.gpuBuffers, vb, ib)

	mat := a.defaultMaterial
	if p.Material != nil {
		mat = a.materials[*p.Material]
	}
	return render.Primitive{
		Vertices:   vb,
		Indices:    ib,
		IndexCount: len(indices),
		Material:   mat,
		Bounds:     bounds,
	}, nil
}

// readURI loads a data URI or a file relative to BaseDir.
func (rl *ResourceLoader) readURI(uri string) ([]byte, error) {
	if isDataURI(uri) {
		return decodeDataURI(uri)
	}
	if rl.cfg.BaseDir == "" {
		return nil, errNoBaseDir
	}
	rel, err := url.PathUnescape(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid uri: %w", err)
	}
	path := filepath.Join(rl.cfg.BaseDir, filepath.FromSlash(rel))
	return os.ReadFile(path)
}

func isDataURI(uri string) bool {
	return strings.HasPrefix(uri, "data:")
}

func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, errors.New("malformed data uri")
	}
	if strings.HasSuffix(header, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	s, err := url.PathUnescape(payload)
	return []byte(s), err
}

// displayURI shortens data URIs for logs and reports.
func displayURI(uri string) string {
	if header, _, ok := strings.Cut(uri, ","); ok && isDataURI(uri) {
		return header + ",..."
	}
	return uri
}
