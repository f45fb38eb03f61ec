// Package gltftest builds small glTF documents for tests.
package gltftest

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/chewxy/math32"
)

type object = map[string]any

// Builder accumulates a glTF document whose binary data lives in buffer 0.
type Builder struct {
	bin         []byte
	bufferViews []object
	accessors   []object
	nodes       []object
	meshes      []object
	materials   []object
	textures    []object
	images      []object
	samplers    []object
	animations  []object
	sceneNodes  []int
	children    map[int]bool

	// Generator is written to asset.generator.
	Generator string
}

// New creates an empty builder.
func New() *Builder {
	return &Builder{Generator: "gltftest", children: make(map[int]bool)}
}

func (b *Builder) view(data []byte, target int) int {
	for len(b.bin)%4 != 0 {
		b.bin = append(b.bin, 0)
	}
	v := object{"buffer": 0, "byteOffset": len(b.bin), "byteLength": len(data)}
	if target != 0 {
		v["target"] = target
	}
	b.bin = append(b.bin, data...)
	b.bufferViews = append(b.bufferViews, v)
	return len(b.bufferViews) - 1
}

func (b *Builder) floatAccessor(values []float32, typ string, comps int, withBounds bool) int {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, values)
	acc := object{
		"bufferView":    b.view(buf.Bytes(), 0),
		"componentType": 5126,
		"count":         len(values) / comps,
		"type":          typ,
	}
	if withBounds {
		lo := make([]float32, comps)
		hi := make([]float32, comps)
		copy(lo, values)
		copy(hi, values)
		for i, v := range values {
			c := i % comps
			lo[c] = min(lo[c], v)
			hi[c] = max(hi[c], v)
		}
		acc["min"], acc["max"] = lo, hi
	}
	b.accessors = append(b.accessors, acc)
	return len(b.accessors) - 1
}

// Cube adds a unit cube mesh with normals and texture coordinates. A
// negative material leaves the primitive without one.
func (b *Builder) Cube(material int) int {
	type face struct{ n, u, v [3]float32 }
	faces := []face{
		{[3]float32{1, 0, 0}, [3]float32{0, 0, -1}, [3]float32{0, 1, 0}},
		{[3]float32{-1, 0, 0}, [3]float32{0, 0, 1}, [3]float32{0, 1, 0}},
		{[3]float32{0, 1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, -1}},
		{[3]float32{0, -1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}},
		{[3]float32{0, 0, 1}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}},
		{[3]float32{0, 0, -1}, [3]float32{-1, 0, 0}, [3]float32{0, 1, 0}},
	}
	corners := [4][4]float32{{-1, -1, 0, 1}, {1, -1, 1, 1}, {1, 1, 1, 0}, {-1, 1, 0, 0}}

	var pos, nrm, uv []float32
	var idx []uint16
	for _, f := range faces {
		base := uint16(len(pos) / 3)
		for _, c := range corners {
			for i := 0; i < 3; i++ {
				pos = append(pos, 0.5*(f.n[i]+c[0]*f.u[i]+c[1]*f.v[i]))
			}
			nrm = append(nrm, f.n[:]...)
			uv = append(uv, c[2], c[3])
		}
		idx = append(idx, base, base+1, base+2, base, base+2, base+3)
	}

	p := b.floatAccessor(pos, "VEC3", 3, true)
	n := b.floatAccessor(nrm, "VEC3", 3, false)
	t := b.floatAccessor(uv, "VEC2", 2, false)

	var ib bytes.Buffer
	_ = binary.Write(&ib, binary.LittleEndian, idx)
	b.accessors = append(b.accessors, object{
		"bufferView":    b.view(ib.Bytes(), 34963),
		"componentType": 5123,
		"count":         len(idx),
		"type":          "SCALAR",
	})
	i := len(b.accessors) - 1

	prim := object{
		"attributes": object{"POSITION": p, "NORMAL": n, "TEXCOORD_0": t},
		"indices":    i,
	}
	if material >= 0 {
		prim["material"] = material
	}
	b.meshes = append(b.meshes, object{"name": "Cube", "primitives": []object{prim}})
	return len(b.meshes) - 1
}

// Lines adds a mesh with a single LINES primitive.
func (b *Builder) Lines() int {
	p := b.floatAccessor([]float32{0, 0, 0, 1, 1, 1}, "VEC3", 3, true)
	b.meshes = append(b.meshes, object{"primitives": []object{{
		"attributes": object{"POSITION": p},
		"mode":       1,
	}}})
	return len(b.meshes) - 1
}

// Node adds a node. A negative mesh leaves it empty. Nodes that never
// become children are scene roots.
func (b *Builder) Node(name string, mesh int, children ...int) int {
	n := object{}
	if name != "" {
		n["name"] = name
	}
	if mesh >= 0 {
		n["mesh"] = mesh
	}
	if len(children) > 0 {
		n["children"] = children
		for _, c := range children {
			b.children[c] = true
		}
	}
	b.nodes = append(b.nodes, n)
	return len(b.nodes) - 1
}

// Translate sets the translation of node i.
func (b *Builder) Translate(i int, x, y, z float32) {
	b.nodes[i]["translation"] = []float32{x, y, z}
}

// Material adds a material. A negative texture leaves it untextured.
func (b *Builder) Material(name string, baseColorTexture int) int {
	pbr := object{"baseColorFactor": []float32{1, 1, 1, 1}}
	if baseColorTexture >= 0 {
		pbr["baseColorTexture"] = object{"index": baseColorTexture}
	}
	b.materials = append(b.materials, object{"name": name, "pbrMetallicRoughness": pbr})
	return len(b.materials) - 1
}

// SetMaterial merges extra members into material i.
func (b *Builder) SetMaterial(i int, key string, value any) {
	b.materials[i][key] = value
}

func (b *Builder) sampler() int {
	if len(b.samplers) == 0 {
		b.samplers = append(b.samplers, object{"magFilter": 9729, "minFilter": 9987, "wrapS": 10497, "wrapT": 10497})
	}
	return 0
}

// TextureURI adds a texture whose image is an external file or data URI.
func (b *Builder) TextureURI(uri string) int {
	b.images = append(b.images, object{"uri": uri})
	b.textures = append(b.textures, object{"source": len(b.images) - 1, "sampler": b.sampler()})
	return len(b.textures) - 1
}

// TextureEmbedded adds a texture whose PNG image lives in the binary buffer.
func (b *Builder) TextureEmbedded(pngData []byte) int {
	b.images = append(b.images, object{"bufferView": b.view(pngData, 0), "mimeType": "image/png"})
	b.textures = append(b.textures, object{"source": len(b.images) - 1, "sampler": b.sampler()})
	return len(b.textures) - 1
}

// Spin adds a LINEAR rotation animation turning node once about +Y over seconds.
func (b *Builder) Spin(name string, node int, seconds float32) int {
	var times, rots []float32
	for k := 0; k <= 4; k++ {
		t := seconds * float32(k) / 4
		s, c := math32.Sincos(math32.Pi * float32(k) / 4)
		times = append(times, t)
		rots = append(rots, 0, s, 0, c)
	}
	return b.Animation(name, node, "rotation", "LINEAR", times, rots, 4)
}

// Animation adds a single-channel animation.
func (b *Builder) Animation(name string, node int, path, interpolation string, times, values []float32, comps int) int {
	in := b.floatAccessor(times, "SCALAR", 1, true)
	typ := map[int]string{3: "VEC3", 4: "VEC4"}[comps]
	out := b.floatAccessor(values, typ, comps, false)
	b.animations = append(b.animations, object{
		"name":     name,
		"samplers": []object{{"input": in, "output": out, "interpolation": interpolation}},
		"channels": []object{{"sampler": 0, "target": object{"node": node, "path": path}}},
	})
	return len(b.animations) - 1
}

func (b *Builder) document(buffer object) object {
	roots := b.sceneNodes
	if roots == nil {
		for i := range b.nodes {
			if !b.children[i] {
				roots = append(roots, i)
			}
		}
	}
	doc := object{
		"asset":  object{"version": "2.0", "generator": b.Generator},
		"scene":  0,
		"scenes": []object{{"name": "Scene", "nodes": roots}},
		"nodes":  b.nodes,
	}
	set := func(key string, v []object) {
		if len(v) > 0 {
			doc[key] = v
		}
	}
	set("meshes", b.meshes)
	set("accessors", b.accessors)
	set("bufferViews", b.bufferViews)
	set("materials", b.materials)
	set("textures", b.textures)
	set("images", b.images)
	set("samplers", b.samplers)
	set("animations", b.animations)
	if len(b.bin) > 0 {
		doc["buffers"] = []object{buffer}
	}
	return doc
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// Bin returns the binary buffer contents.
func (b *Builder) Bin() []byte {
	return b.bin
}

// JSON returns a .gltf document with the buffer embedded as a data URI.
func (b *Builder) JSON() []byte {
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(b.bin)
	return mustJSON(b.document(object{"uri": uri, "byteLength": len(b.bin)}))
}

// JSONExternal returns a .gltf document whose buffer is the file binURI.
func (b *Builder) JSONExternal(binURI string) []byte {
	return mustJSON(b.document(object{"uri": binURI, "byteLength": len(b.bin)}))
}

// GLB returns a binary container.
func (b *Builder) GLB() []byte {
	return b.glb(0)
}

// GLBSized returns a binary container of exactly size bytes, padding the
// BIN chunk. It panics when size is too small or not a multiple of four.
func (b *Builder) GLBSized(size int) []byte {
	return b.glb(size)
}

func (b *Builder) glb(size int) []byte {
	js := mustJSON(b.document(object{"byteLength": len(b.bin)}))
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	bin := append([]byte(nil), b.bin...)
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	fixed := 12 + 8 + len(js) + 8
	if size > 0 {
		if size%4 != 0 || size < fixed+len(bin) {
			panic(fmt.Sprintf("gltftest: cannot build a %d byte GLB (minimum %d)", size, fixed+len(bin)))
		}
		bin = append(bin, make([]byte, size-fixed-len(bin))...)
	}

	var out bytes.Buffer
	le := binary.LittleEndian
	_ = binary.Write(&out, le, [3]uint32{0x46546C67, 2, uint32(fixed + len(bin))})
	_ = binary.Write(&out, le, [2]uint32{uint32(len(js)), 0x4E4F534A})
	out.Write(js)
	_ = binary.Write(&out, le, [2]uint32{uint32(len(bin)), 0x004E4942})
	out.Write(bin)
	return out.Bytes()
}

// PNG returns a w x h PNG filled with c.
func PNG(w, h int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
