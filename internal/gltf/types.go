package gltf

import "encoding/json"

// document is the root of a glTF 2.0 JSON document. Only the members the
// viewer consumes are decoded.
type document struct {
	Asset       assetInfo    `json:"asset"`
	Scene       *int         `json:"scene,omitempty"`
	Scenes      []scene      `json:"scenes,omitempty"`
	Nodes       []node       `json:"nodes,omitempty"`
	Meshes      []mesh       `json:"meshes,omitempty"`
	Accessors   []accessor   `json:"accessors,omitempty"`
	BufferViews []bufferView `json:"bufferViews,omitempty"`
	Buffers     []buffer     `json:"buffers,omitempty"`
	Materials   []material   `json:"materials,omitempty"`
	Textures    []textureDef `json:"textures,omitempty"`
	Images      []imageDef   `json:"images,omitempty"`
	Samplers    []sampler    `json:"samplers,omitempty"`
	Animations  []animation  `json:"animations,omitempty"`

	ExtensionsUsed     []string `json:"extensionsUsed,omitempty"`
	ExtensionsRequired []string `json:"extensionsRequired,omitempty"`
}

type assetInfo struct {
	Version    string `json:"version"`
	MinVersion string `json:"minVersion,omitempty"`
	Generator  string `json:"generator,omitempty"`
	Copyright  string `json:"copyright,omitempty"`
}

type scene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

type node struct {
	Name        string       `json:"name,omitempty"`
	Children    []int        `json:"children,omitempty"`
	Mesh        *int         `json:"mesh,omitempty"`
	Matrix      *[16]float32 `json:"matrix,omitempty"`
	Translation *[3]float32  `json:"translation,omitempty"`
	Rotation    *[4]float32  `json:"rotation,omitempty"`
	Scale       *[3]float32  `json:"scale,omitempty"`
}

type mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []primitive `json:"primitives"`
}

type primitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`
	Mode       *int           `json:"mode,omitempty"`
}

// Primitive topologies.
const (
	modePoints    = 0
	modeTriangles = 4
)

func (p primitive) mode() int {
	if p.Mode == nil {
		return modeTriangles
	}
	return *p.Mode
}

type accessor struct {
	Name          string    `json:"name,omitempty"`
	BufferView    *int      `json:"bufferView,omitempty"`
	ByteOffset    int       `json:"byteOffset,omitempty"`
	ComponentType int       `json:"componentType"`
	Normalized    bool      `json:"normalized,omitempty"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Max           []float32 `json:"max,omitempty"`
	Min           []float32 `json:"min,omitempty"`
	Sparse        *struct {
		Count int `json:"count"`
	} `json:"sparse,omitempty"`
}

// Accessor component types.
const (
	componentByte          = 5120
	componentUnsignedByte  = 5121
	componentShort         = 5122
	componentUnsignedShort = 5123
	componentUnsignedInt   = 5125
	componentFloat         = 5126
)

func componentSize(componentType int) int {
	switch componentType {
	case componentByte, componentUnsignedByte:
		return 1
	case componentShort, componentUnsignedShort:
		return 2
	case componentUnsignedInt, componentFloat:
		return 4
	}
	return 0
}

func typeComponents(t string) int {
	switch t {
	case "SCALAR":
		return 1
	case "VEC2":
		return 2
	case "VEC3":
		return 3
	case "VEC4", "MAT2":
		return 4
	case "MAT3":
		return 9
	case "MAT4":
		return 16
	}
	return 0
}

type bufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset,omitempty"`
	ByteLength int `json:"byteLength"`
	ByteStride int `json:"byteStride,omitempty"`
	Target     int `json:"target,omitempty"`
}

type buffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
}

type textureInfo struct {
	Index    int `json:"index"`
	TexCoord int `json:"texCoord,omitempty"`
}

type pbrMetallicRoughness struct {
	BaseColorFactor          *[4]float32  `json:"baseColorFactor,omitempty"`
	BaseColorTexture         *textureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor           *float32     `json:"metallicFactor,omitempty"`
	RoughnessFactor          *float32     `json:"roughnessFactor,omitempty"`
	MetallicRoughnessTexture *textureInfo `json:"metallicRoughnessTexture,omitempty"`
}

type material struct {
	Name                 string                     `json:"name,omitempty"`
	PBRMetallicRoughness *pbrMetallicRoughness      `json:"pbrMetallicRoughness,omitempty"`
	NormalTexture        *textureInfo               `json:"normalTexture,omitempty"`
	OcclusionTexture     *textureInfo               `json:"occlusionTexture,omitempty"`
	EmissiveTexture      *textureInfo               `json:"emissiveTexture,omitempty"`
	EmissiveFactor       *[3]float32                `json:"emissiveFactor,omitempty"`
	AlphaMode            string                     `json:"alphaMode,omitempty"`
	AlphaCutoff          *float32                   `json:"alphaCutoff,omitempty"`
	DoubleSided          bool                       `json:"doubleSided,omitempty"`
	Extensions           map[string]json.RawMessage `json:"extensions,omitempty"`
}

const extUnlit = "KHR_materials_unlit"

type textureDef struct {
	Sampler *int `json:"sampler,omitempty"`
	Source  *int `json:"source,omitempty"`
}

type imageDef struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
}

type sampler struct {
	MagFilter int `json:"magFilter,omitempty"`
	MinFilter int `json:"minFilter,omitempty"`
	WrapS     int `json:"wrapS,omitempty"`
	WrapT     int `json:"wrapT,omitempty"`
}

type animation struct {
	Name     string             `json:"name,omitempty"`
	Channels []animationChannel `json:"channels"`
	Samplers []animationSampler `json:"samplers"`
}

type animationChannel struct {
	Sampler int `json:"sampler"`
	Target  struct {
		Node *int   `json:"node,omitempty"`
		Path string `json:"path"`
	} `json:"target"`
}

type animationSampler struct {
	Input         int    `json:"input"`
	Output        int    `json:"output"`
	Interpolation string `json:"interpolation,omitempty"`
}
