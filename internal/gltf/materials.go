package gltf

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/gltfview/internal/config"
	"github.com/Faultbox/gltfview/internal/logger"
	"github.com/Faultbox/gltfview/internal/render"
)

// materialProvider hands out material templates. With generated shaders
// every distinct feature set gets its own template; with ubershaders the
// features are evaluated at runtime and only alpha mode and lighting model
// select a template.
type materialProvider struct {
	engine     render.Engine
	ubershader bool
	templates  map[render.MaterialDesc]render.MaterialHandle
}

func newMaterialProvider(engine render.Engine, src config.MaterialSource) *materialProvider {
	return &materialProvider{
		engine:     engine,
		ubershader: src == config.LoadUbershaders,
		templates:  make(map[render.MaterialDesc]render.MaterialHandle),
	}
}

func (p *materialProvider) template(desc render.MaterialDesc) (render.MaterialHandle, error) {
	if p.ubershader {
		desc = render.MaterialDesc{
			Name:       fmt.Sprintf("uber_%s_unlit=%t", desc.Alpha, desc.Unlit),
			Unlit:      desc.Unlit,
			Alpha:      desc.Alpha,
			Ubershader: true,
		}
	} else {
		desc.Name = fmt.Sprintf("gen_%s_unlit=%t_ds=%t_f=%02x", desc.Alpha, desc.Unlit, desc.DoubleSided, desc.Features)
	}
	if h, ok := p.templates[desc]; ok {
		return h, nil
	}

	h, err := p.engine.CreateMaterial(desc)
	if err != nil {
		return 0, fmt.Errorf("creating material template %s: %w", desc.Name, err)
	}
	p.templates[desc] = h
	logger.Debug("material template created", zap.String("name", desc.Name))
	return h, nil
}

// instance builds the per-material parameters and binds them to a template.
func (p *materialProvider) instance(m material) (render.MaterialInstance, error) {
	desc := render.MaterialDesc{DoubleSided: m.DoubleSided}
	inst := render.MaterialInstance{
		BaseColorFactor: [4]float32{1, 1, 1, 1},
		AlphaCutoff:     0.5,
		DoubleSided:     m.DoubleSided,
	}

	switch m.AlphaMode {
	case "MASK":
		desc.Alpha = render.AlphaMask
	case "BLEND":
		desc.Alpha = render.AlphaBlend
	}
	if m.AlphaCutoff != nil {
		inst.AlphaCutoff = *m.AlphaCutoff
	}
	if raw, ok := m.Extensions[extUnlit]; ok && unmarshalUnlit(raw) {
		desc.Unlit = true
	}

	if pbr := m.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			inst.BaseColorFactor = *pbr.BaseColorFactor
		}
		if pbr.BaseColorTexture != nil {
			desc.Features |= render.FeatureBaseColorTexture
		}
		if pbr.MetallicRoughnessTexture != nil {
			desc.Features |= render.FeatureMetallicRoughnessTexture
		}
	}
	if m.NormalTexture != nil {
		desc.Features |= render.FeatureNormalTexture
	}
	if m.OcclusionTexture != nil {
		desc.Features |= render.FeatureOcclusionTexture
	}
	if m.EmissiveTexture != nil {
		desc.Features |= render.FeatureEmissiveTexture
	}
	if m.EmissiveFactor != nil {
		inst.EmissiveFactor = *m.EmissiveFactor
	}

	h, err := p.template(desc)
	if err != nil {
		return render.MaterialInstance{}, err
	}
	inst.Template = h
	return inst, nil
}

func (p *materialProvider) destroyAll() {
	for desc, h := range p.templates {
		p.engine.DestroyMaterial(h)
		delete(p.templates, desc)
	}
}

func (p *materialProvider) count() int {
	return len(p.templates)
}

// defaultMaterial is applied to primitives that reference no material.
func defaultMaterial() material {
	return material{Name: "default"}
}

// unmarshalUnlit reports whether raw holds a KHR_materials_unlit object.
func unmarshalUnlit(raw json.RawMessage) bool {
	var v map[string]any
	return json.Unmarshal(raw, &v) == nil
}
