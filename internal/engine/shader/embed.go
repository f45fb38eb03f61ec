package shader

import _ "embed"

// PreviewVertex is the vertex stage shared by every material template.
//
//go:embed preview.vert
var PreviewVertex string

// PreviewFragment is the material fragment stage. Variants are selected with
// UNLIT, ALPHA_MASK, ALPHA_BLEND, HAS_BASE_COLOR_TEXTURE and UBERSHADER.
//
//go:embed preview.frag
var PreviewFragment string
