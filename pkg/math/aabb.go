package math

import "github.com/chewxy/math32"

// AABB is an axis-aligned bounding box. The zero value is empty only when
// produced by EmptyAABB; use Extend to grow it.
type AABB struct {
	Min, Max Vec3
}

// EmptyAABB returns a box that contains nothing.
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether the box contains no point.
func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend grows the box to include p.
func (b AABB) Extend(p Vec3) AABB {
	b.Min = Vec3{math32.Min(b.Min.X, p.X), math32.Min(b.Min.Y, p.Y), math32.Min(b.Min.Z, p.Z)}
	b.Max = Vec3{math32.Max(b.Max.X, p.X), math32.Max(b.Max.Y, p.Y), math32.Max(b.Max.Z, p.Z)}
	return b
}

// Union returns the smallest box containing both boxes.
func (b AABB) Union(o AABB) AABB {
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Center returns the box midpoint.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Radius returns half the diagonal length.
func (b AABB) Radius() float32 {
	return b.Max.Sub(b.Min).Length() / 2
}

// Transform returns the bounds of the eight transformed corners.
func (b AABB) Transform(m Mat4) AABB {
	if b.IsEmpty() {
		return b
	}
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		c := b.Min
		if i&1 != 0 {
			c.X = b.Max.X
		}
		if i&2 != 0 {
			c.Y = b.Max.Y
		}
		if i&4 != 0 {
			c.Z = b.Max.Z
		}
		out = out.Extend(m.TransformPoint(c))
	}
	return out
}
