// Package camera provides the orbit camera used by the preview viewport.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/gltfview/pkg/math"
)

// FovY is the vertical field of view in radians.
const FovY = math32.Pi / 4

// OrbitCamera orbits around a target point.
type OrbitCamera struct {
	Target math.Vec3

	// Spherical coordinates around Target.
	Distance float32
	Pitch    float32 // radians, positive looks down
	Yaw      float32 // radians

	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	DragSensitivity float32
	ZoomSensitivity float32

	// Scene radius, used for clip planes.
	radius float32
}

// NewOrbitCamera creates a camera looking at the origin from a slight angle.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        5,
		Pitch:           0.3,
		Yaw:             0.5,
		MinDistance:     0.01,
		MaxDistance:     1e5,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.01,
		ZoomSensitivity: 0.1,
		radius:          1,
	}
}

// Position returns the eye position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	cosP, sinP := math32.Cos(c.Pitch), math32.Sin(c.Pitch)
	cosY, sinY := math32.Cos(c.Yaw), math32.Sin(c.Yaw)
	return c.Target.Add(math.Vec3{
		X: c.Distance * cosP * sinY,
		Y: c.Distance * sinP,
		Z: c.Distance * cosP * cosY,
	})
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Target, math.Vec3{Y: 1})
}

// Projection returns a perspective projection with clip planes that enclose
// the fitted scene.
func (c *OrbitCamera) Projection(aspect float32) math.Mat4 {
	near, far := c.ClipPlanes()
	return math.Perspective(FovY, aspect, near, far)
}

// ClipPlanes returns near and far distances for the current zoom.
func (c *OrbitCamera) ClipPlanes() (near, far float32) {
	far = c.Distance + 2*c.radius
	near = max(c.Distance-2*c.radius, far/1e4)
	return near, far
}

// HandleDrag rotates by a mouse drag delta in pixels.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch = clamp(c.Pitch+deltaY*c.DragSensitivity, c.MinPitch, c.MaxPitch)
}

// HandleZoom zooms by a scroll wheel delta, proportionally to the distance.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance = clamp(c.Distance-delta*c.Distance*c.ZoomSensitivity, c.MinDistance, c.MaxDistance)
}

// FitToBounds centers on b and backs off until the bounding sphere fills the view.
// An empty box leaves the camera unchanged.
func (c *OrbitCamera) FitToBounds(b math.AABB) {
	if b.IsEmpty() {
		return
	}
	c.Target = b.Center()
	c.radius = max(b.Radius(), 1e-3)
	c.Distance = c.radius / math32.Sin(FovY/2) * 1.1
	c.MinDistance = c.radius * 0.05
	c.MaxDistance = c.radius * 100
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}
