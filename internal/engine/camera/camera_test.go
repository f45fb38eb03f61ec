package camera

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/Faultbox/gltfview/pkg/math"
)

func near(a, b float32) bool {
	return math32.Abs(a-b) < 1e-4
}

func TestPositionDistanceFromTarget(t *testing.T) {
	c := NewOrbitCamera()
	c.Target = math.Vec3{X: 1, Y: 2, Z: 3}
	c.Distance = 7

	d := c.Position().Sub(c.Target).Length()
	if !near(d, 7) {
		t.Errorf("expected eye 7 units from target, got %f", d)
	}
}

func TestHandleDragClampsPitch(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleDrag(0, 1e4)
	if c.Pitch != c.MaxPitch {
		t.Errorf("expected pitch clamped to %f, got %f", c.MaxPitch, c.Pitch)
	}
	c.HandleDrag(0, -1e5)
	if c.Pitch != c.MinPitch {
		t.Errorf("expected pitch clamped to %f, got %f", c.MinPitch, c.Pitch)
	}
}

func TestHandleDragYaw(t *testing.T) {
	c := NewOrbitCamera()
	before := c.Yaw
	c.HandleDrag(10, 0)
	if !near(c.Yaw, before-10*c.DragSensitivity) {
		t.Errorf("unexpected yaw %f", c.Yaw)
	}
}

func TestHandleZoomClamps(t *testing.T) {
	c := NewOrbitCamera()
	c.Distance = 10
	c.HandleZoom(1)
	if !near(c.Distance, 9) {
		t.Errorf("expected 10%% zoom in, got %f", c.Distance)
	}
	for i := 0; i < 1000; i++ {
		c.HandleZoom(5)
	}
	if c.Distance != c.MinDistance {
		t.Errorf("expected min distance, got %f", c.Distance)
	}
}

func TestFitToBounds(t *testing.T) {
	c := NewOrbitCamera()
	b := math.EmptyAABB().Extend(math.Vec3{X: -1, Y: -1, Z: -1}).Extend(math.Vec3{X: 3, Y: 1, Z: 1})
	c.FitToBounds(b)

	if c.Target != (math.Vec3{X: 1}) {
		t.Errorf("expected target at box center, got %+v", c.Target)
	}
	if c.Distance <= b.Radius() {
		t.Errorf("camera inside bounding sphere: distance %f radius %f", c.Distance, b.Radius())
	}

	near, far := c.ClipPlanes()
	if near <= 0 || near >= c.Distance-b.Radius() || far <= c.Distance+b.Radius() {
		t.Errorf("clip planes %f..%f do not enclose the scene", near, far)
	}
}

func TestFitToEmptyBoundsKeepsCamera(t *testing.T) {
	c := NewOrbitCamera()
	want := *c
	c.FitToBounds(math.EmptyAABB())
	if *c != want {
		t.Error("empty bounds changed the camera")
	}
}
