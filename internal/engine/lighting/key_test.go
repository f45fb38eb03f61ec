package lighting

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/Faultbox/gltfview/pkg/math"
)

func TestDirection(t *testing.T) {
	tests := []struct {
		name          string
		azimuth, elev float32
		want          math.Vec3
	}{
		{"front horizon", 0, 0, math.Vec3{Z: 1}},
		{"right horizon", 90, 0, math.Vec3{X: 1}},
		{"zenith", 0, 90, math.Vec3{Y: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Direction(tt.azimuth, tt.elev)
			if got.Sub(tt.want).Length() > 1e-5 {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeyLightIsUnitAndAbove(t *testing.T) {
	d := DefaultKeyLight().Direction()
	if math32.Abs(d.Length()-1) > 1e-5 {
		t.Errorf("expected unit vector, length %f", d.Length())
	}
	if d.Y <= 0 {
		t.Errorf("expected light above the horizon, got %+v", d)
	}
}
