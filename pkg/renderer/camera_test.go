package renderer

import (
	"math"
	"testing"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

func TestCamera_Rays(t *testing.T) {
	camera := NewCamera(CameraConfig{
		Center: core.NewVec3(0, 0, 5),
		LookAt: core.Vec3{},
		Width:  200,
		Height: 100,
		VFov:   90,
	})

	center := camera.Ray(50, 100)
	if center.Subtract(core.NewVec3(0, 0, -1)).Length() > 1e-9 {
		t.Errorf("Expected the image center to look forward, got %v", center)
	}

	// vfov 90: the top edge is 45 degrees up
	top := camera.Ray(0, 100)
	if math.Abs(top.Y-math.Sqrt(0.5)) > 1e-9 {
		t.Errorf("Expected the top row to point 45 degrees up, got %v", top)
	}
	if left := camera.Ray(50, 0); left.X >= 0 {
		t.Errorf("Expected column 0 to point left, got %v", left)
	}
	if camera.LensSamples() != 1 {
		t.Errorf("Expected a pinhole to take 1 sample, got %d", camera.LensSamples())
	}
}

func TestCamera_ApertureFocus(t *testing.T) {
	camera := NewCamera(CameraConfig{
		Center:   core.NewVec3(0, 0, 5),
		LookAt:   core.Vec3{},
		Width:    64,
		Height:   64,
		VFov:     40,
		Aperture: 0.3,
		Samples:  8,
	})
	if camera.LensSamples() != 8 {
		t.Fatalf("Expected 8 lens samples, got %d", camera.LensSamples())
	}

	// Every lens ray through the center pixel meets the focal point at LookAt
	sampler := core.NewSeededSampler(1)
	for i := 0; i < 20; i++ {
		origin, dir := camera.RayAperture(32, 32, sampler)
		t0 := -origin.Z / dir.Z
		p := origin.Add(dir.Multiply(t0))
		if p.Length() > 1e-9 {
			t.Fatalf("Expected lens ray to pass through the origin, got %v", p)
		}
	}
}
