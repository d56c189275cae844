package lights

import (
	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

// SphereLight approximates an area light: every sample picks a uniform point on
// the sphere's surface. The sphere itself is not an intersectable object.
type SphereLight struct {
	Center    core.Vec3
	Radius    float64
	Emission  core.Vec3
	Shininess float64
}

// NewSphereLight creates a new spherical light
func NewSphereLight(center core.Vec3, radius float64, emission core.Vec3) *SphereLight {
	return &SphereLight{
		Center:    center,
		Radius:    radius,
		Emission:  emission,
		Shininess: DefaultShininess,
	}
}

// Position returns the sphere center
func (sl *SphereLight) Position() core.Vec3 {
	return sl.Center
}

// Color returns the emitted color
func (sl *SphereLight) Color() core.Vec3 {
	return sl.Emission
}

// RandomPoint samples uniformly on the sphere surface
func (sl *SphereLight) RandomPoint(sampler core.Sampler) core.Vec3 {
	return sl.Center.Add(core.SampleOnUnitSphere(sampler.Get2D()).Multiply(sl.Radius))
}

// Phong shades a surface point lit by this light
func (sl *SphereLight) Phong(normal, toLight, toViewer core.Vec3, diffuse, specular float64, surfaceColor core.Vec3) core.Vec3 {
	return phong(sl.Emission, normal, toLight, toViewer, diffuse, specular, sl.Shininess, surfaceColor)
}
