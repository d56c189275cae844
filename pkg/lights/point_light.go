package lights

import (
	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

// PointLight emits from a single fixed position
type PointLight struct {
	Center    core.Vec3
	Emission  core.Vec3
	Shininess float64
}

// NewPointLight creates a new point light
func NewPointLight(center, emission core.Vec3) *PointLight {
	return &PointLight{
		Center:    center,
		Emission:  emission,
		Shininess: DefaultShininess,
	}
}

// Position returns the light position
func (pl *PointLight) Position() core.Vec3 {
	return pl.Center
}

// Color returns the emitted color
func (pl *PointLight) Color() core.Vec3 {
	return pl.Emission
}

// RandomPoint always returns the light position
func (pl *PointLight) RandomPoint(sampler core.Sampler) core.Vec3 {
	return pl.Center
}

// Phong shades a surface point lit by this light
func (pl *PointLight) Phong(normal, toLight, toViewer core.Vec3, diffuse, specular float64, surfaceColor core.Vec3) core.Vec3 {
	return phong(pl.Emission, normal, toLight, toViewer, diffuse, specular, pl.Shininess, surfaceColor)
}
