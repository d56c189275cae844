package lights

import (
	"math"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

// DefaultShininess is the Phong highlight exponent used when a light doesn't set one
const DefaultShininess = 20.0

// Compile-time checks that the lights satisfy core.Light
var (
	_ core.Light = (*PointLight)(nil)
	_ core.Light = (*SphereLight)(nil)
)

// phong evaluates the Phong model for a light of the given color. All vectors are unit length.
func phong(lightColor, normal, toLight, toViewer core.Vec3, diffuse, specular, shininess float64, surfaceColor core.Vec3) core.Vec3 {
	cosNL := normal.Dot(toLight)
	if cosNL <= 0 {
		return core.Vec3{}
	}

	// Lambertian term: surface color filters the light
	result := lightColor.MultiplyVec(surfaceColor).Multiply(diffuse * cosNL)

	// Highlight keeps the light's color
	if specular > 0 {
		reflected := toLight.Negate().Reflect(normal)
		if cosRV := reflected.Dot(toViewer); cosRV > 0 {
			result = result.Add(lightColor.Multiply(specular * math.Pow(cosRV, shininess)))
		}
	}

	return result
}
