package material

import (
	"fmt"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

// DefaultIOR is used by presets that don't refract and by Glass when no index is given
const DefaultIOR = 1.4

// New creates a material with explicit coefficients
func New(color core.Vec3, diffuse, specular, reflective, refractive, ior float64) core.Material {
	return core.Material{
		Color:      color,
		Diffuse:    diffuse,
		Specular:   specular,
		Reflective: reflective,
		Refractive: refractive,
		IOR:        ior,
	}
}

// NewDiffuse creates a fully diffuse material
func NewDiffuse(color core.Vec3) core.Material {
	return New(color, 1, 0, 0, 0, DefaultIOR)
}

// NewGlossy creates a diffuse material with a mirror coat
func NewGlossy(color core.Vec3, diffuse, reflective float64) core.Material {
	return New(color, diffuse, 0, reflective, 0, DefaultIOR)
}

// NewMirror creates a perfect mirror
func NewMirror(color core.Vec3) core.Material {
	return New(color, 0, 0, 1, 0, DefaultIOR)
}

// NewGlass creates a fully transmissive material
func NewGlass(color core.Vec3, ior float64) core.Material {
	return New(color, 0, 0, 0, 1, ior)
}

// WithTexture returns a copy of m modulated by texture
func WithTexture(m core.Material, texture core.Texture) core.Material {
	m.Texture = texture
	return m
}

// Validate checks that the coefficients form a valid probability split
func Validate(m core.Material) error {
	coefficients := []struct {
		name  string
		value float64
	}{
		{"diffuse", m.Diffuse},
		{"specular", m.Specular},
		{"reflective", m.Reflective},
		{"refractive", m.Refractive},
	}

	sum := 0.0
	for _, c := range coefficients {
		if c.value < 0 || c.value > 1 {
			return fmt.Errorf("%s coefficient %g outside [0, 1]", c.name, c.value)
		}
		sum += c.value
	}
	if sum > 1+core.Epsilon {
		return fmt.Errorf("coefficients sum to %g, must not exceed 1", sum)
	}
	if m.Refractive > 0 && m.IOR <= 0 {
		return fmt.Errorf("refractive material needs a positive index of refraction, got %g", m.IOR)
	}
	return nil
}
