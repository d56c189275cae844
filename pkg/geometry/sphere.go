package geometry

import (
	"math"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

// Default texture axes for spheres: TexV is the pole, TexU fixes the seam
var (
	DefaultSphereTexU = core.NewVec3(1, 0, -3).Normalize()
	DefaultSphereTexV = core.NewVec3(0, 1, 0)
)

// Sphere represents a sphere shape
type Sphere struct {
	Name     string
	Center   core.Vec3
	Radius   float64
	TexU     core.Vec3
	TexV     core.Vec3
	material core.Material
}

// NewSphere creates a new sphere
func NewSphere(name string, center core.Vec3, radius float64, material core.Material) *Sphere {
	return &Sphere{
		Name:     name,
		Center:   center,
		Radius:   radius,
		TexU:     DefaultSphereTexU,
		TexV:     DefaultSphereTexV,
		material: material,
	}
}

// Material returns the sphere's surface description
func (s *Sphere) Material() *core.Material {
	return &s.material
}

// Intersect tests a unit-direction ray against the sphere. A ray starting inside
// the sphere reports core.Inside.
func (s *Sphere) Intersect(ray core.Ray, tMax float64) (core.Intersection, bool) {
	l := s.Center.Subtract(ray.Origin)

	// Distance along the ray to the point closest to the center, and the squared half chord
	tangent := l.Dot(ray.Direction)
	halfChord2 := s.Radius*s.Radius - (l.LengthSquared() - tangent*tangent)
	if halfChord2 < core.Epsilon {
		return core.Intersection{}, false
	}

	halfChord := math.Sqrt(halfChord2)
	near, far := tangent-halfChord, tangent+halfChord

	t, side := near, core.Outside
	if near <= core.Epsilon {
		t, side = far, core.Inside
	}
	if t <= core.Epsilon || t >= tMax {
		return core.Intersection{}, false
	}

	point := ray.At(t)
	normal := point.Subtract(s.Center).Multiply(1.0 / s.Radius)

	return core.Intersection{
		T:      t,
		Point:  point,
		Normal: normal,
		Color:  s.colorAt(normal),
		Side:   side,
	}, true
}

// colorAt maps the outward normal to polar texture coordinates
func (s *Sphere) colorAt(normal core.Vec3) core.Vec3 {
	if s.material.Texture == nil {
		return s.material.Color
	}

	theta := math.Acos(clamp(-normal.Dot(s.TexV), -1, 1))
	sinTheta := math.Sin(theta)
	phi := 0.0
	if sinTheta > core.Epsilon {
		phi = math.Acos(clamp(normal.Dot(s.TexU)/sinTheta, -1, 1))
	}

	u := theta / math.Pi
	v := phi / (2 * math.Pi)
	if normal.Dot(s.TexU.Cross(s.TexV)) < 0 {
		v = 1 - v
	}
	return s.material.Color.MultiplyVec(s.material.Texture.ColorAt(u, v))
}

func clamp(x, lo, hi float64) float64 {
	return max(lo, min(hi, x))
}
