package geometry

import (
	"math"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

// Plane represents an infinite plane defined by a point and normal
type Plane struct {
	Name     string
	Point    core.Vec3 // A point on the plane
	Normal   core.Vec3 // Unit normal
	TexScale float64   // World units covered by one texture repeat
	material core.Material

	// tangent frame for texture coordinates
	tangent, bitangent core.Vec3
}

// NewPlane creates a new plane
func NewPlane(name string, point, normal core.Vec3, material core.Material) *Plane {
	n := normal.Normalize()

	var helper core.Vec3
	if math.Abs(n.X) > 0.1 {
		helper = core.NewVec3(0, 1, 0)
	} else {
		helper = core.NewVec3(1, 0, 0)
	}
	tangent := helper.Cross(n).Normalize()

	return &Plane{
		Name:      name,
		Point:     point,
		Normal:    n,
		TexScale:  100,
		material:  material,
		tangent:   tangent,
		bitangent: n.Cross(tangent),
	}
}

// Material returns the plane's surface description
func (p *Plane) Material() *core.Material {
	return &p.material
}

// Intersect tests if a ray intersects with the plane. A plane has no interior,
// so hits are always core.Outside with the normal facing the incoming ray.
func (p *Plane) Intersect(ray core.Ray, tMax float64) (core.Intersection, bool) {
	denominator := ray.Direction.Dot(p.Normal)

	// Ray parallel to the plane
	if math.Abs(denominator) < 1e-8 {
		return core.Intersection{}, false
	}

	t := p.Point.Subtract(ray.Origin).Dot(p.Normal) / denominator
	if t <= core.Epsilon || t >= tMax {
		return core.Intersection{}, false
	}

	point := ray.At(t)
	normal := p.Normal
	if denominator > 0 {
		normal = normal.Negate()
	}

	return core.Intersection{
		T:      t,
		Point:  point,
		Normal: normal,
		Color:  p.colorAt(point),
		Side:   core.Outside,
	}, true
}

func (p *Plane) colorAt(point core.Vec3) core.Vec3 {
	if p.material.Texture == nil {
		return p.material.Color
	}
	rel := point.Subtract(p.Point)
	u := rel.Dot(p.tangent) / p.TexScale
	v := rel.Dot(p.bitangent) / p.TexScale
	return p.material.Color.MultiplyVec(p.material.Texture.ColorAt(u, v))
}
