package core

// Logger interface for renderer logging
type Logger interface {
	Printf(format string, args ...interface{})
}

// Side reports how a ray met an object
type Side int

const (
	Miss    Side = iota // no intersection closer than the limit
	Outside             // the ray struck the front face
	Inside              // the ray struck the surface from within (refraction exit)
)

// Intersection describes the nearest hit of a ray against a single object
type Intersection struct {
	T      float64 // Distance along the (unit) ray direction
	Point  Vec3    // Hit position
	Normal Vec3    // Outward unit surface normal
	Color  Vec3    // Object color at the hit, texture included
	Side   Side
}

// Object is anything a ray or photon can hit.
//
// Intersect must be pure and deterministic and must only report hits with
// Epsilon < T < tMax. Implementations are compared by identity, so they must
// be pointer types.
type Object interface {
	Intersect(ray Ray, tMax float64) (Intersection, bool)
	Material() *Material
}

// Light is a photon emitter that also shades surfaces directly
type Light interface {
	Position() Vec3
	Color() Vec3
	// RandomPoint samples a point on the light (the fixed position for point lights)
	RandomPoint(sampler Sampler) Vec3
	// Phong evaluates the local illumination model for unit vectors normal, toLight and toViewer
	Phong(normal, toLight, toViewer Vec3, diffuse, specular float64, surfaceColor Vec3) Vec3
}

// Camera generates primary rays for pixel coordinates
type Camera interface {
	Origin() Vec3
	Width() int
	Height() int
	// Ray returns the unit direction through pixel (row, col) from the camera origin
	Ray(row, col float64) Vec3
	// RayAperture samples a lens position and returns (origin, unit direction)
	RayAperture(row, col float64, sampler Sampler) (Vec3, Vec3)
	// LensSamples reports how many lens samples each pixel takes (1 for a pinhole)
	LensSamples() int
}

// Texture maps (u, v) coordinates to a color
type Texture interface {
	ColorAt(u, v float64) Vec3
}

// Material is the fixed split of surface transport. The four coefficients are
// probabilities and are expected to sum to at most 1; the remainder is absorbed.
type Material struct {
	Color      Vec3    // Base color multiplied into every interaction
	Diffuse    float64 // Lambertian share, also the photon-gathering share
	Specular   float64 // Phong highlight share (grouped with diffuse for photons)
	Reflective float64 // Perfect mirror share
	Refractive float64 // Perfect transmission share
	IOR        float64 // Index of refraction of the object's interior
	Texture    Texture // Optional, modulates Color
}
