package core

import "math"

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min Vec3 // Minimum corner
	Max Vec3 // Maximum corner
}

// EmptyAABB returns a box that contains nothing; extending it by a point
// yields the point itself
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{Min: NewVec3(inf, inf, inf), Max: NewVec3(-inf, -inf, -inf)}
}

// Extend returns the smallest box containing both the box and point
func (aabb AABB) Extend(point Vec3) AABB {
	return AABB{
		Min: NewVec3(math.Min(aabb.Min.X, point.X), math.Min(aabb.Min.Y, point.Y), math.Min(aabb.Min.Z, point.Z)),
		Max: NewVec3(math.Max(aabb.Max.X, point.X), math.Max(aabb.Max.Y, point.Y), math.Max(aabb.Max.Z, point.Z)),
	}
}

// Size returns the size (extent) of the AABB along each axis
func (aabb AABB) Size() Vec3 {
	return aabb.Max.Subtract(aabb.Min)
}

// LongestAxis returns the axis (0=X, 1=Y, 2=Z) with the longest extent.
// Ties go to the lower axis.
func (aabb AABB) LongestAxis() int {
	size := aabb.Size()
	axis := 0
	for a := 1; a < 3; a++ {
		if size.Axis(a) > size.Axis(axis) {
			axis = a
		}
	}
	return axis
}

// Split cuts the box with the plane axis = value and returns the lower and upper halves
func (aabb AABB) Split(axis int, value float64) (AABB, AABB) {
	lower, upper := aabb, aabb
	switch axis {
	case 0:
		lower.Max.X, upper.Min.X = value, value
	case 1:
		lower.Max.Y, upper.Min.Y = value, value
	default:
		lower.Max.Z, upper.Min.Z = value, value
	}
	return lower, upper
}

// MaxExtent returns the largest side length of the box
func (aabb AABB) MaxExtent() float64 {
	size := aabb.Size()
	return math.Max(size.X, math.Max(size.Y, size.Z))
}

// HitsRay reports whether ray passes through the box somewhere in
// (Epsilon, tMax). Boundaries count as inside, so flat boxes can be hit.
func (aabb AABB) HitsRay(ray Ray, tMax float64) bool {
	tNear, tFar := Epsilon, tMax
	for axis := 0; axis < 3; axis++ {
		o, d := ray.Origin.Axis(axis), ray.Direction.Axis(axis)
		lo, hi := aabb.Min.Axis(axis), aabb.Max.Axis(axis)
		if math.Abs(d) < 1e-12 {
			if o < lo || o > hi {
				return false
			}
			continue
		}
		t0, t1 := (lo-o)/d, (hi-o)/d
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tNear = math.Max(tNear, t0)
		tFar = math.Min(tFar, t1)
		if tNear > tFar {
			return false
		}
	}
	return true
}
