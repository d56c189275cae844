package renderer

import (
	"math"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

// Scene interface to avoid circular imports
type Scene interface {
	GetCamera() core.Camera
	GetObjects() []core.Object
	GetLights() []core.Light
	GetBackground() core.Vec3
}

// hitWorld returns the nearest object along ray. Only a strictly closer hit
// replaces the current one, so ties go to the object listed first.
func hitWorld(objects []core.Object, ray core.Ray) (core.Object, core.Intersection, bool) {
	var (
		closest    core.Object
		closestHit core.Intersection
	)
	tMax := math.Inf(1)
	for _, obj := range objects {
		if hit, ok := obj.Intersect(ray, tMax); ok {
			tMax = hit.T
			closest = obj
			closestHit = hit
		}
	}
	return closest, closestHit, closest != nil
}

// refractedRay bends ray through the surface at hit. The normal is flipped
// when the ray leaves the object, and the relative index is inverted.
func refractedRay(ray core.Ray, hit core.Intersection, ior float64) core.Ray {
	normal := hit.Normal
	relativeIndex := ior
	if hit.Side == core.Inside {
		normal = normal.Negate()
		relativeIndex = 1.0 / ior
	}
	dir, _ := ray.Direction.Refract(normal, relativeIndex)
	return core.NewRay(hit.Point, dir)
}

// Raytracer evaluates direct and specular light along camera paths and
// records the HitPoints the photon rounds gather into.
type Raytracer struct {
	objects    []core.Object
	lights     []core.Light
	background core.Vec3
	maxDepth   int
	sampler    core.Sampler
	population *Population
}

// NewRaytracer creates a raytracer that appends its samples to population
func NewRaytracer(scene Scene, maxDepth int, sampler core.Sampler, population *Population) *Raytracer {
	return &Raytracer{
		objects:    scene.GetObjects(),
		lights:     scene.GetLights(),
		background: scene.GetBackground(),
		maxDepth:   maxDepth,
		sampler:    sampler,
		population: population,
	}
}

// Trace returns the direct color seen along ray. Every path that ends on a
// diffuse or glossy surface becomes a HitPoint; every path that escapes or
// runs out of depth becomes a background HitPoint.
func (rt *Raytracer) Trace(ray core.Ray, sample PathSample, depth int) core.Vec3 {
	if depth > rt.maxDepth {
		rt.population.addBackground(sample)
		return rt.background
	}

	obj, hit, ok := hitWorld(rt.objects, ray)
	if !ok {
		rt.population.addBackground(sample)
		return rt.background
	}

	mat := obj.Material()
	color := core.Vec3{}

	if mat.Diffuse > 0 || mat.Specular > 0 {
		hp := sample
		hp.Weight = sample.Weight.MultiplyVec(hit.Color).Multiply(mat.Diffuse)
		rt.population.addHitPoint(hp, hit.Point, hit.Normal, obj)
		color = color.Add(rt.directLight(obj, ray, hit))
	}

	if mat.Reflective > 0 {
		factor := hit.Color.Multiply(mat.Reflective)
		next := sample
		next.Weight = sample.Weight.MultiplyVec(factor)
		reflected := core.NewRay(hit.Point, ray.Direction.Reflect(hit.Normal))
		color = color.Add(rt.Trace(reflected, next, depth+1).MultiplyVec(factor))
	}

	if mat.Refractive > 0 {
		factor := hit.Color.Multiply(mat.Refractive)
		next := sample
		next.Weight = sample.Weight.MultiplyVec(factor)
		color = color.Add(rt.Trace(refractedRay(ray, hit, mat.IOR), next, depth+1).MultiplyVec(factor))
	}

	return color
}

// directLight sums the Phong contribution of every light not blocked by
// another object
func (rt *Raytracer) directLight(obj core.Object, ray core.Ray, hit core.Intersection) core.Vec3 {
	mat := obj.Material()
	toViewer := ray.Origin.Subtract(hit.Point).Normalize()

	result := core.Vec3{}
	for _, light := range rt.lights {
		toLight := light.RandomPoint(rt.sampler).Subtract(hit.Point)
		dist := toLight.Length()
		if dist <= core.Epsilon {
			continue
		}
		toLight = toLight.Multiply(1.0 / dist)

		if rt.occluded(obj, core.NewRay(hit.Point, toLight), dist) {
			continue
		}
		result = result.Add(light.Phong(hit.Normal, toLight, toViewer, mat.Diffuse, mat.Specular, hit.Color))
	}
	return result
}

// occluded reports whether any object other than self blocks ray before dist
func (rt *Raytracer) occluded(self core.Object, ray core.Ray, dist float64) bool {
	for _, obj := range rt.objects {
		if obj == self {
			continue
		}
		if _, ok := obj.Intersect(ray, dist); ok {
			return true
		}
	}
	return false
}
