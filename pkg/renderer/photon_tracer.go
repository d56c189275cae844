package renderer

import "github.com/df07/go-progressive-photonmapper/pkg/core"

// bounce is the outcome of the Russian roulette at a photon hit
type bounce int

const (
	bounceDiffuse bounce = iota
	bounceReflect
	bounceRefract
	bounceAbsorb
)

// chooseBounce picks the photon's next event from u in [0, 1) using the
// material's coefficients as probabilities. Diffuse and specular share the
// first interval; whatever the coefficients leave uncovered is absorbed.
func chooseBounce(mat *core.Material, u float64) bounce {
	m1 := mat.Diffuse + mat.Specular
	m2 := m1 + mat.Reflective
	m3 := m2 + mat.Refractive
	switch {
	case u < m1:
		return bounceDiffuse
	case u < m2:
		return bounceReflect
	case u < m3:
		return bounceRefract
	default:
		return bounceAbsorb
	}
}

// PhotonTracer walks photons through the scene and deposits them into the
// spatial index wherever they land on a diffuse surface.
type PhotonTracer struct {
	objects  []core.Object
	maxDepth int
	index    *SpatialIndex
	sampler  core.Sampler

	deposits int64 // HitPoint matches accumulated by this tracer
}

// NewPhotonTracer creates a photon tracer. The sampler must not be shared
// with any other goroutine.
func NewPhotonTracer(objects []core.Object, maxDepth int, index *SpatialIndex, sampler core.Sampler) *PhotonTracer {
	return &PhotonTracer{
		objects:  objects,
		maxDepth: maxDepth,
		index:    index,
		sampler:  sampler,
	}
}

// Emit sends one photon with the given energy from a sampled point on light
// in a uniformly random direction
func (pt *PhotonTracer) Emit(light core.Light, energy core.Vec3) {
	origin := light.RandomPoint(pt.sampler)
	pt.Trace(Photon{
		Origin:    origin,
		Direction: core.SampleOnUnitSphere(pt.sampler.Get2D()),
		Position:  origin,
		Energy:    energy,
	}, 0)
}

// Trace follows photon until it is absorbed, escapes, or exceeds the depth limit
func (pt *PhotonTracer) Trace(photon Photon, depth int) {
	if depth > pt.maxDepth {
		return
	}

	ray := core.NewRay(photon.Origin, photon.Direction)
	obj, hit, ok := hitWorld(pt.objects, ray)
	if !ok {
		return
	}

	photon.Position = hit.Point
	photon.Object = obj

	mat := obj.Material()
	if mat.Diffuse > 0 {
		pt.deposits += int64(pt.index.Deposit(photon))
	}

	var next core.Ray
	switch chooseBounce(mat, pt.sampler.Get1D()) {
	case bounceDiffuse:
		normal := hit.Normal
		if ray.Direction.Dot(normal) > 0 {
			normal = normal.Negate()
		}
		next = core.NewRay(hit.Point, core.SampleCosineHemisphere(normal, pt.sampler.Get2D()))
	case bounceReflect:
		next = core.NewRay(hit.Point, ray.Direction.Reflect(hit.Normal))
	case bounceRefract:
		next = refractedRay(ray, hit, mat.IOR)
	default:
		return
	}

	photon.Origin = next.Origin
	photon.Direction = next.Direction
	photon.Energy = photon.Energy.MultiplyVec(hit.Color)
	pt.Trace(photon, depth+1)
}

// Deposits returns the number of HitPoint matches made so far
func (pt *PhotonTracer) Deposits() int64 { return pt.deposits }
