package renderer

import "github.com/df07/go-progressive-photonmapper/pkg/core"

// PathSample is the in-flight description of a camera path: the pixel it
// belongs to and the throughput accumulated so far. It is copied, never
// shared, as the ray tracer branches.
type PathSample struct {
	Row, Col int
	Weight   core.Vec3
}

// HitPoint is a diffuse surface point seen from a pixel. Its fields are fixed
// once the ray-tracing pass ends; the progressive statistics live in
// HitPointStats, owned by the spatial index.
type HitPoint struct {
	Row, Col int
	Position core.Vec3
	Normal   core.Vec3
	Object   core.Object // photons only count when they land on this object
	Weight   core.Vec3
}

// BackgroundHitPoint records a camera path that escaped the scene
type BackgroundHitPoint struct {
	Row, Col int
	Weight   core.Vec3
}

// HitPointStats holds the progressive photon statistics of one HitPoint
type HitPointStats struct {
	R2     float64   // current squared gather radius
	MaxR2  float64   // largest R2 in the kd-subtree rooted at this HitPoint
	Phi    core.Vec3 // accumulated flux
	NAccum float64   // photon count kept from previous rounds
	NNew   float64   // photons received this round
}

// Update folds the photons gathered this round into the accumulated
// statistics and shrinks the radius. A HitPoint that has never received a
// photon is left unchanged.
func (s *HitPointStats) Update(alpha float64) {
	if s.NAccum <= 0 && s.NNew <= 0 {
		return
	}
	k := (s.NAccum + alpha*s.NNew) / (s.NAccum + s.NNew)
	s.R2 *= k
	s.Phi = s.Phi.Multiply(k)
	s.NAccum += alpha * s.NNew
	s.NNew = 0
}

// Photon is a packet of light energy travelling through the scene
type Photon struct {
	Origin    core.Vec3
	Direction core.Vec3 // unit length
	Position  core.Vec3 // last surface hit
	Energy    core.Vec3
	Object    core.Object // object at Position
}

// Population is the output of the ray-tracing pass
type Population struct {
	HitPoints  []HitPoint
	Background []BackgroundHitPoint
}

// addHitPoint finalizes a path sample at a diffuse surface
func (p *Population) addHitPoint(sample PathSample, position, normal core.Vec3, object core.Object) {
	p.HitPoints = append(p.HitPoints, HitPoint{
		Row:      sample.Row,
		Col:      sample.Col,
		Position: position,
		Normal:   normal,
		Object:   object,
		Weight:   sample.Weight,
	})
}

// addBackground finalizes a path sample that missed every object
func (p *Population) addBackground(sample PathSample) {
	p.Background = append(p.Background, BackgroundHitPoint{
		Row:    sample.Row,
		Col:    sample.Col,
		Weight: sample.Weight,
	})
}

// Append moves every record of other to the end of p
func (p *Population) Append(other *Population) {
	if other == nil {
		return
	}
	p.HitPoints = append(p.HitPoints, other.HitPoints...)
	p.Background = append(p.Background, other.Background...)
}
