package renderer

import (
	"time"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

// TraceStats contains statistics about the ray-tracing pass
type TraceStats struct {
	Pixels     int           // Pixels traced
	LensRays   int           // Camera rays cast (Pixels × lens samples)
	HitPoints  int           // HitPoints recorded
	Background int           // Background HitPoints recorded
	Duration   time.Duration // Wall time including the index build
}

// RoundStats contains statistics about one photon round
type RoundStats struct {
	Round          int           // 1-based round index
	PhotonsEmitted int           // Photons emitted from all lights
	Deposits       int64         // Photon to HitPoint matches
	MeanRadius2    float64       // Mean squared radius after the update
	Frame          FrameStats    // Luminance of the estimated image
	Duration       time.Duration // Wall time of emission, update and estimate
}

// HitPointInfo describes one HitPoint of an inspected pixel
type HitPointInfo struct {
	Position core.Vec3
	Normal   core.Vec3
	Weight   core.Vec3
	R2       float64
	Phi      core.Vec3
	NAccum   float64
}
