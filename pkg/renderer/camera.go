package renderer

import (
	"math"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

// CameraConfig describes a look-at camera with an optional thin lens
type CameraConfig struct {
	Center        core.Vec3 // Camera position
	LookAt        core.Vec3 // Point the camera looks at
	Up            core.Vec3 // Up direction (default +Y)
	Width         int       // Image width in pixels
	Height        int       // Image height in pixels
	VFov          float64   // Vertical field of view in degrees
	Aperture      float64   // Lens radius, 0 for a pinhole
	FocusDistance float64   // Distance to the plane in focus (0 = distance to LookAt)
	Samples       int       // Lens samples per pixel when Aperture > 0
}

// DefaultCameraConfig returns a 1024x768 camera looking down -Z
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Center:  core.NewVec3(0, 0, 0),
		LookAt:  core.NewVec3(0, 0, -1),
		Up:      core.NewVec3(0, 1, 0),
		Width:   1024,
		Height:  768,
		VFov:    30,
		Samples: 10,
	}
}

// Camera generates primary rays. Row 0 is the top of the image.
type Camera struct {
	config     CameraConfig
	origin     core.Vec3
	forward    core.Vec3 // unit view direction
	horizontal core.Vec3 // half-width of the image plane at distance 1
	vertical   core.Vec3 // half-height of the image plane at distance 1, pointing up
	lensU      core.Vec3
	lensV      core.Vec3
	focusDist  float64
}

// NewCamera creates a camera from its configuration
func NewCamera(config CameraConfig) *Camera {
	up := config.Up
	if up.IsZero() {
		up = core.NewVec3(0, 1, 0)
	}

	forward := config.LookAt.Subtract(config.Center).Normalize()
	right := forward.Cross(up).Normalize()
	trueUp := right.Cross(forward).Normalize()

	halfHeight := math.Tan(config.VFov * math.Pi / 360.0)
	aspect := float64(config.Width) / float64(config.Height)
	halfWidth := halfHeight * aspect

	focusDist := config.FocusDistance
	if focusDist <= 0 {
		focusDist = config.LookAt.Subtract(config.Center).Length()
	}

	return &Camera{
		config:     config,
		origin:     config.Center,
		forward:    forward,
		horizontal: right.Multiply(halfWidth),
		vertical:   trueUp.Multiply(halfHeight),
		lensU:      right,
		lensV:      trueUp,
		focusDist:  focusDist,
	}
}

// Origin returns the camera position
func (c *Camera) Origin() core.Vec3 { return c.origin }

// Width returns the image width in pixels
func (c *Camera) Width() int { return c.config.Width }

// Height returns the image height in pixels
func (c *Camera) Height() int { return c.config.Height }

// Config returns the configuration the camera was built from
func (c *Camera) Config() CameraConfig { return c.config }

// direction returns the unnormalized direction through the image-plane point (row, col)
func (c *Camera) direction(row, col float64) core.Vec3 {
	x := 2*col/float64(c.config.Width) - 1
	y := 1 - 2*row/float64(c.config.Height)
	return c.forward.Add(c.horizontal.Multiply(x)).Add(c.vertical.Multiply(y))
}

// Ray returns the unit direction through (row, col). Fractional coordinates
// address sub-pixel positions; pixel centers are at +0.5.
func (c *Camera) Ray(row, col float64) core.Vec3 {
	return c.direction(row, col).Normalize()
}

// RayAperture samples a point on the lens and returns a ray that passes
// through the same focal-plane point as the pinhole ray for (row, col).
func (c *Camera) RayAperture(row, col float64, sampler core.Sampler) (core.Vec3, core.Vec3) {
	dir := c.direction(row, col)
	// dir has unit length along forward, so the focal plane sits at t = focusDist
	target := c.origin.Add(dir.Multiply(c.focusDist))

	disk := core.SamplePointInUnitDisk(sampler.Get2D())
	origin := c.origin.
		Add(c.lensU.Multiply(disk.X * c.config.Aperture)).
		Add(c.lensV.Multiply(disk.Y * c.config.Aperture))

	return origin, target.Subtract(origin).Normalize()
}

// LensSamples returns the number of lens samples per pixel (1 for a pinhole)
func (c *Camera) LensSamples() int {
	if c.config.Aperture <= 0 || c.config.Samples <= 1 {
		return 1
	}
	return c.config.Samples
}
