package scene

import (
	"fmt"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
	"github.com/df07/go-progressive-photonmapper/pkg/geometry"
	"github.com/df07/go-progressive-photonmapper/pkg/lights"
	"github.com/df07/go-progressive-photonmapper/pkg/material"
	"github.com/df07/go-progressive-photonmapper/pkg/renderer"
)

// Scene contains all the elements needed for rendering
type Scene struct {
	Name         string
	Camera       *renderer.Camera
	CameraConfig renderer.CameraConfig
	Objects      []core.Object // Objects in the scene
	Lights       []core.Light  // Lights in the scene
	Background   core.Vec3     // Color of rays that escape the scene
	RenderConfig renderer.Config
}

// newScene creates an empty scene with the given camera and default render settings
func newScene(name string, cameraConfig renderer.CameraConfig, background core.Vec3) *Scene {
	return &Scene{
		Name:         name,
		Camera:       renderer.NewCamera(cameraConfig),
		CameraConfig: cameraConfig,
		Objects:      make([]core.Object, 0),
		Lights:       make([]core.Light, 0),
		Background:   background,
		RenderConfig: renderer.DefaultConfig(),
	}
}

// GetCamera returns the scene camera
func (s *Scene) GetCamera() core.Camera { return s.Camera }

// GetObjects returns every intersectable object
func (s *Scene) GetObjects() []core.Object { return s.Objects }

// GetLights returns every light
func (s *Scene) GetLights() []core.Light { return s.Lights }

// GetBackground returns the background color
func (s *Scene) GetBackground() core.Vec3 { return s.Background }

// AddSphere adds a sphere and returns it
func (s *Scene) AddSphere(name string, center core.Vec3, radius float64, mat core.Material) *geometry.Sphere {
	sphere := geometry.NewSphere(name, center, radius, mat)
	s.Objects = append(s.Objects, sphere)
	return sphere
}

// AddPlane adds an infinite plane and returns it
func (s *Scene) AddPlane(name string, point, normal core.Vec3, mat core.Material) *geometry.Plane {
	plane := geometry.NewPlane(name, point, normal, mat)
	s.Objects = append(s.Objects, plane)
	return plane
}

// AddBezierPatch adds a bicubic Bezier patch whose control points are given
// relative to offset, and returns it
func (s *Scene) AddBezierPatch(name string, offset core.Vec3, control [16]core.Vec3, mat core.Material) *geometry.BezierPatch {
	patch := geometry.NewBezierPatch(name, offset, control, mat)
	s.Objects = append(s.Objects, patch)
	return patch
}

// AddPointLight adds a point light
func (s *Scene) AddPointLight(center, emission core.Vec3) {
	s.Lights = append(s.Lights, lights.NewPointLight(center, emission))
}

// AddSphereLight adds a spherical area light
func (s *Scene) AddSphereLight(center core.Vec3, radius float64, emission core.Vec3) {
	s.Lights = append(s.Lights, lights.NewSphereLight(center, radius, emission))
}

// SetCamera replaces the camera
func (s *Scene) SetCamera(config renderer.CameraConfig) {
	s.CameraConfig = config
	s.Camera = renderer.NewCamera(config)
}

// Validate checks every material in the scene
func (s *Scene) Validate() error {
	for i, obj := range s.Objects {
		if err := material.Validate(*obj.Material()); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
	}
	return nil
}

// MergeCameraConfig applies the non-zero fields of override on top of base
func MergeCameraConfig(base, override renderer.CameraConfig) renderer.CameraConfig {
	result := base
	if !override.Center.IsZero() {
		result.Center = override.Center
	}
	if !override.LookAt.IsZero() {
		result.LookAt = override.LookAt
	}
	if !override.Up.IsZero() {
		result.Up = override.Up
	}
	if override.Width != 0 {
		result.Width = override.Width
	}
	if override.Height != 0 {
		result.Height = override.Height
	}
	if override.VFov != 0 {
		result.VFov = override.VFov
	}
	if override.Aperture != 0 {
		result.Aperture = override.Aperture
	}
	if override.FocusDistance != 0 {
		result.FocusDistance = override.FocusDistance
	}
	if override.Samples != 0 {
		result.Samples = override.Samples
	}
	return result
}

// cameraConfig applies the first override, if any
func cameraConfig(base renderer.CameraConfig, overrides []renderer.CameraConfig) renderer.CameraConfig {
	if len(overrides) > 0 {
		return MergeCameraConfig(base, overrides[0])
	}
	return base
}
