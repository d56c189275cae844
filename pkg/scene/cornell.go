package scene

import (
	"github.com/df07/go-progressive-photonmapper/pkg/core"
	"github.com/df07/go-progressive-photonmapper/pkg/material"
	"github.com/df07/go-progressive-photonmapper/pkg/renderer"
)

// NewCornellScene creates a Cornell box built from huge spheres, with a
// mirror ball and a glass ball lit by a small spherical light below the ceiling
func NewCornellScene(cameraOverrides ...renderer.CameraConfig) *Scene {
	defaultCameraConfig := renderer.CameraConfig{
		Center:  core.NewVec3(50, 52, 295.6),
		LookAt:  core.NewVec3(50, 47.7, 195.6),
		Up:      core.NewVec3(0, 1, 0),
		Width:   512,
		Height:  384,
		VFov:    30.0,
		Samples: 8,
	}

	s := newScene("cornell", cameraConfig(defaultCameraConfig, cameraOverrides), core.NewVec3(0, 0, 0))

	white := material.NewDiffuse(core.NewVec3(.75, .75, .75))
	red := material.NewDiffuse(core.NewVec3(.75, .25, .25))
	blue := material.NewDiffuse(core.NewVec3(.25, .25, .75))

	// Walls
	s.AddSphere("left", core.NewVec3(1e5+1, 40.8, 81.6), 1e5, red)
	s.AddSphere("right", core.NewVec3(-1e5+99, 40.8, 81.6), 1e5, blue)
	s.AddSphere("back", core.NewVec3(50, 40.8, 1e5), 1e5, white)
	s.AddSphere("bottom", core.NewVec3(50, 1e5, 81.6), 1e5, white)
	s.AddSphere("top", core.NewVec3(50, -1e5+81.6, 81.6), 1e5, white)

	// Balls
	s.AddSphere("mirror", core.NewVec3(27, 16.5, 47), 16.5, material.NewMirror(core.NewVec3(1, 1, 1).Multiply(.999)))
	s.AddSphere("glass", core.NewVec3(73, 16.5, 88), 16.5, material.NewGlass(core.NewVec3(1, 1, 1).Multiply(.999), 1.5))

	s.AddSphereLight(core.NewVec3(50, 70, 81.6), 3, core.NewVec3(1, 1, 1))

	s.RenderConfig.InitialRadius = 1.5
	return s
}

// NewSingleSphereScene creates one diffuse sphere lit by a point light that
// sits at the camera position, on a black background
func NewSingleSphereScene(cameraOverrides ...renderer.CameraConfig) *Scene {
	defaultCameraConfig := renderer.CameraConfig{
		Center: core.NewVec3(0, 0, 10),
		LookAt: core.NewVec3(0, 0, 0),
		Up:     core.NewVec3(0, 1, 0),
		Width:  200,
		Height: 150,
		VFov:   30.0,
	}

	config := cameraConfig(defaultCameraConfig, cameraOverrides)
	s := newScene("single-sphere", config, core.NewVec3(0, 0, 0))

	s.AddSphere("sphere", core.NewVec3(0, 0, 0), 2, material.NewDiffuse(core.NewVec3(0.8, 0.3, 0.2)))
	s.AddPointLight(config.Center, core.NewVec3(1, 1, 1))

	s.RenderConfig.InitialRadius = 0.1
	s.RenderConfig.IrradianceScale = 100
	return s
}
