package scene

import (
	"fmt"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
	"github.com/df07/go-progressive-photonmapper/pkg/loaders"
	"github.com/df07/go-progressive-photonmapper/pkg/material"
	"github.com/df07/go-progressive-photonmapper/pkg/renderer"
)

// NewFileScene loads a JSON scene description. Textures are resolved
// relative to the file; unlike the built-in scenes a missing texture is an
// error.
func NewFileScene(path string, cameraOverrides ...renderer.CameraConfig) (*Scene, error) {
	sf, err := loaders.LoadSceneFile(path)
	if err != nil {
		return nil, err
	}
	return FromSceneFile(sf, cameraOverrides...)
}

// FromSceneFile converts a parsed scene description into a scene
func FromSceneFile(sf *loaders.SceneFile, cameraOverrides ...renderer.CameraConfig) (*Scene, error) {
	up := sf.Camera.Up.Vec3()
	if up.IsZero() {
		up = core.NewVec3(0, 1, 0)
	}
	fileCameraConfig := renderer.CameraConfig{
		Center:        sf.Camera.Center.Vec3(),
		LookAt:        sf.Camera.LookAt.Vec3(),
		Up:            up,
		Width:         sf.Width,
		Height:        sf.Height,
		VFov:          sf.Camera.VFov,
		Aperture:      sf.Camera.Aperture,
		FocusDistance: sf.Camera.FocusDistance,
		Samples:       sf.Camera.Samples,
	}

	s := newScene(sf.Name, cameraConfig(fileCameraConfig, cameraOverrides), sf.Background.Vec3())
	s.RenderConfig = s.RenderConfig.Merge(renderer.Config{
		MaxDepth:        sf.Render.MaxDepth,
		InitialRadius:   sf.Render.InitialRadius,
		Alpha:           sf.Render.Alpha,
		PhotonBudget:    sf.Render.PhotonBudget,
		Rounds:          sf.Render.Rounds,
		IrradianceScale: sf.Render.IrradianceScale,
		Seed:            sf.Render.Seed,
		Gamma:           sf.Render.Gamma,
	})

	for i, sc := range sf.Spheres {
		mat, err := convertMaterial(sf, sc.Material)
		if err != nil {
			return nil, fmt.Errorf("sphere %d: %w", i, err)
		}
		s.AddSphere(sc.Name, sc.Center.Vec3(), sc.Radius, mat)
	}

	for i, pc := range sf.Planes {
		mat, err := convertMaterial(sf, pc.Material)
		if err != nil {
			return nil, fmt.Errorf("plane %d: %w", i, err)
		}
		plane := s.AddPlane(pc.Name, pc.Point.Vec3(), pc.Normal.Vec3(), mat)
		if pc.TexScale > 0 {
			plane.TexScale = pc.TexScale
		}
	}

	for i, pc := range sf.Patches {
		mat, err := convertMaterial(sf, pc.Material)
		if err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}
		var control [16]core.Vec3
		for j, c := range pc.Control {
			control[j] = c.Vec3()
		}
		s.AddBezierPatch(pc.Name, pc.Offset.Vec3(), control, mat)
	}

	for _, lc := range sf.Lights {
		switch lc.Type {
		case "sphere":
			s.AddSphereLight(lc.Position.Vec3(), lc.Radius, lc.EmittedColor())
		default:
			s.AddPointLight(lc.Position.Vec3(), lc.EmittedColor())
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// convertMaterial builds a material, loading its texture if it names one
func convertMaterial(sf *loaders.SceneFile, mc loaders.MaterialCfg) (core.Material, error) {
	ior := mc.IOR
	if ior == 0 {
		ior = material.DefaultIOR
	}
	mat := material.New(mc.Color.Vec3(), mc.Diffuse, mc.Specular, mc.Reflective, mc.Refractive, ior)

	if mc.Texture != "" {
		texture, err := loaders.LoadTexture(sf.TexturePath(mc.Texture))
		if err != nil {
			return core.Material{}, err
		}
		mat = material.WithTexture(mat, texture)
	}
	return mat, nil
}
