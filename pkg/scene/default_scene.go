package scene

import (
	"math"
	"path/filepath"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
	"github.com/df07/go-progressive-photonmapper/pkg/loaders"
	"github.com/df07/go-progressive-photonmapper/pkg/material"
	"github.com/df07/go-progressive-photonmapper/pkg/renderer"
)

// Texture file names looked up in the texture directory of the default scene
const (
	WoodTexture       = "wood.png"
	MarbleTexture     = "marble.png"
	BlueMarbleTexture = "blue-marble.png"
	LeafTexture       = "leaf.png"
	PaperTexture      = "paper.png"
)

// NewDefaultScene creates the showcase room: five huge spheres as walls, a
// glossy floor, two leaves and a paper scroll made of Bezier patches, a ring
// of glossy beads around the second leaf, a large glass ball, two mirror
// blades with a chain of mirror links, and glass spheres, lit by four point
// lights.
//
// Textures are read from textureDir when it is non-empty. A missing texture is
// logged and the object keeps its plain color.
func NewDefaultScene(textureDir string, logger core.Logger, cameraOverrides ...renderer.CameraConfig) *Scene {
	defaultCameraConfig := renderer.CameraConfig{
		Center:  core.NewVec3(-50, 300, -20),
		LookAt:  core.NewVec3(0, 0, -160),
		Up:      core.NewVec3(0, 1, 0),
		Width:   1024,
		Height:  768,
		VFov:    40.0,
		Samples: 10,
	}

	s := newScene("default", cameraConfig(defaultCameraConfig, cameraOverrides), core.NewVec3(0.25, 0.25, 0.25))

	wood := loadOptionalTexture(textureDir, WoodTexture, logger)
	marble := loadOptionalTexture(textureDir, MarbleTexture, logger)
	blueMarble := loadOptionalTexture(textureDir, BlueMarbleTexture, logger)
	leafTexture := loadOptionalTexture(textureDir, LeafTexture, logger)
	paper := loadOptionalTexture(textureDir, PaperTexture, logger)

	// Walls
	s.AddSphere("front", core.NewVec3(0, 0, 1e5+2), 1e5, material.NewDiffuse(core.NewVec3(.8, .8, .8)))
	s.AddSphere("back", core.NewVec3(0, 0, -1e5-320), 1e5, material.NewDiffuse(core.NewVec3(.75, .75, .75)))
	s.AddSphere("left", core.NewVec3(-1e5-150, 50, -50), 1e5, material.NewDiffuse(core.NewVec3(.882, .537, .537)))
	s.AddSphere("right", core.NewVec3(1e5+150, 50, -50), 1e5, material.NewDiffuse(core.NewVec3(.882, .882, .537)))
	s.AddSphere("top", core.NewVec3(0, 1e5+302, -50), 1e5, material.NewDiffuse(core.NewVec3(.75, .75, .75)))

	floor := material.WithTexture(material.NewGlossy(core.NewVec3(.9, .9, .9), .8, .2), wood)
	s.AddPlane("floor", core.NewVec3(0, 0, -140), core.NewVec3(0, 1, 0), floor)

	// Lights
	s.AddPointLight(core.NewVec3(0, 95, -100), core.NewVec3(1, 1, 1))
	s.AddPointLight(core.NewVec3(125, 50, -200), core.NewVec3(1, 1, 1))
	s.AddPointLight(core.NewVec3(-50, 20, -130), core.NewVec3(0.8, 0.8, 0.8))
	s.AddPointLight(core.NewVec3(50, 50, -50), core.NewVec3(0.8, 0.8, 0.8))

	// Bezier patches
	leaf := material.WithTexture(material.NewDiffuse(core.NewVec3(.95, .95, .95)), leafTexture)
	s.AddBezierPatch("leaf", core.NewVec3(50, 0, -190), leafControl(0), leaf)
	s.AddBezierPatch("leaf2", core.NewVec3(50, 4, -83), leafControl(-math.Pi/6), leaf)
	scroll := material.WithTexture(material.NewDiffuse(core.NewVec3(.8, .8, .8)), paper)
	s.AddBezierPatch("reel", core.NewVec3(-5, 0, -120), reelControl(), scroll)

	// Ring of beads
	bead := material.WithTexture(material.NewGlossy(core.NewVec3(.9, .9, .9).Multiply(.999), .7, .3), blueMarble)
	ringCenter := core.NewVec3(50, 4, -83)
	for _, offset := range ringOffsets(16) {
		s.AddSphere("bead", ringCenter.Add(offset), 4, bead)
	}

	// Large glass ball
	glassBall := material.WithTexture(material.NewGlass(core.NewVec3(1, 1, 1).Multiply(.999), 1.4), marble)
	s.AddSphere("glass-ball", core.NewVec3(110, 32, -190), 32, glassBall)

	shift := core.NewVec3(-10, 0, -10)

	glossy := material.WithTexture(material.NewGlossy(core.NewVec3(1, 1, 1).Multiply(.999), .7, .3), blueMarble)
	s.AddSphere("glossy", core.NewVec3(-48, 12, -180).Add(shift), 4, glossy)
	s.AddSphere("glossy", core.NewVec3(-48, 12, -190).Add(shift), 4, glossy)

	blade := material.NewMirror(core.NewVec3(.9, .9, .9))
	s.AddBezierPatch("knife", core.NewVec3(-22, 0, -180).Add(shift), knifeControl(), blade)
	s.AddBezierPatch("knife", core.NewVec3(-22, 0, -190).Add(shift), knifeControl(), blade)

	// Chain of mirror links
	link := material.NewMirror(core.NewVec3(.9, .9, .9).Multiply(.999))
	chainCenter := core.NewVec3(-45, 1.5, -170).Add(shift)
	for _, offset := range chainOffsets() {
		s.AddSphere("link", chainCenter.Add(offset), 1.5, link)
	}

	glass := material.NewGlass(core.NewVec3(.7, .9, .9), 1.4)
	s.AddSphere("glass", core.NewVec3(-45, 4, -150).Add(shift), 6, glass)
	s.AddSphere("glass", core.NewVec3(-56, 6, -185).Add(shift), 6, glass)

	return s
}

// ringOffsets returns twelve points evenly spaced on a horizontal circle
func ringOffsets(radius float64) []core.Vec3 {
	unit := [][2]float64{
		{0, 1}, {0.5, 0.86603}, {0.86603, 0.5}, {1, 0}, {0.86603, -0.5}, {0.5, -0.86603},
		{0, -1}, {-0.5, -0.86603}, {-0.86603, -0.5}, {-1, 0}, {-0.86603, 0.5}, {-0.5, 0.86603},
	}
	offsets := make([]core.Vec3, len(unit))
	for i, p := range unit {
		offsets[i] = core.NewVec3(p[0], 0, p[1]).Multiply(radius)
	}
	return offsets
}

// chainOffsets returns the link positions of an S-shaped chain
func chainOffsets() []core.Vec3 {
	points := [][2]float64{
		{-0.56, 3.26}, {-1.38, 2.5}, {-1.2, 1.42}, {-0.26, 0.58},
		{0.88, 0.22}, {1.82, -0.6}, {1.56, -1.76}, {0.72, -2.48},
	}
	offsets := make([]core.Vec3, len(points))
	for i, p := range points {
		offsets[i] = core.NewVec3(p[0], 0, p[1]).Multiply(3)
	}
	return offsets
}

// leafControl returns the control points of a leaf whose stem collapses to a
// single point, turned by angle around the y axis
func leafControl(angle float64) [16]core.Vec3 {
	points := [16][3]float64{
		{0, 0.5, 0}, {1.62, 3, -2}, {4.72, 2.5, -2}, {10, 0, 0},
		{0, 0.5, 0}, {2.44, 3, -1}, {5.74, 2, -1}, {10, 0, 0},
		{0, 0.5, 0}, {3.56, 4.42, -0.5}, {6.78, 3.06, -0.5}, {10, 0, 0},
		{0, 0.5, 0}, {3.76, 2, 0.5}, {7.76, 2.24, -0.25}, {10, 0, 0},
	}
	cos, sin := math.Cos(angle), math.Sin(angle)
	var control [16]core.Vec3
	for i, p := range points {
		x, y, z := p[0]*8, p[1]*8, p[2]*8
		control[i] = core.NewVec3(cos*x-sin*z, y, sin*x+cos*z)
	}
	return control
}

// reelControl returns the control points of a gently curled sheet of paper
func reelControl() [16]core.Vec3 {
	return scaledControl(15, [16][3]float64{
		{-2, 0.8, -1.5}, {0, 0, -1.5}, {5, 0, -1.5}, {7, 0.3, -1.5},
		{-2, 0.6, 0}, {0, 0, 0}, {5, 0, 0}, {7, 0, 0},
		{-2, 0, 1.5}, {0, 0, 1.5}, {5, 0, 1.5}, {7, 0.6, 1.5},
		{-2, 0.1, 3}, {0, 0, 3}, {5, 0, 3}, {7, 0.6, 3},
	})
}

// knifeControl returns the control points of a blade lying along x
func knifeControl() [16]core.Vec3 {
	return scaledControl(8, [16][3]float64{
		{-3, 0, -0.3}, {-1, -0.5, -0.2}, {1, -0.5, -0.2}, {5, 0, -0.1},
		{-4, 2, -1}, {-1.5, 1, -0.5}, {0.5, 0.5, -0.5}, {4.6, 0.2, -0.1},
		{-4, 2, 1}, {-1.5, 1, 0.5}, {0.5, 0.5, 0.5}, {4.6, 0.2, 0.1},
		{-3, 0, 0.3}, {-1, -0.5, 0.2}, {1, -0.5, 0.2}, {5, 0, 0.1},
	})
}

func scaledControl(scale float64, points [16][3]float64) [16]core.Vec3 {
	var control [16]core.Vec3
	for i, p := range points {
		control[i] = core.NewVec3(p[0], p[1], p[2]).Multiply(scale)
	}
	return control
}

// loadOptionalTexture loads dir/name, returning nil when dir is empty or the
// file can't be read
func loadOptionalTexture(dir, name string, logger core.Logger) core.Texture {
	if dir == "" {
		return nil
	}
	path := filepath.Join(dir, name)
	texture, err := loaders.LoadTexture(path)
	if err != nil {
		if logger != nil {
			logger.Printf("Texture %s not loaded, using plain color: %v\n", path, err)
		}
		return nil
	}
	return texture
}
