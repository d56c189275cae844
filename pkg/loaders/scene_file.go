package loaders

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

// Vec is a JSON-friendly [x, y, z] triple
type Vec [3]float64

// Vec3 converts to core.Vec3
func (v Vec) Vec3() core.Vec3 {
	return core.NewVec3(v[0], v[1], v[2])
}

// SceneFile is the JSON scene description
type SceneFile struct {
	Name       string      `json:"name"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Background Vec         `json:"background"`
	Camera     CameraCfg   `json:"camera"`
	Render     RenderCfg   `json:"render,omitempty"`
	Spheres    []SphereCfg `json:"spheres,omitempty"`
	Planes     []PlaneCfg  `json:"planes,omitempty"`
	Patches    []PatchCfg  `json:"patches,omitempty"`
	Lights     []LightCfg  `json:"lights"`

	// Directory of the file, used to resolve texture paths
	BaseDir string `json:"-"`
}

type CameraCfg struct {
	Center        Vec     `json:"center"`
	LookAt        Vec     `json:"lookAt"`
	Up            Vec     `json:"up,omitempty"` // defaults to +Y
	VFov          float64 `json:"vfov"`
	Aperture      float64 `json:"aperture,omitempty"`
	FocusDistance float64 `json:"focusDistance,omitempty"` // 0 = distance to LookAt
	Samples       int     `json:"samples,omitempty"`       // lens samples when aperture > 0
}

// RenderCfg overrides renderer defaults; zero values keep the default
type RenderCfg struct {
	MaxDepth        int     `json:"maxDepth,omitempty"`
	InitialRadius   float64 `json:"initialRadius,omitempty"`
	Alpha           float64 `json:"alpha,omitempty"`
	PhotonBudget    int     `json:"photonBudget,omitempty"`
	Rounds          int     `json:"rounds,omitempty"`
	IrradianceScale float64 `json:"irradianceScale,omitempty"`
	Seed            int64   `json:"seed,omitempty"`
	Gamma           float64 `json:"gamma,omitempty"`
}

type MaterialCfg struct {
	Color      Vec     `json:"color"`
	Diffuse    float64 `json:"diffuse"`
	Specular   float64 `json:"specular,omitempty"`
	Reflective float64 `json:"reflective,omitempty"`
	Refractive float64 `json:"refractive,omitempty"`
	IOR        float64 `json:"ior,omitempty"`
	Texture    string  `json:"texture,omitempty"` // image path relative to the scene file
}

type SphereCfg struct {
	Name     string      `json:"name,omitempty"`
	Center   Vec         `json:"center"`
	Radius   float64     `json:"radius"`
	Material MaterialCfg `json:"material"`
}

type PlaneCfg struct {
	Name     string      `json:"name,omitempty"`
	Point    Vec         `json:"point"`
	Normal   Vec         `json:"normal"`
	TexScale float64     `json:"texScale,omitempty"`
	Material MaterialCfg `json:"material"`
}

// PatchCfg is a bicubic Bezier patch; Control lists the 16 points row by row
type PatchCfg struct {
	Name     string      `json:"name,omitempty"`
	Offset   Vec         `json:"offset,omitempty"`
	Control  [16]Vec     `json:"control"`
	Material MaterialCfg `json:"material"`
}

type LightCfg struct {
	Type      string  `json:"type"` // "point" or "sphere"
	Position  Vec     `json:"position"`
	Radius    float64 `json:"radius,omitempty"`
	Color     Vec     `json:"color"`
	Intensity float64 `json:"intensity,omitempty"` // multiplies color, defaults to 1
}

// LoadSceneFile reads and validates a JSON scene description
func LoadSceneFile(path string) (*SceneFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	var sf SceneFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse scene file %s: %w", path, err)
	}
	sf.BaseDir = filepath.Dir(path)
	if sf.Name == "" {
		sf.Name = filepath.Base(path)
	}

	if err := sf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scene file %s: %w", path, err)
	}
	return &sf, nil
}

// Validate checks the parts of the description that can't be defaulted
func (sf *SceneFile) Validate() error {
	if sf.Width <= 0 || sf.Height <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", sf.Width, sf.Height)
	}
	if sf.Camera.VFov <= 0 || sf.Camera.VFov >= 180 {
		return fmt.Errorf("camera vfov must be in (0, 180), got %g", sf.Camera.VFov)
	}
	for i, s := range sf.Spheres {
		if s.Radius <= 0 {
			return fmt.Errorf("sphere %d: radius must be positive, got %g", i, s.Radius)
		}
	}
	for i, p := range sf.Planes {
		if p.Normal.Vec3().IsZero() {
			return fmt.Errorf("plane %d: normal must be non-zero", i)
		}
	}
	for i, l := range sf.Lights {
		switch l.Type {
		case "point":
		case "sphere":
			if l.Radius <= 0 {
				return fmt.Errorf("light %d: sphere light radius must be positive, got %g", i, l.Radius)
			}
		default:
			return fmt.Errorf("light %d: unknown type %q", i, l.Type)
		}
	}
	return nil
}

// TexturePath resolves a texture reference against the scene file's directory
func (sf *SceneFile) TexturePath(name string) string {
	if filepath.IsAbs(name) || sf.BaseDir == "" {
		return name
	}
	return filepath.Join(sf.BaseDir, name)
}

// EmittedColor returns the light color scaled by its intensity
func (l LightCfg) EmittedColor() core.Vec3 {
	intensity := l.Intensity
	if intensity == 0 {
		intensity = 1
	}
	return l.Color.Vec3().Multiply(intensity)
}
