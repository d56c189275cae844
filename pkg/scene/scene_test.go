package scene

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
	"github.com/df07/go-progressive-photonmapper/pkg/geometry"
	"github.com/df07/go-progressive-photonmapper/pkg/loaders"
	"github.com/df07/go-progressive-photonmapper/pkg/renderer"
)

// MockLogger collects log lines
type MockLogger struct {
	messages []string
}

func (l *MockLogger) Printf(format string, args ...interface{}) {
	l.messages = append(l.messages, format)
}

const ballScene = `{
  "name": "ball",
  "width": 40,
  "height": 30,
  "camera": {"center": [0, 1, 6], "lookAt": [0, 1, 0], "vfov": 40},
  "render": {"rounds": 4, "initialRadius": 0.3},
  "spheres": [{"center": [0, 1, 0], "radius": 1, "material": {"color": [1, 1, 1], "diffuse": 1}}],
  "planes": [{"point": [0, 0, 0], "normal": [0, 1, 0], "texScale": 5, "material": {"color": [1, 1, 1], "diffuse": 0.5, "reflective": 0.5}}],
  "lights": [{"type": "sphere", "position": [0, 5, 0], "radius": 0.5, "color": [1, 1, 1], "intensity": 3}]
}`

func writeSceneFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestBuiltInScenes(t *testing.T) {
	for _, info := range BuiltInScenes {
		t.Run(info.ID, func(t *testing.T) {
			s, err := NewByName(info.ID, "", &MockLogger{})
			if err != nil {
				t.Fatalf("Failed to create scene: %v", err)
			}
			if s.Name != info.ID {
				t.Errorf("Expected name %q, got %q", info.ID, s.Name)
			}
			if len(s.Objects) == 0 || len(s.Lights) == 0 {
				t.Errorf("Expected objects and lights, got %d and %d", len(s.Objects), len(s.Lights))
			}
			if err := s.Validate(); err != nil {
				t.Errorf("Expected valid materials, got %v", err)
			}
			if err := s.RenderConfig.Validate(); err != nil {
				t.Errorf("Expected a valid render config, got %v", err)
			}
		})
	}
}

func TestNewByName_Unknown(t *testing.T) {
	if _, err := NewByName("nope", "", nil); err == nil {
		t.Error("Expected an error for an unknown scene")
	}
}

func TestNewByName_CameraOverride(t *testing.T) {
	s, err := NewByName("cornell", "", nil, renderer.CameraConfig{Width: 64, Height: 48})
	if err != nil {
		t.Fatal(err)
	}
	if s.Camera.Width() != 64 || s.Camera.Height() != 48 {
		t.Errorf("Expected 64x48, got %dx%d", s.Camera.Width(), s.Camera.Height())
	}
	if s.CameraConfig.VFov != 30 {
		t.Errorf("Expected the default vfov to survive, got %g", s.CameraConfig.VFov)
	}
}

func TestSingleSphereLightAtCamera(t *testing.T) {
	s := NewSingleSphereScene(renderer.CameraConfig{Center: core.NewVec3(0, 0, 20)})
	if got := s.Lights[0].Position(); got != core.NewVec3(0, 0, 20) {
		t.Errorf("Expected the light to follow the camera, got %v", got)
	}
}

func TestSingleSphere_DirectPassIsPhong(t *testing.T) {
	// Odd size puts the center pixel exactly on the optical axis
	s := NewSingleSphereScene(renderer.CameraConfig{Width: 21, Height: 21})
	pm := renderer.NewPhotonMapper(s, s.RenderConfig.Merge(renderer.Config{NumWorkers: 1}), &MockLogger{}, nil)
	defer pm.Close()

	direct, err := pm.TracePass(context.Background())
	if err != nil {
		t.Fatalf("TracePass failed: %v", err)
	}

	// Normal incidence with the light at the camera: light color times sphere color
	want := core.NewVec3(0.8, 0.3, 0.2)
	if got := direct.At(10, 10); got.Subtract(want).Length() > 1e-9 {
		t.Errorf("Expected %v at the center, got %v", want, got)
	}
	if got := direct.At(0, 0); !got.IsZero() {
		t.Errorf("Expected black background in the corner, got %v", got)
	}
}

func TestDefaultScene_MissingTexturesLogged(t *testing.T) {
	logger := &MockLogger{}
	s := NewDefaultScene(t.TempDir(), logger)
	if len(logger.messages) != 5 {
		t.Errorf("Expected 5 missing texture messages, got %d", len(logger.messages))
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Expected a valid scene without textures, got %v", err)
	}

	quiet := &MockLogger{}
	NewDefaultScene("", quiet)
	if len(quiet.messages) != 0 {
		t.Errorf("Expected no messages without a texture dir, got %d", len(quiet.messages))
	}
}

func TestDefaultScene_BezierPatches(t *testing.T) {
	s := NewDefaultScene("", nil)

	var patches []*geometry.BezierPatch
	for _, obj := range s.Objects {
		if patch, ok := obj.(*geometry.BezierPatch); ok {
			patches = append(patches, patch)
		}
	}
	if len(patches) != 5 {
		t.Fatalf("Expected 5 Bezier patches, got %d", len(patches))
	}

	// A ray dropped onto the middle of each patch finds the surface
	for _, patch := range patches {
		target := patch.Point(0.5, 0.5)
		ray := core.NewRay(target.Add(core.NewVec3(0, 50, 0)), core.NewVec3(0, -1, 0))
		hit, ok := patch.Intersect(ray, 1000)
		if !ok {
			t.Errorf("%s: expected a hit above %v", patch.Name, target)
			continue
		}
		if hit.T > 50+1e-5 {
			t.Errorf("%s: expected the hit no further than the target, got t=%f", patch.Name, hit.T)
		}
	}

	// The second leaf is the first one turned by 30 degrees
	if patches[0].Control[0].Y != patches[1].Control[0].Y-4 {
		t.Errorf("Expected leaf2 raised by 4, got %v and %v", patches[0].Control[0], patches[1].Control[0])
	}
}

const patchScene = `{
  "width": 20,
  "height": 20,
  "camera": {"center": [1.5, 5, 1.5], "lookAt": [1.5, 0, 1.6], "vfov": 40},
  "patches": [{
    "name": "sheet",
    "offset": [0, 1, 0],
    "control": [[0, 0, 0], [1, 0, 0], [2, 0, 0], [3, 0, 0],
                [0, 0, 1], [1, 0, 1], [2, 0, 1], [3, 0, 1],
                [0, 0, 2], [1, 0, 2], [2, 0, 2], [3, 0, 2],
                [0, 0, 3], [1, 0, 3], [2, 0, 3], [3, 0, 3]],
    "material": {"color": [1, 1, 1], "diffuse": 1}
  }],
  "lights": [{"type": "point", "position": [1.5, 4, 1.5], "color": [1, 1, 1]}]
}`

func TestFileScene_Patch(t *testing.T) {
	path := writeSceneFile(t, t.TempDir(), "patch.json", patchScene)
	s, err := NewFileScene(path)
	if err != nil {
		t.Fatalf("Failed to load scene: %v", err)
	}
	if len(s.Objects) != 1 {
		t.Fatalf("Expected 1 object, got %d", len(s.Objects))
	}
	patch, ok := s.Objects[0].(*geometry.BezierPatch)
	if !ok {
		t.Fatalf("Expected a Bezier patch, got %T", s.Objects[0])
	}
	if patch.Name != "sheet" || patch.Control[15] != core.NewVec3(3, 1, 3) {
		t.Errorf("Expected the offset applied, got %s %v", patch.Name, patch.Control[15])
	}

	hit, ok := patch.Intersect(core.NewRay(core.NewVec3(1, 5, 2), core.NewVec3(0, -1, 0)), 100)
	if !ok || hit.T < 4-1e-6 || hit.T > 4+1e-6 {
		t.Errorf("Expected a hit at t=4, got %+v", hit)
	}
}

func TestFileScene(t *testing.T) {
	path := writeSceneFile(t, t.TempDir(), "ball.json", ballScene)

	s, err := NewByName(path, "", nil)
	if err != nil {
		t.Fatalf("Failed to load scene: %v", err)
	}
	if s.Camera.Width() != 40 || s.Camera.Height() != 30 {
		t.Errorf("Expected 40x30, got %dx%d", s.Camera.Width(), s.Camera.Height())
	}
	if s.RenderConfig.Rounds != 4 || s.RenderConfig.InitialRadius != 0.3 {
		t.Errorf("Expected render overrides, got %+v", s.RenderConfig)
	}
	if s.RenderConfig.Alpha != renderer.DefaultConfig().Alpha {
		t.Errorf("Expected default alpha, got %g", s.RenderConfig.Alpha)
	}
	if len(s.Objects) != 2 || len(s.Lights) != 1 {
		t.Fatalf("Expected 2 objects and 1 light, got %d and %d", len(s.Objects), len(s.Lights))
	}
	if got := s.Lights[0].Color(); got != core.NewVec3(3, 3, 3) {
		t.Errorf("Expected intensity 3, got %v", got)
	}
	if s.CameraConfig.Up != core.NewVec3(0, 1, 0) {
		t.Errorf("Expected default up, got %v", s.CameraConfig.Up)
	}
}

func TestFromSceneFile_Errors(t *testing.T) {
	base := func() *loaders.SceneFile {
		return &loaders.SceneFile{
			Width:  10,
			Height: 10,
			Camera: loaders.CameraCfg{LookAt: loaders.Vec{0, 0, -1}, VFov: 40},
		}
	}

	overfull := base()
	overfull.Spheres = []loaders.SphereCfg{{Radius: 1, Material: loaders.MaterialCfg{Diffuse: 0.8, Reflective: 0.5}}}
	if _, err := FromSceneFile(overfull); err == nil {
		t.Error("Expected an error for coefficients over 1")
	}

	missingTexture := base()
	missingTexture.BaseDir = t.TempDir()
	missingTexture.Planes = []loaders.PlaneCfg{{Normal: loaders.Vec{0, 1, 0}, Material: loaders.MaterialCfg{Diffuse: 1, Texture: "missing.png"}}}
	if _, err := FromSceneFile(missingTexture); err == nil {
		t.Error("Expected an error for a missing texture")
	}
}

func TestListAllScenes(t *testing.T) {
	dir := t.TempDir()
	writeSceneFile(t, dir, "ball-on-floor.json", ballScene)
	writeSceneFile(t, dir, "broken.json", `{"width": 0}`)
	writeSceneFile(t, dir, "notes.txt", "ignored")

	response, err := ListAllScenes(dir)
	if err != nil {
		t.Fatalf("ListAllScenes failed: %v", err)
	}
	if len(response.Groups) != 2 {
		t.Fatalf("Expected built-in and file groups, got %d", len(response.Groups))
	}
	if response.Groups[0].Name != builtInGroup || len(response.Groups[0].Scenes) != len(BuiltInScenes) {
		t.Errorf("Expected the built-in group first, got %+v", response.Groups[0])
	}

	files := response.Groups[1].Scenes
	if len(files) != 1 {
		t.Fatalf("Expected only the valid scene file, got %d", len(files))
	}
	if files[0].ID != "ball-on-floor" || files[0].DisplayName != "Ball On Floor" || files[0].Type != "file" {
		t.Errorf("Unexpected scene info %+v", files[0])
	}
}

func TestListAllScenes_MissingDir(t *testing.T) {
	response, err := ListAllScenes(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("Expected no error for a missing directory, got %v", err)
	}
	if len(response.Groups) != 1 {
		t.Errorf("Expected only built-in scenes, got %d groups", len(response.Groups))
	}
}

func TestMergeCameraConfig(t *testing.T) {
	base := renderer.CameraConfig{
		Center: core.NewVec3(1, 2, 3),
		LookAt: core.NewVec3(0, 0, 0),
		Width:  100,
		Height: 50,
		VFov:   45,
	}

	merged := MergeCameraConfig(base, renderer.CameraConfig{Width: 20, Aperture: 0.1})
	if merged.Width != 20 || merged.Height != 50 || merged.Aperture != 0.1 || merged.Center != base.Center {
		t.Errorf("Unexpected merge result %+v", merged)
	}
	if MergeCameraConfig(base, renderer.CameraConfig{}) != base {
		t.Error("Expected an empty override to change nothing")
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"cornell-empty": "Cornell Empty",
		"caustic_glass": "Caustic Glass",
		"single":        "Single",
		"a--b":          "A B",
	}
	for in, want := range tests {
		if got := titleCase(in); got != want {
			t.Errorf("titleCase(%q): expected %q, got %q", in, want, got)
		}
	}
}
