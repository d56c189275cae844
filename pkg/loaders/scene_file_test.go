package loaders

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

const boxScene = `{
  "name": "box",
  "width": 64,
  "height": 48,
  "background": [0.1, 0.1, 0.1],
  "camera": {"center": [0, 1, 5], "lookAt": [0, 1, 0], "vfov": 40},
  "render": {"rounds": 3, "photonBudget": 5000, "alpha": 0.7},
  "spheres": [
    {"name": "ball", "center": [0, 1, 0], "radius": 1, "material": {"color": [0.8, 0.8, 0.8], "diffuse": 1}}
  ],
  "planes": [
    {"point": [0, 0, 0], "normal": [0, 1, 0], "material": {"color": [1, 1, 1], "diffuse": 0.5, "texture": "floor.png"}}
  ],
  "lights": [
    {"type": "point", "position": [0, 4, 0], "color": [1, 1, 1], "intensity": 2},
    {"type": "sphere", "position": [2, 4, 0], "radius": 0.5, "color": [1, 0.5, 0.5]}
  ]
}`

func writeScene(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write scene: %v", err)
	}
	return path
}

func TestLoadSceneFile(t *testing.T) {
	path := writeScene(t, boxScene)
	sf, err := LoadSceneFile(path)
	if err != nil {
		t.Fatalf("Failed to load scene: %v", err)
	}

	if sf.Name != "box" || sf.Width != 64 || sf.Height != 48 {
		t.Errorf("Unexpected header: %s %dx%d", sf.Name, sf.Width, sf.Height)
	}
	if sf.Render.Rounds != 3 || sf.Render.PhotonBudget != 5000 || sf.Render.Alpha != 0.7 {
		t.Errorf("Unexpected render overrides: %+v", sf.Render)
	}
	if len(sf.Spheres) != 1 || len(sf.Planes) != 1 || len(sf.Lights) != 2 {
		t.Fatalf("Expected 1 sphere, 1 plane, 2 lights, got %d, %d, %d", len(sf.Spheres), len(sf.Planes), len(sf.Lights))
	}
	if got := sf.Lights[0].EmittedColor(); got != core.NewVec3(2, 2, 2) {
		t.Errorf("Expected intensity to scale color, got %v", got)
	}
	if got := sf.Lights[1].EmittedColor(); got != core.NewVec3(1, 0.5, 0.5) {
		t.Errorf("Expected default intensity 1, got %v", got)
	}
	if got := sf.TexturePath(sf.Planes[0].Material.Texture); got != filepath.Join(filepath.Dir(path), "floor.png") {
		t.Errorf("Expected texture relative to the scene file, got %s", got)
	}
}

func TestLoadSceneFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"bad json", `{"width": `, "parse"},
		{"zero size", strings.Replace(boxScene, `"width": 64`, `"width": 0`, 1), "image size"},
		{"bad vfov", strings.Replace(boxScene, `"vfov": 40`, `"vfov": 190`, 1), "vfov"},
		{"negative radius", strings.Replace(boxScene, `"radius": 1,`, `"radius": -1,`, 1), "radius"},
		{"zero plane normal", strings.Replace(boxScene, `"normal": [0, 1, 0]`, `"normal": [0, 0, 0]`, 1), "normal"},
		{"unknown light", strings.Replace(boxScene, `"type": "point"`, `"type": "spot"`, 1), "unknown type"},
		{"sphere light without radius", strings.Replace(boxScene, `"radius": 0.5,`, ``, 1), "sphere light radius"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSceneFile(writeScene(t, tt.content))
			if err == nil {
				t.Fatal("Expected error, got none")
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("Expected error containing %q, got %v", tt.errText, err)
			}
		})
	}
}

func TestLoadSceneFile_Missing(t *testing.T) {
	if _, err := LoadSceneFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for a missing file")
	}
}

func TestTexturePath_Absolute(t *testing.T) {
	sf := &SceneFile{BaseDir: "scenes"}
	abs, _ := filepath.Abs("floor.png")
	if got := sf.TexturePath(abs); got != abs {
		t.Errorf("Expected absolute path unchanged, got %s", got)
	}
}
