package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
	"github.com/df07/go-progressive-photonmapper/pkg/loaders"
	"github.com/df07/go-progressive-photonmapper/pkg/renderer"
)

// SceneInfo represents a discovered scene with its metadata
type SceneInfo struct {
	ID          string `json:"id"`          // Unique identifier
	DisplayName string `json:"displayName"` // UI display name
	Description string `json:"description"` // Optional description
	Group       string `json:"group"`       // Grouping category
	Type        string `json:"type"`        // "builtin" or "file"
	FilePath    string `json:"filePath"`    // Path to JSON file (file type only)
}

// SceneGroup represents a group of related scenes
type SceneGroup struct {
	Name   string      `json:"name"`
	Scenes []SceneInfo `json:"scenes"`
}

// ScenesResponse represents the complete response for /api/scenes
type ScenesResponse struct {
	Groups []SceneGroup `json:"groups"`
}

const builtInGroup = "Built-in Scenes"

// BuiltInScenes lists the scenes that need no files
var BuiltInScenes = []SceneInfo{
	{
		ID:          "default",
		DisplayName: "Default Scene",
		Description: "Room with glass, mirror and glossy spheres lit by four point lights",
		Group:       builtInGroup,
		Type:        "builtin",
	},
	{
		ID:          "cornell",
		DisplayName: "Cornell Box",
		Description: "Sphere-walled Cornell box with a mirror ball and a glass ball",
		Group:       builtInGroup,
		Type:        "builtin",
	},
	{
		ID:          "single-sphere",
		DisplayName: "Single Sphere",
		Description: "One diffuse sphere lit from the camera",
		Group:       builtInGroup,
		Type:        "builtin",
	},
}

// NewByName creates a built-in scene, or loads a JSON scene when name ends in .json
func NewByName(name, textureDir string, logger core.Logger, cameraOverrides ...renderer.CameraConfig) (*Scene, error) {
	if strings.HasSuffix(name, ".json") {
		return NewFileScene(name, cameraOverrides...)
	}
	switch name {
	case "default":
		return NewDefaultScene(textureDir, logger, cameraOverrides...), nil
	case "cornell":
		return NewCornellScene(cameraOverrides...), nil
	case "single-sphere":
		return NewSingleSphereScene(cameraOverrides...), nil
	}
	return nil, fmt.Errorf("unknown scene %q", name)
}

// ListFileScenes scans scenesDir for JSON scene descriptions. A missing
// directory yields an empty list.
func ListFileScenes(scenesDir string) ([]SceneInfo, error) {
	if _, err := os.Stat(scenesDir); err != nil {
		return []SceneInfo{}, nil
	}

	files, err := filepath.Glob(filepath.Join(scenesDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenes directory: %w", err)
	}

	var scenes []SceneInfo
	for _, file := range files {
		sf, err := loaders.LoadSceneFile(file)
		if err != nil {
			// Skip files that aren't valid scenes
			continue
		}
		base := strings.TrimSuffix(filepath.Base(file), ".json")
		scenes = append(scenes, SceneInfo{
			ID:          base,
			DisplayName: titleCase(base),
			Description: fmt.Sprintf("%dx%d, %d spheres, %d planes, %d lights", sf.Width, sf.Height, len(sf.Spheres), len(sf.Planes), len(sf.Lights)),
			Group:       "Scene Files",
			Type:        "file",
			FilePath:    file,
		})
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].ID < scenes[j].ID })
	return scenes, nil
}

// ListAllScenes returns the built-in scenes followed by the scene files in scenesDir
func ListAllScenes(scenesDir string) (ScenesResponse, error) {
	var response ScenesResponse

	fileScenes, err := ListFileScenes(scenesDir)
	if err != nil {
		return response, err
	}

	groupMap := make(map[string][]SceneInfo)
	for _, s := range append(append([]SceneInfo{}, BuiltInScenes...), fileScenes...) {
		groupMap[s.Group] = append(groupMap[s.Group], s)
	}

	// Built-in first, then alphabetical
	var groupNames []string
	for groupName := range groupMap {
		if groupName != builtInGroup {
			groupNames = append(groupNames, groupName)
		}
	}
	sort.Strings(groupNames)

	response.Groups = append(response.Groups, SceneGroup{Name: builtInGroup, Scenes: groupMap[builtInGroup]})
	for _, groupName := range groupNames {
		response.Groups = append(response.Groups, SceneGroup{Name: groupName, Scenes: groupMap[groupName]})
	}
	return response, nil
}

// titleCase converts a filename-style string to title case
// e.g., "cornell-empty" -> "Cornell Empty"
func titleCase(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
