package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
	"github.com/df07/go-progressive-photonmapper/pkg/geometry"
	"github.com/df07/go-progressive-photonmapper/pkg/renderer"
	"github.com/df07/go-progressive-photonmapper/pkg/scene"
)

// InspectResponse represents the JSON response for pixel inspection
type InspectResponse struct {
	Hit          bool                   `json:"hit"`
	GeometryType string                 `json:"geometryType"`
	ObjectName   string                 `json:"objectName"`
	Point        [3]float64             `json:"point"`
	Normal       [3]float64             `json:"normal"`
	Distance     float64                `json:"distance"`
	FrontFace    bool                   `json:"frontFace"`
	Properties   map[string]interface{} `json:"properties"`
	HitPoints    []HitPointResponse     `json:"hitPoints,omitempty"`
}

// HitPointResponse describes one HitPoint of the inspected pixel in the latest render
type HitPointResponse struct {
	Position [3]float64 `json:"position"`
	Normal   [3]float64 `json:"normal"`
	Weight   [3]float64 `json:"weight"`
	Radius   float64    `json:"radius"`
	Flux     [3]float64 `json:"flux"`
	Photons  float64    `json:"photons"`
}

func vecArray(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// extractMaterialInfo lists the transport coefficients of a material
func extractMaterialInfo(mat *core.Material) map[string]interface{} {
	properties := map[string]interface{}{
		"color":      vecArray(mat.Color),
		"hex":        fmt.Sprintf("#%02x%02x%02x", int(mat.Color.X*255), int(mat.Color.Y*255), int(mat.Color.Z*255)),
		"diffuse":    mat.Diffuse,
		"specular":   mat.Specular,
		"reflective": mat.Reflective,
		"refractive": mat.Refractive,
		"textured":   mat.Texture != nil,
	}
	if mat.Refractive > 0 {
		properties["ior"] = mat.IOR
	}
	return properties
}

// extractGeometryInfo extracts detailed geometry information
func extractGeometryInfo(obj core.Object) (string, string, map[string]interface{}) {
	properties := make(map[string]interface{})

	switch geom := obj.(type) {
	case *geometry.Sphere:
		properties["center"] = vecArray(geom.Center)
		properties["radius"] = geom.Radius
		return "sphere", geom.Name, properties

	case *geometry.Plane:
		properties["point"] = vecArray(geom.Point)
		properties["normal"] = vecArray(geom.Normal)
		properties["texScale"] = geom.TexScale
		return "plane", geom.Name, properties

	default:
		return "unknown", "", properties
	}
}

// InspectResult contains the first object hit by an inspection ray
type InspectResult struct {
	Hit          bool
	Object       core.Object
	Intersection core.Intersection
}

// inspectPixel casts the pinhole ray through the pixel center and returns the
// first object hit
func inspectPixel(sceneObj *scene.Scene, pixelX, pixelY int) InspectResult {
	camera := sceneObj.GetCamera()
	ray := core.NewRay(camera.Origin(), camera.Ray(float64(pixelY)+0.5, float64(pixelX)+0.5))

	result := InspectResult{}
	tMax := math.Inf(1)
	for _, obj := range sceneObj.GetObjects() {
		if hit, ok := obj.Intersect(ray, tMax); ok {
			tMax = hit.T
			result = InspectResult{Hit: true, Object: obj, Intersection: hit}
		}
	}
	return result
}

// latestHitPoints returns the HitPoints of a pixel when the latest finished
// render used the same scene and image size
func (s *Server) latestHitPoints(sceneObj *scene.Scene, pixelX, pixelY int) []HitPointResponse {
	s.mu.Lock()
	latest := s.latest
	s.mu.Unlock()

	if latest == nil || !latest.done || latest.scene.Name != sceneObj.Name ||
		latest.scene.CameraConfig.Width != sceneObj.CameraConfig.Width ||
		latest.scene.CameraConfig.Height != sceneObj.CameraConfig.Height {
		return nil
	}

	var hitPoints []HitPointResponse
	for _, info := range latest.mapper.InspectPixel(pixelX, pixelY) {
		hitPoints = append(hitPoints, hitPointResponse(info))
	}
	return hitPoints
}

func hitPointResponse(info renderer.HitPointInfo) HitPointResponse {
	return HitPointResponse{
		Position: vecArray(info.Position),
		Normal:   vecArray(info.Normal),
		Weight:   vecArray(info.Weight),
		Radius:   math.Sqrt(info.R2),
		Flux:     vecArray(info.Phi),
		Photons:  info.NAccum,
	}
}

// handleInspect handles ray casting inspection requests
func (s *Server) handleInspect(c echo.Context) error {
	req := &RenderRequest{}
	if err := parseSceneParams(c, req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid scene parameters: " + err.Error()})
	}

	pixelX, err := strconv.Atoi(c.QueryParam("x"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid x coordinate"})
	}
	pixelY, err := strconv.Atoi(c.QueryParam("y"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid y coordinate"})
	}

	sceneObj, err := s.createScene(req.Scene, nil, req.cameraOverride())
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	width, height := sceneObj.CameraConfig.Width, sceneObj.CameraConfig.Height
	if pixelX < 0 || pixelX >= width || pixelY < 0 || pixelY >= height {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Pixel coordinates out of bounds"})
	}

	result := inspectPixel(sceneObj, pixelX, pixelY)
	if !result.Hit {
		return c.JSON(http.StatusOK, InspectResponse{Hit: false})
	}

	geometryType, name, geometryProps := extractGeometryInfo(result.Object)
	response := InspectResponse{
		Hit:          true,
		GeometryType: geometryType,
		ObjectName:   name,
		Point:        vecArray(result.Intersection.Point),
		Normal:       vecArray(result.Intersection.Normal),
		Distance:     result.Intersection.T,
		FrontFace:    result.Intersection.Side == core.Outside,
		Properties: map[string]interface{}{
			"material": extractMaterialInfo(result.Object.Material()),
			"geometry": geometryProps,
		},
		HitPoints: s.latestHitPoints(sceneObj, pixelX, pixelY),
	}
	return c.JSON(http.StatusOK, response)
}
