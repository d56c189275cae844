package server

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
	"github.com/df07/go-progressive-photonmapper/pkg/renderer"
	"github.com/df07/go-progressive-photonmapper/pkg/scene"
)

// Server handles web requests for the progressive photon mapper
type Server struct {
	port       int
	scenesDir  string
	textureDir string
	echo       *echo.Echo
	registry   *prometheus.Registry
	metrics    *renderer.Metrics

	mu     sync.Mutex
	latest *latestRender // most recent round of the most recent render
}

// latestRender keeps the last streamed round for the snapshot and inspect endpoints
type latestRender struct {
	png    []byte
	round  int
	mapper *renderer.PhotonMapper
	scene  *scene.Scene
	done   bool // the render finished and its spatial index is no longer written
}

// NewServer creates a new web server. Scene files are listed from scenesDir
// and the default scene looks for textures in textureDir.
func NewServer(port int, scenesDir, textureDir string) *Server {
	registry := prometheus.NewRegistry()
	s := &Server{
		port:       port,
		scenesDir:  scenesDir,
		textureDir: textureDir,
		echo:       echo.New(),
		registry:   registry,
		metrics:    renderer.NewMetrics(registry),
	}
	s.echo.HideBanner = true
	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/api/health", s.handleHealth)
	e.GET("/api/scenes", s.handleScenes)
	e.GET("/api/scene-config", s.handleSceneConfig)
	e.GET("/api/render", s.handleRender)
	e.GET("/api/latest.png", s.handleLatest)
	e.GET("/api/inspect", s.handleInspect)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	// Serve static files
	e.Static("/", "static")
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("Starting web server on http://localhost%s", addr)
	s.echo.Use(middleware.Logger())
	return s.echo.Start(addr)
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists the built-in scenes and the scene files
func (s *Server) handleScenes(c echo.Context) error {
	response, err := scene.ListAllScenes(s.scenesDir)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, response)
}

// handleSceneConfig returns the default configuration for a scene
func (s *Server) handleSceneConfig(c echo.Context) error {
	sceneName := c.QueryParam("scene")
	if sceneName == "" {
		sceneName = "cornell"
	}

	sceneObj, err := s.createScene(sceneName, nil)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	config := sceneObj.RenderConfig
	return c.JSON(http.StatusOK, map[string]interface{}{
		"scene":  sceneName,
		"width":  sceneObj.CameraConfig.Width,
		"height": sceneObj.CameraConfig.Height,
		"defaults": map[string]interface{}{
			"maxDepth":        config.MaxDepth,
			"initialRadius":   config.InitialRadius,
			"alpha":           config.Alpha,
			"photonBudget":    config.PhotonBudget,
			"rounds":          config.Rounds,
			"irradianceScale": config.IrradianceScale,
			"gamma":           config.Gamma,
		},
		"limits": map[string]interface{}{
			"width":        map[string]int{"min": 16, "max": 2000},
			"height":       map[string]int{"min": 16, "max": 2000},
			"rounds":       map[string]int{"min": 1, "max": 10000},
			"photonBudget": map[string]int{"min": 1000, "max": 50_000_000},
			"alpha":        map[string]float64{"min": 0.01, "max": 1},
		},
	})
}

// handleLatest returns the most recent round image as PNG
func (s *Server) handleLatest(c echo.Context) error {
	s.mu.Lock()
	latest := s.latest
	s.mu.Unlock()

	if latest == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no render yet"})
	}
	c.Response().Header().Set("X-Render-Round", strconv.Itoa(latest.round))
	return c.Blob(http.StatusOK, "image/png", latest.png)
}

// createScene creates a scene by name. File scenes are looked up in the scenes directory.
func (s *Server) createScene(name string, logger core.Logger, cameraOverrides ...renderer.CameraConfig) (*scene.Scene, error) {
	if logger == nil {
		logger = renderer.NewDefaultLogger()
	}
	files, err := scene.ListFileScenes(s.scenesDir)
	if err != nil {
		return nil, err
	}
	for _, info := range files {
		if info.ID == name {
			return scene.NewFileScene(info.FilePath, cameraOverrides...)
		}
	}
	return scene.NewByName(name, s.textureDir, logger, cameraOverrides...)
}

// encodePNG converts an image to PNG bytes
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %g and %g, got: %g", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}
