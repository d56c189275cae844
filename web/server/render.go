package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
	"github.com/df07/go-progressive-photonmapper/pkg/renderer"
	"github.com/df07/go-progressive-photonmapper/pkg/scene"
)

// RenderRequest holds the parsed parameters of a render or inspect request.
// Zero values keep the scene's own settings.
type RenderRequest struct {
	Scene           string
	Width           int
	Height          int
	Rounds          int
	PhotonBudget    int
	Alpha           float64
	InitialRadius   float64
	IrradianceScale float64
	MaxDepth        int
	Seed            int64
}

// cameraOverride returns the camera settings requested on top of the scene's
func (r *RenderRequest) cameraOverride() renderer.CameraConfig {
	return renderer.CameraConfig{Width: r.Width, Height: r.Height}
}

// renderConfig returns the render settings requested on top of the scene's
func (r *RenderRequest) renderConfig() renderer.Config {
	return renderer.Config{
		MaxDepth:        r.MaxDepth,
		InitialRadius:   r.InitialRadius,
		Alpha:           r.Alpha,
		PhotonBudget:    r.PhotonBudget,
		Rounds:          r.Rounds,
		IrradianceScale: r.IrradianceScale,
		Seed:            r.Seed,
	}
}

// RoundUpdate is sent via SSE after the ray-tracing pass (round 0) and after
// every photon round
type RoundUpdate struct {
	Round          int     `json:"round"`
	TotalRounds    int     `json:"totalRounds"`
	ImageData      string  `json:"imageData"` // Base64 encoded PNG of the whole image
	ElapsedMs      int64   `json:"elapsedMs"`
	RoundMs        int64   `json:"roundMs"`
	PhotonsEmitted int     `json:"photonsEmitted"`
	Deposits       int64   `json:"deposits"`
	MeanRadius2    float64 `json:"meanRadius2"`
	MeanLuminance  float64 `json:"meanLuminance"`
	HitPoints      int     `json:"hitPoints"`
	ObjectCount    int     `json:"objectCount"`
	IsLast         bool    `json:"isLast"`
}

// SSEEvent represents a unified SSE event for thread-safe writing
type SSEEvent struct {
	Type string `json:"type"` // "console", "round", "error", "complete"
	Data string `json:"data"` // JSON-encoded data
}

// handleRender streams a progressive photon-mapped render via SSE
func (s *Server) handleRender(c echo.Context) error {
	req, err := s.parseRenderRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid request: %v", err)})
	}

	w := c.Response()
	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// Single writer: events are produced on a goroutine and written here
	sseEventChan := make(chan SSEEvent, 100)
	go func() {
		defer close(sseEventChan)
		s.produceRenderEvents(ctx, sseEventChan, req)
	}()

	s.writeSSEEvents(ctx, w, sseEventChan)
	return nil
}

// setSSEHeaders sets the required headers for Server-Sent Events
func setSSEHeaders(w *echo.Response) {
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// setupConsoleLogging creates console channel and web logger for a render
func (s *Server) setupConsoleLogging() (chan ConsoleMessage, core.Logger) {
	consoleChan := make(chan ConsoleMessage, 50)
	renderID := fmt.Sprintf("render-%d", time.Now().UnixNano())
	webLogger := NewWebLogger(renderID, consoleChan)
	return consoleChan, webLogger
}

// writeSSEEvents writes events until the channel is closed or the client goes away
func (s *Server) writeSSEEvents(ctx context.Context, w *echo.Response, sseEventChan <-chan SSEEvent) {
	for {
		select {
		case event, ok := <-sseEventChan:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
				// Client disconnected during write
				return
			}
			w.Flush()

		case <-ctx.Done():
			return
		}
	}
}

// streamConsoleMessages forwards console messages until done is closed
func (s *Server) streamConsoleMessages(ctx context.Context, done <-chan struct{}, consoleChan <-chan ConsoleMessage, sseEventChan chan<- SSEEvent) {
	for {
		select {
		case consoleMsg := <-consoleChan:
			data, err := json.Marshal(consoleMsg)
			if err != nil {
				log.Printf("Error marshaling console message: %v", err)
				continue
			}

			select {
			case sseEventChan <- SSEEvent{Type: "console", Data: string(data)}:
			case <-ctx.Done():
				return
			default:
				// Channel full, skip message to avoid blocking
			}

		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// produceRenderEvents runs one render and turns its rounds into SSE events
func (s *Server) produceRenderEvents(ctx context.Context, sseEventChan chan<- SSEEvent, req *RenderRequest) {
	consoleChan, webLogger := s.setupConsoleLogging()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.streamConsoleMessages(ctx, done, consoleChan, sseEventChan)
	}()
	// The console streamer must stop before sseEventChan is closed
	defer wg.Wait()
	defer close(done)

	sceneObj, err := s.createScene(req.Scene, webLogger, req.cameraOverride())
	if err != nil {
		s.handleError(ctx, sseEventChan, err.Error())
		return
	}

	config := sceneObj.RenderConfig.Merge(req.renderConfig())
	mapper := renderer.NewPhotonMapper(sceneObj, config, webLogger, s.metrics)

	startTime := time.Now()
	roundChan, errChan := mapper.RenderProgressive(ctx)
	s.handleRenderingEvents(ctx, sseEventChan, roundChan, errChan, mapper, sceneObj, startTime)
}

// handleRenderingEvents processes the main rendering event loop
func (s *Server) handleRenderingEvents(ctx context.Context, sseEventChan chan<- SSEEvent,
	roundChan <-chan renderer.RoundResult, errChan <-chan error,
	mapper *renderer.PhotonMapper, sceneObj *scene.Scene, startTime time.Time) {

	for roundChan != nil || errChan != nil {
		select {
		case result, ok := <-roundChan:
			if !ok {
				roundChan = nil
				continue
			}
			s.handleRoundComplete(ctx, sseEventChan, result, mapper, sceneObj, startTime)

		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			if err != nil {
				s.handleError(ctx, sseEventChan, fmt.Sprintf("Rendering failed: %v", err))
				return
			}

		case <-ctx.Done():
			// Client disconnected
			return
		}
	}

	// The worker pool has stopped once both channels are closed
	s.mu.Lock()
	if s.latest != nil && s.latest.mapper == mapper {
		s.latest.done = true
	}
	s.mu.Unlock()

	select {
	case sseEventChan <- SSEEvent{Type: "complete", Data: "Rendering completed"}:
	case <-ctx.Done():
	}
}

// handleRoundComplete encodes a round image, records it as the latest render
// and sends the round event
func (s *Server) handleRoundComplete(ctx context.Context, sseEventChan chan<- SSEEvent, result renderer.RoundResult,
	mapper *renderer.PhotonMapper, sceneObj *scene.Scene, startTime time.Time) {

	pngData, err := encodePNG(result.Image)
	if err != nil {
		log.Printf("Error encoding round %d image: %v", result.Round, err)
		return
	}

	s.mu.Lock()
	s.latest = &latestRender{
		png:    pngData,
		round:  result.Round,
		mapper: mapper,
		scene:  sceneObj,
	}
	s.mu.Unlock()

	update := RoundUpdate{
		Round:          result.Round,
		TotalRounds:    mapper.Config().Rounds,
		ImageData:      base64.StdEncoding.EncodeToString(pngData),
		ElapsedMs:      time.Since(startTime).Milliseconds(),
		RoundMs:        result.Stats.Duration.Milliseconds(),
		PhotonsEmitted: result.Stats.PhotonsEmitted,
		Deposits:       result.Stats.Deposits,
		MeanRadius2:    result.Stats.MeanRadius2,
		MeanLuminance:  result.Stats.Frame.MeanLuminance,
		HitPoints:      mapper.TraceStats().HitPoints,
		ObjectCount:    len(sceneObj.Objects),
		IsLast:         result.IsLast,
	}

	data, err := json.Marshal(update)
	if err != nil {
		log.Printf("Error marshaling round update: %v", err)
		return
	}

	select {
	case sseEventChan <- SSEEvent{Type: "round", Data: string(data)}:
	case <-ctx.Done():
	}
}

// parseSceneParams parses the scene name and image size shared by render and inspect
func parseSceneParams(c echo.Context, req *RenderRequest) error {
	values := c.QueryParams()
	req.Scene = values.Get("scene")
	if req.Scene == "" {
		req.Scene = "cornell"
	}

	var err error
	if req.Width, err = parseIntParam(values, "width", 0, 16, 2000); err != nil {
		return err
	}
	if req.Height, err = parseIntParam(values, "height", 0, 16, 2000); err != nil {
		return err
	}
	return nil
}

// parseRenderRequest parses request parameters
func (s *Server) parseRenderRequest(c echo.Context) (*RenderRequest, error) {
	req := &RenderRequest{}
	if err := parseSceneParams(c, req); err != nil {
		return nil, err
	}

	values := c.QueryParams()
	var err error
	if req.Rounds, err = parseIntParam(values, "rounds", 0, 1, 10000); err != nil {
		return nil, err
	}
	if req.PhotonBudget, err = parseIntParam(values, "photons", 0, 1000, 50_000_000); err != nil {
		return nil, err
	}
	if req.MaxDepth, err = parseIntParam(values, "maxDepth", 0, 1, 64); err != nil {
		return nil, err
	}
	seed, err := parseIntParam(values, "seed", 0, 1, 1<<31-1)
	if err != nil {
		return nil, err
	}
	req.Seed = int64(seed)
	if req.Alpha, err = parseFloatParam(values, "alpha", 0, 0.01, 1.0); err != nil {
		return nil, err
	}
	if req.InitialRadius, err = parseFloatParam(values, "radius", 0, 1e-4, 1e4); err != nil {
		return nil, err
	}
	if req.IrradianceScale, err = parseFloatParam(values, "scale", 0, 1e-3, 1e9); err != nil {
		return nil, err
	}

	if req.Width*req.Height > 1024*768 && req.PhotonBudget > 10_000_000 {
		log.Printf("Render warning: Large image with a high photon budget may render slowly")
	}

	return req, nil
}

// handleError sends an error event to the SSE channel
func (s *Server) handleError(ctx context.Context, sseEventChan chan<- SSEEvent, message string) {
	select {
	case sseEventChan <- SSEEvent{Type: "error", Data: message}:
	case <-ctx.Done():
		// Client disconnected, don't block
	}
}
