package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/floats"

	"github.com/df07/go-progressive-photonmapper/pkg/checkpoint"
	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

var otelTracer = otel.Tracer("github.com/df07/go-progressive-photonmapper/pkg/renderer")

// ErrNotTraced is returned by operations that need the ray-tracing pass first
var ErrNotTraced = errors.New("ray tracing pass has not run")

// DefaultLogger implements core.Logger by writing to stdout
type DefaultLogger struct{}

func (dl *DefaultLogger) Printf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// NewDefaultLogger creates a new default logger
func NewDefaultLogger() core.Logger {
	return &DefaultLogger{}
}

// Sink receives the image after the ray-tracing pass (round 0) and after
// every photon round. The frame is only valid for the duration of the call.
type Sink interface {
	WriteRound(round int, frame *Frame) error
}

// RoundResult contains the result of a single photon round
type RoundResult struct {
	Round  int
	Frame  *Frame // valid until the next round starts
	Image  *image.RGBA
	Stats  RoundStats
	IsLast bool
}

// photonShare is the number of photons one light emits per round and the
// energy each of them carries
type photonShare struct {
	Light  core.Light
	Count  int
	Energy core.Vec3
}

// planPhotons splits budget photons between lights in proportion to their
// power, so a round emits about the same total energy whatever the lights.
// Lights too dim to earn a single photon are skipped.
func planPhotons(lights []core.Light, budget int) []photonShare {
	powers := make([]float64, len(lights))
	for i, light := range lights {
		powers[i] = light.Color().Power()
	}
	if len(powers) == 0 {
		return nil
	}
	total := floats.Sum(powers)
	if total <= 0 || budget <= 0 {
		return nil
	}

	photonPower := total / float64(budget)
	var shares []photonShare
	for i, light := range lights {
		count := int(powers[i] / photonPower)
		if count <= 0 {
			continue
		}
		shares = append(shares, photonShare{
			Light:  light,
			Count:  count,
			Energy: light.Color().Multiply(1.0 / float64(count)),
		})
	}
	return shares
}

// taskSeed derives the seed of one photon task's random stream
func taskSeed(base int64, round, taskID int) int64 {
	return base + int64(round)*1_000_003 + int64(taskID)*7_919 + 42
}

// rowSeed derives the seed of one image row's stream in the ray-tracing pass
func rowSeed(base int64, row int) int64 {
	return taskSeed(base, 0, row)
}

// PhotonMapper runs the ray-tracing pass once and then any number of
// progressive photon rounds over the HitPoints it produced
type PhotonMapper struct {
	scene      Scene
	config     Config
	logger     core.Logger
	metrics    *Metrics
	workerPool *WorkerPool
	poolState  int // 0 idle, 1 running, 2 stopped

	direct     *Frame      // ray-tracing pass colors
	frame      *Frame      // current photon-mapped estimate
	index      *SpatialIndex
	background []BackgroundHitPoint
	round      int // completed photon rounds
	traceStats TraceStats
}

// NewPhotonMapper creates a photon mapper. A nil logger writes to stdout; nil
// metrics are registered on a private registry.
func NewPhotonMapper(scene Scene, config Config, logger core.Logger, metrics *Metrics) *PhotonMapper {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &PhotonMapper{
		scene:      scene,
		config:     config,
		logger:     logger,
		metrics:    metrics,
		workerPool: NewWorkerPool(scene, config.MaxDepth, config.NumWorkers),
	}
}

// Config returns the render configuration
func (pm *PhotonMapper) Config() Config { return pm.config }

// Round returns the number of completed photon rounds
func (pm *PhotonMapper) Round() int { return pm.round }

// Index returns the spatial index, nil before the ray-tracing pass
func (pm *PhotonMapper) Index() *SpatialIndex { return pm.index }

// Direct returns the ray-tracing pass image, nil before the pass
func (pm *PhotonMapper) Direct() *Frame { return pm.direct }

// Background returns the background HitPoints of the ray-tracing pass
func (pm *PhotonMapper) Background() []BackgroundHitPoint { return pm.background }

// TraceStats returns statistics of the ray-tracing pass
func (pm *PhotonMapper) TraceStats() TraceStats { return pm.traceStats }

func (pm *PhotonMapper) startPool() error {
	switch pm.poolState {
	case 0:
		pm.workerPool.Start()
		pm.poolState = 1
	case 2:
		return errPoolClosed
	}
	return nil
}

// Close stops the worker pool. The photon mapper cannot run work afterwards.
func (pm *PhotonMapper) Close() {
	if pm.poolState == 1 {
		pm.workerPool.Stop()
	}
	pm.poolState = 2
}

// TracePass runs the ray-tracing pass over every pixel, freezes the
// resulting HitPoints and builds the spatial index. It returns the direct
// image. Calling it again returns the same image without tracing.
func (pm *PhotonMapper) TracePass(ctx context.Context) (*Frame, error) {
	if pm.direct != nil {
		return pm.direct, nil
	}
	if err := pm.config.Validate(); err != nil {
		return nil, err
	}
	if err := pm.startPool(); err != nil {
		return nil, err
	}

	startTime := time.Now()
	camera := pm.scene.GetCamera()
	width, height := camera.Width(), camera.Height()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}

	ctx, span := otelTracer.Start(ctx, "sppm.RayTracePass",
		trace.WithAttributes(
			attribute.Int("width", width),
			attribute.Int("height", height),
			attribute.Int("lens_samples", camera.LensSamples()),
		),
	)
	defer span.End()

	pm.logger.Printf("Ray tracing %dx%d (%d lens samples, %d workers)...\n",
		width, height, camera.LensSamples(), pm.workerPool.GetNumWorkers())

	frame := NewFrame(width, height)
	rowsPerTask := max(1, height/(pm.workerPool.GetNumWorkers()*4))
	var tasks []Task
	for row := 0; row < height; row += rowsPerTask {
		taskID := len(tasks)
		tasks = append(tasks, Task{
			Kind:     TraceRowsTask,
			TaskID:   taskID,
			Seed:     pm.config.Seed,
			RowStart: row,
			RowEnd:   min(row+rowsPerTask, height),
			Frame:    frame,
		})
	}

	results, err := pm.workerPool.RunAll(tasks)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ray tracing pass: %w", err)
	}

	population := &Population{}
	lensRays := 0
	for _, result := range results {
		population.Append(result.Population)
		lensRays += result.LensRays
	}

	_, buildSpan := otelTracer.Start(ctx, "sppm.BuildIndex",
		trace.WithAttributes(attribute.Int("hitpoints", len(population.HitPoints))))
	buildStart := time.Now()
	pm.index = NewSpatialIndex(population.HitPoints, pm.config.InitialRadius)
	buildSpan.End()

	pm.background = population.Background
	pm.direct = frame
	pm.frame = NewFrame(width, height)
	pm.traceStats = TraceStats{
		Pixels:     width * height,
		LensRays:   lensRays,
		HitPoints:  len(population.HitPoints),
		Background: len(population.Background),
		Duration:   time.Since(startTime),
	}
	pm.metrics.HitPoints.Set(float64(pm.index.Len()))
	pm.metrics.MeanRadius2.Set(pm.index.MeanRadius2())

	pm.logger.Printf("Ray tracing completed in %v: %d hitpoints, %d background, index built in %v\n",
		pm.traceStats.Duration, pm.traceStats.HitPoints, pm.traceStats.Background, time.Since(buildStart))

	return pm.direct, nil
}

// RunRound emits one round of photons, applies the radius update and
// re-estimates the image. It runs the ray-tracing pass first if needed.
func (pm *PhotonMapper) RunRound(ctx context.Context) (RoundResult, error) {
	if pm.poolState == 2 {
		return RoundResult{}, errPoolClosed
	}
	if _, err := pm.TracePass(ctx); err != nil {
		return RoundResult{}, err
	}

	startTime := time.Now()
	round := pm.round + 1
	shares := planPhotons(pm.scene.GetLights(), pm.config.PhotonBudget)

	var tasks []Task
	emitted := 0
	for _, share := range shares {
		for start := 0; start < share.Count; start += pm.config.PhotonsPerTask {
			taskID := len(tasks)
			n := min(pm.config.PhotonsPerTask, share.Count-start)
			tasks = append(tasks, Task{
				Kind:    EmitPhotonsTask,
				TaskID:  taskID,
				Seed:    taskSeed(pm.config.Seed, round, taskID),
				Light:   share.Light,
				Photons: n,
				Energy:  share.Energy,
				Index:   pm.index,
			})
			emitted += n
		}
	}

	_, span := otelTracer.Start(ctx, "sppm.Round",
		trace.WithAttributes(
			attribute.Int("round", round),
			attribute.Int("photons", emitted),
		),
	)
	defer span.End()

	results, err := pm.workerPool.RunAll(tasks)
	if err != nil {
		span.RecordError(err)
		return RoundResult{}, fmt.Errorf("photon round %d: %w", round, err)
	}

	var deposits int64
	for _, result := range results {
		deposits += result.Deposits
	}

	// every photon of the round has been traced at this point
	pm.index.UpdateAfterRound(pm.config.Alpha)
	pm.round = round
	EstimateIrradiance(pm.frame, pm.index, pm.background, pm.scene.GetBackground(), round, pm.config.IrradianceScale)

	stats := RoundStats{
		Round:          round,
		PhotonsEmitted: emitted,
		Deposits:       deposits,
		MeanRadius2:    pm.index.MeanRadius2(),
		Frame:          pm.frame.Stats(),
		Duration:       time.Since(startTime),
	}

	pm.metrics.PhotonsEmitted.Add(float64(emitted))
	pm.metrics.Deposits.Add(float64(deposits))
	pm.metrics.Rounds.Inc()
	pm.metrics.MeanRadius2.Set(stats.MeanRadius2)
	pm.metrics.RoundDuration.Observe(stats.Duration.Seconds())

	pm.logger.Printf("Round %d completed in %v (%d photons, %d deposits, mean r2 %.4g)\n",
		round, stats.Duration, emitted, deposits, stats.MeanRadius2)

	return RoundResult{
		Round:  round,
		Frame:  pm.frame,
		Image:  pm.frame.ToRGBA(pm.config.Gamma),
		Stats:  stats,
		IsLast: round >= pm.config.Rounds,
	}, nil
}

// Render runs the ray-tracing pass and then photon rounds until the
// configured count is reached, writing every image to sink. A restored
// photon mapper continues from its restored round and skips round 0.
// Cancelling ctx stops the run between rounds.
func (pm *PhotonMapper) Render(ctx context.Context, sink Sink) error {
	defer pm.Close()

	direct, err := pm.TracePass(ctx)
	if err != nil {
		return err
	}
	if pm.round == 0 {
		if err := sink.WriteRound(0, direct); err != nil {
			return fmt.Errorf("writing ray tracing image: %w", err)
		}
	} else if pm.round >= pm.config.Rounds {
		// restored at the final round: nothing left to run, write the estimate once
		if err := sink.WriteRound(pm.round, pm.frame); err != nil {
			return fmt.Errorf("writing round %d: %w", pm.round, err)
		}
	}

	for pm.round < pm.config.Rounds {
		if err := ctx.Err(); err != nil {
			pm.logger.Printf("Rendering stopped after %d rounds\n", pm.round)
			return err
		}
		result, err := pm.RunRound(ctx)
		if err != nil {
			return err
		}
		if err := sink.WriteRound(result.Round, result.Frame); err != nil {
			return fmt.Errorf("writing round %d: %w", result.Round, err)
		}
	}

	pm.logger.Printf("Rendering finished after %d rounds\n", pm.round)
	return nil
}

// RenderProgressive renders with channel-based communication (idiomatic Go).
// The first result is the ray-tracing pass (round 0), followed by one result
// per photon round. A round always runs to completion; cancelling ctx only
// prevents the next one from starting.
func (pm *PhotonMapper) RenderProgressive(ctx context.Context) (<-chan RoundResult, <-chan error) {
	roundChan := make(chan RoundResult, 1)
	errChan := make(chan error, 1)

	go func() {
		defer close(roundChan)
		defer close(errChan)
		defer pm.Close()

		pm.logger.Printf("Starting photon mapping with %d rounds...\n", pm.config.Rounds)

		direct, err := pm.TracePass(ctx)
		if err != nil {
			errChan <- err
			return
		}

		if pm.round == 0 {
			first := RoundResult{
				Round:  0,
				Frame:  direct,
				Image:  direct.ToRGBA(pm.config.Gamma),
				Stats:  RoundStats{Frame: direct.Stats(), Duration: pm.traceStats.Duration},
				IsLast: pm.config.Rounds == 0,
			}
			select {
			case roundChan <- first:
			case <-ctx.Done():
				return
			}
		} else if pm.round >= pm.config.Rounds {
			restored := RoundResult{
				Round:  pm.round,
				Frame:  pm.frame.Clone(),
				Image:  pm.frame.ToRGBA(pm.config.Gamma),
				Stats:  RoundStats{Round: pm.round, MeanRadius2: pm.index.MeanRadius2(), Frame: pm.frame.Stats()},
				IsLast: true,
			}
			select {
			case roundChan <- restored:
			case <-ctx.Done():
				return
			}
		}

		for pm.round < pm.config.Rounds {
			// Check if client disconnected before starting this round
			select {
			case <-ctx.Done():
				pm.logger.Printf("Rendering cancelled before round %d\n", pm.round+1)
				errChan <- ctx.Err()
				return
			default:
			}

			result, err := pm.RunRound(ctx)
			if err != nil {
				errChan <- err
				return
			}
			result.Frame = result.Frame.Clone()

			select {
			case roundChan <- result:
			case <-ctx.Done():
				return
			}
		}
	}()

	return roundChan, errChan
}

// Checkpoint captures the progressive statistics after the last completed round
func (pm *PhotonMapper) Checkpoint() (checkpoint.State, error) {
	if pm.index == nil {
		return checkpoint.State{}, ErrNotTraced
	}
	n := pm.index.Len()
	state := checkpoint.State{
		Round:  pm.round,
		Seed:   pm.config.Seed,
		R2:     make([]float64, n),
		Phi:    make([]core.Vec3, n),
		NAccum: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		st := pm.index.Stats(i)
		state.R2[i] = st.R2
		state.Phi[i] = st.Phi
		state.NAccum[i] = st.NAccum
	}
	return state, nil
}

// Restore loads checkpointed statistics into the spatial index and
// re-estimates the image. It must follow TracePass on the same scene with
// the same seed.
func (pm *PhotonMapper) Restore(state checkpoint.State) error {
	if pm.index == nil {
		return ErrNotTraced
	}
	if err := state.Validate(); err != nil {
		return err
	}
	if state.Len() != pm.index.Len() {
		return fmt.Errorf("%w: checkpoint has %d hitpoints, scene traced %d",
			checkpoint.ErrPopulationMismatch, state.Len(), pm.index.Len())
	}
	if state.Seed != pm.config.Seed {
		return fmt.Errorf("%w: checkpoint seed %d, render seed %d",
			checkpoint.ErrPopulationMismatch, state.Seed, pm.config.Seed)
	}

	for i := 0; i < state.Len(); i++ {
		pm.index.SetStats(i, state.R2[i], state.Phi[i], state.NAccum[i])
	}
	pm.index.RefreshBounds()
	pm.round = state.Round
	EstimateIrradiance(pm.frame, pm.index, pm.background, pm.scene.GetBackground(), pm.round, pm.config.IrradianceScale)
	pm.metrics.MeanRadius2.Set(pm.index.MeanRadius2())

	pm.logger.Printf("Restored checkpoint at round %d\n", pm.round)
	return nil
}

// Frame returns the current photon-mapped estimate, nil before the pass
func (pm *PhotonMapper) Frame() *Frame { return pm.frame }

// InspectPixel lists the HitPoints that belong to pixel (x, y)
func (pm *PhotonMapper) InspectPixel(x, y int) []HitPointInfo {
	if pm.index == nil {
		return nil
	}
	var infos []HitPointInfo
	for i := 0; i < pm.index.Len(); i++ {
		hp := pm.index.HitPoint(i)
		if hp.Col != x || hp.Row != y {
			continue
		}
		st := pm.index.Stats(i)
		infos = append(infos, HitPointInfo{
			Position: hp.Position,
			Normal:   hp.Normal,
			Weight:   hp.Weight,
			R2:       st.R2,
			Phi:      st.Phi,
			NAccum:   st.NAccum,
		})
	}
	return infos
}
