package renderer

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/df07/go-progressive-photonmapper/pkg/checkpoint"
	"github.com/df07/go-progressive-photonmapper/pkg/core"
	"github.com/df07/go-progressive-photonmapper/pkg/lights"
)

// MockLogger discards log output
type MockLogger struct {
	lines int
}

func (l *MockLogger) Printf(format string, args ...interface{}) { l.lines++ }

// MockSink records the frames written to it
type MockSink struct {
	rounds []int
	frames []*Frame
	err    error
}

func (s *MockSink) WriteRound(round int, frame *Frame) error {
	s.rounds = append(s.rounds, round)
	s.frames = append(s.frames, frame.Clone())
	return s.err
}

func testConfig() Config {
	return DefaultConfig().Merge(Config{
		Rounds:         2,
		PhotonBudget:   2000,
		PhotonsPerTask: 500,
		InitialRadius:  0.5,
		NumWorkers:     1,
		Seed:           11,
	})
}

func TestPlanPhotons(t *testing.T) {
	bright := lights.NewPointLight(core.Vec3{}, core.NewVec3(3, 3, 3))
	dim := lights.NewPointLight(core.Vec3{}, core.NewVec3(1, 1, 1))
	dark := lights.NewPointLight(core.Vec3{}, core.Vec3{})

	shares := planPhotons([]core.Light{bright, dark, dim}, 400)
	if len(shares) != 2 {
		t.Fatalf("Expected the dark light to be skipped, got %d shares", len(shares))
	}
	if shares[0].Light != bright || shares[1].Light != dim {
		t.Fatal("Expected shares in light order")
	}
	if math.Abs(float64(shares[0].Count-300)) > 1 || math.Abs(float64(shares[1].Count-100)) > 1 {
		t.Errorf("Expected about 300 and 100 photons, got %d and %d", shares[0].Count, shares[1].Count)
	}
	for _, s := range shares {
		// Each light's photons carry its full color between them
		total := s.Energy.Multiply(float64(s.Count))
		if total.Subtract(s.Light.Color()).Length() > 1e-9 {
			t.Errorf("Expected total energy %v, got %v", s.Light.Color(), total)
		}
	}

	if planPhotons(nil, 100) != nil {
		t.Error("Expected no shares without lights")
	}
	if planPhotons([]core.Light{dark}, 100) != nil {
		t.Error("Expected no shares when every light is dark")
	}
}

func TestTaskSeed_Distinct(t *testing.T) {
	seen := map[int64]bool{}
	for round := 0; round < 20; round++ {
		for task := 0; task < 100; task++ {
			s := taskSeed(42, round, task)
			if seen[s] {
				t.Fatalf("Duplicate seed for round %d task %d", round, task)
			}
			seen[s] = true
		}
	}
}

func TestPhotonMapper_Render(t *testing.T) {
	scene := newFloorScene(24, 16)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	pm := NewPhotonMapper(scene, testConfig(), &MockLogger{}, metrics)

	sink := &MockSink{}
	if err := pm.Render(context.Background(), sink); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if len(sink.rounds) != 3 || sink.rounds[0] != 0 || sink.rounds[2] != 2 {
		t.Fatalf("Expected rounds [0 1 2], got %v", sink.rounds)
	}
	if pm.Round() != 2 {
		t.Errorf("Expected 2 completed rounds, got %d", pm.Round())
	}

	stats := pm.TraceStats()
	if stats.Pixels != 24*16 || stats.HitPoints+stats.Background != stats.LensRays {
		t.Errorf("Expected every camera ray to end in one record, got %+v", stats)
	}
	if stats.HitPoints == 0 || stats.Background == 0 {
		t.Errorf("Expected both HitPoints and background, got %+v", stats)
	}

	if got := testutil.ToFloat64(metrics.Rounds); got != 2 {
		t.Errorf("Expected 2 rounds in metrics, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.HitPoints); got != float64(stats.HitPoints) {
		t.Errorf("Expected %d hitpoints in metrics, got %f", stats.HitPoints, got)
	}
	if got := testutil.ToFloat64(metrics.PhotonsEmitted); got <= 0 || got > 2*2000 {
		t.Errorf("Expected up to 4000 emitted photons, got %f", got)
	}

	// Radii only shrink
	initial := testConfig().InitialRadius * testConfig().InitialRadius
	for i := 0; i < pm.Index().Len(); i++ {
		if r2 := pm.Index().Stats(i).R2; r2 > initial {
			t.Fatalf("HitPoint %d: radius grew to %g", i, r2)
		}
	}
	if pm.Frame().Stats().MeanLuminance <= 0 {
		t.Error("Expected a lit photon-mapped image")
	}
}

func TestPhotonMapper_Deterministic(t *testing.T) {
	render := func() *Frame {
		pm := NewPhotonMapper(newFloorScene(16, 12), testConfig(), &MockLogger{}, nil)
		if err := pm.Render(context.Background(), &MockSink{}); err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		return pm.Frame()
	}

	a, b := render(), render()
	for i := range a.Pixels {
		if a.Pixels[i] != b.Pixels[i] {
			t.Fatalf("Pixel %d differs between identical renders: %v vs %v", i, a.Pixels[i], b.Pixels[i])
		}
	}
}

func TestPhotonMapper_NoLightsMatchesDirect(t *testing.T) {
	scene := newFloorScene(16, 12)
	scene.lights = nil
	pm := NewPhotonMapper(scene, testConfig(), &MockLogger{}, nil)
	defer pm.Close()

	direct, err := pm.TracePass(context.Background())
	if err != nil {
		t.Fatalf("TracePass failed: %v", err)
	}
	result, err := pm.RunRound(context.Background())
	if err != nil {
		t.Fatalf("RunRound failed: %v", err)
	}
	if result.Stats.PhotonsEmitted != 0 {
		t.Errorf("Expected no photons without lights, got %d", result.Stats.PhotonsEmitted)
	}

	// Only the background is visible either way
	for i := range direct.Pixels {
		if direct.Pixels[i] != result.Frame.Pixels[i] {
			t.Fatalf("Pixel %d: direct %v, estimate %v", i, direct.Pixels[i], result.Frame.Pixels[i])
		}
	}
}

func TestPhotonMapper_Converges(t *testing.T) {
	scene := newFloorScene(16, 12)
	scene.lights = []core.Light{lights.NewSphereLight(core.NewVec3(0, 4, 2), 0.5, core.NewVec3(1, 1, 1))}
	config := testConfig()
	config.Rounds = 20
	config.PhotonBudget = 3000
	config.NumWorkers = 2

	pm := NewPhotonMapper(scene, config, &MockLogger{}, nil)
	defer pm.Close()

	var luminance []float64
	for i := 0; i < config.Rounds; i++ {
		result, err := pm.RunRound(context.Background())
		if err != nil {
			t.Fatalf("Round %d failed: %v", i+1, err)
		}
		luminance = append(luminance, result.Stats.Frame.MeanLuminance)
	}

	meanChange := func(from, to int) float64 {
		sum := 0.0
		for i := from; i < to; i++ {
			sum += math.Abs(luminance[i]-luminance[i-1]) / luminance[i-1]
		}
		return sum / float64(to-from)
	}
	early, late := meanChange(1, 6), meanChange(15, 20)
	if late >= early {
		t.Errorf("Expected the estimate to settle: early change %.4f, late change %.4f", early, late)
	}
}

func TestPhotonMapper_CheckpointRestore(t *testing.T) {
	config := testConfig()
	pm := NewPhotonMapper(newFloorScene(16, 12), config, &MockLogger{}, nil)
	if err := pm.Render(context.Background(), &MockSink{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	state, err := pm.Checkpoint()
	if err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}
	if state.Round != 2 || state.Seed != config.Seed || state.Len() != pm.Index().Len() {
		t.Fatalf("Unexpected checkpoint header: round %d seed %d len %d", state.Round, state.Seed, state.Len())
	}

	resumed := NewPhotonMapper(newFloorScene(16, 12), config, &MockLogger{}, nil)
	defer resumed.Close()
	if _, err := resumed.TracePass(context.Background()); err != nil {
		t.Fatalf("TracePass failed: %v", err)
	}
	if err := resumed.Restore(state); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if resumed.Round() != 2 {
		t.Errorf("Expected restored round 2, got %d", resumed.Round())
	}
	for i := range pm.Frame().Pixels {
		if pm.Frame().Pixels[i] != resumed.Frame().Pixels[i] {
			t.Fatalf("Pixel %d differs after restore", i)
		}
	}
}

func TestPhotonMapper_RestoreErrors(t *testing.T) {
	config := testConfig()

	fresh := NewPhotonMapper(newFloorScene(8, 6), config, &MockLogger{}, nil)
	defer fresh.Close()
	if _, err := fresh.Checkpoint(); !errors.Is(err, ErrNotTraced) {
		t.Errorf("Expected ErrNotTraced from Checkpoint, got %v", err)
	}
	if err := fresh.Restore(checkpoint.State{}); !errors.Is(err, ErrNotTraced) {
		t.Errorf("Expected ErrNotTraced from Restore, got %v", err)
	}

	if _, err := fresh.TracePass(context.Background()); err != nil {
		t.Fatalf("TracePass failed: %v", err)
	}
	good, err := fresh.Checkpoint()
	if err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}

	wrongSeed := good
	wrongSeed.Seed++
	short := checkpoint.State{R2: []float64{1}, Phi: []core.Vec3{{}}, NAccum: []float64{0}}
	ragged := checkpoint.State{R2: []float64{1, 2}, Phi: []core.Vec3{{}}, NAccum: []float64{0}}

	tests := []struct {
		name  string
		state checkpoint.State
		want  error
	}{
		{"seed mismatch", wrongSeed, checkpoint.ErrPopulationMismatch},
		{"size mismatch", short, checkpoint.ErrPopulationMismatch},
		{"inconsistent lengths", ragged, checkpoint.ErrBadFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := fresh.Restore(tt.state); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPhotonMapper_InvalidConfig(t *testing.T) {
	config := testConfig()
	config.Alpha = 0
	pm := NewPhotonMapper(newFloorScene(8, 6), config, &MockLogger{}, nil)
	defer pm.Close()

	if _, err := pm.TracePass(context.Background()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestPhotonMapper_SinkError(t *testing.T) {
	pm := NewPhotonMapper(newFloorScene(8, 6), testConfig(), &MockLogger{}, nil)
	sinkErr := errors.New("disk full")

	if err := pm.Render(context.Background(), &MockSink{err: sinkErr}); !errors.Is(err, sinkErr) {
		t.Errorf("Expected the sink error, got %v", err)
	}
	if pm.Round() != 0 {
		t.Errorf("Expected no photon rounds after a failed write, got %d", pm.Round())
	}
}

func TestPhotonMapper_RenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pm := NewPhotonMapper(newFloorScene(8, 6), testConfig(), &MockLogger{}, nil)
	sink := &MockSink{}
	if err := pm.Render(ctx, sink); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if pm.Round() != 0 {
		t.Errorf("Expected no photon rounds, got %d", pm.Round())
	}
}

func TestPhotonMapper_RenderProgressive(t *testing.T) {
	pm := NewPhotonMapper(newFloorScene(16, 12), testConfig(), &MockLogger{}, nil)
	roundChan, errChan := pm.RenderProgressive(context.Background())

	var rounds []RoundResult
	for result := range roundChan {
		rounds = append(rounds, result)
	}
	if err, ok := <-errChan; ok && err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(rounds) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(rounds))
	}
	for i, r := range rounds {
		if r.Round != i {
			t.Errorf("Result %d: expected round %d, got %d", i, i, r.Round)
		}
		if r.Image == nil || r.Image.Bounds().Dx() != 16 {
			t.Errorf("Result %d: expected a 16 pixel wide image", i)
		}
		if r.IsLast != (i == 2) {
			t.Errorf("Result %d: unexpected IsLast=%v", i, r.IsLast)
		}
	}
	if rounds[2].Stats.PhotonsEmitted == 0 {
		t.Error("Expected photons in the last round")
	}
}

func TestPhotonMapper_RenderProgressiveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pm := NewPhotonMapper(newFloorScene(8, 6), testConfig(), &MockLogger{}, nil)
	roundChan, errChan := pm.RenderProgressive(ctx)

	for result := range roundChan {
		if result.Round != 0 {
			t.Errorf("Expected no photon round after cancel, got round %d", result.Round)
		}
	}
	if err, ok := <-errChan; ok && !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled or nothing, got %v", err)
	}
}

func TestPhotonMapper_InspectPixel(t *testing.T) {
	config := testConfig()
	pm := NewPhotonMapper(newFloorScene(16, 12), config, &MockLogger{}, nil)
	defer pm.Close()

	if pm.InspectPixel(8, 6) != nil {
		t.Error("Expected nothing before the ray-tracing pass")
	}
	if _, err := pm.TracePass(context.Background()); err != nil {
		t.Fatalf("TracePass failed: %v", err)
	}

	// The ball fills the image center
	infos := pm.InspectPixel(8, 6)
	if len(infos) != 1 {
		t.Fatalf("Expected one HitPoint at the center, got %d", len(infos))
	}
	if infos[0].R2 != config.InitialRadius*config.InitialRadius {
		t.Errorf("Expected initial radius, got r2=%g", infos[0].R2)
	}
	if math.Abs(infos[0].Position.Subtract(core.NewVec3(0, 1, 0)).Length()-1) > 1e-6 {
		t.Errorf("Expected a point on the ball, got %v", infos[0].Position)
	}
}

func TestPhotonMapper_ClosedCannotTrace(t *testing.T) {
	pm := NewPhotonMapper(newFloorScene(8, 6), testConfig(), &MockLogger{}, nil)
	pm.Close()
	pm.Close()

	if _, err := pm.TracePass(context.Background()); err == nil {
		t.Error("Expected an error after Close")
	}
}

func TestPhotonMapper_RunRoundAfterRender(t *testing.T) {
	pm := NewPhotonMapper(newFloorScene(8, 6), testConfig(), &MockLogger{}, nil)
	if err := pm.Render(context.Background(), &MockSink{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	// Render closes the pool on exit; later rounds must fail cleanly
	for i := 0; i < 2; i++ {
		if _, err := pm.RunRound(context.Background()); !errors.Is(err, errPoolClosed) {
			t.Fatalf("Expected errPoolClosed, got %v", err)
		}
	}
	if pm.Round() != 2 {
		t.Errorf("Expected the round count to stay at 2, got %d", pm.Round())
	}
}

func TestPhotonMapper_PopulationIndependentOfWorkers(t *testing.T) {
	newLensScene := func() *MockScene {
		s := newFloorScene(12, 9)
		s.camera = NewCamera(CameraConfig{
			Center:   core.NewVec3(0, 1, 6),
			LookAt:   core.NewVec3(0, 1, 0),
			Width:    12,
			Height:   9,
			VFov:     40,
			Aperture: 0.3,
			Samples:  4,
		})
		s.lights = []core.Light{lights.NewSphereLight(core.NewVec3(0, 5, 3), 0.5, core.NewVec3(1, 1, 1))}
		return s
	}

	trace := func(workers int) *PhotonMapper {
		config := testConfig()
		config.NumWorkers = workers
		pm := NewPhotonMapper(newLensScene(), config, &MockLogger{}, nil)
		t.Cleanup(pm.Close)
		if _, err := pm.TracePass(context.Background()); err != nil {
			t.Fatalf("TracePass with %d workers failed: %v", workers, err)
		}
		return pm
	}

	one, three := trace(1), trace(3)
	if one.Index().Len() != three.Index().Len() {
		t.Fatalf("Expected equal populations, got %d and %d HitPoints", one.Index().Len(), three.Index().Len())
	}
	for i := 0; i < one.Index().Len(); i++ {
		a, b := one.Index().HitPoint(i), three.Index().HitPoint(i)
		if a.Position != b.Position || a.Row != b.Row || a.Col != b.Col || a.Weight != b.Weight {
			t.Fatalf("HitPoint %d differs: %+v vs %+v", i, a, b)
		}
	}
	for i := range one.Direct().Pixels {
		if one.Direct().Pixels[i] != three.Direct().Pixels[i] {
			t.Fatalf("Direct pixel %d differs between worker counts", i)
		}
	}

	// A checkpoint taken with one worker count restores under another
	state, err := one.Checkpoint()
	if err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}
	if err := three.Restore(state); err != nil {
		t.Errorf("Expected restore across worker counts to succeed, got %v", err)
	}
}

func TestPhotonMapper_RenderRestoredFinalRound(t *testing.T) {
	config := testConfig()
	pm := NewPhotonMapper(newFloorScene(16, 12), config, &MockLogger{}, nil)
	if err := pm.Render(context.Background(), &MockSink{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	state, err := pm.Checkpoint()
	if err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}

	resumed := NewPhotonMapper(newFloorScene(16, 12), config, &MockLogger{}, nil)
	if _, err := resumed.TracePass(context.Background()); err != nil {
		t.Fatalf("TracePass failed: %v", err)
	}
	if err := resumed.Restore(state); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	sink := &MockSink{}
	if err := resumed.Render(context.Background(), sink); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(sink.rounds) != 1 || sink.rounds[0] != config.Rounds {
		t.Fatalf("Expected the restored estimate written once as round %d, got %v", config.Rounds, sink.rounds)
	}
	for i := range pm.Frame().Pixels {
		if sink.frames[0].Pixels[i] != pm.Frame().Pixels[i] {
			t.Fatalf("Pixel %d differs from the checkpointed render", i)
		}
	}
}

func TestPhotonMapper_RenderProgressiveRestoredFinalRound(t *testing.T) {
	config := testConfig()
	pm := NewPhotonMapper(newFloorScene(8, 6), config, &MockLogger{}, nil)
	if err := pm.Render(context.Background(), &MockSink{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	state, err := pm.Checkpoint()
	if err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}

	resumed := NewPhotonMapper(newFloorScene(8, 6), config, &MockLogger{}, nil)
	if _, err := resumed.TracePass(context.Background()); err != nil {
		t.Fatalf("TracePass failed: %v", err)
	}
	if err := resumed.Restore(state); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	roundChan, errChan := resumed.RenderProgressive(context.Background())
	var results []RoundResult
	for result := range roundChan {
		results = append(results, result)
	}
	if err := <-errChan; err != nil {
		t.Fatalf("RenderProgressive failed: %v", err)
	}
	if len(results) != 1 || results[0].Round != config.Rounds || !results[0].IsLast {
		t.Fatalf("Expected one final result for round %d, got %+v", config.Rounds, results)
	}
}
