package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"

	"github.com/df07/go-progressive-photonmapper/pkg/checkpoint"
	"github.com/df07/go-progressive-photonmapper/pkg/renderer"
	"github.com/df07/go-progressive-photonmapper/pkg/scene"
	"github.com/df07/go-progressive-photonmapper/pkg/snapshot"
	"github.com/df07/go-progressive-photonmapper/web/server"
)

func main() {
	// Parse command line flags
	sceneType := flag.String("scene", "default", "Scene: 'default', 'cornell', 'single-sphere' or a .json scene file")
	rounds := flag.Int("rounds", 0, "Photon rounds (0 = scene default)")
	photons := flag.Int("photons", 0, "Photons emitted per round (0 = scene default)")
	workers := flag.Int("workers", 0, "Number of workers (0 = one per logical CPU)")
	width := flag.Int("width", 0, "Image width (0 = scene default)")
	height := flag.Int("height", 0, "Image height (0 = scene default)")
	outDir := flag.String("out", "output", "Output directory")
	keepRounds := flag.Bool("keep-rounds", false, "Keep one image per round instead of overwriting")
	writeEXR := flag.Bool("exr", false, "Also write linear OpenEXR images")
	textureDir := flag.String("textures", "textures", "Texture directory for the default scene")
	checkpointPath := flag.String("checkpoint", "", "Checkpoint file, resumed from when it exists")
	checkpointEvery := flag.Int("checkpoint-every", 5, "Rounds between checkpoint saves")
	serve := flag.Int("serve", 0, "Start the preview server on this port instead of rendering")
	scenesDir := flag.String("scenes", "scenes", "Scene file directory for the preview server")
	help := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	logHostInfo()

	if *serve > 0 {
		if err := server.NewServer(*serve, *scenesDir, *textureDir).Start(); err != nil {
			fmt.Printf("Error starting server: %v\n", err)
			os.Exit(1)
		}
		return
	}

	selectedScene, err := createScene(*sceneType, *textureDir, renderer.CameraConfig{Width: *width, Height: *height})
	if err != nil {
		fmt.Printf("Error creating scene: %v\n", err)
		os.Exit(1)
	}

	config := selectedScene.RenderConfig.Merge(renderer.Config{
		Rounds:       *rounds,
		PhotonBudget: *photons,
		NumWorkers:   defaultWorkers(*workers),
	})

	outputDir := createOutputDir(*sceneType, *outDir)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Printf("Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := renderOptions{
		OutputDir:       outputDir,
		KeepRounds:      *keepRounds,
		WriteEXR:        *writeEXR,
		CheckpointPath:  *checkpointPath,
		CheckpointEvery: *checkpointEvery,
	}
	startTime := time.Now()
	if err := render(ctx, selectedScene, config, opts); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("Render interrupted")
			return
		}
		fmt.Printf("Render failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Render completed in %v, images saved to %s\n", time.Since(startTime), outputDir)
}

func printHelp() {
	fmt.Println("Progressive Photon Mapper")
	fmt.Println("Usage: photonmapper [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Available scenes:")
	for _, info := range scene.BuiltInScenes {
		fmt.Printf("  %-14s %s\n", info.ID, info.Description)
	}
	fmt.Println()
	fmt.Println("Output will be saved to output/<scene>/render.png, overwritten after every round")
}

// renderOptions selects the sinks of a CLI render
type renderOptions struct {
	OutputDir       string
	KeepRounds      bool
	WriteEXR        bool
	CheckpointPath  string
	CheckpointEvery int
}

// render runs the photon mapper to completion, resuming from the checkpoint
// when one exists
func render(ctx context.Context, s *scene.Scene, config renderer.Config, opts renderOptions) error {
	mapper := renderer.NewPhotonMapper(s, config, renderer.NewDefaultLogger(), nil)
	defer mapper.Close()

	if opts.CheckpointPath != "" {
		if err := resume(ctx, mapper, opts.CheckpointPath); err != nil {
			return err
		}
	}

	sinks := snapshot.MultiWriter{
		&snapshot.PNGWriter{
			Path:       filepath.Join(opts.OutputDir, "render.png"),
			Gamma:      config.Gamma,
			KeepRounds: opts.KeepRounds,
		},
	}
	if opts.WriteEXR {
		sinks = append(sinks, &snapshot.EXRWriter{
			Path:       filepath.Join(opts.OutputDir, "render.exr"),
			KeepRounds: opts.KeepRounds,
		})
	}
	if opts.CheckpointPath != "" {
		sinks = append(sinks, &checkpointSink{
			mapper: mapper,
			path:   opts.CheckpointPath,
			every:  opts.CheckpointEvery,
			last:   config.Rounds,
		})
	}

	return mapper.Render(ctx, sinks)
}

// resume restores a checkpoint if the file exists. A missing file starts a fresh render.
func resume(ctx context.Context, mapper *renderer.PhotonMapper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	state, err := checkpoint.Load(path)
	if err != nil {
		return err
	}
	if _, err := mapper.TracePass(ctx); err != nil {
		return err
	}
	return mapper.Restore(state)
}

// checkpointSink saves the photon statistics every few rounds and after the last one
type checkpointSink struct {
	mapper *renderer.PhotonMapper
	path   string
	every  int
	last   int
}

func (c *checkpointSink) WriteRound(round int, _ *renderer.Frame) error {
	if round == 0 {
		return nil
	}
	if round != c.last && (c.every <= 0 || round%c.every != 0) {
		return nil
	}
	state, err := c.mapper.Checkpoint()
	if err != nil {
		return err
	}
	return checkpoint.Save(c.path, state)
}

// createScene creates a built-in scene or loads a JSON scene file
func createScene(sceneType, textureDir string, camera renderer.CameraConfig) (*scene.Scene, error) {
	if sceneType == "" {
		return nil, fmt.Errorf("no scene given")
	}
	return scene.NewByName(sceneType, textureDir, renderer.NewDefaultLogger(), camera)
}

// createOutputDir returns the output directory for a scene: its name, or the
// file name without extension for scene files
func createOutputDir(sceneType, root string) string {
	name := strings.TrimSuffix(filepath.Base(sceneType), filepath.Ext(sceneType))
	if name == "" || name == "." {
		name = "scene"
	}
	return filepath.Join(root, name)
}

// defaultWorkers returns the requested worker count, or one per logical CPU
func defaultWorkers(requested int) int {
	if requested > 0 {
		return requested
	}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// getSystemInfo reports the CPU model, logical core count, clock speed and total RAM in GB
func getSystemInfo() (string, int, float64, uint64, error) {
	cpuInfo, err := cpu.Info()
	if err != nil {
		return "", 0, 0, 0, err
	}
	if len(cpuInfo) == 0 {
		return "", 0, 0, 0, fmt.Errorf("no CPU information available")
	}

	cores, err := cpu.Counts(true)
	if err != nil {
		cores = len(cpuInfo)
	}

	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return "", 0, 0, 0, err
	}
	totalRAM := memInfo.Total / (1024 * 1024 * 1024)

	return cpuInfo[0].ModelName, cores, cpuInfo[0].Mhz, totalRAM, nil
}

func logHostInfo() {
	cpuName, cores, mhz, ramGB, err := getSystemInfo()
	if err != nil {
		fmt.Printf("Host information unavailable: %v\n", err)
		return
	}
	fmt.Printf("Host: %s (%d logical cores, %.0f MHz), %d GB RAM\n", cpuName, cores, mhz, ramGB)
}
