// Package snapshot writes the renderer's round images to disk
package snapshot

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/mrjoshuak/go-openexr/exr"

	"github.com/df07/go-progressive-photonmapper/pkg/renderer"
)

// PNGWriter writes 8-bit PNG snapshots. With KeepRounds false every round
// overwrites the same file.
type PNGWriter struct {
	Path       string  // Output file, e.g. output/default/render.png
	Gamma      float64 // Display gamma (0 or 1 = linear)
	KeepRounds bool    // Write render_<round>.png next to Path instead of overwriting
}

// WriteRound encodes frame as PNG
func (w *PNGWriter) WriteRound(round int, frame *renderer.Frame) error {
	gamma := w.Gamma
	if gamma <= 0 {
		gamma = 1
	}
	path := roundPath(w.Path, round, w.KeepRounds)
	return writeAtomically(path, func(f *os.File) error {
		return png.Encode(f, frame.ToRGBA(gamma))
	})
}

// EXRWriter writes linear HDR OpenEXR snapshots, unclamped
type EXRWriter struct {
	Path       string
	KeepRounds bool
}

// WriteRound encodes frame as OpenEXR
func (w *EXRWriter) WriteRound(round int, frame *renderer.Frame) error {
	path := roundPath(w.Path, round, w.KeepRounds)
	return writeAtomically(path, func(f *os.File) error {
		return exr.Encode(f, FrameToEXR(frame))
	})
}

// FrameToEXR copies frame into a float RGBA image with opaque alpha
func FrameToEXR(frame *renderer.Frame) *exr.RGBAImage {
	img := exr.NewRGBAImage(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			c := frame.At(x, y)
			img.SetRGBA(x, y, float32(c.X), float32(c.Y), float32(c.Z), 1)
		}
	}
	return img
}

// MultiWriter forwards every round to each sink in order, stopping at the
// first error
type MultiWriter []renderer.Sink

// WriteRound writes frame to every sink
func (m MultiWriter) WriteRound(round int, frame *renderer.Frame) error {
	for _, sink := range m {
		if err := sink.WriteRound(round, frame); err != nil {
			return err
		}
	}
	return nil
}

// roundPath inserts _<round> before the extension when keep is set
func roundPath(path string, round int, keep bool) string {
	if !keep {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%03d%s", path[:len(path)-len(ext)], round, ext)
}

// writeAtomically writes through a temporary file so readers never see a
// partial snapshot
func writeAtomically(path string, encode func(f *os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}
