package renderer

import (
	"image"
	"image/color"

	"gonum.org/v1/gonum/floats"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

// Frame is a linear HDR color buffer in row-major order, row 0 at the top
type Frame struct {
	Width, Height int
	Pixels        []core.Vec3
}

// NewFrame creates a black frame
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pixels: make([]core.Vec3, width*height),
	}
}

// At returns the color at (x, y)
func (f *Frame) At(x, y int) core.Vec3 { return f.Pixels[y*f.Width+x] }

// Set overwrites the color at (x, y)
func (f *Frame) Set(x, y int, c core.Vec3) { f.Pixels[y*f.Width+x] = c }

// Add accumulates c into (x, y)
func (f *Frame) Add(x, y int, c core.Vec3) {
	i := y*f.Width + x
	f.Pixels[i] = f.Pixels[i].Add(c)
}

// Reset sets every pixel to black
func (f *Frame) Reset() {
	for i := range f.Pixels {
		f.Pixels[i] = core.Vec3{}
	}
}

// Clone returns an independent copy of the frame
func (f *Frame) Clone() *Frame {
	c := &Frame{Width: f.Width, Height: f.Height, Pixels: make([]core.Vec3, len(f.Pixels))}
	copy(c.Pixels, f.Pixels)
	return c
}

// vec3ToColor converts a linear color to RGBA with gamma correction and clamping
func vec3ToColor(colorVec core.Vec3, gamma float64) color.RGBA {
	colorVec = colorVec.Clamp(0.0, 1.0).GammaCorrect(gamma)

	return color.RGBA{
		R: uint8(255*colorVec.X + 0.5),
		G: uint8(255*colorVec.Y + 0.5),
		B: uint8(255*colorVec.Z + 0.5),
		A: 255,
	}
}

// ToRGBA clamps every pixel to [0, 1], applies display gamma and
// quantizes to 8 bits
func (f *Frame) ToRGBA(gamma float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			img.SetRGBA(x, y, vec3ToColor(f.At(x, y), gamma))
		}
	}
	return img
}

// FrameStats summarizes the brightness of a frame
type FrameStats struct {
	MeanLuminance float64
	MaxLuminance  float64
	BlackPixels   int // pixels with every channel at zero
}

// Stats computes luminance statistics over the linear (unclamped) pixels
func (f *Frame) Stats() FrameStats {
	if len(f.Pixels) == 0 {
		return FrameStats{}
	}
	lum := make([]float64, len(f.Pixels))
	black := 0
	for i, p := range f.Pixels {
		lum[i] = p.Luminance()
		if p.IsZero() {
			black++
		}
	}
	return FrameStats{
		MeanLuminance: floats.Sum(lum) / float64(len(lum)),
		MaxLuminance:  floats.Max(lum),
		BlackPixels:   black,
	}
}
