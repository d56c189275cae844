package material

import (
	"math"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

// ImageTexture provides color from a 2D image. The texture repeats in both directions.
type ImageTexture struct {
	Width  int
	Height int
	Pixels []core.Vec3 // Row-major: Pixels[y*Width + x]
}

// NewImageTexture creates a new image texture
func NewImageTexture(width, height int, pixels []core.Vec3) *ImageTexture {
	return &ImageTexture{
		Width:  width,
		Height: height,
		Pixels: pixels,
	}
}

// ColorAt samples the texture with bilinear filtering. u selects the row and v the
// column; both wrap, and the last row/column blends into the first so tiling is seamless.
func (t *ImageTexture) ColorAt(u, v float64) core.Vec3 {
	if t.Width == 0 || t.Height == 0 {
		return core.NewVec3(1, 1, 1)
	}

	row := (u - math.Floor(u)) * float64(t.Height)
	col := (v - math.Floor(v)) * float64(t.Width)

	r1 := int(math.Floor(row + core.Epsilon))
	c1 := int(math.Floor(col + core.Epsilon))
	r2, c2 := r1+1, c1+1

	// Weights are taken before wrapping
	wr := float64(r2) - row
	wc := float64(c2) - col

	r1, r2 = wrap(r1, t.Height), wrap(r2, t.Height)
	c1, c2 = wrap(c1, t.Width), wrap(c2, t.Width)

	return t.at(r1, c1).Multiply(wr * wc).
		Add(t.at(r1, c2).Multiply(wr * (1 - wc))).
		Add(t.at(r2, c1).Multiply((1 - wr) * wc)).
		Add(t.at(r2, c2).Multiply((1 - wr) * (1 - wc)))
}

func (t *ImageTexture) at(row, col int) core.Vec3 {
	return t.Pixels[row*t.Width+col]
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
