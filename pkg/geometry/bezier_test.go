package geometry

import (
	"math"
	"testing"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

// gridPatch lays the control points on a 3x3 square in the xz plane. x and
// z are linear in u and v, so x = 3u and z = 3v; heights give the y values.
func gridPatch(heights [16]float64, mat core.Material) *BezierPatch {
	var control [16]core.Vec3
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			control[4*i+j] = core.NewVec3(float64(j), heights[4*i+j], float64(i))
		}
	}
	return NewBezierPatch("grid", core.Vec3{}, control, mat)
}

func TestBezierPatch_FlatHits(t *testing.T) {
	texture := &MockTexture{color: core.NewVec3(0.5, 1, 1)}
	mat := diffuse(core.NewVec3(1, 1, 1))
	mat.Texture = texture
	patch := gridPatch([16]float64{}, mat)

	hit, ok := patch.Intersect(core.NewRay(core.NewVec3(1.2, 5, 0.6), core.NewVec3(0, -1, 0)), 100)
	if !ok {
		t.Fatal("Expected a hit from above")
	}
	if math.Abs(hit.T-5) > 1e-6 {
		t.Errorf("Expected t=5, got %f", hit.T)
	}
	if hit.Normal.Subtract(core.NewVec3(0, 1, 0)).Length() > 1e-6 {
		t.Errorf("Expected the normal to face the ray, got %v", hit.Normal)
	}
	if hit.Side != core.Outside {
		t.Errorf("Expected an outside hit, got %v", hit.Side)
	}
	if math.Abs(texture.u-0.4) > 1e-6 || math.Abs(texture.v-0.2) > 1e-6 {
		t.Errorf("Expected texture lookup at (0.4, 0.2), got (%f, %f)", texture.u, texture.v)
	}
	if hit.Color != core.NewVec3(0.5, 1, 1) {
		t.Errorf("Expected textured color, got %v", hit.Color)
	}

	below, ok := patch.Intersect(core.NewRay(core.NewVec3(1.2, -5, 0.6), core.NewVec3(0, 1, 0)), 100)
	if !ok {
		t.Fatal("Expected a hit from below")
	}
	if below.Normal.Subtract(core.NewVec3(0, -1, 0)).Length() > 1e-6 {
		t.Errorf("Expected the normal flipped towards the ray, got %v", below.Normal)
	}
}

func TestBezierPatch_Misses(t *testing.T) {
	patch := gridPatch([16]float64{}, diffuse(core.NewVec3(1, 1, 1)))

	tests := []struct {
		name string
		ray  core.Ray
		tMax float64
	}{
		{"outside the square", core.NewRay(core.NewVec3(4, 5, 1), core.NewVec3(0, -1, 0)), 100},
		{"pointing away", core.NewRay(core.NewVec3(1, 5, 1), core.NewVec3(0, 1, 0)), 100},
		{"beyond tMax", core.NewRay(core.NewVec3(1, 5, 1), core.NewVec3(0, -1, 0)), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if hit, ok := patch.Intersect(tt.ray, tt.tMax); ok {
				t.Errorf("Expected a miss, got t=%f", hit.T)
			}
		})
	}
}

func TestBezierPatch_CurvedHeightField(t *testing.T) {
	heights := [16]float64{
		0, 0.5, 0.2, 0,
		0.3, 1, 0.8, 0.1,
		0.1, 0.9, 1.2, 0.4,
		0, 0.2, 0.6, 0.3,
	}
	patch := gridPatch(heights, diffuse(core.NewVec3(1, 1, 1)))

	for _, xz := range [][2]float64{{0.3, 0.3}, {1.5, 1.5}, {2.4, 0.9}, {0.7, 2.8}} {
		x, z := xz[0], xz[1]
		surface := patch.Point(x/3, z/3)
		hit, ok := patch.Intersect(core.NewRay(core.NewVec3(x, 10, z), core.NewVec3(0, -1, 0)), 100)
		if !ok {
			t.Fatalf("Expected a hit at (%g, %g)", x, z)
		}
		if hit.Point.Subtract(surface).Length() > 1e-5 {
			t.Errorf("At (%g, %g): expected %v, got %v", x, z, surface, hit.Point)
		}
		if hit.Normal.Y <= 0 || math.Abs(hit.Normal.Length()-1) > 1e-9 {
			t.Errorf("At (%g, %g): expected an upward unit normal, got %v", x, z, hit.Normal)
		}
	}
}

func TestBezierPatch_SplitKeepsSurface(t *testing.T) {
	heights := [16]float64{0, 1, 2, 0, 1, 3, 1, 0, 0, 2, 2, 1, 1, 0, 1, 0}
	patch := gridPatch(heights, diffuse(core.NewVec3(1, 1, 1)))
	root := &subPatch{control: patch.Control, kU: 1, kV: 1}

	for _, child := range root.split() {
		for _, uv := range [][2]float64{{0, 0}, {0.3, 0.7}, {1, 1}} {
			local := patchPoint(&child.control, uv[0], uv[1])
			global := patch.Point(child.kU*uv[0]+child.bU, child.kV*uv[1]+child.bV)
			if local.Subtract(global).Length() > 1e-9 {
				t.Errorf("Child (%g, %g) at %v: expected %v, got %v", child.bU, child.bV, uv, global, local)
			}
		}
	}
}

func TestBezierPatch_CollapsedEdgeNormal(t *testing.T) {
	// Every point of the first column coincides, as in a leaf's stem
	var control [16]core.Vec3
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			control[4*i+j] = core.NewVec3(float64(j), 0, float64(i)*float64(j)/3)
		}
	}
	patch := NewBezierPatch("fan", core.Vec3{}, control, diffuse(core.NewVec3(1, 1, 1)))
	sp := &subPatch{control: patch.Control, kU: 1, kV: 1}

	n := sp.normal(0, 0.5)
	if math.Abs(n.Length()-1) > 1e-9 || math.Abs(math.Abs(n.Y)-1) > 1e-6 {
		t.Errorf("Expected a unit normal along y at the collapsed edge, got %v", n)
	}
}

func TestNewBezierPatch_Offset(t *testing.T) {
	var control [16]core.Vec3
	patch := NewBezierPatch("p", core.NewVec3(1, 2, 3), control, diffuse(core.NewVec3(1, 1, 1)))
	if patch.Control[7] != core.NewVec3(1, 2, 3) {
		t.Errorf("Expected control points moved by the offset, got %v", patch.Control[7])
	}
	if b := patch.Bounds(); b.MaxExtent() > 1e-5 {
		t.Errorf("Expected a point-sized box, got %v", b)
	}
}
