package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

const (
	// Sub-patches smaller than this along every axis go to the Newton solver
	bezierLeafSize = 1e-2
	// Subdivision never goes deeper than this many levels
	bezierMaxDepth = 16
	bezierMaxIter  = 50
)

// BezierPatch is a bicubic Bezier surface. Control[4*i+j] is row i (the v
// direction) and column j (the u direction).
//
// The patch is open, so every hit reports core.Outside with the normal
// turned towards the incoming ray.
type BezierPatch struct {
	Name     string
	Control  [16]core.Vec3
	material core.Material
	bounds   core.AABB
}

// NewBezierPatch creates a patch from control points given relative to offset
func NewBezierPatch(name string, offset core.Vec3, control [16]core.Vec3, material core.Material) *BezierPatch {
	p := &BezierPatch{Name: name, material: material}
	for i, c := range control {
		p.Control[i] = c.Add(offset)
	}
	p.bounds = controlBounds(&p.Control)
	return p
}

// Material returns the patch's surface description
func (p *BezierPatch) Material() *core.Material {
	return &p.material
}

// Bounds returns the box around the control points, which contains the surface
func (p *BezierPatch) Bounds() core.AABB { return p.bounds }

// Point evaluates the surface at (u, v)
func (p *BezierPatch) Point(u, v float64) core.Vec3 {
	return patchPoint(&p.Control, u, v)
}

// subPatch is a piece of the patch produced by subdivision. Its local (u, v)
// map to the parent's as parentU = kU*u + bU, and likewise for v.
type subPatch struct {
	control [16]core.Vec3
	bounds  core.AABB
	depth   int
	kU, bU  float64
	kV, bV  float64
}

// Intersect subdivides the patch into quarters, discarding every piece whose
// bounds the ray misses, until the pieces are small. Newton's method then
// solves ray(t) = surface(u, v) on each remaining piece and the nearest root
// wins.
func (p *BezierPatch) Intersect(ray core.Ray, tMax float64) (core.Intersection, bool) {
	if !p.bounds.HitsRay(ray, tMax) {
		return core.Intersection{}, false
	}

	var leaves []*subPatch
	stack := []*subPatch{{control: p.Control, bounds: p.bounds, kU: 1, kV: 1}}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.bounds.MaxExtent() < bezierLeafSize || node.depth >= bezierMaxDepth {
			leaves = append(leaves, node)
			continue
		}
		for _, child := range node.split() {
			if child.bounds.HitsRay(ray, tMax) {
				stack = append(stack, child)
			}
		}
	}

	var (
		best  *subPatch
		bestT = tMax
		bestU float64
		bestV float64
	)
	for _, leaf := range leaves {
		t, u, v, ok := leaf.newton(ray)
		if ok && t > core.Epsilon && t < bestT {
			best, bestT, bestU, bestV = leaf, t, u, v
		}
	}
	if best == nil {
		return core.Intersection{}, false
	}

	normal := best.normal(bestU, bestV)
	if normal.Dot(ray.Direction) > 0 {
		normal = normal.Negate()
	}

	return core.Intersection{
		T:      bestT,
		Point:  ray.At(bestT),
		Normal: normal,
		Color:  p.colorAt(best.kU*bestU+best.bU, best.kV*bestV+best.bV),
		Side:   core.Outside,
	}, true
}

func (p *BezierPatch) colorAt(u, v float64) core.Vec3 {
	if p.material.Texture == nil {
		return p.material.Color
	}
	return p.material.Color.MultiplyVec(p.material.Texture.ColorAt(clamp(u, 0, 1), clamp(v, 0, 1)))
}

// newton solves origin + t·dir = S(u, v) starting from the middle of the
// piece. It reports the root only when the iteration converged inside the
// piece's parameter square.
func (sp *subPatch) newton(ray core.Ray) (t, u, v float64, ok bool) {
	center := sp.bounds.Min.Add(sp.bounds.Max).Multiply(0.5)
	t = center.Subtract(ray.Origin).Dot(ray.Direction)
	u, v = 0.5, 0.5

	jacobian := mat.NewDense(3, 3, nil)
	residual := mat.NewVecDense(3, nil)
	var step mat.VecDense

	for iter := 0; iter < bezierMaxIter; iter++ {
		f := ray.At(t).Subtract(patchPoint(&sp.control, u, v))
		du := patchDerivU(&sp.control, u, v)
		dv := patchDerivV(&sp.control, u, v)

		for row := 0; row < 3; row++ {
			jacobian.Set(row, 0, ray.Direction.Axis(row))
			jacobian.Set(row, 1, -du.Axis(row))
			jacobian.Set(row, 2, -dv.Axis(row))
			residual.SetVec(row, f.Axis(row))
		}
		if err := step.SolveVec(jacobian, residual); err != nil {
			return 0, 0, 0, false
		}

		t -= step.AtVec(0)
		u -= step.AtVec(1)
		v -= step.AtVec(2)

		if math.Max(math.Abs(step.AtVec(0)), math.Max(math.Abs(step.AtVec(1)), math.Abs(step.AtVec(2)))) < core.Epsilon {
			inside := u >= -core.Epsilon && u <= 1+core.Epsilon && v >= -core.Epsilon && v <= 1+core.Epsilon
			return t, u, v, inside
		}
	}
	return 0, 0, 0, false
}

// normal returns the unit surface normal at local (u, v). Degenerate points,
// such as an edge collapsed to a single control point, are evaluated
// slightly towards the middle of the piece.
func (sp *subPatch) normal(u, v float64) core.Vec3 {
	for i := 0; i < 4; i++ {
		n := patchDerivU(&sp.control, u, v).Cross(patchDerivV(&sp.control, u, v))
		if n.LengthSquared() > 1e-24 {
			return n.Normalize()
		}
		u += (0.5 - u) * 1e-3
		v += (0.5 - v) * 1e-3
	}
	return core.NewVec3(0, 1, 0)
}

// split cuts the piece at u = v = 1/2 and returns the four quarters
func (sp *subPatch) split() [4]*subPatch {
	// Halve every column along v, then every row of both halves along u
	var lowV, highV [16]core.Vec3
	for j := 0; j < 4; j++ {
		left, right := splitCurve(sp.control[j], sp.control[4+j], sp.control[8+j], sp.control[12+j])
		for i := 0; i < 4; i++ {
			lowV[4*i+j], highV[4*i+j] = left[i], right[i]
		}
	}

	kU, kV := sp.kU/2, sp.kV/2
	var children [4]*subPatch
	for half, rows := range [2]*[16]core.Vec3{&lowV, &highV} {
		var lowU, highU [16]core.Vec3
		for i := 0; i < 4; i++ {
			left, right := splitCurve(rows[4*i], rows[4*i+1], rows[4*i+2], rows[4*i+3])
			copy(lowU[4*i:4*i+4], left[:])
			copy(highU[4*i:4*i+4], right[:])
		}
		bV := sp.bV + float64(half)*kV
		children[2*half] = &subPatch{control: lowU, bounds: controlBounds(&lowU), depth: sp.depth + 1, kU: kU, bU: sp.bU, kV: kV, bV: bV}
		children[2*half+1] = &subPatch{control: highU, bounds: controlBounds(&highU), depth: sp.depth + 1, kU: kU, bU: sp.bU + kU, kV: kV, bV: bV}
	}
	return children
}

// splitCurve splits a cubic Bezier curve at t = 1/2 (de Casteljau)
func splitCurve(p0, p1, p2, p3 core.Vec3) ([4]core.Vec3, [4]core.Vec3) {
	mid := func(a, b core.Vec3) core.Vec3 { return a.Add(b).Multiply(0.5) }
	p01, p12, p23 := mid(p0, p1), mid(p1, p2), mid(p2, p3)
	p012, p123 := mid(p01, p12), mid(p12, p23)
	center := mid(p012, p123)
	return [4]core.Vec3{p0, p01, p012, center}, [4]core.Vec3{center, p123, p23, p3}
}

func curvePoint(p0, p1, p2, p3 core.Vec3, t float64) core.Vec3 {
	s := 1 - t
	return p0.Multiply(s * s * s).
		Add(p1.Multiply(3 * t * s * s)).
		Add(p2.Multiply(3 * t * t * s)).
		Add(p3.Multiply(t * t * t))
}

func curveDeriv(p0, p1, p2, p3 core.Vec3, t float64) core.Vec3 {
	s := 1 - t
	return p1.Subtract(p0).Multiply(3 * s * s).
		Add(p2.Subtract(p1).Multiply(6 * s * t)).
		Add(p3.Subtract(p2).Multiply(3 * t * t))
}

// rowsAt evaluates every row at u, giving the control points of the v curve
func rowsAt(c *[16]core.Vec3, u float64) (core.Vec3, core.Vec3, core.Vec3, core.Vec3) {
	return curvePoint(c[0], c[1], c[2], c[3], u),
		curvePoint(c[4], c[5], c[6], c[7], u),
		curvePoint(c[8], c[9], c[10], c[11], u),
		curvePoint(c[12], c[13], c[14], c[15], u)
}

// columnsAt evaluates every column at v, giving the control points of the u curve
func columnsAt(c *[16]core.Vec3, v float64) (core.Vec3, core.Vec3, core.Vec3, core.Vec3) {
	return curvePoint(c[0], c[4], c[8], c[12], v),
		curvePoint(c[1], c[5], c[9], c[13], v),
		curvePoint(c[2], c[6], c[10], c[14], v),
		curvePoint(c[3], c[7], c[11], c[15], v)
}

func patchPoint(c *[16]core.Vec3, u, v float64) core.Vec3 {
	q0, q1, q2, q3 := rowsAt(c, u)
	return curvePoint(q0, q1, q2, q3, v)
}

func patchDerivU(c *[16]core.Vec3, u, v float64) core.Vec3 {
	q0, q1, q2, q3 := columnsAt(c, v)
	return curveDeriv(q0, q1, q2, q3, u)
}

func patchDerivV(c *[16]core.Vec3, u, v float64) core.Vec3 {
	q0, q1, q2, q3 := rowsAt(c, u)
	return curveDeriv(q0, q1, q2, q3, v)
}

// controlBounds returns the box around the control points, slightly padded
// so flat pieces keep a usable slab
func controlBounds(c *[16]core.Vec3) core.AABB {
	box := core.EmptyAABB()
	for _, p := range c {
		box = box.Extend(p)
	}
	pad := core.NewVec3(core.Epsilon, core.Epsilon, core.Epsilon)
	box.Min = box.Min.Subtract(pad)
	box.Max = box.Max.Add(pad)
	return box
}
