package renderer

import (
	"math"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

// kdNode is one node of the index. Every node owns exactly one HitPoint and
// the nodes are stored in preorder, so a child always has a larger index than
// its parent.
type kdNode struct {
	hitPoint    int32 // index into sites and stats
	axis        int8
	left, right int32 // child node indices, -1 when absent
}

// SpatialIndex is a kd-tree over HitPoint positions that answers the
// inverted query "which HitPoints contain this photon". Each HitPoint carries
// its own radius, and every node caches the largest squared radius in its
// subtree so a far subtree is skipped when the splitting plane lies outside
// all of its spheres.
//
// The tree shape is fixed at construction. Between rounds only the radii
// change, and RefreshBounds restores the cached maxima.
type SpatialIndex struct {
	sites []HitPoint
	stats []HitPointStats
	nodes []kdNode
	root  int32
	locks shardLocks
}

// NewSpatialIndex builds a balanced tree over hitPoints. Every HitPoint
// starts with a squared radius of initialRadius² and no flux.
func NewSpatialIndex(hitPoints []HitPoint, initialRadius float64) *SpatialIndex {
	idx := &SpatialIndex{
		sites: hitPoints,
		stats: make([]HitPointStats, len(hitPoints)),
		nodes: make([]kdNode, 0, len(hitPoints)),
		root:  -1,
	}

	r2 := initialRadius * initialRadius
	for i := range idx.stats {
		idx.stats[i].R2 = r2
	}

	if len(hitPoints) == 0 {
		return idx
	}

	order := make([]int32, len(hitPoints))
	bounds := core.EmptyAABB()
	for i, hp := range hitPoints {
		order[i] = int32(i)
		bounds = bounds.Extend(hp.Position)
	}

	idx.root = idx.build(order, bounds)
	idx.RefreshBounds()
	return idx
}

// build creates the subtree for order and returns its node index. The bounds
// are narrowed by the split planes rather than recomputed.
func (idx *SpatialIndex) build(order []int32, bounds core.AABB) int32 {
	if len(order) == 0 {
		return -1
	}

	axis := bounds.LongestAxis()
	mid := len(order) / 2
	idx.selectKth(order, axis, mid)

	ni := int32(len(idx.nodes))
	idx.nodes = append(idx.nodes, kdNode{hitPoint: order[mid], axis: int8(axis), left: -1, right: -1})

	lower, upper := bounds.Split(axis, idx.sites[order[mid]].Position.Axis(axis))
	left := idx.build(order[:mid], lower)
	right := idx.build(order[mid+1:], upper)

	idx.nodes[ni].left = left
	idx.nodes[ni].right = right
	return ni
}

// selectKth partially sorts order along axis so that order[k] holds the k-th
// smallest coordinate, with no larger value before it and no smaller after.
func (idx *SpatialIndex) selectKth(order []int32, axis, k int) {
	coord := func(i int) float64 { return idx.sites[order[i]].Position.Axis(axis) }

	lo, hi := 0, len(order)-1
	for lo < hi {
		pivot := coord((lo + hi) / 2)
		i, j := lo, hi
		for i <= j {
			for coord(i) < pivot {
				i++
			}
			for coord(j) > pivot {
				j--
			}
			if i <= j {
				order[i], order[j] = order[j], order[i]
				i++
				j--
			}
		}
		switch {
		case k <= j:
			hi = j
		case k >= i:
			lo = i
		default:
			return
		}
	}
}

// RefreshBounds recomputes every node's MaxR2 from its own R2 and its
// children's. Nodes are visited in reverse preorder so children come first.
func (idx *SpatialIndex) RefreshBounds() {
	for i := len(idx.nodes) - 1; i >= 0; i-- {
		node := idx.nodes[i]
		m := idx.stats[node.hitPoint].R2
		if node.left >= 0 {
			m = math.Max(m, idx.stats[idx.nodes[node.left].hitPoint].MaxR2)
		}
		if node.right >= 0 {
			m = math.Max(m, idx.stats[idx.nodes[node.right].hitPoint].MaxR2)
		}
		idx.stats[node.hitPoint].MaxR2 = m
	}
}

// visit calls fn for every HitPoint whose sphere strictly contains pos
func (idx *SpatialIndex) visit(ni int32, pos core.Vec3, fn func(hp int32)) {
	for ni >= 0 {
		node := &idx.nodes[ni]
		site := &idx.sites[node.hitPoint]

		if site.Position.Subtract(pos).LengthSquared() < idx.stats[node.hitPoint].R2 {
			fn(node.hitPoint)
		}

		axis := int(node.axis)
		diff := pos.Axis(axis) - site.Position.Axis(axis)
		near, far := node.left, node.right
		if diff >= 0 {
			near, far = far, near
		}
		if far >= 0 && diff*diff < idx.stats[idx.nodes[far].hitPoint].MaxR2 {
			idx.visit(far, pos, fn)
		}
		ni = near
	}
}

// Deposit adds the photon's energy to every HitPoint on the photon's object
// whose sphere contains the photon position, and returns how many matched.
// Deposit may be called from many goroutines at once.
func (idx *SpatialIndex) Deposit(photon Photon) int {
	matched := 0
	idx.visit(idx.root, photon.Position, func(hp int32) {
		if idx.sites[hp].Object != photon.Object {
			return
		}
		idx.locks.lock(hp)
		st := &idx.stats[hp]
		st.NNew++
		st.Phi = st.Phi.Add(photon.Energy)
		idx.locks.unlock(hp)
		matched++
	})
	return matched
}

// Query returns the indices of the HitPoints on object whose sphere contains pos
func (idx *SpatialIndex) Query(pos core.Vec3, object core.Object) []int {
	var found []int
	idx.visit(idx.root, pos, func(hp int32) {
		if idx.sites[hp].Object == object {
			found = append(found, int(hp))
		}
	})
	return found
}

// UpdateAfterRound applies the progressive radius reduction to every HitPoint
// and refreshes the subtree bounds. It must not run concurrently with Deposit.
func (idx *SpatialIndex) UpdateAfterRound(alpha float64) {
	for i := range idx.stats {
		idx.stats[i].Update(alpha)
	}
	idx.RefreshBounds()
}

// Len returns the number of indexed HitPoints
func (idx *SpatialIndex) Len() int { return len(idx.sites) }

// HitPoint returns the i-th HitPoint
func (idx *SpatialIndex) HitPoint(i int) HitPoint { return idx.sites[i] }

// Stats returns the statistics of the i-th HitPoint
func (idx *SpatialIndex) Stats(i int) HitPointStats { return idx.stats[i] }

// SetStats overwrites the accumulated statistics of the i-th HitPoint.
// Callers must follow a batch of SetStats with RefreshBounds.
func (idx *SpatialIndex) SetStats(i int, r2 float64, phi core.Vec3, nAccum float64) {
	idx.stats[i].R2 = r2
	idx.stats[i].Phi = phi
	idx.stats[i].NAccum = nAccum
	idx.stats[i].NNew = 0
}

// MeanRadius2 returns the average squared radius over all HitPoints
func (idx *SpatialIndex) MeanRadius2() float64 {
	if len(idx.stats) == 0 {
		return 0
	}
	sum := 0.0
	for i := range idx.stats {
		sum += idx.stats[i].R2
	}
	return sum / float64(len(idx.stats))
}
