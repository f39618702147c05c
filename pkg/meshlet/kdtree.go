package meshlet

import (
	"sort"

	"github.com/Faultbox/meshlod/pkg/math"
)

const kdLeafSize = 8

type kdNode struct {
	axis   int8 // -1 for leaves
	split  float32
	left   int32
	right  int32
	parent int32
	start  int32 // leaf item range
	end    int32
	live   int32
}

// kdTree answers nearest-live-point queries over triangle centroids while
// triangles are being consumed.
type kdTree struct {
	nodes   []kdNode
	items   []uint32
	points  []math.Vec3
	leafOf  []int32
	removed []bool
}

func newKDTree(points []math.Vec3) *kdTree {
	t := &kdTree{
		items:   make([]uint32, len(points)),
		points:  points,
		leafOf:  make([]int32, len(points)),
		removed: make([]bool, len(points)),
	}
	for i := range t.items {
		t.items[i] = uint32(i)
	}
	if len(points) > 0 {
		t.build(0, len(points), -1)
	}
	return t
}

func axisOf(p math.Vec3, axis int8) float32 {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

func (t *kdTree) build(lo, hi int, parent int32) int32 {
	id := int32(len(t.nodes))
	t.nodes = append(t.nodes, kdNode{axis: -1, parent: parent, live: int32(hi - lo)})

	bounds := math.EmptyAABB()
	for _, it := range t.items[lo:hi] {
		bounds.Extend(t.points[it])
	}
	ext := bounds.Extent()
	var axis int8
	switch {
	case ext.X >= ext.Y && ext.X >= ext.Z:
		axis = 0
	case ext.Y >= ext.Z:
		axis = 1
	default:
		axis = 2
	}

	if hi-lo <= kdLeafSize || axisOf(ext, axis) == 0 {
		t.nodes[id].start = int32(lo)
		t.nodes[id].end = int32(hi)
		for _, it := range t.items[lo:hi] {
			t.leafOf[it] = id
		}
		return id
	}

	span := t.items[lo:hi]
	sort.Slice(span, func(i, j int) bool {
		a, b := axisOf(t.points[span[i]], axis), axisOf(t.points[span[j]], axis)
		if a != b {
			return a < b
		}
		return span[i] < span[j]
	})
	mid := lo + (hi-lo)/2

	t.nodes[id].axis = axis
	t.nodes[id].split = axisOf(t.points[t.items[mid]], axis)
	left := t.build(lo, mid, id)
	right := t.build(mid, hi, id)
	t.nodes[id].left = left
	t.nodes[id].right = right
	return id
}

func (t *kdTree) remove(item uint32) {
	if t.removed[item] {
		return
	}
	t.removed[item] = true
	for n := t.leafOf[item]; n >= 0; n = t.nodes[n].parent {
		t.nodes[n].live--
	}
}

// nearest returns the live item closest to p, or -1 when none remain.
func (t *kdTree) nearest(p math.Vec3) int {
	if len(t.nodes) == 0 {
		return -1
	}
	best := -1
	bestDist := float32(0)
	t.search(0, p, &best, &bestDist)
	return best
}

func (t *kdTree) search(n int32, p math.Vec3, best *int, bestDist *float32) {
	node := &t.nodes[n]
	if node.live == 0 {
		return
	}
	if node.axis < 0 {
		for _, it := range t.items[node.start:node.end] {
			if t.removed[it] {
				continue
			}
			d := t.points[it].Sub(p).LengthSquared()
			if *best < 0 || d < *bestDist || (d == *bestDist && int(it) < *best) {
				*best = int(it)
				*bestDist = d
			}
		}
		return
	}

	delta := axisOf(p, node.axis) - node.split
	first, second := node.left, node.right
	if delta >= 0 {
		first, second = node.right, node.left
	}
	t.search(first, p, best, bestDist)
	if *best < 0 || delta*delta <= *bestDist {
		t.search(second, p, best, bestDist)
	}
}
