package meshlet

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/meshlod/pkg/math"
)

// BuildClusters partitions a triangle list into meshlets.
//
// Clusters grow one triangle at a time, preferring triangles that add the
// fewest new vertices and then those nearest the running cluster centroid.
// A cluster is closed as soon as no remaining candidate fits both caps.
// Output is a pure function of the input: identical spans produce identical
// meshlets.
func BuildClusters(vertices []Vertex, indices []uint32, opts Options) (*Result, error) {
	res := &Result{}
	if err := opts.Validate(); err != nil {
		return res, err
	}
	if len(indices)%3 != 0 {
		return res, fmt.Errorf("%w: got %d indices", ErrIndexCount, len(indices))
	}
	if len(indices) < 3 {
		return res, nil
	}
	for i, idx := range indices {
		if int(idx) >= len(vertices) {
			return res, fmt.Errorf("%w: index %d at position %d, %d vertices", ErrIndexOutOfRange, idx, i, len(vertices))
		}
	}

	b := newClusterBuilder(vertices, indices, opts)
	b.run(res)
	return res, nil
}

type clusterBuilder struct {
	opts Options

	global    []uint32 // local vertex -> input vertex
	positions []math.Vec3
	tris      [][3]uint32
	centroids []math.Vec3
	normals   []math.Vec3

	vertTriOffsets []int
	vertTris       []uint32

	emitted []bool
	slot    []int32 // local vertex -> position in current meshlet, or -1
	kd      *kdTree

	curVerts    []uint32
	curTris     []uint32
	centroidSum math.Vec3
	normalSum   math.Vec3
	lastCenter  math.Vec3
}

func newClusterBuilder(vertices []Vertex, indices []uint32, opts Options) *clusterBuilder {
	b := &clusterBuilder{opts: opts}

	// Compact the referenced vertices so work scales with the index span
	// rather than the full vertex array.
	local := make(map[uint32]uint32, len(indices)/2)
	b.tris = make([][3]uint32, len(indices)/3)
	for i, idx := range indices {
		l, ok := local[idx]
		if !ok {
			l = uint32(len(b.global))
			local[idx] = l
			b.global = append(b.global, idx)
			b.positions = append(b.positions, vertices[idx].Position)
		}
		b.tris[i/3][i%3] = l
	}

	b.centroids = make([]math.Vec3, len(b.tris))
	b.normals = make([]math.Vec3, len(b.tris))
	for t, tri := range b.tris {
		p0, p1, p2 := b.positions[tri[0]], b.positions[tri[1]], b.positions[tri[2]]
		b.centroids[t] = p0.Add(p1).Add(p2).Scale(1.0 / 3.0)
		b.normals[t] = math.TriangleNormal(p0, p1, p2).Normalize()
	}

	counts := make([]int, len(b.global)+1)
	for _, tri := range b.tris {
		for _, v := range tri {
			counts[v+1]++
		}
	}
	for i := 1; i < len(counts); i++ {
		counts[i] += counts[i-1]
	}
	b.vertTriOffsets = counts
	b.vertTris = make([]uint32, counts[len(counts)-1])
	fill := make([]int, len(b.global))
	for t, tri := range b.tris {
		for _, v := range tri {
			b.vertTris[counts[v]+fill[v]] = uint32(t)
			fill[v]++
		}
	}

	b.emitted = make([]bool, len(b.tris))
	b.slot = make([]int32, len(b.global))
	for i := range b.slot {
		b.slot[i] = -1
	}
	b.kd = newKDTree(b.centroids)
	return b
}

func (b *clusterBuilder) run(res *Result) {
	for remaining := len(b.tris); remaining > 0; remaining-- {
		t := b.bestAdjacent()
		if t < 0 {
			t = b.kd.nearest(b.center())
			if !b.fits(t) {
				b.flush(res)
			}
		}
		b.add(t)
	}
	b.flush(res)
}

func (b *clusterBuilder) center() math.Vec3 {
	if len(b.curTris) == 0 {
		return b.lastCenter
	}
	return b.centroidSum.Scale(1 / float32(len(b.curTris)))
}

func (b *clusterBuilder) newVertices(t int) int {
	n := 0
	for _, v := range b.tris[t] {
		if b.slot[v] < 0 {
			n++
		}
	}
	return n
}

func (b *clusterBuilder) fits(t int) bool {
	return len(b.curTris)+1 <= b.opts.MaxTriangles &&
		len(b.curVerts)+b.newVertices(t) <= b.opts.MaxVertices
}

// bestAdjacent returns the best fitting unemitted triangle sharing a vertex
// with the current meshlet, or -1.
func (b *clusterBuilder) bestAdjacent() int {
	if len(b.curTris) == 0 || len(b.curTris) >= b.opts.MaxTriangles {
		return -1
	}
	center := b.center()
	axis := b.normalSum.Normalize()

	best := -1
	bestNew := 0
	bestCost := float32(0)
	for _, v := range b.curVerts {
		for _, tt := range b.vertTris[b.vertTriOffsets[v]:b.vertTriOffsets[v+1]] {
			t := int(tt)
			if b.emitted[t] {
				continue
			}
			extra := b.newVertices(t)
			if len(b.curVerts)+extra > b.opts.MaxVertices {
				continue
			}
			cost := b.centroids[t].Distance(center)
			if b.opts.ConeWeight > 0 {
				spread := 1 - b.normals[t].Dot(axis)
				cost *= 1 + b.opts.ConeWeight*spread
			}
			if best < 0 || extra < bestNew ||
				(extra == bestNew && (cost < bestCost || (cost == bestCost && t < best))) {
				best, bestNew, bestCost = t, extra, cost
			}
		}
	}
	return best
}

func (b *clusterBuilder) add(t int) {
	for _, v := range b.tris[t] {
		if b.slot[v] < 0 {
			b.slot[v] = int32(len(b.curVerts))
			b.curVerts = append(b.curVerts, v)
		}
	}
	b.curTris = append(b.curTris, uint32(t))
	b.centroidSum = b.centroidSum.Add(b.centroids[t])
	b.normalSum = b.normalSum.Add(b.normals[t])
	b.emitted[t] = true
	b.kd.remove(uint32(t))
}

func (b *clusterBuilder) flush(res *Result) {
	if len(b.curTris) == 0 {
		return
	}

	m := Meshlet{
		VertexOffset:   uint32(len(res.VertexIndices)),
		VertexCount:    uint32(len(b.curVerts)),
		TriangleOffset: uint32(len(res.Indices)),
		TriangleCount:  uint32(len(b.curTris)),
	}
	for _, v := range b.curVerts {
		res.VertexIndices = append(res.VertexIndices, b.global[v])
	}
	for _, t := range b.curTris {
		for _, v := range b.tris[t] {
			res.Indices = append(res.Indices, b.global[v])
		}
	}
	b.computeBounds(&m)
	res.Meshlets = append(res.Meshlets, m)

	b.lastCenter = b.center()
	for _, v := range b.curVerts {
		b.slot[v] = -1
	}
	b.curVerts = b.curVerts[:0]
	b.curTris = b.curTris[:0]
	b.centroidSum = math.Vec3{}
	b.normalSum = math.Vec3{}
}

func (b *clusterBuilder) computeBounds(m *Meshlet) {
	box := math.EmptyAABB()
	for _, v := range b.curVerts {
		box.Extend(b.positions[v])
	}
	m.Center = box.Center()
	for _, v := range b.curVerts {
		m.Radius = math32.Max(m.Radius, b.positions[v].Distance(m.Center))
	}

	var sum math.Vec3
	for _, t := range b.curTris {
		sum = sum.Add(b.normals[t])
	}
	m.ConeAxis = sum.Normalize()
	m.ConeCutoff = -1
	if m.ConeAxis == (math.Vec3{}) {
		return
	}
	cutoff := float32(1)
	for _, t := range b.curTris {
		if b.normals[t] == (math.Vec3{}) {
			continue
		}
		cutoff = math32.Min(cutoff, b.normals[t].Dot(m.ConeAxis))
	}
	m.ConeCutoff = math32.Max(cutoff, -1)
}
