package simplify

import (
	"container/heap"
	stdmath "math"

	"github.com/Faultbox/meshlod/pkg/math"
)

// edgeErrorWeight scales the length of a collapsed edge into a lower bound
// on its error, so collapses inside flat regions still cost something.
const edgeErrorWeight = 1.0 / 32

// Quadric is the default Simplifier. It collapses edges into one of their
// endpoints in order of increasing error, rejecting collapses that flip a
// triangle, break the edge link condition, or orphan a locked vertex. The
// error of a collapse is the quadric distance of the kept endpoint, floored
// at edgeErrorWeight times the edge length.
type Quadric struct{}

// NewQuadric returns the quadric edge-collapse simplifier.
func NewQuadric() *Quadric {
	return &Quadric{}
}

// Simplify implements Simplifier. Triangles with repeated indices are
// dropped. Surviving triangles keep their relative order.
func (s *Quadric) Simplify(positions []math.Vec3, indices []uint32, opts Options) ([]uint32, float32, error) {
	if err := validate(positions, indices, opts); err != nil {
		return nil, 0, err
	}
	m := newCollapseMesh(positions, indices, opts)
	maxErr := m.run(opts.TargetIndexCount, float64(opts.MaxError))
	return m.output(), float32(maxErr), nil
}

// collapse is a candidate edge collapse of from into to.
type collapse struct {
	from, to    uint32
	cost        float64
	fromVersion uint32
	toVersion   uint32
	Index       int
}

// collapseHeap orders candidates by cost, then by vertex ids.
type collapseHeap []*collapse

func (h collapseHeap) Len() int { return len(h) }
func (h collapseHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	if a.from != b.from {
		return a.from < b.from
	}
	return a.to < b.to
}
func (h collapseHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].Index = i
	h[j].Index = j
}

func (h *collapseHeap) Push(x interface{}) {
	c := x.(*collapse)
	c.Index = len(*h)
	*h = append(*h, c)
}

func (h *collapseHeap) Pop() interface{} {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	c.Index = -1
	*h = old[:n-1]
	return c
}

// collapseMesh is the working state of one Simplify call, over vertices
// compacted to the ones the index list references.
type collapseMesh struct {
	global    []uint32 // local vertex -> input vertex
	positions []math.Vec3
	locked    []bool
	removed   []bool
	version   []uint32
	quadrics  []quadric
	vertTris  [][]int32

	tris [][3]uint32
	dead []bool
	live int
}

func newCollapseMesh(positions []math.Vec3, indices []uint32, opts Options) *collapseMesh {
	m := &collapseMesh{}
	local := make(map[uint32]uint32, len(indices)/2)
	toLocal := func(idx uint32) uint32 {
		l, ok := local[idx]
		if !ok {
			l = uint32(len(m.global))
			local[idx] = l
			m.global = append(m.global, idx)
			m.positions = append(m.positions, positions[idx])
			m.locked = append(m.locked, opts.Locked != nil && opts.Locked[idx])
		}
		return l
	}

	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		if a == b || b == c || a == c {
			continue
		}
		m.tris = append(m.tris, [3]uint32{toLocal(a), toLocal(b), toLocal(c)})
	}

	n := len(m.global)
	m.removed = make([]bool, n)
	m.version = make([]uint32, n)
	m.quadrics = make([]quadric, n)
	m.vertTris = make([][]int32, n)
	m.dead = make([]bool, len(m.tris))
	m.live = len(m.tris)

	for t, tri := range m.tris {
		q := planeQuadric(m.positions[tri[0]], m.positions[tri[1]], m.positions[tri[2]])
		for _, v := range tri {
			m.quadrics[v].add(q)
			m.vertTris[v] = append(m.vertTris[v], int32(t))
		}
	}

	if opts.LockBorder {
		counts := make(map[uint64]int, len(m.tris)*3/2)
		for _, tri := range m.tris {
			for k := 0; k < 3; k++ {
				counts[edgeKey(tri[k], tri[(k+1)%3])]++
			}
		}
		for key, count := range counts {
			if count != 2 {
				m.locked[key>>32] = true
				m.locked[uint32(key)] = true
			}
		}
	}
	return m
}

func edgeKey(a, b uint32) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

func (m *collapseMesh) run(targetIndexCount int, maxError float64) float64 {
	h := &collapseHeap{}
	heap.Init(h)

	seen := make(map[uint64]bool, len(m.tris)*3/2)
	for _, tri := range m.tris {
		for k := 0; k < 3; k++ {
			a, b := tri[k], tri[(k+1)%3]
			key := edgeKey(a, b)
			if seen[key] {
				continue
			}
			seen[key] = true
			m.push(h, a, b)
		}
	}

	var result float64
	for h.Len() > 0 && m.live*3 > targetIndexCount {
		c := heap.Pop(h).(*collapse)
		if m.removed[c.from] || m.removed[c.to] ||
			m.version[c.from] != c.fromVersion || m.version[c.to] != c.toVersion {
			continue
		}
		if c.cost > maxError {
			break
		}
		if !m.valid(c.from, c.to) {
			continue
		}
		m.apply(c.from, c.to)
		result = stdmath.Max(result, c.cost)
		for _, w := range m.neighbors(c.to) {
			m.push(h, c.to, w)
		}
	}
	return result
}

// push queues the cheaper allowed direction of edge (a, b).
func (m *collapseMesh) push(h *collapseHeap, a, b uint32) {
	if a > b {
		a, b = b, a
	}
	if m.locked[a] && m.locked[b] {
		return
	}
	q := m.quadrics[a].plus(m.quadrics[b])
	floor := float64(m.positions[a].Sub(m.positions[b]).Length()) * edgeErrorWeight

	var best *collapse
	if !m.locked[a] {
		best = &collapse{from: a, to: b, cost: stdmath.Max(q.distance(m.positions[b]), floor)}
	}
	if !m.locked[b] {
		cost := stdmath.Max(q.distance(m.positions[a]), floor)
		if best == nil || cost < best.cost {
			best = &collapse{from: b, to: a, cost: cost}
		}
	}
	best.fromVersion = m.version[best.from]
	best.toVersion = m.version[best.to]
	heap.Push(h, best)
}

// neighbors returns the vertices sharing a live triangle with v, in first
// encounter order.
func (m *collapseMesh) neighbors(v uint32) []uint32 {
	var out []uint32
	for _, t := range m.vertTris[v] {
		if m.dead[t] {
			continue
		}
		for _, w := range m.tris[t] {
			if w != v && !containsVertex(out, w) {
				out = append(out, w)
			}
		}
	}
	return out
}

func containsVertex(list []uint32, v uint32) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func triHas(tri [3]uint32, v uint32) bool {
	return tri[0] == v || tri[1] == v || tri[2] == v
}

func (m *collapseMesh) liveTriCount(v uint32) int {
	n := 0
	for _, t := range m.vertTris[v] {
		if !m.dead[t] {
			n++
		}
	}
	return n
}

// valid reports whether collapsing from into to keeps the mesh well formed.
func (m *collapseMesh) valid(from, to uint32) bool {
	var dying []int32
	for _, t := range m.vertTris[from] {
		if !m.dead[t] && triHas(m.tris[t], to) {
			dying = append(dying, t)
		}
	}
	if len(dying) == 0 {
		return false
	}

	// Link condition: the endpoints may share at most two neighbors.
	common := 0
	toNeighbors := m.neighbors(to)
	for _, w := range m.neighbors(from) {
		if containsVertex(toNeighbors, w) {
			common++
		}
	}
	if common > 2 {
		return false
	}

	for _, t := range dying {
		for _, x := range m.tris[t] {
			if x == from || x == to || !m.locked[x] {
				continue
			}
			lost := 0
			for _, d := range dying {
				if triHas(m.tris[d], x) {
					lost++
				}
			}
			if m.liveTriCount(x) <= lost {
				return false
			}
		}
	}

	target := m.positions[to]
	for _, t := range m.vertTris[from] {
		if m.dead[t] || triHas(m.tris[t], to) {
			continue
		}
		tri := m.tris[t]
		p := [3]math.Vec3{m.positions[tri[0]], m.positions[tri[1]], m.positions[tri[2]]}
		before := math.TriangleNormal(p[0], p[1], p[2])
		if before.LengthSquared() == 0 {
			continue
		}
		for k := range tri {
			if tri[k] == from {
				p[k] = target
			}
		}
		after := math.TriangleNormal(p[0], p[1], p[2])
		if before.Dot(after) <= 0 {
			return false
		}
	}
	return true
}

func (m *collapseMesh) apply(from, to uint32) {
	for _, t := range m.vertTris[from] {
		if m.dead[t] {
			continue
		}
		tri := &m.tris[t]
		if triHas(*tri, to) {
			m.dead[t] = true
			m.live--
			continue
		}
		for k := range tri {
			if tri[k] == from {
				tri[k] = to
			}
		}
		m.vertTris[to] = append(m.vertTris[to], t)
	}

	kept := m.vertTris[to][:0]
	for _, t := range m.vertTris[to] {
		if !m.dead[t] {
			kept = append(kept, t)
		}
	}
	m.vertTris[to] = kept
	m.vertTris[from] = nil
	m.removed[from] = true
	m.quadrics[to].add(m.quadrics[from])
	m.version[to]++
}

func (m *collapseMesh) output() []uint32 {
	out := make([]uint32, 0, m.live*3)
	for t, tri := range m.tris {
		if m.dead[t] {
			continue
		}
		out = append(out, m.global[tri[0]], m.global[tri[1]], m.global[tri[2]])
	}
	return out
}
