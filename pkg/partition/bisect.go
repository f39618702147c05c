package partition

import (
	"fmt"
	"sort"
)

// DefaultRefinePasses is the number of swap refinement passes per bisection.
const DefaultRefinePasses = 8

// swapTries bounds how many positive-gain swaps refine tests per step before
// giving up on ones that would disconnect a side.
const swapTries = 8

// Bisection is a Partitioner that recursively splits the graph in two by
// greedy graph growing from a pseudo-peripheral node, then improves every cut
// with Kernighan-Lin style pair swaps. A connected node set always splits
// into two connected halves, so parts of a connected graph are connected.
// Disconnected sets are split along whole components first. Results depend
// only on the graph.
type Bisection struct {
	RefinePasses int
}

// NewBisection returns a Bisection with default refinement.
func NewBisection() *Bisection {
	return &Bisection{RefinePasses: DefaultRefinePasses}
}

// Partition implements Partitioner.
func (b *Bisection) Partition(g *Graph, parts int) ([]int32, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	n := g.NodeCount()
	if n == 0 {
		return nil, fmt.Errorf("%w: empty graph", ErrInvalidGraph)
	}
	if parts < 1 || parts > n {
		return nil, fmt.Errorf("%w: %d parts for %d nodes", ErrInvalidParts, parts, n)
	}

	out := make([]int32, n)
	nodes := make([]int32, n)
	for i := range nodes {
		nodes[i] = int32(i)
	}
	b.split(g, nodes, 0, parts, out)
	return out, nil
}

func (b *Bisection) split(g *Graph, nodes []int32, first, parts int, out []int32) {
	if parts == 1 {
		for _, v := range nodes {
			out[v] = int32(first)
		}
		return
	}
	leftParts := parts / 2
	leftSize := len(nodes) * leftParts / parts

	sub := newSubgraph(g, nodes)
	var inLeft []bool
	if comps := sub.components(); len(comps) > 1 {
		inLeft = packComponents(comps, len(nodes), leftSize)
	} else {
		inLeft = sub.grow(leftSize)
		sub.absorbPockets(inLeft)
		sub.refine(inLeft, b.RefinePasses)
	}

	var left, right []int32
	for i, v := range nodes {
		if inLeft[i] {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	if len(left) != leftSize {
		leftParts = shareParts(parts, len(left), len(right))
	}
	b.split(g, left, first, leftParts, out)
	b.split(g, right, first+leftParts, parts-leftParts, out)
}

// shareParts gives the left side a part count proportional to its size,
// keeping at least one node per part on both sides.
func shareParts(parts, left, right int) int {
	n := left + right
	share := (2*left*parts + n) / (2 * n)
	lo, hi := 1, parts-1
	if parts-right > lo {
		lo = parts - right
	}
	if left < hi {
		hi = left
	}
	if share < lo {
		share = lo
	}
	if share > hi {
		share = hi
	}
	return share
}

// packComponents assigns whole components to the side furthest below its
// target size, largest component first. Both sides end up non-empty.
func packComponents(comps [][]int, n, leftSize int) []bool {
	order := make([]int, len(comps))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(comps[order[a]]) > len(comps[order[b]])
	})

	in := make([]bool, n)
	left, right := 0, 0
	for _, c := range order {
		toLeft := leftSize-left >= (n-leftSize)-right
		for _, i := range comps[c] {
			in[i] = toLeft
		}
		if toLeft {
			left += len(comps[c])
		} else {
			right += len(comps[c])
		}
	}

	if left == 0 || right == 0 {
		smallest := comps[order[len(order)-1]]
		for _, i := range smallest {
			in[i] = left == 0
		}
	}
	return in
}

// subgraph is the induced subgraph over nodes, addressed by local index.
type subgraph struct {
	g     *Graph
	nodes []int32
	local map[int32]int32
}

func newSubgraph(g *Graph, nodes []int32) *subgraph {
	s := &subgraph{g: g, nodes: nodes, local: make(map[int32]int32, len(nodes))}
	for i, v := range nodes {
		s.local[v] = int32(i)
	}
	return s
}

// each calls fn for every neighbor of local node i inside the subgraph.
func (s *subgraph) each(i int, fn func(j int, w int32)) {
	adj, w := s.g.Neighbors(int(s.nodes[i]))
	for k, nb := range adj {
		if j, ok := s.local[nb]; ok {
			fn(int(j), w[k])
		}
	}
}

// flood visits every node reachable from start whose keep entry is true and
// returns them in BFS order. mark records the visit.
func (s *subgraph) flood(start int, keep func(i int) bool, mark []bool) []int {
	mark[start] = true
	queue := []int{start}
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		s.each(cur, func(j int, _ int32) {
			if !mark[j] && keep(j) {
				mark[j] = true
				queue = append(queue, j)
			}
		})
	}
	return queue
}

// components returns the connected components ordered by their lowest node.
func (s *subgraph) components() [][]int {
	seen := make([]bool, len(s.nodes))
	all := func(int) bool { return true }
	var out [][]int
	for i := range s.nodes {
		if !seen[i] {
			out = append(out, s.flood(i, all, seen))
		}
	}
	return out
}

// sideComponents returns the components induced by the nodes with in == side.
func (s *subgraph) sideComponents(in []bool, side bool) [][]int {
	seen := make([]bool, len(s.nodes))
	keep := func(i int) bool { return in[i] == side }
	var out [][]int
	for i := range s.nodes {
		if in[i] == side && !seen[i] {
			out = append(out, s.flood(i, keep, seen))
		}
	}
	return out
}

func (s *subgraph) farthest(start int) int {
	order := s.flood(start, func(int) bool { return true }, make([]bool, len(s.nodes)))
	return order[len(order)-1]
}

// grow returns a connected region of size nodes grown from a pseudo-peripheral
// seed, always absorbing the frontier node most strongly connected to it.
// Ties go to the lowest index.
func (s *subgraph) grow(size int) []bool {
	m := len(s.nodes)
	in := make([]bool, m)
	if size <= 0 {
		return in
	}
	conn := make([]int64, m)
	add := func(i int) {
		in[i] = true
		s.each(i, func(j int, w int32) {
			conn[j] += int64(w)
		})
	}

	add(s.farthest(s.farthest(0)))
	for count := 1; count < size; count++ {
		best := -1
		for i := 0; i < m; i++ {
			if in[i] || conn[i] == 0 {
				continue
			}
			if best < 0 || conn[i] > conn[best] {
				best = i
			}
		}
		if best < 0 {
			break
		}
		add(best)
	}
	return in
}

// absorbPockets moves every component of the outside except the largest into
// the region. Each pocket borders only the region, so the region stays
// connected and the outside becomes connected.
func (s *subgraph) absorbPockets(in []bool) {
	comps := s.sideComponents(in, false)
	if len(comps) < 2 {
		return
	}
	largest := 0
	for c := range comps {
		if len(comps[c]) > len(comps[largest]) {
			largest = c
		}
	}
	for c, comp := range comps {
		if c == largest {
			continue
		}
		for _, i := range comp {
			in[i] = true
		}
	}
}

func (s *subgraph) connected(in []bool, side bool) bool {
	return len(s.sideComponents(in, side)) <= 1
}

type swap struct {
	a, c int
	gain int64
}

// refine swaps pairs across the cut while a swap strictly lowers the cut
// weight, at most passes*len(nodes) times. Sizes are preserved, and so is
// the connectivity of both sides.
func (s *subgraph) refine(in []bool, passes int) {
	m := len(s.nodes)
	d := make([]int64, m) // external minus internal weight
	boundary := make([]bool, m)

	for swaps := 0; swaps < passes*m; swaps++ {
		for i := 0; i < m; i++ {
			d[i] = 0
			boundary[i] = false
			s.each(i, func(j int, w int32) {
				if in[i] != in[j] {
					d[i] += int64(w)
					boundary[i] = true
				} else {
					d[i] -= int64(w)
				}
			})
		}

		var candidates []swap
		for a := 0; a < m; a++ {
			if !in[a] || !boundary[a] {
				continue
			}
			for c := 0; c < m; c++ {
				if in[c] || !boundary[c] {
					continue
				}
				gain := d[a] + d[c] - 2*int64(s.g.Weight(int(s.nodes[a]), int(s.nodes[c])))
				if gain > 0 {
					candidates = append(candidates, swap{a: a, c: c, gain: gain})
				}
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].gain > candidates[j].gain
		})

		applied := false
		for k := 0; k < len(candidates) && k < swapTries; k++ {
			sw := candidates[k]
			in[sw.a], in[sw.c] = false, true
			if s.connected(in, true) && s.connected(in, false) {
				applied = true
				break
			}
			in[sw.a], in[sw.c] = true, false
		}
		if !applied {
			return
		}
	}
}
