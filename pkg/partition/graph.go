// Package partition splits weighted undirected graphs into balanced parts
// while minimizing the weight of cut edges.
package partition

import (
	"errors"
	"fmt"
)

// Partitioning errors.
var (
	ErrInvalidGraph = errors.New("invalid graph")
	ErrInvalidParts = errors.New("invalid part count")
)

// Graph is an undirected weighted graph in compressed sparse row form, the
// layout used by METIS: the neighbors of node i are
// Adjacency[XAdj[i]:XAdj[i+1]] with matching Weights. Every edge is stored in
// both directions with the same weight.
type Graph struct {
	XAdj      []int32
	Adjacency []int32
	Weights   []int32
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	if len(g.XAdj) == 0 {
		return 0
	}
	return len(g.XAdj) - 1
}

// Neighbors returns the neighbor list and weights of node i.
func (g *Graph) Neighbors(i int) ([]int32, []int32) {
	lo, hi := g.XAdj[i], g.XAdj[i+1]
	return g.Adjacency[lo:hi], g.Weights[lo:hi]
}

// Weight returns the weight of edge (a, b), or 0 if they are not adjacent.
func (g *Graph) Weight(a, b int) int32 {
	adj, w := g.Neighbors(a)
	for k, n := range adj {
		if int(n) == b {
			return w[k]
		}
	}
	return 0
}

// Validate checks CSR consistency and symmetry.
func (g *Graph) Validate() error {
	n := g.NodeCount()
	if n == 0 {
		if len(g.Adjacency) != 0 {
			return fmt.Errorf("%w: adjacency without nodes", ErrInvalidGraph)
		}
		return nil
	}
	if g.XAdj[0] != 0 || int(g.XAdj[n]) != len(g.Adjacency) {
		return fmt.Errorf("%w: xadj does not span adjacency", ErrInvalidGraph)
	}
	if len(g.Weights) != len(g.Adjacency) {
		return fmt.Errorf("%w: %d weights for %d edges", ErrInvalidGraph, len(g.Weights), len(g.Adjacency))
	}
	for i := 0; i < n; i++ {
		if g.XAdj[i] > g.XAdj[i+1] {
			return fmt.Errorf("%w: xadj decreases at node %d", ErrInvalidGraph, i)
		}
		adj, w := g.Neighbors(i)
		for k, nb := range adj {
			if nb < 0 || int(nb) >= n || int(nb) == i {
				return fmt.Errorf("%w: node %d has neighbor %d", ErrInvalidGraph, i, nb)
			}
			if w[k] <= 0 {
				return fmt.Errorf("%w: edge (%d, %d) has weight %d", ErrInvalidGraph, i, nb, w[k])
			}
			if g.Weight(int(nb), i) != w[k] {
				return fmt.Errorf("%w: edge (%d, %d) is not symmetric", ErrInvalidGraph, i, nb)
			}
		}
	}
	return nil
}

// EdgeCut returns the total weight of edges whose endpoints lie in different
// parts.
func (g *Graph) EdgeCut(parts []int32) int64 {
	var cut int64
	for i := 0; i < g.NodeCount(); i++ {
		adj, w := g.Neighbors(i)
		for k, nb := range adj {
			if int(nb) > i && parts[i] != parts[nb] {
				cut += int64(w[k])
			}
		}
	}
	return cut
}

// Partitioner assigns every node of a graph to one of parts parts.
type Partitioner interface {
	Partition(g *Graph, parts int) ([]int32, error)
}
