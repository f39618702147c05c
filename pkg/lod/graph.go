package lod

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Graph errors.
var (
	ErrInvalidEdge  = errors.New("invalid lod graph edge")
	ErrNonMonotonic = errors.New("lod error decreases from child to parent")
	ErrCyclicGraph  = errors.New("lod graph has a cycle")
)

// NodeID identifies a node of a Graph.
type NodeID uint32

// Node is one meshlet in the LOD DAG.
type Node struct {
	Error        float32
	MeshletIndex uint32
	Level        uint32
}

// Edge links a coarse parent to a finer child it replaces.
type Edge struct {
	Parent NodeID
	Child  NodeID
}

// Graph is an arena of nodes and parent to child edges.
type Graph struct {
	Nodes []Node
	Edges []Edge

	children [][]NodeID
	parents  [][]NodeID
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// AddNode appends a node and returns its id.
func (g *Graph) AddNode(n Node) NodeID {
	id := NodeID(len(g.Nodes))
	g.Nodes = append(g.Nodes, n)
	g.children = append(g.children, nil)
	g.parents = append(g.parents, nil)
	return id
}

// Link records that parent replaces child.
func (g *Graph) Link(parent, child NodeID) {
	g.Edges = append(g.Edges, Edge{Parent: parent, Child: child})
	g.children[parent] = append(g.children[parent], child)
	g.parents[child] = append(g.parents[child], parent)
}

// Children returns the nodes a parent replaces.
func (g *Graph) Children(id NodeID) []NodeID {
	if int(id) >= len(g.children) {
		return nil
	}
	return g.children[id]
}

// Parents returns the nodes that replace id.
func (g *Graph) Parents(id NodeID) []NodeID {
	if int(id) >= len(g.parents) {
		return nil
	}
	return g.parents[id]
}

// Roots returns the nodes without parents, in id order.
func (g *Graph) Roots() []NodeID {
	var out []NodeID
	for id := range g.Nodes {
		if len(g.Parents(NodeID(id))) == 0 {
			out = append(out, NodeID(id))
		}
	}
	return out
}

// Validate checks that every edge joins two distinct existing nodes, that
// error never decreases from child to parent, and that the graph is acyclic.
func (g *Graph) Validate() error {
	dg := simple.NewDirectedGraph()
	for id := range g.Nodes {
		dg.AddNode(simple.Node(id))
	}
	for _, e := range g.Edges {
		if int(e.Parent) >= len(g.Nodes) || int(e.Child) >= len(g.Nodes) || e.Parent == e.Child {
			return fmt.Errorf("%w: %d -> %d with %d nodes", ErrInvalidEdge, e.Parent, e.Child, len(g.Nodes))
		}
		parent, child := g.Nodes[e.Parent], g.Nodes[e.Child]
		if parent.Error < child.Error {
			return fmt.Errorf("%w: node %d (%f) -> node %d (%f)", ErrNonMonotonic, e.Parent, parent.Error, e.Child, child.Error)
		}
		dg.SetEdge(dg.NewEdge(simple.Node(e.Parent), simple.Node(e.Child)))
	}
	if _, err := topo.Sort(dg); err != nil {
		return fmt.Errorf("%w: %w", ErrCyclicGraph, err)
	}
	return nil
}
