package lod

import (
	"fmt"
	"sort"

	"github.com/Faultbox/meshlod/pkg/meshlet"
	"github.com/Faultbox/meshlod/pkg/partition"
)

// MeshletGroup is a set of meshlets simplified together. Indices are sorted.
type MeshletGroup struct {
	MeshletIndices []uint32
}

func edgeKey(a, b uint32) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

// BuildAdjacency returns the meshlet adjacency graph. Two meshlets are
// adjacent when they reference the same undirected vertex edge, and the edge
// weight is the number of such shared edges. Edges used by a single meshlet
// are boundaries and contribute nothing.
func BuildAdjacency(meshlets []meshlet.Meshlet, indices []uint32) *partition.Graph {
	edgeMeshlets := make(map[uint64][]uint32)
	for mi, m := range meshlets {
		tris := indices[m.TriangleOffset : m.TriangleOffset+m.IndexCount()]
		for t := 0; t+2 < len(tris); t += 3 {
			for k := 0; k < 3; k++ {
				key := edgeKey(tris[t+k], tris[t+(k+1)%3])
				owners := edgeMeshlets[key]
				if len(owners) > 0 && owners[len(owners)-1] == uint32(mi) {
					continue
				}
				edgeMeshlets[key] = append(owners, uint32(mi))
			}
		}
	}

	weights := make([]map[uint32]int32, len(meshlets))
	for _, owners := range edgeMeshlets {
		for i := 0; i < len(owners); i++ {
			for j := i + 1; j < len(owners); j++ {
				a, b := owners[i], owners[j]
				if weights[a] == nil {
					weights[a] = make(map[uint32]int32)
				}
				if weights[b] == nil {
					weights[b] = make(map[uint32]int32)
				}
				weights[a][b]++
				weights[b][a]++
			}
		}
	}

	g := &partition.Graph{XAdj: make([]int32, 0, len(meshlets)+1)}
	for _, nb := range weights {
		g.XAdj = append(g.XAdj, int32(len(g.Adjacency)))
		keys := make([]uint32, 0, len(nb))
		for k := range nb {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, k := range keys {
			g.Adjacency = append(g.Adjacency, int32(k))
			g.Weights = append(g.Weights, nb[k])
		}
	}
	g.XAdj = append(g.XAdj, int32(len(g.Adjacency)))
	return g
}

// GroupClusters partitions meshlets into ceil(n / GroupSize) groups of
// mutually adjacent meshlets. Fewer than 2*GroupSize meshlets form a single
// group. Empty parts are dropped.
func GroupClusters(meshlets []meshlet.Meshlet, indices []uint32, opts Options) ([]MeshletGroup, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	n := len(meshlets)
	if n == 0 {
		return nil, nil
	}
	if n < 2*opts.GroupSize {
		all := make([]uint32, n)
		for i := range all {
			all[i] = uint32(i)
		}
		return []MeshletGroup{{MeshletIndices: all}}, nil
	}

	graph := BuildAdjacency(meshlets, indices)
	parts := (n + opts.GroupSize - 1) / opts.GroupSize
	assignment, err := opts.Partitioner.Partition(graph, parts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPartition, err)
	}
	if len(assignment) != n {
		return nil, fmt.Errorf("%w: %d assignments for %d meshlets", ErrPartition, len(assignment), n)
	}

	groups := make([]MeshletGroup, parts)
	for i, p := range assignment {
		if p < 0 || int(p) >= parts {
			return nil, fmt.Errorf("%w: meshlet %d assigned to part %d of %d", ErrPartition, i, p, parts)
		}
		groups[p].MeshletIndices = append(groups[p].MeshletIndices, uint32(i))
	}

	out := groups[:0]
	for _, g := range groups {
		if len(g.MeshletIndices) > 0 {
			out = append(out, g)
		}
	}
	return out, nil
}
