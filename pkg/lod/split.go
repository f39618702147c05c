package lod

import (
	"fmt"

	"github.com/Faultbox/meshlod/pkg/meshlet"
)

// SplitResult holds the meshlets of one new level.
type SplitResult struct {
	Meshlets      []meshlet.Meshlet
	Indices       []uint32
	VertexIndices []uint32
	// MeshletToGroup maps every new meshlet to the group it was built from.
	MeshletToGroup []uint32
}

// SplitGroups re-clusters every simplified group. New meshlets carry the
// group error as their ClusterError.
func SplitGroups(groups []SimplifiedGroup, vertices []meshlet.Vertex, opts Options) (*SplitResult, error) {
	out := &SplitResult{}
	for gi, g := range groups {
		res, err := meshlet.BuildClusters(vertices, g.Indices, opts.Clustering)
		if err != nil {
			return nil, fmt.Errorf("%w: group %d: %w", ErrSplit, gi, err)
		}
		indexBase := uint32(len(out.Indices))
		vertexBase := uint32(len(out.VertexIndices))
		for _, m := range res.Meshlets {
			m.TriangleOffset += indexBase
			m.VertexOffset += vertexBase
			m.ClusterError = g.Error
			out.Meshlets = append(out.Meshlets, m)
			out.MeshletToGroup = append(out.MeshletToGroup, uint32(gi))
		}
		out.Indices = append(out.Indices, res.Indices...)
		out.VertexIndices = append(out.VertexIndices, res.VertexIndices...)
	}
	return out, nil
}
