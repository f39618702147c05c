package lod

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/meshlod/pkg/math"
	"github.com/Faultbox/meshlod/pkg/meshlet"
	"github.com/Faultbox/meshlod/pkg/simplify"
)

// SimplifiedGroup is the merged and simplified triangle list of one group.
type SimplifiedGroup struct {
	Indices []uint32
	// Error is the object-space error of the group, never less than the
	// error of any member meshlet.
	Error float32
	// Stalled is set when simplification removed no triangles.
	Stalled bool
}

// SharedVertices marks every vertex referenced by meshlets of more than one
// group. These vertices are locked so that neighboring groups still meet
// after simplification.
func SharedVertices(groups []MeshletGroup, meshlets []meshlet.Meshlet, indices []uint32, vertexCount int) []bool {
	owner := make([]int32, vertexCount)
	for i := range owner {
		owner[i] = -1
	}
	shared := make([]bool, vertexCount)
	for gi, g := range groups {
		for _, mi := range g.MeshletIndices {
			m := meshlets[mi]
			for _, v := range indices[m.TriangleOffset : m.TriangleOffset+m.IndexCount()] {
				switch owner[v] {
				case -1:
					owner[v] = int32(gi)
				case int32(gi):
				default:
					shared[v] = true
				}
			}
		}
	}
	return shared
}

// SimplifyGroups merges the triangles of every group and simplifies them to
// SimplifyRatio of their index count. Vertices shared with other groups keep
// their position.
func SimplifyGroups(groups []MeshletGroup, meshlets []meshlet.Meshlet, indices []uint32, vertices []meshlet.Vertex, opts Options) ([]SimplifiedGroup, error) {
	opts = opts.withDefaults()
	positions := make([]math.Vec3, len(vertices))
	for i, v := range vertices {
		positions[i] = v.Position
	}
	maxError := opts.TargetError * simplify.Scale(positions)
	locked := SharedVertices(groups, meshlets, indices, len(vertices))

	out := make([]SimplifiedGroup, len(groups))
	for gi, g := range groups {
		var merged []uint32
		var memberError float32
		for _, mi := range g.MeshletIndices {
			m := meshlets[mi]
			merged = append(merged, indices[m.TriangleOffset:m.TriangleOffset+m.IndexCount()]...)
			memberError = math32.Max(memberError, m.ClusterError)
		}

		target := int(float32(len(merged))*opts.SimplifyRatio) / 3 * 3
		simplified, errValue, err := opts.Simplifier.Simplify(positions, merged, simplify.Options{
			TargetIndexCount: target,
			MaxError:         maxError,
			Locked:           locked,
			LockBorder:       opts.LockBorder,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: group %d: %w", ErrSimplify, gi, err)
		}
		out[gi] = SimplifiedGroup{
			Indices: simplified,
			Error:   math32.Max(errValue, memberError),
			Stalled: len(simplified) == len(merged),
		}
	}
	return out, nil
}
