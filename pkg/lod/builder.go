package lod

import (
	"fmt"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/meshlod/pkg/math"
	"github.com/Faultbox/meshlod/pkg/meshlet"
)

// StopReason tells why the level loop of a sub-mesh ended.
type StopReason int

// Stop reasons.
const (
	StopNone StopReason = iota
	// StopSingleCluster: the last level has at most one meshlet.
	StopSingleCluster
	// StopNoProgress: splitting did not lower the meshlet count.
	StopNoProgress
	// StopSimplifyStalled: a group could not be simplified.
	StopSimplifyStalled
	// StopPartitionFailed: grouping returned an error.
	StopPartitionFailed
	// StopMaxLevels: the configured level cap was reached.
	StopMaxLevels
	// StopInvalidInput: the sub-mesh geometry was rejected.
	StopInvalidInput
)

func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "none"
	case StopSingleCluster:
		return "single-cluster"
	case StopNoProgress:
		return "no-progress"
	case StopSimplifyStalled:
		return "simplify-stalled"
	case StopPartitionFailed:
		return "partition-failed"
	case StopMaxLevels:
		return "max-levels"
	case StopInvalidInput:
		return "invalid-input"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

// MarshalText lets reports print stop reasons by name.
func (r StopReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Abnormal reports whether the loop ended before the mesh was reduced as far
// as the geometry allows.
func (r StopReason) Abnormal() bool {
	return r == StopPartitionFailed || r == StopInvalidInput
}

// Level is one level of detail. Level 0 is the full-resolution mesh.
type Level struct {
	MeshletOffset uint32
	MeshletCount  uint32
	NodeIDs       []NodeID
}

// SubMeshResult holds every level of one sub-mesh. Meshlet offsets index
// Indices and VertexIndices, whose values index the vertices given to
// BuildSubMesh.
type SubMeshResult struct {
	Meshlets      []meshlet.Meshlet
	Indices       []uint32
	VertexIndices []uint32
	Levels        []Level
	Graph         *Graph
	Stop          StopReason
	Err           error
}

// validateIndices checks an index span against a vertex count.
func validateIndices(vertexCount int, indices []uint32) error {
	if len(indices)%3 != 0 {
		return fmt.Errorf("%w: got %d indices", meshlet.ErrIndexCount, len(indices))
	}
	for i, idx := range indices {
		if int(idx) >= vertexCount {
			return fmt.Errorf("%w: index %d at position %d, %d vertices", meshlet.ErrIndexOutOfRange, idx, i, vertexCount)
		}
	}
	return nil
}

// positionRemap maps every vertex to the first vertex with the same position.
// Grouping and simplification run on remapped indices so that attribute
// seams do not split the surface.
func positionRemap(vertices []meshlet.Vertex) []uint32 {
	first := make(map[math.Vec3]uint32, len(vertices))
	remap := make([]uint32, len(vertices))
	for i, v := range vertices {
		r, ok := first[v.Position]
		if !ok {
			r = uint32(i)
			first[v.Position] = r
		}
		remap[i] = r
	}
	return remap
}

func applyRemap(remap, indices []uint32) []uint32 {
	out := make([]uint32, len(indices))
	for i, idx := range indices {
		out[i] = remap[idx]
	}
	return out
}

// levelData is the meshlet set of the level being built on.
type levelData struct {
	meshlets []meshlet.Meshlet
	indices  []uint32
	nodes    []NodeID
}

// BuildSubMesh clusters a sub-mesh and then repeatedly groups, simplifies
// and splits the newest level until it stops shrinking. Every meshlet of a new
// level is linked to all meshlets of the group it came from.
func BuildSubMesh(vertices []meshlet.Vertex, indices []uint32, opts Options) *SubMeshResult {
	opts = opts.withDefaults()
	log := opts.Logger
	res := &SubMeshResult{Graph: NewGraph()}

	if err := opts.Validate(); err != nil {
		res.Stop, res.Err = StopInvalidInput, err
		return res
	}
	if err := validateIndices(len(vertices), indices); err != nil {
		res.Stop, res.Err = StopInvalidInput, err
		return res
	}
	base, err := meshlet.BuildClusters(vertices, indices, opts.Clustering)
	if err != nil {
		res.Stop, res.Err = StopInvalidInput, err
		return res
	}
	if len(base.Meshlets) == 0 {
		res.Stop = StopSingleCluster
		return res
	}

	remap := positionRemap(vertices)
	prev := res.addLevel(base.Meshlets, base.Indices, base.VertexIndices, nil)
	log.Debug("built base level", zap.Int("meshlets", len(prev.meshlets)))

	for {
		count := len(prev.meshlets)
		if count <= 1 {
			res.Stop = StopSingleCluster
			break
		}
		if opts.MaxLevels > 0 && len(res.Levels) >= opts.MaxLevels {
			res.Stop = StopMaxLevels
			break
		}

		shadow := applyRemap(remap, prev.indices)
		groups, err := GroupClusters(prev.meshlets, shadow, opts)
		if err != nil {
			log.Warn("grouping failed", zap.Int("level", len(res.Levels)), zap.Error(err))
			res.Stop, res.Err = StopPartitionFailed, err
			break
		}

		simplified, err := SimplifyGroups(groups, prev.meshlets, shadow, vertices, opts)
		if err != nil {
			res.Stop, res.Err = StopSimplifyStalled, err
			break
		}
		if stalled := countStalled(simplified); stalled > 0 {
			log.Debug("simplification stalled",
				zap.Int("level", len(res.Levels)),
				zap.Int("groups", len(groups)),
				zap.Int("stalled", stalled))
			res.Stop = StopSimplifyStalled
			break
		}

		split, err := SplitGroups(simplified, vertices, opts)
		if err != nil {
			res.Stop, res.Err = StopNoProgress, err
			break
		}
		if len(split.Meshlets) >= count {
			log.Debug("level did not reduce meshlet count",
				zap.Int("level", len(res.Levels)),
				zap.Int("previous", count),
				zap.Int("next", len(split.Meshlets)))
			res.Stop = StopNoProgress
			break
		}

		next := res.addLevel(split.Meshlets, split.Indices, split.VertexIndices, func(i int) []NodeID {
			members := groups[split.MeshletToGroup[i]].MeshletIndices
			out := make([]NodeID, len(members))
			for k, mi := range members {
				out[k] = prev.nodes[mi]
			}
			return out
		})
		res.stampParents(prev, next, groups, simplified, split.MeshletToGroup)
		log.Debug("built level",
			zap.Int("level", len(res.Levels)-1),
			zap.Int("groups", len(groups)),
			zap.Int("meshlets", len(next.meshlets)))
		prev = next
	}

	// The coarsest level is never replaced.
	for _, id := range res.Levels[len(res.Levels)-1].NodeIDs {
		m := &res.Meshlets[res.Graph.Nodes[id].MeshletIndex]
		m.ParentError = math32.MaxFloat32
		m.ParentCenter = m.Center
		m.ParentRadius = m.Radius
	}
	return res
}

func countStalled(groups []SimplifiedGroup) int {
	n := 0
	for _, g := range groups {
		if g.Stalled {
			n++
		}
	}
	return n
}

// addLevel appends a level to the result, rebasing the meshlet offsets, and
// adds a graph node per meshlet. children returns the nodes a new meshlet
// replaces; it is nil for level 0.
func (r *SubMeshResult) addLevel(meshlets []meshlet.Meshlet, indices, vertexIndices []uint32, children func(i int) []NodeID) levelData {
	level := Level{
		MeshletOffset: uint32(len(r.Meshlets)),
		MeshletCount:  uint32(len(meshlets)),
	}
	indexBase := uint32(len(r.Indices))
	vertexBase := uint32(len(r.VertexIndices))
	levelIndex := uint32(len(r.Levels))

	data := levelData{meshlets: meshlets, indices: indices}
	for i, m := range meshlets {
		id := r.Graph.AddNode(Node{
			Error:        m.ClusterError,
			MeshletIndex: uint32(len(r.Meshlets)),
			Level:        levelIndex,
		})
		if children != nil {
			for _, child := range children(i) {
				r.Graph.Link(id, child)
			}
		}
		level.NodeIDs = append(level.NodeIDs, id)
		data.nodes = append(data.nodes, id)

		m.TriangleOffset += indexBase
		m.VertexOffset += vertexBase
		r.Meshlets = append(r.Meshlets, m)
	}
	r.Indices = append(r.Indices, indices...)
	r.VertexIndices = append(r.VertexIndices, vertexIndices...)
	r.Levels = append(r.Levels, level)
	return data
}

// stampParents records on every meshlet of prev the error and bounds of the
// meshlets that replace it.
func (r *SubMeshResult) stampParents(prev, next levelData, groups []MeshletGroup, simplified []SimplifiedGroup, meshletToGroup []uint32) {
	spheres := make([][]math.Sphere, len(groups))
	for i, gi := range meshletToGroup {
		spheres[gi] = append(spheres[gi], next.meshlets[i].Sphere())
	}
	for gi, g := range groups {
		bounds := math.EnclosingSphere(spheres[gi])
		if len(spheres[gi]) == 0 {
			var members []math.Sphere
			for _, mi := range g.MeshletIndices {
				members = append(members, prev.meshlets[mi].Sphere())
			}
			bounds = math.EnclosingSphere(members)
		}
		for _, mi := range g.MeshletIndices {
			m := &r.Meshlets[r.Graph.Nodes[prev.nodes[mi]].MeshletIndex]
			m.ParentError = simplified[gi].Error
			m.ParentCenter = bounds.Center
			m.ParentRadius = bounds.Radius
		}
	}
}
