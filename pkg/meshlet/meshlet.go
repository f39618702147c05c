// Package meshlet partitions indexed triangle meshes into fixed-capacity
// clusters (meshlets) with bounding sphere and normal cone culling data.
package meshlet

import (
	"errors"
	"fmt"

	"github.com/Faultbox/meshlod/pkg/math"
)

// Hard per-meshlet capacity.
const (
	MaxVertices  = 64
	MaxTriangles = 128
)

// Clustering errors.
var (
	ErrIndexCount      = errors.New("index count is not a multiple of 3")
	ErrIndexOutOfRange = errors.New("index out of vertex range")
	ErrInvalidRange    = errors.New("invalid sub-mesh range")
	ErrInvalidOptions  = errors.New("invalid clustering options")
)

// Vertex is a mesh vertex. Only Position takes part in clustering; every
// other attribute is carried through untouched.
type Vertex struct {
	Position math.Vec3
	Normal   [3]float32
	Tangent  [4]float32
	TexCoord [2]float32
	Joints   [4]uint16
	Weights  [4]float32
}

// SubMeshRange locates one sub-mesh inside the shared vertex and index arrays.
type SubMeshRange struct {
	VertexStartOffset uint32 `yaml:"vertex_start_offset"`
	VertexCount       uint32 `yaml:"vertex_count"`
	IndexStartOffset  uint32 `yaml:"index_start_offset"`
	IndexCount        uint32 `yaml:"index_count"`
}

// Validate checks the range against the sizes of the arrays it points into.
func (r SubMeshRange) Validate(vertexLen, indexLen int) error {
	if uint64(r.VertexStartOffset)+uint64(r.VertexCount) > uint64(vertexLen) {
		return fmt.Errorf("%w: vertices [%d, %d) exceed %d", ErrInvalidRange,
			r.VertexStartOffset, uint64(r.VertexStartOffset)+uint64(r.VertexCount), vertexLen)
	}
	if uint64(r.IndexStartOffset)+uint64(r.IndexCount) > uint64(indexLen) {
		return fmt.Errorf("%w: indices [%d, %d) exceed %d", ErrInvalidRange,
			r.IndexStartOffset, uint64(r.IndexStartOffset)+uint64(r.IndexCount), indexLen)
	}
	return nil
}

// Meshlet is a cluster of at most MaxTriangles triangles referencing at most
// MaxVertices unique vertices.
type Meshlet struct {
	// VertexOffset indexes the first entry of this meshlet in
	// Result.VertexIndices.
	VertexOffset uint32
	VertexCount  uint32
	// TriangleOffset indexes the first index of this meshlet's triangles in
	// Result.Indices.
	TriangleOffset uint32
	TriangleCount  uint32

	Center math.Vec3
	Radius float32

	// ConeAxis is the average facing direction. ConeCutoff is the cosine of
	// the cone half-angle; -1 means the cone covers every direction.
	ConeAxis   math.Vec3
	ConeCutoff float32

	ClusterError float32
	ParentError  float32
	ParentCenter math.Vec3
	ParentRadius float32
}

// Sphere returns the meshlet bounding sphere.
func (m Meshlet) Sphere() math.Sphere {
	return math.Sphere{Center: m.Center, Radius: m.Radius}
}

// IndexCount returns the number of indices the meshlet owns.
func (m Meshlet) IndexCount() uint32 {
	return m.TriangleCount * 3
}

// Options control cluster sizes and the growth heuristic.
type Options struct {
	MaxVertices  int
	MaxTriangles int
	// ConeWeight trades spatial compactness for normal cone tightness.
	// 0 ignores normals.
	ConeWeight float32
}

// DefaultOptions returns the hard capacity limits with no cone weighting.
func DefaultOptions() Options {
	return Options{
		MaxVertices:  MaxVertices,
		MaxTriangles: MaxTriangles,
		ConeWeight:   0,
	}
}

// Validate reports options outside the supported capacity.
func (o Options) Validate() error {
	if o.MaxVertices < 3 || o.MaxVertices > MaxVertices {
		return fmt.Errorf("%w: max vertices %d not in [3, %d]", ErrInvalidOptions, o.MaxVertices, MaxVertices)
	}
	if o.MaxTriangles < 1 || o.MaxTriangles > MaxTriangles {
		return fmt.Errorf("%w: max triangles %d not in [1, %d]", ErrInvalidOptions, o.MaxTriangles, MaxTriangles)
	}
	if o.ConeWeight < 0 || o.ConeWeight > 1 {
		return fmt.Errorf("%w: cone weight %f not in [0, 1]", ErrInvalidOptions, o.ConeWeight)
	}
	return nil
}

// Result holds meshlets and the buffers they index.
type Result struct {
	Meshlets []Meshlet
	// Indices holds the triangles of every meshlet, contiguous per meshlet,
	// as indices into the vertex span given to BuildClusters.
	Indices []uint32
	// VertexIndices lists the unique vertices of every meshlet.
	VertexIndices []uint32
}

// Triangles returns the index slice of meshlet i.
func (r *Result) Triangles(i int) []uint32 {
	m := r.Meshlets[i]
	return r.Indices[m.TriangleOffset : m.TriangleOffset+m.IndexCount()]
}

// Vertices returns the unique vertex list of meshlet i.
func (r *Result) Vertices(i int) []uint32 {
	m := r.Meshlets[i]
	return r.VertexIndices[m.VertexOffset : m.VertexOffset+m.VertexCount]
}
