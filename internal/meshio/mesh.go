// Package meshio moves triangle meshes between glTF files and the arrays the
// LOD pipeline works on.
package meshio

import (
	"errors"

	dvec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/Faultbox/meshlod/pkg/meshlet"
)

// Import and export errors.
var (
	ErrNoGeometry = errors.New("no triangle geometry")
	ErrAccessor   = errors.New("invalid accessor reference")
	ErrNodeCycle  = errors.New("node hierarchy has a cycle")
	ErrNoLevel    = errors.New("lod level out of range")
)

// Mesh is a set of sub-meshes packed into shared vertex and index arrays.
// Sub-mesh indices are relative to the sub-mesh's first vertex.
type Mesh struct {
	Vertices  []meshlet.Vertex
	Indices   []uint32
	SubMeshes []meshlet.SubMeshRange
	Names     []string
	Bounds    dvec3.Box
}

// NewMesh returns an empty mesh.
func NewMesh() *Mesh {
	return &Mesh{Bounds: dvec3.MinBox}
}

// AddSubMesh appends a sub-mesh. indices are relative to vertices.
func (m *Mesh) AddSubMesh(name string, vertices []meshlet.Vertex, indices []uint32) {
	m.SubMeshes = append(m.SubMeshes, meshlet.SubMeshRange{
		VertexStartOffset: uint32(len(m.Vertices)),
		VertexCount:       uint32(len(vertices)),
		IndexStartOffset:  uint32(len(m.Indices)),
		IndexCount:        uint32(len(indices)),
	})
	m.Names = append(m.Names, name)
	m.Vertices = append(m.Vertices, vertices...)
	m.Indices = append(m.Indices, indices...)
	for _, v := range vertices {
		p := dvec3.T{float64(v.Position.X), float64(v.Position.Y), float64(v.Position.Z)}
		box := dvec3.Box{Min: p, Max: p}
		m.Bounds.Join(&box)
	}
}

// TriangleCount returns the number of triangles over all sub-meshes.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Extent returns the bounding box size, or zero for an empty mesh.
func (m *Mesh) Extent() [3]float64 {
	if len(m.Vertices) == 0 {
		return [3]float64{}
	}
	return [3]float64{
		m.Bounds.Max[0] - m.Bounds.Min[0],
		m.Bounds.Max[1] - m.Bounds.Min[1],
		m.Bounds.Max[2] - m.Bounds.Min[2],
	}
}
