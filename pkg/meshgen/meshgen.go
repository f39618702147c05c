// Package meshgen builds procedural triangle meshes used as pipeline inputs
// by tests and the command-line tool.
package meshgen

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/meshlod/pkg/math"
	"github.com/Faultbox/meshlod/pkg/meshlet"
)

// Mesh is a single indexed triangle list.
type Mesh struct {
	Vertices []meshlet.Vertex
	Indices  []uint32
}

// TriangleCount returns the number of triangles.
func (m Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Positions returns the vertex positions.
func (m Mesh) Positions() []math.Vec3 {
	out := make([]math.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = v.Position
	}
	return out
}

// Grid returns a cols x rows quad grid on the XZ plane spanning size units
// along X, split into 2*cols*rows triangles. A non-zero wave displaces Y by
// wave * sin(x) * cos(z), which gives the surface curvature.
func Grid(cols, rows int, size, wave float32) Mesh {
	var m Mesh
	step := size / float32(cols)
	for z := 0; z <= rows; z++ {
		for x := 0; x <= cols; x++ {
			px := float32(x) * step
			pz := float32(z) * step
			py := wave * math32.Sin(px) * math32.Cos(pz)
			m.Vertices = append(m.Vertices, meshlet.Vertex{
				Position: math.Vec3{X: px, Y: py, Z: pz},
				Normal:   [3]float32{0, 1, 0},
				TexCoord: [2]float32{float32(x) / float32(cols), float32(z) / float32(rows)},
			})
		}
	}
	stride := uint32(cols + 1)
	for z := 0; z < rows; z++ {
		for x := 0; x < cols; x++ {
			i0 := uint32(z)*stride + uint32(x)
			i1 := i0 + 1
			i2 := i0 + stride
			i3 := i2 + 1
			m.Indices = append(m.Indices, i0, i2, i1, i1, i2, i3)
		}
	}
	return m
}

// Cube returns an axis-aligned cube of 8 shared vertices and 12 triangles,
// wound counter-clockwise seen from outside.
func Cube(half float32) Mesh {
	var m Mesh
	for i := 0; i < 8; i++ {
		p := math.Vec3{X: -half, Y: -half, Z: -half}
		if i&1 != 0 {
			p.X = half
		}
		if i&2 != 0 {
			p.Y = half
		}
		if i&4 != 0 {
			p.Z = half
		}
		m.Vertices = append(m.Vertices, meshlet.Vertex{Position: p, Normal: p.Normalize().Array()})
	}
	m.Indices = []uint32{
		0, 2, 1, 1, 2, 3, // -Z
		4, 5, 6, 5, 7, 6, // +Z
		0, 1, 4, 1, 5, 4, // -Y
		2, 6, 3, 3, 6, 7, // +Y
		0, 4, 2, 2, 4, 6, // -X
		1, 3, 5, 3, 7, 5, // +X
	}
	return m
}

// Sphere returns a closed UV sphere centered on the origin with rings
// latitude bands and segments longitude steps, wound counter-clockwise seen
// from outside. Each pole is a single vertex. rings must be at least 2 and
// segments at least 3.
func Sphere(rings, segments int, radius float32) Mesh {
	var m Mesh
	vertex := func(theta, phi, u, v float32) {
		n := math.Vec3{
			X: math32.Sin(theta) * math32.Cos(phi),
			Y: math32.Cos(theta),
			Z: math32.Sin(theta) * math32.Sin(phi),
		}
		m.Vertices = append(m.Vertices, meshlet.Vertex{
			Position: n.Scale(radius),
			Normal:   n.Array(),
			TexCoord: [2]float32{u, v},
		})
	}

	vertex(0, 0, 0.5, 0)
	for r := 1; r < rings; r++ {
		theta := math32.Pi * float32(r) / float32(rings)
		for s := 0; s < segments; s++ {
			phi := 2 * math32.Pi * float32(s) / float32(segments)
			vertex(theta, phi, float32(s)/float32(segments), float32(r)/float32(rings))
		}
	}
	vertex(math32.Pi, 0, 0.5, 1)

	south := uint32(len(m.Vertices) - 1)
	ring := func(r, s int) uint32 {
		return uint32(1 + (r-1)*segments + s%segments)
	}
	for s := 0; s < segments; s++ {
		m.Indices = append(m.Indices, 0, ring(1, s+1), ring(1, s))
	}
	for r := 1; r < rings-1; r++ {
		for s := 0; s < segments; s++ {
			a0, a1 := ring(r, s), ring(r, s+1)
			b0, b1 := ring(r+1, s), ring(r+1, s+1)
			m.Indices = append(m.Indices, a0, a1, b1, a0, b1, b0)
		}
	}
	for s := 0; s < segments; s++ {
		m.Indices = append(m.Indices, south, ring(rings-1, s), ring(rings-1, s+1))
	}
	return m
}

// Translate returns a copy of m moved by offset.
func Translate(m Mesh, offset math.Vec3) Mesh {
	out := Mesh{
		Vertices: make([]meshlet.Vertex, len(m.Vertices)),
		Indices:  append([]uint32(nil), m.Indices...),
	}
	for i, v := range m.Vertices {
		v.Position = v.Position.Add(offset)
		out.Vertices[i] = v
	}
	return out
}

// Merge concatenates meshes into one triangle list, rebasing indices.
func Merge(meshes ...Mesh) Mesh {
	var out Mesh
	for _, m := range meshes {
		base := uint32(len(out.Vertices))
		out.Vertices = append(out.Vertices, m.Vertices...)
		for _, idx := range m.Indices {
			out.Indices = append(out.Indices, base+idx)
		}
	}
	return out
}
