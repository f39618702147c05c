package meshio

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chewxy/math32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/meshlod/pkg/lod"
	"github.com/Faultbox/meshlod/pkg/math"
	"github.com/Faultbox/meshlod/pkg/meshgen"
)

func testMesh() *Mesh {
	m := NewMesh()
	grid := meshgen.Grid(4, 4, 4, 0.5)
	cube := meshgen.Cube(1)
	m.AddSubMesh("grid", grid.Vertices, grid.Indices)
	m.AddSubMesh("cube", cube.Vertices, cube.Indices)
	return m
}

func cubeDocument() (*gltf.Document, *Mesh) {
	m := NewMesh()
	cube := meshgen.Cube(1)
	m.AddSubMesh("cube", cube.Vertices, cube.Indices)
	return m.Document(), m
}

// setTranslation turns n.Matrix into a translation matrix.
func setTranslation(n *gltf.Node, x, y, z float32) {
	translation(&n.Matrix, x, y, z)
}

func translation[T math.Float](m *[16]T, x, y, z float32) {
	*m = [16]T{0: 1, 5: 1, 10: 1, 15: 1, 12: T(x), 13: T(y), 14: T(z)}
}

func TestAddSubMesh(t *testing.T) {
	m := testMesh()
	if len(m.SubMeshes) != 2 {
		t.Fatalf("sub-meshes = %d, want 2", len(m.SubMeshes))
	}
	cube := m.SubMeshes[1]
	if cube.VertexStartOffset != 25 || cube.VertexCount != 8 {
		t.Errorf("cube vertex range = %d+%d, want 25+8", cube.VertexStartOffset, cube.VertexCount)
	}
	if cube.IndexStartOffset != 96 || cube.IndexCount != 36 {
		t.Errorf("cube index range = %d+%d, want 96+36", cube.IndexStartOffset, cube.IndexCount)
	}
	if m.TriangleCount() != 32+12 {
		t.Errorf("TriangleCount = %d, want 44", m.TriangleCount())
	}
	ext := m.Extent()
	if ext[0] != 5 || ext[2] != 5 {
		t.Errorf("Extent = %v, want x and z 5", ext)
	}
	if m.Bounds.Min[0] != -1 || m.Bounds.Max[0] != 4 {
		t.Errorf("Bounds x = [%v, %v], want [-1, 4]", m.Bounds.Min[0], m.Bounds.Max[0])
	}
}

func TestEmptyMeshExtent(t *testing.T) {
	if ext := NewMesh().Extent(); ext != [3]float64{} {
		t.Errorf("Extent = %v, want zero", ext)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, ext := range []string{".glb", ".gltf"} {
		t.Run(ext, func(t *testing.T) {
			want := testMesh()
			path := filepath.Join(t.TempDir(), "mesh"+ext)
			if err := want.Save(path); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			if len(got.SubMeshes) != len(want.SubMeshes) {
				t.Fatalf("sub-meshes = %d, want %d", len(got.SubMeshes), len(want.SubMeshes))
			}
			for i := range want.SubMeshes {
				if got.SubMeshes[i] != want.SubMeshes[i] {
					t.Errorf("range %d = %+v, want %+v", i, got.SubMeshes[i], want.SubMeshes[i])
				}
				if got.Names[i] != want.Names[i] {
					t.Errorf("name %d = %q, want %q", i, got.Names[i], want.Names[i])
				}
			}
			for i := range want.Indices {
				if got.Indices[i] != want.Indices[i] {
					t.Fatalf("index %d = %d, want %d", i, got.Indices[i], want.Indices[i])
				}
			}
			for i, v := range want.Vertices {
				g := got.Vertices[i]
				if g.Position != v.Position {
					t.Fatalf("position %d = %v, want %v", i, g.Position, v.Position)
				}
				if g.TexCoord != v.TexCoord {
					t.Errorf("texcoord %d = %v, want %v", i, g.TexCoord, v.TexCoord)
				}
				if d := math.V3(g.Normal).Distance(math.V3(v.Normal)); d > 1e-5 {
					t.Errorf("normal %d = %v, want %v", i, g.Normal, v.Normal)
				}
			}
			if got.Bounds != want.Bounds {
				t.Errorf("Bounds = %v, want %v", got.Bounds, want.Bounds)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.glb")); err == nil {
		t.Fatal("expected error")
	}
}

func TestFromDocumentNodeTransform(t *testing.T) {
	doc, want := cubeDocument()
	setTranslation(doc.Nodes[0], 5, 0, 0)

	got, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	for i, v := range want.Vertices {
		p := v.Position.Add(math.Vec3{X: 5})
		if got.Vertices[i].Position != p {
			t.Errorf("vertex %d = %v, want %v", i, got.Vertices[i].Position, p)
		}
	}
}

func TestFromDocumentHierarchy(t *testing.T) {
	doc, want := cubeDocument()
	parent := &gltf.Node{Name: "parent", Children: []uint32{0}}
	setTranslation(parent, 0, 2, 0)
	setTranslation(doc.Nodes[0], 1, 0, 0)
	doc.Nodes = append(doc.Nodes, parent)
	doc.Scenes[0].Nodes = []uint32{1}

	got, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if len(got.SubMeshes) != 1 {
		t.Fatalf("sub-meshes = %d, want 1", len(got.SubMeshes))
	}
	offset := math.Vec3{X: 1, Y: 2}
	for i, v := range want.Vertices {
		if p := v.Position.Add(offset); got.Vertices[i].Position != p {
			t.Errorf("vertex %d = %v, want %v", i, got.Vertices[i].Position, p)
		}
	}
}

func TestFromDocumentWithoutScenes(t *testing.T) {
	doc, _ := cubeDocument()
	doc.Scenes = nil
	doc.Scene = nil

	got, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if len(got.SubMeshes) != 1 {
		t.Errorf("sub-meshes = %d, want 1", len(got.SubMeshes))
	}
}

func TestFromDocumentMirrorFlipsWinding(t *testing.T) {
	doc, want := cubeDocument()
	setTranslation(doc.Nodes[0], 0, 0, 0)
	doc.Nodes[0].Matrix[0] = -1

	got, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	for i := 0; i < len(want.Indices); i += 3 {
		w := want.Indices[i : i+3]
		g := got.Indices[i : i+3]
		if g[0] != w[0] || g[1] != w[2] || g[2] != w[1] {
			t.Fatalf("triangle %d = %v, want %v reversed", i/3, g, w)
		}
	}

	// Mirrored positions with flipped winding still face outwards
	v := got.Vertices
	tri := got.Indices[:3]
	n := math.TriangleNormal(v[tri[0]].Position, v[tri[1]].Position, v[tri[2]].Position)
	if n.Z >= 0 {
		t.Errorf("-Z face normal = %v, want negative Z", n)
	}
}

func TestFromDocumentSequentialIndices(t *testing.T) {
	doc, _ := cubeDocument()
	doc.Meshes[0].Primitives[0].Indices = nil

	got, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if len(got.Indices) != len(got.Vertices) {
		t.Fatalf("indices = %d, want %d", len(got.Indices), len(got.Vertices))
	}
	for i, idx := range got.Indices {
		if idx != uint32(i) {
			t.Fatalf("index %d = %d", i, idx)
		}
	}
}

func TestFromDocumentErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(doc *gltf.Document)
		want   error
	}{
		{"lines only", func(doc *gltf.Document) { doc.Meshes[0].Primitives[0].Mode = gltf.PrimitiveLines }, ErrNoGeometry},
		{"no position", func(doc *gltf.Document) { delete(doc.Meshes[0].Primitives[0].Attributes, gltf.POSITION) }, ErrNoGeometry},
		{"bad accessor", func(doc *gltf.Document) { doc.Meshes[0].Primitives[0].Attributes[gltf.POSITION] = 99 }, ErrAccessor},
		{"bad mesh", func(doc *gltf.Document) { doc.Nodes[0].Mesh = gltf.Index(7) }, ErrAccessor},
		{"bad node", func(doc *gltf.Document) { doc.Scenes[0].Nodes = []uint32{3} }, ErrAccessor},
		{"node cycle", func(doc *gltf.Document) { doc.Nodes[0].Children = []uint32{0} }, ErrNodeCycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, _ := cubeDocument()
			tt.modify(doc)
			_, err := FromDocument(doc)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func processGrid(t *testing.T) (*lod.MeshResult, meshgen.Mesh) {
	t.Helper()
	m := NewMesh()
	grid := meshgen.Grid(40, 40, 40, 0.5)
	m.AddSubMesh("grid", grid.Vertices, grid.Indices)
	res, err := lod.ProcessMesh(context.Background(), m.Vertices, m.Indices, m.SubMeshes, lod.DefaultOptions())
	if err != nil {
		t.Fatalf("ProcessMesh: %v", err)
	}
	if len(res.SubMeshes[0].Levels) < 2 {
		t.Fatalf("levels = %d, want at least 2", len(res.SubMeshes[0].Levels))
	}
	return res, grid
}

func TestLevelDocument(t *testing.T) {
	res, grid := processGrid(t)
	levels := len(res.SubMeshes[0].Levels)

	doc, err := LevelDocument(res, -1)
	if err != nil {
		t.Fatalf("LevelDocument: %v", err)
	}
	if len(doc.Meshes) != levels {
		t.Fatalf("meshes = %d, want %d", len(doc.Meshes), levels)
	}
	if len(doc.Scenes[0].Nodes) != levels {
		t.Errorf("scene nodes = %d, want %d", len(doc.Scenes[0].Nodes), levels)
	}

	prevTriangles := -1
	for l, mesh := range doc.Meshes {
		if len(mesh.Primitives) != 1 {
			t.Fatalf("LOD%d primitives = %d, want 1", l, len(mesh.Primitives))
		}
		prim := mesh.Primitives[0]
		if _, ok := prim.Attributes[gltf.COLOR_0]; !ok {
			t.Errorf("LOD%d has no vertex colors", l)
		}
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			t.Fatalf("ReadIndices: %v", err)
		}
		triangles := len(indices) / 3
		if l == 0 && triangles != grid.TriangleCount() {
			t.Errorf("LOD0 triangles = %d, want %d", triangles, grid.TriangleCount())
		}
		if prevTriangles >= 0 && triangles >= prevTriangles {
			t.Errorf("LOD%d triangles = %d, not below %d", l, triangles, prevTriangles)
		}
		prevTriangles = triangles
	}
}

func TestLevelDocumentSingleLevel(t *testing.T) {
	res, _ := processGrid(t)
	levels := len(res.SubMeshes[0].Levels)

	doc, err := LevelDocument(res, 1)
	if err != nil {
		t.Fatalf("LevelDocument: %v", err)
	}
	if len(doc.Meshes) != 1 || doc.Meshes[0].Name != "LOD1" {
		t.Fatalf("meshes = %d, want only LOD1", len(doc.Meshes))
	}

	if _, err := LevelDocument(res, levels); !errors.Is(err, ErrNoLevel) {
		t.Errorf("err = %v, want ErrNoLevel", err)
	}
	if _, err := LevelDocument(&lod.MeshResult{}, -1); !errors.Is(err, ErrNoLevel) {
		t.Errorf("empty result err = %v, want ErrNoLevel", err)
	}
}

func TestSaveLevels(t *testing.T) {
	res, _ := processGrid(t)
	path := filepath.Join(t.TempDir(), "levels.glb")
	if err := SaveLevels(path, res, -1); err != nil {
		t.Fatalf("SaveLevels: %v", err)
	}
	doc, err := gltf.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(doc.Meshes) != len(res.SubMeshes[0].Levels) {
		t.Errorf("meshes = %d, want %d", len(doc.Meshes), len(res.SubMeshes[0].Levels))
	}

	// Every level reloads as one sub-mesh
	m, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if len(m.SubMeshes) != len(doc.Meshes) {
		t.Errorf("sub-meshes = %d, want %d", len(m.SubMeshes), len(doc.Meshes))
	}
}

func TestMeshletColor(t *testing.T) {
	for i := uint32(0); i < 64; i++ {
		c := meshletColor(i)
		for ch, v := range c {
			if v < 0.25 || v > 1 || math32.IsNaN(v) {
				t.Fatalf("color %d channel %d = %v out of range", i, ch, v)
			}
		}
		if c == meshletColor(i+1) {
			t.Errorf("colors %d and %d are equal", i, i+1)
		}
	}
}
