package meshio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chewxy/math32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/meshlod/pkg/lod"
	"github.com/Faultbox/meshlod/pkg/meshlet"
)

const generator = "meshlod"

// Save writes m as .glb or .gltf depending on the extension of path.
func (m *Mesh) Save(path string) error {
	return save(m.Document(), path)
}

// Document returns a glTF document holding every sub-mesh of m as its own
// mesh and node.
func (m *Mesh) Document() *gltf.Document {
	doc := newDocument()
	for i, r := range m.SubMeshes {
		vertices := m.Vertices[r.VertexStartOffset : r.VertexStartOffset+r.VertexCount]
		indices := m.Indices[r.IndexStartOffset : r.IndexStartOffset+r.IndexCount]

		positions := make([][3]float32, len(vertices))
		normals := make([][3]float32, len(vertices))
		texCoords := make([][2]float32, len(vertices))
		for j, v := range vertices {
			positions[j] = v.Position.Array()
			normals[j] = v.Normal
			texCoords[j] = v.TexCoord
		}

		prim := &gltf.Primitive{
			Attributes: map[string]uint32{
				gltf.POSITION:   uint32(modeler.WritePosition(doc, positions)),
				gltf.NORMAL:     uint32(modeler.WriteNormal(doc, normals)),
				gltf.TEXCOORD_0: uint32(modeler.WriteTextureCoord(doc, texCoords)),
			},
			Indices:  gltf.Index(uint32(modeler.WriteIndices(doc, append([]uint32(nil), indices...)))),
			Material: gltf.Index(0),
		}
		name := fmt.Sprintf("submesh%d", i)
		if i < len(m.Names) && m.Names[i] != "" {
			name = m.Names[i]
		}
		addMeshNode(doc, &gltf.Mesh{Name: name, Primitives: []*gltf.Primitive{prim}}, name)
	}
	return doc
}

// LevelDocument returns a document with one mesh per LOD level of res, each
// meshlet painted in its own vertex color. Levels are laid out side by side
// along X. level < 0 exports every level, otherwise only the given one.
func LevelDocument(res *lod.MeshResult, level int) (*gltf.Document, error) {
	levels := 0
	for _, sm := range res.SubMeshes {
		levels = max(levels, len(sm.Levels))
	}
	if levels == 0 || level >= levels {
		return nil, fmt.Errorf("%w: %d of %d", ErrNoLevel, level, levels)
	}

	first, last := 0, levels-1
	if level >= 0 {
		first, last = level, level
	}
	spacing := layoutSpacing(res.Vertices)

	doc := newDocument()
	for l := first; l <= last; l++ {
		offset := spacing * float32(l-first)
		mesh := &gltf.Mesh{Name: fmt.Sprintf("LOD%d", l)}
		for _, sm := range res.SubMeshes {
			if l >= len(sm.Levels) {
				continue
			}
			lv := sm.Levels[l]
			prim := levelPrimitive(doc, res, lv.MeshletOffset, lv.MeshletCount, offset)
			if prim != nil {
				mesh.Primitives = append(mesh.Primitives, prim)
			}
		}
		if len(mesh.Primitives) > 0 {
			addMeshNode(doc, mesh, mesh.Name)
		}
	}
	return doc, nil
}

// SaveLevels writes LevelDocument(res, level) to path.
func SaveLevels(path string, res *lod.MeshResult, level int) error {
	doc, err := LevelDocument(res, level)
	if err != nil {
		return err
	}
	return save(doc, path)
}

// levelPrimitive unpacks count meshlets starting at first. Vertices are
// duplicated per meshlet so that every meshlet keeps a flat color.
func levelPrimitive(doc *gltf.Document, res *lod.MeshResult, first, count uint32, offsetX float32) *gltf.Primitive {
	var (
		positions [][3]float32
		normals   [][3]float32
		colors    [][4]float32
		indices   []uint32
	)
	for mi := first; mi < first+count; mi++ {
		m := res.Meshlets[mi]
		local := res.VertexIndices[m.VertexOffset : m.VertexOffset+m.VertexCount]
		base := uint32(len(positions))
		color := meshletColor(mi)
		for _, v := range local {
			p := res.Vertices[v].Position.Array()
			p[0] += offsetX
			positions = append(positions, p)
			normals = append(normals, res.Vertices[v].Normal)
			colors = append(colors, color)
		}
		for _, idx := range res.Indices[m.TriangleOffset : m.TriangleOffset+m.IndexCount()] {
			indices = append(indices, base+localIndex(local, idx))
		}
	}
	if len(indices) == 0 {
		return nil
	}
	return &gltf.Primitive{
		Attributes: map[string]uint32{
			gltf.POSITION: uint32(modeler.WritePosition(doc, positions)),
			gltf.NORMAL:   uint32(modeler.WriteNormal(doc, normals)),
			gltf.COLOR_0:  uint32(modeler.WriteColor(doc, colors)),
		},
		Indices:  gltf.Index(uint32(modeler.WriteIndices(doc, indices))),
		Material: gltf.Index(0),
	}
}

func localIndex(local []uint32, v uint32) uint32 {
	for i, u := range local {
		if u == v {
			return uint32(i)
		}
	}
	panic(fmt.Sprintf("meshio: vertex %d missing from meshlet vertex list", v))
}

// meshletColor spreads hues by the golden ratio so neighbouring meshlets
// rarely share a color.
func meshletColor(i uint32) [4]float32 {
	h := math32.Mod(float32(i)*0.618034, 1) * 6
	x := 1 - math32.Abs(math32.Mod(h, 2)-1)
	var r, g, b float32
	switch int(h) {
	case 0:
		r, g = 1, x
	case 1:
		r, g = x, 1
	case 2:
		g, b = 1, x
	case 3:
		g, b = x, 1
	case 4:
		r, b = x, 1
	default:
		r, b = 1, x
	}
	const lo, span = 0.25, 0.75
	return [4]float32{lo + span*r, lo + span*g, lo + span*b, 1}
}

func layoutSpacing(vertices []meshlet.Vertex) float32 {
	if len(vertices) == 0 {
		return 0
	}
	lo, hi := vertices[0].Position.X, vertices[0].Position.X
	for _, v := range vertices[1:] {
		lo = min(lo, v.Position.X)
		hi = max(hi, v.Position.X)
	}
	return (hi - lo) * 1.25
}

func newDocument() *gltf.Document {
	doc := gltf.NewDocument()
	doc.Asset.Generator = generator
	doc.Materials = []*gltf.Material{{
		Name: "vertex-color",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{1, 1, 1, 1},
			MetallicFactor:  gltf.Float(0),
			RoughnessFactor: gltf.Float(1),
		},
		AlphaMode: gltf.AlphaOpaque,
	}}
	return doc
}

func addMeshNode(doc *gltf.Document, mesh *gltf.Mesh, name string) {
	doc.Meshes = append(doc.Meshes, mesh)
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: name, Mesh: gltf.Index(uint32(len(doc.Meshes) - 1))})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)-1))
}

func save(doc *gltf.Document, path string) error {
	var err error
	if strings.EqualFold(filepath.Ext(path), ".glb") {
		err = gltf.SaveBinary(doc, path)
	} else {
		// A text file has no binary chunk, so buffers travel as data URIs
		for _, b := range doc.Buffers {
			b.EmbeddedResource()
		}
		err = gltf.Save(doc, path)
	}
	if err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
