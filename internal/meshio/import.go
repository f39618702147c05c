package meshio

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/meshlod/pkg/math"
	"github.com/Faultbox/meshlod/pkg/meshlet"
)

// Load reads a .gltf or .glb file.
func Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return FromDocument(doc)
}

// FromDocument flattens the default scene of doc. Every triangle primitive
// becomes one sub-mesh with world-space positions and normals. Primitives of
// other modes are skipped.
func FromDocument(doc *gltf.Document) (*Mesh, error) {
	out := NewMesh()
	for _, root := range sceneRoots(doc) {
		if err := out.addNode(doc, root, math.Identity(), 0); err != nil {
			return nil, err
		}
	}
	if len(out.SubMeshes) == 0 {
		return nil, ErrNoGeometry
	}
	return out, nil
}

func sceneRoots(doc *gltf.Document) []uint32 {
	if len(doc.Scenes) > 0 {
		scene := 0
		if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
			scene = int(*doc.Scene)
		}
		return doc.Scenes[scene].Nodes
	}

	// Without scenes every top-level node is drawn
	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []uint32
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

// nodeTransform returns the local transform of a node. Zero scale and
// rotation, as left by code that builds nodes without defaults, are read as
// identity.
func nodeTransform(n *gltf.Node) math.Mat4 {
	m := math.Mat4FromSlice(n.Matrix[:])
	if m != (math.Mat4{}) && m != math.Identity() {
		return m
	}
	s := math.Vec3FromSlice(n.Scale[:])
	if s == (math.Vec3{}) {
		s = math.Vec3{X: 1, Y: 1, Z: 1}
	}
	return math.TRS(math.Vec3FromSlice(n.Translation[:]), math.QuatFromSlice(n.Rotation[:]), s)
}

func (m *Mesh) addNode(doc *gltf.Document, id uint32, parent math.Mat4, depth int) error {
	if int(id) >= len(doc.Nodes) {
		return fmt.Errorf("%w: node %d", ErrAccessor, id)
	}
	if depth > len(doc.Nodes) {
		return ErrNodeCycle
	}
	node := doc.Nodes[id]
	world := parent.Mul(nodeTransform(node))

	if node.Mesh != nil {
		if int(*node.Mesh) >= len(doc.Meshes) {
			return fmt.Errorf("%w: mesh %d", ErrAccessor, *node.Mesh)
		}
		mesh := doc.Meshes[*node.Mesh]
		for pi, p := range mesh.Primitives {
			name := mesh.Name
			if len(mesh.Primitives) > 1 {
				name = fmt.Sprintf("%s/%d", mesh.Name, pi)
			}
			if err := m.addPrimitive(doc, p, world, name); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	for _, child := range node.Children {
		if err := m.addNode(doc, child, world, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func accessor(doc *gltf.Document, idx uint32) (*gltf.Accessor, error) {
	if int(idx) >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d of %d", ErrAccessor, idx, len(doc.Accessors))
	}
	return doc.Accessors[idx], nil
}

func (m *Mesh) addPrimitive(doc *gltf.Document, p *gltf.Primitive, world math.Mat4, name string) error {
	if p.Mode != gltf.PrimitiveTriangles {
		return nil
	}
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil
	}
	acr, err := accessor(doc, posIdx)
	if err != nil {
		return err
	}
	positions, err := modeler.ReadPosition(doc, acr, nil)
	if err != nil {
		return fmt.Errorf("reading positions: %w", err)
	}

	var normals [][3]float32
	if idx, ok := p.Attributes[gltf.NORMAL]; ok {
		if acr, err = accessor(doc, idx); err != nil {
			return err
		}
		if normals, err = modeler.ReadNormal(doc, acr, nil); err != nil {
			return fmt.Errorf("reading normals: %w", err)
		}
	}
	var texCoords [][2]float32
	if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		if acr, err = accessor(doc, idx); err != nil {
			return err
		}
		if texCoords, err = modeler.ReadTextureCoord(doc, acr, nil); err != nil {
			return fmt.Errorf("reading texture coordinates: %w", err)
		}
	}

	var indices []uint32
	if p.Indices != nil {
		if acr, err = accessor(doc, *p.Indices); err != nil {
			return err
		}
		if indices, err = modeler.ReadIndices(doc, acr, nil); err != nil {
			return fmt.Errorf("reading indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	vertices := make([]meshlet.Vertex, len(positions))
	for i, pos := range positions {
		v := meshlet.Vertex{Position: world.TransformVec3(math.V3(pos))}
		if i < len(normals) {
			v.Normal = math.V3(world.TransformDirection(normals[i])).Normalize().Array()
		}
		if i < len(texCoords) {
			v.TexCoord = texCoords[i]
		}
		vertices[i] = v
	}

	// Mirroring transforms reverse the winding
	if world.Determinant3x3() < 0 {
		for i := 0; i+2 < len(indices); i += 3 {
			indices[i+1], indices[i+2] = indices[i+2], indices[i+1]
		}
	}

	m.AddSubMesh(name, vertices, indices)
	return nil
}
