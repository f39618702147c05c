package lod_test

import (
	"github.com/Faultbox/meshlod/pkg/lod"
	"github.com/Faultbox/meshlod/pkg/math"
	"github.com/Faultbox/meshlod/pkg/meshgen"
	"github.com/Faultbox/meshlod/pkg/meshlet"
	"github.com/Faultbox/meshlod/pkg/partition"
	"github.com/Faultbox/meshlod/pkg/simplify"
)

// identitySimplifier never removes a triangle.
type identitySimplifier struct{}

func (identitySimplifier) Simplify(_ []math.Vec3, indices []uint32, _ simplify.Options) ([]uint32, float32, error) {
	return append([]uint32(nil), indices...), 0, nil
}

// failingPartitioner always errors.
type failingPartitioner struct{}

func (failingPartitioner) Partition(*partition.Graph, int) ([]int32, error) {
	return nil, partition.ErrInvalidParts
}

func clusters(m meshgen.Mesh) *meshlet.Result {
	res, err := meshlet.BuildClusters(m.Vertices, m.Indices, meshlet.DefaultOptions())
	if err != nil {
		panic(err)
	}
	return res
}

func wavyGrid() meshgen.Mesh {
	return meshgen.Grid(100, 50, 100, 0.5)
}

func twoIslands() (meshgen.Mesh, uint32) {
	a := meshgen.Grid(20, 20, 20, 0)
	b := meshgen.Translate(meshgen.Grid(20, 20, 20, 0), math.Vec3{X: 100})
	return meshgen.Merge(a, b), uint32(len(a.Vertices))
}

// levelTriangles counts the triangles of one level.
func levelTriangles(meshlets []meshlet.Meshlet, l lod.Level) int {
	n := 0
	for _, m := range meshlets[l.MeshletOffset : l.MeshletOffset+l.MeshletCount] {
		n += int(m.TriangleCount)
	}
	return n
}
