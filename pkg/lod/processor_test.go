package lod_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/meshlod/pkg/lod"
	"github.com/Faultbox/meshlod/pkg/math"
	"github.com/Faultbox/meshlod/pkg/meshgen"
	"github.com/Faultbox/meshlod/pkg/meshlet"
)

// threeSubMeshes returns a grid, a cube and a wavy grid packed into shared
// arrays, with sub-mesh indices relative to each sub-mesh's first vertex.
func threeSubMeshes() ([]meshlet.Vertex, []uint32, []meshlet.SubMeshRange) {
	var vertices []meshlet.Vertex
	var indices []uint32
	var ranges []meshlet.SubMeshRange
	for _, m := range []meshgen.Mesh{
		meshgen.Grid(30, 30, 30, 0),
		meshgen.Cube(2),
		meshgen.Grid(40, 20, 40, 0.5),
	} {
		ranges = append(ranges, meshlet.SubMeshRange{
			VertexStartOffset: uint32(len(vertices)),
			VertexCount:       uint32(len(m.Vertices)),
			IndexStartOffset:  uint32(len(indices)),
			IndexCount:        uint32(len(m.Indices)),
		})
		vertices = append(vertices, m.Vertices...)
		indices = append(indices, m.Indices...)
	}
	return vertices, indices, ranges
}

func TestProcessMesh(t *testing.T) {
	vertices, indices, ranges := threeSubMeshes()
	res, err := lod.ProcessMesh(context.Background(), vertices, indices, ranges, lod.DefaultOptions())
	if err != nil {
		t.Fatalf("ProcessMesh: %v", err)
	}
	if err := res.Err(); err != nil {
		t.Fatalf("sub-mesh errors: %v", err)
	}
	if len(res.SubMeshes) != 3 {
		t.Fatalf("got %d sub-meshes", len(res.SubMeshes))
	}

	var meshletTotal uint32
	for i, sm := range res.SubMeshes {
		if sm.MeshletStartOffset != meshletTotal {
			t.Errorf("sub-mesh %d starts at meshlet %d, want %d", i, sm.MeshletStartOffset, meshletTotal)
		}
		meshletTotal += sm.MeshletCount
		if err := sm.Graph.Validate(); err != nil {
			t.Errorf("sub-mesh %d graph: %v", i, err)
		}
		if got := levelTriangles(res.Meshlets, sm.Levels[0]); got != int(sm.Range.IndexCount/3) {
			t.Errorf("sub-mesh %d level 0 has %d triangles, want %d", i, got, sm.Range.IndexCount/3)
		}

		// Every triangle must land on the same positions it came from.
		for _, id := range sm.Levels[0].NodeIDs {
			node := sm.Graph.Nodes[id]
			if node.MeshletIndex < sm.MeshletStartOffset || node.MeshletIndex >= sm.MeshletStartOffset+sm.MeshletCount {
				t.Fatalf("sub-mesh %d node %d points at meshlet %d", i, id, node.MeshletIndex)
			}
			m := res.Meshlets[node.MeshletIndex]
			for _, v := range res.Indices[m.TriangleOffset : m.TriangleOffset+m.IndexCount()] {
				if v < sm.VertexStartOffset || v >= sm.VertexStartOffset+sm.VertexCount {
					t.Fatalf("sub-mesh %d references vertex %d outside its range", i, v)
				}
			}
		}
	}
	if int(meshletTotal) != len(res.Meshlets) {
		t.Errorf("sub-meshes cover %d of %d meshlets", meshletTotal, len(res.Meshlets))
	}
	if res.SubMeshes[1].MeshletCount != 1 {
		t.Errorf("cube has %d meshlets, want 1", res.SubMeshes[1].MeshletCount)
	}
}

func TestProcessMesh_TrianglePositionsPreserved(t *testing.T) {
	cube := meshgen.Cube(1)
	ranges := []meshlet.SubMeshRange{{VertexCount: 8, IndexCount: 36}}
	res, err := lod.ProcessMesh(context.Background(), cube.Vertices, cube.Indices, ranges, lod.DefaultOptions())
	if err != nil {
		t.Fatalf("ProcessMesh: %v", err)
	}

	key := func(a, b, c math.Vec3) [3]math.Vec3 { return [3]math.Vec3{a, b, c} }
	want := map[[3]math.Vec3]int{}
	for i := 0; i < len(cube.Indices); i += 3 {
		want[key(cube.Vertices[cube.Indices[i]].Position, cube.Vertices[cube.Indices[i+1]].Position, cube.Vertices[cube.Indices[i+2]].Position)]++
	}
	got := map[[3]math.Vec3]int{}
	m := res.Meshlets[0]
	tris := res.Indices[m.TriangleOffset : m.TriangleOffset+m.IndexCount()]
	for i := 0; i < len(tris); i += 3 {
		got[key(res.Vertices[tris[i]].Position, res.Vertices[tris[i+1]].Position, res.Vertices[tris[i+2]].Position)]++
	}
	if !reflect.DeepEqual(got, want) {
		t.Error("triangle set changed")
	}
}

func TestProcessMesh_WorkerCountDoesNotChangeResult(t *testing.T) {
	vertices, indices, ranges := threeSubMeshes()
	var results []*lod.MeshResult
	for _, workers := range []int{0, 1, 2, 8} {
		opts := lod.DefaultOptions()
		opts.Workers = workers
		res, err := lod.ProcessMesh(context.Background(), vertices, indices, ranges, opts)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		results = append(results, res)
	}
	for i := 1; i < len(results); i++ {
		if !reflect.DeepEqual(results[0], results[i]) {
			t.Errorf("result %d differs from result 0", i)
		}
	}
}

func TestProcessMesh_InvalidSubMeshIsIsolated(t *testing.T) {
	vertices, indices, ranges := threeSubMeshes()
	ranges[1].IndexCount = 35
	bad := append([]meshlet.SubMeshRange(nil), ranges...)
	bad = append(bad, meshlet.SubMeshRange{VertexStartOffset: 1 << 20})

	res, err := lod.ProcessMesh(context.Background(), vertices, indices, bad, lod.DefaultOptions())
	if err != nil {
		t.Fatalf("ProcessMesh: %v", err)
	}
	if !errors.Is(res.SubMeshes[1].Err, meshlet.ErrIndexCount) {
		t.Errorf("sub-mesh 1 err = %v, want ErrIndexCount", res.SubMeshes[1].Err)
	}
	if !errors.Is(res.SubMeshes[3].Err, meshlet.ErrInvalidRange) {
		t.Errorf("sub-mesh 3 err = %v, want ErrInvalidRange", res.SubMeshes[3].Err)
	}
	for _, i := range []int{1, 3} {
		sm := res.SubMeshes[i]
		if sm.MeshletCount != 0 || sm.Stop != lod.StopInvalidInput {
			t.Errorf("sub-mesh %d: %d meshlets, stop %v", i, sm.MeshletCount, sm.Stop)
		}
	}
	if !errors.Is(res.Err(), meshlet.ErrIndexCount) || !errors.Is(res.Err(), meshlet.ErrInvalidRange) {
		t.Errorf("combined error %v misses a sub-mesh", res.Err())
	}

	good, err := lod.ProcessMesh(context.Background(), vertices, indices, ranges[:1], lod.DefaultOptions())
	if err != nil {
		t.Fatalf("ProcessMesh: %v", err)
	}
	if !reflect.DeepEqual(res.SubMeshes[0].Levels, good.SubMeshes[0].Levels) {
		t.Error("sibling sub-mesh changed by a failing one")
	}
}

func TestProcessMesh_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*lod.Options)
	}{
		{"group size", func(o *lod.Options) { o.GroupSize = 1 }},
		{"ratio", func(o *lod.Options) { o.SimplifyRatio = 1 }},
		{"target error", func(o *lod.Options) { o.TargetError = -1 }},
		{"max levels", func(o *lod.Options) { o.MaxLevels = -1 }},
		{"workers", func(o *lod.Options) { o.Workers = -2 }},
		{"clustering", func(o *lod.Options) { o.Clustering.MaxVertices = 65 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := lod.DefaultOptions()
			tt.modify(&opts)
			_, err := lod.ProcessMesh(context.Background(), nil, nil, nil, opts)
			if !errors.Is(err, lod.ErrInvalidOptions) {
				t.Errorf("got %v, want ErrInvalidOptions", err)
			}
		})
	}
}

func TestProcessMesh_Canceled(t *testing.T) {
	vertices, indices, ranges := threeSubMeshes()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := lod.ProcessMesh(ctx, vertices, indices, ranges, lod.DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestProcessMesh_Logging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	opts := lod.DefaultOptions()
	opts.Logger = zap.New(core)

	vertices, indices, ranges := threeSubMeshes()
	ranges[2].IndexCount = 1
	if _, err := lod.ProcessMesh(context.Background(), vertices, indices, ranges, opts); err != nil {
		t.Fatalf("ProcessMesh: %v", err)
	}
	if n := logs.FilterMessage("processed sub-mesh").Len(); n != 2 {
		t.Errorf("got %d info entries, want 2", n)
	}
	if n := logs.FilterMessage("sub-mesh processing stopped early").Len(); n != 1 {
		t.Errorf("got %d warn entries, want 1", n)
	}
}

func TestWeldVertices(t *testing.T) {
	a := meshlet.Vertex{Position: math.Vec3{X: 1}}
	b := meshlet.Vertex{Position: math.Vec3{Y: 1}}
	seam := meshlet.Vertex{Position: math.Vec3{X: 1}, TexCoord: [2]float32{1, 0}}
	vertices := []meshlet.Vertex{a, b, a, seam, {Position: math.Vec3{Z: 9}}}

	welded, remapped := lod.WeldVertices(vertices, []uint32{2, 1, 0, 3, 1, 0})
	if want := []meshlet.Vertex{a, b, seam}; !reflect.DeepEqual(welded, want) {
		t.Errorf("welded = %v", welded)
	}
	if want := []uint32{0, 1, 0, 2, 1, 0}; !reflect.DeepEqual(remapped, want) {
		t.Errorf("remapped = %v", remapped)
	}
}
