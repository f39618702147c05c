package lod

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/meshlod/pkg/meshlet"
)

// SubMesh describes where one input sub-mesh landed in a MeshResult.
type SubMesh struct {
	Range meshlet.SubMeshRange

	VertexStartOffset        uint32
	VertexCount              uint32
	MeshletStartOffset       uint32
	MeshletCount             uint32
	MeshletIndexStartOffset  uint32
	MeshletVertexStartOffset uint32

	Levels []Level
	Graph  *Graph
	Stop   StopReason
	Err    error
}

// MeshResult is the processed mesh. Every offset and index in it is absolute:
// meshlet offsets index Indices and VertexIndices, their values index
// Vertices, and level offsets and graph nodes index Meshlets.
type MeshResult struct {
	Vertices      []meshlet.Vertex
	Meshlets      []meshlet.Meshlet
	Indices       []uint32
	VertexIndices []uint32
	SubMeshes     []SubMesh
}

// Err combines the errors of all failed sub-meshes.
func (r *MeshResult) Err() error {
	var err error
	for i, sm := range r.SubMeshes {
		if sm.Err != nil {
			err = multierr.Append(err, fmt.Errorf("sub-mesh %d: %w", i, sm.Err))
		}
	}
	return err
}

// subMeshWork is the private output of one sub-mesh worker.
type subMeshWork struct {
	vertices []meshlet.Vertex
	result   *SubMeshResult
	elapsed  time.Duration
}

// ProcessMesh runs the LOD pipeline on every sub-mesh. Sub-meshes are
// processed concurrently and concatenated in input order, so the result does
// not depend on Workers. Invalid geometry fails only its own sub-mesh; the
// returned error is reserved for invalid options and cancellation.
func ProcessMesh(ctx context.Context, vertices []meshlet.Vertex, indices []uint32, subMeshes []meshlet.SubMeshRange, opts Options) (*MeshResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	log := opts.Logger

	work := make([]*subMeshWork, len(subMeshes))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, r := range subMeshes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			work[i] = processSubMesh(vertices, indices, r, opts.withLogger(log.With(zap.Int("submesh", i))))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &MeshResult{SubMeshes: make([]SubMesh, len(subMeshes))}
	for i, w := range work {
		out.SubMeshes[i] = out.append(subMeshes[i], w)
		sm := out.SubMeshes[i]
		fields := []zap.Field{
			zap.Int("submesh", i),
			zap.Int("levels", len(sm.Levels)),
			zap.Uint32("meshlets", sm.MeshletCount),
			zap.Stringer("stop", sm.Stop),
			zap.Duration("elapsed", w.elapsed),
		}
		if sm.Err != nil || sm.Stop.Abnormal() {
			log.Warn("sub-mesh processing stopped early", append(fields, zap.Error(sm.Err))...)
		} else {
			log.Info("processed sub-mesh", fields...)
		}
	}
	return out, nil
}

func (o Options) withLogger(l *zap.Logger) Options {
	o.Logger = l
	return o
}

// processSubMesh welds the vertices of one sub-mesh and builds its levels.
// Indices of a sub-mesh are relative to its first vertex.
func processSubMesh(vertices []meshlet.Vertex, indices []uint32, r meshlet.SubMeshRange, opts Options) *subMeshWork {
	start := time.Now()
	w := &subMeshWork{}
	defer func() { w.elapsed = time.Since(start) }()

	if err := r.Validate(len(vertices), len(indices)); err != nil {
		w.result = &SubMeshResult{Graph: NewGraph(), Stop: StopInvalidInput, Err: err}
		return w
	}
	subVertices := vertices[r.VertexStartOffset : r.VertexStartOffset+r.VertexCount]
	subIndices := indices[r.IndexStartOffset : r.IndexStartOffset+r.IndexCount]
	if err := validateIndices(len(subVertices), subIndices); err != nil {
		w.result = &SubMeshResult{Graph: NewGraph(), Stop: StopInvalidInput, Err: err}
		return w
	}

	welded, remapped := WeldVertices(subVertices, subIndices)
	w.vertices = welded
	w.result = BuildSubMesh(welded, remapped, opts)
	return w
}

// WeldVertices drops unreferenced vertices and merges equal ones. Vertices
// are kept in order of first reference.
func WeldVertices(vertices []meshlet.Vertex, indices []uint32) ([]meshlet.Vertex, []uint32) {
	seen := make(map[meshlet.Vertex]uint32, len(vertices))
	var out []meshlet.Vertex
	remapped := make([]uint32, len(indices))
	for i, idx := range indices {
		v := vertices[idx]
		id, ok := seen[v]
		if !ok {
			id = uint32(len(out))
			seen[v] = id
			out = append(out, v)
		}
		remapped[i] = id
	}
	return out, remapped
}

// append concatenates one sub-mesh result onto r, rebasing every offset.
func (r *MeshResult) append(rng meshlet.SubMeshRange, w *subMeshWork) SubMesh {
	res := w.result
	sm := SubMesh{
		Range:                    rng,
		VertexStartOffset:        uint32(len(r.Vertices)),
		VertexCount:              uint32(len(w.vertices)),
		MeshletStartOffset:       uint32(len(r.Meshlets)),
		MeshletCount:             uint32(len(res.Meshlets)),
		MeshletIndexStartOffset:  uint32(len(r.Indices)),
		MeshletVertexStartOffset: uint32(len(r.VertexIndices)),
		Graph:                    res.Graph,
		Stop:                     res.Stop,
		Err:                      res.Err,
	}

	r.Vertices = append(r.Vertices, w.vertices...)
	for _, m := range res.Meshlets {
		m.TriangleOffset += sm.MeshletIndexStartOffset
		m.VertexOffset += sm.MeshletVertexStartOffset
		r.Meshlets = append(r.Meshlets, m)
	}
	for _, idx := range res.Indices {
		r.Indices = append(r.Indices, idx+sm.VertexStartOffset)
	}
	for _, idx := range res.VertexIndices {
		r.VertexIndices = append(r.VertexIndices, idx+sm.VertexStartOffset)
	}
	for _, l := range res.Levels {
		l.MeshletOffset += sm.MeshletStartOffset
		sm.Levels = append(sm.Levels, l)
	}
	for i := range res.Graph.Nodes {
		res.Graph.Nodes[i].MeshletIndex += sm.MeshletStartOffset
	}
	return sm
}
