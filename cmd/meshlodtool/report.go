package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/meshlod/internal/meshio"
	"github.com/Faultbox/meshlod/pkg/lod"
)

// Report summarizes one pipeline run.
type Report struct {
	Input     string          `yaml:"input"`
	Vertices  int             `yaml:"vertices"`
	Triangles int             `yaml:"triangles"`
	Meshlets  int             `yaml:"meshlets"`
	Elapsed   time.Duration   `yaml:"elapsed"`
	SubMeshes []SubMeshReport `yaml:"submeshes"`
}

// SubMeshReport describes the LOD chain of one sub-mesh.
type SubMeshReport struct {
	Name      string         `yaml:"name"`
	Vertices  int            `yaml:"vertices"` // After welding
	Triangles int            `yaml:"triangles"`
	Stop      lod.StopReason `yaml:"stop"`
	Error     string         `yaml:"error,omitempty"`
	Levels    []LevelReport  `yaml:"levels"`
}

// LevelReport holds the meshlet and triangle counts of one LOD level.
type LevelReport struct {
	Meshlets  int     `yaml:"meshlets"`
	Triangles int     `yaml:"triangles"`
	MaxError  float32 `yaml:"max_error"`
}

// NewReport builds a report from the input mesh and the pipeline output.
func NewReport(input string, m *meshio.Mesh, res *lod.MeshResult, elapsed time.Duration) *Report {
	r := &Report{
		Input:     input,
		Vertices:  len(m.Vertices),
		Triangles: m.TriangleCount(),
		Meshlets:  len(res.Meshlets),
		Elapsed:   elapsed,
	}
	for i, sm := range res.SubMeshes {
		sr := SubMeshReport{
			Vertices:  int(sm.VertexCount),
			Triangles: int(sm.Range.IndexCount / 3),
			Stop:      sm.Stop,
		}
		if i < len(m.Names) {
			sr.Name = m.Names[i]
		}
		if sm.Err != nil {
			sr.Error = sm.Err.Error()
		}
		for _, l := range sm.Levels {
			lr := LevelReport{Meshlets: int(l.MeshletCount)}
			for _, ml := range res.Meshlets[l.MeshletOffset : l.MeshletOffset+l.MeshletCount] {
				lr.Triangles += int(ml.TriangleCount)
				lr.MaxError = max(lr.MaxError, ml.ClusterError)
			}
			sr.Levels = append(sr.Levels, lr)
		}
		r.SubMeshes = append(r.SubMeshes, sr)
	}
	return r
}

// Print writes a human readable table.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Mesh:      %s\n", r.Input)
	fmt.Fprintf(w, "Triangles: %d\n", r.Triangles)
	fmt.Fprintf(w, "Meshlets:  %d\n", r.Meshlets)
	fmt.Fprintf(w, "Elapsed:   %s\n", r.Elapsed.Round(time.Millisecond))
	for i, sm := range r.SubMeshes {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Sub-mesh %d %q: %d triangles, stop: %s\n", i, sm.Name, sm.Triangles, sm.Stop)
		if sm.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", sm.Error)
		}
		for l, lv := range sm.Levels {
			fmt.Fprintf(w, "  LOD%-3d %6d meshlets %8d triangles  error %.6f\n", l, lv.Meshlets, lv.Triangles, lv.MaxError)
		}
	}
}

// Save writes the report as YAML.
func (r *Report) Save(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
