// meshlodtool is a CLI utility for building cluster LOD hierarchies from
// glTF meshes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshlod/internal/config"
	"github.com/Faultbox/meshlod/internal/logger"
	"github.com/Faultbox/meshlod/internal/meshio"
	"github.com/Faultbox/meshlod/pkg/lod"
	"github.com/Faultbox/meshlod/pkg/meshgen"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args)
	case "process", "p":
		err = cmdProcess(args)
	case "export", "x":
		err = cmdExport(args)
	case "grid":
		err = cmdGrid(args)
	case "config":
		err = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshlodtool - cluster LOD builder for triangle meshes

Usage:
  meshlodtool <command> [options]

Commands:
  info <mesh.glb>                          Show sub-meshes, counts and bounds
  process [-report out.yaml] <mesh.glb>    Build LOD levels and print a summary
  export [-level N] <mesh.glb> <out.glb>   Write LOD levels with meshlet colors
  grid [-n N] [-wave A] <out.glb>          Write a procedural test grid
  config [-o path]                         Write the effective configuration

Common options:
  -config path    Config file (default ./meshlod.yaml or user config dir)
  -debug          Enable debug logging
  -workers N      Concurrent sub-meshes (0 = unbounded)
  -max-levels N   Maximum LOD levels (0 = unlimited)
  -group-size N   Meshlets per simplification group

Examples:
  meshlodtool info scene.glb
  meshlodtool process -report lod.yaml scene.glb
  meshlodtool export -level 2 scene.glb lod2.glb
  meshlodtool grid -n 128 -wave 0.5 grid.glb`)
}

// setup parses the command flags and initializes configuration and logging.
func setup(fs *flag.FlagSet, args []string) (*config.Config, error) {
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, cfg.FileConfig(), true); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, nil
}

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	if _, err := setup(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: meshlodtool info <mesh.glb>")
	}

	m, err := meshio.Load(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Printf("Mesh:       %s\n", fs.Arg(0))
	fmt.Printf("Sub-meshes: %d\n", len(m.SubMeshes))
	fmt.Printf("Vertices:   %d\n", len(m.Vertices))
	fmt.Printf("Triangles:  %d\n", m.TriangleCount())
	fmt.Printf("Bounds:     [%.3f %.3f %.3f] - [%.3f %.3f %.3f]\n",
		m.Bounds.Min[0], m.Bounds.Min[1], m.Bounds.Min[2],
		m.Bounds.Max[0], m.Bounds.Max[1], m.Bounds.Max[2])
	fmt.Println()
	for i, r := range m.SubMeshes {
		fmt.Printf("  %-4d %-24s %8d vertices %8d triangles\n", i, m.Names[i], r.VertexCount, r.IndexCount/3)
	}
	return nil
}

// process loads path and runs the pipeline on it.
func process(ctx context.Context, cfg *config.Config, path string) (*meshio.Mesh, *lod.MeshResult, time.Duration, error) {
	m, err := meshio.Load(path)
	if err != nil {
		return nil, nil, 0, err
	}

	log := logger.Named("lod").With(zap.String("mesh", path))
	start := time.Now()
	res, err := lod.ProcessMesh(ctx, m.Vertices, m.Indices, m.SubMeshes, cfg.Options(log))
	if err != nil {
		return nil, nil, 0, err
	}
	elapsed := time.Since(start)
	log.Info("mesh processed",
		zap.Int("submeshes", len(res.SubMeshes)),
		zap.Int("meshlets", len(res.Meshlets)),
		zap.Duration("elapsed", elapsed))
	return m, res, elapsed, nil
}

func cmdProcess(args []string) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	reportPath := fs.String("report", "", "Write a YAML report to this path")
	cfg, err := setup(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: meshlodtool process [-report out.yaml] <mesh.glb>")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m, res, elapsed, err := process(ctx, cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	report := NewReport(fs.Arg(0), m, res, elapsed)
	report.Print(os.Stdout)

	path := *reportPath
	if path == "" {
		path = cfg.Output.ReportPath
	}
	if path != "" {
		if err := report.Save(path); err != nil {
			return err
		}
		logger.Info("report written", zap.String("path", path))
	}
	return res.Err()
}

func cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	level := fs.Int("level", -2, "Export only this LOD level (-1 = all)")
	cfg, err := setup(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: meshlodtool export [-level N] <mesh.glb> <out.glb>")
	}
	if *level == -2 {
		*level = cfg.Output.ExportLevel
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, res, _, err := process(ctx, cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	if err := meshio.SaveLevels(fs.Arg(1), res, *level); err != nil {
		return err
	}
	logger.Info("levels exported", zap.String("path", fs.Arg(1)), zap.Int("level", *level))
	return nil
}

func cmdGrid(args []string) error {
	fs := flag.NewFlagSet("grid", flag.ExitOnError)
	n := fs.Int("n", 64, "Quads per side")
	wave := fs.Float64("wave", 0.5, "Height of the sine displacement")
	size := fs.Float64("size", 0, "Side length (default n)")
	if _, err := setup(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: meshlodtool grid [-n N] [-wave A] <out.glb>")
	}
	if *n < 1 {
		return fmt.Errorf("grid size must be positive, got %d", *n)
	}
	if *size <= 0 {
		*size = float64(*n)
	}

	grid := meshgen.Grid(*n, *n, float32(*size), float32(*wave))
	m := meshio.NewMesh()
	m.AddSubMesh("grid", grid.Vertices, grid.Indices)
	if err := m.Save(fs.Arg(0)); err != nil {
		return err
	}
	fmt.Printf("Wrote %s: %d vertices, %d triangles\n", fs.Arg(0), len(m.Vertices), m.TriangleCount())
	return nil
}

func cmdConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	out := fs.String("o", "", "Output path (default user config dir)")
	cfg, err := setup(fs, args)
	if err != nil {
		return err
	}
	if *out == "" {
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", config.ConfigDir())
		return nil
	}
	if err := cfg.SaveTo(*out); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", *out)
	return nil
}
