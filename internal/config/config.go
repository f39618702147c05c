// Package config handles pipeline configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshlod/internal/logger"
	"github.com/Faultbox/meshlod/pkg/lod"
	"github.com/Faultbox/meshlod/pkg/meshlet"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all pipeline settings.
type Config struct {
	Clustering ClusteringConfig `yaml:"clustering"`
	LOD        LODConfig        `yaml:"lod"`
	Processing ProcessingConfig `yaml:"processing"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ClusteringConfig holds meshlet size limits.
type ClusteringConfig struct {
	MaxVertices  int     `yaml:"max_vertices"`
	MaxTriangles int     `yaml:"max_triangles"`
	ConeWeight   float32 `yaml:"cone_weight"`
}

// LODConfig holds level generation settings.
type LODConfig struct {
	GroupSize     int     `yaml:"group_size"`
	SimplifyRatio float32 `yaml:"simplify_ratio"`
	TargetError   float32 `yaml:"target_error"` // Relative to mesh extent
	MaxLevels     int     `yaml:"max_levels"`   // 0 = unlimited
	LockBorder    bool    `yaml:"lock_border"`
}

// ProcessingConfig holds concurrency settings.
type ProcessingConfig struct {
	Workers int `yaml:"workers"` // 0 = one goroutine per sub-mesh
}

// OutputConfig holds CLI output settings.
type OutputConfig struct {
	ReportPath  string `yaml:"report_path"`
	ExportLevel int    `yaml:"export_level"` // -1 = all levels
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	fileCfg := logger.DefaultFileConfig("")
	return &Config{
		Clustering: ClusteringConfig{
			MaxVertices:  meshlet.MaxVertices,
			MaxTriangles: meshlet.MaxTriangles,
			ConeWeight:   0,
		},
		LOD: LODConfig{
			GroupSize:     lod.DefaultGroupSize,
			SimplifyRatio: lod.DefaultSimplifyRatio,
			TargetError:   lod.DefaultTargetError,
			MaxLevels:     lod.DefaultMaxLevels,
			LockBorder:    true,
		},
		Processing: ProcessingConfig{
			Workers: 0,
		},
		Output: OutputConfig{
			ExportLevel: -1,
		},
		Logging: LoggingConfig{
			Level:      "info",
			LogFile:    "",
			MaxSizeMB:  fileCfg.MaxSizeMB,
			MaxBackups: fileCfg.MaxBackups,
			MaxAgeDays: fileCfg.MaxAgeDays,
			Compress:   fileCfg.Compress,
		},
	}
}

// Options converts the configuration to pipeline options logging to log.
func (c *Config) Options(log *zap.Logger) lod.Options {
	opts := lod.DefaultOptions()
	opts.Clustering = meshlet.Options{
		MaxVertices:  c.Clustering.MaxVertices,
		MaxTriangles: c.Clustering.MaxTriangles,
		ConeWeight:   c.Clustering.ConeWeight,
	}
	opts.GroupSize = c.LOD.GroupSize
	opts.SimplifyRatio = c.LOD.SimplifyRatio
	opts.TargetError = c.LOD.TargetError
	opts.MaxLevels = c.LOD.MaxLevels
	opts.LockBorder = c.LOD.LockBorder
	opts.Workers = c.Processing.Workers
	if log != nil {
		opts.Logger = log
	}
	return opts
}

// FileConfig returns the rotating log file settings.
func (c *Config) FileConfig() logger.FileConfig {
	return logger.FileConfig{
		Path:       c.Logging.LogFile,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
	}
}

// Validate checks every setting.
func (c *Config) Validate() error {
	if err := c.Options(nil).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Logging.Level)
	}
	if c.Output.ExportLevel < -1 {
		return fmt.Errorf("%w: export level %d", ErrInvalid, c.Output.ExportLevel)
	}
	return nil
}
