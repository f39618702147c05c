// Package lod builds cluster levels of detail: meshlets are grouped with
// their neighbors, each group is simplified with its outer boundary locked,
// and the result is split back into meshlets. Levels are linked into a DAG
// whose node error never decreases from child to parent.
package lod

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshlod/pkg/meshlet"
	"github.com/Faultbox/meshlod/pkg/partition"
	"github.com/Faultbox/meshlod/pkg/simplify"
)

// Default pipeline parameters.
const (
	DefaultGroupSize     = 4
	DefaultSimplifyRatio = 0.5
	DefaultTargetError   = 0.1
	DefaultMaxLevels     = 16
)

// Pipeline errors.
var (
	ErrInvalidOptions = errors.New("invalid lod options")
	ErrPartition      = errors.New("cluster partitioning failed")
	ErrSimplify       = errors.New("group simplification failed")
	ErrSplit          = errors.New("group splitting failed")
)

// Options configure the LOD pipeline.
type Options struct {
	Clustering meshlet.Options

	// GroupSize is the target number of meshlets per group.
	GroupSize int
	// SimplifyRatio is the fraction of indices a group is simplified to.
	SimplifyRatio float32
	// TargetError is the largest collapse error relative to the mesh scale.
	TargetError float32
	// MaxLevels caps the number of levels including level 0. 0 means no cap.
	MaxLevels int
	// LockBorder keeps open and non-manifold edges of a group in place.
	LockBorder bool

	// Workers bounds concurrent sub-mesh processing. 0 means unbounded.
	Workers int

	Partitioner partition.Partitioner
	Simplifier  simplify.Simplifier
	Logger      *zap.Logger
}

// DefaultOptions returns the standard pipeline configuration.
func DefaultOptions() Options {
	return Options{
		Clustering:    meshlet.DefaultOptions(),
		GroupSize:     DefaultGroupSize,
		SimplifyRatio: DefaultSimplifyRatio,
		TargetError:   DefaultTargetError,
		MaxLevels:     DefaultMaxLevels,
		LockBorder:    true,
		Partitioner:   partition.NewBisection(),
		Simplifier:    simplify.NewQuadric(),
		Logger:        zap.NewNop(),
	}
}

// Validate reports out-of-range parameters.
func (o Options) Validate() error {
	if err := o.Clustering.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if o.GroupSize < 2 {
		return fmt.Errorf("%w: group size %d, want at least 2", ErrInvalidOptions, o.GroupSize)
	}
	if o.SimplifyRatio <= 0 || o.SimplifyRatio >= 1 {
		return fmt.Errorf("%w: simplify ratio %f not in (0, 1)", ErrInvalidOptions, o.SimplifyRatio)
	}
	if o.TargetError < 0 {
		return fmt.Errorf("%w: negative target error %f", ErrInvalidOptions, o.TargetError)
	}
	if o.MaxLevels < 0 {
		return fmt.Errorf("%w: negative max levels %d", ErrInvalidOptions, o.MaxLevels)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: negative worker count %d", ErrInvalidOptions, o.Workers)
	}
	return nil
}

// withDefaults fills unset collaborators.
func (o Options) withDefaults() Options {
	if o.Partitioner == nil {
		o.Partitioner = partition.NewBisection()
	}
	if o.Simplifier == nil {
		o.Simplifier = simplify.NewQuadric()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
