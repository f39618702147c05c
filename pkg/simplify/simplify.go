// Package simplify reduces triangle meshes by edge collapse while keeping
// selected vertices in place.
package simplify

import (
	"errors"
	"fmt"

	"github.com/Faultbox/meshlod/pkg/math"
)

// Simplification errors.
var (
	ErrIndexCount      = errors.New("index count is not a multiple of 3")
	ErrIndexOutOfRange = errors.New("index out of position range")
	ErrLockedLength    = errors.New("locked mask length does not match positions")
)

// Options control a single simplification call.
type Options struct {
	// TargetIndexCount is the index count at which collapsing stops.
	TargetIndexCount int
	// MaxError bounds the object-space error of any single collapse.
	MaxError float32
	// Locked marks vertices that must keep their position and stay in the
	// output. Indexed like positions; nil locks nothing.
	Locked []bool
	// LockBorder also locks vertices on open or non-manifold edges.
	LockBorder bool
}

// Simplifier reduces an indexed triangle list. It returns the new index list,
// referencing the same positions, and the largest error introduced.
type Simplifier interface {
	Simplify(positions []math.Vec3, indices []uint32, opts Options) ([]uint32, float32, error)
}

// Scale returns the largest extent of the bounding box of positions. Relative
// error thresholds are multiplied by it.
func Scale(positions []math.Vec3) float32 {
	if len(positions) == 0 {
		return 0
	}
	box := math.EmptyAABB()
	for _, p := range positions {
		box.Extend(p)
	}
	return box.Extent().MaxComponent()
}

func validate(positions []math.Vec3, indices []uint32, opts Options) error {
	if len(indices)%3 != 0 {
		return fmt.Errorf("%w: got %d indices", ErrIndexCount, len(indices))
	}
	for i, idx := range indices {
		if int(idx) >= len(positions) {
			return fmt.Errorf("%w: index %d at position %d, %d positions", ErrIndexOutOfRange, idx, i, len(positions))
		}
	}
	if opts.Locked != nil && len(opts.Locked) != len(positions) {
		return fmt.Errorf("%w: %d flags for %d positions", ErrLockedLength, len(opts.Locked), len(positions))
	}
	return nil
}
