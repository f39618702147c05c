package meshlet

import (
	"testing"

	"github.com/Faultbox/meshlod/pkg/math"
)

func TestKDTreeNearestMatchesBruteForce(t *testing.T) {
	var points []math.Vec3
	for i := 0; i < 200; i++ {
		// Deterministic scatter with duplicates along X.
		points = append(points, math.Vec3{
			X: float32(i % 7),
			Y: float32((i * 13) % 11),
			Z: float32((i * 29) % 17),
		})
	}
	tree := newKDTree(points)

	query := math.Vec3{X: 3.2, Y: 4.9, Z: 8.1}
	for round := 0; round < len(points); round++ {
		got := tree.nearest(query)

		want := -1
		var wantDist float32
		for i, p := range points {
			if tree.removed[i] {
				continue
			}
			d := p.Sub(query).LengthSquared()
			if want < 0 || d < wantDist {
				want, wantDist = i, d
			}
		}

		if got != want {
			t.Fatalf("round %d: nearest = %d, brute force = %d", round, got, want)
		}
		tree.remove(uint32(got))
	}

	if got := tree.nearest(query); got != -1 {
		t.Errorf("empty tree returned %d, want -1", got)
	}
}

func TestKDTreeEmpty(t *testing.T) {
	tree := newKDTree(nil)
	if got := tree.nearest(math.Vec3{}); got != -1 {
		t.Errorf("nearest on empty tree = %d, want -1", got)
	}
}
