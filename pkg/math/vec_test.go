package math

import (
	"testing"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	n := Vec3{3, 4, 0}.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
	if (Vec3{}).Normalize() != (Vec3{}) {
		t.Error("zero vector should normalize to zero")
	}
}

func TestTriangleNormal(t *testing.T) {
	n := TriangleNormal(Vec3{0, 0, 0}, Vec3{1, 0, 0}, Vec3{0, 1, 0})
	if n != (Vec3{0, 0, 1}) {
		t.Errorf("TriangleNormal = %v, want (0,0,1)", n)
	}
}

func TestAABB(t *testing.T) {
	b := EmptyAABB()
	if !b.Empty() {
		t.Fatal("EmptyAABB should be empty")
	}
	b.Extend(Vec3{-1, 2, 0})
	b.Extend(Vec3{3, -2, 4})

	if b.Empty() {
		t.Fatal("box should not be empty after Extend")
	}
	if got := b.Center(); got != (Vec3{1, 0, 2}) {
		t.Errorf("Center = %v, want (1,0,2)", got)
	}
	if got := b.Extent().MaxComponent(); got != 4 {
		t.Errorf("max extent = %v, want 4", got)
	}
}

func TestSphereMerge(t *testing.T) {
	tests := []struct {
		name string
		a, b Sphere
	}{
		{"disjoint", Sphere{Vec3{0, 0, 0}, 1}, Sphere{Vec3{10, 0, 0}, 2}},
		{"contained", Sphere{Vec3{0, 0, 0}, 5}, Sphere{Vec3{1, 0, 0}, 1}},
		{"containing", Sphere{Vec3{1, 1, 0}, 1}, Sphere{Vec3{0, 0, 0}, 8}},
		{"same center", Sphere{Vec3{2, 2, 2}, 1}, Sphere{Vec3{2, 2, 2}, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.a.Merge(tt.b)
			for _, s := range []Sphere{tt.a, tt.b} {
				if m.Center.Distance(s.Center)+s.Radius > m.Radius*(1+1e-5)+1e-5 {
					t.Errorf("merged sphere %v does not enclose %v", m, s)
				}
			}
		})
	}
}

func TestEnclosingSphere(t *testing.T) {
	spheres := []Sphere{
		{Vec3{0, 0, 0}, 1},
		{Vec3{4, 0, 0}, 1},
		{Vec3{0, 4, 0}, 0.5},
	}
	e := EnclosingSphere(spheres)
	for _, s := range spheres {
		if e.Center.Distance(s.Center)+s.Radius > e.Radius*(1+1e-5)+1e-5 {
			t.Errorf("enclosing sphere %v misses %v", e, s)
		}
	}
	if (EnclosingSphere(nil) != Sphere{}) {
		t.Error("EnclosingSphere(nil) should be zero")
	}
}
