package math

import "github.com/chewxy/math32"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min Vec3
	Max Vec3
}

// EmptyAABB returns a box that any Extend call replaces.
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// Extend grows the box to contain p.
func (b *AABB) Extend(p Vec3) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// Empty reports whether the box contains no points.
func (b AABB) Empty() bool {
	return b.Min.X > b.Max.X
}

// Center returns the box midpoint.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Extent returns Max - Min.
func (b AABB) Extent() Vec3 {
	return b.Max.Sub(b.Min)
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center Vec3
	Radius float32
}

// Contains reports whether p lies inside the sphere, with a relative tolerance
// for float rounding.
func (s Sphere) Contains(p Vec3) bool {
	return s.Center.Distance(p) <= s.Radius*(1+1e-5)+1e-6
}

// Merge returns the smallest sphere enclosing both s and other.
func (s Sphere) Merge(other Sphere) Sphere {
	d := other.Center.Sub(s.Center)
	dist := d.Length()
	if dist+other.Radius <= s.Radius {
		return s
	}
	if dist+s.Radius <= other.Radius {
		return other
	}
	radius := (dist + s.Radius + other.Radius) * 0.5
	center := s.Center
	if dist > 0 {
		center = s.Center.Add(d.Scale((radius - s.Radius) / dist))
	}
	return Sphere{Center: center, Radius: radius}
}

// EnclosingSphere returns a sphere containing every sphere in spheres.
// The result is the pairwise merge in slice order.
func EnclosingSphere(spheres []Sphere) Sphere {
	if len(spheres) == 0 {
		return Sphere{}
	}
	out := spheres[0]
	for _, s := range spheres[1:] {
		out = out.Merge(s)
	}
	return out
}
