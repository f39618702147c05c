package simplify

import (
	stdmath "math"

	"github.com/Faultbox/meshlod/pkg/math"
)

// quadric is the symmetric 4x4 plane-distance form of Garland and Heckbert,
// accumulated in float64 and weighted by triangle area.
type quadric struct {
	a2, ab, ac, ad float64
	b2, bc, bd     float64
	c2, cd         float64
	d2             float64
	w              float64
}

// planeQuadric returns the quadric of the plane through triangle (p0, p1, p2)
// weighted by its area. Degenerate triangles give the zero quadric.
func planeQuadric(p0, p1, p2 math.Vec3) quadric {
	ux, uy, uz := float64(p1.X-p0.X), float64(p1.Y-p0.Y), float64(p1.Z-p0.Z)
	vx, vy, vz := float64(p2.X-p0.X), float64(p2.Y-p0.Y), float64(p2.Z-p0.Z)
	nx := uy*vz - uz*vy
	ny := uz*vx - ux*vz
	nz := ux*vy - uy*vx
	l := stdmath.Sqrt(nx*nx + ny*ny + nz*nz)
	if l == 0 {
		return quadric{}
	}
	area := l / 2
	nx, ny, nz = nx/l, ny/l, nz/l
	d := -(nx*float64(p0.X) + ny*float64(p0.Y) + nz*float64(p0.Z))

	return quadric{
		a2: area * nx * nx, ab: area * nx * ny, ac: area * nx * nz, ad: area * nx * d,
		b2: area * ny * ny, bc: area * ny * nz, bd: area * ny * d,
		c2: area * nz * nz, cd: area * nz * d,
		d2: area * d * d,
		w:  area,
	}
}

func (q *quadric) add(o quadric) {
	q.a2 += o.a2
	q.ab += o.ab
	q.ac += o.ac
	q.ad += o.ad
	q.b2 += o.b2
	q.bc += o.bc
	q.bd += o.bd
	q.c2 += o.c2
	q.cd += o.cd
	q.d2 += o.d2
	q.w += o.w
}

func (q quadric) plus(o quadric) quadric {
	q.add(o)
	return q
}

// distance returns the area-weighted RMS distance of p to the accumulated
// planes.
func (q quadric) distance(p math.Vec3) float64 {
	if q.w == 0 {
		return 0
	}
	x, y, z := float64(p.X), float64(p.Y), float64(p.Z)
	r := q.a2*x*x + q.b2*y*y + q.c2*z*z +
		2*(q.ab*x*y+q.ac*x*z+q.bc*y*z) +
		2*(q.ad*x+q.bd*y+q.cd*z) +
		q.d2
	if r <= 0 {
		return 0
	}
	return stdmath.Sqrt(r / q.w)
}
