// Package kernel defines the abstract geometry kernel interface.
// Region meshes, clipped actors and gene-expression volumes are all
// kernel solids; the sdfx backend provides the implementation. The
// abstraction keeps atlas, sampling and scene code independent of the
// geometry library.
package kernel

import "math"

// Solid is an opaque handle to a closed volume.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
	// Contains reports whether p lies inside or on the surface.
	Contains(p [3]float64) bool
}

// Unwrapper is implemented by solids that only change how another solid
// answers containment queries. Kernels build geometry from the inner solid.
type Unwrapper interface {
	Unwrap() Solid
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Sphere(radius float64) Solid
	Ellipsoid(rx, ry, rz float64) Solid
	Cylinder(height, radius float64, segments int) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees
	Mirror(s Solid, axis int, at float64) Solid

	// Clip keeps the part of s on the side of p that its normal points to.
	Clip(s Solid, p Plane) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// MeshLoader is implemented by kernels that can import mesh files.
type MeshLoader interface {
	LoadSTL(path string) (Solid, error)
}

// Plane is an oriented plane through Origin.
type Plane struct {
	Origin [3]float64 `json:"origin"`
	Normal [3]float64 `json:"normal"`
}

// Side returns the signed distance of p from the plane, positive on the
// side the normal points to. A zero normal puts every point on the plane.
func (pl Plane) Side(p [3]float64) float64 {
	n := pl.Normal
	l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if l == 0 {
		return 0
	}
	var d float64
	for i := 0; i < 3; i++ {
		d += (p[i] - pl.Origin[i]) * n[i]
	}
	return d / l
}
