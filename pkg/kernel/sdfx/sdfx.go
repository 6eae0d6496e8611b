// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/brainscene/pkg/kernel"
	"github.com/deadsy/sdfx/obj"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel     = (*SdfxKernel)(nil)
	_ kernel.MeshLoader = (*SdfxKernel)(nil)
)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 200

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// Contains reports whether p is inside or on the surface, i.e. the
// signed distance is not positive.
func (s *sdfxSolid) Contains(p [3]float64) bool {
	return s.s.Evaluate(toVec(p)) <= 0
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	// MeshCells is the marching cubes resolution along the longest axis.
	// Zero uses defaultMeshCells.
	MeshCells int
}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

// Wrap exposes an arbitrary sdf.SDF3 as a kernel.Solid.
func Wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid. Solids that
// decorate another solid (kernel.Unwrapper) are unwrapped first; solids from
// other kernels are adapted through their containment test.
func unwrap(s kernel.Solid) sdf.SDF3 {
	for {
		u, ok := s.(kernel.Unwrapper)
		if !ok {
			break
		}
		s = u.Unwrap()
	}
	if ss, ok := s.(*sdfxSolid); ok {
		return ss.s
	}
	return &solidSDF{solid: s}
}

func toVec(p [3]float64) v3.Vec {
	return v3.Vec{X: p[0], Y: p[1], Z: p[2]}
}

func fromVec(v v3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// Box creates a box with the given dimensions centered at the origin.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	return Wrap(s)
}

// Sphere creates a sphere centered at the origin.
func (k *SdfxKernel) Sphere(radius float64) kernel.Solid {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Sphere3D: %v", err))
	}
	return Wrap(s)
}

// Ellipsoid creates an axis-aligned ellipsoid centered at the origin by
// scaling a unit sphere. Scaling does not preserve distance, only sign, which
// is all containment and meshing need.
func (k *SdfxKernel) Ellipsoid(rx, ry, rz float64) kernel.Solid {
	s, err := sdf.Sphere3D(1)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Sphere3D: %v", err))
	}
	return Wrap(sdf.Transform3D(s, sdf.Scale3d(v3.Vec{X: rx, Y: ry, Z: rz})))
}

// Cylinder creates a cylinder with the given height and radius.
// The segments parameter is ignored since SDF represents smooth surfaces.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return Wrap(s)
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return Wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return Wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two solids. The bounding box is
// the overlap of both boxes.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	ba, bb := sa.BoundingBox(), sb.BoundingBox()
	lo, hi := fromVec(ba.Min), fromVec(ba.Max)
	blo, bhi := fromVec(bb.Min), fromVec(bb.Max)
	for i := 0; i < 3; i++ {
		lo[i] = math.Max(lo[i], blo[i])
		hi[i] = math.Max(math.Min(hi[i], bhi[i]), lo[i])
	}
	return Wrap(&boxed{s: sdf.Intersect3D(sa, sb), bb: sdf.Box3{Min: toVec(lo), Max: toVec(hi)}})
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return Wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return Wrap(sdf.Transform3D(unwrap(s), m))
}

// Mirror reflects a solid across the plane perpendicular to axis
// (0=x, 1=y, 2=z) at coordinate at.
func (k *SdfxKernel) Mirror(s kernel.Solid, axis int, at float64) kernel.Solid {
	if axis < 0 || axis > 2 {
		panic(fmt.Sprintf("sdfx.Mirror: invalid axis %d", axis))
	}
	return Wrap(&mirrorSDF{s: unwrap(s), axis: axis, at: at})
}

// Clip keeps the part of s on the side of p that the plane normal points to.
func (k *SdfxKernel) Clip(s kernel.Solid, p kernel.Plane) kernel.Solid {
	inner := unwrap(s)
	hs := newHalfSpace(p, inner.BoundingBox())
	return Wrap(&boxed{s: sdf.Intersect3D(inner, hs), bb: hs.bb})
}

// ErrEmptyMesh is returned for mesh files holding no triangles.
var ErrEmptyMesh = errors.New("mesh has no triangles")

// stlNeighbors is how many nearby triangles decide the sign of an imported
// mesh's field.
const stlNeighbors = 16

// LoadSTL reads a closed, outward-facing triangle mesh from an ASCII or
// binary STL file.
func (k *SdfxKernel) LoadSTL(path string) (kernel.Solid, error) {
	s, err := obj.ImportSTL(path, stlNeighbors, 3, 5)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if s == nil {
		return nil, fmt.Errorf("loading %s: %w", path, ErrEmptyMesh)
	}
	return Wrap(s), nil
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)

	cells := k.MeshCells
	if cells <= 0 {
		cells = defaultMeshCells
	}
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
