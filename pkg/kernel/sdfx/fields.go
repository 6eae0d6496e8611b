package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/brainscene/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// solidSDF adapts a foreign kernel.Solid to sdf.SDF3 using only its
// containment test. The field is a unit step, good enough for booleans and
// marching cubes but not for distance queries.
type solidSDF struct {
	solid kernel.Solid
}

func (s *solidSDF) Evaluate(p v3.Vec) float64 {
	if s.solid.Contains(fromVec(p)) {
		return -1
	}
	return 1
}

func (s *solidSDF) BoundingBox() sdf.Box3 {
	min, max := s.solid.BoundingBox()
	return sdf.Box3{Min: toVec(min), Max: toVec(max)}
}

// mirrorSDF reflects a field across an axis-aligned plane.
type mirrorSDF struct {
	s    sdf.SDF3
	axis int
	at   float64
}

func (m *mirrorSDF) reflect(p [3]float64) [3]float64 {
	p[m.axis] = 2*m.at - p[m.axis]
	return p
}

func (m *mirrorSDF) Evaluate(p v3.Vec) float64 {
	return m.s.Evaluate(toVec(m.reflect(fromVec(p))))
}

func (m *mirrorSDF) BoundingBox() sdf.Box3 {
	bb := m.s.BoundingBox()
	lo := m.reflect(fromVec(bb.Min))
	hi := m.reflect(fromVec(bb.Max))
	lo[m.axis], hi[m.axis] = hi[m.axis], lo[m.axis]
	return sdf.Box3{Min: toVec(lo), Max: toVec(hi)}
}

// halfSpace is the region on the normal side of a plane, bounded by the box
// of the solid it is going to clip.
type halfSpace struct {
	plane kernel.Plane
	bb    sdf.Box3
}

func newHalfSpace(p kernel.Plane, bb sdf.Box3) *halfSpace {
	n := p.Normal
	min, max := fromVec(bb.Min), fromVec(bb.Max)
	// An axis-aligned cut lets the box shrink along that axis.
	for axis := 0; axis < 3; axis++ {
		if n[(axis+1)%3] != 0 || n[(axis+2)%3] != 0 || n[axis] == 0 {
			continue
		}
		o := p.Origin[axis]
		if n[axis] > 0 {
			min[axis] = math.Min(math.Max(min[axis], o), max[axis])
		} else {
			max[axis] = math.Max(math.Min(max[axis], o), min[axis])
		}
	}
	return &halfSpace{plane: p, bb: sdf.Box3{Min: toVec(min), Max: toVec(max)}}
}

func (h *halfSpace) Evaluate(p v3.Vec) float64 {
	return -h.plane.Side(fromVec(p))
}

func (h *halfSpace) BoundingBox() sdf.Box3 {
	return h.bb
}

// boxed overrides the bounding box of a field it wraps.
type boxed struct {
	s  sdf.SDF3
	bb sdf.Box3
}

func (b *boxed) Evaluate(p v3.Vec) float64 { return b.s.Evaluate(p) }
func (b *boxed) BoundingBox() sdf.Box3     { return b.bb }

// VoxelGrid is a boolean occupancy grid. On is indexed x-fastest:
// i + Shape[0]*(j + Shape[1]*k). Voxel (i,j,k) covers
// [Origin+i*Spacing, Origin+(i+1)*Spacing) on each axis.
type VoxelGrid struct {
	Origin  [3]float64
	Spacing float64
	Shape   [3]int
	On      []bool
}

// ErrInvalidGrid is returned for grids whose occupancy does not match their shape.
var ErrInvalidGrid = errors.New("invalid voxel grid")

// voxels is the sdf.SDF3 view of a VoxelGrid.
type voxels struct {
	g  VoxelGrid
	bb sdf.Box3
}

// NewVoxels returns a solid occupying the set voxels of g.
func NewVoxels(g VoxelGrid) (kernel.Solid, error) {
	if g.Spacing <= 0 {
		return nil, fmt.Errorf("%w: spacing %f", ErrInvalidGrid, g.Spacing)
	}
	n := g.Shape[0] * g.Shape[1] * g.Shape[2]
	if g.Shape[0] <= 0 || g.Shape[1] <= 0 || g.Shape[2] <= 0 || len(g.On) != n {
		return nil, fmt.Errorf("%w: shape %v with %d cells", ErrInvalidGrid, g.Shape, len(g.On))
	}
	max := g.Origin
	for i := 0; i < 3; i++ {
		max[i] += float64(g.Shape[i]) * g.Spacing
	}
	return Wrap(&voxels{g: g, bb: sdf.Box3{Min: toVec(g.Origin), Max: toVec(max)}}), nil
}

func (v *voxels) index(p [3]float64) (int, bool) {
	var ijk [3]int
	for a := 0; a < 3; a++ {
		f := (p[a] - v.g.Origin[a]) / v.g.Spacing
		i := int(math.Floor(f))
		if i == v.g.Shape[a] && f == float64(v.g.Shape[a]) {
			i-- // the far face belongs to the last voxel
		}
		if i < 0 || i >= v.g.Shape[a] {
			return 0, false
		}
		ijk[a] = i
	}
	return ijk[0] + v.g.Shape[0]*(ijk[1]+v.g.Shape[1]*ijk[2]), true
}

func (v *voxels) Evaluate(p v3.Vec) float64 {
	h := v.g.Spacing / 2
	idx, ok := v.index(fromVec(p))
	if !ok {
		// Outside the grid: distance to the box, kept strictly positive.
		var d float64
		min, max := fromVec(v.bb.Min), fromVec(v.bb.Max)
		q := fromVec(p)
		for a := 0; a < 3; a++ {
			e := math.Max(min[a]-q[a], q[a]-max[a])
			if e > 0 {
				d += e * e
			}
		}
		return math.Sqrt(d) + h
	}
	if v.g.On[idx] {
		return -h
	}
	return h
}

func (v *voxels) BoundingBox() sdf.Box3 {
	return v.bb
}
