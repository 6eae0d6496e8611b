package kernel

import "math"

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // which actor this came from
	Color    string    `json:"color,omitempty"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Bounds returns the axis-aligned extent of the vertices as
// (xmin, xmax, ymin, ymax, zmin, zmax). An empty mesh returns zeros.
func (m *Mesh) Bounds() [6]float64 {
	if m.IsEmpty() {
		return [6]float64{}
	}
	b := [6]float64{
		math.Inf(1), math.Inf(-1),
		math.Inf(1), math.Inf(-1),
		math.Inf(1), math.Inf(-1),
	}
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		for axis := 0; axis < 3; axis++ {
			v := float64(m.Vertices[i+axis])
			b[2*axis] = math.Min(b[2*axis], v)
			b[2*axis+1] = math.Max(b[2*axis+1], v)
		}
	}
	return b
}

// Bounds flattens a solid's bounding box into
// (xmin, xmax, ymin, ymax, zmin, zmax).
func Bounds(s Solid) [6]float64 {
	min, max := s.BoundingBox()
	return [6]float64{min[0], max[0], min[1], max[1], min[2], max[2]}
}
