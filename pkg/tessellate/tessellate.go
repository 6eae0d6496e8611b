// Package tessellate turns scene actors into triangle meshes using a
// geometry kernel. One mesh is produced per actor.
package tessellate

import (
	"fmt"

	"github.com/chazu/brainscene/pkg/actor"
	"github.com/chazu/brainscene/pkg/colors"
	"github.com/chazu/brainscene/pkg/kernel"
)

// DefaultPointRadius is the sphere radius, in micrometers, used for point
// cloud actors.
const DefaultPointRadius = 25

// Options controls tessellation.
type Options struct {
	// PointRadius is the radius of the sphere drawn at each point of a
	// point cloud actor. Zero skips point clouds.
	PointRadius float64

	// IncludeHidden also tessellates actors with zero alpha.
	IncludeHidden bool
}

// Tessellate produces one triangle mesh per visible actor that has a solid.
// Point clouds are skipped; use TessellateWith to mesh them as spheres.
// The tessellator is read-only and never mutates the actors.
func Tessellate(actors []*actor.Actor, k kernel.Kernel) ([]*kernel.Mesh, error) {
	return TessellateWith(actors, k, Options{})
}

// TessellateWith is Tessellate with explicit options.
func TessellateWith(actors []*actor.Actor, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	for _, a := range actors {
		if a == nil || (a.Alpha == 0 && !opts.IncludeHidden) {
			continue
		}
		solid := a.Solid
		if solid == nil && len(a.Points) > 0 && opts.PointRadius > 0 {
			solid = pointSpheres(k, a.Points, opts.PointRadius)
		}
		if solid == nil {
			continue
		}

		mesh, err := k.ToMesh(solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for actor %s: %w", a.DisplayName(), err)
		}
		mesh.PartName = a.DisplayName()
		mesh.Color = colors.Hex(a.Color)
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// pointSpheres unions a sphere translated to each point.
func pointSpheres(k kernel.Kernel, points [][3]float64, radius float64) kernel.Solid {
	var solid kernel.Solid
	for _, p := range points {
		s := k.Translate(k.Sphere(radius), p[0], p[1], p[2])
		if solid == nil {
			solid = s
			continue
		}
		solid = k.Union(solid, s)
	}
	return solid
}
