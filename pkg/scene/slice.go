package scene

import (
	"fmt"

	"github.com/chazu/brainscene/pkg/actor"
	"github.com/chazu/brainscene/pkg/colors"
	"github.com/chazu/brainscene/pkg/kernel"
)

// PlaneSpec is either a named anatomical plane or an explicit plane.
type PlaneSpec struct {
	name  string
	plane *kernel.Plane
}

// NamedPlane refers to "frontal", "sagittal" or "horizontal" through the
// center of the atlas.
func NamedPlane(name string) PlaneSpec { return PlaneSpec{name: name} }

// AtPlane uses p as given, e.g. from Atlas.PlaneAt.
func AtPlane(p kernel.Plane) PlaneSpec { return PlaneSpec{plane: &p} }

func (p PlaneSpec) String() string {
	if p.plane != nil {
		return fmt.Sprintf("plane at %v normal %v", p.plane.Origin, p.plane.Normal)
	}
	return p.name
}

// resolve returns the plane in scene coordinates.
func (s *Scene) resolvePlane(p PlaneSpec) (kernel.Plane, error) {
	if p.plane != nil {
		return *p.plane, nil
	}
	return s.Atlas.Plane(p.name)
}

// Slice cuts actors with a plane, keeping the side the plane normal points
// to. A nil actors slice cuts every actor except the root. Solids are
// always capped at the cut; closeActors additionally drops actors that the
// cut leaves with no geometry.
func (s *Scene) Slice(where PlaneSpec, actors []*actor.Actor, closeActors bool) error {
	pl, err := s.resolvePlane(where)
	if err != nil {
		return err
	}
	if actors == nil {
		for _, a := range s.actors {
			if a != s.root {
				actors = append(actors, a)
			}
		}
	}

	k := s.Kernel()
	var empty []*actor.Actor
	for _, a := range actors {
		if a.Solid != nil {
			lo, hi := a.Solid.BoundingBox()
			a.Solid = k.Clip(a.Solid, pl)
			if behind(lo, hi, pl) || flat(a.Solid) {
				a.Solid = nil
			}
		}
		if len(a.Points) > 0 {
			clipPoints(a, pl)
		}
		if a.Solid == nil && len(a.Points) == 0 {
			empty = append(empty, a)
		}
	}
	if closeActors {
		for _, a := range empty {
			s.Remove(a)
		}
	}
	return nil
}

// flat reports whether a solid's bounding box has collapsed, as happens when
// an axis-aligned cut misses it entirely.
func flat(sd kernel.Solid) bool {
	lo, hi := sd.BoundingBox()
	for i := 0; i < 3; i++ {
		if hi[i] <= lo[i] {
			return true
		}
	}
	return false
}

// behind reports whether the box lo..hi lies wholly on the discarded side of
// pl, so that clipping anything inside it leaves nothing.
func behind(lo, hi [3]float64, pl kernel.Plane) bool {
	for i := 0; i < 8; i++ {
		c := lo
		for ax := 0; ax < 3; ax++ {
			if i&(1<<ax) != 0 {
				c[ax] = hi[ax]
			}
		}
		if pl.Side(c) > 0 {
			return false
		}
	}
	return true
}

// clipPoints keeps the points on the positive side of pl, and their colors.
func clipPoints(a *actor.Actor, pl kernel.Plane) {
	keep := a.Points[:0:0]
	var keepColors []colors.Color
	for i, p := range a.Points {
		if pl.Side(p) < 0 {
			continue
		}
		keep = append(keep, p)
		if i < len(a.PointColors) {
			keepColors = append(keepColors, a.PointColors[i])
		}
	}
	a.Points = keep
	if a.PointColors != nil {
		a.PointColors = keepColors
	}
}
