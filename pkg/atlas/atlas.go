// Package atlas holds a reference brain atlas: the structure hierarchy, the
// volume of each structure and the coordinate space it lives in.
package atlas

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/chazu/brainscene/pkg/colors"
	"github.com/chazu/brainscene/pkg/kernel"
)

// ErrInvalidDefinition is returned by Build when validation finds errors.
var ErrInvalidDefinition = errors.New("invalid atlas definition")

// Hemisphere restricts a region lookup to one side of the midline.
type Hemisphere int

const (
	HemisphereBoth Hemisphere = iota
	HemisphereLeft            // LR coordinate below the midline
	HemisphereRight
)

func (h Hemisphere) String() string {
	switch h {
	case HemisphereBoth:
		return "both"
	case HemisphereLeft:
		return "left"
	case HemisphereRight:
		return "right"
	}
	return fmt.Sprintf("Hemisphere(%d)", int(h))
}

// ParseHemisphere accepts "left", "right", "both" or "" (both).
func ParseHemisphere(s string) (Hemisphere, error) {
	switch strings.ToLower(s) {
	case "", "both":
		return HemisphereBoth, nil
	case "left":
		return HemisphereLeft, nil
	case "right":
		return HemisphereRight, nil
	}
	return 0, fmt.Errorf("invalid hemisphere %q, expected left, right or both", s)
}

// Metadata describes the voxel grid the atlas was defined on.
type Metadata struct {
	Shape      [3]int
	Resolution [3]float64
}

// Space names the anatomical plane each axis is normal to.
type Space struct {
	AxesOrder [3]string
}

// Structure is one annotated brain region.
type Structure struct {
	ID       int
	Acronym  string
	Name     string
	ParentID int
	Color    colors.Color

	// Solid is the region volume. It may be nil for structures that have
	// no geometry.
	Solid kernel.Solid

	children []int
}

// Atlas is a built, read-only atlas. It is safe for concurrent readers.
type Atlas struct {
	Name          string
	Metadata      Metadata
	Space         *Space // nil for atlases without axes information
	DefaultCamera string
	Midline       float64

	kernel     kernel.Kernel
	structures []*Structure
	byAcronym  map[string]*Structure
	byID       map[int]*Structure
	root       *Structure
}

// Build validates def and constructs every structure volume with k.
// Warnings are returned alongside a usable atlas; any error-severity finding
// fails the build.
func Build(def *Definition, k kernel.Kernel) (*Atlas, []ValidationError, error) {
	findings := Validate(def)
	var warnings []ValidationError
	var msgs []string
	for _, f := range findings {
		if f.Severity == SeverityError {
			msgs = append(msgs, f.Error())
		} else {
			warnings = append(warnings, f)
		}
	}
	if len(msgs) > 0 {
		return nil, warnings, fmt.Errorf("%w %q: %s", ErrInvalidDefinition, def.Name, strings.Join(msgs, "; "))
	}

	a := &Atlas{
		Name:          def.Name,
		Metadata:      Metadata{Shape: def.Shape, Resolution: def.Resolution},
		DefaultCamera: def.DefaultCamera,
		Midline:       def.MidlineLR(),
		kernel:        k,
		byAcronym:     make(map[string]*Structure, len(def.Structures)),
		byID:          make(map[int]*Structure, len(def.Structures)),
	}
	if len(def.AxesOrder) == 3 {
		a.Space = &Space{AxesOrder: [3]string(def.AxesOrder)}
	}

	for _, sd := range def.Structures {
		s := &Structure{
			ID:       sd.ID,
			Acronym:  sd.Acronym,
			Name:     sd.Name,
			ParentID: sd.Parent,
			Color: colors.Color{
				R: float64(sd.RGB[0]) / 255,
				G: float64(sd.RGB[1]) / 255,
				B: float64(sd.RGB[2]) / 255,
			},
			Solid: a.buildShapes(sd.Shapes),
		}
		a.structures = append(a.structures, s)
		a.byAcronym[s.Acronym] = s
		a.byID[s.ID] = s
		if s.ParentID == 0 {
			a.root = s
		}
	}
	for _, s := range a.structures {
		if p, ok := a.byID[s.ParentID]; ok {
			p.children = append(p.children, s.ID)
		}
	}
	a.fillFromChildren(a.root)
	return a, warnings, nil
}

func (a *Atlas) buildShapes(shapes []ShapeDef) kernel.Solid {
	var out kernel.Solid
	add := func(s kernel.Solid) {
		if out == nil {
			out = s
			return
		}
		out = a.kernel.Union(out, s)
	}
	for _, sh := range shapes {
		var s kernel.Solid
		switch sh.Kind {
		case ShapeEllipsoid:
			s = a.kernel.Ellipsoid(sh.Size[0], sh.Size[1], sh.Size[2])
		case ShapeSphere:
			s = a.kernel.Sphere(sh.Radius)
		case ShapeBox:
			s = a.kernel.Box(sh.Size[0], sh.Size[1], sh.Size[2])
		}
		s = a.kernel.Translate(s, sh.Center[0], sh.Center[1], sh.Center[2])
		add(s)
		if sh.Mirror {
			add(a.kernel.Mirror(s, 2, a.Midline))
		}
	}
	return out
}

// fillFromChildren gives structures without their own shapes the union of
// their children's volumes, bottom-up.
func (a *Atlas) fillFromChildren(s *Structure) kernel.Solid {
	var union kernel.Solid
	for _, id := range s.children {
		c := a.fillFromChildren(a.byID[id])
		if c == nil {
			continue
		}
		if union == nil {
			union = c
		} else {
			union = a.kernel.Union(union, c)
		}
	}
	if s.Solid == nil {
		s.Solid = union
	}
	return s.Solid
}

// Kernel returns the geometry kernel the atlas volumes were built with.
func (a *Atlas) Kernel() kernel.Kernel { return a.kernel }

// Root returns the root structure, the whole brain.
func (a *Atlas) Root() *Structure { return a.root }

// Structure looks up a structure by acronym.
func (a *Atlas) Structure(acronym string) (*Structure, bool) {
	s, ok := a.byAcronym[acronym]
	return s, ok
}

// Acronyms returns every structure acronym in definition order.
func (a *Atlas) Acronyms() []string {
	out := make([]string, len(a.structures))
	for i, s := range a.structures {
		out[i] = s.Acronym
	}
	return out
}

// RegionMesh returns the volume of a structure. ok is false for unknown
// acronyms and structures without geometry.
func (a *Atlas) RegionMesh(acronym string) (kernel.Solid, bool) {
	s, ok := a.byAcronym[acronym]
	if !ok || s.Solid == nil {
		return nil, false
	}
	return s.Solid, true
}

// RegionUnilateral returns the part of a structure volume in one hemisphere.
// HemisphereBoth returns the whole volume.
func (a *Atlas) RegionUnilateral(acronym string, h Hemisphere) (kernel.Solid, bool) {
	s, ok := a.RegionMesh(acronym)
	if !ok {
		return nil, false
	}
	switch h {
	case HemisphereLeft:
		clipped := a.kernel.Clip(s, kernel.Plane{Origin: [3]float64{0, 0, a.Midline}, Normal: [3]float64{0, 0, -1}})
		return &leftSolid{Solid: clipped, midline: a.Midline}, true
	case HemisphereRight:
		return a.kernel.Clip(s, kernel.Plane{Origin: [3]float64{0, 0, a.Midline}, Normal: [3]float64{0, 0, 1}}), true
	}
	return s, true
}

// leftSolid is the left-hemisphere part of a volume. The midline itself
// belongs to the right hemisphere, so containment there is strict.
type leftSolid struct {
	kernel.Solid
	midline float64
}

func (l *leftSolid) Contains(p [3]float64) bool {
	return p[2] < l.midline && l.Solid.Contains(p)
}

func (l *leftSolid) Unwrap() kernel.Solid { return l.Solid }

// Resolve implements region lookup for point sampling.
func (a *Atlas) Resolve(acronym string, h Hemisphere) (kernel.Solid, bool) {
	return a.RegionUnilateral(acronym, h)
}

// Hemisphere reports which side of the midline p lies on.
func (a *Atlas) Hemisphere(p [3]float64) Hemisphere {
	if p[2] < a.Midline {
		return HemisphereLeft
	}
	return HemisphereRight
}

// Ancestors returns the acronyms from the root down to the parent of the
// named structure.
func (a *Atlas) Ancestors(acronym string) ([]string, bool) {
	s, ok := a.byAcronym[acronym]
	if !ok {
		return nil, false
	}
	var out []string
	for p, ok := a.byID[s.ParentID]; ok; p, ok = a.byID[p.ParentID] {
		out = append(out, p.Acronym)
	}
	slices.Reverse(out)
	return out, true
}

// Descendants returns the acronyms below the named structure in pre-order.
func (a *Atlas) Descendants(acronym string) ([]string, bool) {
	s, ok := a.byAcronym[acronym]
	if !ok {
		return nil, false
	}
	var out []string
	var walk func(*Structure)
	walk = func(s *Structure) {
		for _, id := range s.children {
			c := a.byID[id]
			out = append(out, c.Acronym)
			walk(c)
		}
	}
	walk(s)
	return out, true
}

// Extent returns the size of the atlas volume along each axis.
func (a *Atlas) Extent() [3]float64 {
	var e [3]float64
	for i := range e {
		e[i] = float64(a.Metadata.Shape[i]) * a.Metadata.Resolution[i]
	}
	return e
}

// AxisIndex returns the axis normal to the named plane ("frontal",
// "horizontal", "sagittal"). ok is false when the atlas has no space.
func (a *Atlas) AxisIndex(plane string) (int, bool) {
	if a.Space == nil {
		return 0, false
	}
	i := slices.Index(a.Space.AxesOrder[:], plane)
	return i, i >= 0
}

// PlaneAt returns a plane through pos with normal norm.
func (a *Atlas) PlaneAt(pos, norm [3]float64) kernel.Plane {
	return kernel.Plane{Origin: pos, Normal: norm}
}

// Plane returns a named anatomical plane through the center of the root
// volume: "frontal", "sagittal" or "horizontal".
func (a *Atlas) Plane(name string) (kernel.Plane, error) {
	var norm [3]float64
	switch name {
	case "frontal":
		norm = [3]float64{1, 0, 0}
	case "horizontal":
		norm = [3]float64{0, 1, 0}
	case "sagittal":
		norm = [3]float64{0, 0, 1}
	default:
		return kernel.Plane{}, fmt.Errorf("unknown plane %q, expected frontal, sagittal or horizontal", name)
	}
	var center [3]float64
	if a.root != nil && a.root.Solid != nil {
		b := kernel.Bounds(a.root.Solid)
		center = [3]float64{(b[0] + b[1]) / 2, (b[2] + b[3]) / 2, (b[4] + b[5]) / 2}
	} else {
		e := a.Extent()
		center = [3]float64{e[0] / 2, e[1] / 2, e[2] / 2}
	}
	return a.PlaneAt(center, norm), nil
}
