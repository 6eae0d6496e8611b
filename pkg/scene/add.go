package scene

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/chazu/brainscene/pkg/actor"
	"github.com/chazu/brainscene/pkg/atlas"
	"github.com/chazu/brainscene/pkg/colors"
	"github.com/chazu/brainscene/pkg/kernel"
	"github.com/chazu/brainscene/pkg/sampling"
)

// DefaultCellColor is the color of point clouds added without one.
const DefaultCellColor = "salmon"

// DefaultFileColor is the color of meshes loaded without one.
const DefaultFileColor = "gainsboro"

// ErrUnsupportedFile is returned by AddFromFile for files the scene kernel
// cannot import.
var ErrUnsupportedFile = errors.New("unsupported mesh file")

// RegionOptions controls how brain regions are added.
type RegionOptions struct {
	Hemisphere atlas.Hemisphere
	// Color overrides the atlas color of the structure.
	Color string
	// Alpha is the opacity. Zero means opaque.
	Alpha float64
}

// AddBrainRegion adds one actor per resolvable acronym and returns them.
// Unknown acronyms are logged and skipped; the result is nil when none
// resolved.
func (s *Scene) AddBrainRegion(opts RegionOptions, acronyms ...string) ([]*actor.Actor, error) {
	var override *colors.Color
	if opts.Color != "" {
		c, err := colors.Parse(opts.Color)
		if err != nil {
			return nil, err
		}
		override = &c
	}

	var added []*actor.Actor
	for _, acr := range acronyms {
		solid, ok := s.Atlas.RegionUnilateral(acr, opts.Hemisphere)
		if !ok {
			log.Printf("scene: no brain region %q in atlas %s, skipping", acr, s.Atlas.Name)
			continue
		}
		st, _ := s.Atlas.Structure(acr)
		a := actor.New(acr, actor.ClassBrainRegion, solid)
		a.Color = st.Color
		if override != nil {
			a.Color = *override
		}
		if opts.Alpha > 0 {
			a.Alpha = opts.Alpha
		}
		added = append(added, a)
	}
	s.actors = append(s.actors, added...)
	return added, nil
}

// CellOptions controls how point clouds are added and colored.
type CellOptions struct {
	Name  string
	Alpha float64

	// Color is a single color for every point, DefaultCellColor when empty.
	Color string

	// ColorBy colors each point from a metadata column of Table. Lookup, when
	// set, must cover every value of the column; otherwise colors come from
	// Palette (a random palette when nil).
	ColorBy string
	Table   *colors.Table
	Lookup  colors.Lookup
	Palette colors.Palette
}

// AddCells adds a point cloud actor of class "cells".
func (s *Scene) AddCells(points [][3]float64, opts CellOptions) (*actor.Actor, error) {
	name := opts.Name
	if name == "" {
		name = actor.ClassCells
	}
	a := actor.NewPoints(name, actor.ClassCells, points)
	if opts.Alpha > 0 {
		a.Alpha = opts.Alpha
	}

	c := opts.Color
	if c == "" {
		c = DefaultCellColor
	}
	col, err := colors.Parse(c)
	if err != nil {
		return nil, err
	}
	a.Color = col

	if opts.ColorBy != "" {
		if opts.Table == nil {
			return nil, fmt.Errorf("coloring by %q: no metadata table", opts.ColorBy)
		}
		if opts.Table.Len() != len(points) {
			return nil, fmt.Errorf("%w: metadata has %d rows for %d points",
				actor.ErrShapeMismatch, opts.Table.Len(), len(points))
		}
		var copts []colors.Option
		if opts.Palette != nil {
			copts = append(copts, colors.WithPalette(opts.Palette))
		}
		pc, err := colors.FromMetadata(opts.Table, opts.ColorBy, opts.Lookup, copts...)
		if err != nil {
			return nil, err
		}
		a.PointColors = pc
	}

	s.actors = append(s.actors, a)
	return a, nil
}

// AddPointsInRegion samples n points inside a region and adds them as a
// point cloud. A region missing from the atlas is logged and yields a nil
// actor with a nil error.
func (s *Scene) AddPointsInRegion(acronym string, n int, h atlas.Hemisphere, opts CellOptions) (*actor.Actor, error) {
	points, found, err := s.sampler.Sample(sampling.ByName(acronym, h), n)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", acronym, err)
	}
	if !found {
		log.Printf("scene: no brain region %q in atlas %s, no points added", acronym, s.Atlas.Name)
		return nil, nil
	}
	if opts.Name == "" {
		opts.Name = acronym + " cells"
	}
	return s.AddCells(points, opts)
}

// AddLabel attaches text to a and adds a label actor anchored on the dorsal
// surface of a's bounding box.
func (s *Scene) AddLabel(a *actor.Actor, text string) (*actor.Actor, error) {
	b, ok := a.Bounds()
	if !ok {
		return nil, fmt.Errorf("cannot label %s: actor has no geometry", a.DisplayName())
	}
	a.Label = text
	anchor := [3]float64{(b[0] + b[1]) / 2, b[2], (b[4] + b[5]) / 2}
	l := actor.NewPoints(text, actor.ClassLabel, [][3]float64{anchor})
	l.Label = text
	l.Color = a.Color
	s.actors = append(s.actors, l)
	return l, nil
}

// AddFromFile loads the closed mesh in an STL file and adds it as an actor
// of class "from file", named after the file.
func (s *Scene) AddFromFile(path, color string) (*actor.Actor, error) {
	ext := filepath.Ext(path)
	if !strings.EqualFold(ext, ".stl") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
	loader, ok := s.Kernel().(kernel.MeshLoader)
	if !ok {
		return nil, fmt.Errorf("%w: kernel cannot load meshes", ErrUnsupportedFile)
	}
	if color == "" {
		color = DefaultFileColor
	}
	col, err := colors.Parse(color)
	if err != nil {
		return nil, err
	}
	solid, err := loader.LoadSTL(path)
	if err != nil {
		return nil, err
	}
	a := actor.New(strings.TrimSuffix(filepath.Base(path), ext), actor.ClassFromFile, solid)
	a.Color = col
	s.actors = append(s.actors, a)
	return a, nil
}
