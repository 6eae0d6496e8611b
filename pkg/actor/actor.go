// Package actor defines the renderable objects held by a scene and the
// normalization of per-actor naming inputs.
package actor

import (
	"fmt"
	"strings"

	"github.com/chazu/brainscene/pkg/colors"
	"github.com/chazu/brainscene/pkg/kernel"
	"github.com/google/uuid"
)

// Well-known actor classes.
const (
	ClassBrainRegion = "brain region"
	ClassCells       = "cells"
	ClassGeneData    = "Gene Data"
	ClassLabel       = "label"
	ClassFromFile    = "from file"
)

// Actor is a renderable scene object: a solid and/or a point cloud plus
// display attributes.
type Actor struct {
	ID    uuid.UUID
	Name  string
	Class string

	// Solid is the region volume. It is nil for point clouds.
	Solid kernel.Solid

	// Points holds point-cloud coordinates. PointColors, when set, is
	// parallel to Points.
	Points      [][3]float64
	PointColors []colors.Color

	Color colors.Color
	Alpha float64
	Label string
}

// New returns an actor with a fresh ID and full opacity.
func New(name, class string, solid kernel.Solid) *Actor {
	return &Actor{
		ID:    uuid.New(),
		Name:  name,
		Class: class,
		Solid: solid,
		Alpha: 1,
	}
}

// NewPoints returns a point-cloud actor.
func NewPoints(name, class string, points [][3]float64) *Actor {
	a := New(name, class, nil)
	a.Points = points
	return a
}

// DisplayName returns the actor name or, when unnamed, a short form of its ID.
func (a *Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID.String()[:8]
}

// Bounds returns the axis-aligned bounds of the actor as
// (xmin, xmax, ymin, ymax, zmin, zmax), covering both solid and points.
// ok is false for an actor with no geometry.
func (a *Actor) Bounds() (b [6]float64, ok bool) {
	if a.Solid != nil {
		b = kernel.Bounds(a.Solid)
		ok = true
	}
	for _, p := range a.Points {
		if !ok {
			b = [6]float64{p[0], p[0], p[1], p[1], p[2], p[2]}
			ok = true
			continue
		}
		for i := 0; i < 3; i++ {
			b[2*i] = min(b[2*i], p[i])
			b[2*i+1] = max(b[2*i+1], p[i])
		}
	}
	return b, ok
}

func (a *Actor) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)", a.DisplayName(), a.Class)
	if len(a.Points) > 0 {
		fmt.Fprintf(&sb, " %d points", len(a.Points))
	}
	if a.Label != "" {
		fmt.Fprintf(&sb, " label=%q", a.Label)
	}
	return sb.String()
}
