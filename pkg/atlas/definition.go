package atlas

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Shape kinds understood by Build.
const (
	ShapeEllipsoid = "ellipsoid"
	ShapeSphere    = "sphere"
	ShapeBox       = "box"
)

// Definition is the on-disk description of an atlas. Coordinates are in
// micrometers with axes (AP, DV, LR).
type Definition struct {
	Name       string     `yaml:"name"`
	Resolution [3]float64 `yaml:"resolution"`
	Shape      [3]int     `yaml:"shape"`

	// AxesOrder names the anatomical plane each axis is normal to, e.g.
	// [frontal, horizontal, sagittal]. Custom atlases may leave it empty.
	AxesOrder []string `yaml:"axes_order,omitempty"`

	// Midline is the LR coordinate separating the hemispheres. Zero means
	// the middle of the LR extent.
	Midline float64 `yaml:"midline,omitempty"`

	DefaultCamera string         `yaml:"default_camera,omitempty"`
	Structures    []StructureDef `yaml:"structures"`
}

// StructureDef is one node of the structure hierarchy. A structure with no
// shapes takes the union of its children's volumes.
type StructureDef struct {
	ID      int        `yaml:"id"`
	Acronym string     `yaml:"acronym"`
	Name    string     `yaml:"name"`
	Parent  int        `yaml:"parent,omitempty"`
	RGB     [3]uint8   `yaml:"rgb"`
	Shapes  []ShapeDef `yaml:"shapes,omitempty"`
}

// ShapeDef is a primitive volume. Size holds the radii of an ellipsoid or
// the edge lengths of a box; Radius is used by spheres.
type ShapeDef struct {
	Kind   string     `yaml:"kind"`
	Center [3]float64 `yaml:"center"`
	Size   [3]float64 `yaml:"size,omitempty"`
	Radius float64    `yaml:"radius,omitempty"`

	// Mirror adds a copy reflected across the midline.
	Mirror bool `yaml:"mirror,omitempty"`
}

// Extent returns shape × resolution along each axis.
func (d *Definition) Extent() [3]float64 {
	var e [3]float64
	for i := range e {
		e[i] = float64(d.Shape[i]) * d.Resolution[i]
	}
	return e
}

// MidlineLR returns the effective midline coordinate.
func (d *Definition) MidlineLR() float64 {
	if d.Midline != 0 {
		return d.Midline
	}
	return d.Extent()[2] / 2
}

// Parse decodes a YAML atlas definition. Unknown fields are rejected.
func Parse(r io.Reader) (*Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("parsing atlas definition: %w", err)
	}
	return &def, nil
}

// Load reads a YAML atlas definition from path.
func Load(path string) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading atlas: %w", err)
	}
	defer f.Close()
	def, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}
