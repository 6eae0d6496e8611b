package atlas

import (
	"fmt"

	"github.com/chazu/brainscene/pkg/camera"
)

// ValidationSeverity indicates whether a validation finding blocks building
// the atlas or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks Build
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Acronym  string             // which structure has the problem (empty if atlas-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Acronym == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] structure %s: %s", e.Severity, e.Acronym, e.Message)
}

// Validate checks an atlas definition and returns every finding. An empty
// slice means the definition is valid. It never mutates def.
func Validate(def *Definition) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateGrid(def)...)
	errs = append(errs, validateIdentity(def)...)
	errs = append(errs, validateHierarchy(def)...)
	errs = append(errs, validateShapes(def)...)
	return errs
}

func validateGrid(def *Definition) []ValidationError {
	var errs []ValidationError
	for i := 0; i < 3; i++ {
		if def.Shape[i] <= 0 || def.Resolution[i] <= 0 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("axis %d: shape %d and resolution %g must be positive", i, def.Shape[i], def.Resolution[i]),
				Severity: SeverityError,
			})
		}
	}
	if len(def.AxesOrder) != 0 && len(def.AxesOrder) != 3 {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("axes_order must name 3 axes, got %d", len(def.AxesOrder)),
			Severity: SeverityError,
		})
	}
	if def.DefaultCamera != "" {
		if _, err := camera.Check(camera.Named(def.DefaultCamera)); err != nil {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("default camera: %v", err),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateIdentity checks that ids and acronyms are unique and non-empty.
func validateIdentity(def *Definition) []ValidationError {
	var errs []ValidationError
	ids := make(map[int]bool)
	acronyms := make(map[string]bool)
	for _, s := range def.Structures {
		if s.Acronym == "" {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("structure %d has no acronym", s.ID),
				Severity: SeverityError,
			})
		} else if acronyms[s.Acronym] {
			errs = append(errs, ValidationError{
				Acronym:  s.Acronym,
				Message:  "duplicate acronym",
				Severity: SeverityError,
			})
		}
		acronyms[s.Acronym] = true

		if s.ID <= 0 {
			errs = append(errs, ValidationError{
				Acronym:  s.Acronym,
				Message:  fmt.Sprintf("id %d must be positive", s.ID),
				Severity: SeverityError,
			})
		} else if ids[s.ID] {
			errs = append(errs, ValidationError{
				Acronym:  s.Acronym,
				Message:  fmt.Sprintf("duplicate id %d", s.ID),
				Severity: SeverityError,
			})
		}
		ids[s.ID] = true
	}
	return errs
}

// validateHierarchy checks for exactly one root, dangling parents and
// cycles. Cycles are found with a DFS using 3-color marking.
func validateHierarchy(def *Definition) []ValidationError {
	var errs []ValidationError

	byID := make(map[int]StructureDef, len(def.Structures))
	for _, s := range def.Structures {
		byID[s.ID] = s
	}

	var roots []string
	for _, s := range def.Structures {
		if s.Parent == 0 {
			roots = append(roots, s.Acronym)
			continue
		}
		if _, ok := byID[s.Parent]; !ok {
			errs = append(errs, ValidationError{
				Acronym:  s.Acronym,
				Message:  fmt.Sprintf("parent %d does not exist", s.Parent),
				Severity: SeverityError,
			})
		}
	}
	switch len(roots) {
	case 0:
		errs = append(errs, ValidationError{
			Message:  "no root structure (one structure must have no parent)",
			Severity: SeverityError,
		})
	case 1:
	default:
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("multiple root structures: %v", roots),
			Severity: SeverityError,
		})
	}

	const (
		white = iota
		gray
		black
	)
	color := make(map[int]int)
	var visit func(id int) bool // returns true if cycle found
	visit = func(id int) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				Acronym:  byID[id].Acronym,
				Message:  "cycle detected in parent chain",
				Severity: SeverityError,
			})
			return true
		}
		color[id] = gray
		s, ok := byID[id]
		if ok && s.Parent != 0 {
			if _, exists := byID[s.Parent]; exists && visit(s.Parent) {
				color[id] = black
				return true
			}
		}
		color[id] = black
		return false
	}
	for _, s := range def.Structures {
		if color[s.ID] == white {
			visit(s.ID)
		}
	}
	return errs
}

// validateShapes checks primitive parameters and warns about geometry that
// falls outside the atlas volume or structures that end up with none.
func validateShapes(def *Definition) []ValidationError {
	var errs []ValidationError
	extent := def.Extent()

	hasChildren := make(map[int]bool)
	for _, s := range def.Structures {
		hasChildren[s.Parent] = true
	}

	for _, s := range def.Structures {
		if len(s.Shapes) == 0 && !hasChildren[s.ID] {
			errs = append(errs, ValidationError{
				Acronym:  s.Acronym,
				Message:  "structure has no shapes and no children; it will have no mesh",
				Severity: SeverityWarning,
			})
		}
		for i, sh := range s.Shapes {
			half, err := shapeHalfExtent(sh)
			if err != nil {
				errs = append(errs, ValidationError{
					Acronym:  s.Acronym,
					Message:  fmt.Sprintf("shape %d: %v", i, err),
					Severity: SeverityError,
				})
				continue
			}
			for a := 0; a < 3; a++ {
				if sh.Center[a]-half[a] < 0 || (extent[a] > 0 && sh.Center[a]+half[a] > extent[a]) {
					errs = append(errs, ValidationError{
						Acronym:  s.Acronym,
						Message:  fmt.Sprintf("shape %d extends outside the atlas volume on axis %d", i, a),
						Severity: SeverityWarning,
					})
					break
				}
			}
		}
	}
	return errs
}

// shapeHalfExtent returns the half size of a shape's bounding box along each
// axis, or an error for an unknown kind or degenerate parameters.
func shapeHalfExtent(sh ShapeDef) ([3]float64, error) {
	switch sh.Kind {
	case ShapeEllipsoid:
		if sh.Size[0] <= 0 || sh.Size[1] <= 0 || sh.Size[2] <= 0 {
			return [3]float64{}, fmt.Errorf("ellipsoid radii %v must be positive", sh.Size)
		}
		return sh.Size, nil
	case ShapeBox:
		if sh.Size[0] <= 0 || sh.Size[1] <= 0 || sh.Size[2] <= 0 {
			return [3]float64{}, fmt.Errorf("box size %v must be positive", sh.Size)
		}
		return [3]float64{sh.Size[0] / 2, sh.Size[1] / 2, sh.Size[2] / 2}, nil
	case ShapeSphere:
		if sh.Radius <= 0 {
			return [3]float64{}, fmt.Errorf("sphere radius %g must be positive", sh.Radius)
		}
		return [3]float64{sh.Radius, sh.Radius, sh.Radius}, nil
	}
	return [3]float64{}, fmt.Errorf("unknown shape kind %q", sh.Kind)
}
