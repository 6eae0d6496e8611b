package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/chazu/brainscene/pkg/actor"
	"github.com/chazu/brainscene/pkg/atlas"
	"github.com/chazu/brainscene/pkg/camera"
	"github.com/chazu/brainscene/pkg/kernel"
	"github.com/chazu/brainscene/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms scene script source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: points-in-region -> points_in_region
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
//  3. Head renames: (slice ...) -> (scene_slice ...)
//     zygomys ships builtins under some scene names, and its own wins over
//     one added later. Only the head symbol of a form is renamed.
//
// All transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		if b[i] == '(' {
			result = append(result, b[i])
			i++
			j := i
			for j < len(b) && isSpace(b[j]) {
				j++
			}
			k := j
			for k < len(b) && isIdentChar(b[k]) {
				k++
			}
			if to, ok := headRenames[string(b[j:k])]; ok && (k == len(b) || isDelim(b[k])) {
				result = append(result, b[i:j]...)
				result = append(result, to...)
				i = k
			}
			continue
		}
		// Only when the hyphen sits between identifier characters (not a
		// minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

// headRenames maps scene builtins that collide with zygomys builtins to the
// names they are registered under.
var headRenames = map[string]string{
	"slice": "scene_slice",
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDelim(c byte) bool {
	return isSpace(c) || c == '(' || c == ')'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpActors wraps actors returned by `region`, `cells` and friends so they
// can be labelled, sliced or removed later in the script.
type sexpActors struct {
	actors []*actor.Actor
}

func (a *sexpActors) SexpString(ps *zygo.PrintState) string {
	names := make([]string, len(a.actors))
	for i, x := range a.actors {
		names[i] = fmt.Sprintf("%q", x.DisplayName())
	}
	return fmt.Sprintf("(actors %s)", strings.Join(names, " "))
}
func (a *sexpActors) Type() *zygo.RegisteredType { return nil }

// sexpPoint wraps a coordinate in micrometers.
type sexpPoint struct {
	p [3]float64
}

func (p *sexpPoint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(point %.1f %.1f %.1f)", p.p[0], p.p[1], p.p[2])
}
func (p *sexpPoint) Type() *zygo.RegisteredType { return nil }

// sexpPlane wraps an explicit cutting plane.
type sexpPlane struct {
	plane kernel.Plane
}

func (p *sexpPlane) SexpString(ps *zygo.PrintState) string {
	o, n := p.plane.Origin, p.plane.Normal
	return fmt.Sprintf("(plane :at (point %.1f %.1f %.1f) :normal (point %.1f %.1f %.1f))",
		o[0], o[1], o[2], n[0], n[1], n[2])
}
func (p *sexpPlane) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	flags      []string // flag keywords in argument order
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
// A keyword whose value is itself a keyword, or that ends the list, is a
// flag: (slice :frontal) has the flag "frontal".
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			if _, next := isKW(args[i+1]); !next || isValueKeyword(name) {
				result.kw[name] = args[i+1]
				i += 2
				continue
			}
		}
		result.kw[name] = zygo.SexpNull
		result.flags = append(result.flags, name)
		i++
	}
	return result
}

// isValueKeyword reports whether the keyword takes another keyword as its
// value, as in :hemisphere :left.
func isValueKeyword(name string) bool {
	switch name {
	case "hemisphere", "plane", "camera":
		return true
	}
	return false
}

// flag returns the first flag, in argument order, that is one of names.
func (a kwArgs) flag(names ...string) (string, bool) {
	for _, f := range a.flags {
		if slices.Contains(names, f) && a.kw[f] == zygo.SexpNull {
			return f, true
		}
	}
	return "", false
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts a whole number from a Sexp.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a boolean; a bare flag keyword counts as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_left) and plain strings ("left").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toHemisphere converts :left, :right or :both.
func toHemisphere(s zygo.Sexp) (atlas.Hemisphere, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected hemisphere keyword (:left, :right, :both): %w", err)
	}
	return atlas.ParseHemisphere(name)
}

// toPoint extracts a coordinate from a sexpPoint.
func toPoint(s zygo.Sexp) ([3]float64, error) {
	if v, ok := s.(*sexpPoint); ok {
		return v.p, nil
	}
	return [3]float64{}, fmt.Errorf("expected point, got %T (%s)", s, s.SexpString(nil))
}

// toActors extracts actors from a sexpActors value or a list of them.
func toActors(s zygo.Sexp) ([]*actor.Actor, error) {
	if v, ok := s.(*sexpActors); ok {
		return v.actors, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, fmt.Errorf("expected actors, got %T (%s)", s, s.SexpString(nil))
	}
	var out []*actor.Actor
	for _, item := range items {
		v, ok := item.(*sexpActors)
		if !ok {
			return nil, fmt.Errorf("expected actors, got %T (%s)", item, item.SexpString(nil))
		}
		out = append(out, v.actors...)
	}
	return out, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// cellOptions reads the keyword arguments shared by `cells` and
// `points-in-region`.
func cellOptions(fn string, pa kwArgs) (scene.CellOptions, error) {
	var opts scene.CellOptions
	if v, ok := pa.kw["name"]; ok {
		s, err := toString(v)
		if err != nil {
			return opts, fmt.Errorf("%s: name: %w", fn, err)
		}
		opts.Name = s
	}
	if v, ok := pa.kw["color"]; ok {
		s, err := toString(v)
		if err != nil {
			return opts, fmt.Errorf("%s: color: %w", fn, err)
		}
		opts.Color = s
	}
	if v, ok := pa.kw["alpha"]; ok {
		f, err := toFloat64(v)
		if err != nil {
			return opts, fmt.Errorf("%s: alpha: %w", fn, err)
		}
		opts.Alpha = f
	}
	return opts, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene script builtins into a zygomys
// environment. The builtins operate on the provided scene, populating it
// during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *scene.Scene) {

	// -----------------------------------------------------------------------
	// (point 6600 4000 5700)
	// -----------------------------------------------------------------------
	env.AddFunction("point", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("point requires exactly 3 arguments, got %d", len(args))
		}
		var p [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("point: %s: %w", axis, err)
			}
			p[i] = f
		}
		return &sexpPoint{p: p}, nil
	})

	// -----------------------------------------------------------------------
	// (region "TH" "CA1" :hemisphere :left :color "red" :alpha 0.5)
	// -----------------------------------------------------------------------
	env.AddFunction("region", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) == 0 {
			return zygo.SexpNull, fmt.Errorf("region requires at least one acronym")
		}
		var opts scene.RegionOptions
		if v, ok := pa.kw["hemisphere"]; ok {
			h, err := toHemisphere(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("region: hemisphere: %w", err)
			}
			opts.Hemisphere = h
		}
		if v, ok := pa.kw["color"]; ok {
			c, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("region: color: %w", err)
			}
			opts.Color = c
		}
		if v, ok := pa.kw["alpha"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("region: alpha: %w", err)
			}
			opts.Alpha = f
		}

		acronyms := make([]string, len(pa.positional))
		for i, p := range pa.positional {
			a, err := toString(p)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("region: acronym %d: %w", i, err)
			}
			acronyms[i] = a
		}
		added, err := s.AddBrainRegion(opts, acronyms...)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("region: %w", err)
		}
		return &sexpActors{actors: added}, nil
	})

	// -----------------------------------------------------------------------
	// (points-in-region "TH" 100 :hemisphere :right :color "blue")
	//
	// Registered as "points_in_region" because zygomys does not support
	// hyphens in identifiers.
	// -----------------------------------------------------------------------
	env.AddFunction("points_in_region", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("points-in-region requires an acronym and a count")
		}
		acr, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("points-in-region: acronym: %w", err)
		}
		n, err := toInt(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("points-in-region: count: %w", err)
		}
		h := atlas.HemisphereBoth
		if v, ok := pa.kw["hemisphere"]; ok {
			if h, err = toHemisphere(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("points-in-region: hemisphere: %w", err)
			}
		}
		opts, err := cellOptions("points-in-region", pa)
		if err != nil {
			return zygo.SexpNull, err
		}

		a, err := s.AddPointsInRegion(acr, n, h, opts)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("points-in-region: %w", err)
		}
		if a == nil {
			return &sexpActors{}, nil
		}
		return &sexpActors{actors: []*actor.Actor{a}}, nil
	})

	// -----------------------------------------------------------------------
	// (cells (list (point 1 2 3) (point 4 5 6)) :color "red" :name "injection")
	// -----------------------------------------------------------------------
	env.AddFunction("cells", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("cells requires a list of points")
		}
		items, err := sexpListToSlice(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cells: %w", err)
		}
		points := make([][3]float64, len(items))
		for i, item := range items {
			if points[i], err = toPoint(item); err != nil {
				return zygo.SexpNull, fmt.Errorf("cells: entry %d: %w", i, err)
			}
		}
		opts, err := cellOptions("cells", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		a, err := s.AddCells(points, opts)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cells: %w", err)
		}
		return &sexpActors{actors: []*actor.Actor{a}}, nil
	})

	// -----------------------------------------------------------------------
	// (load-mesh "injection.stl" :color "tomato")
	// -----------------------------------------------------------------------
	env.AddFunction("load_mesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("load-mesh requires a file path")
		}
		path, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("load-mesh: path: %w", err)
		}
		var color string
		if v, ok := pa.kw["color"]; ok {
			if color, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("load-mesh: color: %w", err)
			}
		}
		a, err := s.AddFromFile(path, color)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("load-mesh: %w", err)
		}
		return &sexpActors{actors: []*actor.Actor{a}}, nil
	})

	// -----------------------------------------------------------------------
	// (label (region "TH") "Thalamus")
	// -----------------------------------------------------------------------
	env.AddFunction("label", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("label requires actors and a text")
		}
		targets, err := toActors(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("label: %w", err)
		}
		text, err := toString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("label: text: %w", err)
		}
		var labels []*actor.Actor
		for _, t := range targets {
			l, err := s.AddLabel(t, text)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("label: %w", err)
			}
			labels = append(labels, l)
		}
		return &sexpActors{actors: labels}, nil
	})

	// -----------------------------------------------------------------------
	// (plane :at (point 1999 1312 3421) :normal (point 1 -1 2))
	// -----------------------------------------------------------------------
	env.AddFunction("plane", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		at, okAt := pa.kw["at"]
		norm, okNorm := pa.kw["normal"]
		if !okAt || !okNorm {
			return zygo.SexpNull, fmt.Errorf("plane requires :at and :normal")
		}
		pos, err := toPoint(at)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: at: %w", err)
		}
		n, err := toPoint(norm)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: normal: %w", err)
		}
		if n == ([3]float64{}) {
			return zygo.SexpNull, fmt.Errorf("plane: normal must not be zero")
		}
		return &sexpPlane{plane: s.Atlas.PlaneAt(pos, n)}, nil
	})

	// -----------------------------------------------------------------------
	// (slice :frontal)
	// (slice (plane ...) :actors (region "TH") :close true)
	//
	// Registered as "scene_slice" because zygomys has its own slice.
	// -----------------------------------------------------------------------
	env.AddFunction("scene_slice", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var where scene.PlaneSpec
		if named, ok := pa.flag("frontal", "sagittal", "horizontal"); ok {
			where = scene.NamedPlane(named)
		} else if len(pa.positional) == 1 {
			switch v := pa.positional[0].(type) {
			case *sexpPlane:
				where = scene.AtPlane(v.plane)
			case *zygo.SexpStr:
				where = scene.NamedPlane(v.S)
			default:
				return zygo.SexpNull, fmt.Errorf("slice: expected plane, got %T (%s)", v, v.SexpString(nil))
			}
		} else {
			return zygo.SexpNull, fmt.Errorf("slice requires a plane")
		}

		var targets []*actor.Actor
		if v, ok := pa.kw["actors"]; ok {
			a, err := toActors(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("slice: actors: %w", err)
			}
			targets = a
		}
		closeActors := false
		if v, ok := pa.kw["close"]; ok {
			b, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("slice: close: %w", err)
			}
			closeActors = b
		}
		if err := s.Slice(where, targets, closeActors); err != nil {
			return zygo.SexpNull, fmt.Errorf("slice: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (camera :sagittal)
	// (camera :pos (point ...) :viewup (point ...) :focal (point ...))
	// -----------------------------------------------------------------------
	env.AddFunction("camera", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var p camera.Param
		if _, ok := pa.kw["pos"]; ok {
			var c camera.Camera
			for key, dst := range map[string]*[3]float64{"pos": &c.Pos, "viewup": &c.ViewUp, "focal": &c.FocalPoint} {
				v, ok := pa.kw[key]
				if !ok {
					continue
				}
				pt, err := toPoint(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("camera: %s: %w", key, err)
				}
				*dst = pt
			}
			p = camera.Explicit(c)
		} else {
			var preset string
			if len(pa.flags) > 0 {
				preset = pa.flags[0]
			}
			if preset == "" && len(pa.positional) == 1 {
				str, err := toKeywordString(pa.positional[0])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("camera: %w", err)
				}
				preset = str
			}
			if preset == "" {
				return zygo.SexpNull, fmt.Errorf("camera requires a preset or :pos and :viewup")
			}
			p = camera.Named(preset)
		}
		if _, err := camera.Check(p); err != nil {
			return zygo.SexpNull, fmt.Errorf("camera: %w", err)
		}
		s.SetCamera(p)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (remove "TH") or (remove (region "CA1"))
	// -----------------------------------------------------------------------
	env.AddFunction("remove", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		removed := 0
		for i, arg := range args {
			if str, ok := arg.(*zygo.SexpStr); ok {
				removed += s.RemoveNamed(str.S)
				continue
			}
			targets, err := toActors(arg)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("remove: argument %d: %w", i, err)
			}
			for _, t := range targets {
				if s.Remove(t) {
					removed++
				}
			}
		}
		return &zygo.SexpInt{Val: int64(removed)}, nil
	})

	// -----------------------------------------------------------------------
	// (get-actors :name "TH" :class "brain region")
	// -----------------------------------------------------------------------
	env.AddFunction("get_actors", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var byName, byClass string
		if v, ok := pa.kw["name"]; ok {
			str, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("get-actors: name: %w", err)
			}
			byName = str
		}
		if v, ok := pa.kw["class"]; ok {
			str, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("get-actors: class: %w", err)
			}
			byClass = str
		}
		return &sexpActors{actors: s.GetActors(byName, byClass)}, nil
	})

	// -----------------------------------------------------------------------
	// (title "Thalamus and hippocampus")
	// -----------------------------------------------------------------------
	env.AddFunction("title", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("title requires a single string")
		}
		t, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("title: %w", err)
		}
		s.Title = t
		return zygo.SexpNull, nil
	})
}
