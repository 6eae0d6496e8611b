// Package camera provides named camera presets for atlas scenes and the
// rules for picking the camera a scene starts with.
package camera

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrUnknownCamera is returned for a camera name with no preset.
	ErrUnknownCamera = errors.New("unknown camera")

	// ErrIncompleteCamera is returned for an explicit camera lacking a
	// position or view-up vector, or whose vectors define no view.
	ErrIncompleteCamera = errors.New("incomplete camera")
)

// Default is the camera used when neither the user nor the atlas picks one.
const Default = "three_quarters"

// Camera is a viewpoint in atlas coordinates (micrometers).
type Camera struct {
	Pos           [3]float64 `json:"pos" toml:"pos"`
	ViewUp        [3]float64 `json:"viewup" toml:"viewup"`
	FocalPoint    [3]float64 `json:"focal_point" toml:"focal_point"`
	ClippingRange [2]float64 `json:"clipping_range" toml:"clipping_range"`
	Distance      float64    `json:"distance" toml:"distance"`
}

// atlasCenter is the focal point shared by the presets: the center of the
// 25um mouse reference volume.
var atlasCenter = [3]float64{6600, 4000, 5700}

func preset(pos, up [3]float64, clip [2]float64) Camera {
	c := Camera{Pos: pos, ViewUp: up, FocalPoint: atlasCenter, ClippingRange: clip}
	c.Distance = r3.Norm(r3.Sub(vec(pos), vec(atlasCenter)))
	return c
}

var presets = map[string]Camera{
	"sagittal":       preset([3]float64{6514, -34, 36854}, [3]float64{0, -1, 0}, [2]float64{24098, 49971}),
	"sagittal2":      preset([3]float64{9782, 1795, -40999}, [3]float64{0, -1, 0}, [2]float64{23256, 51031}),
	"frontal":        preset([3]float64{-19199, -1428, -5763}, [3]float64{0, -1, 0}, [2]float64{19531, 40903}),
	"top":            preset([3]float64{7760, -31645, -5943}, [3]float64{-1, 0, 0}, [2]float64{27262, 45988}),
	"top_side":       preset([3]float64{4405, -31597, -5411}, [3]float64{0, 0, -1}, [2]float64{26892, 46454}),
	"three_quarters": preset([3]float64{-20169, -7298, 14832}, [3]float64{0, -1, 0}, [2]float64{16955, 58963}),
}

// Names returns the preset names in sorted order.
func Names() []string {
	return slices.Sorted(maps.Keys(presets))
}

// Preset returns the named preset. Names are case-insensitive and accept
// hyphens for underscores.
func Preset(name string) (Camera, bool) {
	c, ok := presets[strings.ReplaceAll(strings.ToLower(name), "-", "_")]
	return c, ok
}

// Param is a camera given either by preset name or explicitly. The zero
// value is unset.
type Param struct {
	name string
	cam  *Camera
}

// Named refers to a preset.
func Named(name string) Param { return Param{name: name} }

// Explicit wraps a fully specified camera.
func Explicit(c Camera) Param { return Param{cam: &c} }

// IsSet reports whether p names or holds a camera.
func (p Param) IsSet() bool { return p.cam != nil || p.name != "" }

func (p Param) String() string {
	switch {
	case p.cam != nil:
		return fmt.Sprintf("camera(pos=%v)", p.cam.Pos)
	case p.name != "":
		return p.name
	}
	return "<unset>"
}

// Check resolves p to a usable camera.
func Check(p Param) (Camera, error) {
	if p.cam != nil {
		c := *p.cam
		if c.Pos == ([3]float64{}) || c.ViewUp == ([3]float64{}) {
			return Camera{}, fmt.Errorf("%w: pos and viewup are required", ErrIncompleteCamera)
		}
		if c.FocalPoint == ([3]float64{}) {
			c.FocalPoint = atlasCenter
		}
		fwd := r3.Sub(vec(c.FocalPoint), vec(c.Pos))
		if r3.Norm(fwd) == 0 {
			return Camera{}, fmt.Errorf("%w: pos coincides with the focal point", ErrIncompleteCamera)
		}
		if r3.Norm(r3.Cross(r3.Unit(fwd), r3.Unit(vec(c.ViewUp)))) < 1e-9 {
			return Camera{}, fmt.Errorf("%w: viewup is parallel to the view direction", ErrIncompleteCamera)
		}
		if c.Distance == 0 {
			c.Distance = r3.Norm(r3.Sub(vec(c.Pos), vec(c.FocalPoint)))
		}
		return c, nil
	}
	if p.name == "" {
		return Camera{}, fmt.Errorf("%w: no camera given", ErrUnknownCamera)
	}
	c, ok := Preset(p.name)
	if !ok {
		return Camera{}, fmt.Errorf("%w %q, expected one of %v", ErrUnknownCamera, p.name, Names())
	}
	return c, nil
}

// ForScene picks a scene camera: the user's camera if given, otherwise the
// atlas default, otherwise the fallback preset (Default when empty).
func ForScene(user, atlasDefault Param, fallback string) (Camera, error) {
	switch {
	case user.IsSet():
		return Check(user)
	case atlasDefault.IsSet():
		return Check(atlasDefault)
	}
	if fallback == "" {
		fallback = Default
	}
	return Check(Named(fallback))
}

// Basis returns unit vectors for the screen right and up directions and the
// viewing direction (from the camera toward the focal point).
func (c Camera) Basis() (right, up, forward r3.Vec) {
	forward = r3.Unit(r3.Sub(vec(c.FocalPoint), vec(c.Pos)))
	vu := vec(c.ViewUp)
	// Remove the component of view-up along the viewing direction.
	up = r3.Unit(r3.Sub(vu, r3.Scale(r3.Dot(vu, forward), forward)))
	right = r3.Cross(forward, up)
	return right, up, forward
}

// Project maps p to screen coordinates (u right, v up) relative to the focal
// point, discarding depth.
func (c Camera) Project(p [3]float64) (u, v float64) {
	right, up, _ := c.Basis()
	d := r3.Sub(vec(p), vec(c.FocalPoint))
	return r3.Dot(d, right), r3.Dot(d, up)
}

func vec(p [3]float64) r3.Vec {
	return r3.Vec{X: p[0], Y: p[1], Z: p[2]}
}
