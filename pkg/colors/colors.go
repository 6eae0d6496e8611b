// Package colors resolves colors for scene actors: parsing named and hex
// colors, generating distinguishable palettes, and coloring entities by a
// categorical metadata column.
package colors

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// Color is an sRGB color.
type Color = colorful.Color

// Parse converts a color string into a Color. It accepts "#rgb", "#rrggbb"
// and the SVG 1.1 color keywords ("red", "steelblue", ...), case-insensitive.
func Parse(s string) (Color, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return Color{}, fmt.Errorf("colors: empty color")
	}
	if name[0] == '#' {
		if len(name) == 4 {
			name = string([]byte{'#', name[1], name[1], name[2], name[2], name[3], name[3]})
		}
		c, err := colorful.Hex(name)
		if err != nil {
			return Color{}, fmt.Errorf("colors: parse %q: %w", s, err)
		}
		return c, nil
	}
	nc, ok := colornames.Map[name]
	if !ok {
		return Color{}, fmt.Errorf("colors: name not found %q", s)
	}
	c, _ := colorful.MakeColor(nc)
	return c, nil
}

// MustParse is like Parse but panics on error. Intended for literals.
func MustParse(s string) Color {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats c as "#rrggbb".
func Hex(c Color) string {
	return c.Clamped().Hex()
}

// Palette generates sets of mutually distinguishable colors.
type Palette interface {
	Colors(n int) ([]Color, error)
}

// PaletteFunc adapts a function to the Palette interface.
type PaletteFunc func(n int) ([]Color, error)

// Colors calls f(n).
func (f PaletteFunc) Colors(n int) ([]Color, error) { return f(n) }

// RandomPalette draws well-separated random colors in CIE-Lab space.
var RandomPalette Palette = PaletteFunc(RandomColors)

// RandomColors returns n random, visually distinguishable colors.
func RandomColors(n int) ([]Color, error) {
	if n <= 0 {
		return nil, nil
	}
	cols, err := colorful.HappyPalette(n)
	if err != nil {
		return nil, fmt.Errorf("colors: generate %d colors: %w", n, err)
	}
	return cols, nil
}
