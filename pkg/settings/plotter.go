package settings

import (
	"errors"
	"log"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// ErrUnsupportedAxesStyle is returned for axes styles other than 1 and 7.
var ErrUnsupportedAxesStyle = errors.New("only axes style 1 is supported")

// Window sizes.
const (
	SizeFull = "full"
	SizeAuto = "auto"
)

// Title is the window title used for every scene.
const Title = "brainscene"

// numZTicks is the number of labelled ticks along the LR axis.
const numZTicks = 10

// AxesSource is the part of an atlas the axes are built from.
type AxesSource interface {
	// Extent is shape × resolution along each axis.
	Extent() [3]float64
	// AxisIndex returns the axis normal to the named plane. ok is false for
	// atlases without a coordinate space.
	AxisIndex(plane string) (int, bool)
}

// Tick is a labelled axis position.
type Tick struct {
	Value float64
	Label string
}

// CustomAxes describes atlas-aware axes in micrometers.
type CustomAxes struct {
	LineWidth        float64
	TipSize          float64
	XTitle           string
	YTitle           string
	ZTitle           string
	TextScale        float64
	XTitleRotation   float64
	XFlipText        bool
	ZRange           [2]float64
	ZValuesAndLabels []Tick
}

// Axes is either a built-in style number or a custom description. Style 0
// means no axes are drawn by the window itself.
type Axes struct {
	Style  int
	Custom *CustomAxes
}

// Plotter is the window configuration handed to a renderer.
type Plotter struct {
	Size  string
	Axes  Axes
	Pos   [2]int
	Title string
}

// PlotterSettings derives the window configuration for a scene. jupyter
// marks notebook embedding, where a full-screen window is unavailable.
func PlotterSettings(s Settings, jupyter bool, atlas AxesSource) (Plotter, error) {
	size := SizeAuto
	if s.WholeScreen {
		if !jupyter {
			size = SizeFull
		} else if s.Verbose {
			log.Printf("setting window size to %q as whole screen is not available in notebooks", SizeAuto)
		}
	}

	var axes Axes
	if s.ShowAxes {
		switch s.AxesStyle {
		case 1:
			axes = atlasAxes(atlas)
		case 7:
			// Style 7 axes are drawn by the renderer itself.
			axes = Axes{Style: 0}
		default:
			return Plotter{}, ErrUnsupportedAxesStyle
		}
	}

	return Plotter{
		Size:  size,
		Axes:  axes,
		Pos:   s.WindowPos,
		Title: Title,
	}, nil
}

// atlasAxes builds AP/DV/LR axes scaled to the atlas volume. Atlases without
// a coordinate space fall back to plain style 1 axes.
func atlasAxes(atlas AxesSource) Axes {
	if atlas == nil {
		return Axes{Style: 1}
	}
	frontal, ok := atlas.AxisIndex("frontal")
	if !ok {
		return Axes{Style: 1}
	}
	extent := atlas.Extent()

	vals := floats.Span(make([]float64, numZTicks), 0, extent[frontal])
	ticks := make([]Tick, len(vals))
	for i, v := range vals {
		ticks[i] = Tick{Value: -v, Label: strconv.Itoa(int(math.Abs(v)))}
	}

	return Axes{
		Style: 1,
		Custom: &CustomAxes{
			LineWidth:        3,
			TipSize:          0,
			XTitle:           "AP (μm)",
			YTitle:           "DV (μm)",
			ZTitle:           "LR (μm)",
			TextScale:        0.8,
			XTitleRotation:   0,
			XFlipText:        true,
			ZRange:           [2]float64{-extent[2], 0},
			ZValuesAndLabels: ticks,
		},
	}
}
