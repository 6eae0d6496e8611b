package geneexp

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/chazu/brainscene/pkg/actor"
	"github.com/chazu/brainscene/pkg/colors"
	"github.com/chazu/brainscene/pkg/kernel/sdfx"
	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// ErrEmptyVolume is returned when no voxel passes the quantile threshold.
var ErrEmptyVolume = errors.New("no voxels above threshold")

// DefaultColormap is used when VolumeOptions.Colormap is empty.
const DefaultColormap = "blackbody"

// DefaultMinQuantile keeps the top tenth of expressing voxels.
const DefaultMinQuantile = 90

var colormaps = map[string]func() palette.ColorMap{
	"blackbody":          moreland.BlackBody,
	"inferno":            moreland.BlackBody,
	"extended_blackbody": moreland.ExtendedBlackBody,
	"kindlmann":          moreland.Kindlmann,
	"extended_kindlmann": moreland.ExtendedKindlmann,
	"bluered":            diverging(moreland.SmoothBlueRed),
	"greenred":           diverging(moreland.SmoothGreenRed),
	"purpleorange":       diverging(moreland.SmoothPurpleOrange),
}

func diverging(f func() palette.DivergingColorMap) func() palette.ColorMap {
	return func() palette.ColorMap { return f() }
}

// Colormaps returns the accepted colormap names in sorted order.
func Colormaps() []string {
	return slices.Sorted(maps.Keys(colormaps))
}

// VolumeOptions controls ToVolume.
type VolumeOptions struct {
	// MinQuantile is the percentile (0-100) of the volume's values below
	// which voxels are dropped. Zero means DefaultMinQuantile.
	MinQuantile float64
	Colormap    string
}

// ToVolume turns a grid into a "Gene Data" actor named after gene. Voxels at
// or above the quantile threshold form the actor's solid; their centers
// are its points, colored by expression level.
func ToVolume(g *Grid, gene string, opts VolumeOptions) (*actor.Actor, error) {
	q := opts.MinQuantile
	if q == 0 {
		q = DefaultMinQuantile
	}
	if q < 0 || q > 100 {
		return nil, fmt.Errorf("min quantile %v out of range [0, 100]", q)
	}
	name := opts.Colormap
	if name == "" {
		name = DefaultColormap
	}
	newMap, ok := colormaps[name]
	if !ok {
		return nil, fmt.Errorf("unknown colormap %q, expected one of %v", name, Colormaps())
	}
	if len(g.Values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyVolume, gene)
	}
	if g.Spacing[0] != g.Spacing[1] || g.Spacing[1] != g.Spacing[2] {
		return nil, fmt.Errorf("%w: anisotropic spacing %v", ErrInvalidGrid, g.Spacing)
	}

	// Missing-data voxels count as no expression.
	sorted := make([]float64, len(g.Values))
	for i, v := range g.Values {
		sorted[i] = max(v, 0)
	}
	slices.Sort(sorted)
	th := stat.Quantile(q/100, stat.Empirical, sorted, nil)
	hi := sorted[len(sorted)-1]
	if hi <= 0 {
		return nil, fmt.Errorf("%w: %s has no expression", ErrEmptyVolume, gene)
	}
	if th <= 0 {
		th = smallestPositive(sorted)
	}

	cmap := newMap()
	cmap.SetMin(th)
	cmap.SetMax(max(hi, th+1e-9))

	vg := sdfx.VoxelGrid{Spacing: g.Spacing[0], Shape: g.Shape, On: make([]bool, len(g.Values))}
	var points [][3]float64
	var pointColors []colors.Color
	for k := 0; k < g.Shape[2]; k++ {
		for j := 0; j < g.Shape[1]; j++ {
			for i := 0; i < g.Shape[0]; i++ {
				v := g.At(i, j, k)
				if v < th || v <= 0 {
					continue
				}
				vg.On[i+g.Shape[0]*(j+g.Shape[1]*k)] = true
				points = append(points, g.Center(i, j, k))
				c, err := cmap.At(v)
				if err != nil {
					return nil, fmt.Errorf("colormap %s at %v: %w", name, v, err)
				}
				cf, _ := colorful.MakeColor(c)
				pointColors = append(pointColors, cf)
			}
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s at quantile %v", ErrEmptyVolume, gene, q)
	}

	solid, err := sdfx.NewVoxels(vg)
	if err != nil {
		return nil, err
	}
	a := actor.New(gene, actor.ClassGeneData, solid)
	a.Points = points
	a.PointColors = pointColors
	top, err := cmap.At(cmap.Max())
	if err != nil {
		return nil, fmt.Errorf("colormap %s: %w", name, err)
	}
	a.Color, _ = colorful.MakeColor(top)
	return a, nil
}

func smallestPositive(sorted []float64) float64 {
	i, _ := slices.BinarySearch(sorted, 0)
	for i < len(sorted) && sorted[i] <= 0 {
		i++
	}
	return sorted[i]
}
