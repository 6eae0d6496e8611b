package settings

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAtlas struct {
	extent [3]float64
	axes   []string
}

func (f fakeAtlas) Extent() [3]float64 { return f.extent }

func (f fakeAtlas) AxisIndex(plane string) (int, bool) {
	for i, a := range f.axes {
		if a == plane {
			return i, true
		}
	}
	return 0, false
}

var mouse = fakeAtlas{
	extent: [3]float64{13200, 8000, 11400},
	axes:   []string{"frontal", "horizontal", "sagittal"},
}

func TestDefaultValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brainscene.toml")
	src := `
whole_screen = true
axes_style = 7
window_pos = [100, 50]
default_camera = "sagittal"
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.True(t, s.WholeScreen)
	assert.Equal(t, 7, s.AxesStyle)
	assert.Equal(t, [2]int{100, 50}, s.WindowPos)
	assert.Equal(t, "sagittal", s.DefaultCamera)
	assert.Equal(t, 10000, s.CandidatePool, "missing keys keep defaults")
	assert.Equal(t, 0.2, s.RootAlpha)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(src), 0o644))
		return p
	}

	_, err := Load(write("unknown.toml", "no_such_option = 1\n"))
	assert.ErrorContains(t, err, "no_such_option")

	_, err = Load(write("style.toml", "axes_style = 3\n"))
	assert.ErrorIs(t, err, ErrUnsupportedAxesStyle)

	_, err = Load(write("alpha.toml", "root_alpha = 2.0\n"))
	assert.Error(t, err)

	_, err = Load(write("camera.toml", "default_camera = \"fisheye\"\n"))
	assert.Error(t, err)

	_, err = Load(write("syntax.toml", "whole_screen = \n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.toml")
	s := Default()
	s.Verbose = true
	s.WindowPos = [2]int{3, 4}
	require.NoError(t, s.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestPlotterSize(t *testing.T) {
	tests := []struct {
		name        string
		wholeScreen bool
		jupyter     bool
		want        string
	}{
		{"whole screen", true, false, SizeFull},
		{"whole screen in notebook", true, true, SizeAuto},
		{"windowed", false, false, SizeAuto},
		{"windowed in notebook", false, true, SizeAuto},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			s.WholeScreen = tt.wholeScreen
			p, err := PlotterSettings(s, tt.jupyter, mouse)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Size)
			assert.Equal(t, s.WindowPos, p.Pos)
			assert.Equal(t, Title, p.Title)
		})
	}
}

func TestPlotterNotebookDowngradeLogged(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	s := Default()
	s.WholeScreen = true
	s.Verbose = true
	_, err := PlotterSettings(s, true, mouse)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "whole screen is not available")
}

func TestPlotterAxes(t *testing.T) {
	s := Default()
	p, err := PlotterSettings(s, false, mouse)
	require.NoError(t, err)
	require.NotNil(t, p.Axes.Custom)
	ax := p.Axes.Custom

	assert.Equal(t, "AP (μm)", ax.XTitle)
	assert.Equal(t, "DV (μm)", ax.YTitle)
	assert.Equal(t, "LR (μm)", ax.ZTitle)
	assert.Equal(t, 3.0, ax.LineWidth)
	assert.Equal(t, 0.8, ax.TextScale)
	assert.True(t, ax.XFlipText)
	assert.Equal(t, [2]float64{-11400, 0}, ax.ZRange)

	require.Len(t, ax.ZValuesAndLabels, 10)
	assert.Equal(t, Tick{Value: 0, Label: "0"}, ax.ZValuesAndLabels[0])
	assert.Equal(t, Tick{Value: -13200, Label: "13200"}, ax.ZValuesAndLabels[9])
	assert.InDelta(t, -13200.0/9, ax.ZValuesAndLabels[1].Value, 1e-9)
	assert.Equal(t, "1466", ax.ZValuesAndLabels[1].Label, "labels truncate")
}

func TestPlotterAxesStyles(t *testing.T) {
	s := Default()

	s.ShowAxes = false
	p, err := PlotterSettings(s, false, mouse)
	require.NoError(t, err)
	assert.Equal(t, Axes{}, p.Axes)

	s.ShowAxes = true
	s.AxesStyle = 7
	p, err = PlotterSettings(s, false, mouse)
	require.NoError(t, err)
	assert.Equal(t, Axes{Style: 0}, p.Axes)

	s.AxesStyle = 1
	p, err = PlotterSettings(s, false, fakeAtlas{extent: mouse.extent})
	require.NoError(t, err)
	assert.Equal(t, Axes{Style: 1}, p.Axes, "atlas without space gets plain axes")

	p, err = PlotterSettings(s, false, nil)
	require.NoError(t, err)
	assert.Equal(t, Axes{Style: 1}, p.Axes)

	s.AxesStyle = 2
	_, err = PlotterSettings(s, false, mouse)
	assert.ErrorIs(t, err, ErrUnsupportedAxesStyle)
}
