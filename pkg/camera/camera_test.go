package camera

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestCheck(t *testing.T) {
	c, err := Check(Named("sagittal"))
	require.NoError(t, err)
	assert.Equal(t, [3]float64{6514, -34, 36854}, c.Pos)
	assert.Greater(t, c.Distance, 0.0)

	c, err = Check(Named("TOP"))
	require.NoError(t, err, "preset names are case-insensitive")
	assert.Equal(t, [3]float64{-1, 0, 0}, c.ViewUp)

	_, err = Check(Named("fisheye"))
	assert.ErrorIs(t, err, ErrUnknownCamera)

	_, err = Check(Param{})
	assert.ErrorIs(t, err, ErrUnknownCamera)
}

func TestCheckExplicit(t *testing.T) {
	c, err := Check(Explicit(Camera{
		Pos:           [3]float64{10705.8, 7435.7, -36936.4},
		ViewUp:        [3]float64{-0.005, -0.997, -0.083},
		ClippingRange: [2]float64{30461.8, 58824.4},
	}))
	require.NoError(t, err)
	assert.Equal(t, atlasCenter, c.FocalPoint, "missing focal point defaults to the atlas center")
	assert.InDelta(t, r3.Norm(r3.Sub(vec(c.Pos), vec(atlasCenter))), c.Distance, 1e-9)

	_, err = Check(Explicit(Camera{Pos: [3]float64{1, 2, 3}}))
	assert.ErrorIs(t, err, ErrIncompleteCamera)
}

func TestCheckExplicitDegenerate(t *testing.T) {
	tests := []struct {
		name string
		cam  Camera
	}{
		{"pos at focal point", Camera{Pos: [3]float64{1, 2, 3}, FocalPoint: [3]float64{1, 2, 3}, ViewUp: [3]float64{0, -1, 0}}},
		{"pos at default focal point", Camera{Pos: atlasCenter, ViewUp: [3]float64{0, -1, 0}}},
		{"viewup along view", Camera{Pos: [3]float64{0, 0, 10}, FocalPoint: [3]float64{0, 0, 1}, ViewUp: [3]float64{0, 0, 2}}},
		{"viewup against view", Camera{Pos: [3]float64{0, 0, 10}, FocalPoint: [3]float64{0, 0, 1}, ViewUp: [3]float64{0, 0, -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Check(Explicit(tt.cam))
			assert.ErrorIs(t, err, ErrIncompleteCamera)
		})
	}
}

func TestPresetHyphenated(t *testing.T) {
	c, err := Check(Named("three-quarters"))
	require.NoError(t, err)
	assert.Equal(t, presets["three_quarters"].Pos, c.Pos)

	_, ok := Preset("Top-Side")
	assert.True(t, ok)
}

func TestForScene(t *testing.T) {
	tests := []struct {
		name     string
		user     Param
		atlas    Param
		fallback string
		wantPos  [3]float64
		wantErr  error
	}{
		{"user wins", Named("frontal"), Named("top"), "sagittal", presets["frontal"].Pos, nil},
		{"atlas default", Param{}, Named("top"), "sagittal", presets["top"].Pos, nil},
		{"fallback", Param{}, Param{}, "sagittal", presets["sagittal"].Pos, nil},
		{"global default", Param{}, Param{}, "", presets[Default].Pos, nil},
		{"bad user camera", Named("nope"), Named("top"), "", [3]float64{}, ErrUnknownCamera},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ForScene(tt.user, tt.atlas, tt.fallback)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPos, c.Pos)
		})
	}
}

func TestBasisOrthonormal(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			c, _ := Preset(name)
			right, up, fwd := c.Basis()
			for _, v := range []r3.Vec{right, up, fwd} {
				assert.InDelta(t, 1, r3.Norm(v), 1e-9)
			}
			assert.InDelta(t, 0, r3.Dot(right, up), 1e-9)
			assert.InDelta(t, 0, r3.Dot(right, fwd), 1e-9)
			assert.InDelta(t, 0, r3.Dot(up, fwd), 1e-9)
		})
	}
}

func TestProject(t *testing.T) {
	c := Camera{
		Pos:        [3]float64{0, 0, 10},
		FocalPoint: [3]float64{0, 0, 0},
		ViewUp:     [3]float64{0, 1, 0},
	}
	u, v := c.Project([3]float64{0, 0, 0})
	assert.InDelta(t, 0, math.Hypot(u, v), 1e-9)

	u, v = c.Project([3]float64{0, 5, -3})
	assert.InDelta(t, 0, u, 1e-9)
	assert.InDelta(t, 5, v, 1e-9, "view-up maps to screen up")

	u1, _ := c.Project([3]float64{1, 0, 0})
	assert.InDelta(t, 1, math.Abs(u1), 1e-9)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"frontal", "sagittal", "sagittal2", "three_quarters", "top", "top_side"}, Names())
}
