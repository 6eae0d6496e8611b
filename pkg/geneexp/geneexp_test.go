package geneexp

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/chazu/brainscene/pkg/actor"
	"github.com/chazu/brainscene/pkg/blob"
	"github.com/chazu/brainscene/pkg/colors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGene = "Cacna2d1"

// testValues is a 4x3x2 volume whose value equals its flat index, with one
// voxel marked as missing data.
func testValues() []float64 {
	v := make([]float64, 24)
	for i := range v {
		v[i] = float64(i)
	}
	v[5] = -1
	return v
}

// archive builds a grid download holding a MetaImage header and float32
// little-endian data.
func archive(t *testing.T, shape [3]int, spacing float64, values []float64) []byte {
	t.Helper()
	var raw bytes.Buffer
	for _, v := range values {
		require.NoError(t, binary.Write(&raw, binary.LittleEndian, float32(v)))
	}
	hdr := fmt.Sprintf(`ObjectType = Image
NDims = 3
BinaryData = True
BinaryDataByteOrderMSB = False
DimSize = %d %d %d
ElementSpacing = %g %g %g
ElementType = MET_FLOAT
ElementDataFile = energy.raw
`, shape[0], shape[1], shape[2], spacing, spacing, spacing)
	return zipFiles(t, map[string][]byte{"energy.mhd": []byte(hdr), "energy.raw": raw.Bytes()})
}

func zipFiles(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// fakeAPI serves the RMA queries and grid downloads for testGene.
type fakeAPI struct {
	archive   []byte
	downloads atomic.Int32
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	write := func(success bool, msg any) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": success, "msg": msg})
	}
	switch {
	case r.URL.Path == "/api/v2/data/query.json":
		criteria := r.URL.Query().Get("criteria")
		switch {
		case strings.Contains(criteria, "broken"):
			write(false, "Data Access error in query")
		case !strings.Contains(criteria, testGene):
			write(true, []any{})
		case strings.HasPrefix(criteria, "model::Gene,"):
			write(true, []map[string]any{{"id": 12345, "acronym": testGene, "name": "calcium channel"}})
		case strings.HasPrefix(criteria, "model::SectionDataSet,"):
			write(true, []map[string]any{{"id": 79632260}, {"id": 71587861}})
		default:
			http.Error(w, "bad criteria", http.StatusBadRequest)
		}
	case r.URL.Path == "/grid_data/download/79632260":
		f.downloads.Add(1)
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(f.archive)
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, cache blob.Store) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{archive: archive(t, [3]int{4, 3, 2}, 100, testValues())}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	c := NewClient(cache)
	c.BaseURL = srv.URL
	c.HTTP = srv.Client()
	return c, api
}

func TestGeneID(t *testing.T) {
	c, _ := newTestClient(t, nil)
	ctx := context.Background()

	id, err := c.GeneID(ctx, testGene)
	require.NoError(t, err)
	assert.Equal(t, 12345, id)

	_, err = c.GeneID(ctx, "NotAGene")
	assert.ErrorIs(t, err, ErrGeneNotFound)

	_, err = c.GeneID(ctx, "broken")
	assert.ErrorIs(t, err, ErrAPI)
}

func TestExperiments(t *testing.T) {
	c, _ := newTestClient(t, nil)
	ctx := context.Background()

	ids, err := c.Experiments(ctx, testGene)
	require.NoError(t, err)
	assert.Equal(t, []int{79632260, 71587861}, ids)

	_, err = c.Experiments(ctx, "NotAGene")
	assert.ErrorIs(t, err, ErrGeneNotFound)
}

func TestGeneDataCache(t *testing.T) {
	cache := blob.NewMemory()
	c, api := newTestClient(t, cache)
	ctx := context.Background()

	g, err := c.GeneData(ctx, testGene, 79632260, true)
	require.NoError(t, err)
	assert.Equal(t, [3]int{4, 3, 2}, g.Shape)
	assert.Equal(t, [3]float64{100, 100, 100}, g.Spacing)
	assert.Equal(t, testValues(), g.Values)
	assert.EqualValues(t, 1, api.downloads.Load())

	ok, err := blob.Exists(ctx, cache, "genes/Cacna2d1/79632260.zip")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = c.GeneData(ctx, testGene, 79632260, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, api.downloads.Load(), "cached grid should not be downloaded again")

	_, err = c.GeneData(ctx, testGene, 79632260, false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, api.downloads.Load())
}

func TestGeneDataMissingExperiment(t *testing.T) {
	c, _ := newTestClient(t, nil)
	_, err := c.GeneData(context.Background(), testGene, 1, false)
	assert.ErrorIs(t, err, ErrAPI)
}

func TestReadArchiveErrors(t *testing.T) {
	good := archive(t, [3]int{4, 3, 2}, 100, testValues())
	tests := map[string][]byte{
		"not a zip":   []byte("plain text"),
		"no header":   zipFiles(t, map[string][]byte{"energy.raw": {0, 0, 0, 0}}),
		"no raw data": zipFiles(t, map[string][]byte{"energy.mhd": []byte("NDims = 3\nDimSize = 1 1 1\nElementType = MET_FLOAT\nElementDataFile = energy.raw\n")}),
		"short data": zipFiles(t, map[string][]byte{
			"energy.mhd": []byte("NDims = 3\nDimSize = 2 1 1\nElementType = MET_FLOAT\nElementDataFile = energy.raw\n"),
			"energy.raw": {0, 0, 0, 0},
		}),
		"bad type": zipFiles(t, map[string][]byte{
			"energy.mhd": []byte("NDims = 3\nDimSize = 1 1 1\nElementType = MET_SHORT\nElementDataFile = energy.raw\n"),
			"energy.raw": {0, 0},
		}),
		"two dims": zipFiles(t, map[string][]byte{
			"energy.mhd": []byte("NDims = 2\nDimSize = 1 1\n"),
		}),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadArchive(data)
			assert.ErrorIs(t, err, ErrInvalidGrid)
		})
	}

	_, err := ReadArchive(good)
	assert.NoError(t, err)
}

func TestReadArchiveBigEndianDouble(t *testing.T) {
	var raw bytes.Buffer
	for _, v := range []float64{1.5, -2, 3.25} {
		require.NoError(t, binary.Write(&raw, binary.BigEndian, math.Float64bits(v)))
	}
	data := zipFiles(t, map[string][]byte{
		"grid/energy.mhd": []byte("NDims = 3\nDimSize = 3 1 1\nElementSpacing = 25 25 25\nElementType = MET_DOUBLE\nElementByteOrderMSB = True\nElementDataFile = energy.raw\n"),
		"grid/energy.raw": raw.Bytes(),
	})
	g, err := ReadArchive(data)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2, 3.25}, g.Values)
	assert.Equal(t, [3]float64{62.5, 12.5, 12.5}, g.Center(2, 0, 0))
}

func TestToVolume(t *testing.T) {
	g := &Grid{Shape: [3]int{4, 3, 2}, Spacing: [3]float64{100, 100, 100}, Values: testValues()}

	a, err := ToVolume(g, testGene, VolumeOptions{MinQuantile: 50})
	require.NoError(t, err)
	assert.Equal(t, testGene, a.Name)
	assert.Equal(t, actor.ClassGeneData, a.Class)

	// Values 11..23 are at or above the median of the clamped volume.
	require.Len(t, a.Points, 13)
	require.Len(t, a.PointColors, 13)
	assert.Equal(t, [3]float64{350, 250, 150}, a.Points[12])
	assert.Equal(t, colors.Hex(a.Color), colors.Hex(a.PointColors[12]))
	assert.NotEqual(t, colors.Hex(a.PointColors[0]), colors.Hex(a.PointColors[12]))

	require.NotNil(t, a.Solid)
	assert.True(t, a.Solid.Contains([3]float64{350, 250, 150}))
	assert.False(t, a.Solid.Contains([3]float64{50, 50, 50}))
}

func TestToVolumeDefaults(t *testing.T) {
	g := &Grid{Shape: [3]int{4, 3, 2}, Spacing: [3]float64{100, 100, 100}, Values: testValues()}
	a, err := ToVolume(g, testGene, VolumeOptions{Colormap: "inferno"})
	require.NoError(t, err)
	assert.NotEmpty(t, a.Points)
	assert.Less(t, len(a.Points), 24/2)
}

func TestToVolumeErrors(t *testing.T) {
	g := &Grid{Shape: [3]int{4, 3, 2}, Spacing: [3]float64{100, 100, 100}, Values: testValues()}

	_, err := ToVolume(g, testGene, VolumeOptions{Colormap: "rainbow"})
	assert.Error(t, err)

	_, err = ToVolume(g, testGene, VolumeOptions{MinQuantile: 120})
	assert.Error(t, err)

	flat := &Grid{Shape: [3]int{2, 1, 1}, Spacing: [3]float64{100, 100, 100}, Values: []float64{-1, 0}}
	_, err = ToVolume(flat, testGene, VolumeOptions{})
	assert.ErrorIs(t, err, ErrEmptyVolume)

	aniso := &Grid{Shape: [3]int{4, 3, 2}, Spacing: [3]float64{100, 200, 100}, Values: testValues()}
	_, err = ToVolume(aniso, testGene, VolumeOptions{})
	assert.ErrorIs(t, err, ErrInvalidGrid)
}

func TestColormaps(t *testing.T) {
	names := Colormaps()
	assert.Contains(t, names, DefaultColormap)
	assert.IsIncreasing(t, names)
}

func TestToVolumeEveryColormap(t *testing.T) {
	g := &Grid{Shape: [3]int{4, 3, 2}, Spacing: [3]float64{100, 100, 100}, Values: testValues()}
	for _, name := range Colormaps() {
		t.Run(name, func(t *testing.T) {
			a, err := ToVolume(g, testGene, VolumeOptions{MinQuantile: 50, Colormap: name})
			require.NoError(t, err)
			assert.Len(t, a.PointColors, 13)
		})
	}
}
