package geneexp

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strconv"
	"strings"
)

// ErrInvalidGrid is returned for archives without a readable energy volume.
var ErrInvalidGrid = errors.New("invalid expression grid")

// Grid is a 3D expression energy volume. Values are indexed x-fastest:
// i + Shape[0]*(j + Shape[1]*k), with axes in atlas order (AP, DV, LR).
// Negative values mark voxels without data.
type Grid struct {
	Shape   [3]int
	Spacing [3]float64
	Values  []float64
}

// At returns the value of voxel (i, j, k).
func (g *Grid) At(i, j, k int) float64 {
	return g.Values[i+g.Shape[0]*(j+g.Shape[1]*k)]
}

// Center returns the atlas coordinate of the center of voxel (i, j, k).
func (g *Grid) Center(i, j, k int) [3]float64 {
	return [3]float64{
		(float64(i) + 0.5) * g.Spacing[0],
		(float64(j) + 0.5) * g.Spacing[1],
		(float64(k) + 0.5) * g.Spacing[2],
	}
}

// ReadArchive reads the energy volume from a grid download: a zip holding a
// MetaImage header (.mhd) and its raw data file.
func ReadArchive(data []byte) (*Grid, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	var header *zip.File
	for _, f := range zr.File {
		files[path.Base(f.Name)] = f
		if strings.EqualFold(path.Ext(f.Name), ".mhd") {
			header = f
		}
	}
	if header == nil {
		return nil, fmt.Errorf("%w: no .mhd header in archive", ErrInvalidGrid)
	}

	hdr, err := readZipFile(header)
	if err != nil {
		return nil, err
	}
	meta, err := parseMetaImage(hdr)
	if err != nil {
		return nil, err
	}
	raw, ok := files[meta.dataFile]
	if !ok {
		return nil, fmt.Errorf("%w: data file %q missing from archive", ErrInvalidGrid, meta.dataFile)
	}
	rawData, err := readZipFile(raw)
	if err != nil {
		return nil, err
	}
	return meta.decode(rawData)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// metaImage is the subset of a MetaImage header needed to decode a volume.
type metaImage struct {
	shape       [3]int
	spacing     [3]float64
	elementType string
	bigEndian   bool
	dataFile    string
}

func parseMetaImage(hdr []byte) (*metaImage, error) {
	m := &metaImage{spacing: [3]float64{1, 1, 1}}
	var haveShape bool
	sc := bufio.NewScanner(bytes.NewReader(hdr))
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		switch key {
		case "NDims":
			if val != "3" {
				return nil, fmt.Errorf("%w: NDims %s, want 3", ErrInvalidGrid, val)
			}
		case "DimSize":
			f, err := threeFields(val)
			if err != nil {
				return nil, fmt.Errorf("%w: DimSize: %v", ErrInvalidGrid, err)
			}
			for i, x := range f {
				m.shape[i] = int(x)
			}
			haveShape = true
		case "ElementSpacing", "ElementSize":
			f, err := threeFields(val)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidGrid, key, err)
			}
			m.spacing = f
		case "ElementType":
			m.elementType = val
		case "ElementByteOrderMSB", "BinaryDataByteOrderMSB":
			m.bigEndian = strings.EqualFold(val, "true")
		case "ElementDataFile":
			m.dataFile = path.Base(val)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}
	if !haveShape || m.dataFile == "" {
		return nil, fmt.Errorf("%w: header lacks DimSize or ElementDataFile", ErrInvalidGrid)
	}
	return m, nil
}

func threeFields(s string) ([3]float64, error) {
	var out [3]float64
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return out, fmt.Errorf("expected 3 values, got %q", s)
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *metaImage) decode(raw []byte) (*Grid, error) {
	n := m.shape[0] * m.shape[1] * m.shape[2]
	if n <= 0 {
		return nil, fmt.Errorf("%w: shape %v", ErrInvalidGrid, m.shape)
	}
	var order binary.ByteOrder = binary.LittleEndian
	if m.bigEndian {
		order = binary.BigEndian
	}

	var size int
	var read func(b []byte) float64
	switch m.elementType {
	case "MET_FLOAT":
		size = 4
		read = func(b []byte) float64 { return float64(math.Float32frombits(order.Uint32(b))) }
	case "MET_DOUBLE":
		size = 8
		read = func(b []byte) float64 { return math.Float64frombits(order.Uint64(b)) }
	case "MET_UCHAR":
		size = 1
		read = func(b []byte) float64 { return float64(b[0]) }
	default:
		return nil, fmt.Errorf("%w: unsupported element type %q", ErrInvalidGrid, m.elementType)
	}
	if len(raw) != n*size {
		return nil, fmt.Errorf("%w: %d bytes of data for %d voxels of %s", ErrInvalidGrid, len(raw), n, m.elementType)
	}

	g := &Grid{Shape: m.shape, Spacing: m.spacing, Values: make([]float64, n)}
	for i := range g.Values {
		g.Values[i] = read(raw[i*size : (i+1)*size])
	}
	return g, nil
}
