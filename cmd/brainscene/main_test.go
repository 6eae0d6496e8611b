package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-script", "a.lisp", "-screenshot", "shot", "-scale", "2"}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if o.scriptPath != "a.lisp" || o.screenshot != "shot" || o.scale != 2 {
		t.Errorf("unexpected options %+v", o)
	}
	if o.quantile != 90 || o.colormap != "blackbody" {
		t.Errorf("gene defaults not applied: %+v", o)
	}

	if _, err := parseFlags(nil, io.Discard); err == nil {
		t.Error("expected error with neither -script nor -gene")
	}
	if _, err := parseFlags([]string{"-script", "a.lisp", "extra"}, io.Discard); err == nil {
		t.Error("expected error for positional arguments")
	}
	if _, err := parseFlags([]string{"-h"}, io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("expected flag.ErrHelp, got %v", err)
	}
}

func writeScript(t *testing.T, source string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "scene.lisp")
	if err := os.WriteFile(p, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRunScreenshot(t *testing.T) {
	dir := t.TempDir()
	o := options{
		scriptPath:  writeScript(t, `(region "TH" "CA1")`),
		screenshot:  "brain",
		screenshots: dir,
	}
	var out bytes.Buffer
	if err := run(context.Background(), o, nil, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "brain.png" {
		t.Errorf("printed key %q, want brain.png", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "brain.png")); err != nil {
		t.Errorf("screenshot not written: %v", err)
	}
}

func TestRunStdinScriptErrors(t *testing.T) {
	o := options{scriptPath: "-", screenshots: "mem://"}
	err := run(context.Background(), o, strings.NewReader(`(region "TH"`), io.Discard)
	if err == nil {
		t.Fatal("expected error for broken script")
	}
}

func TestRunConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(cfg, []byte("not_a_setting = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	o := options{configPath: cfg, scriptPath: writeScript(t, "")}
	if err := run(context.Background(), o, nil, io.Discard); err == nil {
		t.Fatal("expected error for unknown settings key")
	}
}

func TestExport(t *testing.T) {
	app := testApp(t)
	s, result := app.Scene(`(remove "root") (region "MOB" :color "red")`)
	if s == nil {
		t.Fatalf("eval errors: %v", result.Errors)
	}

	var out bytes.Buffer
	if err := export(app, s, "-", &out); err != nil {
		t.Fatalf("export: %v", err)
	}
	var meshes []MeshData
	if err := json.Unmarshal(out.Bytes(), &meshes); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	if meshes[0].PartName != "MOB" || meshes[0].Color != "#ff0000" {
		t.Errorf("unexpected mesh %q %q", meshes[0].PartName, meshes[0].Color)
	}

	p := filepath.Join(t.TempDir(), "meshes.json")
	if err := export(app, s, p, io.Discard); err != nil {
		t.Fatalf("export to file: %v", err)
	}
	if fi, err := os.Stat(p); err != nil || fi.Size() == 0 {
		t.Errorf("export file missing or empty: %v", err)
	}
}

// geneArchive is a 2x2x2 float32 energy grid with one strongly expressing
// voxel.
func geneArchive(t *testing.T) []byte {
	t.Helper()
	var raw bytes.Buffer
	for _, v := range []float32{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 9} {
		if err := binary.Write(&raw, binary.LittleEndian, v); err != nil {
			t.Fatal(err)
		}
	}
	hdr := "NDims = 3\nDimSize = 2 2 2\nElementSpacing = 200 200 200\nElementType = MET_FLOAT\nElementDataFile = energy.raw\n"
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range map[string][]byte{"energy.mhd": []byte(hdr), "energy.raw": raw.Bytes()} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRunGene(t *testing.T) {
	data := geneArchive(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/data/query.json":
			_, _ = w.Write([]byte(`{"success": true, "msg": [{"id": 42}]}`))
		case "/grid_data/download/42":
			_, _ = w.Write(data)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	t.Setenv("BRAINSCENE_GENE_API", srv.URL)

	o := options{gene: "Cacna2d1", quantile: 90, colormap: "blackbody", screenshot: "gene", screenshots: "mem://"}
	var out bytes.Buffer
	if err := run(context.Background(), o, nil, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "gene.png" {
		t.Errorf("printed key %q, want gene.png", got)
	}
}
