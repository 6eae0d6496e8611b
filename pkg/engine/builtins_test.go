package engine

import (
	"math/rand/v2"
	"testing"

	"github.com/chazu/brainscene/pkg/actor"
	"github.com/chazu/brainscene/pkg/blob"
	"github.com/chazu/brainscene/pkg/camera"
	"github.com/chazu/brainscene/pkg/colors"
	"github.com/chazu/brainscene/pkg/sampling"
	"github.com/chazu/brainscene/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(region "TH" :color "red")`,
			expect: `(region "TH" "__kw_color" "red")`,
		},
		{
			name:   "multiple keywords",
			input:  `(region "CA1" :hemisphere :left :alpha 0.5)`,
			expect: `(region "CA1" "__kw_hemisphere" "__kw_left" "__kw_alpha" 0.5)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(points-in-region "TH" 10)`,
			expect: `(points_in_region "TH" 10)`,
		},
		{
			name:   "kebab-case in string preserved",
			input:  `(title "points-in-region")`,
			expect: `(title "points-in-region")`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative number preserved",
			input:  `(point 1 -1 2)`,
			expect: `(point 1 -1 2)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:three-quarters`,
			expect: `"__kw_three-quarters"`,
		},
		{
			name:   "slice head renamed",
			input:  `(slice :frontal)`,
			expect: `(scene_slice "__kw_frontal")`,
		},
		{
			name:   "slice head after whitespace",
			input:  "(\n  slice cut)",
			expect: "(\n  scene_slice cut)",
		},
		{
			name:   "slice argument untouched",
			input:  `(def s (list slice))`,
			expect: `(def s (list slice))`,
		},
		{
			name:   "slice prefix untouched",
			input:  `(slices 1)`,
			expect: `(slices 1)`,
		},
		{
			name:   "slice in string untouched",
			input:  `(title "(slice :frontal)")`,
			expect: `(title "(slice :frontal)")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func kw(name string) zygo.Sexp { return &zygo.SexpStr{S: kwPrefix + name} }

func TestParseArgs(t *testing.T) {
	args := []zygo.Sexp{
		&zygo.SexpStr{S: "TH"},
		kw("hemisphere"), kw("left"),
		kw("frontal"),
		kw("alpha"), &zygo.SexpFloat{Val: 0.5},
		kw("close"),
	}
	pa := parseArgs(args)

	if len(pa.positional) != 1 {
		t.Fatalf("expected 1 positional argument, got %d", len(pa.positional))
	}
	h, err := toKeywordString(pa.kw["hemisphere"])
	if err != nil || h != "left" {
		t.Errorf("hemisphere = %q (%v), want left", h, err)
	}
	if f, err := toFloat64(pa.kw["alpha"]); err != nil || f != 0.5 {
		t.Errorf("alpha = %v (%v), want 0.5", f, err)
	}
	if name, ok := pa.flag("sagittal", "frontal"); !ok || name != "frontal" {
		t.Errorf("flag = %q %v, want frontal", name, ok)
	}
	if b, err := toBool(pa.kw["close"]); err != nil || !b {
		t.Errorf("close = %v (%v), want true", b, err)
	}
	if _, ok := pa.flag("hemisphere"); ok {
		t.Error("hemisphere has a value and should not count as a flag")
	}
}

func TestParseArgsFlagOrder(t *testing.T) {
	pa := parseArgs([]zygo.Sexp{kw("top"), kw("sagittal"), kw("frontal")})
	for i := 0; i < 20; i++ {
		if name, _ := pa.flag("frontal", "sagittal"); name != "sagittal" {
			t.Fatalf("flag = %q, want the first given (sagittal)", name)
		}
	}
	if len(pa.flags) != 3 || pa.flags[0] != "top" {
		t.Errorf("flags = %v", pa.flags)
	}
}

// ---------------------------------------------------------------------------
// Scene script tests
// ---------------------------------------------------------------------------

// newTestEngine returns an engine whose scenes use a small seeded sampler
// and an in-memory screenshot store.
func newTestEngine() *Engine {
	smp := &sampling.Sampler{CandidatePool: 2000, Rand: rand.New(rand.NewPCG(3, 4))}
	return NewEngine(scene.WithSampler(smp), scene.WithScreenshotStore(blob.NewMemory()))
}

// mustEvaluate runs source and fails the test on any error.
func mustEvaluate(t *testing.T, source string) *scene.Scene {
	t.Helper()
	s, evalErrs, err := newTestEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if s == nil {
		t.Fatal("expected non-nil scene")
	}
	return s
}

func TestRegion(t *testing.T) {
	s := mustEvaluate(t, `(region "TH" "CA1" :color "red" :alpha 0.5)`)

	regions := s.GetActors("", actor.ClassBrainRegion)
	// root + TH + CA1
	if len(regions) != 3 {
		t.Fatalf("expected 3 brain regions, got %d", len(regions))
	}
	for _, name := range []string{"TH", "CA1"} {
		found := s.GetActors(name, "")
		if len(found) != 1 {
			t.Fatalf("expected one actor named %s, got %d", name, len(found))
		}
		a := found[0]
		if got := colors.Hex(a.Color); got != "#ff0000" {
			t.Errorf("%s color = %s, want #ff0000", name, got)
		}
		if a.Alpha != 0.5 {
			t.Errorf("%s alpha = %v, want 0.5", name, a.Alpha)
		}
	}
}

func TestRegionHemisphere(t *testing.T) {
	s := mustEvaluate(t, `
(region "CA1" :hemisphere :left)
(region "TH" :hemisphere "right")
`)
	midline := s.Atlas.Midline

	left := s.GetActors("CA1", "")
	if len(left) != 1 {
		t.Fatalf("expected one CA1 actor, got %d", len(left))
	}
	b, ok := left[0].Bounds()
	if !ok {
		t.Fatal("CA1 has no bounds")
	}
	if b[5] > midline+1 {
		t.Errorf("left CA1 reaches z=%.0f, past the midline %.0f", b[5], midline)
	}

	right := s.GetActors("TH", "")
	if len(right) != 1 {
		t.Fatalf("expected one TH actor, got %d", len(right))
	}
	b, ok = right[0].Bounds()
	if !ok {
		t.Fatal("TH has no bounds")
	}
	if b[4] < midline-1 {
		t.Errorf("right TH starts at z=%.0f, before the midline %.0f", b[4], midline)
	}
}

func TestRegionBadHemisphere(t *testing.T) {
	_, evalErrs, err := newTestEngine().Evaluate(`(region "TH" :hemisphere :middle)`)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected eval error for bad hemisphere")
	}
}

func TestRegionUnknownIsSkipped(t *testing.T) {
	s := mustEvaluate(t, `(region "NOPE")`)
	if n := len(s.Actors()); n != 1 {
		t.Errorf("unknown region should add nothing, got %d actors", n)
	}
}

func TestPointsInRegion(t *testing.T) {
	s := mustEvaluate(t, `(points-in-region "TH" 25 :color "blue" :name "th-cells")`)

	cells := s.GetActors("th-cells", actor.ClassCells)
	if len(cells) != 1 {
		t.Fatalf("expected one cells actor, got %d", len(cells))
	}
	a := cells[0]
	if len(a.Points) != 25 {
		t.Errorf("expected 25 points, got %d", len(a.Points))
	}
	if got := colors.Hex(a.Color); got != "#0000ff" {
		t.Errorf("color = %s, want #0000ff", got)
	}
	th, _ := s.Atlas.RegionMesh("TH")
	for i, p := range a.Points {
		if !th.Contains(p) {
			t.Errorf("point %d %v is outside TH", i, p)
		}
	}
}

func TestPointsInRegionDefaultName(t *testing.T) {
	s := mustEvaluate(t, `(points-in-region "CA1" 5 :hemisphere :right)`)
	if got := s.GetActors("CA1 cells", ""); len(got) != 1 {
		t.Fatalf("expected actor named 'CA1 cells', got %d", len(got))
	}
}

func TestPointsInRegionUnknown(t *testing.T) {
	s := mustEvaluate(t, `(points-in-region "NOPE" 5)`)
	if n := len(s.Actors()); n != 1 {
		t.Errorf("unknown region should add nothing, got %d actors", n)
	}
}

func TestPointsInRegionBadCount(t *testing.T) {
	_, evalErrs, err := newTestEngine().Evaluate(`(points-in-region "TH" -1)`)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected eval error for negative count")
	}
}

func TestCells(t *testing.T) {
	s := mustEvaluate(t, `
(cells (list (point 6000 3000 5000) (point 7000 3500 6000)) :name "injection")
`)
	cells := s.GetActors("injection", actor.ClassCells)
	if len(cells) != 1 {
		t.Fatalf("expected one cells actor, got %d", len(cells))
	}
	pts := cells[0].Points
	if len(pts) != 2 {
		t.Fatalf("expected 2 points, got %d", len(pts))
	}
	if pts[1] != [3]float64{7000, 3500, 6000} {
		t.Errorf("second point = %v", pts[1])
	}
	if got := colors.Hex(cells[0].Color); got != colors.Hex(colors.MustParse(scene.DefaultCellColor)) {
		t.Errorf("default cell color = %s", got)
	}
}

func TestCellsRejectsNonPoints(t *testing.T) {
	_, evalErrs, err := newTestEngine().Evaluate(`(cells (list 1 2 3))`)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected eval error for non-point entries")
	}
}

func TestLoadMesh(t *testing.T) {
	s := mustEvaluate(t, `(def m (load-mesh "../scene/testdata/cube.stl" :color "tomato"))
(label m "injection site")`)
	meshes := s.GetActors("cube", actor.ClassFromFile)
	if len(meshes) != 1 {
		t.Fatalf("expected one mesh actor, got %d", len(meshes))
	}
	if got := colors.Hex(meshes[0].Color); got != colors.Hex(colors.MustParse("tomato")) {
		t.Errorf("mesh color = %s", got)
	}
	if meshes[0].Label != "injection site" {
		t.Errorf("label = %q", meshes[0].Label)
	}
}

func TestLoadMeshErrors(t *testing.T) {
	for _, src := range []string{`(load-mesh "brain.obj")`, `(load-mesh)`, `(load-mesh 42)`} {
		_, evalErrs, err := newTestEngine().Evaluate(src)
		if err != nil {
			t.Fatalf("%s: expected non-fatal eval error, got fatal: %v", src, err)
		}
		if len(evalErrs) == 0 {
			t.Errorf("%s: expected eval error", src)
		}
	}
}

func TestLabel(t *testing.T) {
	s := mustEvaluate(t, `(label (region "TH") "Thalamus")`)

	th := s.GetActors("TH", "")
	if len(th) != 1 {
		t.Fatalf("expected one TH actor, got %d", len(th))
	}
	if th[0].Label != "Thalamus" {
		t.Errorf("TH label = %q, want Thalamus", th[0].Label)
	}
	labels := s.GetActors("", actor.ClassLabel)
	if len(labels) != 1 {
		t.Fatalf("expected one label actor, got %d", len(labels))
	}
	if labels[0].Label != "Thalamus" {
		t.Errorf("label text = %q", labels[0].Label)
	}
}

func TestSliceNamedPlane(t *testing.T) {
	s := mustEvaluate(t, `
(region "TH")
(slice :sagittal)
`)
	th := s.GetActors("TH", "")
	if len(th) != 1 {
		t.Fatalf("expected TH to survive a midline cut, got %d", len(th))
	}
	b, ok := th[0].Bounds()
	if !ok {
		t.Fatal("sliced TH has no bounds")
	}
	// TH spans 4200..7200 in z before the cut.
	if b[5]-b[4] > 2000 {
		t.Errorf("expected TH cut roughly in half, z extent is %.0f", b[5]-b[4])
	}

	// The root is not sliced by default.
	rb, _ := s.Root().Bounds()
	if rb[5]-rb[4] < 10000 {
		t.Errorf("root should be untouched, z extent %.0f", rb[5]-rb[4])
	}
}

func TestSliceExplicitPlane(t *testing.T) {
	mustEvaluate(t, `
(def cut (plane :at (point 1999 1312 3421) :normal (point 1 -1 2)))
(region "CA1" "TH")
(slice cut :actors (get-actors :class "brain region"))
`)
}

func TestSliceZeroNormal(t *testing.T) {
	_, evalErrs, err := newTestEngine().Evaluate(`(plane :at (point 0 0 0) :normal (point 0 0 0))`)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected eval error for zero normal")
	}
}

func TestSliceUnknownPlane(t *testing.T) {
	_, evalErrs, err := newTestEngine().Evaluate(`(slice "diagonal")`)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected eval error for unknown plane")
	}
}

func TestSliceCloseDropsEmptied(t *testing.T) {
	// Cells entirely on one side of the frontal plane vanish with :close.
	s := mustEvaluate(t, `
(def c (cells (list (point 100 3000 5000) (point 200 3000 5000)) :name "front"))
(slice :frontal :actors c :close)
`)
	// Both cells lie anterior to the frontal plane, which keeps the
	// posterior side.
	if got := s.GetActors("front", ""); len(got) != 0 {
		t.Errorf("expected the emptied 'front' actor to be dropped, got %d", len(got))
	}
}

func TestSliceObliqueCloseDropsEmptied(t *testing.T) {
	s := mustEvaluate(t, `
(def th (region "TH"))
(slice (plane :at (point 20000 20000 20000) :normal (point 1 1 1)) :actors th :close)
`)
	if got := s.GetActors("TH", ""); len(got) != 0 {
		t.Errorf("expected TH to be dropped by a cut past its bounds, got %d", len(got))
	}
}

func TestCameraPreset(t *testing.T) {
	s := mustEvaluate(t, `(camera :sagittal)`)
	cam, err := s.Camera()
	if err != nil {
		t.Fatalf("camera: %v", err)
	}
	want, _ := camera.Preset("sagittal")
	if cam.Pos != want.Pos {
		t.Errorf("camera pos = %v, want %v", cam.Pos, want.Pos)
	}

	s = mustEvaluate(t, `(camera "top")`)
	cam, _ = s.Camera()
	want, _ = camera.Preset("top")
	if cam.Pos != want.Pos {
		t.Errorf("camera pos = %v, want %v", cam.Pos, want.Pos)
	}
}

func TestCameraFirstFlagWins(t *testing.T) {
	want, _ := camera.Preset("top")
	for i := 0; i < 20; i++ {
		s := mustEvaluate(t, `(camera :top :sagittal :frontal)`)
		cam, err := s.Camera()
		if err != nil {
			t.Fatalf("camera: %v", err)
		}
		if cam.Pos != want.Pos {
			t.Fatalf("camera pos = %v, want the top preset", cam.Pos)
		}
	}
}

func TestCameraHyphenatedPreset(t *testing.T) {
	s := mustEvaluate(t, `(camera :three-quarters)`)
	cam, err := s.Camera()
	if err != nil {
		t.Fatalf("camera: %v", err)
	}
	want, _ := camera.Preset("three_quarters")
	if cam.Pos != want.Pos {
		t.Errorf("camera pos = %v, want %v", cam.Pos, want.Pos)
	}
}

func TestCameraDegenerateExplicit(t *testing.T) {
	_, evalErrs, err := newTestEngine().Evaluate(
		`(camera :pos (point 6600 4000 5700) :viewup (point 0 -1 0) :focal (point 6600 4000 5700))`)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected eval error for a camera sitting on its focal point")
	}
}

func TestCameraExplicit(t *testing.T) {
	s := mustEvaluate(t, `
(camera :pos (point 10705 32704 337) :viewup (point 0 -1 0) :focal (point 6600 4000 5700))
`)
	cam, err := s.Camera()
	if err != nil {
		t.Fatalf("camera: %v", err)
	}
	if cam.Pos != [3]float64{10705, 32704, 337} {
		t.Errorf("camera pos = %v", cam.Pos)
	}
	if cam.ViewUp != [3]float64{0, -1, 0} {
		t.Errorf("camera viewup = %v", cam.ViewUp)
	}
}

func TestCameraUnknown(t *testing.T) {
	_, evalErrs, err := newTestEngine().Evaluate(`(camera :fisheye)`)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected eval error for unknown camera")
	}
}

func TestRemove(t *testing.T) {
	s := mustEvaluate(t, `
(def th (region "TH"))
(region "CA1" "MOB")
(remove th "CA1" "NOPE")
`)
	if got := s.GetActors("TH", ""); len(got) != 0 {
		t.Errorf("TH should be removed, found %d", len(got))
	}
	if got := s.GetActors("CA1", ""); len(got) != 0 {
		t.Errorf("CA1 should be removed, found %d", len(got))
	}
	if got := s.GetActors("MOB", ""); len(got) != 1 {
		t.Errorf("MOB should remain, found %d", len(got))
	}
}

func TestGetActorsReturnsHandles(t *testing.T) {
	s := mustEvaluate(t, `
(region "TH" "CA1")
(label (get-actors :name "CA1") "Hippocampus")
`)
	ca1 := s.GetActors("CA1", "")
	if len(ca1) != 1 || ca1[0].Label != "Hippocampus" {
		t.Fatalf("expected CA1 labelled through get-actors, got %v", ca1)
	}
}

func TestTitle(t *testing.T) {
	s := mustEvaluate(t, `(title "Thalamus")`)
	if s.Title != "Thalamus" {
		t.Errorf("title = %q, want Thalamus", s.Title)
	}
}

func TestVariableReference(t *testing.T) {
	s := mustEvaluate(t, `
(def n 12)
(points-in-region "TH" n)
`)
	cells := s.GetActors("TH cells", "")
	if len(cells) != 1 || len(cells[0].Points) != 12 {
		t.Fatalf("expected 12 TH cells from variable count, got %v", cells)
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	mustEvaluate(t, "(+ 1 2)")
}
