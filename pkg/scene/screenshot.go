package scene

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"log"
	"math"
	"path"
	"strings"
	"time"

	"github.com/chazu/brainscene/pkg/actor"
	"github.com/chazu/brainscene/pkg/blob"
	"github.com/chazu/brainscene/pkg/camera"
	"github.com/chazu/brainscene/pkg/colors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Screenshot image size at scale 1.
const (
	screenshotWidth  = 8 * vg.Inch
	screenshotHeight = 6 * vg.Inch
)

// Screenshot draws the visible actors projected along the scene camera and
// stores the PNG in the screenshot store. An empty name gets a timestamped
// default; a scale of zero or less uses the configured scale. It returns
// the key the image was stored under.
func (s *Scene) Screenshot(ctx context.Context, name string, scale float64) (string, error) {
	if scale <= 0 {
		scale = s.Settings.ScreenshotScale
	}
	if scale <= 0 {
		scale = 1
	}
	key := screenshotKey(name, time.Now())

	cam, err := s.Camera()
	if err != nil {
		return "", err
	}
	p, err := s.project(cam)
	if err != nil {
		return "", err
	}

	wt, err := p.WriterTo(vg.Length(scale)*screenshotWidth, vg.Length(scale)*screenshotHeight, "png")
	if err != nil {
		return "", fmt.Errorf("rendering screenshot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("rendering screenshot: %w", err)
	}

	st, err := s.screenshotStore(ctx)
	if err != nil {
		return "", err
	}
	_, err = st.Put(ctx, key, &buf, blob.PutOptions{
		ContentType: "image/png",
		Metadata: map[string]string{
			"title":  s.Title,
			"actors": fmt.Sprint(len(s.actors)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("saving screenshot: %w", err)
	}
	if s.Settings.Verbose {
		log.Printf("scene: saved screenshot %s (%s store)", key, st.Driver())
	}
	return key, nil
}

func screenshotKey(name string, now time.Time) string {
	if name == "" {
		name = "brainscene_" + now.Format("20060102_150405")
	}
	if path.Ext(name) == "" {
		name += ".png"
	}
	return strings.TrimPrefix(name, "/")
}

func (s *Scene) screenshotStore(ctx context.Context) (blob.Store, error) {
	if s.store == nil {
		st, err := blob.Open(ctx, s.Settings.Screenshots)
		if err != nil {
			return nil, fmt.Errorf("opening screenshot store: %w", err)
		}
		s.store = st
	}
	return s.store, nil
}

// project builds an orthographic scatter plot of every visible actor.
// Solids are drawn as the sampled points inside them unless the actor
// carries its own colored points, as expression volumes do.
func (s *Scene) project(cam camera.Camera) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = s.Title
	p.HideAxes()
	if bg, err := colors.Parse(s.Settings.BackgroundColor); err == nil {
		p.BackgroundColor = bg
	}

	for _, a := range s.actors {
		if a.Alpha <= 0 {
			continue
		}
		pts := a.Points
		if a.Solid != nil && len(a.PointColors) == 0 {
			pts = s.sampler.Inside(a.Solid)
		}
		if len(pts) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(pts))
		for i, pt := range pts {
			xys[i].X, xys[i].Y = cam.Project(pt)
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("projecting %s: %w", a.DisplayName(), err)
		}
		sc.GlyphStyle = glyph(a.Color, a.Alpha)
		if len(a.PointColors) > 0 && len(a.PointColors) == len(pts) {
			pc, alpha := a.PointColors, a.Alpha
			sc.GlyphStyleFunc = func(i int) draw.GlyphStyle { return glyph(pc[i], alpha) }
		}
		p.Add(sc)
		if a.Class == actor.ClassLabel && a.Label != "" {
			if err := addLabel(p, xys[0], a.Label); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

func glyph(c colors.Color, alpha float64) draw.GlyphStyle {
	r, g, b := c.Clamped().RGB255()
	return draw.GlyphStyle{
		Color:  color.NRGBA{R: r, G: g, B: b, A: uint8(math.Min(alpha, 1)*255 + 0.5)},
		Radius: vg.Points(1),
		Shape:  draw.CircleGlyph{},
	}
}

func addLabel(p *plot.Plot, at plotter.XY, text string) error {
	l, err := plotter.NewLabels(plotter.XYLabels{XYs: plotter.XYs{at}, Labels: []string{text}})
	if err != nil {
		return fmt.Errorf("labelling %q: %w", text, err)
	}
	p.Add(l)
	return nil
}
