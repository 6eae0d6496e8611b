// Package settings holds the user-level configuration of brainscene and the
// window/axes configuration derived from it for a renderer.
package settings

import (
	"errors"
	"fmt"
	"os"

	"github.com/chazu/brainscene/pkg/camera"
	"github.com/chazu/brainscene/pkg/colors"
	"github.com/pelletier/go-toml/v2"
)

// Settings are the global rendering and sampling options. The zero value is
// not useful; start from Default.
type Settings struct {
	WholeScreen bool   `toml:"whole_screen"`
	ShowAxes    bool   `toml:"show_axes"`
	AxesStyle   int    `toml:"axes_style"`
	WindowPos   [2]int `toml:"window_pos"`

	DefaultCamera   string  `toml:"default_camera"`
	RootColor       string  `toml:"root_color"`
	RootAlpha       float64 `toml:"root_alpha"`
	BackgroundColor string  `toml:"background_color"`

	// Screenshots is the blob store URL screenshots are written to.
	Screenshots     string  `toml:"screenshots"`
	ScreenshotScale float64 `toml:"screenshot_scale"`

	// GeneCache is the blob store URL for downloaded gene expression data.
	// Empty keeps the cache in memory.
	GeneCache string `toml:"gene_cache"`

	CandidatePool int  `toml:"candidate_pool"`
	Verbose       bool `toml:"verbose"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		WholeScreen:     false,
		ShowAxes:        true,
		AxesStyle:       1,
		WindowPos:       [2]int{10, 10},
		DefaultCamera:   camera.Default,
		RootColor:       "#cccccc",
		RootAlpha:       0.2,
		BackgroundColor: "white",
		Screenshots:     "screenshots",
		ScreenshotScale: 1,
		CandidatePool:   10000,
	}
}

// Load reads a TOML settings file. Keys missing from the file keep their
// default values; unknown keys are an error.
func Load(path string) (Settings, error) {
	s := Default()
	f, err := os.Open(path)
	if err != nil {
		return s, fmt.Errorf("loading settings: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return s, fmt.Errorf("%s: unknown settings:\n%s", path, strict.String())
		}
		return s, fmt.Errorf("%s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Save writes s as TOML.
func (s Settings) Save(path string) error {
	b, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// Validate reports the first invalid option.
func (s Settings) Validate() error {
	if s.ShowAxes && s.AxesStyle != 1 && s.AxesStyle != 7 {
		return fmt.Errorf("axes_style %d: %w", s.AxesStyle, ErrUnsupportedAxesStyle)
	}
	if _, err := camera.Check(camera.Named(s.DefaultCamera)); err != nil {
		return fmt.Errorf("default_camera: %w", err)
	}
	if _, err := colors.Parse(s.RootColor); err != nil {
		return fmt.Errorf("root_color: %w", err)
	}
	if _, err := colors.Parse(s.BackgroundColor); err != nil {
		return fmt.Errorf("background_color: %w", err)
	}
	if s.RootAlpha < 0 || s.RootAlpha > 1 {
		return fmt.Errorf("root_alpha %g must be within [0, 1]", s.RootAlpha)
	}
	if s.ScreenshotScale <= 0 {
		return fmt.Errorf("screenshot_scale %g must be positive", s.ScreenshotScale)
	}
	if s.CandidatePool <= 0 {
		return fmt.Errorf("candidate_pool %d must be positive", s.CandidatePool)
	}
	return nil
}
