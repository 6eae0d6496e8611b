// Package scene is the facade that owns a scene's actors, atlas, camera and
// window configuration. Rendering itself is left to consumers of the
// resolved configuration; the scene can draw a flat projection screenshot
// and export triangle meshes.
package scene

import (
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/chazu/brainscene/pkg/actor"
	"github.com/chazu/brainscene/pkg/atlas"
	"github.com/chazu/brainscene/pkg/blob"
	"github.com/chazu/brainscene/pkg/camera"
	"github.com/chazu/brainscene/pkg/colors"
	"github.com/chazu/brainscene/pkg/kernel"
	"github.com/chazu/brainscene/pkg/sampling"
	"github.com/chazu/brainscene/pkg/settings"
	"github.com/chazu/brainscene/pkg/tessellate"
)

// RootName is the name of the whole-brain actor every scene starts with.
const RootName = "root"

// Scene holds the actors to render over an atlas. It is not safe for
// concurrent mutation.
type Scene struct {
	Atlas    *atlas.Atlas
	Settings settings.Settings
	Title    string
	Inset    bool
	Jupyter  bool

	root    *actor.Actor
	actors  []*actor.Actor
	camera  camera.Param
	store   blob.Store
	sampler *sampling.Sampler
}

type config struct {
	atlas    *atlas.Atlas
	settings *settings.Settings
	title    string
	inset    bool
	root     bool
	jupyter  bool
	camera   camera.Param
	store    blob.Store
	sampler  *sampling.Sampler
}

// Option configures New.
type Option func(*config)

// WithAtlas uses a instead of the embedded default atlas.
func WithAtlas(a *atlas.Atlas) Option { return func(c *config) { c.atlas = a } }

// WithSettings replaces the default settings.
func WithSettings(s settings.Settings) Option { return func(c *config) { c.settings = &s } }

// WithTitle sets the scene title.
func WithTitle(t string) Option { return func(c *config) { c.title = t } }

// WithInset toggles the orientation inset.
func WithInset(on bool) Option { return func(c *config) { c.inset = on } }

// WithRoot toggles visibility of the root actor. A hidden root is still
// part of the scene with zero alpha.
func WithRoot(on bool) Option { return func(c *config) { c.root = on } }

// WithJupyter marks the scene as embedded in a notebook.
func WithJupyter(on bool) Option { return func(c *config) { c.jupyter = on } }

// WithCamera sets the scene camera.
func WithCamera(p camera.Param) Option { return func(c *config) { c.camera = p } }

// WithScreenshotStore writes screenshots to st instead of the store named
// by the settings.
func WithScreenshotStore(st blob.Store) Option { return func(c *config) { c.store = st } }

// WithSampler replaces the point sampler. Its resolver is set to the scene
// atlas when nil.
func WithSampler(s *sampling.Sampler) Option { return func(c *config) { c.sampler = s } }

// New creates a scene holding only the root actor.
func New(opts ...Option) (*Scene, error) {
	cfg := config{inset: true, root: true}
	for _, o := range opts {
		o(&cfg)
	}

	a := cfg.atlas
	if a == nil {
		var err error
		if a, err = atlas.Default(); err != nil {
			return nil, err
		}
	}
	st := settings.Default()
	if cfg.settings != nil {
		st = *cfg.settings
	}

	smp := cfg.sampler
	if smp == nil {
		smp = sampling.New(a)
		smp.CandidatePool = st.CandidatePool
	} else if smp.Resolver == nil {
		smp.Resolver = a
	}

	s := &Scene{
		Atlas:    a,
		Settings: st,
		Title:    cfg.title,
		Inset:    cfg.inset,
		Jupyter:  cfg.jupyter,
		camera:   cfg.camera,
		store:    cfg.store,
		sampler:  smp,
	}

	root, err := s.newRoot(cfg.root)
	if err != nil {
		return nil, err
	}
	s.root = root
	s.actors = append(s.actors, root)
	return s, nil
}

func (s *Scene) newRoot(visible bool) (*actor.Actor, error) {
	var solid kernel.Solid
	if r := s.Atlas.Root(); r != nil {
		solid = r.Solid
	}
	root := actor.New(RootName, actor.ClassBrainRegion, solid)
	c, err := colors.Parse(s.Settings.RootColor)
	if err != nil {
		return nil, fmt.Errorf("root color: %w", err)
	}
	root.Color = c
	root.Alpha = s.Settings.RootAlpha
	if !visible {
		root.Alpha = 0
	}
	return root, nil
}

// Root returns the whole-brain actor.
func (s *Scene) Root() *actor.Actor { return s.root }

// Actors returns the scene actors in insertion order.
func (s *Scene) Actors() []*actor.Actor { return slices.Clone(s.actors) }

// Kernel returns the geometry kernel of the scene atlas.
func (s *Scene) Kernel() kernel.Kernel { return s.Atlas.Kernel() }

func (s *Scene) String() string {
	return fmt.Sprintf("A `brainscene.Scene` with %d actors.", len(s.actors))
}

// Content lists the scene actors, one per line.
func (s *Scene) Content() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Scene %q content:\n", s.Title)
	for _, a := range s.actors {
		fmt.Fprintf(&sb, "  - %s\n", a)
	}
	return sb.String()
}

// Add appends actors to the scene. names and classes, when set, override
// the actors' own; an empty string leaves the actor unchanged.
func (s *Scene) Add(actors []*actor.Actor, names, classes actor.Spec[string]) error {
	ns, cs, err := actor.ParseAddInputs(actors, names, classes)
	if err != nil {
		return err
	}
	if i := slices.Index(actors, nil); i >= 0 {
		return fmt.Errorf("actor %d is nil", i)
	}
	for i, a := range actors {
		if ns[i] != "" {
			a.Name = ns[i]
		}
		if cs[i] != "" {
			a.Class = cs[i]
		}
	}
	s.actors = append(s.actors, actors...)
	return nil
}

// Remove drops a from the scene. It reports whether a was present.
func (s *Scene) Remove(a *actor.Actor) bool {
	i := slices.Index(s.actors, a)
	if i < 0 {
		log.Printf("scene: cannot remove %v, not in scene", a)
		return false
	}
	s.actors = slices.Delete(s.actors, i, i+1)
	return true
}

// RemoveNamed drops every actor called name and returns how many were
// removed. Unknown names are a no-op.
func (s *Scene) RemoveNamed(name string) int {
	before := len(s.actors)
	s.actors = slices.DeleteFunc(s.actors, func(a *actor.Actor) bool { return a.Name == name })
	n := before - len(s.actors)
	if n == 0 {
		log.Printf("scene: no actor named %q to remove", name)
	}
	return n
}

// GetActors returns actors matching name and class. An empty filter
// matches every actor.
func (s *Scene) GetActors(name, class string) []*actor.Actor {
	var out []*actor.Actor
	for _, a := range s.actors {
		if name != "" && a.Name != name {
			continue
		}
		if class != "" && a.Class != class {
			continue
		}
		out = append(out, a)
	}
	return out
}

// SetCamera replaces the scene camera.
func (s *Scene) SetCamera(p camera.Param) { s.camera = p }

// Camera resolves the scene camera: the camera set on the scene, then the
// atlas default, then the settings default.
func (s *Scene) Camera() (camera.Camera, error) {
	var atlasDefault camera.Param
	if s.Atlas.DefaultCamera != "" {
		atlasDefault = camera.Named(s.Atlas.DefaultCamera)
	}
	return camera.ForScene(s.camera, atlasDefault, s.Settings.DefaultCamera)
}

// Plotter returns the window configuration for the scene.
func (s *Scene) Plotter() (settings.Plotter, error) {
	return settings.PlotterSettings(s.Settings, s.Jupyter, s.Atlas)
}

// Export tessellates every visible solid actor.
func (s *Scene) Export() ([]*kernel.Mesh, error) {
	return tessellate.Tessellate(s.actors, s.Kernel())
}
