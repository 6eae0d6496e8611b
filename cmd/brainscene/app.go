package main

import (
	"fmt"
	"log"

	"github.com/chazu/brainscene/pkg/actor"
	"github.com/chazu/brainscene/pkg/engine"
	"github.com/chazu/brainscene/pkg/scene"
)

// App evaluates scene scripts and packages the result for a viewer.
type App struct {
	engine *engine.Engine
}

// MeshData is the JSON-serializable mesh format sent to viewers.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// ActorData summarizes one scene actor.
type ActorData struct {
	Name   string `json:"name"`
	Class  string `json:"class"`
	Points int    `json:"points,omitempty"`
	Label  string `json:"label,omitempty"`
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of evaluating a script.
type EvalResult struct {
	Title    string          `json:"title,omitempty"`
	Actors   []ActorData     `json:"actors"`
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp creates an App whose scenes are built with opts.
func NewApp(opts ...scene.Option) *App {
	return &App{engine: engine.NewEngine(opts...)}
}

func newResult() EvalResult {
	return EvalResult{
		Actors:   []ActorData{},
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
}

// Scene evaluates source into a scene. The scene is nil when the result
// carries errors.
func (a *App) Scene(source string) (*scene.Scene, EvalResult) {
	result := newResult()

	s, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return nil, result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return nil, result
	}

	result.Title = s.Title
	for _, x := range s.Actors() {
		result.Actors = append(result.Actors, ActorData{
			Name:   x.DisplayName(),
			Class:  x.Class,
			Points: len(x.Points),
			Label:  x.Label,
		})
	}
	return s, result
}

// Evaluate takes script source and returns mesh data + errors.
// Point clouds have no surface and are reported as warnings.
func (a *App) Evaluate(source string) EvalResult {
	s, result := a.Scene(source)
	if s == nil {
		return result
	}
	return a.appendMeshes(s, result)
}

func (a *App) appendMeshes(s *scene.Scene, result EvalResult) EvalResult {
	meshes, err := s.Export()
	if err != nil {
		log.Printf("Tessellate error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{
			Message: "tessellation failed: " + err.Error(),
		})
		return result
	}
	for _, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Color:    m.Color,
		})
	}
	for _, x := range s.Actors() {
		if x.Solid == nil && x.Class != actor.ClassLabel && len(x.Points) > 0 {
			result.Warnings = append(result.Warnings, EvalErrorData{
				Message: fmt.Sprintf("%s: point cloud with %d points has no surface mesh", x.DisplayName(), len(x.Points)),
			})
		}
	}
	return result
}
