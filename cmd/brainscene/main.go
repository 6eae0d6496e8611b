// Command brainscene evaluates a scene script against a brain atlas and
// writes a screenshot and/or a JSON mesh export.
//
//	brainscene -script examples/thalamus.lisp -screenshot thalamus
//	brainscene -script - -export meshes.json < scene.lisp
//	brainscene -gene Cacna2d1 -screenshot cacna2d1
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/chazu/brainscene/pkg/actor"
	"github.com/chazu/brainscene/pkg/atlas"
	"github.com/chazu/brainscene/pkg/blob"
	"github.com/chazu/brainscene/pkg/geneexp"
	"github.com/chazu/brainscene/pkg/kernel/sdfx"
	"github.com/chazu/brainscene/pkg/scene"
	"github.com/chazu/brainscene/pkg/settings"
)

type options struct {
	atlasPath   string
	configPath  string
	scriptPath  string
	screenshot  string
	screenshots string
	exportPath  string
	gene        string
	quantile    float64
	colormap    string
	scale       float64
	verbose     bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("brainscene", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.atlasPath, "atlas", "", "YAML atlas definition (default: embedded synthetic mouse atlas)")
	fs.StringVar(&o.configPath, "config", "", "TOML settings file")
	fs.StringVar(&o.scriptPath, "script", "", "scene script to evaluate, - for stdin")
	fs.StringVar(&o.screenshot, "screenshot", "", "save a screenshot under this name")
	fs.StringVar(&o.screenshots, "screenshots", "", "screenshot store URL (directory, mem:// or s3://bucket/prefix)")
	fs.StringVar(&o.exportPath, "export", "", "write tessellated meshes as JSON to this file, - for stdout")
	fs.StringVar(&o.gene, "gene", "", "add the expression volume of this gene")
	fs.Float64Var(&o.quantile, "quantile", geneexp.DefaultMinQuantile, "gene expression percentile threshold")
	fs.StringVar(&o.colormap, "colormap", geneexp.DefaultColormap, "gene expression colormap")
	fs.Float64Var(&o.scale, "scale", 0, "screenshot scale (default from settings)")
	fs.BoolVar(&o.verbose, "verbose", false, "log more")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if o.scriptPath == "" && o.gene == "" {
		return o, errors.New("nothing to render: pass -script and/or -gene")
	}
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal(err)
	}
	if err := run(context.Background(), o, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, o options, stdin io.Reader, stdout io.Writer) error {
	st := settings.Default()
	if o.configPath != "" {
		var err error
		if st, err = settings.Load(o.configPath); err != nil {
			return err
		}
	}
	if o.screenshots != "" {
		st.Screenshots = o.screenshots
	}
	if o.verbose {
		st.Verbose = true
	}

	opts := []scene.Option{scene.WithSettings(st)}
	if o.atlasPath != "" {
		a, err := loadAtlas(o.atlasPath)
		if err != nil {
			return err
		}
		opts = append(opts, scene.WithAtlas(a))
	}

	source, err := readScript(o.scriptPath, stdin)
	if err != nil {
		return err
	}

	app := NewApp(opts...)
	s, result := app.Scene(source)
	if s == nil {
		for _, e := range result.Errors {
			log.Printf("%s: line %d: %s", o.scriptPath, e.Line, e.Message)
		}
		return fmt.Errorf("%s: %d errors", o.scriptPath, len(result.Errors))
	}

	if o.gene != "" {
		if err := addGene(ctx, s, o, st); err != nil {
			return err
		}
	}

	if o.exportPath != "" {
		if err := export(app, s, o.exportPath, stdout); err != nil {
			return err
		}
	}
	if o.screenshot != "" || o.exportPath == "" {
		key, err := s.Screenshot(ctx, o.screenshot, o.scale)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, key)
	}
	return nil
}

func loadAtlas(path string) (*atlas.Atlas, error) {
	def, err := atlas.Load(path)
	if err != nil {
		return nil, err
	}
	a, warnings, err := atlas.Build(def, sdfx.New())
	for _, w := range warnings {
		log.Printf("atlas %s: %v", path, w)
	}
	return a, err
}

func readScript(path string, stdin io.Reader) (string, error) {
	switch path {
	case "":
		return "", nil
	case "-":
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading script: %w", err)
	}
	return string(b), nil
}

// addGene downloads the first sagittal experiment of the gene and adds its
// expression volume to s.
func addGene(ctx context.Context, s *scene.Scene, o options, st settings.Settings) error {
	cache, err := blob.Open(ctx, st.GeneCache)
	if err != nil {
		return fmt.Errorf("gene cache: %w", err)
	}
	client := geneexp.NewClient(cache)
	if base := os.Getenv("BRAINSCENE_GENE_API"); base != "" {
		client.BaseURL = base
	}
	ids, err := client.Experiments(ctx, o.gene)
	if err != nil {
		return err
	}
	grid, err := client.GeneData(ctx, o.gene, ids[0], true)
	if err != nil {
		return err
	}
	a, err := geneexp.ToVolume(grid, o.gene, geneexp.VolumeOptions{MinQuantile: o.quantile, Colormap: o.colormap})
	if err != nil {
		return err
	}
	return s.Add([]*actor.Actor{a}, actor.Spec[string]{}, actor.Spec[string]{})
}

func export(app *App, s *scene.Scene, path string, stdout io.Writer) error {
	result := app.appendMeshes(s, newResult())
	if len(result.Errors) > 0 {
		return errors.New(result.Errors[0].Message)
	}
	w := stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating export: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result.Meshes); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}
