// Command citysample runs sampling experiments without a window. It loads a
// city model, then either runs a script or samples the meshes named on the
// command line, writing rows to the configured experiment sinks.
//
//	citysample -config cityview.toml -input city.geojson -all
//	citysample -input city.geojson -script sweep.lisp
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/chazu/cityview/pkg/config"
	"github.com/chazu/cityview/pkg/mesh"
	"github.com/chazu/cityview/pkg/scene"
	"github.com/chazu/cityview/pkg/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "citysample:", err)
		os.Exit(1)
	}
}

type options struct {
	config      string
	input       string
	script      string
	meshes      string
	all         bool
	experiment  string
	granularity string
	mode        string
	projection  string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("citysample", flag.ContinueOnError)
	fs.StringVar(&o.config, "config", "", "configuration file (TOML)")
	fs.StringVar(&o.input, "input", "", "city model (.geojson, .json or .dae); overrides input.path")
	fs.StringVar(&o.script, "script", "", "experiment script to run instead of -mesh/-all")
	fs.StringVar(&o.meshes, "mesh", "", "comma-separated mesh indices to sample")
	fs.BoolVar(&o.all, "all", false, "sample every building")
	fs.StringVar(&o.experiment, "experiment", "", "experiment name; overrides sampling.experiment")
	fs.StringVar(&o.granularity, "granularity", "", "h,v,d,a; overrides sampling.granularity")
	fs.StringVar(&o.mode, "mode", "", "surface, volume or auto; overrides sampling.mode")
	fs.StringVar(&o.projection, "projection", "", "mercator or planar; overrides input.projection")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.script != "" && (o.meshes != "" || o.all) {
		return o, errors.New("-script cannot be combined with -mesh or -all")
	}
	return o, nil
}

// apply overlays the command-line overrides on cfg.
func (o options) apply(cfg *config.Config) error {
	if o.input != "" {
		cfg.Input.Path = o.input
	}
	if o.projection != "" {
		cfg.Input.Projection = o.projection
	}
	if o.experiment != "" {
		cfg.Sampling.Experiment = o.experiment
	}
	if o.mode != "" {
		cfg.Sampling.Mode = o.mode
	}
	if o.granularity != "" {
		g, err := parseInts(o.granularity)
		if err != nil || len(g) != 4 {
			return fmt.Errorf("-granularity %q: want four comma-separated integers", o.granularity)
		}
		cfg.Sampling.Granularity = [4]int(g)
	}
	return cfg.Validate()
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(o.config)
	if err != nil {
		return err
	}
	if err := o.apply(&cfg); err != nil {
		return err
	}
	if cfg.Input.Path == "" {
		return errors.New("no input: set -input or input.path")
	}

	s, err := session.New(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	rep, err := s.LoadModel(cfg.Input.Path)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "loaded %s: %d meshes, %d skipped, %d warnings\n",
		cfg.Input.Path, rep.Meshes, len(rep.Skipped), len(rep.Warnings))
	for _, e := range rep.Skipped {
		s.Logger().Warn("record skipped", "err", e)
	}

	if o.script != "" {
		err = runScript(ctx, s, o.script, stdout)
	} else {
		err = sampleMeshes(ctx, s, o, stdout)
	}
	return errors.Join(err, s.Close())
}

func runScript(ctx context.Context, s *session.Session, path string, stdout io.Writer) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rep, err := s.RunScript(ctx, string(src))
	for _, e := range rep.Errors {
		fmt.Fprintf(stdout, "%s:%d: %s\n", path, e.Line, e.Message)
	}
	for i, r := range rep.Samples {
		fmt.Fprintf(stdout, "sample %d: %d/%d setups in %v\n", i, r.Setups, r.Total, r.Elapsed)
	}
	for _, p := range rep.Screenshots {
		fmt.Fprintf(stdout, "screenshot %s\n", p)
	}
	fmt.Fprintf(stdout, "%d steps\n", rep.Steps)
	return err
}

// targets resolves -mesh and -all to mesh indices.
func targets(s *session.Session, o options) ([]int, error) {
	mdl := s.Model()
	if o.all {
		return lo.FilterMap(mdl.Meshes, func(m *mesh.Mesh, i int) (int, bool) {
			return i, m.Category == scene.CategoryBuilding
		}), nil
	}
	if o.meshes == "" {
		return nil, errors.New("nothing to sample: use -mesh, -all or -script")
	}
	idx, err := parseInts(o.meshes)
	if err != nil {
		return nil, fmt.Errorf("-mesh %q: %w", o.meshes, err)
	}
	return lo.Uniq(idx), nil
}

func sampleMeshes(ctx context.Context, s *session.Session, o options, stdout io.Writer) error {
	idx, err := targets(s, o)
	if err != nil {
		return err
	}
	g := s.Config().Granularity()
	mode := s.Config().Mode()
	fmt.Fprintf(stdout, "sampling %d meshes, granularity %s, mode %s\n", len(idx), g, mode)

	total := 0
	for _, i := range idx {
		if err := s.PickIndex(i); err != nil {
			return err
		}
		res, err := s.Sample(ctx)
		total += res.Setups
		m, _ := s.Model().Mesh(i)
		fmt.Fprintf(stdout, "mesh %d %s: %d/%d setups (%s) in %v\n",
			i, m.Name, res.Setups, res.Total, mode.Resolve(m), res.Elapsed)
		if err != nil {
			return err
		}
	}
	fmt.Fprintf(stdout, "%d setups written to experiment %q\n", total, s.Status().Experiment)
	return nil
}
