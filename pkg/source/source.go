// Package source reads city data into scene records. GeoJSON feature
// collections become footprint polygons and COLLADA documents become
// pre-triangulated scene nodes. Loading is forgiving: a bad feature or node
// is reported and skipped while the rest of the file loads.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/cityview/pkg/scene"
)

var (
	// ErrInvalidInput marks a feature or node that could not be read.
	ErrInvalidInput = errors.New("source: invalid input")
	// ErrUnsupportedFormat is returned for file extensions with no loader.
	ErrUnsupportedFormat = errors.New("source: unsupported format")
)

// Format identifies a loader.
type Format int

const (
	FormatGeoJSON Format = iota
	FormatCollada
)

func (f Format) String() string {
	switch f {
	case FormatGeoJSON:
		return "geojson"
	case FormatCollada:
		return "collada"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatOf picks the loader for path by extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return FormatGeoJSON, nil
	case ".dae":
		return FormatCollada, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Result holds the records of one file. Skipped holds one error per record
// that was dropped, each wrapping ErrInvalidInput. Warnings are findings on
// records that were kept.
type Result struct {
	Format   Format
	Polygons []scene.Polygon
	Nodes    []scene.Node
	Skipped  []error
	Warnings []scene.ValidationError
}

// Len is the number of records loaded.
func (r *Result) Len() int {
	return len(r.Polygons) + len(r.Nodes)
}

// Load reads path with the loader its extension selects. The returned error
// is set only when nothing could be read at all.
func Load(path string) (*Result, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}

	res := &Result{Format: format}
	switch format {
	case FormatGeoJSON:
		polys, errs, err := decodeGeoJSON(data)
		if err != nil {
			return nil, err
		}
		res.Skipped = errs
		for _, p := range polys {
			if res.keep(p.ID, scene.ValidatePolygon(p)) {
				res.Polygons = append(res.Polygons, p)
			}
		}
	case FormatCollada:
		nodes, errs, err := decodeCollada(data)
		if err != nil {
			return nil, err
		}
		res.Skipped = errs
		for _, n := range nodes {
			if res.keep(n.ID, scene.ValidateNode(n)) {
				res.Nodes = append(res.Nodes, n)
			}
		}
	}
	return res, nil
}

// keep files validation findings and reports whether the record survives.
func (r *Result) keep(id string, findings []scene.ValidationError) bool {
	ok := true
	for _, f := range findings {
		if f.Severity == scene.SeverityError {
			r.Skipped = append(r.Skipped, fmt.Errorf("%w: %w", ErrInvalidInput, f))
			ok = false
			continue
		}
		r.Warnings = append(r.Warnings, f)
	}
	return ok
}

// LoadPolygons reads a GeoJSON feature collection.
func LoadPolygons(path string) ([]scene.Polygon, []error) {
	res, err := load(path, FormatGeoJSON)
	if err != nil {
		return nil, []error{err}
	}
	return res.Polygons, res.Skipped
}

// LoadScene reads a COLLADA document.
func LoadScene(path string) ([]scene.Node, []error) {
	res, err := load(path, FormatCollada)
	if err != nil {
		return nil, []error{err}
	}
	return res.Nodes, res.Skipped
}

func load(path string, want Format) (*Result, error) {
	res, err := Load(path)
	if err != nil {
		return nil, err
	}
	if res.Format != want {
		return nil, fmt.Errorf("%w: %s is %s, want %s", ErrUnsupportedFormat, path, res.Format, want)
	}
	return res, nil
}
