package source

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/chazu/cityview/pkg/scene"
)

// HeightProperty is the feature property that turns a footprint into an
// extruded building.
const HeightProperty = "height"

// decodeGeoJSON reads the features of a collection one at a time, so a
// feature with bad geometry costs only itself.
func decodeGeoJSON(data []byte) ([]scene.Polygon, []error, error) {
	var raw struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("source: geojson: %w: %w", ErrInvalidInput, err)
	}
	if raw.Type != "FeatureCollection" {
		return nil, nil, fmt.Errorf("source: geojson: %w: type %q, want FeatureCollection", ErrInvalidInput, raw.Type)
	}

	var (
		polys []scene.Polygon
		errs  []error
	)
	for i, msg := range raw.Features {
		f, err := geojson.UnmarshalFeature(msg)
		if err != nil {
			errs = append(errs, fmt.Errorf("source: feature %d: %w: %w", i, ErrInvalidInput, err))
			continue
		}
		got, err := featurePolygons(f, i)
		if err != nil {
			errs = append(errs, fmt.Errorf("source: feature %d: %w: %w", i, ErrInvalidInput, err))
			continue
		}
		polys = append(polys, got...)
	}
	return polys, errs, nil
}

// featurePolygons converts one feature. Polygons keep their exterior ring
// and take a height when the feature has one; every member of a
// multipolygon is flat.
func featurePolygons(f *geojson.Feature, index int) ([]scene.Polygon, error) {
	id := featureID(f, index)
	switch g := f.Geometry.(type) {
	case orb.Polygon:
		if len(g) == 0 {
			return nil, fmt.Errorf("polygon has no rings")
		}
		p := scene.Polygon{
			ID:         id,
			Ring:       g[0],
			Category:   scene.CategoryFlat,
			Properties: f.Properties,
		}
		if v, ok := f.Properties[HeightProperty]; ok {
			h, err := parseHeight(v)
			if err != nil {
				return nil, err
			}
			p.Height = &h
			p.Category = scene.CategoryBuilding
		}
		return []scene.Polygon{p}, nil

	case orb.MultiPolygon:
		var out []scene.Polygon
		for k, member := range g {
			if len(member) == 0 {
				continue
			}
			out = append(out, scene.Polygon{
				ID:         fmt.Sprintf("%s/%d", id, k),
				Ring:       member[0],
				Category:   scene.CategoryFlat,
				Properties: f.Properties,
			})
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("multipolygon has no rings")
		}
		return out, nil

	case nil:
		return nil, fmt.Errorf("feature has no geometry")
	default:
		return nil, fmt.Errorf("unsupported geometry %s", g.GeoJSONType())
	}
}

func featureID(f *geojson.Feature, index int) string {
	switch id := f.ID.(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
	default:
		return fmt.Sprint(id)
	}
	if v, ok := f.Properties["id"]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return strconv.Itoa(index)
}

// parseHeight accepts the height as a JSON number or a numeric string.
func parseHeight(v any) (float64, error) {
	switch h := v.(type) {
	case float64:
		return h, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(h), 64)
		if err != nil {
			return 0, fmt.Errorf("height %q: %w", h, err)
		}
		return f, nil
	case json.Number:
		return h.Float64()
	}
	return 0, fmt.Errorf("height has type %T", v)
}
