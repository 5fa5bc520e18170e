// Package geoio reads and writes vector datasets as GeoJSON feature
// collections, exposing attribute access and ctessum/geom geometries.
//
// Geopackage and shapefile readers are external collaborators; GeoJSON is
// the one vector format this module handles natively, and upstream
// datasets are converted once at ingestion time.
package geoio

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/ctessum/geom"
)

// Feature is one vector feature: a geometry plus attributes.
type Feature struct {
	Geometry   geom.Geom
	Properties map[string]any
}

// String returns a string attribute. Numeric attributes are formatted, so
// integer-valued identifier columns read back consistently.
func (f *Feature) String(key string) string {
	switch v := f.Properties[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Float returns a numeric attribute, with ok reporting presence.
func (f *Feature) Float(key string) (float64, bool) {
	switch v := f.Properties[key].(type) {
	case float64:
		return v, true
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

// Dataset is an in-memory vector dataset.
type Dataset struct {
	Features []*Feature
}

// Len returns the number of features.
func (d *Dataset) Len() int { return len(d.Features) }

type jsonGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type jsonFeature struct {
	Type       string         `json:"type"`
	Geometry   *jsonGeometry  `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type jsonCollection struct {
	Type     string        `json:"type"`
	Features []jsonFeature `json:"features"`
}

// Load reads a GeoJSON feature collection from a file.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ds, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Decode parses a GeoJSON feature collection.
func Decode(data []byte) (*Dataset, error) {
	var coll jsonCollection
	if err := json.Unmarshal(data, &coll); err != nil {
		return nil, fmt.Errorf("parse GeoJSON: %w", err)
	}
	if coll.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection, got %q", coll.Type)
	}

	ds := &Dataset{Features: make([]*Feature, 0, len(coll.Features))}
	for i, jf := range coll.Features {
		g, err := decodeGeometry(jf.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		props := jf.Properties
		if props == nil {
			props = map[string]any{}
		}
		ds.Features = append(ds.Features, &Feature{Geometry: g, Properties: props})
	}
	return ds, nil
}

func decodeGeometry(jg *jsonGeometry) (geom.Geom, error) {
	if jg == nil {
		return nil, nil
	}
	switch jg.Type {
	case "Point":
		var c [2]float64
		if err := json.Unmarshal(jg.Coordinates, &c); err != nil {
			return nil, fmt.Errorf("point coordinates: %w", err)
		}
		return geom.Point{X: c[0], Y: c[1]}, nil
	case "Polygon":
		var rings [][][2]float64
		if err := json.Unmarshal(jg.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("polygon coordinates: %w", err)
		}
		return toPolygon(rings), nil
	case "MultiPolygon":
		var polys [][][][2]float64
		if err := json.Unmarshal(jg.Coordinates, &polys); err != nil {
			return nil, fmt.Errorf("multipolygon coordinates: %w", err)
		}
		mp := make(geom.MultiPolygon, len(polys))
		for i, rings := range polys {
			mp[i] = toPolygon(rings)
		}
		return mp, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", jg.Type)
	}
}

func toPolygon(rings [][][2]float64) geom.Polygon {
	poly := make(geom.Polygon, len(rings))
	for i, ring := range rings {
		path := make([]geom.Point, len(ring))
		for j, c := range ring {
			path[j] = geom.Point{X: c[0], Y: c[1]}
		}
		poly[i] = path
	}
	return poly
}

// Save writes a dataset as a GeoJSON feature collection.
func Save(path string, ds *Dataset) error {
	coll := jsonCollection{Type: "FeatureCollection", Features: make([]jsonFeature, 0, len(ds.Features))}
	for i, f := range ds.Features {
		jg, err := encodeGeometry(f.Geometry)
		if err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
		coll.Features = append(coll.Features, jsonFeature{
			Type:       "Feature",
			Geometry:   jg,
			Properties: f.Properties,
		})
	}
	data, err := json.MarshalIndent(&coll, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func encodeGeometry(g geom.Geom) (*jsonGeometry, error) {
	marshal := func(t string, coords any) (*jsonGeometry, error) {
		raw, err := json.Marshal(coords)
		if err != nil {
			return nil, err
		}
		return &jsonGeometry{Type: t, Coordinates: raw}, nil
	}

	switch gg := g.(type) {
	case nil:
		return nil, nil
	case geom.Point:
		return marshal("Point", [2]float64{gg.X, gg.Y})
	case geom.Polygon:
		return marshal("Polygon", fromPolygon(gg))
	case geom.MultiPolygon:
		polys := make([][][][2]float64, len(gg))
		for i, p := range gg {
			polys[i] = fromPolygon(p)
		}
		return marshal("MultiPolygon", polys)
	default:
		return nil, fmt.Errorf("unsupported geometry type %T", g)
	}
}

func fromPolygon(p geom.Polygon) [][][2]float64 {
	rings := make([][][2]float64, len(p))
	for i, ring := range p {
		coords := make([][2]float64, len(ring))
		for j, pt := range ring {
			coords[j] = [2]float64{pt.X, pt.Y}
		}
		rings[i] = coords
	}
	return rings
}
