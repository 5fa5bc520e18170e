// Package spatial models the two-level reef/location hierarchy: coarse
// reefs carrying carrying-capacity fractions and areas, and the fine
// locations nested inside them.
package spatial

import (
	"fmt"

	"github.com/ctessum/geom"

	"github.com/reefworks/domaingen/geoio"
)

// Unit is one spatial unit at either level of the hierarchy.
type Unit struct {
	// ID is the unit's identifier within its partition.
	ID string
	// Geom is the unit geometry (polygon for reefs, polygon or point for
	// locations). May be nil when the dataset is purely tabular.
	Geom geom.Geom
	// Area is the unit's absolute area in square metres.
	Area float64
	// K is the carrying-capacity fraction in [0, 1]: the proportion of
	// the unit's area that coral can occupy.
	K float64
	// Depth is the unit's mean depth in metres (negative below surface).
	Depth float64
	// Parent is the identifier linking a fine unit to its containing
	// coarse unit, when the dataset carries one.
	Parent string
}

// KArea returns the unit's maximum coral-coverable area, k * area.
func (u *Unit) KArea() float64 { return u.K * u.Area }

// HasCapacity reports whether the unit can hold any coral at all.
func (u *Unit) HasCapacity() bool { return u.KArea() > 0 }

// Columns names the dataset attributes units are read from. Zero-valued
// fields fall back to the conventional GBR canonical column names.
type Columns struct {
	ID     string
	K      string
	Area   string
	Depth  string
	Parent string
}

// DefaultColumns are the canonical dataset's attribute names.
func DefaultColumns() Columns {
	return Columns{
		ID:     "UNIQUE_ID",
		K:      "ReefMod_habitable_proportion",
		Area:   "ReefMod_area_m2",
		Depth:  "depth_med",
		Parent: "RME_GBRMPA_ID",
	}
}

func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	if c.ID == "" {
		c.ID = d.ID
	}
	if c.K == "" {
		c.K = d.K
	}
	if c.Area == "" {
		c.Area = d.Area
	}
	if c.Depth == "" {
		c.Depth = d.Depth
	}
	if c.Parent == "" {
		c.Parent = d.Parent
	}
	return c
}

// UnitsFromDataset reads spatial units out of a vector dataset. Duplicate
// identifiers and out-of-range k values are configuration faults.
func UnitsFromDataset(ds *geoio.Dataset, cols Columns) ([]Unit, error) {
	cols = cols.withDefaults()

	units := make([]Unit, 0, ds.Len())
	seen := make(map[string]bool, ds.Len())
	for i, f := range ds.Features {
		id := f.String(cols.ID)
		if id == "" {
			return nil, fmt.Errorf("feature %d: missing identifier column %q", i, cols.ID)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate unit identifier %q", id)
		}
		seen[id] = true

		k, _ := f.Float(cols.K)
		if k < 0 || k > 1 {
			return nil, fmt.Errorf("unit %q: carrying-capacity fraction %g outside [0, 1]", id, k)
		}
		area, _ := f.Float(cols.Area)
		if area < 0 {
			return nil, fmt.Errorf("unit %q: negative area %g", id, area)
		}
		depth, _ := f.Float(cols.Depth)

		units = append(units, Unit{
			ID:     id,
			Geom:   f.Geometry,
			Area:   area,
			K:      k,
			Depth:  depth,
			Parent: f.String(cols.Parent),
		})
	}
	return units, nil
}
