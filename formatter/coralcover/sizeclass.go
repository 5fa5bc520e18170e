package coralcover

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// GroupBins holds one functional group's colony-size distribution: a
// log-normal over colony area, plus the colony-diameter bin edges (cm)
// that partition the group into size classes.
type GroupBins struct {
	Group string
	Mu    float64
	Sigma float64
	Edges []float64
}

// diameterToArea converts a colony diameter to its circular planar area.
func diameterToArea(d float64) float64 {
	return math.Pi * (d / 2) * (d / 2)
}

// Weights returns the per-size-class cover weights: successive differences
// of the distribution's CDF at the bin-edge areas, normalized to sum to 1.
// Degenerate (zero-width) bins yield an all-zero vector rather than a
// division fault.
func (b GroupBins) Weights() []float64 {
	dist := distuv.LogNormal{Mu: b.Mu, Sigma: b.Sigma}

	w := make([]float64, len(b.Edges)-1)
	for i := range w {
		lo := dist.CDF(diameterToArea(b.Edges[i]))
		hi := dist.CDF(diameterToArea(b.Edges[i+1]))
		w[i] = hi - lo
	}

	total := floats.Sum(w)
	if total <= 0 {
		return make([]float64, len(w))
	}
	floats.Scale(1/total, w)
	return w
}

// LoadBins reads per-group bin definitions from a CSV with rows of the
// form: group,mu,sigma,edge0,edge1,...  Edges must be ascending and at
// least two per group. Returns groups keyed by name.
func LoadBins(path string) (map[string]GroupBins, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.Comment = '#'
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	bins := make(map[string]GroupBins)
	for i, row := range rows {
		if len(row) < 5 {
			return nil, fmt.Errorf("%s row %d: need group,mu,sigma and at least two edges", path, i+1)
		}
		b := GroupBins{Group: row[0]}
		if b.Mu, err = strconv.ParseFloat(row[1], 64); err != nil {
			return nil, fmt.Errorf("%s row %d: mu: %w", path, i+1, err)
		}
		if b.Sigma, err = strconv.ParseFloat(row[2], 64); err != nil {
			return nil, fmt.Errorf("%s row %d: sigma: %w", path, i+1, err)
		}
		for _, cell := range row[3:] {
			e, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: edge: %w", path, i+1, err)
			}
			b.Edges = append(b.Edges, e)
		}
		if !sort.Float64sAreSorted(b.Edges) {
			return nil, fmt.Errorf("%s row %d: edges must be ascending", path, i+1)
		}
		if _, dup := bins[b.Group]; dup {
			return nil, fmt.Errorf("%s: duplicate group %q", path, b.Group)
		}
		bins[b.Group] = b
	}
	return bins, nil
}
