package coralcover

import (
	"fmt"
	"sort"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"

	"github.com/reefworks/domaingen/formatter"
	"github.com/reefworks/domaingen/spatial"
)

// coverTol absorbs floating-point noise in capacity-bound checks.
const coverTol = 1e-6

// CoverRecord is one coarse observation: a reef's cover for one
// functional group, expressed relative to the reef's absolute area.
type CoverRecord struct {
	ReefID string
	Group  string
	Cover  float64
}

// Taxon is one functional-group × size-class slot of the output cube.
type Taxon struct {
	Group     string
	SizeClass int
}

func (t Taxon) String() string {
	return fmt.Sprintf("%s_%d", t.Group, t.SizeClass)
}

// RelativeCover converts absolute reef cover to cover relative to each
// reef's k-area: cover_k = cover_abs * area / (k * area). Reefs with no
// capacity (k*area = 0) are skipped. A reef whose summed relative cover
// exceeds 1 is a data-integrity fault, not clamped.
//
// The returned group list is sorted; rel maps reef ID to a per-group
// vector in that order.
func RelativeCover(reefs []spatial.Unit, records []CoverRecord) ([]string, map[string][]float64, error) {
	byID := make(map[string]*spatial.Unit, len(reefs))
	for i := range reefs {
		byID[reefs[i].ID] = &reefs[i]
	}

	groupSet := make(map[string]bool)
	for _, rec := range records {
		groupSet[rec.Group] = true
	}
	groups := make([]string, 0, len(groupSet))
	for g := range groupSet {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	groupIdx := make(map[string]int, len(groups))
	for i, g := range groups {
		groupIdx[g] = i
	}

	rel := make(map[string][]float64)
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		reef, ok := byID[rec.ReefID]
		if !ok {
			return nil, nil, fmt.Errorf("cover record references unknown reef %q", rec.ReefID)
		}
		key := rec.ReefID + "\x00" + rec.Group
		if seen[key] {
			return nil, nil, fmt.Errorf("duplicate cover record for reef %q group %q", rec.ReefID, rec.Group)
		}
		seen[key] = true

		if !reef.HasCapacity() {
			continue
		}
		v, ok := rel[rec.ReefID]
		if !ok {
			v = make([]float64, len(groups))
			rel[rec.ReefID] = v
		}
		v[groupIdx[rec.Group]] = rec.Cover * reef.Area / reef.KArea()
	}

	for id, v := range rel {
		if total := floats.Sum(v); total > 1+coverTol {
			return nil, nil, &formatter.CapacityError{Unit: id, Total: total, Capacity: 1}
		}
	}
	return groups, rel, nil
}

// SplitSizeClasses expands per-group cover into per-taxon cover using each
// group's colony-size distribution weights. Groups without a bin
// definition keep a single size class with weight 1.
func SplitSizeClasses(groups []string, rel map[string][]float64, bins map[string]GroupBins) ([]Taxon, map[string][]float64) {
	var taxa []Taxon
	weights := make([][]float64, 0, len(groups))
	for _, g := range groups {
		if b, ok := bins[g]; ok {
			w := b.Weights()
			weights = append(weights, w)
			for s := range w {
				taxa = append(taxa, Taxon{Group: g, SizeClass: s + 1})
			}
			continue
		}
		weights = append(weights, []float64{1})
		taxa = append(taxa, Taxon{Group: g, SizeClass: 1})
	}

	out := make(map[string][]float64, len(rel))
	for id, v := range rel {
		split := make([]float64, 0, len(taxa))
		for gi := range groups {
			for _, w := range weights[gi] {
				split = append(split, v[gi]*w)
			}
		}
		out[id] = split
	}
	return taxa, out
}

// Allocate copies each reef's relative cover down onto every contained
// location that has capacity; locations without capacity, and locations
// matched to no reef, stay at zero. Cover density is assumed uniform
// within a reef, so this is a copy-down, not an area-weighted split.
//
// The capacity bound is re-verified per location before returning; a
// violation aborts with a CapacityError instead of producing corrupt
// output.
func Allocate(reefs, locs []spatial.Unit, match []int, taxa []Taxon, rel map[string][]float64) (*sparse.DenseArray, error) {
	if len(match) != len(locs) {
		return nil, fmt.Errorf("match vector length %d does not cover %d locations", len(match), len(locs))
	}

	cube := sparse.ZerosDense(len(taxa), len(locs))
	for li := range locs {
		ri := match[li]
		if ri == spatial.NoMatch || !locs[li].HasCapacity() {
			continue
		}
		v, ok := rel[reefs[ri].ID]
		if !ok {
			continue
		}
		for ti, c := range v {
			cube.Set(c, ti, li)
		}

		if total := floats.Sum(v); total > 1+coverTol {
			return nil, &formatter.CapacityError{
				Unit:     locs[li].ID,
				Total:    total * locs[li].KArea(),
				Capacity: locs[li].KArea(),
			}
		}
	}
	return cube, nil
}
