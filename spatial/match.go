package spatial

import (
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// NoMatch marks a fine unit that belongs to no coarse unit. Such units are
// excluded from allocation.
const NoMatch = -1

type indexedPoly struct {
	geom.Polygonal
	idx int
}

// Match assigns each fine unit to the index of its containing coarse unit.
// Identifier matching is preferred and exact: a fine unit whose Parent
// names a coarse unit's ID belongs to that unit. Units without a usable
// identifier link fall back to geometric containment against an r-tree of
// the coarse polygons.
func Match(coarse, fine []Unit) []int {
	byID := make(map[string]int, len(coarse))
	for i, c := range coarse {
		byID[c.ID] = i
	}

	var tree *rtree.Rtree
	assignment := make([]int, len(fine))
	for i, f := range fine {
		if f.Parent != "" {
			if ci, ok := byID[f.Parent]; ok {
				assignment[i] = ci
				continue
			}
		}

		if tree == nil {
			tree = buildTree(coarse)
		}
		assignment[i] = containment(tree, f)
	}
	return assignment
}

func buildTree(coarse []Unit) *rtree.Rtree {
	tree := rtree.NewTree(25, 50)
	for i, c := range coarse {
		poly, ok := c.Geom.(geom.Polygonal)
		if !ok {
			continue
		}
		tree.Insert(indexedPoly{Polygonal: poly, idx: i})
	}
	return tree
}

// containment finds the coarse polygon containing the fine unit. Point
// geometries use point-in-polygon; polygonal geometries use intersection
// with the largest overlap winning.
func containment(tree *rtree.Rtree, f Unit) int {
	switch g := f.Geom.(type) {
	case geom.Point:
		for _, item := range tree.SearchIntersect(g.Bounds()) {
			cand := item.(indexedPoly)
			if w := g.Within(cand.Polygonal); w == geom.Inside || w == geom.OnEdge {
				return cand.idx
			}
		}
	case geom.Polygonal:
		best, bestArea := NoMatch, 0.0
		for _, item := range tree.SearchIntersect(g.Bounds()) {
			cand := item.(indexedPoly)
			isect := g.Intersection(cand.Polygonal)
			if isect == nil {
				continue
			}
			if a := isect.Area(); a > bestArea {
				best, bestArea = cand.idx, a
			}
		}
		return best
	}
	return NoMatch
}
