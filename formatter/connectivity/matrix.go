// Package connectivity aligns larval-connectivity matrices from reef-engine
// runs with the canonical location ordering.
package connectivity

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReorderPermutation maps the canonical ordering onto positions in the
// source ordering: result[i] is the source index holding canonical ID i.
// Every canonical ID must appear in the source list.
func ReorderPermutation(source, canonical []string) ([]int, error) {
	idx := make(map[string]int, len(source))
	for i, id := range source {
		if _, dup := idx[id]; dup {
			return nil, fmt.Errorf("duplicate source location id %q", id)
		}
		idx[id] = i
	}

	perm := make([]int, len(canonical))
	for i, id := range canonical {
		j, ok := idx[id]
		if !ok {
			return nil, fmt.Errorf("canonical location %q missing from source id list", id)
		}
		perm[i] = j
	}
	return perm, nil
}

// Reindex applies a permutation to both axes of a square matrix.
func Reindex(m [][]float64, perm []int) [][]float64 {
	out := make([][]float64, len(perm))
	for i, si := range perm {
		row := make([]float64, len(perm))
		for j, sj := range perm {
			row[j] = m[si][sj]
		}
		out[i] = row
	}
	return out
}

// ReadMatrix reads a headerless square CSV matrix. '#' lines are comments.
func ReadMatrix(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(rows) {
			return nil, fmt.Errorf("%s: row %d has %d columns for %d rows, matrix must be square", path, i+1, len(row), len(rows))
		}
		m[i] = make([]float64, len(row))
		for j, cell := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d col %d: %w", path, i+1, j+1, err)
			}
			m[i][j] = v
		}
	}
	return m, nil
}

// WriteMatrix writes a labelled square matrix: a header row of location
// IDs, and each data row prefixed with its location ID.
func WriteMatrix(path string, ids []string, m [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{""}, ids...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, row := range m {
		rec := make([]string, 0, len(row)+1)
		rec = append(rec, ids[i])
		for _, v := range row {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadIDList reads a single-column CSV of location IDs, skipping '#'
// comment lines.
func ReadIDList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		ids = append(ids, strings.TrimSpace(row[0]))
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: empty id list", path)
	}
	return ids, nil
}
