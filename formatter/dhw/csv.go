package dhw

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"

	"github.com/reefworks/domaingen/formatter"
	"github.com/reefworks/domaingen/geoio"
	"github.com/reefworks/domaingen/ncio"
	"github.com/reefworks/domaingen/spatial"
)

// CSVFormatter implements the rme_dhw output kind: reef-engine DHW CSVs,
// one per climate model, grouped by RCP and converted to NetCDF cubes
// aligned with the canonical location ordering.
type CSVFormatter struct{}

// CSVRegistration describes the formatter for the registry.
func CSVRegistration() formatter.Registration {
	return formatter.Registration{
		Name:        "rme_dhw",
		Description: "Group reef-engine DHW CSVs by RCP and convert to canonical NetCDF cubes",
		Schema: formatter.Schema{
			{Name: "spatial_source", Type: formatter.TypeString, Required: true,
				Description: "Key of the canonical spatial source"},
			{Name: "rcps", Type: formatter.TypeString, Default: "2.6 4.5 7.0 8.5",
				Description: "Space-separated RCP labels to process"},
			{Name: "timeframe", Type: formatter.TypeString, Default: "2025 2099",
				Description: "Inclusive year range, \"YYYY YYYY\""},
			{Name: "dhw_csv_pattern", Type: formatter.TypeString, Default: "**/data_files/dhw_csv/*.csv",
				Description: "Pattern locating the per-model DHW CSVs"},
		},
		Resource: formatter.Resource{
			Description: "DHW CSVs grouped by RCP as NetCDF cubes aligned with canonical IDs.",
			Format:      "netcdf",
		},
		New: func() formatter.Formatter { return &CSVFormatter{} },
	}
}

// Format writes one dhwRCP<nn>.nc per requested RCP into the destination
// directory.
func (f *CSVFormatter) Format(ctx context.Context, req *formatter.Request) error {
	tf, err := ParseTimeframe(req.Options.String("timeframe"))
	if err != nil {
		return err
	}

	spatialDir, err := req.Resolver.Resolve(ctx, req.Options.String("spatial_source"))
	if err != nil {
		return err
	}
	canonicalIDs, err := canonicalIDs(spatialDir)
	if err != nil {
		return err
	}

	allCSVs, err := formatter.FindFiles(req.SourceDir, req.Options.String("dhw_csv_pattern"))
	if err != nil {
		return err
	}
	if len(allCSVs) == 0 {
		return fmt.Errorf("no DHW CSVs matching %q in %s",
			req.Options.String("dhw_csv_pattern"), req.SourceDir)
	}
	if err := os.MkdirAll(req.DestPath, 0o755); err != nil {
		return err
	}

	var groups []modelGroup
	for _, rcp := range strings.Fields(req.Options.String("rcps")) {
		files := matchRCP(allCSVs, rcp)
		if len(files) == 0 {
			req.Logger.Warn("No CSV files for RCP", slog.String("rcp", rcp))
			continue
		}

		outPath := filepath.Join(req.DestPath, outputName(rcp))
		if err := convertGroup(files, outPath, tf, canonicalIDs); err != nil {
			return fmt.Errorf("rcp %s: %w", rcp, err)
		}
		req.Logger.Info("Converted DHW group",
			slog.String("rcp", rcp), slog.Int("models", len(files)))
		groups = append(groups, modelGroup{rcp: rcp, files: files})
	}
	if len(groups) == 0 {
		return fmt.Errorf("no DHW outputs produced for rcps %q", req.Options.String("rcps"))
	}
	return appendModelAppendix(req.PackageDir, groups)
}

// matchRCP selects the files whose names carry one of the RCP's scenario
// substrings.
func matchRCP(files []string, rcp string) []string {
	patterns := rcpMatch[rcp]
	seen := make(map[string]bool)
	var out []string
	for _, f := range files {
		name := filepath.Base(f)
		for _, pat := range patterns {
			if strings.Contains(name, pat) && !seen[f] {
				seen[f] = true
				out = append(out, f)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// canonicalIDs reads the canonical location ordering from the spatial
// dataset.
func canonicalIDs(dir string) ([]string, error) {
	path, err := formatter.FindOne(dir, "**/*.geojson")
	if err != nil {
		return nil, err
	}
	ds, err := geoio.Load(path)
	if err != nil {
		return nil, err
	}
	units, err := spatial.UnitsFromDataset(ds, spatial.Columns{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return ids, nil
}

// modelTable is one parsed per-model CSV: DHW by location ID and year.
type modelTable struct {
	rows  map[string][]float64
	years map[int]int
}

// parseModelCSV reads a CSV whose first column is the location ID and
// whose remaining headers are years.
func parseModelCSV(path string) (*modelTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: no data rows", path)
	}

	header := records[0]
	years := make(map[int]int, len(header)-1)
	for i, col := range header[1:] {
		year, err := strconv.Atoi(strings.TrimSpace(col))
		if err != nil {
			return nil, fmt.Errorf("%s: header %q does not appear to be a year", path, col)
		}
		years[year] = i + 1
	}

	rows := make(map[string][]float64, len(records)-1)
	for ri, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("%s row %d: %d columns, header has %d", path, ri+2, len(rec), len(header))
		}
		vals := make([]float64, len(rec))
		for ci, cell := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", path, ri+2, err)
			}
			vals[ci+1] = v
		}
		rows[strings.TrimSpace(rec[0])] = vals
	}
	return &modelTable{rows: rows, years: years}, nil
}

func convertGroup(paths []string, outPath string, tf Timeframe, canonicalIDs []string) error {
	nLocs := len(canonicalIDs)
	nYears := tf.Years()
	cube := sparse.ZerosDense(len(paths), nLocs, nYears)

	for mi, path := range paths {
		table, err := parseModelCSV(path)
		if err != nil {
			return err
		}
		for y := 0; y < nYears; y++ {
			if _, ok := table.years[tf.Start+y]; !ok {
				return fmt.Errorf("%s: year %d missing", path, tf.Start+y)
			}
		}
		for li, id := range canonicalIDs {
			vals, ok := table.rows[id]
			if !ok {
				return fmt.Errorf("%s: canonical location %q missing", path, id)
			}
			for y := 0; y < nYears; y++ {
				cube.Set(vals[table.years[tf.Start+y]], mi, li, y)
			}
		}
	}

	return ncio.NewBuilder().
		AddDim("model", len(paths)).
		AddDim("locations", nLocs).
		AddDim("timesteps", nYears).
		AddGlobalAttr("title", "degree heating week projections").
		AddFloat(ncio.FloatVar{
			Name: "dhw", Dims: []string{"model", "locations", "timesteps"},
			Description: "degree heating week", Units: "DegC-week", Data: cube,
		}).
		AddInt(ncio.IntVar{
			Name: "timesteps", Dims: []string{"timesteps"},
			Description: "year", Units: "year", Data: yearRange(tf),
		}).
		AddInt(ncio.IntVar{
			Name: "UNIQUE_ID", Dims: []string{"locations"},
			Description: "unique id", Data: ncio.IntIDs(canonicalIDs),
		}).
		Write(outPath)
}
