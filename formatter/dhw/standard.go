package dhw

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/sparse"

	"github.com/reefworks/domaingen/formatter"
	"github.com/reefworks/domaingen/ncio"
)

// StandardFormatter implements the standard_netcdf_dhw output kind: it
// merges each RCP's per-model projection files into a single cube.
type StandardFormatter struct{}

// StandardRegistration describes the formatter for the registry.
func StandardRegistration() formatter.Registration {
	return formatter.Registration{
		Name:        "standard_netcdf_dhw",
		Description: "Merge per-model NetCDF DHW projections into one cube per RCP",
		Schema: formatter.Schema{
			{Name: "rcps", Type: formatter.TypeString, Default: "2.6 4.5 7.0 8.5",
				Description: "Space-separated RCP labels to process"},
			{Name: "timeframe", Type: formatter.TypeString, Default: "2025 2099",
				Description: "Inclusive year range, \"YYYY YYYY\""},
			{Name: "filename_template", Type: formatter.TypeString, Default: "**/*{ssp}*.nc",
				Description: "Source file pattern; {ssp} expands per RCP"},
		},
		Resource: formatter.Resource{
			Description: "Standardized NetCDF DHW cubes with aligned spatial coordinates.",
			Format:      "netcdf",
		},
		New: func() formatter.Formatter { return &StandardFormatter{} },
	}
}

// Format writes one dhwRCP<nn>.nc per requested RCP into the destination
// directory. An RCP with no matching source files is skipped with a
// warning, matching the permissive behavior expected of partial archives.
func (f *StandardFormatter) Format(ctx context.Context, req *formatter.Request) error {
	tf, err := ParseTimeframe(req.Options.String("timeframe"))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(req.DestPath, 0o755); err != nil {
		return err
	}

	var groups []modelGroup
	for _, rcp := range strings.Fields(req.Options.String("rcps")) {
		ssp, ok := rcpSSP[rcp]
		if !ok {
			req.Logger.Warn("Unknown RCP, skipping", slog.String("rcp", rcp))
			continue
		}
		pattern := strings.ReplaceAll(req.Options.String("filename_template"), "{ssp}", ssp)
		files, err := formatter.FindFiles(req.SourceDir, pattern)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			req.Logger.Warn("No source files for RCP", slog.String("rcp", rcp))
			continue
		}

		outPath := filepath.Join(req.DestPath, outputName(rcp))
		if err := mergeModels(files, outPath, tf); err != nil {
			return fmt.Errorf("rcp %s: %w", rcp, err)
		}
		req.Logger.Info("Merged DHW models",
			slog.String("rcp", rcp), slog.Int("models", len(files)))
		groups = append(groups, modelGroup{rcp: rcp, files: files})
	}
	if len(groups) == 0 {
		return fmt.Errorf("no DHW outputs produced for rcps %q", req.Options.String("rcps"))
	}
	return appendModelAppendix(req.PackageDir, groups)
}

// modelFile is one per-model projection loaded for merging.
type modelFile struct {
	path string
	ids  []int32
	lon  []float64
	lat  []float64
	time []float64
	dhw  *sparse.DenseArray
}

func loadModel(path string) (*modelFile, error) {
	f, err := ncio.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := &modelFile{path: path}
	if m.ids, err = f.Int("UNIQUE_ID"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	lon, err := f.Float("lon_reef")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.lon = lon.Elements
	lat, err := f.Float("lat_reef")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.lat = lat.Elements
	tm, err := f.Float("time")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.time = tm.Elements
	if m.dhw, err = f.Float("dhw_max"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(m.dhw.Shape) != 2 || m.dhw.Shape[0] != len(m.ids) || m.dhw.Shape[1] != len(m.time) {
		return nil, fmt.Errorf("%s: dhw_max shape %v does not match %d locations x %d timesteps",
			path, m.dhw.Shape, len(m.ids), len(m.time))
	}
	return m, nil
}

// validateAgreement checks that every model file shares the first file's
// locations, coordinates and time axis.
func validateAgreement(models []*modelFile) error {
	ref := models[0]
	for _, m := range models[1:] {
		if !int32sEqual(ref.ids, m.ids) {
			return fmt.Errorf("%s and %s have different location UNIQUE_IDs", ref.path, m.path)
		}
		if !floatsEqual(ref.lon, m.lon) || !floatsEqual(ref.lat, m.lat) {
			return fmt.Errorf("%s and %s have different coordinate arrays", ref.path, m.path)
		}
		if !floatsEqual(ref.time, m.time) {
			return fmt.Errorf("%s and %s have different time arrays", ref.path, m.path)
		}
	}
	return nil
}

func mergeModels(paths []string, outPath string, tf Timeframe) error {
	models := make([]*modelFile, len(paths))
	for i, p := range paths {
		m, err := loadModel(p)
		if err != nil {
			return err
		}
		models[i] = m
	}
	if err := validateAgreement(models); err != nil {
		return err
	}

	ref := models[0]
	startIdx, endIdx, err := timeIndex(ref.time, tf)
	if err != nil {
		return err
	}

	nLocs := len(ref.ids)
	nYears := tf.Years()
	cube := sparse.ZerosDense(len(models), nLocs, nYears)
	for mi, m := range models {
		for l := 0; l < nLocs; l++ {
			for y := 0; y <= endIdx-startIdx; y++ {
				cube.Set(m.dhw.Get(l, startIdx+y), mi, l, y)
			}
		}
	}

	lonArr := sparse.ZerosDense(nLocs)
	latArr := sparse.ZerosDense(nLocs)
	copy(lonArr.Elements, ref.lon)
	copy(latArr.Elements, ref.lat)

	return ncio.NewBuilder().
		AddDim("model", len(models)).
		AddDim("locations", nLocs).
		AddDim("timesteps", nYears).
		AddGlobalAttr("title", "degree heating week projections").
		AddFloat(ncio.FloatVar{
			Name: "longitude", Dims: []string{"locations"},
			Description: "longitude", Units: "degrees_east", Data: lonArr,
		}).
		AddFloat(ncio.FloatVar{
			Name: "latitude", Dims: []string{"locations"},
			Description: "latitude", Units: "degrees_north", Data: latArr,
		}).
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
			Description: "unique id", Data: ref.ids,
		}).
		Write(outPath)
}

func int32sEqual(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
