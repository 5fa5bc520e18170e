package cyclones

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"

	"github.com/reefworks/domaingen/formatter"
	"github.com/reefworks/domaingen/geoio"
	"github.com/reefworks/domaingen/ncio"
	"github.com/reefworks/domaingen/spatial"
)

// groupNames are the coral-group slots of the output cube. The branching
// slot uses the shallow or deep curve depending on each location's depth.
var groupNames = []string{"branching", "massive"}

// Formatter implements the cyclone_mortality output kind.
type Formatter struct{}

// Registration describes the formatter for the registry.
func Registration() formatter.Registration {
	return formatter.Registration{
		Name:        "cyclone_mortality",
		Description: "Fit windspeed-mortality curves and project cyclone scenarios onto locations",
		Schema: formatter.Schema{
			{Name: "spatial_source", Type: formatter.TypeString, Required: true,
				Description: "Key of the canonical spatial source supplying location depths"},
			{Name: "obs_pattern", Type: formatter.TypeString, Default: "**/cyclone_observations.csv",
				Description: "Pattern locating the empirical observation CSV"},
			{Name: "scenario_pattern", Type: formatter.TypeString, Default: "**/cyclone_scenarios.nc",
				Description: "Pattern locating the categorical scenario cube"},
			{Name: "depth_threshold", Type: formatter.TypeFloat, Default: 5.0,
				Description: "Depth in metres separating shallow from deep branching strata"},
		},
		Resource: formatter.Resource{
			Description: "Per-location cyclone mortality projections by timestep, group and scenario.",
			Format:      "netcdf",
		},
		New: func() formatter.Formatter { return &Formatter{} },
	}
}

// Format fits the mortality curves and writes the projected mortality cube.
func (f *Formatter) Format(ctx context.Context, req *formatter.Request) error {
	obsPath, err := formatter.FindOne(req.SourceDir, req.Options.String("obs_pattern"))
	if err != nil {
		return err
	}
	obs, err := loadObservations(obsPath)
	if err != nil {
		return err
	}

	threshold := req.Options.Float("depth_threshold")
	curves, err := FitAll(obs, threshold)
	if err != nil {
		return err
	}

	scenPath, err := formatter.FindOne(req.SourceDir, req.Options.String("scenario_pattern"))
	if err != nil {
		return err
	}
	scen, err := loadScenarios(scenPath)
	if err != nil {
		return err
	}

	spatialDir, err := req.Resolver.Resolve(ctx, req.Options.String("spatial_source"))
	if err != nil {
		return err
	}
	depths, err := locationDepths(spatialDir)
	if err != nil {
		return err
	}

	cube, err := project(scen, curves, depths, threshold)
	if err != nil {
		return err
	}

	req.Logger.Info("Projected cyclone mortality",
		slog.Int("observations", len(obs)),
		slog.Int("timesteps", scen.timesteps),
		slog.Int("locations", len(scen.locations)),
		slog.Int("scenarios", scen.scenarios))

	return writeMortality(req.DestPath, scen, cube)
}

// scenarioCube is a categorical cyclone cube read from the source dataset,
// indexed (timestep, scenario, location).
type scenarioCube struct {
	timesteps  int
	scenarios  int
	locations  []int32
	categories []int32
}

func (s *scenarioCube) at(t, r, l int) int {
	return int(s.categories[(t*s.scenarios+r)*len(s.locations)+l])
}

func loadScenarios(path string) (*scenarioCube, error) {
	f, err := ncio.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cats, err := f.Int("cyclone_category")
	if err != nil {
		return nil, err
	}
	dims := f.Lengths("cyclone_category")
	if len(dims) != 3 {
		return nil, fmt.Errorf("%s: cyclone_category must be (timesteps, scenarios, locations), got %d dims", path, len(dims))
	}
	locs, err := f.Int("locations")
	if err != nil {
		return nil, err
	}
	if len(locs) != dims[2] {
		return nil, fmt.Errorf("%s: %d location ids for %d location columns", path, len(locs), dims[2])
	}
	return &scenarioCube{
		timesteps:  dims[0],
		scenarios:  dims[1],
		locations:  locs,
		categories: cats,
	}, nil
}

// locationDepths reads per-location depth from the canonical spatial
// dataset, keyed by numeric unique ID.
func locationDepths(dir string) (map[int32]float64, error) {
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
	depths := make(map[int32]float64, len(units))
	for i, id := range ncio.IntIDs(ids) {
		depths[id] = units[i].Depth
	}
	return depths, nil
}

// project applies the fitted curves to every cube cell. The output is
// indexed (timestep, location, group, scenario).
func project(scen *scenarioCube, curves map[Stratum]Curve, depths map[int32]float64, threshold float64) (*sparse.DenseArray, error) {
	// Categories repeat heavily, so resolve each one's windspeed once.
	speeds := make(map[int]float64)

	branching := make([]Curve, len(scen.locations))
	for l, id := range scen.locations {
		depth, ok := depths[id]
		if !ok {
			return nil, fmt.Errorf("scenario location %d not in spatial dataset", id)
		}
		branching[l] = curves[Classify("branching", depth, threshold)]
	}
	massive := curves[Massive]

	out := sparse.ZerosDense(scen.timesteps, len(scen.locations), len(groupNames), scen.scenarios)
	for t := 0; t < scen.timesteps; t++ {
		for r := 0; r < scen.scenarios; r++ {
			for l := range scen.locations {
				cat := scen.at(t, r, l)
				speed, ok := speeds[cat]
				if !ok {
					var err error
					if speed, err = CategoryWindspeed(cat); err != nil {
						return nil, err
					}
					speeds[cat] = speed
				}
				out.Set(branching[l].Predict(speed), t, l, 0, r)
				out.Set(massive.Predict(speed), t, l, 1, r)
			}
		}
	}
	return out, nil
}

func writeMortality(dest string, scen *scenarioCube, cube *sparse.DenseArray) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return ncio.NewBuilder().
		AddDim("timesteps", scen.timesteps).
		AddDim("locations", len(scen.locations)).
		AddDim("groups", len(groupNames)).
		AddDim("scenarios", scen.scenarios).
		AddGlobalAttr("title", "cyclone mortality projections").
		AddGlobalAttr("group_names", strings.Join(groupNames, ",")).
		AddFloat(ncio.FloatVar{
			Name:        "mortality",
			Dims:        []string{"timesteps", "locations", "groups", "scenarios"},
			Description: "predicted mortality fraction",
			Units:       "1",
			Data:        cube,
		}).
		AddInt(ncio.IntVar{
			Name:        "locations",
			Dims:        []string{"locations"},
			Description: "canonical location unique id",
			Data:        scen.locations,
		}).
		Write(dest)
}

// loadObservations reads empirical impact records from a CSV with columns
// morphology,depth,windspeed,cover_change. A header row is skipped.
func loadObservations(path string) ([]Observation, error) {
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

	var obs []Observation
	for i, row := range rows {
		if len(row) != 4 {
			return nil, fmt.Errorf("%s row %d: expected morphology,depth,windspeed,cover_change", path, i+1)
		}
		depth, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			if i == 0 {
				continue // header
			}
			return nil, fmt.Errorf("%s row %d: depth: %w", path, i+1, err)
		}
		speed, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: windspeed: %w", path, i+1, err)
		}
		change, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: cover_change: %w", path, i+1, err)
		}
		obs = append(obs, Observation{
			Morphology:  strings.TrimSpace(row[0]),
			Depth:       depth,
			Windspeed:   speed,
			CoverChange: change,
		})
	}
	return obs, nil
}
