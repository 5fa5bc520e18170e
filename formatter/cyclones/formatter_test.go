package cyclones

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reefworks/domaingen/formatter"
	"github.com/reefworks/domaingen/geoio"
	"github.com/reefworks/domaingen/ncio"
)

type dirResolver map[string]string

func (r dirResolver) Resolve(_ context.Context, name string) (string, error) {
	dir, ok := r[name]
	if !ok {
		return "", fmt.Errorf("unknown source %q", name)
	}
	return dir, nil
}

const obsCSV = `morphology,depth,windspeed,cover_change
branching,-2,20,-10
branching,-3,60,-60
branching,-15,20,-5
branching,-20,60,-30
massive,-2,20,-2
massive,-20,60,-20
`

func writeCycloneSource(t *testing.T, categories []int32) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "cyclone_observations.csv"), []byte(obsCSV), 0o644))

	// 2 timesteps x 1 scenario x 2 locations.
	err := ncio.NewBuilder().
		AddDim("timesteps", 2).
		AddDim("scenarios", 1).
		AddDim("locations", 2).
		AddInt(ncio.IntVar{
			Name: "cyclone_category",
			Dims: []string{"timesteps", "scenarios", "locations"},
			Data: categories,
		}).
		AddInt(ncio.IntVar{
			Name: "locations",
			Dims: []string{"locations"},
			Data: []int32{1, 2},
		}).
		Write(filepath.Join(dir, "cyclone_scenarios.nc"))
	require.NoError(t, err)
	return dir
}

func writeDepthSource(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	locs := &geoio.Dataset{Features: []*geoio.Feature{
		{
			Geometry:   geom.Point{X: 0, Y: 0},
			Properties: map[string]any{"UNIQUE_ID": "1", "depth_med": -3.0},
		},
		{
			Geometry:   geom.Point{X: 1, Y: 1},
			Properties: map[string]any{"UNIQUE_ID": "2", "depth_med": -20.0},
		},
	}}
	require.NoError(t, geoio.Save(filepath.Join(dir, "canonical.geojson"), locs))
	return dir
}

func newRequest(t *testing.T, srcDir, dest string) *formatter.Request {
	t.Helper()
	reg := Registration()
	opts, err := reg.Schema.Apply(map[string]any{"spatial_source": "canonical"})
	require.NoError(t, err)
	return &formatter.Request{
		SourceDir: srcDir,
		DestPath:  dest,
		Options:   opts,
		Resolver:  dirResolver{"canonical": writeDepthSource(t)},
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
}

func TestFormatProjectsMortality(t *testing.T) {
	// Timestep 0: no cyclone anywhere. Timestep 1: category 4 at both
	// locations.
	srcDir := writeCycloneSource(t, []int32{0, 0, 4, 4})
	dest := filepath.Join(t.TempDir(), "cyclone_mortality.nc")

	req := newRequest(t, srcDir, dest)
	require.NoError(t, Registration().New().Format(context.Background(), req))

	f, err := ncio.Open(dest)
	require.NoError(t, err)
	defer f.Close()

	cube, err := f.Float("mortality")
	require.NoError(t, err)
	require.Equal(t, []int{2, 2, 2, 1}, cube.Shape)

	for l := 0; l < 2; l++ {
		for g := 0; g < 2; g++ {
			m := cube.Get(1, l, g, 0)
			assert.Greater(t, m, 0.0)
			assert.LessOrEqual(t, m, 1.0)
		}
	}

	// A category-4 storm kills more than no storm.
	assert.Greater(t, cube.Get(1, 0, 0, 0), cube.Get(0, 0, 0, 0))

	assert.Equal(t, "branching,massive", f.Attr("", "group_names"))
}

func TestFormatUnknownCategory(t *testing.T) {
	srcDir := writeCycloneSource(t, []int32{0, 0, 9, 0})
	req := newRequest(t, srcDir, filepath.Join(t.TempDir(), "out.nc"))

	err := Registration().New().Format(context.Background(), req)
	require.Error(t, err)
	var catErr *formatter.UnknownCategoryError
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, 9, catErr.Value)
}

func TestFormatLocationMissingFromSpatial(t *testing.T) {
	srcDir := writeCycloneSource(t, []int32{0, 0, 1, 1})

	// Rewrite the scenario cube with a location the spatial dataset does
	// not carry.
	err := ncio.NewBuilder().
		AddDim("timesteps", 2).
		AddDim("scenarios", 1).
		AddDim("locations", 2).
		AddInt(ncio.IntVar{
			Name: "cyclone_category",
			Dims: []string{"timesteps", "scenarios", "locations"},
			Data: []int32{0, 0, 1, 1},
		}).
		AddInt(ncio.IntVar{
			Name: "locations",
			Dims: []string{"locations"},
			Data: []int32{1, 3},
		}).
		Write(filepath.Join(srcDir, "cyclone_scenarios.nc"))
	require.NoError(t, err)

	req := newRequest(t, srcDir, filepath.Join(t.TempDir(), "out.nc"))
	err = Registration().New().Format(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "location 3")
}

func TestFormatInsufficientObservations(t *testing.T) {
	srcDir := writeCycloneSource(t, []int32{0, 0, 1, 1})
	short := "morphology,depth,windspeed,cover_change\nbranching,-2,20,-10\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(srcDir, "cyclone_observations.csv"), []byte(short), 0o644))

	req := newRequest(t, srcDir, filepath.Join(t.TempDir(), "out.nc"))
	err := Registration().New().Format(context.Background(), req)
	require.Error(t, err)
	var insErr *formatter.InsufficientDataError
	require.ErrorAs(t, err, &insErr)
}

func TestLoadObservations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.csv")
	require.NoError(t, os.WriteFile(path, []byte(obsCSV), 0o644))

	obs, err := loadObservations(path)
	require.NoError(t, err)
	require.Len(t, obs, 6)
	assert.Equal(t, "branching", obs[0].Morphology)
	assert.InDelta(t, -2.0, obs[0].Depth, 1e-12)
	assert.InDelta(t, 0.1, obs[0].Mortality(), 1e-12)
}
