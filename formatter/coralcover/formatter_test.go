package coralcover

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

func square(x, y, side float64) geom.Polygon {
	return geom.Polygon{{
		{X: x, Y: y}, {X: x + side, Y: y},
		{X: x + side, Y: y + side}, {X: x, Y: y + side},
	}}
}

func writeReefSource(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	reefs := &geoio.Dataset{Features: []*geoio.Feature{
		{
			Geometry:   square(0, 0, 10),
			Properties: map[string]any{"LABEL_ID": "A", "k": 0.5, "area_m2": 1000.0},
		},
	}}
	require.NoError(t, geoio.Save(filepath.Join(dir, "reefs.geojson"), reefs))

	cover := "reef_id,functional_group,cover\nA,acropora,0.2\n"
	coverDir := filepath.Join(dir, "data_files", "initial")
	require.NoError(t, os.MkdirAll(coverDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(coverDir, "coral_cover.csv"), []byte(cover), 0o644))

	return dir
}

func writeSpatialSource(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	locs := &geoio.Dataset{Features: []*geoio.Feature{
		{
			Geometry: geom.Point{X: 2, Y: 2},
			Properties: map[string]any{
				"UNIQUE_ID": "1", "ReefMod_habitable_proportion": 0.5,
				"ReefMod_area_m2": 400.0, "RME_GBRMPA_ID": "A",
			},
		},
		{
			Geometry: geom.Point{X: 8, Y: 8},
			Properties: map[string]any{
				"UNIQUE_ID": "2", "ReefMod_habitable_proportion": 0.0,
				"ReefMod_area_m2": 100.0, "RME_GBRMPA_ID": "A",
			},
		},
	}}
	require.NoError(t, geoio.Save(filepath.Join(dir, "canonical.geojson"), locs))
	return dir
}

func TestFormatDownscalesCover(t *testing.T) {
	srcDir := writeReefSource(t)
	spatialDir := writeSpatialSource(t)
	dest := filepath.Join(t.TempDir(), "coral_cover.nc")

	reg := Registration()
	opts, err := reg.Schema.Apply(map[string]any{"spatial_source": "canonical"})
	require.NoError(t, err)

	req := &formatter.Request{
		SourceDir: srcDir,
		DestPath:  dest,
		Options:   opts,
		Resolver:  dirResolver{"canonical": spatialDir},
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	require.NoError(t, reg.New().Format(context.Background(), req))

	f, err := ncio.Open(dest)
	require.NoError(t, err)
	defer f.Close()

	cube, err := f.Float("cover")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, cube.Shape)

	// Location 1 sits inside reef A and has capacity: it receives the
	// reef's cover relative to k-area, 0.2*1000/(0.5*1000) = 0.4.
	assert.InDelta(t, 0.4, cube.Get(0, 0), 1e-9)
	// Location 2 has no capacity and stays at zero.
	assert.Zero(t, cube.Get(0, 1))

	ids, err := f.Int("locations")
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, ids)

	assert.Equal(t, "acropora_1", f.Attr("", "taxa_names"))
}

func TestFormatRejectsOverCapacity(t *testing.T) {
	srcDir := writeReefSource(t)
	coverPath := filepath.Join(srcDir, "data_files", "initial", "coral_cover.csv")
	over := "reef_id,functional_group,cover\nA,acropora,0.6\n"
	require.NoError(t, os.WriteFile(coverPath, []byte(over), 0o644))

	reg := Registration()
	opts, err := reg.Schema.Apply(map[string]any{"spatial_source": "canonical"})
	require.NoError(t, err)

	req := &formatter.Request{
		SourceDir: srcDir,
		DestPath:  filepath.Join(t.TempDir(), "coral_cover.nc"),
		Options:   opts,
		Resolver:  dirResolver{"canonical": writeSpatialSource(t)},
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	err = reg.New().Format(context.Background(), req)
	require.Error(t, err)
	assert.True(t, formatter.IsDataIntegrity(err))
}

func TestFormatMissingCoverFile(t *testing.T) {
	dir := t.TempDir()
	reefs := &geoio.Dataset{Features: []*geoio.Feature{
		{Geometry: square(0, 0, 1), Properties: map[string]any{"LABEL_ID": "A", "k": 0.5, "area_m2": 10.0}},
	}}
	require.NoError(t, geoio.Save(filepath.Join(dir, "reefs.geojson"), reefs))

	reg := Registration()
	opts, err := reg.Schema.Apply(map[string]any{"spatial_source": "canonical"})
	require.NoError(t, err)

	req := &formatter.Request{
		SourceDir: dir,
		DestPath:  filepath.Join(t.TempDir(), "out.nc"),
		Options:   opts,
		Resolver:  dirResolver{},
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	assert.Error(t, reg.New().Format(context.Background(), req))
}

func TestLoadBins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bins.csv")
	data := "# group,mu,sigma,edges...\nacropora,3,1,1,10,100\nmassives,2.5,0.8,5,50\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	bins, err := LoadBins(path)
	require.NoError(t, err)
	require.Len(t, bins, 2)
	assert.Equal(t, []float64{1, 10, 100}, bins["acropora"].Edges)

	t.Run("descending edges rejected", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bins.csv")
		require.NoError(t, os.WriteFile(bad, []byte("acropora,3,1,100,10\n"), 0o644))
		_, err := LoadBins(bad)
		assert.Error(t, err)
	})

	t.Run("duplicate group rejected", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bins.csv")
		require.NoError(t, os.WriteFile(bad, []byte("a,3,1,1,10\na,3,1,1,10\n"), 0o644))
		_, err := LoadBins(bad)
		assert.Error(t, err)
	})
}
