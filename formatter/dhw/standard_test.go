package dhw

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reefworks/domaingen/formatter"
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

// writeModelFile writes one per-model DHW projection covering 2020-2029
// for two locations, with every DHW value set to base + year offset.
func writeModelFile(t *testing.T, path string, base float64, ids []int32) {
	t.Helper()

	nYears := 10
	days := sparse.ZerosDense(nYears)
	for i := 0; i < nYears; i++ {
		days.Elements[i] = float64((2020 - refYear + i) * 365)
	}

	dhw := sparse.ZerosDense(len(ids), nYears)
	for l := range ids {
		for y := 0; y < nYears; y++ {
			dhw.Set(base+float64(y), l, y)
		}
	}

	coords := sparse.ZerosDense(len(ids))
	for i := range ids {
		coords.Elements[i] = float64(140 + i)
	}

	err := ncio.NewBuilder().
		AddDim("locations", len(ids)).
		AddDim("time", nYears).
		AddFloat(ncio.FloatVar{Name: "lon_reef", Dims: []string{"locations"}, Data: coords}).
		AddFloat(ncio.FloatVar{Name: "lat_reef", Dims: []string{"locations"}, Data: coords}).
		AddFloat(ncio.FloatVar{Name: "time", Dims: []string{"time"}, Data: days}).
		AddFloat(ncio.FloatVar{Name: "dhw_max", Dims: []string{"locations", "time"}, Data: dhw}).
		AddInt(ncio.IntVar{Name: "UNIQUE_ID", Dims: []string{"locations"}, Data: ids}).
		Write(path)
	require.NoError(t, err)
}

func standardRequest(t *testing.T, srcDir, destDir, timeframe string) *formatter.Request {
	t.Helper()
	reg := StandardRegistration()
	opts, err := reg.Schema.Apply(map[string]any{"rcps": "4.5", "timeframe": timeframe})
	require.NoError(t, err)
	return &formatter.Request{
		SourceDir: srcDir,
		DestPath:  destDir,
		Options:   opts,
		Resolver:  dirResolver{},
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
}

func TestStandardFormatMergesModels(t *testing.T) {
	srcDir := t.TempDir()
	ids := []int32{1001, 1002}
	writeModelFile(t, filepath.Join(srcDir, "GCM1_ssp245.nc"), 1, ids)
	writeModelFile(t, filepath.Join(srcDir, "GCM2_ssp245.nc"), 5, ids)

	destDir := filepath.Join(t.TempDir(), "DHWs")
	req := standardRequest(t, srcDir, destDir, "2022 2025")
	require.NoError(t, StandardRegistration().New().Format(context.Background(), req))

	f, err := ncio.Open(filepath.Join(destDir, "dhwRCP45.nc"))
	require.NoError(t, err)
	defer f.Close()

	cube, err := f.Float("dhw")
	require.NoError(t, err)
	require.Equal(t, []int{2, 2, 4}, cube.Shape)

	// Model 0 wrote base 1; 2022 is year offset 2 within the file.
	assert.InDelta(t, 3, cube.Get(0, 0, 0), 1e-12)
	// Model 1, last selected year 2025 (offset 5).
	assert.InDelta(t, 10, cube.Get(1, 1, 3), 1e-12)

	years, err := f.Int("timesteps")
	require.NoError(t, err)
	assert.Equal(t, []int32{2022, 2023, 2024, 2025}, years)

	gotIDs, err := f.Int("UNIQUE_ID")
	require.NoError(t, err)
	assert.Equal(t, ids, gotIDs)
}

func TestStandardFormatAppendsReadmeAppendix(t *testing.T) {
	srcDir := t.TempDir()
	ids := []int32{1001, 1002}
	writeModelFile(t, filepath.Join(srcDir, "GCM1_ssp245.nc"), 1, ids)
	writeModelFile(t, filepath.Join(srcDir, "GCM2_ssp245.nc"), 5, ids)

	pkgDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(pkgDir, "README.md"), []byte("# Moore domain package\n"), 0o644))

	req := standardRequest(t, srcDir, filepath.Join(pkgDir, "DHWs"), "2022 2025")
	req.PackageDir = pkgDir
	require.NoError(t, StandardRegistration().New().Format(context.Background(), req))

	readme, err := os.ReadFile(filepath.Join(pkgDir, "README.md"))
	require.NoError(t, err)
	got := string(readme)
	assert.Contains(t, got, "# Moore domain package")
	assert.Contains(t, got, "## DHW Climate Models")
	assert.Contains(t, got, "RCP 4.5 (dhwRCP45.nc)")
	assert.Contains(t, got, "- GCM1_ssp245.nc")
	assert.Contains(t, got, "- GCM2_ssp245.nc")
}

func TestStandardFormatRejectsDisagreeingLocations(t *testing.T) {
	srcDir := t.TempDir()
	writeModelFile(t, filepath.Join(srcDir, "GCM1_ssp245.nc"), 1, []int32{1001, 1002})
	writeModelFile(t, filepath.Join(srcDir, "GCM2_ssp245.nc"), 5, []int32{1001, 9999})

	req := standardRequest(t, srcDir, filepath.Join(t.TempDir(), "DHWs"), "2022 2025")
	err := StandardRegistration().New().Format(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE_ID")
}

func TestStandardFormatTimeframeOutsideFile(t *testing.T) {
	srcDir := t.TempDir()
	writeModelFile(t, filepath.Join(srcDir, "GCM1_ssp245.nc"), 1, []int32{1001})

	req := standardRequest(t, srcDir, filepath.Join(t.TempDir(), "DHWs"), "2025 2099")
	assert.Error(t, StandardRegistration().New().Format(context.Background(), req))
}

func TestStandardFormatNoFiles(t *testing.T) {
	req := standardRequest(t, t.TempDir(), filepath.Join(t.TempDir(), "DHWs"), "2022 2025")
	assert.Error(t, StandardRegistration().New().Format(context.Background(), req))
}
