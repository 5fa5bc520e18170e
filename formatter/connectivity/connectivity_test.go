package connectivity

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reefworks/domaingen/formatter"
	"github.com/reefworks/domaingen/geoio"
)

func TestReorderPermutation(t *testing.T) {
	perm, err := ReorderPermutation([]string{"b", "c", "a"}, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 1}, perm)

	t.Run("missing canonical id", func(t *testing.T) {
		_, err := ReorderPermutation([]string{"a"}, []string{"a", "z"})
		assert.Error(t, err)
	})

	t.Run("duplicate source id", func(t *testing.T) {
		_, err := ReorderPermutation([]string{"a", "a"}, []string{"a"})
		assert.Error(t, err)
	})
}

func TestReindex(t *testing.T) {
	m := [][]float64{
		{11, 12, 13},
		{21, 22, 23},
		{31, 32, 33},
	}
	// Canonical order picks source rows 2, 0, 1.
	got := Reindex(m, []int{2, 0, 1})
	assert.Equal(t, [][]float64{
		{33, 31, 32},
		{13, 11, 12},
		{23, 21, 22},
	}, got)
}

func TestReadMatrixRejectsNonSquare(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.csv")
	require.NoError(t, os.WriteFile(path, []byte("1,2\n3,4\n5,6\n"), 0o644))
	_, err := ReadMatrix(path)
	assert.Error(t, err)
}

func TestReadIDList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.csv")
	require.NoError(t, os.WriteFile(path, []byte("# id list\nR1\nR2\nR3\n"), 0o644))
	ids, err := ReadIDList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "R2", "R3"}, ids)
}

type dirResolver map[string]string

func (r dirResolver) Resolve(_ context.Context, name string) (string, error) {
	dir, ok := r[name]
	if !ok {
		return "", fmt.Errorf("unknown source %q", name)
	}
	return dir, nil
}

func TestFormatAlignsMatrices(t *testing.T) {
	srcDir := t.TempDir()
	conDir := filepath.Join(srcDir, "data_files", "con_csv")
	idDir := filepath.Join(srcDir, "data_files", "id")
	require.NoError(t, os.MkdirAll(conDir, 0o755))
	require.NoError(t, os.MkdirAll(idDir, 0o755))

	// Source ordering: R2, R1. Canonical ordering below: R1, R2.
	require.NoError(t, os.WriteFile(
		filepath.Join(conDir, "CONNECT_ACRO_2015.csv"), []byte("0.5,0.1\n0.2,0.6\n"), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(idDir, "id_list_2015.csv"), []byte("R2\nR1\n"), 0o644))

	spatialDir := t.TempDir()
	canonical := &geoio.Dataset{Features: []*geoio.Feature{
		{Properties: map[string]any{"RME_GBRMPA_ID": "R1", "UNIQUE_ID": "1001"}},
		{Properties: map[string]any{"RME_GBRMPA_ID": "R2", "UNIQUE_ID": "1002"}},
	}}
	require.NoError(t, geoio.Save(filepath.Join(spatialDir, "canonical.geojson"), canonical))

	destDir := filepath.Join(t.TempDir(), "connectivity")
	reg := Registration()
	opts, err := reg.Schema.Apply(map[string]any{"spatial_source": "canonical"})
	require.NoError(t, err)

	req := &formatter.Request{
		SourceDir: srcDir,
		DestPath:  destDir,
		Options:   opts,
		Resolver:  dirResolver{"canonical": spatialDir},
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	require.NoError(t, reg.New().Format(context.Background(), req))

	data, err := os.ReadFile(filepath.Join(destDir, "CONNECT_ACRO_2015.csv"))
	require.NoError(t, err)
	// R1 was source row 1 (0.6 self), R2 source row 0 (0.5 self); the
	// reordered matrix leads with R1 labelled by its UNIQUE_ID.
	assert.Equal(t, ",1001,1002\n1001,0.6,0.2\n1002,0.1,0.5\n", string(data))
}

func TestFormatNoMatricesFound(t *testing.T) {
	reg := Registration()
	opts, err := reg.Schema.Apply(map[string]any{"spatial_source": "canonical"})
	require.NoError(t, err)

	req := &formatter.Request{
		SourceDir: t.TempDir(),
		DestPath:  filepath.Join(t.TempDir(), "out"),
		Options:   opts,
		Resolver:  dirResolver{},
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	assert.Error(t, reg.New().Format(context.Background(), req))
}
