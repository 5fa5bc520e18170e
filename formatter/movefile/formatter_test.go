package movefile

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reefworks/domaingen/formatter"
)

func TestFormatCopiesMatchedFiles(t *testing.T) {
	srcDir := t.TempDir()
	sub := filepath.Join(srcDir, "docs")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.txt"), []byte("beta"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "c.csv"), []byte("gamma"), 0o644))

	destDir := filepath.Join(t.TempDir(), "misc")
	reg := Registration()
	opts, err := reg.Schema.Apply(map[string]any{"pattern": "**/*.txt"})
	require.NoError(t, err)

	req := &formatter.Request{
		SourceDir: srcDir,
		DestPath:  destDir,
		Options:   opts,
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	require.NoError(t, reg.New().Format(context.Background(), req))

	data, err := os.ReadFile(filepath.Join(destDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))

	entries, err := os.ReadDir(destDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFormatNoMatches(t *testing.T) {
	reg := Registration()
	opts, err := reg.Schema.Apply(map[string]any{"pattern": "**/*.nc"})
	require.NoError(t, err)

	req := &formatter.Request{
		SourceDir: t.TempDir(),
		DestPath:  filepath.Join(t.TempDir(), "out"),
		Options:   opts,
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	assert.Error(t, reg.New().Format(context.Background(), req))
}
