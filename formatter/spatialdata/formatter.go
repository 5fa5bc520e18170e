// Package spatialdata copies the canonical spatial dataset into the domain
// package, tagging every location with a sequential cluster id.
package spatialdata

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/reefworks/domaingen/formatter"
	"github.com/reefworks/domaingen/geoio"
)

// Formatter implements the spatial_data output kind.
type Formatter struct{}

// Registration describes the formatter for the registry.
func Registration() formatter.Registration {
	return formatter.Registration{
		Name:        "spatial_data",
		Description: "Emit the canonical spatial dataset with sequential cluster ids",
		Schema: formatter.Schema{
			{Name: "pattern", Type: formatter.TypeString, Default: "**/*.geojson",
				Description: "Pattern locating the vector dataset in the source"},
			{Name: "cluster_id_col", Type: formatter.TypeString, Default: "cluster_id",
				Description: "Attribute name for the assigned cluster id"},
		},
		Resource: formatter.Resource{
			Description: "Canonical spatial dataset for the domain.",
			Format:      "geojson",
		},
		New: func() formatter.Formatter { return &Formatter{} },
	}
}

// Format loads the vector dataset, assigns a 1-based cluster id per
// feature in order, and writes the result to the destination.
func (f *Formatter) Format(ctx context.Context, req *formatter.Request) error {
	path, err := formatter.FindOne(req.SourceDir, req.Options.String("pattern"))
	if err != nil {
		return err
	}
	ds, err := geoio.Load(path)
	if err != nil {
		return err
	}

	col := req.Options.String("cluster_id_col")
	for i, feat := range ds.Features {
		feat.Properties[col] = i + 1
	}

	if err := os.MkdirAll(filepath.Dir(req.DestPath), 0o755); err != nil {
		return err
	}
	if err := geoio.Save(req.DestPath, ds); err != nil {
		return err
	}
	req.Logger.Info("Wrote spatial dataset",
		slog.Int("features", ds.Len()),
		slog.String("dest", filepath.Base(req.DestPath)))
	return nil
}
