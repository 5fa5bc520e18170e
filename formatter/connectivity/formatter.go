package connectivity

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/reefworks/domaingen/formatter"
	"github.com/reefworks/domaingen/geoio"
)

// Formatter implements the rme_connectivity output kind.
type Formatter struct{}

// Registration describes the formatter for the registry.
func Registration() formatter.Registration {
	return formatter.Registration{
		Name:        "rme_connectivity",
		Description: "Align reef-engine connectivity matrices with canonical location IDs",
		Schema: formatter.Schema{
			{Name: "spatial_source", Type: formatter.TypeString, Required: true,
				Description: "Key of the canonical spatial source"},
			{Name: "connectivity_pattern", Type: formatter.TypeString, Default: "**/data_files/con_csv/CONNECT_ACRO*.csv",
				Description: "Pattern locating the connectivity CSVs"},
			{Name: "id_list_pattern", Type: formatter.TypeString, Default: "**/data_files/id/id_list_*.csv",
				Description: "Pattern locating the source location id list"},
			{Name: "source_id_col", Type: formatter.TypeString, Default: "RME_GBRMPA_ID",
				Description: "Canonical column carrying the source ordering's identifiers"},
			{Name: "out_id_col", Type: formatter.TypeString, Default: "UNIQUE_ID",
				Description: "Canonical column used to label output rows and columns"},
		},
		Resource: formatter.Resource{
			Description: "Connectivity matrices reordered to the canonical location ordering.",
			Format:      "csv",
		},
		New: func() formatter.Formatter { return &Formatter{} },
	}
}

// Format reorders every connectivity matrix in the source dataset to the
// canonical location ordering. DestPath is a directory; each matrix keeps
// its original file name.
func (f *Formatter) Format(ctx context.Context, req *formatter.Request) error {
	conFiles, err := formatter.FindFiles(req.SourceDir, req.Options.String("connectivity_pattern"))
	if err != nil {
		return err
	}
	if len(conFiles) == 0 {
		return fmt.Errorf("no connectivity CSVs matching %q in %s",
			req.Options.String("connectivity_pattern"), req.SourceDir)
	}

	idPath, err := formatter.FindOne(req.SourceDir, req.Options.String("id_list_pattern"))
	if err != nil {
		return err
	}
	sourceIDs, err := ReadIDList(idPath)
	if err != nil {
		return err
	}

	spatialDir, err := req.Resolver.Resolve(ctx, req.Options.String("spatial_source"))
	if err != nil {
		return err
	}
	canonicalIDs, outIDs, err := canonicalOrdering(spatialDir,
		req.Options.String("source_id_col"), req.Options.String("out_id_col"))
	if err != nil {
		return err
	}

	perm, err := ReorderPermutation(sourceIDs, canonicalIDs)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(req.DestPath, 0o755); err != nil {
		return err
	}
	for _, conFn := range conFiles {
		m, err := ReadMatrix(conFn)
		if err != nil {
			return err
		}
		if len(m) != len(sourceIDs) {
			return fmt.Errorf("%s: %d rows for %d source ids", conFn, len(m), len(sourceIDs))
		}

		outFn := filepath.Join(req.DestPath, filepath.Base(conFn))
		if err := WriteMatrix(outFn, outIDs, Reindex(m, perm)); err != nil {
			return err
		}
		req.Logger.Info("Reordered connectivity matrix",
			slog.String("file", filepath.Base(conFn)),
			slog.Int("locations", len(outIDs)))
	}
	return nil
}

// canonicalOrdering reads the canonical dataset's source-side and
// output-side identifier columns, in feature order.
func canonicalOrdering(dir, sourceCol, outCol string) (sourceIDs, outIDs []string, err error) {
	path, err := formatter.FindOne(dir, "**/*.geojson")
	if err != nil {
		return nil, nil, err
	}
	ds, err := geoio.Load(path)
	if err != nil {
		return nil, nil, err
	}

	for i, feat := range ds.Features {
		src := feat.String(sourceCol)
		out := feat.String(outCol)
		if src == "" || out == "" {
			return nil, nil, fmt.Errorf("canonical feature %d: missing %q or %q", i, sourceCol, outCol)
		}
		sourceIDs = append(sourceIDs, src)
		outIDs = append(outIDs, out)
	}
	if len(sourceIDs) == 0 {
		return nil, nil, fmt.Errorf("canonical dataset %s has no features", path)
	}
	return sourceIDs, outIDs, nil
}
