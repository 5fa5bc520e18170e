// Package coralcover downscales coarse reef-level coral cover onto the
// fine locations of the canonical spatial dataset, preserving total-mass
// and carrying-capacity invariants.
package coralcover

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

// Formatter implements the gbr_icc output kind.
type Formatter struct{}

// Registration describes the formatter for the registry.
func Registration() formatter.Registration {
	return formatter.Registration{
		Name:        "gbr_icc",
		Description: "Downscale reef-level initial coral cover onto canonical locations",
		Schema: formatter.Schema{
			{Name: "spatial_source", Type: formatter.TypeString, Required: true,
				Description: "Key of the canonical spatial source"},
			{Name: "reef_pattern", Type: formatter.TypeString, Default: "**/reefs.geojson",
				Description: "Pattern locating the coarse reef dataset in the primary source"},
			{Name: "cover_pattern", Type: formatter.TypeString, Default: "**/data_files/initial/coral_cover.csv",
				Description: "Pattern locating the reef cover CSV in the primary source"},
			{Name: "bins_pattern", Type: formatter.TypeString, Default: "**/size_class_bins.csv",
				Description: "Pattern locating the colony size-class bin CSV; splitting is skipped when absent"},
			{Name: "reef_id_col", Type: formatter.TypeString, Default: "LABEL_ID"},
			{Name: "reef_k_col", Type: formatter.TypeString, Default: "k"},
			{Name: "reef_area_col", Type: formatter.TypeString, Default: "area_m2"},
			{Name: "loc_id_col", Type: formatter.TypeString, Default: "UNIQUE_ID"},
			{Name: "loc_k_col", Type: formatter.TypeString, Default: "ReefMod_habitable_proportion"},
			{Name: "loc_area_col", Type: formatter.TypeString, Default: "ReefMod_area_m2"},
			{Name: "loc_parent_col", Type: formatter.TypeString, Default: "RME_GBRMPA_ID"},
		},
		Resource: formatter.Resource{
			Description: "Initial coral cover downscaled to canonical locations.",
			Format:      "netcdf",
		},
		New: func() formatter.Formatter { return &Formatter{} },
	}
}

// Format runs the downscaling pipeline and writes the cover cube.
func (f *Formatter) Format(ctx context.Context, req *formatter.Request) error {
	reefPath, err := formatter.FindOne(req.SourceDir, req.Options.String("reef_pattern"))
	if err != nil {
		return err
	}
	reefDS, err := geoio.Load(reefPath)
	if err != nil {
		return err
	}
	reefs, err := spatial.UnitsFromDataset(reefDS, spatial.Columns{
		ID:   req.Options.String("reef_id_col"),
		K:    req.Options.String("reef_k_col"),
		Area: req.Options.String("reef_area_col"),
	})
	if err != nil {
		return fmt.Errorf("reef dataset: %w", err)
	}

	coverPath, err := formatter.FindOne(req.SourceDir, req.Options.String("cover_pattern"))
	if err != nil {
		return err
	}
	records, err := loadCoverRecords(coverPath)
	if err != nil {
		return err
	}

	spatialDir, err := req.Resolver.Resolve(ctx, req.Options.String("spatial_source"))
	if err != nil {
		return err
	}
	locPath, err := formatter.FindOne(spatialDir, "**/*.geojson")
	if err != nil {
		return err
	}
	locDS, err := geoio.Load(locPath)
	if err != nil {
		return err
	}
	locs, err := spatial.UnitsFromDataset(locDS, spatial.Columns{
		ID:     req.Options.String("loc_id_col"),
		K:      req.Options.String("loc_k_col"),
		Area:   req.Options.String("loc_area_col"),
		Parent: req.Options.String("loc_parent_col"),
	})
	if err != nil {
		return fmt.Errorf("canonical dataset: %w", err)
	}

	groups, rel, err := RelativeCover(reefs, records)
	if err != nil {
		return err
	}

	bins := map[string]GroupBins{}
	if binFiles, err := formatter.FindFiles(req.SourceDir, req.Options.String("bins_pattern")); err != nil {
		return err
	} else if len(binFiles) > 0 {
		if bins, err = LoadBins(binFiles[0]); err != nil {
			return err
		}
	}
	taxa, taxaRel := SplitSizeClasses(groups, rel, bins)

	match := spatial.Match(reefs, locs)
	cube, err := Allocate(reefs, locs, match, taxa, taxaRel)
	if err != nil {
		return err
	}

	req.Logger.Info("Downscaled coral cover",
		slog.Int("reefs", len(reefs)),
		slog.Int("locations", len(locs)),
		slog.Int("taxa", len(taxa)))

	return writeCube(req.DestPath, taxa, locs, cube)
}

// loadCoverRecords reads reef cover observations from a CSV with columns
// reef_id,functional_group,cover. A header row is skipped when present.
func loadCoverRecords(path string) ([]CoverRecord, error) {
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

	var records []CoverRecord
	for i, row := range rows {
		if len(row) != 3 {
			return nil, fmt.Errorf("%s row %d: expected reef_id,functional_group,cover", path, i+1)
		}
		cover, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			if i == 0 {
				continue // header
			}
			return nil, fmt.Errorf("%s row %d: cover: %w", path, i+1, err)
		}
		records = append(records, CoverRecord{
			ReefID: strings.TrimSpace(row[0]),
			Group:  strings.TrimSpace(row[1]),
			Cover:  cover,
		})
	}
	return records, nil
}

func writeCube(dest string, taxa []Taxon, locs []spatial.Unit, cube *sparse.DenseArray) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	taxaNames := make([]string, len(taxa))
	taxaIdx := make([]int32, len(taxa))
	for i, t := range taxa {
		taxaNames[i] = t.String()
		taxaIdx[i] = int32(i + 1)
	}
	locIDs := make([]string, len(locs))
	for i, l := range locs {
		locIDs[i] = l.ID
	}

	return ncio.NewBuilder().
		AddDim("taxa", len(taxa)).
		AddDim("locations", len(locs)).
		AddGlobalAttr("title", "initial coral cover").
		AddGlobalAttr("taxa_names", strings.Join(taxaNames, ",")).
		AddFloat(ncio.FloatVar{
			Name:        "cover",
			Dims:        []string{"taxa", "locations"},
			Description: "coral cover relative to location k-area",
			Units:       "1",
			Data:        cube,
		}).
		AddInt(ncio.IntVar{
			Name:        "taxa",
			Dims:        []string{"taxa"},
			Description: "functional group and size class index",
			Data:        taxaIdx,
		}).
		AddInt(ncio.IntVar{
			Name:        "locations",
			Dims:        []string{"locations"},
			Description: "canonical location unique id",
			Data:        ncio.IntIDs(locIDs),
		}).
		Write(dest)
}
