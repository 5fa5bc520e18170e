package builder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Manifest is the datapackage.json document describing a built domain
// package.
type Manifest struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	Version            string             `json:"version"`
	Created            string             `json:"created"`
	Sources            []ManifestSource   `json:"sources"`
	SimulationMetadata SimulationMetadata `json:"simulation_metadata"`
	Contributors       []Contributor      `json:"contributors"`
	Resources          []Resource         `json:"resources"`
}

// ManifestSource describes one consumed dataset.
type ManifestSource struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Path        string `json:"path,omitempty"`
	Handle      string `json:"handle,omitempty"`
}

// SimulationMetadata carries the parameters downstream models read from
// the manifest.
type SimulationMetadata struct {
	Timeframe    []int `json:"timeframe"`
	NumLocations int   `json:"num_locations,omitempty"`
}

// Contributor is a deduplicated dataset point of contact.
type Contributor struct {
	Title       string `json:"title"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

// Resource describes one produced artifact.
type Resource struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path"`
	Format      string `json:"format"`

	// Spatial column names, set only on the spatial_data resource.
	LocationIDCol string `json:"location_id_col,omitempty"`
	ClusterIDCol  string `json:"cluster_id_col,omitempty"`
	KCol          string `json:"k_col,omitempty"`
	AreaCol       string `json:"area_col,omitempty"`
}

// sourceMetadata is the subset read from a dataset's metadata.json.
type sourceMetadata struct {
	DatasetInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"dataset_info"`
	Associations struct {
		PointOfContact string `json:"point_of_contact"`
	} `json:"associations"`
}

// writeManifest assembles and writes datapackage.json, listing only the
// outputs that succeeded.
func (b *Builder) writeManifest(dir string, result *BuildResult) error {
	m := &Manifest{
		ID:          uuid.NewString(),
		Name:        b.spec.DomainName,
		Title:       b.spec.DomainName + " Domain",
		Description: "Generated reef domain data package",
		Version:     b.version,
		Created:     b.now().Format("2006-01-02 15:04:05"),
	}

	contributors := map[string]*contributorAcc{}
	for _, name := range b.spec.Sources.Names() {
		src := b.spec.Sources.Get(name)
		ms := ManifestSource{Title: name + " Dataset", Handle: src.Handle, Path: src.Path}

		if metaPath := b.sources.MetadataPath(name); metaPath != "" {
			meta, err := readSourceMetadata(metaPath)
			if err != nil {
				return fmt.Errorf("source %q metadata: %w", name, err)
			}
			if meta.DatasetInfo.Name != "" {
				ms.Title = meta.DatasetInfo.Name
			}
			ms.Description = meta.DatasetInfo.Description
			if contact := meta.Associations.PointOfContact; contact != "" {
				acc, ok := contributors[contact]
				if !ok {
					acc = &contributorAcc{email: contact}
					contributors[contact] = acc
				}
				acc.datasets = append(acc.datasets, ms.Title)
			}
		}
		m.Sources = append(m.Sources, ms)
	}
	m.Contributors = flattenContributors(contributors)

	m.SimulationMetadata = b.simulationMetadata()
	m.Resources = b.resources(result)

	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "datapackage.json"), data, 0o644)
}

type contributorAcc struct {
	email    string
	datasets []string
}

func flattenContributors(accs map[string]*contributorAcc) []Contributor {
	emails := make([]string, 0, len(accs))
	for email := range accs {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	out := make([]Contributor, 0, len(accs))
	for _, email := range emails {
		acc := accs[email]
		title, _, _ := strings.Cut(email, "@")
		out = append(out, Contributor{
			Title:       title,
			Email:       email,
			Role:        "author",
			Description: "Point of contact for: " + strings.Join(acc.datasets, ", "),
		})
	}
	return out
}

func (b *Builder) simulationMetadata() SimulationMetadata {
	meta := SimulationMetadata{}

	tf := globalString(b.spec.GlobalOptions, "timeframe", "2025 2099")
	for _, part := range strings.Fields(tf) {
		if year, err := strconv.Atoi(part); err == nil {
			meta.Timeframe = append(meta.Timeframe, year)
		}
	}
	if n, ok := b.spec.GlobalOptions["num_locations"]; ok {
		switch v := n.(type) {
		case int:
			meta.NumLocations = v
		case float64:
			meta.NumLocations = int(v)
		}
	}
	return meta
}

// resources lists the successful outputs, enriched with each formatter's
// registered artifact metadata. The spatial resource additionally records
// the canonical column names downstream models use.
func (b *Builder) resources(result *BuildResult) []Resource {
	var out []Resource
	for _, or := range result.Outputs {
		if !or.OK() {
			continue
		}
		spec := b.spec.Outputs.Get(or.Name)

		res := Resource{
			Name:        or.Name,
			Description: or.Name + " data.",
			Path:        or.Filename,
			Format:      "unknown",
		}
		if reg, err := b.registry.Get(or.Formatter); err == nil {
			if reg.Resource.Description != "" {
				res.Description = reg.Resource.Description
			}
			if reg.Resource.Format != "" {
				res.Format = reg.Resource.Format
			}
		}
		if spec != nil && spec.Type == "spatial_data" {
			opts := b.spec.GlobalOptions
			res.LocationIDCol = globalString(opts, "location_id_col", "UNIQUE_ID")
			res.ClusterIDCol = globalString(opts, "cluster_id_col", "cluster_id")
			res.KCol = globalString(opts, "k_col", "ReefMod_habitable_proportion")
			res.AreaCol = globalString(opts, "area_col", "ReefMod_area_m2")
		}
		out = append(out, res)
	}
	return out
}

func globalString(opts map[string]any, key, fallback string) string {
	if v, ok := opts[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func readSourceMetadata(path string) (*sourceMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	meta := &sourceMetadata{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return meta, nil
}
