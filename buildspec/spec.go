// Package buildspec models the declarative build specification: the named
// sources a domain build consumes and the outputs it produces.
package buildspec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SpatialBaseType is the source type at least one declared source must
// carry: the canonical spatial dataset every domain aligns against.
const SpatialBaseType = "spatial_base"

// Source is a named reference to an external dataset. Exactly one of
// Handle and Path must be set.
type Source struct {
	// Handle is an opaque identifier for a remotely hosted dataset.
	Handle string `yaml:"handle"`
	// Path points at a local dataset directory.
	Path string `yaml:"path"`
	// Type is free-form metadata about the dataset kind (for example
	// spatial_base, reefmod, netcdf).
	Type string `yaml:"type"`
}

// IsRemote reports whether the source resolves through the data store.
func (s *Source) IsRemote() bool { return s.Handle != "" }

// Output is a named target artifact produced by one formatter run.
type Output struct {
	// Type is the artifact kind (connectivity, dhw, initial_coral_cover,
	// cyclone_mortality, spatial_data, ...).
	Type string `yaml:"type"`
	// Formatter names the registered formatter to run.
	Formatter string `yaml:"formatter"`
	// Source references a declared source by name.
	Source string `yaml:"source"`
	// Filename is the destination file or directory, relative to the
	// domain package root.
	Filename string `yaml:"filename"`
	// Options is the formatter-specific option bag.
	Options map[string]any `yaml:"options"`
}

// Spec is the root build specification.
type Spec struct {
	DomainName    string         `yaml:"domain_name"`
	GlobalOptions map[string]any `yaml:"global_options"`
	Sources       SourceSet      `yaml:"sources"`
	Outputs       OutputSet      `yaml:"outputs"`
}

// SourceSet is a name-keyed source collection that preserves declaration
// order.
type SourceSet struct {
	names  []string
	byName map[string]*Source
}

// UnmarshalYAML decodes a YAML mapping while recording key order.
func (s *SourceSet) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("sources must be a mapping")
	}
	s.byName = make(map[string]*Source)
	for i := 0; i < len(node.Content); i += 2 {
		name := node.Content[i].Value
		src := &Source{}
		if err := node.Content[i+1].Decode(src); err != nil {
			return fmt.Errorf("source %q: %w", name, err)
		}
		if _, dup := s.byName[name]; dup {
			return fmt.Errorf("duplicate source %q", name)
		}
		s.names = append(s.names, name)
		s.byName[name] = src
	}
	return nil
}

// Names returns source names in declaration order.
func (s *SourceSet) Names() []string { return s.names }

// Get returns the named source, or nil.
func (s *SourceSet) Get(name string) *Source { return s.byName[name] }

// Len returns the number of declared sources.
func (s *SourceSet) Len() int { return len(s.names) }

// OutputSet is a name-keyed output collection that preserves declaration
// order; the builder attempts outputs in this order.
type OutputSet struct {
	names  []string
	byName map[string]*Output
}

// UnmarshalYAML decodes a YAML mapping while recording key order.
func (o *OutputSet) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("outputs must be a mapping")
	}
	o.byName = make(map[string]*Output)
	for i := 0; i < len(node.Content); i += 2 {
		name := node.Content[i].Value
		out := &Output{}
		if err := node.Content[i+1].Decode(out); err != nil {
			return fmt.Errorf("output %q: %w", name, err)
		}
		if _, dup := o.byName[name]; dup {
			return fmt.Errorf("duplicate output %q", name)
		}
		o.names = append(o.names, name)
		o.byName[name] = out
	}
	return nil
}

// Names returns output names in declaration order.
func (o *OutputSet) Names() []string { return o.names }

// Get returns the named output, or nil.
func (o *OutputSet) Get(name string) *Output { return o.byName[name] }

// Len returns the number of declared outputs.
func (o *OutputSet) Len() int { return len(o.names) }

// Parse decodes a build specification from YAML without validating it.
func Parse(data []byte) (*Spec, error) {
	spec := &Spec{}
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("malformed build specification: %v", err)}
	}
	return spec, nil
}

// Load reads and parses a build specification file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read build specification: %w", err)
	}
	return Parse(data)
}
