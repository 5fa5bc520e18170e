package buildspec

import (
	"fmt"
	"strings"

	"github.com/reefworks/domaingen/formatter"
)

// ValidationError reports an invalid build specification. Validation errors
// are fatal: nothing is fetched or written after one is raised.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Validate checks the specification against the formatter registry and
// normalizes every output's option bag against its formatter's schema.
// It fails fast: the first violation is returned.
func (s *Spec) Validate(registry *formatter.Registry) error {
	if s.DomainName == "" {
		return invalidf("domain_name", "is required")
	}
	if s.Sources.Len() == 0 {
		return invalidf("sources", "at least one source is required")
	}
	if s.Outputs.Len() == 0 {
		return invalidf("outputs", "at least one output is required")
	}

	hasSpatialBase := false
	for _, name := range s.Sources.Names() {
		src := s.Sources.Get(name)
		field := "sources." + name
		if src.Handle == "" && src.Path == "" {
			return invalidf(field, "must set either handle or path")
		}
		if src.Handle != "" && src.Path != "" {
			return invalidf(field, "cannot set both handle and path")
		}
		if src.Type == SpatialBaseType {
			hasSpatialBase = true
		}
	}
	if !hasSpatialBase {
		return invalidf("sources", "at least one source must have type %q", SpatialBaseType)
	}

	for _, name := range s.Outputs.Names() {
		out := s.Outputs.Get(name)
		field := "outputs." + name
		if out.Formatter == "" {
			return invalidf(field, "formatter is required")
		}
		if out.Source == "" {
			return invalidf(field, "source is required")
		}
		if out.Filename == "" {
			return invalidf(field, "filename is required")
		}
		if s.Sources.Get(out.Source) == nil {
			return invalidf(field, "references undeclared source %q", out.Source)
		}
		if !registry.Has(out.Formatter) {
			return invalidf(field, "unknown formatter %q (known: %s)",
				out.Formatter, strings.Join(registry.Names(), ", "))
		}

		reg, err := registry.Get(out.Formatter)
		if err != nil {
			return invalidf(field, "%v", err)
		}
		normalized, err := reg.Schema.Apply(out.Options)
		if err != nil {
			return invalidf(field+".options", "%v", err)
		}

		// Options named *_source are secondary source references and
		// must point at declared sources.
		for key, val := range normalized {
			if !strings.HasSuffix(key, "_source") {
				continue
			}
			ref, ok := val.(string)
			if !ok {
				continue
			}
			if s.Sources.Get(ref) == nil {
				return invalidf(field+".options."+key, "references undeclared source %q", ref)
			}
		}
		out.Options = normalized
	}

	return nil
}
