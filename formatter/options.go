package formatter

import (
	"fmt"
	"strconv"
)

// FieldType enumerates the option value types a schema can declare.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeInt       FieldType = "int"
	TypeFloat     FieldType = "float"
	TypeBool      FieldType = "bool"
	TypeFloatList FieldType = "float_list"
)

// Field declares one option accepted by a formatter.
type Field struct {
	// Name is the option key as it appears in the build specification.
	Name string
	// Type is the expected value type.
	Type FieldType
	// Required marks options that must be present.
	Required bool
	// Default is applied when the option is absent. Ignored for required
	// options.
	Default any
	// Description documents the option.
	Description string
}

// Schema is a formatter's declared option set. Validation rejects unknown
// keys and missing required keys, and coerces values to the declared types.
type Schema []Field

// Apply validates raw options against the schema and returns a normalized
// bag with defaults filled in.
func (s Schema) Apply(raw map[string]any) (Options, error) {
	fields := make(map[string]Field, len(s))
	for _, f := range s {
		fields[f.Name] = f
	}

	for key := range raw {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("unknown option %q", key)
		}
	}

	out := make(Options, len(s))
	for _, f := range s {
		v, present := raw[f.Name]
		if !present {
			if f.Required {
				return nil, fmt.Errorf("missing required option %q", f.Name)
			}
			if f.Default != nil {
				out[f.Name] = f.Default
			}
			continue
		}
		coerced, err := coerce(v, f.Type)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", f.Name, err)
		}
		out[f.Name] = coerced
	}
	return out, nil
}

func coerce(v any, t FieldType) (any, error) {
	switch t {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n == float64(int(n)) {
				return int(n), nil
			}
		case string:
			if i, err := strconv.Atoi(n); err == nil {
				return i, nil
			}
		}
	case TypeFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f, nil
			}
		}
	case TypeBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			if p, err := strconv.ParseBool(b); err == nil {
				return p, nil
			}
		}
	case TypeFloatList:
		switch list := v.(type) {
		case []float64:
			return list, nil
		case []any:
			out := make([]float64, len(list))
			for i, e := range list {
				f, err := coerce(e, TypeFloat)
				if err != nil {
					return nil, fmt.Errorf("element %d: not a number", i)
				}
				out[i] = f.(float64)
			}
			return out, nil
		}
	default:
		return nil, fmt.Errorf("unsupported field type %q", t)
	}
	return nil, fmt.Errorf("cannot coerce %T to %s", v, t)
}

// Options is a validated, normalized option bag.
type Options map[string]any

// String returns a string option, or the empty string when absent.
func (o Options) String(key string) string {
	v, _ := o[key].(string)
	return v
}

// StringOr returns a string option or a fallback when absent.
func (o Options) StringOr(key, fallback string) string {
	if v, ok := o[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// Float returns a float option, or zero when absent.
func (o Options) Float(key string) float64 {
	v, _ := o[key].(float64)
	return v
}

// Int returns an int option, or zero when absent.
func (o Options) Int(key string) int {
	v, _ := o[key].(int)
	return v
}

// Bool returns a bool option, or false when absent.
func (o Options) Bool(key string) bool {
	v, _ := o[key].(bool)
	return v
}

// Floats returns a float-list option, or nil when absent.
func (o Options) Floats(key string) []float64 {
	v, _ := o[key].([]float64)
	return v
}
