// Package ncio provides NetCDF reading and writing for domain artifacts.
// Cubes are held as dense arrays; files use the classic NetCDF format with
// float64 data variables and int32 coordinate variables.
package ncio

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// FloatVar is a float64 data variable.
type FloatVar struct {
	Name        string
	Dims        []string
	Description string
	Units       string
	Data        *sparse.DenseArray
}

// IntVar is an int32 variable, typically a coordinate or identifier
// vector but usable for full categorical cubes.
type IntVar struct {
	Name        string
	Dims        []string
	Description string
	Units       string
	Data        []int32
}

// Builder accumulates dimensions, attributes and variables for one NetCDF
// file.
type Builder struct {
	dimNames []string
	dimLens  []int
	attrs    []attr
	floats   []FloatVar
	ints     []IntVar
}

type attr struct {
	name  string
	value any
}

// NewBuilder creates an empty file builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddDim declares a dimension.
func (b *Builder) AddDim(name string, length int) *Builder {
	b.dimNames = append(b.dimNames, name)
	b.dimLens = append(b.dimLens, length)
	return b
}

// AddGlobalAttr attaches a global attribute.
func (b *Builder) AddGlobalAttr(name string, value any) *Builder {
	b.attrs = append(b.attrs, attr{name: name, value: value})
	return b
}

// AddFloat adds a float64 data variable.
func (b *Builder) AddFloat(v FloatVar) *Builder {
	b.floats = append(b.floats, v)
	return b
}

// AddInt adds an int32 variable.
func (b *Builder) AddInt(v IntVar) *Builder {
	b.ints = append(b.ints, v)
	return b
}

// Write creates the NetCDF file at path.
func (b *Builder) Write(path string) error {
	for _, v := range b.floats {
		n := 1
		for _, s := range v.Data.Shape {
			n *= s
		}
		if len(v.Data.Elements) != n {
			return fmt.Errorf("variable %q: shape %v does not match %d elements", v.Name, v.Data.Shape, len(v.Data.Elements))
		}
	}
	dimLen := make(map[string]int, len(b.dimNames))
	for i, name := range b.dimNames {
		dimLen[name] = b.dimLens[i]
	}
	for _, v := range b.ints {
		n := 1
		for _, d := range v.Dims {
			length, ok := dimLen[d]
			if !ok {
				return fmt.Errorf("variable %q: undeclared dimension %q", v.Name, d)
			}
			n *= length
		}
		if len(v.Data) != n {
			return fmt.Errorf("variable %q: dimensions %v imply %d elements, got %d", v.Name, v.Dims, n, len(v.Data))
		}
	}

	h := cdf.NewHeader(b.dimNames, b.dimLens)
	for _, a := range b.attrs {
		h.AddAttribute("", a.name, a.value)
	}
	for _, v := range b.floats {
		h.AddVariable(v.Name, v.Dims, []float64{0})
		if v.Description != "" {
			h.AddAttribute(v.Name, "long_name", v.Description)
		}
		if v.Units != "" {
			h.AddAttribute(v.Name, "units", v.Units)
		}
	}
	for _, v := range b.ints {
		h.AddVariable(v.Name, v.Dims, []int32{0})
		if v.Description != "" {
			h.AddAttribute(v.Name, "long_name", v.Description)
		}
		if v.Units != "" {
			h.AddAttribute(v.Name, "units", v.Units)
		}
	}
	h.Define()

	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer w.Close()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("create netcdf %s: %w", path, err)
	}

	for _, v := range b.floats {
		if err := writeFloat(f, v.Name, v.Data); err != nil {
			return fmt.Errorf("write variable %q: %w", v.Name, err)
		}
	}
	for _, v := range b.ints {
		end := f.Header.Lengths(v.Name)
		start := make([]int, len(end))
		if _, err := f.Writer(v.Name, start, end).Write(v.Data); err != nil {
			return fmt.Errorf("write variable %q: %w", v.Name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func writeFloat(f *cdf.File, name string, data *sparse.DenseArray) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	buf := make([]float64, len(data.Elements))
	copy(buf, data.Elements)
	_, err := f.Writer(name, start, end).Write(buf)
	return err
}

// File is an open NetCDF file for reading.
type File struct {
	f    *cdf.File
	file *os.File
}

// Open opens a NetCDF file for reading.
func Open(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	f, err := cdf.Open(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("open netcdf %s: %w", path, err)
	}
	return &File{f: f, file: file}, nil
}

// Close releases the file.
func (f *File) Close() error { return f.file.Close() }

// Has reports whether a variable exists.
func (f *File) Has(name string) bool {
	for _, v := range f.f.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

// Lengths returns a variable's dimension lengths.
func (f *File) Lengths(name string) []int {
	return f.f.Header.Lengths(name)
}

// Float reads a float64 variable into a dense array.
func (f *File) Float(name string) (*sparse.DenseArray, error) {
	if !f.Has(name) {
		return nil, fmt.Errorf("variable %q not in file", name)
	}
	dims := f.f.Header.Lengths(name)
	out := sparse.ZerosDense(dims...)
	buf := make([]float64, len(out.Elements))
	if _, err := f.f.Reader(name, nil, nil).Read(buf); err != nil {
		return nil, fmt.Errorf("read variable %q: %w", name, err)
	}
	copy(out.Elements, buf)
	return out, nil
}

// Int reads an int32 variable.
func (f *File) Int(name string) ([]int32, error) {
	if !f.Has(name) {
		return nil, fmt.Errorf("variable %q not in file", name)
	}
	dims := f.f.Header.Lengths(name)
	n := 1
	for _, d := range dims {
		n *= d
	}
	buf := make([]int32, n)
	if _, err := f.f.Reader(name, nil, nil).Read(buf); err != nil {
		return nil, fmt.Errorf("read variable %q: %w", name, err)
	}
	return buf, nil
}

// Attr returns a variable attribute (empty variable name for globals), or
// nil when absent.
func (f *File) Attr(variable, name string) any {
	return f.f.Header.GetAttribute(variable, name)
}

// IntIDs converts location identifier strings to the int32 values stored
// in NetCDF coordinate variables. Canonical unique IDs are numeric; a
// non-numeric identifier falls back to its 1-based position.
func IntIDs(ids []string) []int32 {
	out := make([]int32, len(ids))
	for i, id := range ids {
		if n, err := strconv.ParseInt(id, 10, 32); err == nil {
			out[i] = int32(n)
		} else {
			out[i] = int32(i + 1)
		}
	}
	return out
}
