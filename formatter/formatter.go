// Package formatter defines the formatter framework: a closed set of named
// dataset formatters dispatched from a static registry, each declaring the
// options schema its build-spec entries are validated against.
package formatter

import (
	"context"
	"log/slog"
)

// Resolver resolves a named source from the build specification to a local
// directory. Formatters use it to materialize secondary sources (for
// example the canonical spatial dataset) beyond their primary one.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// Request carries everything a formatter needs for one output.
type Request struct {
	// SourceDir is the resolved local directory of the output's primary source.
	SourceDir string

	// DestPath is the full destination path (file or directory, depending
	// on the formatter) inside the domain package.
	DestPath string

	// PackageDir is the domain package root directory when the formatter
	// runs inside a build, empty otherwise. Formatters use it to append
	// package-level documentation such as README appendices.
	PackageDir string

	// Options is the validated option bag from the build specification,
	// with schema defaults already applied.
	Options Options

	// Resolver resolves secondary sources referenced from Options.
	Resolver Resolver

	// Logger receives progress events. Never nil.
	Logger *slog.Logger
}

// Formatter transforms one raw source dataset into a canonical artifact.
// Implementations are pure batch transforms: they read from the request's
// source directories and write only beneath DestPath.
type Formatter interface {
	Format(ctx context.Context, req *Request) error
}

// Resource describes the artifact a formatter produces, for the package
// manifest.
type Resource struct {
	// Description is a human-readable account of the artifact.
	Description string
	// Format is the artifact file format (csv, netcdf, geojson).
	Format string
}

// Registration binds a formatter name to its implementation, options
// schema, and manifest metadata.
type Registration struct {
	// Name is the formatter identifier used in build specifications.
	Name string
	// Description describes what the formatter does.
	Description string
	// Schema declares the accepted options.
	Schema Schema
	// Resource describes the produced artifact.
	Resource Resource
	// New constructs a formatter instance.
	New func() Formatter
}
