// Package builder orchestrates a domain build: it scaffolds the versioned
// package directory, resolves every declared source, runs each output's
// formatter in declaration order, and writes the package manifest.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reefworks/domaingen/buildspec"
	"github.com/reefworks/domaingen/config"
	"github.com/reefworks/domaingen/formatter"
	"github.com/reefworks/domaingen/sourcemgr"
)

// scaffold lists the standard subdirectories of a domain package.
var scaffold = []string{"connectivity", "cyclones", "DHWs", "spatial"}

const readmeTemplate = `# %s domain package

Created: %s

## Connectivity
## Cyclones
## DHWs
## Spatial
`

// DestinationExistsError reports a pre-existing package directory. The
// build fails fast instead of merging into it.
type DestinationExistsError struct {
	Dir string
}

func (e *DestinationExistsError) Error() string {
	return fmt.Sprintf("destination already exists: %s", e.Dir)
}

// Builder runs domain builds for one specification.
type Builder struct {
	spec      *buildspec.Spec
	registry  *formatter.Registry
	sources   *sourcemgr.Manager
	version   string
	overwrite bool
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithOverwrite allows replacing an existing destination directory.
func WithOverwrite() Option {
	return func(b *Builder) { b.overwrite = true }
}

// WithVersion overrides the package version recorded in directory names
// and the manifest.
func WithVersion(v string) Option {
	return func(b *Builder) { b.version = v }
}

// WithLogger sets the build logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// withClock fixes the build timestamp, for tests.
func withClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// New creates a builder for a validated specification.
func New(spec *buildspec.Spec, registry *formatter.Registry, sources *sourcemgr.Manager, opts ...Option) *Builder {
	b := &Builder{
		spec:     spec,
		registry: registry,
		sources:  sources,
		version:  config.PackageVersion,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DirName returns the versioned package directory name,
// <domain>_<date>_v<version>.
func (b *Builder) DirName() string {
	date := b.now().Format("2006-01-02")
	version := strings.ReplaceAll(b.version, ".", "")
	return fmt.Sprintf("%s_%s_v%s", b.spec.DomainName, date, version)
}

// Build runs the full pipeline into a fresh package directory under
// outputParent. Formatter failures are collected rather than aborting;
// configuration and source-resolution failures are fatal.
func (b *Builder) Build(ctx context.Context, outputParent string) (*BuildResult, error) {
	dir := filepath.Join(outputParent, b.DirName())
	result := &BuildResult{Dir: dir}

	if _, err := os.Stat(dir); err == nil {
		if !b.overwrite {
			result.Status = StatusFatal
			result.Err = &DestinationExistsError{Dir: dir}
			return result, result.Err
		}
		if err := os.RemoveAll(dir); err != nil {
			result.Status = StatusFatal
			result.Err = err
			return result, err
		}
	}
	if err := b.scaffoldPackage(dir); err != nil {
		result.Status = StatusFatal
		result.Err = err
		return result, err
	}

	b.enforceSpatialFilenames()

	// Every source is resolved before any formatter runs: a missing
	// source aborts the whole build since any output might depend on it.
	for _, name := range b.spec.Sources.Names() {
		if _, err := b.sources.Resolve(ctx, name); err != nil {
			result.Status = StatusFatal
			result.Err = fmt.Errorf("resolve source %q: %w", name, err)
			return result, result.Err
		}
	}

	for _, name := range b.spec.Outputs.Names() {
		out := b.spec.Outputs.Get(name)
		result.Outputs = append(result.Outputs, b.runOutput(ctx, dir, name, out))
	}

	if err := b.writeManifest(dir, result); err != nil {
		result.Status = StatusFatal
		result.Err = err
		return result, err
	}

	if len(result.Failures()) > 0 {
		result.Status = StatusPartial
	} else {
		result.Status = StatusSuccess
	}
	return result, nil
}

func (b *Builder) runOutput(ctx context.Context, dir, name string, out *buildspec.Output) OutputResult {
	res := OutputResult{Name: name, Formatter: out.Formatter, Filename: out.Filename}

	b.logger.Info("Processing output",
		slog.String("output", name),
		slog.String("formatter", out.Formatter),
		slog.String("filename", out.Filename))

	srcDir, err := b.sources.Resolve(ctx, out.Source)
	if err != nil {
		res.Err = formatter.NewError(name, out.Formatter, err)
		return res
	}
	reg, err := b.registry.Get(out.Formatter)
	if err != nil {
		res.Err = formatter.NewError(name, out.Formatter, err)
		return res
	}

	destPath := filepath.Join(dir, filepath.FromSlash(out.Filename))
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		res.Err = formatter.NewError(name, out.Formatter, err)
		return res
	}

	req := &formatter.Request{
		SourceDir:  srcDir,
		DestPath:   destPath,
		PackageDir: dir,
		Options:    out.Options,
		Resolver:   b.sources,
		Logger:     b.logger.With(slog.String("output", name)),
	}
	if err := reg.New().Format(ctx, req); err != nil {
		b.logger.Error("Output failed",
			slog.String("output", name), slog.Any("error", err))
		res.Err = formatter.NewError(name, out.Formatter, err)
	}
	return res
}

// enforceSpatialFilenames pins spatial_data outputs to the canonical
// package-relative path, spatial/<dir>.geojson.
func (b *Builder) enforceSpatialFilenames() {
	forced := "spatial/" + b.DirName() + ".geojson"
	for _, name := range b.spec.Outputs.Names() {
		out := b.spec.Outputs.Get(name)
		if out.Type == "spatial_data" && out.Filename != forced {
			b.logger.Info("Enforcing spatial filename",
				slog.String("output", name), slog.String("filename", forced))
			out.Filename = forced
		}
	}
}

func (b *Builder) scaffoldPackage(dir string) error {
	for _, sub := range scaffold {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return err
		}
	}
	readme := fmt.Sprintf(readmeTemplate, b.spec.DomainName, b.now().Format("2006-01-02 15:04:05"))
	return os.WriteFile(filepath.Join(dir, "README.md"), []byte(readme), 0o644)
}
