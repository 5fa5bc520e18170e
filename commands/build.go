package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/reefworks/domaingen/builder"
	"github.com/reefworks/domaingen/buildspec"
	"github.com/reefworks/domaingen/datastore"
	"github.com/reefworks/domaingen/sourcemgr"
)

func buildCmd(configPath *string) *cobra.Command {
	var (
		outputDir string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "build <spec.yaml>",
		Short: "Build a domain data package from a build specification",
		Long: `Build resolves every source declared in the specification (fetching
remote handles through the local cache), runs each output's formatter
in declaration order, and writes the versioned package with its
datapackage.json manifest.

The process exit code reflects the verdict: 0 on success, 1 on a
fatal failure, 2 when some outputs failed (partial).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), *configPath, args[0], outputDir, overwrite)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "Parent directory for the package")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing destination directory")
	return cmd
}

func runBuild(ctx context.Context, configPath, specPath, outputDir string, overwrite bool) error {
	cfg, err := loadSettings(configPath)
	if err != nil {
		return err
	}
	registry, err := newRegistry()
	if err != nil {
		return err
	}

	spec, err := buildspec.Load(specPath)
	if err != nil {
		return err
	}
	if err := spec.Validate(registry); err != nil {
		return fmt.Errorf("invalid build specification: %w", err)
	}

	fetcher := datastore.NewClient(cfg.Store.Endpoint, datastore.WithLogger(slog.Default()))
	sources := sourcemgr.New(cfg.Cache.Dir, fetcher, &spec.Sources, slog.Default())

	opts := []builder.Option{builder.WithLogger(slog.Default())}
	if overwrite {
		opts = append(opts, builder.WithOverwrite())
	}
	b := builder.New(spec, registry, sources, opts...)

	result, err := b.Build(ctx, outputDir)
	report(result)
	if err != nil {
		return &ExitError{Code: 1, Msg: err.Error()}
	}
	if result.Status == builder.StatusPartial {
		return &ExitError{Code: 2, Msg: "build completed with failures"}
	}
	return nil
}

func report(result *builder.BuildResult) {
	fmt.Printf("Build %s: %s\n", result.Status, result.Dir)
	for _, out := range result.Outputs {
		if out.OK() {
			fmt.Printf("  ok    %-24s %s\n", out.Name, out.Filename)
		} else {
			fmt.Printf("  FAIL  %-24s %v\n", out.Name, out.Err)
		}
	}
	if result.Err != nil {
		fmt.Printf("  fatal: %v\n", result.Err)
	}
}
