// Package commands provides the domaingen CLI: building domain data
// packages, inspecting registered formatters, and fetching datasets.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reefworks/domaingen/config"
	"github.com/reefworks/domaingen/formatter"
	"github.com/reefworks/domaingen/formatter/connectivity"
	"github.com/reefworks/domaingen/formatter/coralcover"
	"github.com/reefworks/domaingen/formatter/cyclones"
	"github.com/reefworks/domaingen/formatter/dhw"
	"github.com/reefworks/domaingen/formatter/movefile"
	"github.com/reefworks/domaingen/formatter/spatialdata"
)

const appName = "domaingen"

// ExitError carries a process exit code through cobra's error return.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

// Root builds the domaingen command tree.
func Root() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Build reef domain data packages",
		Long: `Domaingen fuses heterogeneous source datasets (climate projections,
reef-engine outputs, canonical reef geometries) into standardized,
versioned domain data packages for reef intervention models.

A build is driven by a declarative YAML specification naming the
sources to consume and the outputs to produce.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(logLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(buildCmd(&configPath))
	cmd.AddCommand(formattersCmd())
	cmd.AddCommand(fetchCmd(&configPath))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, config.PackageVersion)
		},
	})

	return cmd
}

func configureLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func loadSettings(configPath string) (*config.Config, error) {
	loader := config.NewLoader(slog.Default())
	cfg, err := loader.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newRegistry registers the closed set of formatters.
func newRegistry() (*formatter.Registry, error) {
	reg := formatter.NewRegistry()
	for _, r := range []formatter.Registration{
		connectivity.Registration(),
		dhw.StandardRegistration(),
		dhw.CSVRegistration(),
		coralcover.Registration(),
		cyclones.Registration(),
		spatialdata.Registration(),
		movefile.Registration(),
	} {
		if err := reg.Register(r); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
