// Package movefile copies glob-matched source files into the domain
// package unchanged.
package movefile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/reefworks/domaingen/formatter"
)

// Formatter implements the move_file output kind.
type Formatter struct{}

// Registration describes the formatter for the registry.
func Registration() formatter.Registration {
	return formatter.Registration{
		Name:        "move_file",
		Description: "Copy matched source files into the package verbatim",
		Schema: formatter.Schema{
			{Name: "pattern", Type: formatter.TypeString, Required: true,
				Description: "Pattern selecting the files to copy"},
		},
		Resource: formatter.Resource{
			Description: "Source files carried into the package unchanged.",
			Format:      "file",
		},
		New: func() formatter.Formatter { return &Formatter{} },
	}
}

// Format copies every matched file into the destination directory,
// keeping base names.
func (f *Formatter) Format(ctx context.Context, req *formatter.Request) error {
	files, err := formatter.FindFiles(req.SourceDir, req.Options.String("pattern"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files matching %q in %s", req.Options.String("pattern"), req.SourceDir)
	}

	if err := os.MkdirAll(req.DestPath, 0o755); err != nil {
		return err
	}
	for _, src := range files {
		dest := filepath.Join(req.DestPath, filepath.Base(src))
		if err := copyFile(src, dest); err != nil {
			return err
		}
	}
	req.Logger.Info("Copied files", slog.Int("count", len(files)))
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
