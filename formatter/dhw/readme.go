package dhw

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// modelGroup records the source model files behind one RCP output.
type modelGroup struct {
	rcp   string
	files []string
}

// appendModelAppendix adds a "DHW Climate Models" section to the package
// README naming the model files behind each RCP cube, so package readers
// can trace every cube back to its GCM runs. Runs without a package
// directory (for example direct formatter invocations) skip the appendix.
func appendModelAppendix(packageDir string, groups []modelGroup) error {
	if packageDir == "" || len(groups) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("\n## DHW Climate Models\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "\nRCP %s (%s):\n", g.rcp, outputName(g.rcp))
		for _, f := range g.files {
			fmt.Fprintf(&b, "- %s\n", filepath.Base(f))
		}
	}

	f, err := os.OpenFile(filepath.Join(packageDir, "README.md"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}
