package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// FindFiles returns files under root matching a doublestar pattern
// (for example "**/data_files/con_csv/CONNECT_ACRO*.csv"), sorted.
func FindFiles(root, pattern string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}

	var files []string
	for _, m := range matches {
		full := filepath.Join(root, filepath.FromSlash(m))
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, full)
	}
	sort.Strings(files)
	return files, nil
}

// FindOne returns the single file matching pattern under root, failing
// when none match. With multiple matches the first (sorted) wins.
func FindOne(root, pattern string) (string, error) {
	files, err := FindFiles(root, pattern)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no file matching %q in %s", pattern, root)
	}
	return files[0], nil
}
