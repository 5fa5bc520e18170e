// Package sourcemgr resolves declared sources to local directories,
// fetching remote datasets through a content-addressed on-disk cache.
//
// The cache is the only state shared between concurrent builds. Fetches
// land in a private temporary directory and are published with a single
// rename, so readers only ever observe a missing entry or a complete one.
// A per-handle advisory lock file keeps concurrent processes from
// double-fetching the same handle.
package sourcemgr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/reefworks/domaingen/buildspec"
	"github.com/reefworks/domaingen/datastore"
)

// metadataFile is the conventional dataset metadata filename captured for
// manifest enrichment.
const metadataFile = "metadata.json"

// SourceNotFoundError reports a source that cannot be resolved: an
// undeclared name or a local path that does not exist.
type SourceNotFoundError struct {
	Name   string
	Reason string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source %q: %s", e.Name, e.Reason)
}

// Manager resolves sources by name. Each source is resolved at most once
// per Manager; subsequent calls return the memoized directory.
type Manager struct {
	cacheDir string
	fetcher  datastore.Fetcher
	sources  *buildspec.SourceSet
	logger   *slog.Logger

	mu       sync.Mutex
	resolved map[string]string
	metadata map[string]string
}

// New creates a source manager over the given cache root.
func New(cacheDir string, fetcher datastore.Fetcher, sources *buildspec.SourceSet, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cacheDir: cacheDir,
		fetcher:  fetcher,
		sources:  sources,
		logger:   logger,
		resolved: make(map[string]string),
		metadata: make(map[string]string),
	}
}

// Resolve returns the local directory for a declared source, fetching and
// caching remote handles on first use. Implements formatter.Resolver.
func (m *Manager) Resolve(ctx context.Context, name string) (string, error) {
	return m.ResolveRefresh(ctx, name, false)
}

// ResolveRefresh is Resolve with optional cache eviction: when force is
// true any cached copy of the source's handle is discarded and re-fetched.
func (m *Manager) ResolveRefresh(ctx context.Context, name string, force bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dir, ok := m.resolved[name]; ok && !force {
		return dir, nil
	}

	src := m.sources.Get(name)
	if src == nil {
		return "", &SourceNotFoundError{Name: name, Reason: "not declared in build specification"}
	}

	if src.Path != "" {
		if _, err := os.Stat(src.Path); err != nil {
			return "", &SourceNotFoundError{Name: name, Reason: fmt.Sprintf("path does not exist: %s", src.Path)}
		}
		m.remember(name, src.Path)
		return src.Path, nil
	}

	dir, err := m.materialize(ctx, src.Handle, force)
	if err != nil {
		return "", err
	}
	m.remember(name, dir)
	return dir, nil
}

// MetadataPath returns the path of a resolved source's metadata.json, or
// the empty string when the source carries none or is unresolved.
func (m *Manager) MetadataPath(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metadata[name]
}

func (m *Manager) remember(name, dir string) {
	m.resolved[name] = dir
	meta := filepath.Join(dir, metadataFile)
	if _, err := os.Stat(meta); err == nil {
		m.metadata[name] = meta
	} else {
		m.metadata[name] = ""
	}
}

// entryDir computes the deterministic cache directory for a handle.
func (m *Manager) entryDir(handle string) string {
	sum := sha256.Sum256([]byte(handle))
	return filepath.Join(m.cacheDir, hex.EncodeToString(sum[:8]))
}

// materialize returns a populated cache directory for the handle,
// fetching it if absent.
func (m *Manager) materialize(ctx context.Context, handle string, force bool) (string, error) {
	final := m.entryDir(handle)

	if err := os.MkdirAll(m.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache root: %w", err)
	}

	unlock, err := acquireLock(ctx, final+".lock")
	if err != nil {
		return "", fmt.Errorf("lock cache entry for %q: %w", handle, err)
	}
	defer unlock()

	if _, err := os.Stat(final); err == nil {
		if !force {
			m.logger.Debug("Cache hit", slog.String("handle", handle), slog.String("dir", final))
			return final, nil
		}
		m.logger.Info("Evicting cached dataset", slog.String("handle", handle))
		if err := os.RemoveAll(final); err != nil {
			return "", fmt.Errorf("evict cache entry for %q: %w", handle, err)
		}
	}

	// Fetch into a private temp dir, publish with a rename. A failed or
	// interrupted fetch never becomes visible under the final name.
	tmp, err := os.MkdirTemp(m.cacheDir, "fetch-")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	m.logger.Info("Fetching dataset", slog.String("handle", handle))
	if err := m.fetcher.Fetch(ctx, handle, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return "", err
	}

	if err := os.Rename(tmp, final); err != nil {
		_ = os.RemoveAll(tmp)
		return "", fmt.Errorf("publish cache entry for %q: %w", handle, err)
	}
	return final, nil
}
