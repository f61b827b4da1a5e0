// Package tmpdir owns the temporary directory of one builder and the
// per-node cache and output directories below it.
package tmpdir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/specialistvlad/treeforge/internal/ctxlog"
	"github.com/specialistvlad/treeforge/internal/fsutil"
)

// Prefix starts the name of every root directory created by this package.
const Prefix = "treeforge-"

// Manager allocates node directories inside a single root directory.
type Manager struct {
	mu   sync.Mutex
	ctx  context.Context
	root string
}

// New creates a root directory below baseDir, or below os.TempDir() when
// baseDir is empty.
func New(ctx context.Context, baseDir string) (*Manager, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	root, err := os.MkdirTemp(baseDir, Prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	// Plugins receive absolute paths regardless of how baseDir was given.
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	ctxlog.FromContext(ctx).Debug("Temporary directory created.", "path", root)
	return &Manager{ctx: ctx, root: root}, nil
}

// Root returns the root directory, or "" after Teardown.
func (m *Manager) Root() string {
	if m == nil {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.root
}

// Allocate creates the cache and output directories of node id.
func (m *Manager) Allocate(id int, name string) (cachePath, outputPath string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.root == "" {
		return "", "", fmt.Errorf("temporary directory was already removed")
	}

	suffix := fmt.Sprintf("%d-%s", id, fsutil.SafeName(name))
	cachePath = filepath.Join(m.root, "cache-"+suffix)
	outputPath = filepath.Join(m.root, "out-"+suffix)
	for _, dir := range []string{cachePath, outputPath} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			return "", "", fmt.Errorf("failed to allocate directory for node %d: %w", id, err)
		}
	}
	return cachePath, outputPath, nil
}

// Empty removes everything inside path but keeps path itself. Only
// directories below the root can be emptied, and none after Teardown.
func (m *Manager) Empty(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.root == "" {
		return fmt.Errorf("cannot empty %s: temporary directory was removed", path)
	}
	rel, err := filepath.Rel(m.root, path)
	if err != nil || rel == "." || !filepath.IsLocal(rel) {
		return fmt.Errorf("cannot empty %s: not inside %s", path, m.root)
	}
	return fsutil.EmptyDir(path)
}

// Teardown removes the root directory and everything below it. It is safe to
// call on a nil Manager and more than once.
func (m *Manager) Teardown() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.root == "" {
		return nil
	}
	if err := os.RemoveAll(m.root); err != nil {
		return fmt.Errorf("failed to remove temporary directory %s: %w", m.root, err)
	}
	ctxlog.FromContext(m.ctx).Debug("Temporary directory removed.", "path", m.root)
	m.root = ""
	return nil
}
