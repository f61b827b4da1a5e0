package tmpdir

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CreatesPrefixedRoot(t *testing.T) {
	t.Parallel()

	base := t.TempDir()

	m, err := New(context.Background(), base)

	require.NoError(t, err)
	assert.DirExists(t, m.Root())
	assert.Equal(t, base, filepath.Dir(m.Root()))
	assert.True(t, strings.HasPrefix(filepath.Base(m.Root()), Prefix))
}

func TestNew_DefaultsToSystemTempDir(t *testing.T) {
	t.Parallel()

	m, err := New(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Teardown() })

	assert.True(t, strings.HasPrefix(filepath.Base(m.Root()), Prefix))
	assert.DirExists(t, m.Root())
}

func TestNew_BaseDirMissing(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), filepath.Join(t.TempDir(), "missing"))

	assert.ErrorContains(t, err, "failed to create temporary directory")
}

func TestAllocate(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	m, err := New(context.Background(), t.TempDir())
	require.NoError(t, err)

	// --- Act ---
	cachePath, outputPath, err := m.Allocate(3, "MergePlugin")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.Root(), "cache-3-MergePlugin"), cachePath)
	assert.Equal(t, filepath.Join(m.Root(), "out-3-MergePlugin"), outputPath)
	assert.DirExists(t, cachePath)
	assert.DirExists(t, outputPath)
}

func TestEmpty_KeepsDirectory(t *testing.T) {
	t.Parallel()

	m, err := New(context.Background(), t.TempDir())
	require.NoError(t, err)
	_, out, err := m.Allocate(0, "Veggies")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(out, "old.txt"), []byte("stale"), 0o644))

	require.NoError(t, m.Empty(out))

	assert.DirExists(t, out)
	assert.NoFileExists(t, filepath.Join(out, "old.txt"))
}

func TestEmpty_OnlyInsideRoot(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	m, err := New(context.Background(), t.TempDir())
	require.NoError(t, err)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "keep.txt"), []byte("keep"), 0o644))

	// --- Act ---
	outsideErr := m.Empty(outside)
	rootErr := m.Empty(m.Root())
	escapeErr := m.Empty(filepath.Join(m.Root(), "..", filepath.Base(outside)))

	// --- Assert ---
	assert.ErrorContains(t, outsideErr, "not inside")
	assert.ErrorContains(t, rootErr, "not inside")
	assert.ErrorContains(t, escapeErr, "not inside")
	assert.FileExists(t, filepath.Join(outside, "keep.txt"))
}

func TestEmpty_AfterTeardown(t *testing.T) {
	t.Parallel()

	m, err := New(context.Background(), t.TempDir())
	require.NoError(t, err)
	_, out, err := m.Allocate(0, "Veggies")
	require.NoError(t, err)
	require.NoError(t, m.Teardown())

	assert.ErrorContains(t, m.Empty(out), "temporary directory was removed")
}

func TestTeardown_Idempotent(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	m, err := New(context.Background(), t.TempDir())
	require.NoError(t, err)
	root := m.Root()
	_, _, err = m.Allocate(0, "Veggies")
	require.NoError(t, err)

	// --- Act ---
	first := m.Teardown()
	second := m.Teardown()

	// --- Assert ---
	require.NoError(t, first)
	require.NoError(t, second)
	assert.NoDirExists(t, root)
	assert.Empty(t, m.Root())

	_, _, err = m.Allocate(1, "Late")
	assert.Error(t, err, "allocation after teardown must fail")
}

func TestTeardown_NilManager(t *testing.T) {
	t.Parallel()

	var m *Manager

	assert.NoError(t, m.Teardown())
	assert.Empty(t, m.Root())
}
