package nodewrapper

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/treeforge/internal/node"
)

func source(id int, path string, watched bool, annotation string) *Wrapper {
	name := "WatchedDir"
	if !watched {
		name = "UnwatchedDir"
	}
	w := New(node.Descriptor{Kind: node.PathSource, Info: node.Info{
		Type:            node.SourceType,
		Name:            name,
		Annotation:      annotation,
		SourceDirectory: path,
		Watched:         watched,
	}}, "stack")
	w.ID = id
	return w
}

func transform(id int, name, annotation string, cb node.Callback, inputs ...*Wrapper) *Wrapper {
	w := New(node.Descriptor{Kind: node.TransformNode, Info: node.Info{
		Type:       node.TransformType,
		Name:       name,
		Annotation: annotation,
		Callback:   cb,
	}}, "stack")
	w.ID = id
	w.InputWrappers = inputs
	return w
}

func sleeper(d time.Duration) node.Callback {
	return node.BuildFunc(func(ctx context.Context, _ node.Paths) error {
		time.Sleep(d)
		return nil
	})
}

func TestLabel(t *testing.T) {
	t.Parallel()

	src := source(0, "test/fixtures/basic", true, "")
	annotated := source(1, "test/fixtures/basic", true, "some text")
	merge := transform(2, "MergePlugin", "", sleeper(0), src, annotated)
	annotatedMerge := transform(3, "MergePlugin", "some text", sleeper(0), merge)

	assert.Equal(t, "WatchedDir (test/fixtures/basic)", src.Label())
	assert.Equal(t, "WatchedDir (test/fixtures/basic; some text)", annotated.Label())
	assert.Equal(t, "MergePlugin", merge.Label())
	assert.Equal(t, "MergePlugin (some text)", annotatedMerge.Label())
}

func TestString(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	watched := source(0, dir, true, "")
	unwatched := source(1, dir, false, "")
	merge := transform(2, "MergePlugin", "", sleeper(2*time.Millisecond), watched, unwatched)
	merge.OutputPath = filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(merge.OutputPath, 0o755))

	// --- Assert before build ---
	assert.Equal(t, "[NodeWrapper:0 "+dir+"]", watched.String())
	assert.Equal(t, "[NodeWrapper:1 "+dir+" (unwatched)]", unwatched.String())
	assert.Equal(t, "[NodeWrapper:2 MergePlugin inputNodeWrappers:[0,1] at "+merge.OutputPath+"]", merge.String())

	// --- Act ---
	require.NoError(t, watched.Build(context.Background()))
	require.NoError(t, unwatched.Build(context.Background()))
	require.NoError(t, merge.Build(context.Background()))

	// --- Assert after build ---
	assert.Regexp(t, `^\[NodeWrapper:2 MergePlugin inputNodeWrappers:\[0,1\] at .+ \([0-9]+ ms\)\]$`, merge.String())
}

func TestBuild_Timing(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	src := source(0, dir, true, "")
	nw1 := transform(1, "Sleeping", "", sleeper(5*time.Millisecond), src)
	nw2 := transform(2, "Sleeping", "", sleeper(5*time.Millisecond))
	out := transform(3, "Sleeping", "", sleeper(5*time.Millisecond), nw1, nw2, nw1)
	for _, w := range []*Wrapper{nw1, nw2, out} {
		w.OutputPath = t.TempDir()
	}

	// --- Act ---
	for _, w := range []*Wrapper{src, nw1, nw2, out} {
		require.NoError(t, w.Build(context.Background()))
	}

	// --- Assert ---
	assert.Equal(t, &BuildState{}, src.BuildState())

	s1, s2, so := nw1.BuildState(), nw2.BuildState(), out.BuildState()
	assert.Greater(t, s1.SelfTime, 0.0)
	assert.Equal(t, s1.SelfTime, s1.TotalTime)
	assert.Greater(t, s2.SelfTime, 0.0)
	assert.Equal(t, s2.SelfTime, s2.TotalTime)
	assert.Greater(t, so.SelfTime, 0.0)
	assert.Equal(t, so.SelfTime+s1.SelfTime+s2.SelfTime, so.TotalTime, "repeated inputs count once, in declaration order")
}

func TestBuild_EmptiesOutputUnlessPersistent(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		persistent bool
		wantKept   bool
	}{
		{name: "default output is emptied", persistent: false, wantKept: false},
		{name: "persistent output accumulates", persistent: true, wantKept: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			built := false
			w := transform(0, "BuildOnce", "", node.BuildFunc(func(_ context.Context, p node.Paths) error {
				if built {
					return nil
				}
				built = true
				return os.WriteFile(filepath.Join(p.OutputPath, "foo.txt"), []byte("test"), 0o644)
			}))
			w.Info.PersistentOutput = tc.persistent
			w.OutputPath = t.TempDir()

			// --- Act ---
			require.NoError(t, w.Build(context.Background()))
			require.NoError(t, w.Build(context.Background()))

			// --- Assert ---
			_, err := os.Stat(filepath.Join(w.OutputPath, "foo.txt"))
			assert.Equal(t, tc.wantKept, err == nil)
		})
	}
}

func TestBuild_UsesEmptyOutput(t *testing.T) {
	t.Parallel()

	t.Run("emptier is called for the output path", func(t *testing.T) {
		t.Parallel()

		// --- Arrange ---
		w := transform(0, "Noop", "", node.BuildFunc(func(context.Context, node.Paths) error { return nil }))
		w.OutputPath = t.TempDir()
		var emptied []string
		w.EmptyOutput = func(path string) error {
			emptied = append(emptied, path)
			return nil
		}

		// --- Act ---
		require.NoError(t, w.Build(context.Background()))

		// --- Assert ---
		assert.Equal(t, []string{w.OutputPath}, emptied)
	})

	t.Run("emptier failure stops the build", func(t *testing.T) {
		t.Parallel()

		called := false
		w := transform(0, "Noop", "", node.BuildFunc(func(context.Context, node.Paths) error {
			called = true
			return nil
		}))
		w.OutputPath = t.TempDir()
		w.EmptyOutput = func(string) error { return errors.New("gone") }

		err := w.Build(context.Background())

		assert.ErrorContains(t, err, "failed to empty output directory: gone")
		assert.False(t, called)
	})

	t.Run("persistent output is not emptied", func(t *testing.T) {
		t.Parallel()

		w := transform(0, "Noop", "", node.BuildFunc(func(context.Context, node.Paths) error { return nil }))
		w.Info.PersistentOutput = true
		w.OutputPath = t.TempDir()
		w.EmptyOutput = func(string) error { return errors.New("must not be called") }

		assert.NoError(t, w.Build(context.Background()))
	})
}

func TestBuild_SourceErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "foo.txt")
	require.NoError(t, os.WriteFile(file, []byte("OK"), 0o644))
	missing := filepath.Join(dir, "doesnotexist")

	err := source(0, missing, false, "").Build(context.Background())
	assert.EqualError(t, err, missing+": no such file or directory")
	assert.ErrorIs(t, err, ErrSourceMissing)

	err = source(0, file, false, "").Build(context.Background())
	assert.EqualError(t, err, file+": Not a directory")
	assert.ErrorIs(t, err, ErrNotDirectory)
}

type setupCallback struct {
	setupPaths node.Paths
}

func (s *setupCallback) Setup(_ context.Context, p node.Paths) error {
	s.setupPaths = p
	return nil
}

func (s *setupCallback) Build(context.Context, node.Paths) error { return nil }

func TestSetup_ReceivesPaths(t *testing.T) {
	t.Parallel()

	src := source(0, "in", true, "")
	cb := &setupCallback{}
	w := transform(1, "Setup", "", cb, src)
	w.CachePath, w.OutputPath = "/c", "/o"

	require.NoError(t, w.Setup(context.Background()))

	assert.Equal(t, node.Paths{InputPaths: []string{"in"}, OutputPath: "/o", CachePath: "/c"}, cb.setupPaths)
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	src := source(0, "test/fixtures/basic", true, "")
	merge := transform(2, "MergePlugin", "", sleeper(0), src)

	// --- Act ---
	raw, err := json.Marshal(src.Snapshot())
	require.NoError(t, err)
	transformSnap := merge.Snapshot()

	// --- Assert ---
	assert.JSONEq(t, `{
		"id": 0,
		"nodeInfo": {
			"nodeType": "source",
			"sourceDirectory": "test/fixtures/basic",
			"watched": true,
			"name": "WatchedDir",
			"annotation": null
		},
		"label": "WatchedDir (test/fixtures/basic)",
		"inputNodeWrappers": [],
		"cachePath": null,
		"outputPath": "test/fixtures/basic",
		"buildState": null
	}`, string(raw))

	assert.Nil(t, transformSnap.BuildState)
	assert.Nil(t, transformSnap.CachePath)
	assert.Nil(t, transformSnap.OutputPath)
	assert.Equal(t, []int{0}, transformSnap.InputNodeWrappers)
	require.NotNil(t, transformSnap.NodeInfo.PersistentOutput)
	assert.False(t, *transformSnap.NodeInfo.PersistentOutput)
}

func TestErrorSubject(t *testing.T) {
	t.Parallel()

	w := transform(4, "FailingPlugin", "annotated", sleeper(0))

	s := w.ErrorSubject()

	assert.Equal(t, 4, s.ID)
	assert.Equal(t, "FailingPlugin (annotated)", s.Label)
	assert.Equal(t, "FailingPlugin", s.Name)
	assert.Equal(t, "annotated", s.Annotation)
	assert.Equal(t, "stack", s.InstantiationStack)
}
