// Package nodewrapper holds the runtime record the builder keeps for every
// distinct node of a graph: its id, resolved directories, inputs and timing.
package nodewrapper

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/specialistvlad/treeforge/internal/builderror"
	"github.com/specialistvlad/treeforge/internal/fsutil"
	"github.com/specialistvlad/treeforge/internal/node"
)

// BuildState is the timing of the most recent successful build, in
// milliseconds.
type BuildState struct {
	SelfTime  float64 `json:"selfTime"`
	TotalTime float64 `json:"totalTime"`
}

// Wrapper pairs a classified node with its execution state. Wrappers are
// created by the graph package; InputWrappers reference wrappers with lower
// ids and are never owned.
type Wrapper struct {
	ID            int
	Kind          node.Kind
	Info          node.Info
	InputWrappers []*Wrapper

	// CachePath is "" for sources and until directories are allocated.
	CachePath string
	// OutputPath is the source directory for sources, and "" for transforms
	// until directories are allocated.
	OutputPath string

	InstantiationStack string

	// EmptyOutput clears OutputPath before a non-persistent build. The
	// builder sets it to its temporary directory manager; nil means
	// fsutil.EmptyDir.
	EmptyOutput func(path string) error

	mu    sync.RWMutex
	state *BuildState
}

// New wraps a classified node. stack is used when the node did not record
// its own instantiation stack.
func New(desc node.Descriptor, stack string) *Wrapper {
	w := &Wrapper{
		ID:                 -1,
		Kind:               desc.Kind,
		Info:               desc.Info,
		InstantiationStack: desc.Info.InstantiationStack,
	}
	if w.InstantiationStack == "" {
		w.InstantiationStack = stack
	}
	if w.IsSource() {
		w.OutputPath = desc.Info.SourceDirectory
	}
	return w
}

// IsSource reports whether the wrapped node is a source directory.
func (w *Wrapper) IsSource() bool { return w.Kind == node.PathSource }

// Label is the human readable name of the node, e.g. "MergePlugin (css)" or
// "WatchedDir (src; app code)".
func (w *Wrapper) Label() string {
	if w.IsSource() {
		detail := w.Info.SourceDirectory
		if w.Info.Annotation != "" {
			detail += "; " + w.Info.Annotation
		}
		return w.Name() + " (" + detail + ")"
	}
	if w.Info.Annotation != "" {
		return w.Name() + " (" + w.Info.Annotation + ")"
	}
	return w.Name()
}

// Name is the node name, defaulting by kind when the node did not set one.
func (w *Wrapper) Name() string {
	if w.Info.Name != "" {
		return w.Info.Name
	}
	if w.IsSource() && !w.Info.Watched {
		return node.UnwatchedDirName
	}
	if w.IsSource() {
		return node.WatchedDirName
	}
	return "Plugin"
}

// String is a debug representation, e.g.
// "[NodeWrapper:2 MergePlugin inputNodeWrappers:[0,1] at /tmp/x (3 ms)]".
func (w *Wrapper) String() string {
	if w.IsSource() {
		suffix := ""
		if !w.Info.Watched {
			suffix = " (unwatched)"
		}
		return fmt.Sprintf("[NodeWrapper:%d %s%s]", w.ID, w.Info.SourceDirectory, suffix)
	}

	ids := make([]string, len(w.InputWrappers))
	for i, in := range w.InputWrappers {
		ids[i] = strconv.Itoa(in.ID)
	}
	timing := ""
	if st := w.BuildState(); st != nil {
		timing = fmt.Sprintf(" (%d ms)", int64(math.Round(st.SelfTime)))
	}
	return fmt.Sprintf("[NodeWrapper:%d %s inputNodeWrappers:[%s] at %s%s]",
		w.ID, w.Label(), strings.Join(ids, ","), w.OutputPath, timing)
}

// ErrorSubject implements builderror.Target.
func (w *Wrapper) ErrorSubject() builderror.Subject {
	return builderror.Subject{
		ID:                 w.ID,
		Label:              w.Label(),
		Name:               w.Name(),
		Annotation:         w.Info.Annotation,
		InstantiationStack: w.InstantiationStack,
	}
}

// BuildState returns a copy of the timing of the last successful build, or
// nil when the node has not been built yet.
func (w *Wrapper) BuildState() *BuildState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.state == nil {
		return nil
	}
	st := *w.state
	return &st
}

// Paths returns the directories handed to the node's callbacks.
func (w *Wrapper) Paths() node.Paths {
	inputs := make([]string, len(w.InputWrappers))
	for i, in := range w.InputWrappers {
		inputs[i] = in.OutputPath
	}
	return node.Paths{
		InputPaths: inputs,
		OutputPath: w.OutputPath,
		CachePath:  w.CachePath,
	}
}

// Setup runs the one-time setup of a transform whose callback asks for it.
func (w *Wrapper) Setup(ctx context.Context) error {
	if w.IsSource() {
		return nil
	}
	s, ok := w.Info.Callback.(node.Setupper)
	if !ok {
		return nil
	}
	return s.Setup(ctx, w.Paths())
}

// Build builds the node once. Sources are checked for existence; transforms
// get their output directory emptied, unless the output is persistent, and
// their callback invoked. Timing is recorded when the build succeeds. Inputs
// must have been built before.
func (w *Wrapper) Build(ctx context.Context) error {
	if w.IsSource() {
		if err := checkSource(w.Info.SourceDirectory); err != nil {
			return err
		}
		w.setState(&BuildState{})
		return nil
	}

	if !w.Info.PersistentOutput {
		empty := w.EmptyOutput
		if empty == nil {
			empty = fsutil.EmptyDir
		}
		if err := empty(w.OutputPath); err != nil {
			return fmt.Errorf("failed to empty output directory: %w", err)
		}
	}

	start := time.Now()
	if err := w.Info.Callback.Build(ctx, w.Paths()); err != nil {
		return err
	}
	self := float64(time.Since(start)) / float64(time.Millisecond)

	total := self
	seen := make(map[*Wrapper]bool, len(w.InputWrappers))
	for _, in := range w.InputWrappers {
		if seen[in] {
			continue
		}
		seen[in] = true
		if st := in.BuildState(); st != nil {
			total += st.TotalTime
		}
	}
	w.setState(&BuildState{SelfTime: self, TotalTime: total})
	return nil
}

func (w *Wrapper) setState(st *BuildState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = st
}
