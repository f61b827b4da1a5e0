package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/zishang520/engine.io/v2/events"
	"go.uber.org/multierr"

	"github.com/specialistvlad/treeforge/internal/builderror"
	"github.com/specialistvlad/treeforge/internal/ctxlog"
	"github.com/specialistvlad/treeforge/internal/graph"
	"github.com/specialistvlad/treeforge/internal/nodewrapper"
	"github.com/specialistvlad/treeforge/internal/tmpdir"
)

var (
	// ErrCannotBuild is returned by Build after Cleanup.
	ErrCannotBuild = errors.New("cannot build this builder, as it was previously canceled or cleaned up")
	// ErrBuildInProgress is returned by Build while another Build is running.
	ErrBuildInProgress = errors.New("cannot build this builder, a build is already in progress")
)

// State is the lifecycle state of a Builder.
type State int

const (
	StateIdle State = iota
	StateBuilding
	// StateCanceled is entered when Cleanup interrupts a running build. It
	// behaves like StateCleanedUp.
	StateCanceled
	StateCleanedUp
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateCanceled:
		return "canceled"
	case StateCleanedUp:
		return "cleaned_up"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures New.
type Option func(*options)

type options struct {
	tmpDir string
}

// WithTempDir creates the temporary directory below dir instead of the
// system temporary directory.
func WithTempDir(dir string) Option {
	return func(o *options) { o.tmpDir = dir }
}

// Builder executes the graph of one root node, repeatedly.
type Builder struct {
	events.EventEmitter

	ctx      context.Context
	wrappers []*nodewrapper.Wrapper
	tmp      *tmpdir.Manager

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	// done is closed when the most recent Build returns.
	done chan struct{}
}

// New builds the graph of root and prepares it for building. ctx carries
// the logger and is passed to the Setup callbacks.
func New(ctx context.Context, root any, opts ...Option) (*Builder, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	logger := ctxlog.FromContext(ctx)

	wrappers, err := graph.Build(ctx, root)
	if err != nil {
		return nil, err
	}

	tmp, err := tmpdir.New(ctx, o.tmpDir)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		EventEmitter: events.New(),
		ctx:          ctx,
		wrappers:     wrappers,
		tmp:          tmp,
	}

	for _, w := range wrappers {
		if w.IsSource() {
			continue
		}
		w.CachePath, w.OutputPath, err = tmp.Allocate(w.ID, w.Info.Name)
		if err != nil {
			return nil, multierr.Append(err, tmp.Teardown())
		}
		w.EmptyOutput = tmp.Empty
	}

	for i, w := range wrappers {
		if err := setup(ctx, w); err != nil {
			logger.Error("Node setup failed.", "node_id", w.ID, "label", w.Label(), "error", err)
			setupErr := builderror.NewSetupError(err, w)
			return nil, multierr.Combine(setupErr, closeCallbacks(wrappers[:i]), tmp.Teardown())
		}
	}

	logger.Debug("Builder ready.", "node_count", len(wrappers), "tmp_dir", tmp.Root())
	return b, nil
}

// setup runs the Setup of w, turning a panic into an error.
func setup(ctx context.Context, w *nodewrapper.Wrapper) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during setup: %v", r)
		}
	}()
	return w.Setup(ctx)
}

// NodeWrappers returns the wrappers of the graph ordered by id.
func (b *Builder) NodeWrappers() []*nodewrapper.Wrapper {
	return append([]*nodewrapper.Wrapper(nil), b.wrappers...)
}

// OutputPath is the directory holding the result of the root node.
func (b *Builder) OutputPath() string {
	return b.wrappers[len(b.wrappers)-1].OutputPath
}

// WatchedPaths returns the distinct watched source directories, in id order.
func (b *Builder) WatchedPaths() []string { return b.sourcePaths(true) }

// UnwatchedPaths returns the distinct unwatched source directories, in id
// order.
func (b *Builder) UnwatchedPaths() []string { return b.sourcePaths(false) }

func (b *Builder) sourcePaths(watched bool) []string {
	paths := []string{}
	seen := make(map[string]bool)
	for _, w := range b.wrappers {
		if !w.IsSource() || w.Info.Watched != watched || seen[w.Info.SourceDirectory] {
			continue
		}
		seen[w.Info.SourceDirectory] = true
		paths = append(paths, w.Info.SourceDirectory)
	}
	return paths
}

// State returns the current lifecycle state.
func (b *Builder) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Cleanup cancels a running build, waits for it to return, and removes the
// temporary directory. Callbacks implementing io.Closer are closed. It is
// safe to call Cleanup more than once and from several goroutines; every
// call returns only after the directory is gone.
func (b *Builder) Cleanup() error {
	logger := ctxlog.FromContext(b.ctx)

	b.mu.Lock()
	first := b.state == StateIdle || b.state == StateBuilding
	switch b.state {
	case StateBuilding:
		logger.Info("Canceling running build for cleanup.")
		b.state = StateCanceled
		b.cancel()
	case StateIdle:
		b.state = StateCleanedUp
	}
	done := b.done
	b.mu.Unlock()

	if done != nil {
		<-done
	}

	var err error
	if first {
		err = closeCallbacks(b.wrappers)
	}
	err = multierr.Append(err, b.tmp.Teardown())
	if err != nil {
		logger.Error("Builder cleanup failed.", "error", err)
		return err
	}
	logger.Debug("Builder cleaned up.")
	return nil
}

func closeCallbacks(wrappers []*nodewrapper.Wrapper) error {
	var err error
	for _, w := range wrappers {
		if w.IsSource() {
			continue
		}
		if c, ok := w.Info.Callback.(io.Closer); ok {
			if cerr := c.Close(); cerr != nil {
				err = multierr.Append(err, fmt.Errorf("failed to close %s: %w", w.Label(), cerr))
			}
		}
	}
	return err
}
