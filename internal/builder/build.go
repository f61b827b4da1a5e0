package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zishang520/engine.io/v2/events"

	"github.com/specialistvlad/treeforge/internal/builderror"
	"github.com/specialistvlad/treeforge/internal/ctxlog"
	"github.com/specialistvlad/treeforge/internal/nodewrapper"
)

// Event names emitted by a Builder. Build events carry a *BuildEvent. Node
// events carry the *nodewrapper.Wrapper; endNode also carries the node's
// error, nil on success.
const (
	EventBeginBuild events.EventName = "beginBuild"
	EventEndBuild   events.EventName = "endBuild"
	EventBeginNode  events.EventName = "beginNode"
	EventEndNode    events.EventName = "endNode"
)

// BuildEvent is passed to beginBuild and endBuild listeners. Duration and
// Err are set for endBuild only.
type BuildEvent struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Build executes every node once, dependencies first. It fails with
// ErrCannotBuild after Cleanup and with ErrBuildInProgress while another
// build is running. A failing node yields a *builderror.BuildError; a build
// interrupted by Cleanup or by ctx yields a *builderror.CancelationError.
//
// Cancellation is checked before every node and once more after the last
// one. A callback that is already running is not interrupted, but its
// context is canceled.
func (b *Builder) Build(ctx context.Context) error {
	b.mu.Lock()
	switch b.state {
	case StateCanceled, StateCleanedUp:
		b.mu.Unlock()
		return ErrCannotBuild
	case StateBuilding:
		b.mu.Unlock()
		return ErrBuildInProgress
	}
	buildCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	b.state = StateBuilding
	b.cancel = cancel
	b.done = done
	b.mu.Unlock()

	defer func() {
		cancel()
		b.mu.Lock()
		if b.state == StateBuilding {
			b.state = StateIdle
		}
		b.mu.Unlock()
		close(done)
	}()

	ev := &BuildEvent{ID: uuid.NewString(), Started: time.Now()}
	buildCtx = ctxlog.With(buildCtx, "build_id", ev.ID)
	logger := ctxlog.FromContext(buildCtx)

	logger.Info("🚀 Build started.", "node_count", len(b.wrappers))
	b.Emit(EventBeginBuild, ev)

	ev.Err = b.run(buildCtx)
	ev.Duration = time.Since(ev.Started)

	switch {
	case ev.Err == nil:
		logger.Info("🏁 Build finished.", "duration", ev.Duration)
	case builderror.IsSilent(ev.Err):
		logger.Info("Build canceled.", "duration", ev.Duration)
	default:
		logger.Error("Build failed.", "duration", ev.Duration, "error", ev.Err)
	}
	b.Emit(EventEndBuild, ev)
	return ev.Err
}

func (b *Builder) run(ctx context.Context) error {
	for _, w := range b.wrappers {
		if err := canceled(ctx); err != nil {
			return err
		}

		b.Emit(EventBeginNode, w)
		err := b.buildNode(ctx, w)
		b.Emit(EventEndNode, w, err)
		if err != nil {
			return err
		}
	}
	return canceled(ctx)
}

func canceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &builderror.CancelationError{Cause: err}
	}
	return nil
}

// buildNode builds w. Whatever the callback returns or panics with is
// enriched into a BuildError, unless the build was canceled meanwhile.
func (b *Builder) buildNode(ctx context.Context, w *nodewrapper.Wrapper) error {
	logger := ctxlog.FromContext(ctx).With("node_id", w.ID, "label", w.Label())
	logger.Debug("Building node.")

	thrown, failed := func() (thrown any, failed bool) {
		defer func() {
			if r := recover(); r != nil {
				thrown, failed = r, true
			}
		}()
		if err := w.Build(ctx); err != nil {
			return err, true
		}
		return nil, false
	}()

	if !failed {
		if st := w.BuildState(); st != nil {
			logger.Debug("Node built.", "self_ms", st.SelfTime, "total_ms", st.TotalTime)
		}
		return nil
	}
	if err := canceled(ctx); err != nil {
		logger.Debug("Node interrupted by cancellation.")
		return err
	}
	return enrich(thrown, w)
}

// enrich is builderror.Enrich that survives failing Error methods of the
// thrown value, so the node still ends with a BuildError.
func enrich(thrown any, w *nodewrapper.Wrapper) (be *builderror.BuildError) {
	defer func() {
		if r := recover(); r != nil {
			be = builderror.Enrich(fmt.Sprintf("failed to describe %T: %v", thrown, r), w)
		}
	}()
	return builderror.Enrich(thrown, w)
}
